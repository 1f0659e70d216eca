// Package naan is an embedded vector database. It keeps a vector index and a SQLite metadata
// store consistent as one logical database stored in a single folder:
//
//	docs/
//	  docs.db     text, embeddings and scalar metadata per ordinal
//	  docs.faiss  index snapshot
//
// Vectors are identified by ordinals assigned by the index on insertion, starting at 0. The
// ordinal is the join key between the two files. Searches can be narrowed with a filter
// expression over metadata, for example
//
//	db.Search(ctx, q, 10, naan.WithFilter(`Published > 1920 and Author == 'Woolf'`))
//
// A DB is meant to be used by one writer. The folder is locked while it is open, so a second
// Open of the same folder fails with ErrLocked.
package naan
