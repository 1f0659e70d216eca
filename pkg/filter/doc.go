// Package filter parses and evaluates boolean filter expressions over document metadata.
//
// An expression compares a metadata key with a literal and can be combined with and, or,
// not and parentheses:
//
//	Published > 1920
//	Genre == 'Fiction' and (Rating >= 4.5 or not Classic == true)
//	'Publication Year' >= 1900
//
// The left operand of a comparison is the key. A quoted string there names a key that is not
// a bare word. A number or bool there is never a key, so `1920 < Published` is false. A bare
// word on the right is a string: `Genre == Fiction` equals `Genre == 'Fiction'`.
//
// A key missing from the metadata makes its comparison false, whatever the operator. Negation
// applies to that result, so `not Genre == 'Fiction'` is true for metadata without a Genre
// key. Use `Genre != 'Fiction'` to require the key.
package filter
