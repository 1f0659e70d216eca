package vector

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math/bits"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hyperjump/naan/pkg/utils"
)

// SnapshotTempSuffix is appended to the snapshot path while a new snapshot is written.
// A file with this suffix left next to a snapshot is the residue of an interrupted write.
const SnapshotTempSuffix = ".tmp"

// Compression selects how a flat snapshot payload is stored.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
	CompressionLZ4  Compression = "lz4"
)

// ParseCompression returns the compression named s; empty selects CompressionNone.
func ParseCompression(s string) (Compression, error) {
	c := Compression(s)
	if c == "" {
		return CompressionNone, nil
	}
	if err := c.validate(); err != nil {
		return "", err
	}
	return c, nil
}

func (c Compression) validate() error {
	switch c {
	case CompressionNone, CompressionZstd, CompressionLZ4:
		return nil
	}
	return fmt.Errorf("unknown snapshot compression: %s (supported: none, zstd, lz4)", c)
}

var (
	// ErrCorruptSnapshot is returned when a snapshot fails its integrity checks.
	ErrCorruptSnapshot = errors.New("corrupt index snapshot")

	flatMagic = [8]byte{'N', 'A', 'A', 'N', 'F', 'L', 'T', '1'}
)

const (
	codeNone byte = iota
	codeZstd
	codeLZ4
)

const (
	metricCodeL2 byte = iota
	metricCodeIP
)

// flatHeader is the fixed-size prefix of a flat snapshot, little-endian.
type flatHeader struct {
	Magic       [8]byte
	Metric      uint8
	Compression uint8
	_           uint16
	Dimension   uint32
	Count       uint64
	RawLen      uint64
	StoredLen   uint64
	Checksum    uint32
	_           uint32
}

func encodeFlat(w io.Writer, metric Metric, c Compression, dim int, data []float32) error {
	raw := utils.Float32sToBytes(data)
	stored, code, err := compressPayload(raw, c)
	if err != nil {
		return err
	}
	hdr := flatHeader{
		Magic:       flatMagic,
		Metric:      metricCodeL2,
		Compression: code,
		Dimension:   uint32(dim),
		Count:       uint64(len(data) / dim),
		RawLen:      uint64(len(raw)),
		StoredLen:   uint64(len(stored)),
		Checksum:    crc32.ChecksumIEEE(raw),
	}
	if metric == MetricInnerProduct {
		hdr.Metric = metricCodeIP
	}
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}
	if _, err := w.Write(stored); err != nil {
		return fmt.Errorf("write snapshot payload: %w", err)
	}
	return nil
}

func compressPayload(raw []byte, c Compression) ([]byte, byte, error) {
	switch c {
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, 0, fmt.Errorf("create zstd encoder: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(raw, nil), codeZstd, nil
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, buf, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("lz4 compress: %w", err)
		}
		if n == 0 {
			// Incompressible; store as-is.
			return raw, codeNone, nil
		}
		return buf[:n], codeLZ4, nil
	}
	return raw, codeNone, nil
}

func decompressPayload(stored []byte, code byte, rawLen uint64) ([]byte, error) {
	switch code {
	case codeNone:
		return stored, nil
	case codeZstd:
		dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(max(rawLen, zstdMinDecoderMemory)))
		if err != nil {
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		defer dec.Close()
		raw, err := dec.DecodeAll(stored, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrCorruptSnapshot, err)
		}
		return raw, nil
	case codeLZ4:
		raw := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(stored, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %v", ErrCorruptSnapshot, err)
		}
		return raw[:n], nil
	}
	return nil, fmt.Errorf("%w: unknown compression code %d", ErrCorruptSnapshot, code)
}

func compressionFromCode(code byte) Compression {
	switch code {
	case codeZstd:
		return CompressionZstd
	case codeLZ4:
		return CompressionLZ4
	}
	return CompressionNone
}

const (
	// maxLZ4Ratio bounds how much an LZ4 block can expand on decompression.
	maxLZ4Ratio = 255
	// zstdMinDecoderMemory covers the encoder's default window, which small frames still declare.
	zstdMinDecoderMemory = 8 << 20
)

// decodeFlat reads a flat snapshot of size bytes from r. Header lengths are checked against
// size before anything is allocated.
func decodeFlat(r io.Reader, size int64) (*FlatIndex, error) {
	var hdr flatHeader
	hdrSize := int64(binary.Size(hdr))
	if size < hdrSize {
		return nil, fmt.Errorf("%w: file has %d bytes, header needs %d", ErrCorruptSnapshot, size, hdrSize)
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrCorruptSnapshot, err)
	}
	if hdr.Magic != flatMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorruptSnapshot)
	}
	if hdr.Dimension == 0 {
		return nil, fmt.Errorf("%w: zero dimension", ErrCorruptSnapshot)
	}
	hi, rawLen := bits.Mul64(hdr.Count, uint64(hdr.Dimension)*4)
	if hi != 0 || hdr.RawLen != rawLen {
		return nil, fmt.Errorf("%w: payload length %d does not match %d vectors of dimension %d",
			ErrCorruptSnapshot, hdr.RawLen, hdr.Count, hdr.Dimension)
	}
	metric := MetricL2
	switch hdr.Metric {
	case metricCodeL2:
	case metricCodeIP:
		metric = MetricInnerProduct
	default:
		return nil, fmt.Errorf("%w: unknown metric code %d", ErrCorruptSnapshot, hdr.Metric)
	}

	if hdr.StoredLen != uint64(size-hdrSize) {
		return nil, fmt.Errorf("%w: header declares %d payload bytes, file holds %d",
			ErrCorruptSnapshot, hdr.StoredLen, size-hdrSize)
	}
	switch hdr.Compression {
	case codeNone:
		if hdr.RawLen != hdr.StoredLen {
			return nil, fmt.Errorf("%w: uncompressed payload length mismatch", ErrCorruptSnapshot)
		}
	case codeLZ4:
		if hdr.RawLen > hdr.StoredLen*maxLZ4Ratio {
			return nil, fmt.Errorf("%w: lz4 payload cannot expand to %d bytes", ErrCorruptSnapshot, hdr.RawLen)
		}
	}

	stored := make([]byte, hdr.StoredLen)
	if _, err := io.ReadFull(r, stored); err != nil {
		return nil, fmt.Errorf("%w: read payload: %v", ErrCorruptSnapshot, err)
	}
	raw, err := decompressPayload(stored, hdr.Compression, hdr.RawLen)
	if err != nil {
		return nil, err
	}
	if uint64(len(raw)) != hdr.RawLen || crc32.ChecksumIEEE(raw) != hdr.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptSnapshot)
	}
	data, err := utils.BytesToFloat32s(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	idx, err := NewFlatIndex(int(hdr.Dimension), metric)
	if err != nil {
		return nil, err
	}
	idx.data = data
	idx.compression = compressionFromCode(hdr.Compression)
	return idx, nil
}

// ReadSnapshot loads an index from path. Flat snapshots are recognized by their header;
// any other file is handed to the FAISS reader, which fails when FAISS is not compiled in.
func ReadSnapshot(path string) (Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index snapshot: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat index snapshot: %w", err)
	}
	br := bufio.NewReader(f)
	magic, err := br.Peek(len(flatMagic))
	if err == nil && bytes.Equal(magic, flatMagic[:]) {
		idx, err := decodeFlat(br, st.Size())
		if err != nil {
			return nil, fmt.Errorf("read index snapshot %s: %w", path, err)
		}
		return idx, nil
	}
	idx, err := readFAISSSnapshot(path)
	if err != nil {
		return nil, fmt.Errorf("read index snapshot %s: %w", path, err)
	}
	return idx, nil
}

// writeFileAtomic writes a new file next to path and renames it over path once it is
// fully synced, so readers only ever see a complete snapshot.
func writeFileAtomic(path string, write func(w io.Writer) error) error {
	return replaceFile(path, func(tmp string) error {
		f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return fmt.Errorf("create snapshot file: %w", err)
		}
		bw := bufio.NewWriter(f)
		if err := write(bw); err != nil {
			_ = f.Close()
			return err
		}
		if err := bw.Flush(); err != nil {
			_ = f.Close()
			return fmt.Errorf("flush snapshot: %w", err)
		}
		if err := f.Sync(); err != nil {
			_ = f.Close()
			return fmt.Errorf("sync snapshot: %w", err)
		}
		return f.Close()
	})
}

// replaceFile lets write produce a temporary file, then renames it over path and syncs the
// parent directory. The temporary file is removed on failure.
func replaceFile(path string, write func(tmp string) error) error {
	if path == "" {
		return fmt.Errorf("snapshot path is empty")
	}
	tmp := path + SnapshotTempSuffix
	if err := write(tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return syncDir(filepath.Dir(path))
}

// syncFile fsyncs the file at path.
func syncFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync snapshot: %w", err)
	}
	return nil
}
