package flatIndex

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/akolanti/LibraryRAG/internal/domain/ragErrors"
)

const formatVersion uint16 = 1

var magic = [4]byte{'L', 'R', 'I', 'X'}

type blobHeader struct {
	Magic   [4]byte
	Format  uint16
	Dim     uint32
	Version uint64
	Count   uint32
}

// encodeVectors writes the header then every row as little-endian float32.
func encodeVectors(version int64, dim int, vectors [][]float32) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(binary.Size(blobHeader{}) + len(vectors)*dim*4)

	header := blobHeader{Magic: magic, Format: formatVersion, Dim: uint32(dim), Version: uint64(version), Count: uint32(len(vectors))}
	if err := binary.Write(&buf, binary.LittleEndian, header); err != nil {
		return nil, err
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d has dimension %d, index has %d", i, len(v), dim)
		}
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func decodeVectors(blob []byte) (version int64, dim int, vectors [][]float32, err error) {
	r := bytes.NewReader(blob)
	var header blobHeader
	if err = binary.Read(r, binary.LittleEndian, &header); err != nil {
		return 0, 0, nil, &ragErrors.IndexCorruptError{Err: fmt.Errorf("reading header: %w", err)}
	}
	if header.Magic != magic {
		return 0, 0, nil, &ragErrors.IndexCorruptError{Err: errors.New("not an index blob")}
	}
	if header.Format != formatVersion {
		return 0, 0, nil, &ragErrors.IndexCorruptError{Err: fmt.Errorf("unsupported blob format %d", header.Format)}
	}

	dim = int(header.Dim)
	count := int(header.Count)
	if want := count * dim * 4; r.Len() != want {
		return 0, 0, nil, &ragErrors.IndexCorruptError{Err: fmt.Errorf("blob holds %d bytes of rows, header promises %d", r.Len(), want)}
	}

	vectors = make([][]float32, count)
	for i := range vectors {
		row := make([]float32, dim)
		if err = binary.Read(r, binary.LittleEndian, row); err != nil {
			return 0, 0, nil, &ragErrors.IndexCorruptError{Err: fmt.Errorf("reading row %d: %w", i, err)}
		}
		vectors[i] = row
	}
	return int64(header.Version), dim, vectors, nil
}
