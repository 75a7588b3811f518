package artifact

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// writeVectors writes N rows of dimension float32 values, little endian,
// row order = ordinal order.
func writeVectors(path string, vectors [][]float32, dimension int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create vector file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	buf := make([]byte, dimension*4)
	for i, vec := range vectors {
		if len(vec) != dimension {
			return fmt.Errorf("%w: row %d has dimension %d, manifest says %d", ErrCorruptArtifact, i, len(vec), dimension)
		}
		for j, v := range vec {
			binary.LittleEndian.PutUint32(buf[j*4:(j+1)*4], math.Float32bits(v))
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("write vector row %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush vector file: %w", err)
	}
	return nil
}

// readVectors reads all rows from the vector file. The file size must be an
// exact multiple of the row size; anything else is corruption.
func readVectors(path string, dimension int) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vector file: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat vector file: %w", err)
	}
	rowSize := int64(dimension * 4)
	if info.Size()%rowSize != 0 {
		return nil, fmt.Errorf("%w: %s size %d is not a multiple of row size %d",
			ErrCorruptArtifact, filepath.Base(path), info.Size(), rowSize)
	}
	n := int(info.Size() / rowSize)
	r := bufio.NewReader(f)
	vectors := make([][]float32, n)
	buf := make([]byte, rowSize)
	for i := 0; i < n; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("read vector row %d: %w", i, err)
		}
		vec := make([]float32, dimension)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4 : (j+1)*4]))
		}
		vectors[i] = vec
	}
	return vectors, nil
}
