// Package embeddings stores prompt embedding vectors and scores them
// against a query vector.
package embeddings

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Encode serializes vec as little-endian float64 values.
func Encode(vec []float64) ([]byte, error) {
	if err := Validate(vec); err != nil {
		return nil, err
	}

	buf := bytes.NewBuffer(make([]byte, 0, len(vec)*8))
	if err := binary.Write(buf, binary.LittleEndian, vec); err != nil {
		return nil, fmt.Errorf("encode embedding: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode is the inverse of Encode.
func Decode(data []byte) ([]float64, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("embedding data is empty")
	}
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("invalid embedding size: %d (not a multiple of 8)", len(data))
	}

	vec := make([]float64, len(data)/8)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, vec); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	return vec, nil
}

// Validate rejects empty vectors and non-finite values.
func Validate(vec []float64) error {
	if len(vec) == 0 {
		return fmt.Errorf("embedding vector is empty")
	}
	for i, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("embedding contains invalid value at index %d: %v", i, v)
		}
	}
	return nil
}
