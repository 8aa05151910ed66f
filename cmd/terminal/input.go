package main

import (
	"fmt"
	"io"
)

// maxInputBytes caps confirmation text read from stdin.
const maxInputBytes = 8 << 20

func readAll(r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, maxInputBytes))
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return b, nil
}
