package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ProofStore keeps uploaded payment proof files and returns where they went.
type ProofStore interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

type DirProofStore struct {
	Dir string
}

func (s DirProofStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o750); err != nil {
		return "", fmt.Errorf("proof dir: %w", err)
	}
	path := filepath.Join(s.Dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("write proof: %w", err)
	}
	return path, nil
}
