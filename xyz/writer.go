package xyz

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/eak1mov/go-tilekit/tile"
)

// Writer implements tile.Writer for tiles in XYZ format.
type Writer struct {
	filePattern string
}

var _ tile.Writer = (*Writer)(nil)

// NewWriter creates a new Writer for the given file pattern (e.g. "/home/user/tiles/{z}/{x}/{y}.json").
func NewWriter(filePattern string) (*Writer, error) {
	if err := validatePattern(filePattern); err != nil {
		return nil, err
	}
	return &Writer{filePattern}, nil
}

func (w *Writer) WriteTile(tileID tile.ID, tileData []byte) error {
	if !tileID.Valid() {
		return fmt.Errorf("%w: %v", tile.ErrInvalidID, tileID)
	}
	filePath := formatPattern(w.filePattern, tileID)
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return err
	}
	return os.WriteFile(filePath, tileData, 0644)
}

func (w *Writer) Finalize() error {
	return nil
}
