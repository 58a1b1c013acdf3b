package xyz

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/eak1mov/go-tilekit/tile"
)

// Reader implements tile.Reader and tile.Visitor for tiles in XYZ format.
type Reader struct {
	filePattern string
	rootDir     string
	pathRegexp  *regexp.Regexp
}

var (
	_ tile.Reader  = (*Reader)(nil)
	_ tile.Visitor = (*Reader)(nil)
)

// NewReader creates a new Reader for the given file pattern (e.g. "/home/user/tiles/{z}/{x}/{y}.json").
func NewReader(filePattern string) (*Reader, error) {
	if err := validatePattern(filePattern); err != nil {
		return nil, err
	}
	pathRegexp, err := compilePattern(filePattern)
	if err != nil {
		return nil, err
	}

	path0 := formatPattern(filePattern, tile.ID{X: 0, Y: 0, Z: 0})
	path1 := formatPattern(filePattern, tile.ID{X: 1, Y: 1, Z: 1})
	for path0 != path1 {
		path0 = filepath.Dir(path0)
		path1 = filepath.Dir(path1)
	}

	return &Reader{filePattern: filePattern, rootDir: path0, pathRegexp: pathRegexp}, nil
}

// ReadTile returns the tile payload, or an empty slice if the file does not exist.
func (r *Reader) ReadTile(ctx context.Context, tileID tile.ID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !tileID.Valid() {
		return nil, fmt.Errorf("%w: %v", tile.ErrInvalidID, tileID)
	}
	tileData, err := os.ReadFile(formatPattern(r.filePattern, tileID))
	if os.IsNotExist(err) {
		return make([]byte, 0), nil
	}
	if err != nil {
		return nil, err
	}
	return tileData, nil
}

// VisitTiles visits every file under the pattern root that matches the pattern.
// Other files are skipped.
func (r *Reader) VisitTiles(visitor func(tile.ID, []byte) error) error {
	return filepath.WalkDir(r.rootDir, func(filePath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		matches := r.pathRegexp.FindStringSubmatch(filePath)
		if matches == nil {
			return nil
		}
		var coords [3]uint32
		for i, name := range []string{"x", "y", "z"} {
			v, err := strconv.ParseUint(matches[r.pathRegexp.SubexpIndex(name)], 10, 32)
			if err != nil {
				return fmt.Errorf("%w: %v", tile.ErrInvalidID, filePath)
			}
			coords[i] = uint32(v)
		}
		tileID := tile.ID{X: coords[0], Y: coords[1], Z: coords[2]}
		if !tileID.Valid() {
			return nil
		}

		tileData, err := os.ReadFile(filePath)
		if err != nil {
			return err
		}
		return visitor(tileID, tileData)
	})
}
