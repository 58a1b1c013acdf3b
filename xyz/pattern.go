// Package xyz reads and writes tilesets stored as individual files with paths like
// "/z/x/y.ext".
package xyz

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/eak1mov/go-tilekit/tile"
)

var ErrInvalidPattern = errors.New("tilekit: invalid file pattern")

var placeholders = []string{"{x}", "{y}", "{z}"}

func validatePattern(pattern string) error {
	for _, p := range placeholders {
		if !strings.Contains(pattern, p) {
			return fmt.Errorf("%w: placeholder %v not found", ErrInvalidPattern, p)
		}
	}
	return nil
}

func formatPattern(pattern string, tileID tile.ID) string {
	return strings.NewReplacer(
		"{x}", strconv.FormatUint(uint64(tileID.X), 10),
		"{y}", strconv.FormatUint(uint64(tileID.Y), 10),
		"{z}", strconv.FormatUint(uint64(tileID.Z), 10),
	).Replace(pattern)
}

// compilePattern returns a regexp matching paths produced by the pattern, with
// named groups x, y and z. Other characters of the pattern match literally.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	quoted := regexp.QuoteMeta(pattern)
	for _, p := range placeholders {
		name := p[1:2]
		quoted = strings.ReplaceAll(quoted, regexp.QuoteMeta(p), "(?P<"+name+">\\d+)")
	}
	re, err := regexp.Compile("^" + quoted + "$")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}
	return re, nil
}
