// Package mb reads and writes tilesets in MBTiles format.
//
// Note: User must properly initialize the sqlite3 library generic driver
// (e.g. import _ "github.com/mattn/go-sqlite3") before using this package.
package mb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/eak1mov/go-tilekit/tile"
	"github.com/paulmach/orb"
)

// Reader implements tile.Reader and tile.Visitor for MBTiles files.
// It is safe for concurrent use by loader workers.
type Reader struct {
	db   *sql.DB
	stmt *sql.Stmt
}

var (
	_ tile.Reader  = (*Reader)(nil)
	_ tile.Visitor = (*Reader)(nil)
)

// NewReader opens the MBTiles file at filePath read-only.
//
// The returned Reader must be closed after use to release database resources.
func NewReader(filePath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", filePath))
	if err != nil {
		return nil, err
	}

	stmt, err := db.Prepare("SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?")
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Reader{db: db, stmt: stmt}, nil
}

func (r *Reader) Close() error {
	return errors.Join(r.stmt.Close(), r.db.Close())
}

// Metadata holds the well-known keys of the metadata table.
type Metadata struct {
	Name        string
	Format      string
	Compression string
	MinZoom     int
	MaxZoom     int
	Bounds      orb.Bound
	Raw         map[string]string
}

// ReadMetadata reads the metadata table. Unknown keys are kept in Raw.
func (r *Reader) ReadMetadata(ctx context.Context) (Metadata, error) {
	raw := make(map[string]string)

	rows, err := r.db.QueryContext(ctx, "SELECT name, value FROM metadata")
	if err != nil {
		return Metadata{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return Metadata{}, err
		}
		raw[name] = value
	}
	if err := rows.Err(); err != nil {
		return Metadata{}, err
	}

	return parseMetadata(raw)
}

func parseMetadata(raw map[string]string) (Metadata, error) {
	m := Metadata{
		Name:        raw["name"],
		Format:      raw["format"],
		Compression: raw["compression"],
		MaxZoom:     -1,
		Raw:         raw,
	}
	var err error
	if v, ok := raw["minzoom"]; ok {
		if m.MinZoom, err = strconv.Atoi(v); err != nil {
			return m, fmt.Errorf("mb: minzoom: %w", err)
		}
	}
	if v, ok := raw["maxzoom"]; ok {
		if m.MaxZoom, err = strconv.Atoi(v); err != nil {
			return m, fmt.Errorf("mb: maxzoom: %w", err)
		}
	}
	if v, ok := raw["bounds"]; ok {
		if m.Bounds, err = parseBounds(v); err != nil {
			return m, err
		}
	}
	return m, nil
}

// parseBounds parses "minLon,minLat,maxLon,maxLat".
func parseBounds(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("mb: invalid bounds %q", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("mb: invalid bounds %q: %w", s, err)
		}
		v[i] = f
	}
	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, nil
}

func formatBounds(b orb.Bound) string {
	return fmt.Sprintf("%g,%g,%g,%g", b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat())
}

// ReadTile returns the tile payload, or an empty slice if the tile does not exist.
func (r *Reader) ReadTile(ctx context.Context, tileID tile.ID) ([]byte, error) {
	if !tileID.Valid() {
		return nil, fmt.Errorf("%w: %v", tile.ErrInvalidID, tileID)
	}
	x, y, z := tileID.X, tileID.Y, tileID.Z
	y = (1 << z) - 1 - y // XYZ -> TMS

	var tileData []byte
	if err := r.stmt.QueryRowContext(ctx, z, x, y).Scan(&tileData); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return make([]byte, 0), nil
		}
		return nil, err
	}

	return tileData, nil
}

func (r *Reader) VisitTiles(visitor func(tile.ID, []byte) error) error {
	rows, err := r.db.Query("SELECT zoom_level, tile_column, tile_row, tile_data FROM tiles")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var x, y, z uint32
		var tileData []byte

		if err := rows.Scan(&z, &x, &y, &tileData); err != nil {
			return err
		}

		y = (1 << z) - 1 - y // TMS -> XYZ

		if err := visitor(tile.ID{X: x, Y: y, Z: z}, tileData); err != nil {
			return err
		}
	}

	return rows.Err()
}
