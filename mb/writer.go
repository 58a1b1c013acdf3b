package mb

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/eak1mov/go-tilekit/tile"
)

// Writer implements tile.Writer for MBTiles files.
type Writer struct {
	db     *sql.DB
	stmt   *sql.Stmt
	logger *slog.Logger
	zooms  [2]uint32 // min, max written zoom
	count  int
}

var _ tile.Writer = (*Writer)(nil)

type writerConfig struct {
	Metadata Metadata
	Logger   *slog.Logger
}

type WriterOption func(*writerConfig)

// WithMetadata sets the metadata written to the file. Zero zoom range is filled in
// from written tiles on Finalize.
func WithMetadata(metadata Metadata) WriterOption {
	return func(c *writerConfig) { c.Metadata = metadata }
}

func WithLogger(logger *slog.Logger) WriterOption {
	return func(c *writerConfig) { c.Logger = logger }
}

// NewWriter creates a new MBTiles file at filePath.
func NewWriter(filePath string, opts ...WriterOption) (*Writer, error) {
	config := writerConfig{
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}

	var err error
	db, err := sql.Open("sqlite3", filePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	_, err = db.Exec(`
		CREATE TABLE metadata (name TEXT, value TEXT);
		CREATE TABLE tiles (
			zoom_level INTEGER,
			tile_column INTEGER,
			tile_row INTEGER,
			tile_data BLOB
		);
	`)
	if err != nil {
		return nil, err
	}

	for k, v := range metadataRows(config.Metadata) {
		_, err = db.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", k, v)
		if err != nil {
			return nil, err
		}
	}

	stmt, err := db.Prepare("INSERT INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)")
	if err != nil {
		return nil, err
	}

	return &Writer{db: db, stmt: stmt, logger: config.Logger}, nil
}

func metadataRows(m Metadata) map[string]string {
	rows := make(map[string]string, len(m.Raw)+6)
	for k, v := range m.Raw {
		rows[k] = v
	}
	set := func(k, v string) {
		if v != "" {
			rows[k] = v
		}
	}
	set("name", m.Name)
	set("format", m.Format)
	set("compression", m.Compression)
	if !m.Bounds.IsZero() {
		set("bounds", formatBounds(m.Bounds))
	}
	if m.MaxZoom > 0 {
		set("minzoom", strconv.Itoa(m.MinZoom))
		set("maxzoom", strconv.Itoa(m.MaxZoom))
	}
	return rows
}

func (w *Writer) Close() error {
	return errors.Join(w.stmt.Close(), w.db.Close())
}

func (w *Writer) WriteTile(tileID tile.ID, tileData []byte) error {
	if !tileID.Valid() {
		return fmt.Errorf("%w: %v", tile.ErrInvalidID, tileID)
	}
	x, y, z := tileID.X, tileID.Y, tileID.Z
	y = (1 << z) - 1 - y // XYZ -> TMS

	if _, err := w.stmt.Exec(z, x, y, tileData); err != nil {
		return err
	}
	if w.count == 0 || z < w.zooms[0] {
		w.zooms[0] = z
	}
	w.zooms[1] = max(w.zooms[1], z)
	w.count++
	return nil
}

// Finalize creates the tile index and records the written zoom range unless it
// was given in the metadata.
func (w *Writer) Finalize() error {
	w.logger.Debug("tilekit: creating index", "tiles", w.count)
	if _, err := w.db.Exec("CREATE UNIQUE INDEX tile_index ON tiles (zoom_level, tile_column, tile_row)"); err != nil {
		return err
	}

	if w.count > 0 {
		for k, v := range map[string]uint32{"minzoom": w.zooms[0], "maxzoom": w.zooms[1]} {
			_, err := w.db.Exec(`INSERT INTO metadata (name, value)
				SELECT ?, ? WHERE NOT EXISTS (SELECT 1 FROM metadata WHERE name = ?)`, k, strconv.Itoa(int(v)), k)
			if err != nil {
				return err
			}
		}
	}

	w.logger.Debug("tilekit: done!")
	return nil
}
