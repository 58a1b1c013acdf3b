// Package loader implements the asynchronous fetch and decode pipeline feeding tiles.
//
// A Loader is a settles-once handle: it is driven by its own goroutines and observed,
// without blocking, from the frame thread that owns the tile.
package loader

import (
	"context"
	"errors"

	"github.com/eak1mov/go-tilekit/decoded"
)

var (
	ErrCanceled        = errors.New("tilekit: loading canceled")
	ErrNoReader        = errors.New("tilekit: no tile reader")
	ErrSchedulerClosed = errors.New("tilekit: scheduler closed")
)

// State of a Loader. The regular path is Initialized → Loading → Loaded →
// Decoding → Ready; Canceled and Failed can be reached from any non-terminal state.
type State uint8

const (
	Initialized State = iota
	Loading
	Loaded
	Decoding
	Ready
	Canceled
	Failed
)

func (s State) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Decoding:
		return "decoding"
	case Ready:
		return "ready"
	case Canceled:
		return "canceled"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether no further transitions can happen from s.
func (s State) Terminal() bool {
	return s == Ready || s == Canceled || s == Failed
}

// Loader is the handle a tile holds on its content pipeline.
type Loader interface {
	// Start begins loading. Calls after the first one are no-ops.
	Start(ctx context.Context)

	State() State

	// Payload returns the raw tile data once loaded.
	Payload() []byte

	// DecodedTile returns the decode result in the Ready state. It is nil for
	// empty tiles and in all other states.
	DecodedTile() *decoded.DecodedTile

	// Err returns the failure reason in the Failed or Canceled state.
	Err() error

	Priority() float64

	// SetPriority updates the priority hint; pending work with a higher priority runs first.
	SetPriority(priority float64)

	// Cancel requests cancellation. It is idempotent and a no-op in terminal states.
	// In-flight work may continue, but its result is discarded.
	Cancel()

	// Done is closed when the loader reaches a terminal state.
	Done() <-chan struct{}
}

// Finished reports whether l reached a terminal state.
func Finished(l Loader) bool {
	return l.State().Terminal()
}
