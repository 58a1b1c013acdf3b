package loader

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eak1mov/go-tilekit/decoded"
	"github.com/eak1mov/go-tilekit/tile"
)

// Decoder turns a raw payload into decoded content.
type Decoder interface {
	Decode(ctx context.Context, tileID tile.ID, payload []byte) (*decoded.DecodedTile, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(ctx context.Context, tileID tile.ID, payload []byte) (*decoded.DecodedTile, error)

func (f DecoderFunc) Decode(ctx context.Context, tileID tile.ID, payload []byte) (*decoded.DecodedTile, error) {
	return f(ctx, tileID, payload)
}

// Pipeline is a Loader that fetches a tile from a tile.Reader and decodes it.
// It is safe for concurrent use.
type Pipeline struct {
	tileID      tile.ID
	reader      tile.Reader
	decoder     Decoder
	compression Compression
	scheduler   *Scheduler
	logger      *slog.Logger

	mu       sync.Mutex
	state    State
	payload  []byte
	decoded  *decoded.DecodedTile
	err      error
	priority float64
	task     *task
	cancel   context.CancelFunc
	done     chan struct{}
}

var _ Loader = (*Pipeline)(nil)

type pipelineConfig struct {
	Decoder     Decoder
	Compression Compression
	Scheduler   *Scheduler
	Logger      *slog.Logger
}

type PipelineOption func(*pipelineConfig)

// WithDecoder sets the payload decoder. Without a decoder the pipeline reports
// Ready right after loading, with no decoded content.
func WithDecoder(decoder Decoder) PipelineOption {
	return func(c *pipelineConfig) { c.Decoder = decoder }
}

// WithCompression sets how payloads are decompressed before decoding.
// The default is CompressionAuto.
func WithCompression(compression Compression) PipelineOption {
	return func(c *pipelineConfig) { c.Compression = compression }
}

// WithScheduler runs the pipeline on s instead of a dedicated goroutine.
func WithScheduler(s *Scheduler) PipelineOption {
	return func(c *pipelineConfig) { c.Scheduler = s }
}

func WithLogger(logger *slog.Logger) PipelineOption {
	return func(c *pipelineConfig) { c.Logger = logger }
}

func NewPipeline(tileID tile.ID, reader tile.Reader, opts ...PipelineOption) *Pipeline {
	config := pipelineConfig{
		Compression: CompressionAuto,
		Logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Pipeline{
		tileID:      tileID,
		reader:      reader,
		decoder:     config.Decoder,
		compression: config.Compression,
		scheduler:   config.Scheduler,
		logger:      config.Logger,
		state:       Initialized,
		done:        make(chan struct{}),
	}
}

func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Initialized {
		return
	}
	if p.reader == nil {
		p.settleLocked(Failed, ErrNoReader)
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.setStateLocked(Loading)
	p.task = &task{
		priority: p.priority,
		index:    -1,
		run:      func() { p.run(ctx) },
		drop:     func() { p.fail(ErrSchedulerClosed) },
	}
	if p.scheduler == nil {
		go p.task.run()
		return
	}
	if err := p.scheduler.submit(p.task); err != nil {
		p.settleLocked(Failed, err)
	}
}

func (p *Pipeline) run(ctx context.Context) {
	if !p.isState(Loading) {
		return
	}
	payload, err := p.reader.ReadTile(ctx, p.tileID)
	if err != nil {
		p.fail(fmt.Errorf("read tile %v: %w", p.tileID, err))
		return
	}
	if !p.advance(Loading, Loaded, func() { p.payload = payload }) {
		return
	}
	if len(payload) == 0 || p.decoder == nil {
		p.complete(nil)
		return
	}
	if !p.advance(Loaded, Decoding, nil) {
		return
	}

	start := time.Now()
	data, err := Decompress(payload, p.compression)
	if err != nil {
		p.fail(fmt.Errorf("decompress tile %v: %w", p.tileID, err))
		return
	}
	decodedTile, err := p.decoder.Decode(ctx, p.tileID, data)
	if err != nil {
		p.fail(fmt.Errorf("decode tile %v: %w", p.tileID, err))
		return
	}
	if decodedTile != nil && decodedTile.DecodeTime == 0 {
		decodedTile.DecodeTime = time.Since(start)
	}
	p.complete(decodedTile)
}

func (p *Pipeline) isState(state State) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == state
}

// advance moves from one state to the next, applying update under the lock.
// It returns false if the pipeline left the from state in the meantime (canceled).
func (p *Pipeline) advance(from, to State, update func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != from {
		return false
	}
	if update != nil {
		update()
	}
	p.setStateLocked(to)
	return true
}

func (p *Pipeline) complete(decodedTile *decoded.DecodedTile) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Terminal() {
		return
	}
	p.decoded = decodedTile
	p.settleLocked(Ready, nil)
}

func (p *Pipeline) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Terminal() {
		return
	}
	p.logger.Warn("tilekit: tile loading failed", "tile", p.tileID, "err", err)
	p.settleLocked(Failed, err)
}

func (p *Pipeline) setStateLocked(state State) {
	p.logger.Debug("tilekit: loader state", "tile", p.tileID, "from", p.state, "to", state)
	p.state = state
}

func (p *Pipeline) settleLocked(state State, err error) {
	p.setStateLocked(state)
	p.err = err
	if p.cancel != nil {
		p.cancel()
	}
	close(p.done)
}

func (p *Pipeline) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Terminal() {
		return
	}
	if p.task != nil && p.scheduler != nil {
		p.scheduler.remove(p.task)
	}
	p.payload = nil
	p.settleLocked(Canceled, ErrCanceled)
}

func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) Payload() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.payload
}

func (p *Pipeline) DecodedTile() *decoded.DecodedTile {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Ready {
		return nil
	}
	return p.decoded
}

func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Pipeline) Priority() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.priority
}

func (p *Pipeline) SetPriority(priority float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.priority = priority
	if p.task != nil && p.scheduler != nil && !p.state.Terminal() {
		p.scheduler.reprioritize(p.task, priority)
	}
}

func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}
