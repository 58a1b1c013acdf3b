package loader_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/eak1mov/go-tilekit/decoded"
	"github.com/eak1mov/go-tilekit/loader"
	"github.com/eak1mov/go-tilekit/tile"
	"github.com/stretchr/testify/require"
)

func wait(t *testing.T, l loader.Loader) {
	t.Helper()
	select {
	case <-l.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("loader did not settle, state = %v", l.State())
	}
}

func staticReader(payload []byte) tile.Reader {
	return tile.ReaderFunc(func(context.Context, tile.ID) ([]byte, error) {
		return payload, nil
	})
}

var countingDecoder = loader.DecoderFunc(func(_ context.Context, _ tile.ID, payload []byte) (*decoded.DecodedTile, error) {
	return &decoded.DecodedTile{Geometries: make([]decoded.Geometry, len(payload))}, nil
})

func TestStateTerminal(t *testing.T) {
	for _, s := range []loader.State{loader.Initialized, loader.Loading, loader.Loaded, loader.Decoding} {
		require.False(t, s.Terminal(), s.String())
	}
	for _, s := range []loader.State{loader.Ready, loader.Canceled, loader.Failed} {
		require.True(t, s.Terminal(), s.String())
	}
}

func TestPipelineReady(t *testing.T) {
	p := loader.NewPipeline(tile.ID{}, staticReader([]byte("abc")), loader.WithDecoder(countingDecoder))
	require.Equal(t, loader.Initialized, p.State())
	require.Nil(t, p.DecodedTile())

	p.Start(context.Background())
	wait(t, p)

	require.Equal(t, loader.Ready, p.State())
	require.NoError(t, p.Err())
	require.Equal(t, []byte("abc"), p.Payload())
	require.Len(t, p.DecodedTile().Geometries, 3)
	require.True(t, loader.Finished(p))

	p.Cancel()
	require.Equal(t, loader.Ready, p.State(), "Cancel in terminal state changed it")
}

func TestPipelineGzipPayload(t *testing.T) {
	compressed, err := loader.Compress([]byte("abcd"), loader.CompressionGzip)
	require.NoError(t, err)

	p := loader.NewPipeline(tile.ID{}, staticReader(compressed), loader.WithDecoder(countingDecoder))
	p.Start(context.Background())
	wait(t, p)
	require.Len(t, p.DecodedTile().Geometries, 4)
	require.Positive(t, p.DecodedTile().DecodeTime)
}

func TestPipelineEmptyTile(t *testing.T) {
	p := loader.NewPipeline(tile.ID{}, staticReader(nil), loader.WithDecoder(countingDecoder))
	p.Start(context.Background())
	wait(t, p)
	require.Equal(t, loader.Ready, p.State())
	require.Nil(t, p.DecodedTile())
}

func TestPipelineFailed(t *testing.T) {
	errRead := errors.New("boom")
	reader := tile.ReaderFunc(func(context.Context, tile.ID) ([]byte, error) { return nil, errRead })
	p := loader.NewPipeline(tile.ID{}, reader)
	p.Start(context.Background())
	wait(t, p)
	require.Equal(t, loader.Failed, p.State())
	require.ErrorIs(t, p.Err(), errRead)
	require.Nil(t, p.DecodedTile())

	noReader := loader.NewPipeline(tile.ID{}, nil)
	noReader.Start(context.Background())
	require.Equal(t, loader.Failed, noReader.State())
	require.ErrorIs(t, noReader.Err(), loader.ErrNoReader)
}

func TestPipelineCancelDiscardsResult(t *testing.T) {
	release := make(chan struct{})
	reader := tile.ReaderFunc(func(context.Context, tile.ID) ([]byte, error) {
		<-release
		return []byte("late"), nil
	})
	p := loader.NewPipeline(tile.ID{}, reader, loader.WithDecoder(countingDecoder))
	p.Start(context.Background())
	p.Cancel()
	p.Cancel()
	close(release)
	wait(t, p)

	require.Equal(t, loader.Canceled, p.State())
	require.ErrorIs(t, p.Err(), loader.ErrCanceled)
	require.Nil(t, p.DecodedTile())

	// give the reader goroutine a chance to deliver its late result
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, loader.Canceled, p.State())
	require.Nil(t, p.Payload())
}

func TestCancelBeforeStart(t *testing.T) {
	p := loader.NewPipeline(tile.ID{}, staticReader([]byte("x")))
	p.Cancel()
	p.Start(context.Background())
	require.Equal(t, loader.Canceled, p.State())
}

func TestSchedulerPriorityOrder(t *testing.T) {
	s := loader.NewScheduler(loader.WithWorkers(1))
	defer s.Close()

	var mu sync.Mutex
	var order []uint32
	release := make(chan struct{})
	reader := tile.ReaderFunc(func(_ context.Context, id tile.ID) ([]byte, error) {
		if id.X == 0 {
			<-release
		}
		mu.Lock()
		order = append(order, id.X)
		mu.Unlock()
		return nil, nil
	})

	blocker := loader.NewPipeline(tile.ID{X: 0, Y: 0, Z: 3}, reader, loader.WithScheduler(s))
	blocker.Start(context.Background())
	require.Eventually(t, func() bool { return s.Pending() == 0 }, time.Second, time.Millisecond)

	var pipelines []*loader.Pipeline
	for x, priority := range []float64{1, 5, 3} {
		p := loader.NewPipeline(tile.ID{X: uint32(x + 1), Z: 3}, reader, loader.WithScheduler(s))
		p.SetPriority(priority)
		p.Start(context.Background())
		pipelines = append(pipelines, p)
	}
	require.Equal(t, 3, s.Pending())

	// bump the lowest one to the front, cancel the middle one
	pipelines[0].SetPriority(10)
	pipelines[2].Cancel()
	require.Equal(t, 2, s.Pending())

	close(release)
	for _, p := range pipelines {
		wait(t, p)
	}
	wait(t, blocker)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []uint32{0, 1, 2}, order)
}

func TestSchedulerClose(t *testing.T) {
	s := loader.NewScheduler(loader.WithWorkers(1))
	release := make(chan struct{})
	reader := tile.ReaderFunc(func(context.Context, tile.ID) ([]byte, error) {
		<-release
		return nil, nil
	})
	running := loader.NewPipeline(tile.ID{}, reader, loader.WithScheduler(s))
	running.Start(context.Background())
	require.Eventually(t, func() bool { return s.Pending() == 0 }, time.Second, time.Millisecond)

	queued := loader.NewPipeline(tile.ID{Z: 1}, reader, loader.WithScheduler(s))
	queued.Start(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()
	s.Close()

	wait(t, queued)
	require.ErrorIs(t, queued.Err(), loader.ErrSchedulerClosed)
	wait(t, running)
	require.Equal(t, loader.Ready, running.State())

	late := loader.NewPipeline(tile.ID{Z: 2}, reader, loader.WithScheduler(s))
	late.Start(context.Background())
	require.ErrorIs(t, late.Err(), loader.ErrSchedulerClosed)
}

func TestDecompress(t *testing.T) {
	data := []byte("foobar")
	compressed, err := loader.Compress(data, loader.CompressionGzip)
	require.NoError(t, err)

	for _, c := range []loader.Compression{loader.CompressionGzip, loader.CompressionAuto} {
		got, err := loader.Decompress(compressed, c)
		require.NoError(t, err)
		require.Equal(t, data, got)
	}
	got, err := loader.Decompress(data, loader.CompressionAuto)
	require.NoError(t, err)
	require.Equal(t, data, got)

	_, err = loader.Decompress(data, loader.CompressionGzip)
	require.Error(t, err)
	_, err = loader.Compress(data, loader.Compression(42))
	require.ErrorIs(t, err, loader.ErrUnsupportedCompression)
}
