// Package scene defines the renderable object graph handed to the graphics backend.
//
// Objects, geometries, materials and textures carry identity keys (see NextID) so
// that resource estimation can count shared instances once. Disposable resources
// expose OnDispose hooks: the rendering backend registers them to release the GPU
// side of a resource, and Dispose runs them at most once.
package scene

import "sync/atomic"

var idSeq uint64

// NextID returns a process-wide unique identity key.
func NextID() uint64 {
	return atomic.AddUint64(&idSeq, 1)
}

// disposer implements idempotent disposal with hooks.
type disposer struct {
	disposed bool
	hooks    []func()
}

func (d *disposer) OnDispose(hook func()) {
	d.hooks = append(d.hooks, hook)
}

func (d *disposer) Disposed() bool {
	return d.disposed
}

func (d *disposer) dispose() {
	if d.disposed {
		return
	}
	d.disposed = true
	hooks := d.hooks
	d.hooks = nil
	for _, hook := range hooks {
		hook()
	}
}

// Disposable is a resource with an explicit, idempotent release.
type Disposable interface {
	Dispose()
	Disposed() bool
}
