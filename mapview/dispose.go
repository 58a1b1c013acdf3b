package mapview

import (
	"fmt"

	"github.com/eak1mov/go-tilekit/scene"
)

// DisposalPolicy decides which resources of an object the tile releases on Clear.
// Resources shared with other tiles, e.g. cached materials, must not be disposed.
type DisposalPolicy interface {
	ShouldDisposeGeometry(obj *scene.Object) bool
	ShouldDisposeMaterial(obj *scene.Object) bool
}

// DefaultDisposalPolicy disposes everything.
type DefaultDisposalPolicy struct{}

func (DefaultDisposalPolicy) ShouldDisposeGeometry(*scene.Object) bool { return true }
func (DefaultDisposalPolicy) ShouldDisposeMaterial(*scene.Object) bool { return true }

// DisposalPolicyFuncs builds a DisposalPolicy from functions. A nil function
// means "dispose".
type DisposalPolicyFuncs struct {
	Geometry func(*scene.Object) bool
	Material func(*scene.Object) bool
}

func (p DisposalPolicyFuncs) ShouldDisposeGeometry(obj *scene.Object) bool {
	return p.Geometry == nil || p.Geometry(obj)
}

func (p DisposalPolicyFuncs) ShouldDisposeMaterial(obj *scene.Object) bool {
	return p.Material == nil || p.Material(obj)
}

// Clear releases the content of the tile: objects with their geometries, materials
// and owned textures, labels, path blocking elements and the extrusion animation.
// Decoded content and the loader are kept, so the tile can be rebuilt.
func (t *Tile) Clear() {
	for _, obj := range t.objects {
		for o := range obj.All() {
			t.disposeObject(o)
		}
	}
	t.objects = nil
	clear(t.ownedTextures)
	t.pathBlockingElements = nil
	if t.extrusionAnimation != nil {
		t.safeDispose(t.extrusionAnimation.Dispose)
		t.extrusionAnimation = nil
	}
	t.ClearTextElements()
	t.InvalidateResourceInfo()
}

func (t *Tile) disposeObject(obj *scene.Object) {
	if obj.Geometry != nil && t.policy.ShouldDisposeGeometry(obj) {
		t.safeDispose(obj.Geometry.Dispose)
	}
	if !t.policy.ShouldDisposeMaterial(obj) {
		return
	}
	for _, m := range obj.Materials {
		if m == nil {
			continue
		}
		for _, tex := range m.Textures() {
			if t.OwnsTexture(tex) {
				t.safeDispose(tex.Dispose)
			}
		}
		t.safeDispose(m.Dispose)
	}
}

// Dispose cancels loading and releases all content. The tile is unusable
// afterwards. Dispose is idempotent.
func (t *Tile) Dispose() {
	if t.disposed {
		return
	}
	if t.loader != nil {
		t.loader.Cancel()
		t.loaderState = t.loader.State()
		t.loader = nil
	}
	if t.geometryLoader != nil {
		t.safeDispose(t.geometryLoader.Dispose)
		t.geometryLoader = nil
	}
	t.Clear()
	t.decodedTile = nil
	t.roadData = nil
	t.disposed = true
	t.FrameNumLastRequested = 0
	t.logger.Debug("tilekit: tile disposed", "tile", t.key, "dataSource", t.dataSource.Name())
}

// safeDispose runs a disposal hook, logging instead of propagating a panic so that
// the remaining resources are still released.
func (t *Tile) safeDispose(dispose func()) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Warn("tilekit: dispose failed", "tile", t.key, "err", fmt.Errorf("%v", r))
		}
	}()
	dispose()
}
