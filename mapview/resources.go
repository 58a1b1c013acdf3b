package mapview

import (
	"github.com/eak1mov/go-tilekit/resource"
)

// ResourceInfo is the estimated resource usage of a tile.
type ResourceInfo struct {
	HeapSize            int64
	GPUSize             int64
	Num3dObjects        int
	NumTextElements     int
	NumUserTextElements int
}

// resourceLedger caches the ResourceInfo until content changes.
type resourceLedger struct {
	info  ResourceInfo
	valid bool
}

// ResourceInfo returns the resource usage of the tile, recomputing it if content
// changed since the last call. A disposed tile uses no resources.
func (t *Tile) ResourceInfo() ResourceInfo {
	if t.disposed {
		return ResourceInfo{}
	}
	if !t.ledger.valid {
		t.ledger.info = t.computeResourceInfo()
		t.ledger.valid = true
	}
	return t.ledger.info
}

// InvalidateResourceInfo must be called after objects of the tile were modified
// outside of the Tile methods.
func (t *Tile) InvalidateResourceInfo() {
	t.ledger.valid = false
}

// MemoryUsage returns the estimated heap size of the tile.
func (t *Tile) MemoryUsage() int64 {
	return t.ResourceInfo().HeapSize
}

func (t *Tile) computeResourceInfo() ResourceInfo {
	info := ResourceInfo{
		Num3dObjects:        len(t.objects),
		NumTextElements:     t.textElements.Count(),
		NumUserTextElements: len(t.userTextElements),
	}

	visited := make(resource.Visited)
	var size resource.Size
	for _, obj := range t.objects {
		size = size.Add(resource.ObjectSize(obj, visited))
	}
	info.HeapSize = size.Heap
	info.GPUSize = size.GPU

	numLabels := int64(info.NumTextElements + info.NumUserTextElements)
	info.HeapSize += numLabels * resource.TextElementHeapSize
	for e := range t.placedTextElements.All() {
		info.HeapSize += resource.RenderedTextElementSize(e.NumGlyphs()) - resource.TextElementHeapSize
	}

	if t.decodedTile != nil {
		info.HeapSize += resource.TileInfoSize(t.decodedTile.TileInfo)
	}
	info.HeapSize += resource.RoadIntersectionDataSize(t.roadData)
	return info
}
