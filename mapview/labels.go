package mapview

import (
	"slices"

	"github.com/eak1mov/go-tilekit/priority"
	"github.com/paulmach/orb"
	"github.com/rivo/uniseg"
)

// TextElement is a label attached to a tile.
//
// The priority may be changed with SetPriority, but only while the element is not
// part of a tile: the tile looks labels up by their current priority.
type TextElement struct {
	Text     string
	Position orb.Point

	priority float64
	glyphs   int
}

func NewTextElement(text string, priority float64, position orb.Point) *TextElement {
	return &TextElement{
		Text:     text,
		Position: position,
		priority: priority,
		glyphs:   uniseg.GraphemeClusterCount(text),
	}
}

func (e *TextElement) Priority() float64         { return e.priority }
func (e *TextElement) SetPriority(value float64) { e.priority = value }

// NumGlyphs returns the number of user-perceived characters of the label.
func (e *TextElement) NumGlyphs() int { return e.glyphs }

// PathBlockingElement is a line that labels must not overlap.
type PathBlockingElement struct {
	Points []orb.Point
}

// TextElementGroups returns the data-driven labels grouped by priority. Callers must not
// modify the list directly.
func (t *Tile) TextElementGroups() *priority.GroupList[*TextElement] { return t.textElements }

// PlacedTextElements returns the labels that were rendered in the last placement pass.
func (t *Tile) PlacedTextElements() *priority.GroupList[*TextElement] {
	return t.placedTextElements
}

func (t *Tile) UserTextElements() []*TextElement { return t.userTextElements }

// AddTextElement adds a data-driven label.
func (t *Tile) AddTextElement(e *TextElement) {
	if t.disposed {
		return
	}
	t.textElements.Add(e)
	t.labelsChanged()
}

// RemoveTextElement removes a data-driven label. It returns false if the label was
// not found, e.g. because its priority changed after it was added.
func (t *Tile) RemoveTextElement(e *TextElement) bool {
	if !t.textElements.Remove(e) {
		return false
	}
	t.placedTextElements.Remove(e)
	t.labelsChanged()
	return true
}

// AddUserTextElement adds a label created by the application.
func (t *Tile) AddUserTextElement(e *TextElement) {
	if t.disposed {
		return
	}
	t.userTextElements = append(t.userTextElements, e)
	t.labelsChanged()
}

func (t *Tile) RemoveUserTextElement(e *TextElement) bool {
	i := slices.Index(t.userTextElements, e)
	if i < 0 {
		return false
	}
	t.userTextElements = slices.Delete(t.userTextElements, i, i+1)
	t.placedTextElements.Remove(e)
	t.labelsChanged()
	return true
}

// PlaceTextElement marks a label as rendered.
func (t *Tile) PlaceTextElement(e *TextElement) {
	if t.disposed || t.placedTextElements.Contains(e) {
		return
	}
	t.placedTextElements.Add(e)
	t.labelsChanged()
}

// ClearPlacedTextElements forgets the previous placement pass.
func (t *Tile) ClearPlacedTextElements() {
	if t.placedTextElements.Count() == 0 {
		return
	}
	t.placedTextElements.Clear()
	t.labelsChanged()
}

// ClearTextElements removes all labels of the tile.
func (t *Tile) ClearTextElements() {
	if !t.HasTextElements() && t.placedTextElements.Count() == 0 {
		return
	}
	t.textElements.Clear()
	t.placedTextElements.Clear()
	t.userTextElements = nil
	t.labelsChanged()
}

func (t *Tile) HasTextElements() bool {
	return t.textElements.Count() > 0 || len(t.userTextElements) > 0
}

// TextElementsChanged reports whether labels changed since the flag was last reset.
func (t *Tile) TextElementsChanged() bool { return t.textElementsChanged }

func (t *Tile) SetTextElementsChanged(changed bool) { t.textElementsChanged = changed }

func (t *Tile) labelsChanged() {
	t.textElementsChanged = true
	t.InvalidateResourceInfo()
}

func (t *Tile) PathBlockingElements() []PathBlockingElement { return t.pathBlockingElements }

func (t *Tile) AddPathBlockingElement(e PathBlockingElement) {
	if t.disposed {
		return
	}
	t.pathBlockingElements = append(t.pathBlockingElements, e)
}

// SetExtrusionAnimation sets the extrusion animation handler, disposed with the tile
// content.
func (t *Tile) SetExtrusionAnimation(a ExtrusionAnimation) {
	if t.disposed {
		return
	}
	t.extrusionAnimation = a
}

func (t *Tile) ExtrusionAnimation() ExtrusionAnimation { return t.extrusionAnimation }
