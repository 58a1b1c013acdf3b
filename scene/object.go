package scene

import "iter"

// Object is a node of the renderable object graph.
type Object struct {
	ID        uint64
	Name      string
	Geometry  *Geometry
	Materials []*Material
	Children  []*Object

	// RenderOrder is the paint order among siblings, lower first.
	RenderOrder int

	// UserData holds per-object attributes, e.g. the technique index the object was
	// built from.
	UserData map[string]any
}

func NewObject(name string, geometry *Geometry, materials ...*Material) *Object {
	return &Object{
		ID:        NextID(),
		Name:      name,
		Geometry:  geometry,
		Materials: materials,
	}
}

func (o *Object) Add(children ...*Object) {
	o.Children = append(o.Children, children...)
}

// Traverse calls fn for o and all of its descendants, depth-first, parents first.
func (o *Object) Traverse(fn func(*Object)) {
	for obj := range o.All() {
		fn(obj)
	}
}

// All returns a depth-first iterator over o and its descendants.
func (o *Object) All() iter.Seq[*Object] {
	return func(yield func(*Object) bool) {
		o.walk(yield)
	}
}

func (o *Object) walk(yield func(*Object) bool) bool {
	if !yield(o) {
		return false
	}
	for _, child := range o.Children {
		if child != nil && !child.walk(yield) {
			return false
		}
	}
	return true
}
