package vm

// ---------------------------------------------------------------------------
// Shape: hidden class shared by objects with the same named-property layout
// ---------------------------------------------------------------------------

// Shape describes an ordered list of named properties, their attributes and
// slot numbers. Shapes are immutable once published: every structural
// change produces (or reuses) a different shape through a transition edge,
// so objects and inline caches can compare shapes by pointer.
type Shape struct {
	engine *Engine
	id     uint32
	kind   Kind
	parent *Shape
	root   *Shape

	names []Name       // slot -> name
	attrs []Attributes // slot -> attributes
	table *PropertyTable

	transitions map[transitionKey]*Shape
	removals    map[Name]*Shape
	sealed      *Shape
	frozen      *Shape
}

// transitionKey identifies an add or change edge. Change edges are keyed
// separately so "add x as A" and "change x to A" never collide.
type transitionKey struct {
	name   Name
	attrs  Attributes
	change bool
}

func newRootShape(e *Engine, kind Kind) *Shape {
	s := e.allocShape(nil)
	s.kind = kind
	s.root = s
	s.table = newPropertyTable(0)
	s.table.tip = s
	return s
}

// ID returns the shape's engine-unique identifier.
func (s *Shape) ID() uint32 { return s.id }

// Parent returns the shape this one was derived from, or nil for a root.
func (s *Shape) Parent() *Shape { return s.parent }

// Kind returns the object kind whose root this shape descends from.
func (s *Shape) Kind() Kind { return s.kind }

// Size returns the number of named slots.
func (s *Shape) Size() int { return len(s.names) }

// Find returns the slot holding name, or NotFound.
func (s *Shape) Find(name Name) int {
	if len(s.names) == 0 {
		return NotFound
	}
	return s.table.Find(name, len(s.names))
}

// NameAt returns the name stored at slot.
func (s *Shape) NameAt(slot int) Name { return s.names[slot] }

// AttrsAt returns the attributes of slot.
func (s *Shape) AttrsAt(slot int) Attributes { return s.attrs[slot] }

// Names returns a copy of the names in slot order.
func (s *Shape) Names() []Name {
	out := make([]Name, len(s.names))
	copy(out, s.names)
	return out
}

// Attributes returns a copy of the attributes in slot order.
func (s *Shape) Attributes() []Attributes {
	out := make([]Attributes, len(s.attrs))
	copy(out, s.attrs)
	return out
}

// Table returns the property table backing Find. The table may be shared
// with other shapes of the same lineage.
func (s *Shape) Table() *PropertyTable { return s.table }

// TransitionCount returns the number of cached outgoing edges.
func (s *Shape) TransitionCount() int {
	n := len(s.transitions) + len(s.removals)
	if s.sealed != nil && s.sealed != s {
		n++
	}
	if s.frozen != nil && s.frozen != s {
		n++
	}
	return n
}

// ---------------------------------------------------------------------------
// Transitions
// ---------------------------------------------------------------------------

// AddProperty returns the shape reached by appending name with attrs. If
// name already has a slot it behaves as ChangeProperty.
func (s *Shape) AddProperty(name Name, attrs Attributes) *Shape {
	attrs = attrs.normalize()
	if s.Find(name) != NotFound {
		return s.ChangeProperty(name, attrs)
	}
	key := transitionKey{name: name, attrs: attrs}
	if next, ok := s.transitions[key]; ok {
		return next
	}

	next := s.engine.allocShape(s)
	size := len(s.names)
	if s.table.tip == s {
		// Single writer along this lineage: append in place. s gives up
		// the right to append even if next moves to a larger table.
		s.table.tip = next
		next.names = append(s.names, name)
		next.attrs = append(s.attrs, attrs)
		if s.table.hasRoomFor(1) {
			next.table = s.table
		} else {
			next.table = s.table.rebuild(size, size+1)
		}
	} else {
		next.names = make([]Name, size, size+1)
		copy(next.names, s.names)
		next.names = append(next.names, name)
		next.attrs = make([]Attributes, size, size+1)
		copy(next.attrs, s.attrs)
		next.attrs = append(next.attrs, attrs)
		next.table = s.table.rebuild(size, 1)
	}
	next.table.insert(name, size)
	next.table.tip = next

	s.link(key, next)
	log.Debugf("shape %d: add %q %s -> shape %d", s.id, s.engine.names.String(name), attrs, next.id)
	return next
}

// ChangeProperty returns the shape in which name carries attrs instead of
// its current attributes. Slot numbers are unchanged.
func (s *Shape) ChangeProperty(name Name, attrs Attributes) *Shape {
	attrs = attrs.normalize()
	slot := s.Find(name)
	if slot == NotFound {
		return s.AddProperty(name, attrs)
	}
	if s.attrs[slot] == attrs {
		return s
	}
	key := transitionKey{name: name, attrs: attrs, change: true}
	if next, ok := s.transitions[key]; ok {
		return next
	}

	next := s.engine.allocShape(s)
	next.names = s.names[:len(s.names):len(s.names)]
	next.attrs = make([]Attributes, len(s.attrs))
	copy(next.attrs, s.attrs)
	next.attrs[slot] = attrs
	next.table = s.table

	s.link(key, next)
	log.Debugf("shape %d: change %q %s -> shape %d", s.id, s.engine.names.String(name), attrs, next.id)
	return next
}

// RemoveProperty returns the shape without name. The first removal of a
// given name from a given shape replays every surviving property onto the
// root shape; later requests reuse the cached edge. Surviving properties
// keep their relative order, so slots after the removed one shift down by
// one.
func (s *Shape) RemoveProperty(name Name) *Shape {
	slot := s.Find(name)
	if slot == NotFound {
		return s
	}
	if next, ok := s.removals[name]; ok {
		return next
	}

	next := s.root
	for i, n := range s.names {
		if i == slot {
			continue
		}
		next = next.AddProperty(n, s.attrs[i])
	}
	if s.removals == nil {
		s.removals = make(map[Name]*Shape)
	}
	s.removals[name] = next
	s.engine.stats.RemovalRebuilds++
	log.Debugf("shape %d: remove %q rebuilt %d properties -> shape %d", s.id, s.engine.names.String(name), len(s.names)-1, next.id)
	return next
}

// Sealed returns the shape with every property made non-configurable.
func (s *Shape) Sealed() *Shape {
	if s.sealed == nil {
		s.sealed = s.replay(func(a Attributes) Attributes {
			return a &^ AttrConfigurable
		})
	}
	return s.sealed
}

// Frozen returns the shape with every property made non-configurable and
// every data property made non-writable.
func (s *Shape) Frozen() *Shape {
	if s.frozen == nil {
		s.frozen = s.replay(func(a Attributes) Attributes {
			return a &^ (AttrConfigurable | AttrWritable)
		})
	}
	return s.frozen
}

// IsSealed reports whether no property is configurable.
func (s *Shape) IsSealed() bool {
	for _, a := range s.attrs {
		if a.IsConfigurable() {
			return false
		}
	}
	return true
}

// IsFrozen reports whether the shape is sealed and no data property is
// writable.
func (s *Shape) IsFrozen() bool {
	for _, a := range s.attrs {
		if a.IsConfigurable() || (a.IsData() && a.IsWritable()) {
			return false
		}
	}
	return true
}

func (s *Shape) replay(fn func(Attributes) Attributes) *Shape {
	next := s.root
	for i, n := range s.names {
		next = next.AddProperty(n, fn(s.attrs[i]))
	}
	return next
}

func (s *Shape) link(key transitionKey, next *Shape) {
	if s.transitions == nil {
		s.transitions = make(map[transitionKey]*Shape)
	}
	s.transitions[key] = next
	s.engine.stats.Transitions++
}

// walk visits s and every shape reachable through cached edges once.
func (s *Shape) walk(seen map[*Shape]bool, fn func(*Shape)) {
	if seen[s] {
		return
	}
	seen[s] = true
	fn(s)
	for _, next := range s.transitions {
		next.walk(seen, fn)
	}
	for _, next := range s.removals {
		next.walk(seen, fn)
	}
	if s.sealed != nil {
		s.sealed.walk(seen, fn)
	}
	if s.frozen != nil {
		s.frozen.walk(seen, fn)
	}
}
