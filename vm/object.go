package vm

import (
	"slices"
	"strconv"
)

// Kind selects the concrete behavior of an object in the dispatch layer.
type Kind uint8

const (
	KindObject Kind = iota
	KindArray
	KindString
	KindFunction

	// kindAccessorPair objects hold a getter in slot 0 and a setter in
	// slot 1. They only ever appear in accessor slots.
	kindAccessorPair

	numKinds
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "Object"
	case KindArray:
		return "Array"
	case KindString:
		return "String"
	case KindFunction:
		return "Function"
	case kindAccessorPair:
		return "AccessorPair"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// NativeFunc implements a function object.
type NativeFunc func(e *Engine, this Value, args []Value) Value

// Object is a heap-allocated morph object.
//
// Named properties live in slots numbered by the object's shape. Slots use
// a hybrid layout optimized for common cases:
//   - 4 inline slots for the first four named properties (most objects)
//   - Overflow slice for the rest, grown geometrically
//
// Indexed properties live in separate array storage that is dense by
// default and turns sparse when an index lands far beyond the dense part.
type Object struct {
	id         uint32
	kind       Kind
	extensible bool

	shape *Shape
	proto *Object // delegation only; never owned

	slot0 Value
	slot1 Value
	slot2 Value
	slot3 Value

	overflow []Value

	array *ArrayStorage // nil until the first indexed property

	// Array kind: length is tracked apart from the shape.
	length         uint32
	lengthReadOnly bool

	// External resource: []rune for string wrappers, NativeFunc for functions.
	ext any
}

// NumInlineSlots is the number of slots stored directly in the Object struct.
const NumInlineSlots = 4

// ---------------------------------------------------------------------------
// Identity
// ---------------------------------------------------------------------------

// Value returns the boxed handle for o.
func (o *Object) Value() Value { return fromHandle(o.id) }

// Kind returns the object's kind tag.
func (o *Object) Kind() Kind { return o.kind }

// Shape returns the object's current shape.
func (o *Object) Shape() *Shape { return o.shape }

// Prototype returns the object's prototype, or nil.
func (o *Object) Prototype() *Object { return o.proto }

// SetPrototype replaces the prototype. It fails on non-extensible objects
// and when the new chain would contain o.
func (o *Object) SetPrototype(proto *Object) bool {
	if proto == o.proto {
		return true
	}
	if !o.extensible {
		return false
	}
	for p := proto; p != nil; p = p.proto {
		if p == o {
			return false
		}
	}
	o.proto = proto
	return true
}

func (o *Object) engine() *Engine { return o.shape.engine }

// ---------------------------------------------------------------------------
// Slot access
// ---------------------------------------------------------------------------

// GetSlot returns the value at the given slot index.
// Panics if index is out of range.
func (o *Object) GetSlot(index int) Value {
	switch index {
	case 0:
		return o.slot0
	case 1:
		return o.slot1
	case 2:
		return o.slot2
	case 3:
		return o.slot3
	default:
		overflowIdx := index - NumInlineSlots
		if overflowIdx < 0 || overflowIdx >= len(o.overflow) {
			panic("Object.GetSlot: index out of range")
		}
		return o.overflow[overflowIdx]
	}
}

// SetSlot sets the value at the given slot index. Writing the slot just
// past the overflow's end grows it.
// Panics if index is out of range.
func (o *Object) SetSlot(index int, value Value) {
	switch index {
	case 0:
		o.slot0 = value
	case 1:
		o.slot1 = value
	case 2:
		o.slot2 = value
	case 3:
		o.slot3 = value
	default:
		overflowIdx := index - NumInlineSlots
		switch {
		case overflowIdx >= 0 && overflowIdx < len(o.overflow):
			o.overflow[overflowIdx] = value
		case overflowIdx == len(o.overflow):
			o.overflow = append(o.overflow, value)
		default:
			panic("Object.SetSlot: index out of range")
		}
	}
}

// NumSlots returns the number of populated named slots.
func (o *Object) NumSlots() int {
	return o.shape.Size()
}

// OverflowCap returns the capacity of the overflow buffer.
func (o *Object) OverflowCap() int {
	return cap(o.overflow)
}

// ForEachSlot calls fn for each populated named slot.
func (o *Object) ForEachSlot(fn func(index int, value Value)) {
	n := o.shape.Size()
	for i := 0; i < n; i++ {
		fn(i, o.GetSlot(i))
	}
}

// ---------------------------------------------------------------------------
// Named storage
// ---------------------------------------------------------------------------

// defineNamed adds or re-attributes name and stores v in its slot.
func (o *Object) defineNamed(name Name, v Value, attrs Attributes) int {
	next := o.shape.AddProperty(name, attrs)
	slot := next.Find(name)
	o.shape = next
	o.SetSlot(slot, v)
	return slot
}

// removeNamed drops the property at slot and compacts the slots above it.
func (o *Object) removeNamed(slot int) {
	old := o.shape.Size()
	o.shape = o.shape.RemoveProperty(o.shape.NameAt(slot))
	for i := slot; i < old-1; i++ {
		o.SetSlot(i, o.GetSlot(i+1))
	}
	if old-1 < NumInlineSlots {
		o.SetSlot(old-1, Undefined)
	}
	if n := old - 1 - NumInlineSlots; n >= 0 {
		o.overflow[n] = Undefined
		o.overflow = o.overflow[:n]
	}
}

// ---------------------------------------------------------------------------
// Extensibility
// ---------------------------------------------------------------------------

// IsExtensible reports whether new properties can be added.
func (o *Object) IsExtensible() bool { return o.extensible }

// PreventExtensions makes the object non-extensible. It cannot be undone.
func (o *Object) PreventExtensions() { o.extensible = false }

// Seal makes every own property non-configurable and prevents extensions.
func (o *Object) Seal() {
	o.extensible = false
	o.shape = o.shape.Sealed()
	if o.array != nil {
		o.array.mapAttrs(func(a Attributes) Attributes { return a &^ AttrConfigurable })
	}
}

// Freeze seals the object and makes every data property read-only.
func (o *Object) Freeze() {
	o.extensible = false
	o.shape = o.shape.Frozen()
	if o.array != nil {
		o.array.mapAttrs(func(a Attributes) Attributes {
			if a.IsAccessor() {
				return a &^ AttrConfigurable
			}
			return a &^ (AttrConfigurable | AttrWritable)
		})
	}
	if o.kind == KindArray {
		o.lengthReadOnly = true
	}
}

// IsSealed reports whether the object is non-extensible and no own
// property is configurable.
func (o *Object) IsSealed() bool {
	if o.extensible || !o.shape.IsSealed() {
		return false
	}
	return o.array == nil || o.array.all(func(a Attributes) bool { return !a.IsConfigurable() })
}

// IsFrozen reports whether the object is sealed and no own data property
// is writable.
func (o *Object) IsFrozen() bool {
	if !o.IsSealed() || !o.shape.IsFrozen() {
		return false
	}
	if o.kind == KindArray && !o.lengthReadOnly {
		return false
	}
	return o.array == nil || o.array.all(func(a Attributes) bool { return a.IsAccessor() || !a.IsWritable() })
}

// ---------------------------------------------------------------------------
// Key enumeration
// ---------------------------------------------------------------------------

// OwnKeys returns the own property names: indices in ascending order, then
// named properties in slot order.
func (o *Object) OwnKeys() []Name {
	return o.ownKeys(false)
}

// EnumerableKeys is OwnKeys restricted to enumerable properties.
func (o *Object) EnumerableKeys() []Name {
	return o.ownKeys(true)
}

func (o *Object) ownKeys(enumerableOnly bool) []Name {
	e := o.engine()
	var indices []uint32
	if o.kind == KindString {
		for i := range o.runes() {
			indices = append(indices, uint32(i))
		}
	}
	if o.array != nil {
		for _, i := range o.array.Keys() {
			if enumerableOnly && !o.array.attrsAt(o.array.mustFind(i)).IsEnumerable() {
				continue
			}
			indices = append(indices, i)
		}
	}
	if o.kind == KindString {
		slices.Sort(indices)
		indices = slices.Compact(indices)
	}

	keys := make([]Name, 0, len(indices)+o.shape.Size()+1)
	for _, i := range indices {
		keys = append(keys, e.Intern(strconv.FormatUint(uint64(i), 10)))
	}
	if !enumerableOnly && (o.kind == KindArray || o.kind == KindString) {
		keys = append(keys, e.idLength)
	}
	for slot, n := range o.shape.names {
		if enumerableOnly && !o.shape.attrs[slot].IsEnumerable() {
			continue
		}
		keys = append(keys, n)
	}
	return keys
}

func (o *Object) runes() []rune {
	if r, ok := o.ext.([]rune); ok {
		return r
	}
	return nil
}
