package vm

import (
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("morph.vm")

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Options tunes an engine. The zero value is not useful; start from
// DefaultOptions.
type Options struct {
	// MinDense is the smallest dense segment an array may grow to without
	// going sparse.
	MinDense uint32
	// GrowthFactor bounds dense growth: an index at or beyond
	// GrowthFactor*len (or MinDense, whichever is larger) converts the
	// storage to sparse.
	GrowthFactor uint32
	// SparseLength is the index (and array length) from which storage is
	// always sparse.
	SparseLength uint32
	// CacheStats enables hit/miss counting on lookup sites.
	CacheStats bool
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		MinDense:     8,
		GrowthFactor: 2,
		SparseLength: 1 << 20,
		CacheStats:   true,
	}
}

func (o Options) sanitize() Options {
	d := DefaultOptions()
	if o.MinDense == 0 {
		o.MinDense = d.MinDense
	}
	if o.GrowthFactor < 2 {
		o.GrowthFactor = d.GrowthFactor
	}
	if o.SparseLength == 0 {
		o.SparseLength = d.SparseLength
	}
	return o
}

// EngineStats counts structural events over the engine's lifetime.
type EngineStats struct {
	ShapesCreated     uint64
	Transitions       uint64
	RemovalRebuilds   uint64
	SparseConversions uint64
	GenericSites      uint64
	Sweeps            uint64
}

// ---------------------------------------------------------------------------
// Engine
// ---------------------------------------------------------------------------

// Engine owns every shape, object and interned name of one heap. Nothing is
// shared between engines. An Engine is not safe for concurrent use.
type Engine struct {
	ID uuid.UUID

	opts  Options
	names *NameTable
	heap  *Heap
	roots [numKinds]*Shape

	nextShapeID uint32
	stats       EngineStats

	ObjectPrototype   *Object
	FunctionPrototype *Object
	ArrayPrototype    *Object
	StringPrototype   *Object
	Global            *Object

	idLength Name
	idName   Name
}

// NewEngine creates an engine with its root shapes and intrinsic objects.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		ID:    uuid.New(),
		opts:  opts.sanitize(),
		names: NewNameTable(),
		heap:  newHeap(),
	}
	e.idLength = e.names.Intern("length")
	e.idName = e.names.Intern("name")
	for k := Kind(0); k < numKinds; k++ {
		e.roots[k] = newRootShape(e, k)
	}

	e.ObjectPrototype = e.alloc(KindObject, nil)
	e.FunctionPrototype = e.alloc(KindFunction, e.ObjectPrototype)
	e.FunctionPrototype.ext = NativeFunc(func(*Engine, Value, []Value) Value { return Undefined })
	e.ArrayPrototype = e.alloc(KindArray, e.ObjectPrototype)
	e.StringPrototype = e.alloc(KindString, e.ObjectPrototype)
	e.StringPrototype.ext = []rune{}
	e.Global = e.alloc(KindObject, e.ObjectPrototype)

	log.Infof("engine %s created", e.ID)
	return e
}

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

// Names returns the engine's name table.
func (e *Engine) Names() *NameTable { return e.names }

// Heap returns the engine's handle registry.
func (e *Engine) Heap() *Heap { return e.heap }

// Stats returns a copy of the structural counters.
func (e *Engine) Stats() EngineStats { return e.stats }

// Intern returns the name for s.
func (e *Engine) Intern(s string) Name { return e.names.Intern(s) }

// NewString returns a string value for s.
func (e *Engine) NewString(s string) Value { return FromName(e.names.Intern(s)) }

// String returns the text of a string value, or "" for other values.
func (e *Engine) String(v Value) string {
	if !v.IsString() {
		return ""
	}
	return e.names.String(v.Name())
}

// Object resolves an object value. It returns nil for non-objects and for
// handles that have been swept.
func (e *Engine) Object(v Value) *Object {
	if !v.IsObject() {
		return nil
	}
	return e.heap.Get(v.handle())
}

// RootShape returns the empty shape objects of kind k start from.
func (e *Engine) RootShape(k Kind) *Shape { return e.roots[k] }

// WalkShapes visits every shape reachable from the root shapes.
func (e *Engine) WalkShapes(fn func(*Shape)) {
	seen := make(map[*Shape]bool)
	for _, r := range e.roots {
		r.walk(seen, fn)
	}
}

func (e *Engine) allocShape(parent *Shape) *Shape {
	e.nextShapeID++
	e.stats.ShapesCreated++
	s := &Shape{engine: e, id: e.nextShapeID, parent: parent}
	if parent != nil {
		s.kind = parent.kind
		s.root = parent.root
	}
	return s
}

func (e *Engine) alloc(kind Kind, proto *Object) *Object {
	o := &Object{
		kind:       kind,
		extensible: true,
		shape:      e.roots[kind],
		proto:      proto,
	}
	e.heap.Alloc(o)
	return o
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// NewObject creates a plain object with the given prototype (may be nil).
func (e *Engine) NewObject(proto *Object) *Object {
	return e.alloc(KindObject, proto)
}

// NewArray creates an array holding values at indices 0..len-1.
func (e *Engine) NewArray(values ...Value) *Object {
	o := e.alloc(KindArray, e.ArrayPrototype)
	for i, v := range values {
		o.PutIndexed(uint32(i), v)
	}
	return o
}

// NewStringObject creates a string wrapper whose characters are exposed as
// read-only indexed properties.
func (e *Engine) NewStringObject(s string) *Object {
	o := e.alloc(KindString, e.StringPrototype)
	o.ext = []rune(s)
	return o
}

// NewFunction creates a function object backed by fn.
func (e *Engine) NewFunction(name string, arity int, fn NativeFunc) *Object {
	o := e.alloc(KindFunction, e.FunctionPrototype)
	o.ext = fn
	o.defineNamed(e.idLength, FromInt(arity), AttrConfigurable)
	o.defineNamed(e.idName, e.NewString(name), AttrConfigurable)
	return o
}

// Call invokes a function value. Calling anything else yields Undefined.
func (e *Engine) Call(fn Value, this Value, args ...Value) Value {
	f := e.Object(fn)
	if f == nil || f.kind != KindFunction {
		return Undefined
	}
	native, ok := f.ext.(NativeFunc)
	if !ok {
		return Undefined
	}
	return native(e, this, args)
}

// IsCallable reports whether v is a function object.
func (e *Engine) IsCallable(v Value) bool {
	f := e.Object(v)
	return f != nil && f.kind == KindFunction
}

// ---------------------------------------------------------------------------
// Accessor pairs
// ---------------------------------------------------------------------------

func (e *Engine) newAccessorPair(get, set Value) Value {
	p := e.alloc(kindAccessorPair, nil)
	p.slot0 = get
	p.slot1 = set
	return p.Value()
}

func (e *Engine) accessorPair(v Value) (get, set Value) {
	p := e.Object(v)
	if p == nil || p.kind != kindAccessorPair {
		return Undefined, Undefined
	}
	return p.slot0, p.slot1
}

// callGetter invokes the getter of the pair stored in a slot.
func (e *Engine) callGetter(pair Value, receiver Value) Value {
	get, _ := e.accessorPair(pair)
	if !get.IsObject() {
		return Undefined
	}
	return e.Call(get, receiver)
}

// callSetter invokes the setter of the pair stored in a slot. It reports
// false when the pair has no setter.
func (e *Engine) callSetter(pair Value, receiver Value, v Value) bool {
	_, set := e.accessorPair(pair)
	if !set.IsObject() {
		return false
	}
	e.Call(set, receiver, v)
	return true
}
