package vm

import "slices"

// Inline Caching for Property Access
//
// Each property access site owns a Lookup. The first resolution walks the
// prototype chain and remembers the shape seen at every level up to the
// holder. Later accesses compare those shapes by pointer and, when all of
// them match, read or write the remembered slot directly.
//
// Sites are indexed by bytecode offset, so every access site has its own
// Lookup.

// LookupState represents the current state of a lookup site.
type LookupState uint8

const (
	LookupUninitialized LookupState = iota // Nothing cached yet
	LookupMonomorphic                      // One shape chain cached
	LookupGeneric                          // Gave up; always use the dispatch layer
)

func (s LookupState) String() string {
	switch s {
	case LookupUninitialized:
		return "uninitialized"
	case LookupMonomorphic:
		return "monomorphic"
	case LookupGeneric:
		return "generic"
	default:
		return "invalid"
	}
}

// MaxLookupLevels is the number of prototype-chain shapes a Lookup can
// remember. A property found deeper makes the site generic for good.
const MaxLookupLevels = 3

// Handler selects what a monomorphic hit does.
type Handler uint8

const (
	HandlerNone Handler = iota
	HandlerGetData
	HandlerGetAccessor
	HandlerGlobalGetData
	HandlerGlobalGetAccessor
	HandlerSetData
	HandlerSetAccessor
	HandlerSetInsert // add an own data property by replaying a transition
)

func (h Handler) isAccessor() bool {
	return h == HandlerGetAccessor || h == HandlerGlobalGetAccessor || h == HandlerSetAccessor
}

// Lookup is the cache for one property access site.
// It progresses through states: Uninitialized -> Monomorphic -> Generic
type Lookup struct {
	State   LookupState
	Handler Handler
	Level   int // prototype level of the holder, 0 for own properties
	Shapes  [MaxLookupLevels]*Shape
	Slot    int
	Name    Name

	// Insert is the receiver's shape after a cached property add. ChainEnd
	// is set when the name was absent, so the chain must also end at Level.
	Insert   *Shape
	ChainEnd bool

	// Statistics for profiling
	Hits          uint64
	Misses        uint64
	Invalidations uint64
}

// NewLookup returns an empty lookup for name.
func NewLookup(name Name) *Lookup {
	return &Lookup{Name: name}
}

// holder re-validates the cached shape chain against o and returns the
// object that holds the cached slot, or nil on mismatch.
func (l *Lookup) holder(o *Object) *Object {
	if o.shape != l.Shapes[0] {
		return nil
	}
	h := o
	for i := 1; i <= l.Level; i++ {
		h = h.proto
		if h == nil || h.shape != l.Shapes[i] {
			return nil
		}
	}
	if l.Handler == HandlerSetInsert {
		if !o.extensible || (l.ChainEnd && h.proto != nil) {
			return nil
		}
	}
	return h
}

// HitRate returns the hit rate as a percentage (0-100).
func (l *Lookup) HitRate() float64 {
	total := l.Hits + l.Misses
	if total == 0 {
		return 0
	}
	return float64(l.Hits) * 100 / float64(total)
}

// Reset clears the lookup back to the uninitialized state.
func (l *Lookup) Reset() {
	*l = Lookup{Name: l.Name}
}

// clear drops the cached chain but keeps the counters.
func (l *Lookup) clear() {
	l.State = LookupUninitialized
	l.Handler = HandlerNone
	l.Level = 0
	l.Slot = 0
	l.Shapes = [MaxLookupLevels]*Shape{}
	l.Insert = nil
	l.ChainEnd = false
}

func (e *Engine) specialize(l *Lookup, res *Resolution, handler Handler) {
	switch {
	case res.Insert != nil:
		l.clear()
		l.State = LookupMonomorphic
		l.Handler = HandlerSetInsert
		l.Level = res.Level
		l.Slot = res.Slot
		l.Insert = res.Insert
		l.ChainEnd = !res.Found
		copy(l.Shapes[:res.Level+1], res.Shapes[:res.Level+1])
	case !res.Found:
		// Absent names are not cached for reads; the site may specialize
		// later.
		l.clear()
	case !res.Cacheable:
		l.clear()
		l.State = LookupGeneric
		e.stats.GenericSites++
		log.Debugf("lookup %q: generic (level %d)", e.names.String(l.Name), res.Level)
	default:
		l.State = LookupMonomorphic
		l.Handler = handler
		l.Level = res.Level
		l.Slot = res.Slot
		l.Shapes = [MaxLookupLevels]*Shape{}
		l.Insert = nil
		l.ChainEnd = false
		copy(l.Shapes[:res.Level+1], res.Shapes[:res.Level+1])
	}
}

func (e *Engine) hit(l *Lookup) {
	if e.opts.CacheStats {
		l.Hits++
	}
}

func (e *Engine) miss(l *Lookup) {
	if e.opts.CacheStats {
		l.Misses++
	}
}

// validate returns the cached holder when l is a monomorphic site for name
// using one of the given handlers and o still matches. A mismatching site
// is cleared.
func (e *Engine) validate(l *Lookup, o *Object, name Name, handlers ...Handler) *Object {
	if l.State != LookupMonomorphic {
		return nil
	}
	if l.Name == name && slices.Contains(handlers, l.Handler) {
		if h := l.holder(o); h != nil {
			return h
		}
	}
	if e.opts.CacheStats {
		l.Invalidations++
	}
	l.clear()
	return nil
}

// ---------------------------------------------------------------------------
// Entry points
// ---------------------------------------------------------------------------

// Resolve reads name from receiver through the site cache l. The second
// result reports a cache hit. Absent properties read as Undefined.
func (e *Engine) Resolve(l *Lookup, receiver *Object, name Name) (Value, bool) {
	if h := e.validate(l, receiver, name, HandlerGetData, HandlerGetAccessor); h != nil {
		e.hit(l)
		v := h.GetSlot(l.Slot)
		if l.Handler == HandlerGetAccessor {
			v = e.callGetter(v, receiver.Value())
		}
		return v, true
	}
	e.miss(l)
	if l.State == LookupGeneric {
		return receiver.Get(name), false
	}
	l.Name = name
	v, res := receiver.GetForCache(name)
	e.specialize(l, &res, handlerFor(res.Attrs, HandlerGetData, HandlerGetAccessor))
	return v, false
}

// ResolveForWrite assigns name on receiver through the site cache l. It
// returns the outcome of the assignment (false when an attribute rejected
// it) and whether the cache hit.
func (e *Engine) ResolveForWrite(l *Lookup, receiver *Object, name Name, v Value) (bool, bool) {
	if h := e.validate(l, receiver, name, HandlerSetData, HandlerSetAccessor, HandlerSetInsert); h != nil {
		e.hit(l)
		switch l.Handler {
		case HandlerSetAccessor:
			return e.callSetter(h.GetSlot(l.Slot), receiver.Value(), v), true
		case HandlerSetInsert:
			receiver.shape = l.Insert
			receiver.SetSlot(l.Slot, v)
			return true, true
		}
		h.SetSlot(l.Slot, v)
		return true, true
	}
	e.miss(l)
	if l.State == LookupGeneric {
		return receiver.Put(name, v), false
	}
	l.Name = name
	ok, res := receiver.SetForCache(name, v)
	e.specialize(l, &res, handlerFor(res.Attrs, HandlerSetData, HandlerSetAccessor))
	return ok, false
}

// ResolveGlobal reads a global binding through l. A name found nowhere on
// the global object's chain yields a *ReferenceError.
func (e *Engine) ResolveGlobal(l *Lookup, name Name) (Value, error) {
	global := e.Global
	if h := e.validate(l, global, name, HandlerGlobalGetData, HandlerGlobalGetAccessor); h != nil {
		e.hit(l)
		v := h.GetSlot(l.Slot)
		if l.Handler == HandlerGlobalGetAccessor {
			v = e.callGetter(v, global.Value())
		}
		return v, nil
	}
	e.miss(l)
	if l.State == LookupGeneric {
		v, found := global.Lookup(name)
		if !found {
			return Undefined, &ReferenceError{Name: e.names.String(name)}
		}
		return v, nil
	}
	l.Name = name
	v, res := global.GetForCache(name)
	e.specialize(l, &res, handlerFor(res.Attrs, HandlerGlobalGetData, HandlerGlobalGetAccessor))
	if !res.Found {
		return Undefined, &ReferenceError{Name: e.names.String(name)}
	}
	return v, nil
}

// ResolveGlobalForWrite assigns an existing global binding through l. An
// unresolved name is reported as a *ReferenceError and nothing is written;
// sloppy-mode callers create the binding with Global.Put themselves.
func (e *Engine) ResolveGlobalForWrite(l *Lookup, name Name, v Value) (bool, error) {
	global := e.Global
	cached := l.State == LookupMonomorphic && l.Name == name && !l.ChainEnd && l.holder(global) != nil
	if !cached && !global.HasProperty(name) {
		e.miss(l)
		return false, &ReferenceError{Name: e.names.String(name)}
	}
	ok, _ := e.ResolveForWrite(l, global, name, v)
	return ok, nil
}

func handlerFor(attrs Attributes, data, accessor Handler) Handler {
	if attrs.IsAccessor() {
		return accessor
	}
	return data
}

// ---------------------------------------------------------------------------
// LookupTable: lookups for every access site of a code unit
// ---------------------------------------------------------------------------

// LookupTable maps bytecode offset to lookup.
type LookupTable struct {
	lookups map[int]*Lookup
}

// NewLookupTable creates an empty table.
func NewLookupTable() *LookupTable {
	return &LookupTable{lookups: make(map[int]*Lookup)}
}

// GetOrCreate returns the lookup for a site, creating one if needed.
func (t *LookupTable) GetOrCreate(site int, name Name) *Lookup {
	if l := t.lookups[site]; l != nil {
		return l
	}
	l := NewLookup(name)
	t.lookups[site] = l
	return l
}

// Get returns the lookup for a site, or nil if none exists.
func (t *LookupTable) Get(site int) *Lookup {
	return t.lookups[site]
}

// Len returns the number of sites.
func (t *LookupTable) Len() int { return len(t.lookups) }

// Stats returns aggregate statistics for all lookups in the table.
func (t *LookupTable) Stats() LookupStats {
	var s LookupStats
	t.collect(&s)
	s.finish()
	return s
}

func (t *LookupTable) collect(s *LookupStats) {
	for _, l := range t.lookups {
		switch l.State {
		case LookupUninitialized:
			s.Uninitialized++
		case LookupMonomorphic:
			s.Monomorphic++
			s.ByLevel[l.Level]++
		case LookupGeneric:
			s.Generic++
		}
		s.Sites++
		s.Hits += l.Hits
		s.Misses += l.Misses
		s.Invalidations += l.Invalidations
	}
}

// HitRate returns the aggregate hit rate for all lookups.
func (t *LookupTable) HitRate() float64 {
	return t.Stats().HitRate
}

// Reset clears all lookups in the table.
func (t *LookupTable) Reset() {
	for _, l := range t.lookups {
		l.Reset()
	}
}

// LookupStats holds aggregate lookup statistics.
type LookupStats struct {
	Sites           int                  // Total number of access sites
	Uninitialized   int                  // Sites never specialized
	Monomorphic     int                  // Sites with a cached chain
	Generic         int                  // Sites that gave up
	ByLevel         [MaxLookupLevels]int // Monomorphic sites per holder level
	Hits            uint64
	Misses          uint64
	Invalidations   uint64
	HitRate         float64 // Overall hit rate percentage
	MonomorphicRate float64 // Percentage of used sites that are monomorphic
}

func (s *LookupStats) finish() {
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) * 100 / float64(total)
	}
	if used := s.Sites - s.Uninitialized; used > 0 {
		s.MonomorphicRate = float64(s.Monomorphic) * 100 / float64(used)
	}
}

// CollectStats aggregates statistics over several tables.
func CollectStats(tables ...*LookupTable) LookupStats {
	var s LookupStats
	for _, t := range tables {
		if t != nil {
			t.collect(&s)
		}
	}
	s.finish()
	return s
}
