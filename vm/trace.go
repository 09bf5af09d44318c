package vm

import "time"

// ---------------------------------------------------------------------------
// Trace hooks and heap sweep
// ---------------------------------------------------------------------------

// TraceNames calls fn for every property name the shape retains.
func (s *Shape) TraceNames(fn func(Name)) {
	for _, n := range s.names {
		fn(n)
	}
}

// Trace calls fn for every value o keeps alive: populated named slots,
// present indexed values and the prototype.
func (o *Object) Trace(fn func(Value)) {
	if o.kind == kindAccessorPair {
		fn(o.slot0)
		fn(o.slot1)
		return
	}
	o.ForEachSlot(func(_ int, v Value) { fn(v) })
	if o.array != nil {
		o.array.forEachValue(fn)
	}
	if o.proto != nil {
		fn(o.proto.Value())
	}
}

// SweepStats holds statistics from a single sweep.
type SweepStats struct {
	Marked        int
	Freed         int
	Live          int
	SweepDuration time.Duration
	Timestamp     time.Time
}

// Sweep marks every object reachable from roots and the engine's intrinsic
// objects and frees the handles of everything else. Values that still hold
// a freed handle resolve to nil afterwards.
func (e *Engine) Sweep(roots ...Value) SweepStats {
	start := time.Now()
	stats := SweepStats{Timestamp: start}

	marked := make([]bool, e.heap.Capacity())
	var stack []*Object
	mark := func(v Value) {
		if !v.IsObject() {
			return
		}
		id := v.handle()
		o := e.heap.Get(id)
		if o == nil || marked[id] {
			return
		}
		marked[id] = true
		stack = append(stack, o)
	}

	for _, o := range []*Object{e.ObjectPrototype, e.FunctionPrototype, e.ArrayPrototype, e.StringPrototype, e.Global} {
		mark(o.Value())
	}
	for _, v := range roots {
		mark(v)
	}
	for len(stack) > 0 {
		o := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stats.Marked++
		o.Trace(mark)
	}

	for id := 1; id < len(marked); id++ {
		if !marked[id] && e.heap.Get(uint32(id)) != nil {
			e.heap.Free(uint32(id))
			stats.Freed++
		}
	}
	stats.Live = e.heap.Live()
	stats.SweepDuration = time.Since(start)
	e.stats.Sweeps++
	log.Infof("sweep: marked %d, freed %d, live %d in %s", stats.Marked, stats.Freed, stats.Live, stats.SweepDuration)
	return stats
}
