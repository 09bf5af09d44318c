package vm

// ---------------------------------------------------------------------------
// Heap: handle registry for objects
// ---------------------------------------------------------------------------

// Heap maps object handles to objects. Values carry handles rather than
// pointers; freed handles are reused last-in first-out.
type Heap struct {
	objects []*Object // handle -> object; handle 0 is never used
	free    []uint32
	live    int
}

func newHeap() *Heap {
	return &Heap{objects: make([]*Object, 1, 1024)}
}

// Alloc registers o and assigns its handle.
func (h *Heap) Alloc(o *Object) uint32 {
	var id uint32
	if n := len(h.free); n > 0 {
		id = h.free[n-1]
		h.free = h.free[:n-1]
		h.objects[id] = o
	} else {
		id = uint32(len(h.objects))
		if uint64(id) > payloadMask {
			panic("Heap.Alloc: handle space exhausted")
		}
		h.objects = append(h.objects, o)
	}
	o.id = id
	h.live++
	return id
}

// Get returns the object for a handle, or nil if it was freed.
func (h *Heap) Get(id uint32) *Object {
	if id == 0 || int(id) >= len(h.objects) {
		return nil
	}
	return h.objects[id]
}

// Free releases a handle. Freeing an unknown handle is a no-op.
func (h *Heap) Free(id uint32) {
	if h.Get(id) == nil {
		return
	}
	h.objects[id] = nil
	h.free = append(h.free, id)
	h.live--
}

// Live returns the number of allocated objects.
func (h *Heap) Live() int { return h.live }

// FreeHandles returns the number of handles waiting for reuse.
func (h *Heap) FreeHandles() int { return len(h.free) }

// Capacity returns the number of handles ever issued, plus the reserved one.
func (h *Heap) Capacity() int { return len(h.objects) }

// ForEach calls fn for every live object in handle order.
func (h *Heap) ForEach(fn func(*Object)) {
	for _, o := range h.objects {
		if o != nil {
			fn(o)
		}
	}
}
