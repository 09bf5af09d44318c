package vm

import "slices"

// ---------------------------------------------------------------------------
// ArrayStorage: indexed properties
// ---------------------------------------------------------------------------

// ArrayStorage holds an object's indexed properties.
//
// In dense mode values[i] is index i and holes hold the empty marker. In
// sparse mode the sparse map sends each index to a position in values, and
// positions released by deletion are kept on a free stack for the next
// insertion. An object never returns from sparse to dense storage.
type ArrayStorage struct {
	values []Value
	attrs  []Attributes // parallel to values; nil while every entry is AttrData

	sparse map[uint32]uint32 // index -> position; nil while dense
	free   []uint32

	opts *Options
}

func newArrayStorage(opts *Options) *ArrayStorage {
	return &ArrayStorage{opts: opts}
}

// IsSparse reports whether the storage has switched to index-keyed mode.
func (a *ArrayStorage) IsSparse() bool { return a.sparse != nil }

// DenseLen returns the length of the dense segment, holes included.
// It is zero once the storage is sparse.
func (a *ArrayStorage) DenseLen() int {
	if a.sparse != nil {
		return 0
	}
	return len(a.values)
}

// Count returns the number of present entries.
func (a *ArrayStorage) Count() int {
	if a.sparse != nil {
		return len(a.sparse)
	}
	n := 0
	for _, v := range a.values {
		if !v.isEmpty() {
			n++
		}
	}
	return n
}

// FreeSlots returns the number of positions waiting for reuse.
func (a *ArrayStorage) FreeSlots() int { return len(a.free) }

// find returns the position holding index i.
func (a *ArrayStorage) find(i uint32) (int, bool) {
	if a.sparse != nil {
		pos, ok := a.sparse[i]
		return int(pos), ok
	}
	if uint64(i) < uint64(len(a.values)) && !a.values[i].isEmpty() {
		return int(i), true
	}
	return 0, false
}

func (a *ArrayStorage) mustFind(i uint32) int {
	pos, ok := a.find(i)
	if !ok {
		panic("ArrayStorage: missing index")
	}
	return pos
}

func (a *ArrayStorage) attrsAt(pos int) Attributes {
	if a.attrs == nil {
		return AttrData
	}
	return a.attrs[pos]
}

func (a *ArrayStorage) setAttrs(pos int, attrs Attributes) {
	attrs = attrs.normalize()
	if a.attrs == nil {
		if attrs == AttrData {
			return
		}
		a.attrs = make([]Attributes, len(a.values), cap(a.values))
		for i := range a.attrs {
			a.attrs[i] = AttrData
		}
	}
	a.attrs[pos] = attrs
}

// Get returns the raw value and attributes stored at index i.
func (a *ArrayStorage) Get(i uint32) (Value, Attributes, bool) {
	pos, ok := a.find(i)
	if !ok {
		return Undefined, 0, false
	}
	return a.values[pos], a.attrsAt(pos), true
}

// insert stores a new entry at index i, which must be absent, and returns
// its position. It reports whether the storage converted to sparse mode.
func (a *ArrayStorage) insert(i uint32, v Value, attrs Attributes) (int, bool) {
	converted := false
	if a.sparse == nil {
		n := uint64(len(a.values))
		if uint64(i) < n {
			a.values[i] = v
			a.setAttrs(int(i), attrs)
			return int(i), false
		}
		if a.fitsDense(i) {
			for uint64(len(a.values)) < uint64(i) {
				a.push(empty)
			}
			a.push(v)
			a.setAttrs(int(i), attrs)
			return int(i), false
		}
		a.convertToSparse()
		converted = true
	}

	var pos int
	if k := len(a.free); k > 0 {
		pos = int(a.free[k-1])
		a.free = a.free[:k-1]
		a.values[pos] = v
	} else {
		pos = len(a.values)
		a.push(v)
	}
	a.sparse[i] = uint32(pos)
	a.setAttrs(pos, attrs)
	return pos, converted
}

// fitsDense reports whether writing index i keeps the dense segment within
// the growth bound.
func (a *ArrayStorage) fitsDense(i uint32) bool {
	if i >= a.opts.SparseLength {
		return false
	}
	limit := uint64(len(a.values)) * uint64(a.opts.GrowthFactor)
	if limit < uint64(a.opts.MinDense) {
		limit = uint64(a.opts.MinDense)
	}
	return uint64(i) < limit
}

func (a *ArrayStorage) push(v Value) {
	a.values = append(a.values, v)
	if a.attrs != nil {
		a.attrs = append(a.attrs, AttrData)
	}
}

// convertToSparse keys every present entry by index. Holes become free
// positions so the value array keeps its size.
func (a *ArrayStorage) convertToSparse() {
	a.sparse = make(map[uint32]uint32, len(a.values))
	for i := len(a.values) - 1; i >= 0; i-- {
		if a.values[i].isEmpty() {
			a.free = append(a.free, uint32(i))
			continue
		}
		a.sparse[uint32(i)] = uint32(i)
	}
}

// remove deletes index i if present.
func (a *ArrayStorage) remove(i uint32) {
	pos, ok := a.find(i)
	if !ok {
		return
	}
	a.values[pos] = empty
	if a.attrs != nil {
		a.attrs[pos] = AttrData
	}
	if a.sparse != nil {
		delete(a.sparse, i)
		a.free = append(a.free, uint32(pos))
		return
	}
	// Trailing holes carry no information in dense mode.
	n := len(a.values)
	for n > 0 && a.values[n-1].isEmpty() {
		n--
	}
	a.values = a.values[:n]
	if a.attrs != nil {
		a.attrs = a.attrs[:n]
	}
}

// Keys returns the present indices in ascending order.
func (a *ArrayStorage) Keys() []uint32 {
	if a.sparse != nil {
		keys := make([]uint32, 0, len(a.sparse))
		for i := range a.sparse {
			keys = append(keys, i)
		}
		slices.Sort(keys)
		return keys
	}
	keys := make([]uint32, 0, len(a.values))
	for i, v := range a.values {
		if !v.isEmpty() {
			keys = append(keys, uint32(i))
		}
	}
	return keys
}

// truncate deletes every index at or above length, highest first. It stops
// at the first non-configurable entry and returns the length that remains.
func (a *ArrayStorage) truncate(length uint32) (uint32, bool) {
	keys := a.Keys()
	for k := len(keys) - 1; k >= 0 && keys[k] >= length; k-- {
		i := keys[k]
		if !a.attrsAt(a.mustFind(i)).IsConfigurable() {
			return i + 1, false
		}
		a.remove(i)
	}
	return length, true
}

// last returns one past the highest present index.
func (a *ArrayStorage) last() uint32 {
	if a.sparse == nil {
		return uint32(len(a.values))
	}
	var top uint32
	for i := range a.sparse {
		if i+1 > top {
			top = i + 1
		}
	}
	return top
}

func (a *ArrayStorage) mapAttrs(fn func(Attributes) Attributes) {
	for _, i := range a.Keys() {
		pos := a.mustFind(i)
		a.setAttrs(pos, fn(a.attrsAt(pos)))
	}
}

func (a *ArrayStorage) all(pred func(Attributes) bool) bool {
	for _, i := range a.Keys() {
		if !pred(a.attrsAt(a.mustFind(i))) {
			return false
		}
	}
	return true
}

// forEachValue calls fn for every present raw value.
func (a *ArrayStorage) forEachValue(fn func(Value)) {
	for _, v := range a.values {
		if !v.isEmpty() {
			fn(v)
		}
	}
}
