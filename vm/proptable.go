package vm

// PropertyTable is an open-addressing hash index from Name to slot number.
//
// A table is shared by every shape along one lineage of appends: a shape
// with size n only trusts entries whose slot is below n, so entries added
// by descendants are invisible to it. Entries are never deleted; growth
// rebuilds a fresh table.
type PropertyTable struct {
	buckets []propEntry
	count   int
	class   int    // index into tablePrimes
	tip     *Shape // the only shape allowed to append in place
}

type propEntry struct {
	name Name
	slot uint32
}

// NotFound is returned by Find when the name has no slot.
const NotFound = -1

// tablePrimes are the largest primes below successive powers of two.
var tablePrimes = [...]int{
	7, 13, 31, 61, 127, 251, 509, 1021, 2039, 4093, 8191, 16381,
	32749, 65521, 131071, 262139, 524287, 1048573, 2097143, 4194301,
	8388593, 16777213, 33554393, 67108859, 134217689, 268435399,
	536870909, 1073741789, 2147483647,
}

func newPropertyTable(class int) *PropertyTable {
	return &PropertyTable{
		buckets: make([]propEntry, tablePrimes[class]),
		class:   class,
	}
}

// Find returns the slot of name among the first size slots, or NotFound.
func (t *PropertyTable) Find(name Name, size int) int {
	n := uint32(len(t.buckets))
	i := uint32(name) % n
	for {
		e := &t.buckets[i]
		if e.name == NoName {
			return NotFound
		}
		if e.name == name {
			if int(e.slot) < size {
				return int(e.slot)
			}
			return NotFound
		}
		i++
		if i == n {
			i = 0
		}
	}
}

// insert adds name at slot. The caller guarantees name is absent and that
// the load factor allows another entry.
func (t *PropertyTable) insert(name Name, slot int) {
	n := uint32(len(t.buckets))
	i := uint32(name) % n
	for t.buckets[i].name != NoName {
		i++
		if i == n {
			i = 0
		}
	}
	t.buckets[i] = propEntry{name: name, slot: uint32(slot)}
	t.count++
}

// hasRoomFor reports whether k more entries keep the load at or below 50%.
func (t *PropertyTable) hasRoomFor(k int) bool {
	return (t.count+k)*2 <= len(t.buckets)
}

// rebuild returns a fresh table holding only the entries valid below size,
// sized so that extra further entries fit.
func (t *PropertyTable) rebuild(size, extra int) *PropertyTable {
	class := 0
	for (size+extra)*2 > tablePrimes[class] {
		class++
	}
	nt := newPropertyTable(class)
	if t != nil {
		for _, e := range t.buckets {
			if e.name != NoName && int(e.slot) < size {
				nt.insert(e.name, int(e.slot))
			}
		}
	}
	return nt
}

// Len returns the number of entries, including ones invisible to older shapes.
func (t *PropertyTable) Len() int { return t.count }

// Buckets returns the bucket count.
func (t *PropertyTable) Buckets() int { return len(t.buckets) }
