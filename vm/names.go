package vm

// ---------------------------------------------------------------------------
// NameTable: Interned property names
// ---------------------------------------------------------------------------

// Name is an interned property-name identifier. Two names are equal exactly
// when their identifiers are equal.
type Name uint32

// NoName is the reserved identifier used as the empty-bucket sentinel in
// property tables. It is never returned by Intern.
const NoName Name = 0

// noIndex marks names that are not canonical array indices.
const noIndex uint32 = 1<<32 - 1

// NameTable interns strings to unique Name identifiers.
// Interned names are never released.
type NameTable struct {
	byName map[string]Name
	byID   []string // ID -> name; slot 0 is the reserved sentinel
	index  []uint32 // ID -> array index, or noIndex
}

// NewNameTable creates a name table holding only the reserved sentinel.
func NewNameTable() *NameTable {
	nt := &NameTable{
		byName: make(map[string]Name),
		byID:   make([]string, 1, 256),
		index:  make([]uint32, 1, 256),
	}
	nt.index[0] = noIndex
	return nt
}

// Intern returns the Name for s, creating a new one if needed.
func (nt *NameTable) Intern(s string) Name {
	if id, ok := nt.byName[s]; ok {
		return id
	}
	id := Name(len(nt.byID))
	nt.byName[s] = id
	nt.byID = append(nt.byID, s)
	idx, ok := parseArrayIndex(s)
	if !ok {
		idx = noIndex
	}
	nt.index = append(nt.index, idx)
	return id
}

// Lookup returns the Name for s without interning it.
func (nt *NameTable) Lookup(s string) (Name, bool) {
	id, ok := nt.byName[s]
	return id, ok
}

// String returns the text for a Name, or "" if invalid.
func (nt *NameTable) String(n Name) string {
	if n == NoName || int(n) >= len(nt.byID) {
		return ""
	}
	return nt.byID[n]
}

// ArrayIndex reports whether n spells a canonical array index.
func (nt *NameTable) ArrayIndex(n Name) (uint32, bool) {
	if int(n) >= len(nt.index) {
		return 0, false
	}
	idx := nt.index[n]
	if idx == noIndex {
		return 0, false
	}
	return idx, true
}

// Len returns the number of interned names, excluding the sentinel.
func (nt *NameTable) Len() int {
	return len(nt.byID) - 1
}

// parseArrayIndex accepts non-negative integers below 2^32-1 without
// leading zeros.
func parseArrayIndex(s string) (uint32, bool) {
	if s == "" || len(s) > 10 {
		return 0, false
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, false
	}
	var n uint64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + uint64(c-'0')
	}
	if n >= uint64(noIndex) {
		return 0, false
	}
	return uint32(n), true
}
