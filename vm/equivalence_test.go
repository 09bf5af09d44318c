package vm

import (
	"fmt"
	"math/rand/v2"
	"testing"
)

// world is one engine with a fixed population of objects. Two worlds fed
// the same operations must stay observably identical whether they access
// properties through lookups or through the dispatch layer.
type world struct {
	e       *Engine
	objs    []*Object
	names   []Name
	getters []*Object
	reads   [][]*Lookup // [name][site]
	writes  []*Lookup
}

const (
	equivObjects = 8
	equivNames   = 5
	equivSites   = 3
)

func newWorld() *world {
	w := &world{e: NewEngine(DefaultOptions())}
	for i := 0; i < equivNames; i++ {
		n := w.e.Intern(fmt.Sprintf("n%d", i))
		w.names = append(w.names, n)
		sites := make([]*Lookup, equivSites)
		for s := range sites {
			sites[s] = NewLookup(n)
		}
		w.reads = append(w.reads, sites)
		w.writes = append(w.writes, NewLookup(n))
		w.getters = append(w.getters, constGetter(w.e, FromInt(1000+i)))
	}
	for i := 0; i < equivObjects; i++ {
		var proto *Object
		if i > 0 {
			proto = w.objs[i/2]
		}
		w.objs = append(w.objs, w.e.NewObject(proto))
	}
	return w
}

// mutate applies one random structural or value change.
func (w *world) mutate(op, obj, name, arg int, cached bool) {
	o, n := w.objs[obj], w.names[name]
	switch op {
	case 0, 1, 2:
		if cached {
			w.e.ResolveForWrite(w.writes[name], o, n, FromInt(arg))
		} else {
			o.Put(n, FromInt(arg))
		}
	case 3:
		o.DeleteProperty(n)
	case 4:
		o.DefineOwnProperty(n, AccessorDescriptor(w.getters[name].Value(), Undefined, AttrConfigurable|AttrEnumerable))
	case 5:
		o.DefineOwnProperty(n, DataDescriptor(FromInt(arg), AttrEnumerable|AttrConfigurable))
	case 6:
		// Re-parent to an earlier object so chains stay acyclic.
		if obj > 0 {
			o.SetPrototype(w.objs[arg%obj])
		}
	}
}

func TestCacheMatchesDispatch(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	cached, plain := newWorld(), newWorld()

	for step := 0; step < 20000; step++ {
		obj := rng.IntN(equivObjects)
		name := rng.IntN(equivNames)
		if rng.IntN(3) == 0 {
			op, arg := rng.IntN(7), rng.IntN(100)
			cached.mutate(op, obj, name, arg, true)
			plain.mutate(op, obj, name, arg, false)
			continue
		}

		site := rng.IntN(equivSites)
		got, _ := cached.e.Resolve(cached.reads[name][site], cached.objs[obj], cached.names[name])
		want := plain.objs[obj].Get(plain.names[name])
		generic := cached.objs[obj].Get(cached.names[name])
		if got != want || got != generic {
			t.Fatalf("step %d: obj %d name n%d: cache %#v, generic %#v, other world %#v",
				step, obj, name, got, generic, want)
		}
	}

	// Cached writes must leave the same own properties behind.
	for i := range cached.objs {
		ck, pk := cached.objs[i].OwnKeys(), plain.objs[i].OwnKeys()
		if len(ck) != len(pk) {
			t.Fatalf("obj %d: %d own keys through cache, %d without", i, len(ck), len(pk))
		}
		for k := range ck {
			if ck[k] != pk[k] || cached.objs[i].Get(ck[k]) != plain.objs[i].Get(pk[k]) {
				t.Errorf("obj %d key %d: cached %s=%#v, plain %s=%#v", i, k,
					cached.e.Names().String(ck[k]), cached.objs[i].Get(ck[k]),
					plain.e.Names().String(pk[k]), plain.objs[i].Get(pk[k]))
			}
		}
	}

	tbl := NewLookupTable()
	for i, sites := range cached.reads {
		for s, l := range sites {
			tbl.lookups[i*equivSites+s] = l
		}
	}
	if tbl.Stats().Hits == 0 {
		t.Errorf("randomized run never hit the cache")
	}
}
