package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/chazu/morph/vm"
)

// scenario is one reference walkthrough of the shape and lookup machinery.
type scenario struct {
	name string
	desc string
	run  func(e *vm.Engine, tbl *vm.LookupTable) error
}

var scenarios = []scenario{
	{"a", "shared transitions and a monomorphic own-property site", scenarioA},
	{"b", "a second object on the same shape hits the site", scenarioB},
	{"c", "prototype hit at level 1 and invalidation on holder change", scenarioC},
	{"d", "deletion rebuilds the shape and moves slots", scenarioD},
}

func findScenarios(which string) ([]scenario, error) {
	if which == "all" {
		return scenarios, nil
	}
	for _, s := range scenarios {
		if s.name == which {
			return []scenario{s}, nil
		}
	}
	return nil, fmt.Errorf("unknown scenario %q (want a, b, c, d or all)", which)
}

// pair builds an object with x then y added in that order.
func pair(e *vm.Engine, x, y int) *vm.Object {
	o := e.NewObject(e.ObjectPrototype)
	o.Put(e.Intern("x"), vm.FromInt(x))
	o.Put(e.Intern("y"), vm.FromInt(y))
	return o
}

func expect(what string, got, want any) error {
	if got != want {
		return fmt.Errorf("%s = %v, want %v", what, got, want)
	}
	return nil
}

func scenarioA(e *vm.Engine, tbl *vm.LookupTable) error {
	y := e.Intern("y")
	a := pair(e, 1, 2)
	s2 := a.Shape()
	if s2.Parent() == nil || s2.Parent().Parent() != e.RootShape(vm.KindObject) {
		return fmt.Errorf("shape %d does not descend from the object root in two steps", s2.ID())
	}

	site := tbl.GetOrCreate(0, y)
	v, _ := e.Resolve(site, a, y)
	return firstErr(
		expect("A.y", v, vm.FromInt(2)),
		expect("site state", site.State, vm.LookupMonomorphic),
		expect("site level", site.Level, 0),
		expect("site shape", site.Shapes[0], s2),
		expect("site slot", site.Slot, 1),
	)
}

func scenarioB(e *vm.Engine, tbl *vm.LookupTable) error {
	y := e.Intern("y")
	a := pair(e, 1, 2)
	b := pair(e, 10, 20)
	if err := expect("B shape", b.Shape(), a.Shape()); err != nil {
		return err
	}

	site := tbl.GetOrCreate(1, y)
	e.Resolve(site, a, y)
	v, hit := e.Resolve(site, b, y)
	return firstErr(
		expect("B.y", v, vm.FromInt(20)),
		expect("B.y hit", hit, true),
	)
}

func scenarioC(e *vm.Engine, tbl *vm.LookupTable) error {
	y := e.Intern("y")
	a := pair(e, 1, 2)
	c := e.NewObject(a)

	site := tbl.GetOrCreate(2, y)
	v, _ := e.Resolve(site, c, y)
	if err := firstErr(
		expect("C.y", v, vm.FromInt(2)),
		expect("site level", site.Level, 1),
		expect("holder shape", site.Shapes[1], a.Shape()),
	); err != nil {
		return err
	}

	a.Put(e.Intern("z"), vm.FromInt(3))
	a.Put(y, vm.FromInt(5))
	v, hit := e.Resolve(site, c, y)
	if err := firstErr(
		expect("C.y after change", v, vm.FromInt(5)),
		expect("hit after change", hit, false),
	); err != nil {
		return err
	}
	if e.Options().CacheStats {
		return expect("invalidations", site.Invalidations, uint64(1))
	}
	return nil
}

func scenarioD(e *vm.Engine, tbl *vm.LookupTable) error {
	x, y := e.Intern("x"), e.Intern("y")
	o := pair(e, 1, 2)
	s2 := o.Shape()

	site := tbl.GetOrCreate(3, y)
	e.Resolve(site, o, y)

	if !o.DeleteProperty(x) {
		return fmt.Errorf("delete x rejected")
	}
	s3 := o.Shape()
	v, hit := e.Resolve(site, o, y)
	return firstErr(
		expect("shape changed", s3 != s2, true),
		expect("S3 size", s3.Size(), 1),
		expect("S3 slot of y", s3.Find(y), 0),
		expect("y after delete", v, vm.FromInt(2)),
		expect("hit after delete", hit, false),
	)
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// equivalence drives random mutations and reads against a population of
// objects, comparing every cached read against the uncached path.
func equivalence(e *vm.Engine, tbl *vm.LookupTable, steps int, seed uint64) error {
	const objects, names, sites = 16, 6, 4
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	var keys []vm.Name
	for i := 0; i < names; i++ {
		keys = append(keys, e.Intern(fmt.Sprintf("p%d", i)))
	}
	var objs []*vm.Object
	for i := 0; i < objects; i++ {
		proto := e.ObjectPrototype
		if i > 0 {
			proto = objs[i/2]
		}
		objs = append(objs, e.NewObject(proto))
	}
	getter := e.NewFunction("get", 0, func(*vm.Engine, vm.Value, []vm.Value) vm.Value {
		return vm.FromInt(-1)
	})

	base := 100
	for step := 0; step < steps; step++ {
		o, n := objs[rng.IntN(objects)], rng.IntN(names)
		key := keys[n]
		switch rng.IntN(8) {
		case 0, 1:
			e.ResolveForWrite(tbl.GetOrCreate(base+n, key), o, key, vm.FromInt(step))
		case 2:
			o.DeleteProperty(key)
		case 3:
			o.DefineOwnProperty(key, vm.AccessorDescriptor(getter.Value(), vm.Undefined, vm.AttrConfigurable))
		default:
			l := tbl.GetOrCreate(base+names+n*sites+rng.IntN(sites), key)
			got, _ := e.Resolve(l, o, key)
			if want := o.Get(key); got != want {
				return fmt.Errorf("step %d: cached read of %s = %#v, uncached %#v",
					step, e.Names().String(key), got, want)
			}
		}
	}
	return nil
}
