package vm

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// constGetter returns a getter that always yields v.
func constGetter(e *Engine, v Value) *Object {
	return e.NewFunction("get", 0, func(*Engine, Value, []Value) Value { return v })
}

// recordingSetter stores its argument under name on the receiver.
func recordingSetter(e *Engine, name Name) *Object {
	return e.NewFunction("set", 1, func(e *Engine, this Value, args []Value) Value {
		e.Object(this).DefineOwnProperty(name, DataDescriptor(args[0], AttrData))
		return Undefined
	})
}

// ---------------------------------------------------------------------------
// Get / Put
// ---------------------------------------------------------------------------

func TestDefineThenGetAndQuery(t *testing.T) {
	e := newTestEngine(t)
	x := e.Intern("x")

	for _, attrs := range []Attributes{AttrData, AttrWritable, AttrEnumerable | AttrConfigurable, 0} {
		obj := e.NewObject(e.ObjectPrototype)
		if !obj.DefineOwnProperty(x, DataDescriptor(FromInt(7), attrs)) {
			t.Fatalf("DefineOwnProperty(%s) = false", attrs)
		}
		if got := obj.Get(x); got != FromInt(7) {
			t.Errorf("Get after define %s = %#v", attrs, got)
		}
		if got, ok := obj.Query(x); !ok || got != attrs {
			t.Errorf("Query after define %s = %s, %v", attrs, got, ok)
		}
	}
}

func TestPutShadowsInheritedData(t *testing.T) {
	e := newTestEngine(t)
	x := e.Intern("x")
	proto := e.NewObject(nil)
	proto.Put(x, FromInt(1))
	child := e.NewObject(proto)

	if !child.Put(x, FromInt(2)) {
		t.Fatalf("Put = false")
	}
	if child.Get(x) != FromInt(2) || proto.Get(x) != FromInt(1) {
		t.Errorf("child %#v proto %#v; want 2 and 1", child.Get(x), proto.Get(x))
	}
	if !child.HasOwnProperty(x) {
		t.Errorf("no own property created")
	}
}

func TestPutBlockedByInheritedReadOnly(t *testing.T) {
	e := newTestEngine(t)
	x := e.Intern("x")
	proto := e.NewObject(nil)
	proto.DefineOwnProperty(x, DataDescriptor(FromInt(1), AttrEnumerable))
	child := e.NewObject(proto)

	if child.Put(x, FromInt(2)) {
		t.Errorf("Put through a read-only prototype property succeeded")
	}
	if child.HasOwnProperty(x) {
		t.Errorf("own property created")
	}
}

func TestInheritedAccessorRunsOnReceiver(t *testing.T) {
	e := newTestEngine(t)
	x, seen := e.Intern("x"), e.Intern("seen")
	proto := e.NewObject(nil)
	proto.DefineOwnProperty(x, AccessorDescriptor(
		e.NewFunction("get", 0, func(e *Engine, this Value, _ []Value) Value { return this }).Value(),
		recordingSetter(e, seen).Value(),
		AttrConfigurable,
	))
	child := e.NewObject(proto)

	if got := child.Get(x); got != child.Value() {
		t.Errorf("getter saw %#v, want the receiver", got)
	}
	if !child.Put(x, FromInt(5)) {
		t.Fatalf("Put through setter = false")
	}
	if child.Get(seen) != FromInt(5) || proto.HasOwnProperty(seen) {
		t.Errorf("setter did not run on the receiver")
	}
	if child.HasOwnProperty(x) {
		t.Errorf("setter path created an own property")
	}
}

func TestAccessorWithoutSetter(t *testing.T) {
	e := newTestEngine(t)
	x := e.Intern("x")
	obj := e.NewObject(nil)
	obj.DefineOwnProperty(x, AccessorDescriptor(constGetter(e, True).Value(), Undefined, AttrConfigurable))

	if obj.Put(x, False) {
		t.Errorf("Put on getter-only accessor succeeded")
	}
	if obj.Get(x) != True {
		t.Errorf("Get = %#v, want true", obj.Get(x))
	}
}

func TestHasPropertyRunsNoGetter(t *testing.T) {
	e := newTestEngine(t)
	x, missing := e.Intern("x"), e.Intern("missing")
	calls := 0
	getter := e.NewFunction("get", 0, func(*Engine, Value, []Value) Value {
		calls++
		return True
	})
	proto := e.NewObject(nil)
	proto.DefineOwnProperty(x, AccessorDescriptor(getter.Value(), Undefined, AttrConfigurable))
	obj := e.NewObject(proto)

	if !proto.HasProperty(x) || !obj.HasProperty(x) {
		t.Errorf("HasProperty(x) = false, want true on holder and child")
	}
	if obj.HasProperty(missing) {
		t.Errorf("HasProperty(missing) = true")
	}
	arr := e.NewArray(True)
	if !arr.HasProperty(e.Intern("0")) || arr.HasProperty(e.Intern("1")) {
		t.Errorf("HasProperty on array indices wrong")
	}
	if calls != 0 {
		t.Errorf("getter ran %d times, want 0", calls)
	}
}

func TestPutOnNonExtensible(t *testing.T) {
	e := newTestEngine(t)
	x, y := e.Intern("x"), e.Intern("y")
	obj := e.NewObject(nil)
	obj.Put(x, FromInt(1))
	obj.PreventExtensions()

	if obj.Put(y, FromInt(2)) {
		t.Errorf("added a property to a non-extensible object")
	}
	if !obj.Put(x, FromInt(3)) || obj.Get(x) != FromInt(3) {
		t.Errorf("existing property should stay writable")
	}
}

func TestDeleteProperty(t *testing.T) {
	e := newTestEngine(t)
	x := e.Intern("x")
	obj := e.NewObject(nil)

	if !obj.DeleteProperty(x) {
		t.Errorf("deleting an absent property should succeed")
	}
	obj.DefineOwnProperty(x, DataDescriptor(FromInt(1), AttrWritable))
	if obj.DeleteProperty(x) {
		t.Errorf("deleted a non-configurable property")
	}
}

// ---------------------------------------------------------------------------
// DefineOwnProperty validation
// ---------------------------------------------------------------------------

func TestDefineDefaultsAbsentFieldsToFalse(t *testing.T) {
	e := newTestEngine(t)
	x := e.Intern("x")
	obj := e.NewObject(nil)

	if !obj.DefineOwnProperty(x, Descriptor{Value: FromInt(1), Fields: HasValue}) {
		t.Fatalf("DefineOwnProperty = false")
	}
	if attrs, _ := obj.Query(x); attrs != 0 {
		t.Errorf("attrs = %s, want none", attrs)
	}
}

func TestDefineNonConfigurableRules(t *testing.T) {
	e := newTestEngine(t)
	x := e.Intern("x")
	obj := e.NewObject(nil)
	obj.DefineOwnProperty(x, DataDescriptor(FromInt(1), AttrWritable))

	tests := []struct {
		name string
		d    Descriptor
		want bool
	}{
		{"empty", Descriptor{}, true},
		{"same value", Descriptor{Value: FromInt(1), Fields: HasValue}, true},
		{"make configurable", Descriptor{Attrs: AttrConfigurable, Fields: HasConfigurable}, false},
		{"make enumerable", Descriptor{Attrs: AttrEnumerable, Fields: HasEnumerable}, false},
		{"to accessor", AccessorDescriptor(Undefined, Undefined, 0), false},
		{"new value while writable", Descriptor{Value: FromInt(2), Fields: HasValue}, true},
		{"drop writable", Descriptor{Fields: HasWritable}, true},
		{"new value while read-only", Descriptor{Value: FromInt(3), Fields: HasValue}, false},
		{"restore writable", Descriptor{Attrs: AttrWritable, Fields: HasWritable}, false},
		{"same value while read-only", Descriptor{Value: FromInt(2), Fields: HasValue}, true},
	}
	for _, tt := range tests {
		if got := obj.DefineOwnProperty(x, tt.d); got != tt.want {
			t.Errorf("%s: DefineOwnProperty = %v, want %v", tt.name, got, tt.want)
		}
	}
	if obj.Get(x) != FromInt(2) {
		t.Errorf("value = %#v, want 2", obj.Get(x))
	}
	if attrs, _ := obj.Query(x); attrs != 0 {
		t.Errorf("attrs = %s, want none", attrs)
	}
}

func TestDefineConvertsDataToAccessor(t *testing.T) {
	e := newTestEngine(t)
	x := e.Intern("x")
	obj := e.NewObject(nil)
	obj.Put(x, FromInt(1))
	before := obj.Shape()

	getter := constGetter(e, FromInt(42))
	if !obj.DefineOwnProperty(x, Descriptor{Get: getter.Value(), Fields: HasGet}) {
		t.Fatalf("conversion to accessor failed")
	}
	if obj.Shape() == before {
		t.Errorf("attribute change kept the old shape")
	}
	if obj.Get(x) != FromInt(42) {
		t.Errorf("Get = %#v, want 42", obj.Get(x))
	}
	info, _ := obj.GetOwnProperty(x)
	want := PropertyInfo{Attrs: AttrAccessor | AttrEnumerable | AttrConfigurable, Value: Undefined, Get: getter.Value(), Set: Undefined}
	if diff := cmp.Diff(want, info); diff != "" {
		t.Errorf("GetOwnProperty (-want +got):\n%s", diff)
	}

	// And back to data.
	if !obj.DefineOwnProperty(x, Descriptor{Value: FromInt(9), Fields: HasValue}) {
		t.Fatalf("conversion to data failed")
	}
	if attrs, _ := obj.Query(x); attrs != AttrEnumerable|AttrConfigurable {
		t.Errorf("attrs = %s, want D:-ec", attrs)
	}
	if obj.Get(x) != FromInt(9) {
		t.Errorf("Get = %#v, want 9", obj.Get(x))
	}
}

func TestDefineNonConfigurableAccessor(t *testing.T) {
	e := newTestEngine(t)
	x := e.Intern("x")
	obj := e.NewObject(nil)
	g1, g2 := constGetter(e, True), constGetter(e, False)
	obj.DefineOwnProperty(x, AccessorDescriptor(g1.Value(), Undefined, 0))

	if obj.DefineOwnProperty(x, Descriptor{Get: g2.Value(), Fields: HasGet}) {
		t.Errorf("replaced the getter of a non-configurable accessor")
	}
	if !obj.DefineOwnProperty(x, Descriptor{Get: g1.Value(), Fields: HasGet}) {
		t.Errorf("redefining with the same getter failed")
	}
	if obj.DefineOwnProperty(x, Descriptor{Value: True, Fields: HasValue}) {
		t.Errorf("converted a non-configurable accessor to data")
	}
}

func TestDefineRejectsBadDescriptors(t *testing.T) {
	e := newTestEngine(t)
	x := e.Intern("x")
	obj := e.NewObject(nil)

	if obj.DefineOwnProperty(x, Descriptor{Get: FromInt(1), Fields: HasGet}) {
		t.Errorf("accepted a non-callable getter")
	}
	mixed := Descriptor{Value: True, Get: Undefined, Fields: HasValue | HasGet}
	if obj.DefineOwnProperty(x, mixed) {
		t.Errorf("accepted a descriptor that is both data and accessor")
	}
	obj.PreventExtensions()
	if obj.DefineOwnProperty(x, DataDescriptor(True, AttrData)) {
		t.Errorf("defined on a non-extensible object")
	}
}

// ---------------------------------------------------------------------------
// Kinds
// ---------------------------------------------------------------------------

func TestStringWrapper(t *testing.T) {
	e := newTestEngine(t)
	length := e.Intern("length")
	s := e.NewStringObject("abc")

	if got := e.String(s.GetIndexed(1)); got != "b" {
		t.Errorf("GetIndexed(1) = %q, want %q", got, "b")
	}
	if got := s.Get(e.Intern("2")); e.String(got) != "c" {
		t.Errorf("Get(\"2\") = %#v", got)
	}
	if s.Get(length) != FromInt(3) {
		t.Errorf("length = %#v, want 3", s.Get(length))
	}
	if attrs, ok := s.QueryIndexed(0); !ok || attrs != AttrEnumerable {
		t.Errorf("QueryIndexed(0) = %s, %v", attrs, ok)
	}
	if s.PutIndexed(0, True) || s.DeleteIndexedProperty(0) || s.Put(length, FromInt(1)) {
		t.Errorf("character or length was modified")
	}
	if !s.DefineOwnIndexedProperty(0, Descriptor{Attrs: AttrEnumerable, Fields: HasEnumerable}) {
		t.Errorf("no-op redefinition of a character failed")
	}
	if s.DefineOwnIndexedProperty(0, Descriptor{Value: True, Fields: HasValue}) {
		t.Errorf("redefined a character")
	}
	if !s.PutIndexed(5, True) || s.GetIndexed(5) != True {
		t.Errorf("index beyond the characters should be ordinary")
	}
	if s.Length() != 3 {
		t.Errorf("Length() = %d, want 3", s.Length())
	}
}

func TestFunctionObject(t *testing.T) {
	e := newTestEngine(t)
	length, name := e.Intern("length"), e.Intern("name")
	double := e.NewFunction("double", 1, func(_ *Engine, _ Value, args []Value) Value {
		return FromInt(int(args[0].SmallInt()) * 2)
	})

	if got := e.Call(double.Value(), Undefined, FromInt(21)); got != FromInt(42) {
		t.Errorf("Call = %#v, want 42", got)
	}
	if double.Get(length) != FromInt(1) || e.String(double.Get(name)) != "double" {
		t.Errorf("length/name wrong")
	}
	if attrs, _ := double.Query(length); attrs != AttrConfigurable {
		t.Errorf("length attrs = %s, want D:--c", attrs)
	}
	if double.Put(length, FromInt(3)) {
		t.Errorf("wrote read-only length")
	}
	if !double.DeleteProperty(length) || double.HasOwnProperty(length) {
		t.Errorf("configurable length not deleted")
	}
	if e.Call(FromInt(1), Undefined) != Undefined {
		t.Errorf("calling a non-function should yield undefined")
	}
}

func TestArrayLengthAttributes(t *testing.T) {
	e := newTestEngine(t)
	arr := e.NewArray(True)
	attrs, ok := arr.Query(e.Intern("length"))
	if !ok || attrs != AttrWritable {
		t.Errorf("Query(length) = %s, %v; want D:w--", attrs, ok)
	}
	if arr.DeleteProperty(e.Intern("length")) {
		t.Errorf("deleted array length")
	}
	if arr.DefineOwnProperty(e.Intern("length"), Descriptor{Attrs: AttrEnumerable, Fields: HasEnumerable}) {
		t.Errorf("made length enumerable")
	}
}

// ---------------------------------------------------------------------------
// Strict-mode reporting
// ---------------------------------------------------------------------------

func TestStrictHelpers(t *testing.T) {
	e := newTestEngine(t)
	x, y := e.Intern("x"), e.Intern("y")
	obj := e.NewObject(nil)
	obj.Put(x, FromInt(1))
	obj.Freeze()

	if err := obj.PutStrict(x, FromInt(2), false); err != nil {
		t.Errorf("non-strict PutStrict = %v, want nil", err)
	}
	err := obj.PutStrict(x, FromInt(2), true)
	if !errors.Is(err, ErrNotWritable) {
		t.Errorf("PutStrict(x) = %v, want ErrNotWritable", err)
	}
	var ae *AttributeError
	if !errors.As(err, &ae) || ae.Name != "x" || ae.Op != "put" {
		t.Errorf("PutStrict error = %#v", err)
	}
	if err := obj.PutStrict(y, True, true); !errors.Is(err, ErrNotExtensible) {
		t.Errorf("PutStrict(y) = %v, want ErrNotExtensible", err)
	}
	if err := obj.DeleteStrict(x, true); !errors.Is(err, ErrNotConfigurable) {
		t.Errorf("DeleteStrict = %v, want ErrNotConfigurable", err)
	}
	if err := obj.DefineStrict(y, DataDescriptor(True, AttrData)); !errors.Is(err, ErrNotExtensible) {
		t.Errorf("DefineStrict = %v, want ErrNotExtensible", err)
	}

	arr := e.NewArray()
	if err := arr.PutStrict(e.Intern("length"), FromInt(-1), true); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("PutStrict(length, -1) = %v, want ErrInvalidLength", err)
	}
}
