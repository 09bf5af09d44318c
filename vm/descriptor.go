package vm

import "strings"

// Attributes is the per-property attribute bitset stored in a shape.
type Attributes uint8

const (
	AttrWritable Attributes = 1 << iota
	AttrEnumerable
	AttrConfigurable
	// AttrAccessor marks the slot as holding a getter/setter pair.
	AttrAccessor
)

// AttrData is the attribute set produced by plain assignment.
const AttrData = AttrWritable | AttrEnumerable | AttrConfigurable

func (a Attributes) IsWritable() bool     { return a&AttrWritable != 0 }
func (a Attributes) IsEnumerable() bool   { return a&AttrEnumerable != 0 }
func (a Attributes) IsConfigurable() bool { return a&AttrConfigurable != 0 }
func (a Attributes) IsAccessor() bool     { return a&AttrAccessor != 0 }
func (a Attributes) IsData() bool         { return a&AttrAccessor == 0 }

// normalize drops bits that carry no meaning for the property type.
func (a Attributes) normalize() Attributes {
	if a.IsAccessor() {
		return a &^ AttrWritable
	}
	return a
}

func (a Attributes) String() string {
	var b strings.Builder
	flag := func(set bool, c byte) {
		if set {
			b.WriteByte(c)
		} else {
			b.WriteByte('-')
		}
	}
	if a.IsAccessor() {
		b.WriteString("A:")
	} else {
		b.WriteString("D:")
	}
	flag(a.IsWritable(), 'w')
	flag(a.IsEnumerable(), 'e')
	flag(a.IsConfigurable(), 'c')
	return b.String()
}

// DescFields records which fields of a Descriptor are present.
type DescFields uint8

const (
	HasValue DescFields = 1 << iota
	HasWritable
	HasEnumerable
	HasConfigurable
	HasGet
	HasSet
)

// Descriptor is a (possibly partial) property descriptor as passed to
// DefineOwnProperty. Absent fields leave the current property unchanged.
type Descriptor struct {
	Value  Value
	Get    Value // function object or Undefined
	Set    Value // function object or Undefined
	Attrs  Attributes
	Fields DescFields
}

// DataDescriptor builds a fully populated data descriptor.
func DataDescriptor(v Value, attrs Attributes) Descriptor {
	return Descriptor{
		Value:  v,
		Get:    Undefined,
		Set:    Undefined,
		Attrs:  attrs &^ AttrAccessor,
		Fields: HasValue | HasWritable | HasEnumerable | HasConfigurable,
	}
}

// AccessorDescriptor builds a fully populated accessor descriptor. Either
// function may be Undefined.
func AccessorDescriptor(get, set Value, attrs Attributes) Descriptor {
	return Descriptor{
		Value:  Undefined,
		Get:    get,
		Set:    set,
		Attrs:  (attrs | AttrAccessor) &^ AttrWritable,
		Fields: HasGet | HasSet | HasEnumerable | HasConfigurable,
	}
}

func (d *Descriptor) has(f DescFields) bool { return d.Fields&f != 0 }

// IsAccessor reports whether d describes an accessor property.
func (d *Descriptor) IsAccessor() bool { return d.has(HasGet | HasSet) }

// IsData reports whether d describes a data property.
func (d *Descriptor) IsData() bool { return d.has(HasValue | HasWritable) }

// IsGeneric reports whether d is neither data nor accessor.
func (d *Descriptor) IsGeneric() bool { return !d.IsAccessor() && !d.IsData() }

// IsEmpty reports whether no field is present.
func (d *Descriptor) IsEmpty() bool { return d.Fields == 0 }

// attrsOver merges the present attribute fields of d over current.
func (d *Descriptor) attrsOver(current Attributes) Attributes {
	out := current
	set := func(f DescFields, bit Attributes) {
		if d.has(f) {
			out = out&^bit | d.Attrs&bit
		}
	}
	set(HasWritable, AttrWritable)
	set(HasEnumerable, AttrEnumerable)
	set(HasConfigurable, AttrConfigurable)
	return out
}

// fullyPopulated returns the attributes a new property created from d gets:
// absent booleans default to false.
func (d *Descriptor) fullyPopulated() Attributes {
	a := d.attrsOver(0)
	if d.IsAccessor() {
		a |= AttrAccessor
	}
	return a.normalize()
}

// PropertyInfo is the result of a query: attributes plus the stored value or
// accessor functions.
type PropertyInfo struct {
	Attrs Attributes
	Value Value
	Get   Value
	Set   Value
}

// Descriptor converts the info to a fully populated descriptor.
func (p PropertyInfo) Descriptor() Descriptor {
	if p.Attrs.IsAccessor() {
		return AccessorDescriptor(p.Get, p.Set, p.Attrs)
	}
	return DataDescriptor(p.Value, p.Attrs)
}
