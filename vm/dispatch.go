package vm

import "strconv"

// ---------------------------------------------------------------------------
// Dispatch: generic property access for every object kind
// ---------------------------------------------------------------------------

// PropertyAccess is the capability set of an object. Named operations on
// names that spell an array index route to the indexed variants.
//
// Operations that can violate an attribute report false instead of failing;
// the caller decides whether that is silent or an error (see Reject).
type PropertyAccess interface {
	Get(name Name) Value
	GetIndexed(i uint32) Value
	Put(name Name, v Value) bool
	PutIndexed(i uint32, v Value) bool
	Query(name Name) (Attributes, bool)
	QueryIndexed(i uint32) (Attributes, bool)
	DeleteProperty(name Name) bool
	DeleteIndexedProperty(i uint32) bool
	DefineOwnProperty(name Name, d Descriptor) bool
	DefineOwnIndexedProperty(i uint32, d Descriptor) bool
	GetForCache(name Name) (Value, Resolution)
	SetForCache(name Name, v Value) (bool, Resolution)
}

var _ PropertyAccess = (*Object)(nil)

// Resolution records where a name was found along the prototype chain.
// Shapes holds the shape of every level visited, up to MaxLookupLevels.
type Resolution struct {
	Shapes    [MaxLookupLevels]*Shape
	Level     int
	Slot      int
	Attrs     Attributes
	Found     bool
	Cacheable bool
	Insert    *Shape // receiver shape after a cacheable property add
}

// propRef locates one own property: a named slot, an indexed position, or
// a virtual property computed from the object's kind.
type propRef struct {
	holder  *Object
	pos     int
	attrs   Attributes
	indexed bool
	virtual bool
	value   Value // virtual only
}

func (r *propRef) raw() Value {
	switch {
	case r.virtual:
		return r.value
	case r.indexed:
		return r.holder.array.values[r.pos]
	default:
		return r.holder.GetSlot(r.pos)
	}
}

func (r *propRef) read(receiver Value) Value {
	v := r.raw()
	if r.attrs.IsAccessor() {
		return r.holder.engine().callGetter(v, receiver)
	}
	return v
}

func (r *propRef) info() PropertyInfo {
	v := r.raw()
	if r.attrs.IsAccessor() {
		get, set := r.holder.engine().accessorPair(v)
		return PropertyInfo{Attrs: r.attrs, Value: Undefined, Get: get, Set: set}
	}
	return PropertyInfo{Attrs: r.attrs, Value: v, Get: Undefined, Set: Undefined}
}

// ownNamed finds a non-index own property, including kind-specific virtual
// ones.
func (o *Object) ownNamed(name Name) (propRef, bool) {
	if name == o.engine().idLength {
		switch o.kind {
		case KindArray:
			attrs := AttrWritable
			if o.lengthReadOnly {
				attrs = 0
			}
			return propRef{holder: o, attrs: attrs, virtual: true, value: FromInt(int(o.length))}, true
		case KindString:
			return propRef{holder: o, virtual: true, value: FromInt(len(o.runes()))}, true
		}
	}
	slot := o.shape.Find(name)
	if slot == NotFound {
		return propRef{}, false
	}
	return propRef{holder: o, pos: slot, attrs: o.shape.attrs[slot]}, true
}

func (o *Object) ownIndexed(i uint32) (propRef, bool) {
	if o.kind == KindString {
		if r := o.runes(); uint64(i) < uint64(len(r)) {
			ch := o.engine().NewString(string(r[i]))
			return propRef{holder: o, attrs: AttrEnumerable, virtual: true, value: ch}, true
		}
	}
	if o.array != nil {
		if pos, ok := o.array.find(i); ok {
			return propRef{holder: o, pos: pos, attrs: o.array.attrsAt(pos), indexed: true}, true
		}
	}
	return propRef{}, false
}

func (o *Object) arrayIndex(name Name) (uint32, bool) {
	return o.engine().names.ArrayIndex(name)
}

// ---------------------------------------------------------------------------
// Get
// ---------------------------------------------------------------------------

// Get returns the value of name, walking the prototype chain. Absent
// properties read as Undefined.
func (o *Object) Get(name Name) Value {
	v, _ := o.Lookup(name)
	return v
}

// Lookup is Get that also reports whether the property exists.
func (o *Object) Lookup(name Name) (Value, bool) {
	if i, ok := o.arrayIndex(name); ok {
		return o.lookupIndexed(i)
	}
	receiver := o.Value()
	for h := o; h != nil; h = h.proto {
		if r, ok := h.ownNamed(name); ok {
			return r.read(receiver), true
		}
	}
	return Undefined, false
}

// GetIndexed returns the value at index i, walking the prototype chain.
func (o *Object) GetIndexed(i uint32) Value {
	v, _ := o.lookupIndexed(i)
	return v
}

func (o *Object) lookupIndexed(i uint32) (Value, bool) {
	if i == noIndex {
		return o.Lookup(o.engine().Intern(strconv.FormatUint(uint64(i), 10)))
	}
	receiver := o.Value()
	for h := o; h != nil; h = h.proto {
		if r, ok := h.ownIndexed(i); ok {
			return r.read(receiver), true
		}
	}
	return Undefined, false
}

// HasProperty reports whether name exists on o or its prototypes. It never
// runs getters.
func (o *Object) HasProperty(name Name) bool {
	i, isIndex := o.arrayIndex(name)
	for h := o; h != nil; h = h.proto {
		var ok bool
		if isIndex {
			_, ok = h.ownIndexed(i)
		} else {
			_, ok = h.ownNamed(name)
		}
		if ok {
			return true
		}
	}
	return false
}

// HasOwnProperty reports whether name is an own property.
func (o *Object) HasOwnProperty(name Name) bool {
	_, ok := o.Query(name)
	return ok
}

// GetOwnProperty returns the attributes and raw contents of an own property.
func (o *Object) GetOwnProperty(name Name) (PropertyInfo, bool) {
	var r propRef
	var ok bool
	if i, isIndex := o.arrayIndex(name); isIndex {
		r, ok = o.ownIndexed(i)
	} else {
		r, ok = o.ownNamed(name)
	}
	if !ok {
		return PropertyInfo{}, false
	}
	return r.info(), true
}

// ---------------------------------------------------------------------------
// Put
// ---------------------------------------------------------------------------

// Put assigns name. An inherited accessor runs its setter; an inherited
// data property is shadowed by a new own property. It reports false when a
// read-only property, a missing setter or non-extensibility prevents the
// assignment.
func (o *Object) Put(name Name, v Value) bool {
	if i, ok := o.arrayIndex(name); ok {
		return o.PutIndexed(i, v)
	}
	level := 0
	for h := o; h != nil; h, level = h.proto, level+1 {
		if r, ok := h.ownNamed(name); ok {
			return o.putFound(name, v, &r, level)
		}
	}
	return o.putNew(name, v)
}

// putFound assigns name once r has been found level steps up the chain.
func (o *Object) putFound(name Name, v Value, r *propRef, level int) bool {
	switch {
	case r.attrs.IsAccessor():
		return o.engine().callSetter(r.raw(), o.Value(), v)
	case !r.attrs.IsWritable():
		return false
	case level > 0:
		return o.putNew(name, v)
	case r.virtual:
		return o.setLength(v)
	}
	o.SetSlot(r.pos, v)
	return true
}

// putNew adds name as an own data property.
func (o *Object) putNew(name Name, v Value) bool {
	if !o.extensible {
		return false
	}
	o.defineNamed(name, v, AttrData)
	return true
}

// PutIndexed assigns index i with the same rules as Put.
func (o *Object) PutIndexed(i uint32, v Value) bool {
	e := o.engine()
	if i == noIndex {
		return o.Put(e.Intern(strconv.FormatUint(uint64(i), 10)), v)
	}
	receiver := o.Value()
	if r, ok := o.ownIndexed(i); ok {
		switch {
		case r.attrs.IsAccessor():
			return e.callSetter(r.raw(), receiver, v)
		case !r.attrs.IsWritable() || r.virtual:
			return false
		}
		o.array.values[r.pos] = v
		return true
	}
	for p := o.proto; p != nil; p = p.proto {
		if r, ok := p.ownIndexed(i); ok {
			if r.attrs.IsAccessor() {
				return e.callSetter(r.raw(), receiver, v)
			}
			if !r.attrs.IsWritable() {
				return false
			}
			break
		}
	}
	return o.addIndexed(i, v, AttrData)
}

func (o *Object) addIndexed(i uint32, v Value, attrs Attributes) bool {
	if !o.extensible {
		return false
	}
	e := o.engine()
	if o.kind == KindArray && i >= o.length {
		if o.lengthReadOnly {
			return false
		}
		o.length = i + 1
	}
	if o.array == nil {
		o.array = newArrayStorage(&e.opts)
	}
	if _, converted := o.array.insert(i, v, attrs); converted {
		o.noteSparse(i)
	}
	return true
}

func (o *Object) noteSparse(i uint32) {
	e := o.engine()
	e.stats.SparseConversions++
	log.Debugf("object %d: indexed storage now sparse at index %d", o.id, i)
}

// setLength implements assignment to an array's length.
func (o *Object) setLength(v Value) bool {
	n, ok := v.ArrayLength()
	if !ok || o.lengthReadOnly {
		return false
	}
	return o.setArrayLength(n)
}

// setArrayLength truncates or extends an array. Shrinking stops above the
// highest non-configurable entry and then reports false.
func (o *Object) setArrayLength(n uint32) bool {
	ok := true
	if n < o.length && o.array != nil {
		n, ok = o.array.truncate(n)
	}
	o.length = n
	if n >= o.engine().opts.SparseLength {
		if o.array == nil {
			o.array = newArrayStorage(&o.engine().opts)
		}
		if !o.array.IsSparse() {
			o.array.convertToSparse()
			o.noteSparse(n)
		}
	}
	return ok
}

// Length returns the array length, or zero for other kinds.
func (o *Object) Length() uint32 {
	switch o.kind {
	case KindArray:
		return o.length
	case KindString:
		return uint32(len(o.runes()))
	}
	return 0
}

// Array returns the indexed storage, or nil if none was created.
func (o *Object) Array() *ArrayStorage { return o.array }

// ---------------------------------------------------------------------------
// Query and delete
// ---------------------------------------------------------------------------

// Query returns the attributes of an own property.
func (o *Object) Query(name Name) (Attributes, bool) {
	if i, ok := o.arrayIndex(name); ok {
		return o.QueryIndexed(i)
	}
	r, ok := o.ownNamed(name)
	return r.attrs, ok
}

// QueryIndexed returns the attributes of an own indexed property.
func (o *Object) QueryIndexed(i uint32) (Attributes, bool) {
	r, ok := o.ownIndexed(i)
	return r.attrs, ok
}

// DeleteProperty removes an own property. Deleting an absent property
// succeeds; deleting a non-configurable one reports false.
func (o *Object) DeleteProperty(name Name) bool {
	if i, ok := o.arrayIndex(name); ok {
		return o.DeleteIndexedProperty(i)
	}
	r, ok := o.ownNamed(name)
	if !ok {
		return true
	}
	if r.virtual || !r.attrs.IsConfigurable() {
		return false
	}
	o.removeNamed(r.pos)
	return true
}

// DeleteIndexedProperty removes an own indexed property. Array length is
// not affected.
func (o *Object) DeleteIndexedProperty(i uint32) bool {
	r, ok := o.ownIndexed(i)
	if !ok {
		return true
	}
	if r.virtual || !r.attrs.IsConfigurable() {
		return false
	}
	o.array.remove(i)
	return true
}

// ---------------------------------------------------------------------------
// DefineOwnProperty
// ---------------------------------------------------------------------------

// DefineOwnProperty creates or redefines an own property from a possibly
// partial descriptor, following the ES5 validation rules. It reports false
// when the change is not allowed.
func (o *Object) DefineOwnProperty(name Name, d Descriptor) bool {
	if i, ok := o.arrayIndex(name); ok {
		return o.DefineOwnIndexedProperty(i, d)
	}
	if !o.validDescriptor(&d) {
		return false
	}
	if o.kind == KindArray && name == o.engine().idLength {
		return o.defineLength(&d)
	}
	r, ok := o.ownNamed(name)
	if !ok {
		if !o.extensible {
			return false
		}
		o.defineNamed(name, o.initialValue(&d), d.fullyPopulated())
		return true
	}
	return o.redefine(&r, &d, name)
}

// DefineOwnIndexedProperty is DefineOwnProperty for index i.
func (o *Object) DefineOwnIndexedProperty(i uint32, d Descriptor) bool {
	if i == noIndex {
		return o.DefineOwnProperty(o.engine().Intern(strconv.FormatUint(uint64(i), 10)), d)
	}
	if !o.validDescriptor(&d) {
		return false
	}
	r, ok := o.ownIndexed(i)
	if !ok {
		return o.addIndexed(i, o.initialValue(&d), d.fullyPopulated())
	}
	return o.redefine(&r, &d, NoName)
}

func (o *Object) validDescriptor(d *Descriptor) bool {
	if d.IsAccessor() && d.IsData() {
		return false
	}
	e := o.engine()
	if d.has(HasGet) && d.Get != Undefined && !e.IsCallable(d.Get) {
		return false
	}
	if d.has(HasSet) && d.Set != Undefined && !e.IsCallable(d.Set) {
		return false
	}
	return true
}

func (o *Object) initialValue(d *Descriptor) Value {
	if d.IsAccessor() {
		get, set := Undefined, Undefined
		if d.has(HasGet) {
			get = d.Get
		}
		if d.has(HasSet) {
			set = d.Set
		}
		return o.engine().newAccessorPair(get, set)
	}
	if d.has(HasValue) {
		return d.Value
	}
	return Undefined
}

// sameAs reports whether every field present in d already matches r.
func (o *Object) sameAs(r *propRef, d *Descriptor) bool {
	cur := r.attrs
	if d.has(HasEnumerable) && d.Attrs.IsEnumerable() != cur.IsEnumerable() {
		return false
	}
	if d.has(HasConfigurable) && d.Attrs.IsConfigurable() != cur.IsConfigurable() {
		return false
	}
	if d.IsData() {
		if cur.IsAccessor() {
			return false
		}
		if d.has(HasValue) && !SameValue(d.Value, r.raw()) {
			return false
		}
		if d.has(HasWritable) && d.Attrs.IsWritable() != cur.IsWritable() {
			return false
		}
	}
	if d.IsAccessor() {
		if cur.IsData() {
			return false
		}
		get, set := o.engine().accessorPair(r.raw())
		if d.has(HasGet) && d.Get != get {
			return false
		}
		if d.has(HasSet) && d.Set != set {
			return false
		}
	}
	return true
}

func (o *Object) redefine(r *propRef, d *Descriptor, name Name) bool {
	if d.IsEmpty() || o.sameAs(r, d) {
		return true
	}
	e := o.engine()
	cur := r.attrs
	if !cur.IsConfigurable() {
		if d.has(HasConfigurable) && d.Attrs.IsConfigurable() {
			return false
		}
		if d.has(HasEnumerable) && d.Attrs.IsEnumerable() != cur.IsEnumerable() {
			return false
		}
	}

	attrs := cur
	raw := r.raw()
	switch {
	case d.IsGeneric():
	case cur.IsData() != d.IsData():
		if !cur.IsConfigurable() {
			return false
		}
		if cur.IsData() {
			attrs = (attrs | AttrAccessor) &^ AttrWritable
			raw = e.newAccessorPair(Undefined, Undefined)
		} else {
			attrs &^= AttrAccessor
			raw = Undefined
		}
	case cur.IsData():
		if !cur.IsConfigurable() && !cur.IsWritable() {
			if d.has(HasWritable) && d.Attrs.IsWritable() {
				return false
			}
			if d.has(HasValue) && !SameValue(d.Value, raw) {
				return false
			}
		}
	default:
		if !cur.IsConfigurable() {
			get, set := e.accessorPair(raw)
			if d.has(HasGet) && d.Get != get {
				return false
			}
			if d.has(HasSet) && d.Set != set {
				return false
			}
		}
	}
	if r.virtual {
		// Virtual properties are read-only and non-configurable, so only
		// no-op redefinitions get this far.
		return true
	}

	attrs = d.attrsOver(attrs).normalize()
	if attrs.IsData() {
		if d.has(HasValue) {
			raw = d.Value
		}
	} else {
		pair := e.Object(raw)
		if d.has(HasGet) {
			pair.slot0 = d.Get
		}
		if d.has(HasSet) {
			pair.slot1 = d.Set
		}
	}

	if r.indexed {
		o.array.values[r.pos] = raw
		o.array.setAttrs(r.pos, attrs)
		return true
	}
	if attrs != cur {
		o.shape = o.shape.ChangeProperty(name, attrs)
	}
	o.SetSlot(r.pos, raw)
	return true
}

// defineLength handles DefineOwnProperty("length") on arrays.
func (o *Object) defineLength(d *Descriptor) bool {
	if d.IsAccessor() {
		return false
	}
	if d.has(HasConfigurable) && d.Attrs.IsConfigurable() {
		return false
	}
	if d.has(HasEnumerable) && d.Attrs.IsEnumerable() {
		return false
	}
	makeReadOnly := d.has(HasWritable) && !d.Attrs.IsWritable()
	if o.lengthReadOnly && d.has(HasWritable) && d.Attrs.IsWritable() {
		return false
	}
	if !d.has(HasValue) {
		if makeReadOnly {
			o.lengthReadOnly = true
		}
		return true
	}
	n, ok := d.Value.ArrayLength()
	if !ok {
		return false
	}
	if o.lengthReadOnly {
		return n == o.length
	}
	ok = o.setArrayLength(n)
	if makeReadOnly {
		o.lengthReadOnly = true
	}
	return ok
}

// ---------------------------------------------------------------------------
// Cache support
// ---------------------------------------------------------------------------

// resolve walks the prototype chain for name and records the shapes seen.
func (o *Object) resolve(name Name) (propRef, Resolution) {
	var res Resolution
	i, isIndex := o.arrayIndex(name)
	level := 0
	for h := o; h != nil; h, level = h.proto, level+1 {
		if level < MaxLookupLevels {
			res.Shapes[level] = h.shape
		}
		var r propRef
		var ok bool
		if isIndex {
			r, ok = h.ownIndexed(i)
		} else {
			r, ok = h.ownNamed(name)
		}
		if !ok {
			continue
		}
		res.Found = true
		res.Level = level
		res.Slot = r.pos
		res.Attrs = r.attrs
		res.Cacheable = !isIndex && !r.virtual && level < MaxLookupLevels
		return r, res
	}
	res.Level = level
	return propRef{}, res
}

// GetForCache is Get that also reports how the value was found so a lookup
// site can specialize on it.
func (o *Object) GetForCache(name Name) (Value, Resolution) {
	r, res := o.resolve(name)
	if !res.Found {
		return Undefined, res
	}
	return r.read(o.Value()), res
}

// SetForCache is Put that also reports whether the outcome can be replayed
// from a cache. Three outcomes qualify: a write to an own writable data
// slot, a call to an accessor found within MaxLookupLevels, and a write
// that adds an own property because the name is absent or only inherited as
// writable data. For the last, Insert holds the receiver's resulting shape
// and Slot the new slot; when the name was absent, Level is the last level
// of the chain and Found is false.
func (o *Object) SetForCache(name Name, v Value) (bool, Resolution) {
	r, res := o.resolve(name)
	if _, isIndex := o.arrayIndex(name); isIndex {
		return o.Put(name, v), res
	}

	switch {
	case !res.Found:
		res.Level--
		res.Cacheable = res.Level < MaxLookupLevels
		return o.insertForCache(name, v, &res), res
	case res.Level > 0 && res.Attrs.IsData() && res.Attrs.IsWritable():
		return o.insertForCache(name, v, &res), res
	}

	ok := o.putFound(name, v, &r, res.Level)
	if res.Cacheable {
		own := res.Level == 0 && res.Attrs.IsData() && res.Attrs.IsWritable()
		res.Cacheable = own || res.Attrs.IsAccessor()
	}
	return ok, res
}

func (o *Object) insertForCache(name Name, v Value, res *Resolution) bool {
	if !o.putNew(name, v) {
		res.Cacheable = false
		return false
	}
	if res.Cacheable {
		res.Insert = o.shape
		res.Slot = o.shape.Size() - 1
	}
	return true
}
