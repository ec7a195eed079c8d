// Package valuetable implements the host-side registry of values reachable
// from the guest through NaN-boxed reference ids, mirroring the _values /
// _goRefCounts / _ids / _idPool bookkeeping of a JS host bridge.
package valuetable

import (
	"math"

	"github.com/wasmgo/jsbridge/memview"
)

const (
	nanHead = 0x7FF80000

	typeFlagObject   = 1
	typeFlagString   = 2
	typeFlagSymbol   = 3
	typeFlagFunction = 4
)

// infiniteRefCount marks the seeded ids (0..6) as never collectable.
const infiniteRefCount = -1

// Seeded reference ids, fixed for the lifetime of an instance.
const (
	IDNaN          = 0
	IDZero         = 1
	IDNull         = 2
	IDTrue         = 3
	IDFalse        = 4
	IDGlobal       = 5
	IDEmbedderSelf = 6
)

// Null is the value stored at the seeded null id. It has no fields so every
// instance compares equal, letting it serve as a map key.
type Null struct{}

// Symbol is a minimal stand-in for a JS symbol; only identity matters.
type Symbol struct {
	Name string
}

// Object is a reflective property bag the guest can Get/Set/Index/Call into.
// The built-in objects (globalThis, fs, process, Math, ...) keep their
// members in Props like any plain object.
type Object struct {
	Props map[string]any
	// Delegate, when non-nil and implementing the optional getter/setter
	// interfaces in jsimports, is consulted before Props for property get
	// and set. Calls, construction and index access do not consult it.
	Delegate any
	// Array, when non-nil, makes this object array-like for valueIndex,
	// valueSetIndex and valueLength (process.argv, for example).
	Array []any
	// Bytes, when non-nil, backs copyBytesToGo/copyBytesToJS: this object
	// represents a typed byte array view over a Go-owned buffer.
	Bytes []byte
}

// NewObject creates an empty reflective object.
func NewObject() *Object {
	return &Object{Props: make(map[string]any)}
}

// Function is a guest- or host-provided callable value.
type Function struct {
	// Invoke runs the function with the given receiver ("this") and
	// arguments, returning the JS-visible result or an error representing
	// a thrown exception.
	Invoke func(this any, args []any) (any, error)
}

// Table is the per-instance value registry described by the Value Table
// component. It is not safe for concurrent use; callers must serialize
// access the same way the cooperative scheduler serializes guest entry.
type Table struct {
	values    []any
	refcounts []int64
	inverse   map[any]uint32
	freelist  []uint32

	global       *Object
	embedderSelf *Object
}

// New creates a Table seeded with ids 0..6 per the Value Table contract.
func New() *Table {
	t := &Table{
		values:    make([]any, 7),
		refcounts: make([]int64, 7),
		inverse:   make(map[any]uint32),
	}

	t.global = NewObject()
	t.embedderSelf = NewObject()

	t.values[IDNaN] = math.NaN()
	t.values[IDZero] = float64(0)
	t.values[IDNull] = Null{}
	t.values[IDTrue] = true
	t.values[IDFalse] = false
	t.values[IDGlobal] = t.global
	t.values[IDEmbedderSelf] = t.embedderSelf

	for id := range t.refcounts {
		t.refcounts[id] = infiniteRefCount
	}

	t.inverse[float64(0)] = IDZero
	t.inverse[Null{}] = IDNull
	t.inverse[true] = IDTrue
	t.inverse[false] = IDFalse
	t.inverse[t.global] = IDGlobal
	t.inverse[t.embedderSelf] = IDEmbedderSelf

	return t
}

// Global returns the seeded globalThis-equivalent object.
func (t *Table) Global() *Object { return t.global }

// EmbedderSelf returns the seeded "this" object representing the bridge
// instance itself, id 6.
func (t *Table) EmbedderSelf() *Object { return t.embedderSelf }

// Get returns the value currently stored at id, or false if id is not
// live (never allocated, or recycled and not yet reused).
func (t *Table) Get(id uint32) (any, bool) {
	if int(id) >= len(t.values) {
		return nil, false
	}
	if t.refcounts[id] == 0 {
		return nil, false
	}
	return t.values[id], true
}

func typeFlagFor(v any) uint32 {
	switch v.(type) {
	case *Object:
		return typeFlagObject
	case string:
		return typeFlagString
	case Symbol:
		return typeFlagSymbol
	case *Function:
		return typeFlagFunction
	default:
		return 0
	}
}

// inverseKey returns the value used as the inverse-map lookup key for v,
// and whether v is eligible for value-based (rather than identity-based)
// lookup at all. Objects and Functions are keyed by their own pointer,
// which Go treats as identity; everything else is keyed by value.
func inverseKey(v any) (any, bool) {
	switch v.(type) {
	case *Object, *Function, string, bool, float64, Null, Symbol:
		return v, true
	default:
		return nil, false
	}
}

func (t *Table) allocate(v any) uint32 {
	var id uint32
	if n := len(t.freelist); n > 0 {
		id = t.freelist[n-1]
		t.freelist = t.freelist[:n-1]
		t.values[id] = v
		t.refcounts[id] = 0
	} else {
		id = uint32(len(t.values))
		t.values = append(t.values, v)
		t.refcounts = append(t.refcounts, 0)
	}
	return id
}

// Store implements storeValue: encode v into the NaN-boxed slot at addr.
func (t *Table) Store(view *memview.View, addr uint32, v any) error {
	if f, ok := v.(float64); ok && f != 0 && !math.IsNaN(f) {
		return view.SetFloat64(addr, f)
	}
	if f, ok := v.(float64); ok && math.IsNaN(f) {
		if err := view.SetUint32(addr, IDNaN); err != nil {
			return err
		}
		return view.SetUint32(addr+4, nanHead)
	}
	if v == nil {
		return view.SetFloat64(addr, 0)
	}
	if _, ok := v.(Undefined); ok {
		return view.SetFloat64(addr, 0)
	}

	var id uint32
	if key, eligible := inverseKey(v); eligible {
		if existing, ok := t.inverse[key]; ok {
			id = existing
		} else {
			id = t.allocate(v)
			t.inverse[key] = id
		}
	} else {
		// Not eligible for dedup (e.g. a fresh *Object/*Function each call
		// already falls in the eligible branch above by pointer identity;
		// this path is reserved for value kinds with no stable identity).
		id = t.allocate(v)
	}

	if t.refcounts[id] != infiniteRefCount {
		t.refcounts[id]++
	}

	typeFlag := typeFlagFor(v)
	if err := view.SetUint32(addr, id); err != nil {
		return err
	}
	return view.SetUint32(addr+4, nanHead|typeFlag)
}

// Load implements loadValue: decode the NaN-boxed slot at addr.
func (t *Table) Load(view *memview.View, addr uint32) (any, error) {
	low, err := view.GetUint32(addr)
	if err != nil {
		return nil, err
	}
	high, err := view.GetUint32(addr + 4)
	if err != nil {
		return nil, err
	}
	if low == 0 && high == 0 {
		return Undefined{}, nil
	}
	bits := uint64(high)<<32 | uint64(low)
	f := math.Float64frombits(bits)
	if !math.IsNaN(f) {
		return f, nil
	}
	id := low
	v, ok := t.Get(id)
	if !ok {
		return Undefined{}, nil
	}
	return v, nil
}

// RemoveRef implements finalizeRef/removeRef: decrement the ref count for
// id, recycling it once it reaches zero. The seeded ids (0..6) have an
// infinite count and are never recycled.
func (t *Table) RemoveRef(id uint32) {
	if int(id) >= len(t.refcounts) {
		return
	}
	if t.refcounts[id] == infiniteRefCount {
		return
	}
	t.refcounts[id]--
	if t.refcounts[id] == 0 {
		if key, eligible := inverseKey(t.values[id]); eligible {
			delete(t.inverse, key)
		}
		t.values[id] = nil
		t.freelist = append(t.freelist, id)
	}
}

// Undefined represents the JS undefined value.
type Undefined struct{}
