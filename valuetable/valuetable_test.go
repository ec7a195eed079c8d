package valuetable_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/wasmgo/jsbridge/memview"
	"github.com/wasmgo/jsbridge/valuetable"
)

type fakeMemory struct{ buf []byte }

func newFakeMemory(size int) *fakeMemory { return &fakeMemory{buf: make([]byte, size)} }

func (f *fakeMemory) Read(offset, n uint32) ([]byte, bool) {
	if uint64(offset)+uint64(n) > uint64(len(f.buf)) {
		return nil, false
	}
	return f.buf[offset : offset+n], true
}
func (f *fakeMemory) Write(offset uint32, v []byte) bool {
	if uint64(offset)+uint64(len(v)) > uint64(len(f.buf)) {
		return false
	}
	copy(f.buf[offset:], v)
	return true
}
func (f *fakeMemory) ReadByte(offset uint32) (byte, bool) {
	if int(offset) >= len(f.buf) {
		return 0, false
	}
	return f.buf[offset], true
}
func (f *fakeMemory) WriteByte(offset uint32, v byte) bool {
	if int(offset) >= len(f.buf) {
		return false
	}
	f.buf[offset] = v
	return true
}
func (f *fakeMemory) ReadUint32Le(offset uint32) (uint32, bool) {
	if uint64(offset)+4 > uint64(len(f.buf)) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(f.buf[offset:]), true
}
func (f *fakeMemory) WriteUint32Le(offset uint32, v uint32) bool {
	if uint64(offset)+4 > uint64(len(f.buf)) {
		return false
	}
	binary.LittleEndian.PutUint32(f.buf[offset:], v)
	return true
}
func (f *fakeMemory) ReadUint64Le(offset uint32) (uint64, bool) {
	if uint64(offset)+8 > uint64(len(f.buf)) {
		return 0, false
	}
	return binary.LittleEndian.Uint64(f.buf[offset:]), true
}
func (f *fakeMemory) WriteUint64Le(offset uint32, v uint64) bool {
	if uint64(offset)+8 > uint64(len(f.buf)) {
		return false
	}
	binary.LittleEndian.PutUint64(f.buf[offset:], v)
	return true
}

func newView() (*memview.View, *fakeMemory) {
	mem := newFakeMemory(256)
	return memview.New(mem), mem
}

func TestRoundTripObject(t *testing.T) {
	view, _ := newView()
	table := valuetable.New()

	obj := valuetable.NewObject()
	obj.Props["x"] = float64(1)

	if err := table.Store(view, 0, obj); err != nil {
		t.Fatalf("Store: %v", err)
	}
	got, err := table.Load(view, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.(*valuetable.Object) != obj {
		t.Fatalf("round-tripped object lost identity")
	}
}

func TestEncodingSpecifics(t *testing.T) {
	view, mem := newView()
	table := valuetable.New()

	if err := table.Store(view, 0, valuetable.Undefined{}); err != nil {
		t.Fatalf("Store undefined: %v", err)
	}
	for i := 0; i < 8; i++ {
		if mem.buf[i] != 0 {
			t.Fatalf("undefined did not write eight zero bytes, byte %d = %d", i, mem.buf[i])
		}
	}

	if err := table.Store(view, 8, math.NaN()); err != nil {
		t.Fatalf("Store NaN: %v", err)
	}
	low, _ := mem.ReadUint32Le(8)
	high, _ := mem.ReadUint32Le(12)
	if low != 0 || high != 0x7FF80000 {
		t.Fatalf("NaN encoding = (low=%#x, high=%#x), want (0, 0x7FF80000)", low, high)
	}

	obj := valuetable.NewObject()
	if err := table.Store(view, 16, obj); err != nil {
		t.Fatalf("Store object: %v", err)
	}
	low, _ = mem.ReadUint32Le(16)
	high, _ = mem.ReadUint32Le(20)
	if high != 0x7FF80001 {
		t.Fatalf("object typeFlag high word = %#x, want 0x7FF80001", high)
	}
	if low == 0 {
		t.Fatalf("object was assigned id 0, which is reserved for NaN")
	}
}

func TestSeededIDsNeverCollected(t *testing.T) {
	table := valuetable.New()
	for _, id := range []uint32{
		valuetable.IDNaN, valuetable.IDZero, valuetable.IDNull,
		valuetable.IDTrue, valuetable.IDFalse, valuetable.IDGlobal, valuetable.IDEmbedderSelf,
	} {
		table.RemoveRef(id)
		if _, ok := table.Get(id); !ok {
			t.Fatalf("seeded id %d was collected by RemoveRef", id)
		}
	}
}

func TestReferenceCountingRecyclesID(t *testing.T) {
	view, _ := newView()
	table := valuetable.New()

	obj := valuetable.NewObject()
	var lastID uint32
	seenRecycle := false
	for i := 0; i < 5; i++ {
		if err := table.Store(view, 0, obj); err != nil {
			t.Fatalf("Store: %v", err)
		}
		low, _ := view.GetUint32(0)
		if i > 0 && low == lastID {
			seenRecycle = true
		}
		lastID = low
		table.RemoveRef(low)
		if _, ok := table.Get(low); ok {
			t.Fatalf("id %d still live after RemoveRef brought count to zero", low)
		}
	}
	if !seenRecycle {
		t.Fatalf("expected the freed id to be recycled across store/remove cycles")
	}
}

func TestPrimitivesShareSeededIDs(t *testing.T) {
	view, _ := newView()
	table := valuetable.New()

	if err := table.Store(view, 0, float64(0)); err != nil {
		t.Fatalf("Store: %v", err)
	}
	low, _ := view.GetUint32(0)
	if low != valuetable.IDZero {
		t.Fatalf("storing float64(0) got id %d, want seeded id %d", low, valuetable.IDZero)
	}

	if err := table.Store(view, 0, valuetable.Null{}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	low, _ = view.GetUint32(0)
	if low != valuetable.IDNull {
		t.Fatalf("storing Null{} got id %d, want seeded id %d", low, valuetable.IDNull)
	}
}
