package memview_test

import (
	"encoding/binary"
	"testing"

	"github.com/wasmgo/jsbridge/memview"
)

// fakeMemory is a minimal in-process implementation of memview.Memory
// backed by a plain byte slice, used to test the view without a wazero
// runtime.
type fakeMemory struct {
	buf []byte
}

func newFakeMemory(size int) *fakeMemory {
	return &fakeMemory{buf: make([]byte, size)}
}

func (f *fakeMemory) inBounds(offset, n uint32) bool {
	return uint64(offset)+uint64(n) <= uint64(len(f.buf))
}

func (f *fakeMemory) Read(offset, byteCount uint32) ([]byte, bool) {
	if !f.inBounds(offset, byteCount) {
		return nil, false
	}
	return f.buf[offset : offset+byteCount], true
}

func (f *fakeMemory) Write(offset uint32, v []byte) bool {
	if !f.inBounds(offset, uint32(len(v))) {
		return false
	}
	copy(f.buf[offset:], v)
	return true
}

func (f *fakeMemory) ReadByte(offset uint32) (byte, bool) {
	if !f.inBounds(offset, 1) {
		return 0, false
	}
	return f.buf[offset], true
}

func (f *fakeMemory) WriteByte(offset uint32, v byte) bool {
	if !f.inBounds(offset, 1) {
		return false
	}
	f.buf[offset] = v
	return true
}

func (f *fakeMemory) ReadUint32Le(offset uint32) (uint32, bool) {
	if !f.inBounds(offset, 4) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(f.buf[offset:]), true
}

func (f *fakeMemory) WriteUint32Le(offset uint32, v uint32) bool {
	if !f.inBounds(offset, 4) {
		return false
	}
	binary.LittleEndian.PutUint32(f.buf[offset:], v)
	return true
}

func (f *fakeMemory) ReadUint64Le(offset uint32) (uint64, bool) {
	if !f.inBounds(offset, 8) {
		return 0, false
	}
	return binary.LittleEndian.Uint64(f.buf[offset:]), true
}

func (f *fakeMemory) WriteUint64Le(offset uint32, v uint64) bool {
	if !f.inBounds(offset, 8) {
		return false
	}
	binary.LittleEndian.PutUint64(f.buf[offset:], v)
	return true
}

func TestInt64BitExactness(t *testing.T) {
	mem := newFakeMemory(64)
	v := memview.New(mem)

	if err := v.SetInt64(0, 4294967297); err != nil {
		t.Fatalf("SetInt64: %v", err)
	}
	want := []byte{0x01, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00}
	got, _ := mem.Read(0, 8)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: got %#x want %#x", i, got[i], want[i])
		}
	}

	mem.Write(8, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	n, err := v.GetInt64(8)
	if err != nil {
		t.Fatalf("GetInt64: %v", err)
	}
	if n != -1 {
		t.Fatalf("GetInt64(all-ff) = %d, want -1", n)
	}
}

func TestFloat64RoundTrip(t *testing.T) {
	mem := newFakeMemory(64)
	v := memview.New(mem)

	if err := v.SetFloat64(0, 3.14159); err != nil {
		t.Fatalf("SetFloat64: %v", err)
	}
	got, err := v.GetFloat64(0)
	if err != nil {
		t.Fatalf("GetFloat64: %v", err)
	}
	if got != 3.14159 {
		t.Fatalf("got %v want 3.14159", got)
	}
}

func TestLoadStringAndSlice(t *testing.T) {
	mem := newFakeMemory(128)
	v := memview.New(mem)

	payload := []byte("hello")
	copy(mem.buf[32:], payload)
	// addr 0 holds (ptr=32, len=5) as two int64 halves.
	_ = v.SetInt64(0, 32)
	_ = v.SetInt64(8, int64(len(payload)))

	s, err := v.LoadString(0)
	if err != nil {
		t.Fatalf("LoadString: %v", err)
	}
	if s != "hello" {
		t.Fatalf("got %q want %q", s, "hello")
	}

	sl, err := v.LoadSlice(0)
	if err != nil {
		t.Fatalf("LoadSlice: %v", err)
	}
	sl[0] = 'H'
	if mem.buf[32] != 'H' {
		t.Fatalf("LoadSlice did not alias guest memory")
	}
}

func TestRebind(t *testing.T) {
	memA := newFakeMemory(16)
	memB := newFakeMemory(16)
	v := memview.New(memA)

	_ = v.SetUint32(0, 42)
	v.Rebind(memB)
	_ = v.SetUint32(0, 7)

	if memA.buf[0] != 42 {
		t.Fatalf("original memory was mutated after rebind")
	}
	got, _ := v.GetUint32(0)
	if got != 7 {
		t.Fatalf("got %d want 7 from rebound memory", got)
	}
}

func TestOutOfBoundsReturnsError(t *testing.T) {
	mem := newFakeMemory(4)
	v := memview.New(mem)

	if _, err := v.GetFloat64(0); err == nil {
		t.Fatalf("expected out-of-bounds error reading 8 bytes from a 4-byte buffer")
	}
}
