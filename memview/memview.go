// Package memview exposes typed little-endian accessors over a guest's
// linear memory buffer, the way wasm_exec.js's DataView wrapper does for a
// JavaScript embedding.
package memview

import (
	"math"

	"github.com/wasmgo/jsbridge/errors"
)

// Memory is the subset of wazero's api.Memory this package depends on.
// Declaring it locally keeps the package testable without a wazero runtime
// and documents exactly which primitives the view needs; any api.Memory
// value satisfies it structurally.
type Memory interface {
	Read(offset, byteCount uint32) ([]byte, bool)
	Write(offset uint32, v []byte) bool
	ReadByte(offset uint32) (byte, bool)
	WriteByte(offset uint32, v byte) bool
	ReadUint32Le(offset uint32) (uint32, bool)
	WriteUint32Le(offset uint32, v uint32) bool
	ReadUint64Le(offset uint32) (uint64, bool)
	WriteUint64Le(offset uint32, v uint64) bool
}

// View wraps the guest's current linear memory with typed accessors.
// Rebind points it at a different Memory; a View over wazero's api.Memory
// keeps tracking the guest's buffer across growth without being rebound.
type View struct {
	mem Memory
}

// New creates a View bound to mem.
func New(mem Memory) *View {
	return &View{mem: mem}
}

// Rebind re-derives the view against the given memory buffer. The import
// handlers do not call it: they build a fresh View on every call, and
// runtime.resetMemoryDataView only logs.
func (v *View) Rebind(mem Memory) {
	v.mem = mem
}

func (v *View) oob(op string, addr uint32) *errors.Error {
	return errors.OutOfBounds(errors.PhaseRuntime, []string{op}, int(addr), 0)
}

// GetInt32 reads a signed little-endian 32-bit int at addr.
func (v *View) GetInt32(addr uint32) (int32, error) {
	u, ok := v.mem.ReadUint32Le(addr)
	if !ok {
		return 0, v.oob("getInt32", addr)
	}
	return int32(u), nil
}

// SetInt32 writes a signed little-endian 32-bit int at addr.
func (v *View) SetInt32(addr uint32, val int32) error {
	if !v.mem.WriteUint32Le(addr, uint32(val)) {
		return v.oob("setInt32", addr)
	}
	return nil
}

// GetUint32 reads an unsigned little-endian 32-bit int at addr.
func (v *View) GetUint32(addr uint32) (uint32, error) {
	u, ok := v.mem.ReadUint32Le(addr)
	if !ok {
		return 0, v.oob("getUint32", addr)
	}
	return u, nil
}

// SetUint32 writes an unsigned little-endian 32-bit int at addr.
func (v *View) SetUint32(addr uint32, val uint32) error {
	if !v.mem.WriteUint32Le(addr, val) {
		return v.oob("setUint32", addr)
	}
	return nil
}

// SetUint8 writes a single byte at addr.
func (v *View) SetUint8(addr uint32, val uint8) error {
	if !v.mem.WriteByte(addr, val) {
		return v.oob("setUint8", addr)
	}
	return nil
}

// GetUint8 reads a single byte at addr.
func (v *View) GetUint8(addr uint32) (uint8, error) {
	b, ok := v.mem.ReadByte(addr)
	if !ok {
		return 0, v.oob("getUint8", addr)
	}
	return b, nil
}

// GetFloat64 reads a little-endian float64 at addr.
func (v *View) GetFloat64(addr uint32) (float64, error) {
	bits, ok := v.mem.ReadUint64Le(addr)
	if !ok {
		return 0, v.oob("getFloat64", addr)
	}
	return math.Float64frombits(bits), nil
}

// SetFloat64 writes a little-endian float64 at addr.
func (v *View) SetFloat64(addr uint32, val float64) error {
	if !v.mem.WriteUint64Le(addr, math.Float64bits(val)) {
		return v.oob("setFloat64", addr)
	}
	return nil
}

// GetInt64 reads a 64-bit int synthesised from two little-endian 32-bit
// halves: low word at addr, high word at addr+4. The sign comes from the
// high word, matching wasm_exec.js's getInt64.
func (v *View) GetInt64(addr uint32) (int64, error) {
	low, err := v.GetUint32(addr)
	if err != nil {
		return 0, err
	}
	high, err := v.GetInt32(addr + 4)
	if err != nil {
		return 0, err
	}
	return int64(high)*4294967296 + int64(low), nil
}

// SetInt64 writes val as two little-endian 32-bit halves at addr/addr+4.
func (v *View) SetInt64(addr uint32, val int64) error {
	low := uint32(uint64(val) & 0xFFFFFFFF)
	high := uint32(uint64(val) >> 32)
	if err := v.SetUint32(addr, low); err != nil {
		return err
	}
	return v.SetUint32(addr+4, high)
}

// LoadSlice reads a (ptr, len) pair at addr, addr+8 and returns the backing
// bytes. The returned slice aliases guest memory: writes through it mutate
// the guest, and it must be re-read after any memory growth.
func (v *View) LoadSlice(addr uint32) ([]byte, error) {
	ptr, err := v.GetInt64(addr)
	if err != nil {
		return nil, err
	}
	ln, err := v.GetInt64(addr + 8)
	if err != nil {
		return nil, err
	}
	if ln == 0 {
		return nil, nil
	}
	data, ok := v.mem.Read(uint32(ptr), uint32(ln))
	if !ok {
		return nil, v.oob("loadSlice", uint32(ptr))
	}
	return data, nil
}

// LoadString reads a (ptr, len) pair at addr, addr+8 and decodes it as UTF-8.
func (v *View) LoadString(addr uint32) (string, error) {
	b, err := v.LoadSlice(addr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WriteBytes copies data into guest memory starting at addr.
func (v *View) WriteBytes(addr uint32, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if !v.mem.Write(addr, data) {
		return v.oob("writeBytes", addr)
	}
	return nil
}
