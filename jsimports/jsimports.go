// Package jsimports implements the Import Table: the concrete host
// functions a guest links against under the "go" module namespace, each
// reading its operands from linear memory at fixed offsets relative to the
// guest-supplied stack pointer and writing results back the same way.
package jsimports

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wasmgo/jsbridge/memview"
	"github.com/wasmgo/jsbridge/sysshim"
	"github.com/wasmgo/jsbridge/timersvc"
	"github.com/wasmgo/jsbridge/valuetable"
)

// Host is the set of driver-owned resources the import handlers need.
// runtime.Instance implements this.
type Host interface {
	Table() *valuetable.Table
	Shim() *sysshim.Shim
	Timers() *timersvc.Service
	Logger() *zap.Logger
	RandReader() io.Reader
	TimeOrigin() time.Time
	Exit(code int32)
}

type imports struct {
	host Host
}

// Register builds the "go" host module with every import the guest's
// runtime expects and instantiates it against rt.
func Register(ctx context.Context, rt wazero.Runtime, host Host) (api.Module, error) {
	im := &imports{host: host}
	b := rt.NewHostModuleBuilder("go")

	i32 := api.ValueTypeI32
	add := func(name string, fn api.GoModuleFunc) {
		b.NewFunctionBuilder().WithGoModuleFunction(fn, []api.ValueType{i32}, nil).Export(name)
	}

	add("runtime.wasmExit", im.wasmExit)
	add("runtime.wasmWrite", im.wasmWrite)
	add("runtime.resetMemoryDataView", im.resetMemoryDataView)
	add("runtime.nanotime1", im.nanotime1)
	add("runtime.walltime", im.walltime)
	add("runtime.scheduleTimeoutEvent", im.scheduleTimeoutEvent)
	add("runtime.clearTimeoutEvent", im.clearTimeoutEvent)
	add("runtime.getRandomData", im.getRandomData)
	add("syscall/js.finalizeRef", im.finalizeRef)
	add("syscall/js.stringVal", im.stringVal)
	add("syscall/js.valueGet", im.valueGet)
	add("syscall/js.valueSet", im.valueSet)
	add("syscall/js.valueDelete", im.valueDelete)
	add("syscall/js.valueIndex", im.valueIndex)
	add("syscall/js.valueSetIndex", im.valueSetIndex)
	add("syscall/js.valueCall", im.valueCall)
	add("syscall/js.valueInvoke", im.valueInvoke)
	add("syscall/js.valueNew", im.valueNew)
	add("syscall/js.valueLength", im.valueLength)
	add("syscall/js.valuePrepareString", im.valuePrepareString)
	add("syscall/js.valueLoadString", im.valueLoadString)
	add("syscall/js.valueInstanceOf", im.valueInstanceOf)
	add("syscall/js.copyBytesToGo", im.copyBytesToGo)
	add("syscall/js.copyBytesToJS", im.copyBytesToJS)
	add("debug", im.debug)

	return b.Instantiate(ctx)
}

func sp(stack []uint64) uint32 {
	return uint32(stack[0])
}

// refreshSP re-reads the guest's stack pointer through its getsp export.
// Required after any handler that may have re-entered the guest (a
// reflective call whose target turned out to be a func-wrapper), since the
// guest's own stack may have grown and relocated.
func refreshSP(ctx context.Context, mod api.Module) (uint32, error) {
	fn := mod.ExportedFunction("getsp")
	results, err := fn.Call(ctx)
	if err != nil {
		return 0, err
	}
	return uint32(results[0]), nil
}

func (im *imports) wasmExit(ctx context.Context, mod api.Module, stack []uint64) {
	view := memview.New(mod.Memory())
	code, err := view.GetInt32(sp(stack) + 8)
	if err != nil {
		return
	}
	im.host.Exit(code)
}

func (im *imports) wasmWrite(ctx context.Context, mod api.Module, stack []uint64) {
	view := memview.New(mod.Memory())
	base := sp(stack)
	fd, err := view.GetInt64(base + 8)
	if err != nil {
		return
	}
	ptr, err := view.GetInt64(base + 16)
	if err != nil {
		return
	}
	n, err := view.GetInt32(base + 24)
	if err != nil {
		return
	}
	data, ok := mod.Memory().Read(uint32(ptr), uint32(n))
	if !ok {
		return
	}
	_, _ = im.host.Shim().Write(fd, data)
}

func (im *imports) resetMemoryDataView(ctx context.Context, mod api.Module, stack []uint64) {
	// wazero's api.Memory always reflects the guest's current buffer, so
	// there is no detached view to rebuild; this exists purely to satisfy
	// the guest's ABI expectations.
	im.host.Logger().Sugar().Debugf("resetMemoryDataView called")
}

func (im *imports) nanotime1(ctx context.Context, mod api.Module, stack []uint64) {
	view := memview.New(mod.Memory())
	origin := im.host.TimeOrigin()
	elapsed := time.Since(origin)
	_ = view.SetInt64(sp(stack)+8, origin.UnixNano()+elapsed.Nanoseconds())
}

func (im *imports) walltime(ctx context.Context, mod api.Module, stack []uint64) {
	view := memview.New(mod.Memory())
	now := time.Now()
	base := sp(stack)
	_ = view.SetInt64(base+8, now.Unix())
	_ = view.SetInt32(base+16, int32(now.Nanosecond()))
}

func (im *imports) scheduleTimeoutEvent(ctx context.Context, mod api.Module, stack []uint64) {
	view := memview.New(mod.Memory())
	base := sp(stack)
	delay, err := view.GetInt64(base + 8)
	if err != nil {
		return
	}
	id := im.host.Timers().Schedule(delay)
	_ = view.SetUint32(base+16, id)
}

func (im *imports) clearTimeoutEvent(ctx context.Context, mod api.Module, stack []uint64) {
	view := memview.New(mod.Memory())
	id, err := view.GetUint32(sp(stack) + 8)
	if err != nil {
		return
	}
	im.host.Timers().Clear(id)
}

func (im *imports) getRandomData(ctx context.Context, mod api.Module, stack []uint64) {
	view := memview.New(mod.Memory())
	base := sp(stack)
	ptr, err := view.GetInt64(base + 8)
	if err != nil {
		return
	}
	n, err := view.GetInt64(base + 16)
	if err != nil {
		return
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(im.host.RandReader(), buf); err != nil {
		return
	}
	_ = mod.Memory().Write(uint32(ptr), buf)
}

func (im *imports) finalizeRef(ctx context.Context, mod api.Module, stack []uint64) {
	view := memview.New(mod.Memory())
	id, err := view.GetUint32(sp(stack) + 8)
	if err != nil {
		return
	}
	im.host.Table().RemoveRef(id)
}

func (im *imports) stringVal(ctx context.Context, mod api.Module, stack []uint64) {
	view := memview.New(mod.Memory())
	base := sp(stack)
	s, err := view.LoadString(base + 8)
	if err != nil {
		return
	}
	_ = im.host.Table().Store(view, base+24, s)
}

// valueString coerces v to its JS-visible string form, mirroring
// syscall/js's jsString coercion for string, boolean and number types.
func valueString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) {
			return strconv.FormatFloat(t, 'f', -1, 64)
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case valuetable.Null:
		return "null"
	case valuetable.Undefined:
		return "undefined"
	case *valuetable.Object:
		return "[object Object]"
	case *valuetable.Function:
		return "function () { [native code] }"
	default:
		return fmt.Sprintf("%v", t)
	}
}

func (im *imports) valueGet(ctx context.Context, mod api.Module, stack []uint64) {
	view := memview.New(mod.Memory())
	base := sp(stack)
	recv, err := im.host.Table().Load(view, base+8)
	if err != nil {
		return
	}
	key, err := view.LoadString(base + 16)
	if err != nil {
		return
	}
	result := getProperty(recv, key)

	newSP, err := refreshSP(ctx, mod)
	if err != nil {
		return
	}
	view = memview.New(mod.Memory())
	_ = im.host.Table().Store(view, newSP+32, result)
}

func (im *imports) valueSet(ctx context.Context, mod api.Module, stack []uint64) {
	view := memview.New(mod.Memory())
	base := sp(stack)
	recv, err := im.host.Table().Load(view, base+8)
	if err != nil {
		return
	}
	key, err := view.LoadString(base + 16)
	if err != nil {
		return
	}
	val, err := im.host.Table().Load(view, base+32)
	if err != nil {
		return
	}
	setProperty(recv, key, val)
}

func (im *imports) valueDelete(ctx context.Context, mod api.Module, stack []uint64) {
	view := memview.New(mod.Memory())
	base := sp(stack)
	recv, err := im.host.Table().Load(view, base+8)
	if err != nil {
		return
	}
	key, err := view.LoadString(base + 16)
	if err != nil {
		return
	}
	if obj, ok := recv.(*valuetable.Object); ok {
		delete(obj.Props, key)
	}
}

func (im *imports) valueIndex(ctx context.Context, mod api.Module, stack []uint64) {
	view := memview.New(mod.Memory())
	base := sp(stack)
	recv, err := im.host.Table().Load(view, base+8)
	if err != nil {
		return
	}
	idx, err := view.GetInt64(base + 16)
	if err != nil {
		return
	}
	result := getIndex(recv, int(idx))
	_ = im.host.Table().Store(view, base+24, result)
}

func (im *imports) valueSetIndex(ctx context.Context, mod api.Module, stack []uint64) {
	view := memview.New(mod.Memory())
	base := sp(stack)
	recv, err := im.host.Table().Load(view, base+8)
	if err != nil {
		return
	}
	idx, err := view.GetInt64(base + 16)
	if err != nil {
		return
	}
	val, err := im.host.Table().Load(view, base+24)
	if err != nil {
		return
	}
	setIndex(recv, int(idx), val)
}

func (im *imports) loadArgs(view *memview.View, addr uint32, n int64) ([]any, error) {
	args := make([]any, 0, n)
	for i := int64(0); i < n; i++ {
		v, err := im.host.Table().Load(view, addr+uint32(i)*8)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

func (im *imports) valueCall(ctx context.Context, mod api.Module, stack []uint64) {
	view := memview.New(mod.Memory())
	base := sp(stack)
	recv, err := im.host.Table().Load(view, base+8)
	if err != nil {
		return
	}
	method, err := view.LoadString(base + 16)
	if err != nil {
		return
	}
	argsArray, err := view.GetInt64(base + 32)
	if err != nil {
		return
	}
	argsLen, err := view.GetInt64(base + 40)
	if err != nil {
		return
	}
	args, err := im.loadArgs(view, uint32(argsArray), argsLen)
	if err != nil {
		return
	}

	result, callErr := callMethod(recv, method, args)

	newSP, err := refreshSP(ctx, mod)
	if err != nil {
		return
	}
	view = memview.New(mod.Memory())
	im.finishCall(view, newSP+56, newSP+64, result, callErr)
}

func (im *imports) valueInvoke(ctx context.Context, mod api.Module, stack []uint64) {
	view := memview.New(mod.Memory())
	base := sp(stack)
	recv, err := im.host.Table().Load(view, base+8)
	if err != nil {
		return
	}
	argsArray, err := view.GetInt64(base + 16)
	if err != nil {
		return
	}
	argsLen, err := view.GetInt64(base + 24)
	if err != nil {
		return
	}
	args, err := im.loadArgs(view, uint32(argsArray), argsLen)
	if err != nil {
		return
	}

	result, callErr := invoke(recv, args)

	newSP, err := refreshSP(ctx, mod)
	if err != nil {
		return
	}
	view = memview.New(mod.Memory())
	im.finishCall(view, newSP+40, newSP+48, result, callErr)
}

func (im *imports) valueNew(ctx context.Context, mod api.Module, stack []uint64) {
	view := memview.New(mod.Memory())
	base := sp(stack)
	recv, err := im.host.Table().Load(view, base+8)
	if err != nil {
		return
	}
	argsArray, err := view.GetInt64(base + 16)
	if err != nil {
		return
	}
	argsLen, err := view.GetInt64(base + 24)
	if err != nil {
		return
	}
	args, err := im.loadArgs(view, uint32(argsArray), argsLen)
	if err != nil {
		return
	}

	result, callErr := construct(recv, args)

	newSP, err := refreshSP(ctx, mod)
	if err != nil {
		return
	}
	view = memview.New(mod.Memory())
	im.finishCall(view, newSP+40, newSP+48, result, callErr)
}

// finishCall writes the outcome of a reflective call/invoke/new at
// resultAddr plus the success byte at okAddr. A guest-thrown error is
// stored as the result with a 0 success byte and never surfaces to the
// host caller.
func (im *imports) finishCall(view *memview.View, resultAddr, okAddr uint32, result any, callErr error) {
	if callErr != nil {
		_ = im.host.Table().Store(view, resultAddr, callErr.Error())
		_ = view.SetUint8(okAddr, 0)
		return
	}
	_ = im.host.Table().Store(view, resultAddr, result)
	_ = view.SetUint8(okAddr, 1)
}

func (im *imports) valueLength(ctx context.Context, mod api.Module, stack []uint64) {
	view := memview.New(mod.Memory())
	base := sp(stack)
	recv, err := im.host.Table().Load(view, base+8)
	if err != nil {
		return
	}
	_ = view.SetInt64(base+16, length(recv))
}

func (im *imports) valuePrepareString(ctx context.Context, mod api.Module, stack []uint64) {
	view := memview.New(mod.Memory())
	base := sp(stack)
	recv, err := im.host.Table().Load(view, base+8)
	if err != nil {
		return
	}
	s := valueString(recv)
	if err := im.host.Table().Store(view, base+16, s); err != nil {
		return
	}
	_ = view.SetInt64(base+24, int64(len(s)))
}

func (im *imports) valueLoadString(ctx context.Context, mod api.Module, stack []uint64) {
	view := memview.New(mod.Memory())
	base := sp(stack)
	recv, err := im.host.Table().Load(view, base+8)
	if err != nil {
		return
	}
	s := valueString(recv)
	dst, err := view.LoadSlice(base + 16)
	if err != nil {
		return
	}
	copy(dst, s)
}

func (im *imports) valueInstanceOf(ctx context.Context, mod api.Module, stack []uint64) {
	view := memview.New(mod.Memory())
	base := sp(stack)
	recv, err := im.host.Table().Load(view, base+8)
	if err != nil {
		return
	}
	target, err := im.host.Table().Load(view, base+16)
	if err != nil {
		return
	}
	result := uint8(0)
	if instanceOf(recv, target) {
		result = 1
	}
	_ = view.SetUint8(base+24, result)
}

func (im *imports) copyBytesToGo(ctx context.Context, mod api.Module, stack []uint64) {
	view := memview.New(mod.Memory())
	base := sp(stack)
	dstAddr, err := view.GetInt64(base + 8)
	if err != nil {
		return
	}
	dstLen, err := view.GetInt64(base + 16)
	if err != nil {
		return
	}
	srcRef, err := im.host.Table().Load(view, base+32)
	if err != nil {
		return
	}
	dst, ok := mod.Memory().Read(uint32(dstAddr), uint32(dstLen))
	if !ok {
		_ = view.SetUint8(base+48, 0)
		return
	}
	src, ok := asBytes(srcRef)
	if !ok {
		_ = view.SetUint8(base+48, 0)
		return
	}
	n := copy(dst, src)
	_ = view.SetInt64(base+40, int64(n))
	_ = view.SetUint8(base+48, 1)
}

func (im *imports) copyBytesToJS(ctx context.Context, mod api.Module, stack []uint64) {
	view := memview.New(mod.Memory())
	base := sp(stack)
	dstRef, err := im.host.Table().Load(view, base+8)
	if err != nil {
		return
	}
	srcAddr, err := view.GetInt64(base + 16)
	if err != nil {
		return
	}
	srcLen, err := view.GetInt64(base + 24)
	if err != nil {
		return
	}
	src, ok := mod.Memory().Read(uint32(srcAddr), uint32(srcLen))
	if !ok {
		_ = view.SetUint8(base+48, 0)
		return
	}
	dst, ok := asBytes(dstRef)
	if !ok {
		_ = view.SetUint8(base+48, 0)
		return
	}
	n := copy(dst, src)
	_ = view.SetInt64(base+40, int64(n))
	_ = view.SetUint8(base+48, 1)
}

func (im *imports) debug(ctx context.Context, mod api.Module, stack []uint64) {
	im.host.Logger().Sugar().Debugf("guest debug: %d", sp(stack))
}

func asBytes(v any) ([]byte, bool) {
	obj, ok := v.(*valuetable.Object)
	if !ok || obj.Bytes == nil {
		return nil, false
	}
	return obj.Bytes, true
}
