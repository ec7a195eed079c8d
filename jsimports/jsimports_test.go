package jsimports_test

import (
	"testing"

	"github.com/wasmgo/jsbridge/jsimports"
	"github.com/wasmgo/jsbridge/sysshim"
	"github.com/wasmgo/jsbridge/valuetable"
)

func TestInstallAmbientGlobalsExposesMathAbs(t *testing.T) {
	table := valuetable.New()
	shim := sysshim.New(nil)
	jsimports.InstallAmbientGlobals(table.Global(), shim, []string{"js", "wasm"}, map[string]string{"A": "1"})

	mathObj, ok := table.Global().Props["Math"].(*valuetable.Object)
	if !ok {
		t.Fatalf("Math not installed as an object")
	}
	abs, ok := mathObj.Props["abs"].(*valuetable.Function)
	if !ok {
		t.Fatalf("Math.abs not installed as a function")
	}
	result, err := abs.Invoke(mathObj, []any{float64(-4)})
	if err != nil {
		t.Fatalf("Math.abs invoke: %v", err)
	}
	if result.(float64) != 4 {
		t.Fatalf("Math.abs(-4) = %v, want 4", result)
	}
}

func TestInstallAmbientGlobalsProcessArgv(t *testing.T) {
	table := valuetable.New()
	shim := sysshim.New(nil)
	jsimports.InstallAmbientGlobals(table.Global(), shim, []string{"js", "wasm"}, nil)

	proc, ok := table.Global().Props["process"].(*valuetable.Object)
	if !ok {
		t.Fatalf("process not installed as an object")
	}
	argv, ok := proc.Props["argv"].(*valuetable.Object)
	if !ok {
		t.Fatalf("process.argv not installed as an object")
	}
	if len(argv.Array) != 2 || argv.Array[0] != "js" || argv.Array[1] != "wasm" {
		t.Fatalf("process.argv = %v, want [js wasm]", argv.Array)
	}
}

func TestFsWriteSyncGoesThroughShim(t *testing.T) {
	var got []byte
	sink := writerFunc(func(p []byte) (int, error) {
		got = append(got, p...)
		return len(p), nil
	})
	shim := sysshim.New(sink)
	table := valuetable.New()
	jsimports.InstallAmbientGlobals(table.Global(), shim, nil, nil)

	fsObj := table.Global().Props["fs"].(*valuetable.Object)
	writeSync := fsObj.Props["writeSync"].(*valuetable.Function)
	buf := &valuetable.Object{Bytes: []byte("hello\n")}
	if _, err := writeSync.Invoke(fsObj, []any{float64(1), buf}); err != nil {
		t.Fatalf("writeSync: %v", err)
	}
	if string(got) != "hello\n" {
		t.Fatalf("sink got %q, want %q", got, "hello\n")
	}
}

func TestFsOpenIsNotImplemented(t *testing.T) {
	shim := sysshim.New(nil)
	table := valuetable.New()
	jsimports.InstallAmbientGlobals(table.Global(), shim, nil, nil)

	fsObj := table.Global().Props["fs"].(*valuetable.Object)
	open := fsObj.Props["open"].(*valuetable.Function)
	if _, err := open.Invoke(fsObj, nil); err == nil {
		t.Fatalf("expected fs.open to report not implemented")
	}
}

func TestProcessCwdAndGroupsAreNotImplemented(t *testing.T) {
	shim := sysshim.New(nil)
	table := valuetable.New()
	jsimports.InstallAmbientGlobals(table.Global(), shim, nil, nil)

	proc := table.Global().Props["process"].(*valuetable.Object)
	for _, op := range []string{"cwd", "chdir", "getgroups", "umask"} {
		fn, ok := proc.Props[op].(*valuetable.Function)
		if !ok {
			t.Fatalf("process.%s not installed as a function", op)
		}
		if _, err := fn.Invoke(proc, nil); err == nil {
			t.Fatalf("expected process.%s to report not implemented", op)
		}
	}
}

func TestFsFsyncIsANoOp(t *testing.T) {
	shim := sysshim.New(nil)
	table := valuetable.New()
	jsimports.InstallAmbientGlobals(table.Global(), shim, nil, nil)

	fsObj := table.Global().Props["fs"].(*valuetable.Object)
	fsync, ok := fsObj.Props["fsync"].(*valuetable.Function)
	if !ok {
		t.Fatalf("fs.fsync not installed as a function")
	}
	if _, err := fsync.Invoke(fsObj, []any{float64(1)}); err != nil {
		t.Fatalf("fsync: %v", err)
	}
}

func TestProcessIdentityFunctionsReturnMinusOne(t *testing.T) {
	shim := sysshim.New(nil)
	table := valuetable.New()
	jsimports.InstallAmbientGlobals(table.Global(), shim, nil, nil)

	proc := table.Global().Props["process"].(*valuetable.Object)
	for _, op := range []string{"getuid", "getgid", "geteuid", "getegid"} {
		fn, ok := proc.Props[op].(*valuetable.Function)
		if !ok {
			t.Fatalf("process.%s not installed as a function", op)
		}
		result, err := fn.Invoke(proc, nil)
		if err != nil {
			t.Fatalf("process.%s: %v", op, err)
		}
		if result.(float64) != -1 {
			t.Fatalf("process.%s() = %v, want -1", op, result)
		}
	}
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
