// Package bridge is a host bridge runtime for WebAssembly modules built
// with GOOS=js GOARCH=wasm: a from-scratch Go reimplementation of the
// semantics misc/wasm/wasm_exec.js gives a browser-hosted guest, built on
// the wazero runtime instead of a JS engine.
//
// # Architecture Overview
//
// The library is organized into packages with distinct responsibilities:
//
//	bridge/               Root package: New/Run/Close public API
//	├── runtime/           Instance Driver and Func-Wrapper Factory
//	├── jsimports/          the fixed "go" import namespace and ambient globals
//	├── valuetable/         NaN-boxed reference table (the Value Table)
//	├── memview/            typed little-endian linear-memory accessors
//	├── argwriter/          argv/envp layout at the guest's reserved window
//	├── sysshim/            line-buffered console output, fs/process stubs
//	├── timersvc/           scheduleTimeoutEvent/clearTimeoutEvent
//	├── engine/             wazero runtime/module lifecycle
//	└── errors/             structured error types shared across packages
//
// # Quick Start
//
//	inst, err := bridge.New(ctx, wasmBytes, bridge.WithArgs("js", "hello"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	code, err := inst.Run(ctx)
//	fmt.Println("exit code:", code)
//
// # Value Model
//
// Every JS-visible value the guest can hold is represented NaN-boxed in
// linear memory. Numbers other than 0 are stored as plain float64 and
// undefined as all-zero bits; neither touches the Value Table. Objects,
// functions, strings and symbols get reference ids with host-side
// reference counting, while NaN, 0, null, true and false use the table's
// fixed seeded ids, which are never collected.
//
// # Thread Safety
//
// A bridge.Instance's Run/Resume path is serialized internally: only one
// goroutine ever executes guest code at a time, even though Resume may be
// invoked concurrently by the Timer Service and the Func-Wrapper Factory.
package bridge
