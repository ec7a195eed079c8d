// Package engine owns the wazero runtime and module lifecycle: compiling
// a guest module and instantiating it once every host module it imports
// (the "go" namespace built by jsimports) has been linked in.
//
// # Architecture
//
// Engine wraps a single wazero.Runtime. Compile validates and parses a
// guest binary into a wazero.CompiledModule; Instantiate links it against
// whatever host modules the caller has already registered on the same
// runtime and returns the running api.Module.
//
//  1. engine.New(ctx) creates a runtime
//  2. jsimports.Register(ctx, eng.Runtime(), host) links the "go" namespace
//  3. engine.Compile parses the guest bytes
//  4. engine.Instantiate runs the guest's start function, which in the
//     js/wasm ABI does nothing observable until the driver calls "run"
//
// This package knows nothing about NaN-boxed values, the argv/envp
// layout, or the resume/exit state machine; those live in valuetable,
// argwriter and runtime respectively.
//
// # Thread Safety
//
// Engine is safe for concurrent Compile/Instantiate calls against
// independent modules. A single api.Module returned by Instantiate is not
// safe for concurrent calls; the runtime package serializes entry into it.
package engine
