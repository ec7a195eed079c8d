// Package runtime implements the Instance Driver: the run/resume/exit/getsp
// lifecycle a GOOS=js GOARCH=wasm guest expects from its host, plus the
// Func-Wrapper Factory that lets a guest-created JS function be invoked
// from host-side code (a timer callback, an event handler) by staging a
// pending event and resuming the guest to drain it.
//
// # Architecture
//
// Instance wires together the other components into one cooperatively
// scheduled guest:
//
//   - engine.Engine compiles and instantiates the wazero module
//   - jsimports.Register links the "go" host module against it, with the
//     Instance itself as the jsimports.Host
//   - valuetable.Table, sysshim.Shim and timersvc.Service are the
//     resources the import handlers reach through that Host interface
//   - argwriter.Write lays out argv/envp before the guest's main runs
//
// # Lifecycle
//
// New compiles and instantiates the module. Run writes argv/envp and calls
// the guest's exported "run" function with (argc, argv). From that point
// the guest owns the thread until it calls back into a "go" import or
// returns. Only wasmExit resolves Run's result: if the run export returns
// without exiting, Run keeps waiting while timers and func-wrappers resume
// the guest. Resume re-enters the guest's exported "resume" function; it
// is used by the Timer Service and the Func-Wrapper Factory to drive
// queued work. Once exited, Resume fails with an AlreadyExited error: the
// guest cannot be revived.
//
// # Concurrency
//
// Unlike a single-threaded JS event loop, Resume can be invoked from
// multiple goroutines at once (a fired timer racing a func-wrapper
// callback). Instance serializes all guest entry behind a single mutex;
// the guest itself never observes concurrent execution.
package runtime
