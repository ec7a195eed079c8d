package runtime

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wasmgo/jsbridge/argwriter"
	"github.com/wasmgo/jsbridge/engine"
	"github.com/wasmgo/jsbridge/errors"
	"github.com/wasmgo/jsbridge/jsimports"
	"github.com/wasmgo/jsbridge/sysshim"
	"github.com/wasmgo/jsbridge/timersvc"
	"github.com/wasmgo/jsbridge/valuetable"
)

// Instance drives a single GOOS=js GOARCH=wasm guest through its
// run/resume/exit lifecycle.
type Instance struct {
	eng      *engine.Engine
	compiled wazero.CompiledModule
	mod      api.Module

	table  *valuetable.Table
	shim   *sysshim.Shim
	timers *timersvc.Service
	logger *zap.Logger
	rnd    io.Reader
	origin time.Time

	args []string
	env  map[string]string

	entryMu        sync.Mutex
	pendingEventMu sync.Mutex
	exitOnce       sync.Once
	exitCh         chan struct{}
	exitCode       int32
	exited         bool
	loaded         bool
}

// Option configures a New Instance.
type Option func(*Instance)

// WithArgs sets the guest's argv (args[0] is conventionally "js").
func WithArgs(args ...string) Option {
	return func(i *Instance) { i.args = args }
}

// WithEnv sets the guest's environment.
func WithEnv(env map[string]string) Option {
	return func(i *Instance) { i.env = env }
}

// WithStdout directs fd 1/2 console output to w instead of os.Stdout.
func WithStdout(w io.Writer) Option {
	return func(i *Instance) { i.shim = sysshim.New(w) }
}

// WithLogger sets the zap logger used for diagnostic warnings (timer
// backlog, resetMemoryDataView calls, the debug import).
func WithLogger(logger *zap.Logger) Option {
	return func(i *Instance) { i.logger = logger }
}

// WithRandSource overrides the source used by getRandomData, letting
// tests substitute a deterministic reader.
func WithRandSource(r io.Reader) Option {
	return func(i *Instance) { i.rnd = r }
}

// New compiles wasmBytes and links it against a fresh "go" host module.
// The guest is not yet running; call Run to start it.
func New(ctx context.Context, wasmBytes []byte, opts ...Option) (*Instance, error) {
	inst := &Instance{
		table:  valuetable.New(),
		shim:   sysshim.New(os.Stdout),
		logger: zap.NewNop(),
		rnd:    rand.Reader,
		origin: time.Now(),
		args:   []string{"js"},
		exitCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(inst)
	}
	inst.timers = timersvc.New(inst.resumeFromTimer, inst.logger)

	jsimports.InstallAmbientGlobals(inst.table.Global(), inst.shim, inst.args, inst.env)
	inst.installFuncWrapperFactory()

	eng, err := engine.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}
	inst.eng = eng

	if _, err := jsimports.Register(ctx, eng.Runtime(), inst); err != nil {
		eng.Close(ctx)
		return nil, fmt.Errorf("register go imports: %w", err)
	}

	compiled, err := eng.Compile(ctx, wasmBytes)
	if err != nil {
		eng.Close(ctx)
		return nil, err
	}
	inst.compiled = compiled

	mod, err := eng.Instantiate(ctx, compiled, "guest")
	if err != nil {
		eng.Close(ctx)
		return nil, err
	}
	inst.mod = mod
	inst.loaded = true

	return inst, nil
}

// Run writes argv/envp into the guest's reserved memory window and calls
// its exported "run" function, blocking until the guest calls wasmExit
// (returning from the run export alone does not end the wait). It returns
// the exit code.
func (i *Instance) Run(ctx context.Context) (int32, error) {
	if !i.loaded {
		return 0, errors.ModuleNotLoaded("run")
	}

	view := memviewOf(i.mod)
	res, err := argwriter.Write(view, i.args, i.env)
	if err != nil {
		return 0, err
	}

	i.entryMu.Lock()
	runFn := i.mod.ExportedFunction("run")
	_, callErr := runFn.Call(ctx, uint64(res.Argc), uint64(res.Argv))
	i.entryMu.Unlock()
	if callErr != nil {
		return 0, fmt.Errorf("call run export: %w", callErr)
	}

	<-i.exitCh
	return i.exitCode, nil
}

// Resume re-enters the guest's exported "resume" function. Callers
// (the Timer Service, the Func-Wrapper Factory) use this to drain queued
// host-to-guest work. It is a no-op error, not a panic, once the guest has
// exited.
func (i *Instance) Resume(ctx context.Context) error {
	i.entryMu.Lock()
	defer i.entryMu.Unlock()

	if i.exited {
		return errors.AlreadyExited("resume")
	}

	resumeFn := i.mod.ExportedFunction("resume")
	if resumeFn == nil {
		return errors.ModuleNotLoaded("resume")
	}
	if _, err := resumeFn.Call(ctx); err != nil {
		return fmt.Errorf("call resume export: %w", err)
	}
	return nil
}

func (i *Instance) resumeFromTimer() {
	if err := i.Resume(context.Background()); err != nil {
		i.logger.Sugar().Debugf("resume from timer: %v", err)
	}
}

// Close releases the engine and every module instantiated against it.
func (i *Instance) Close(ctx context.Context) error {
	if i.eng == nil {
		return nil
	}
	return i.eng.Close(ctx)
}

// Table implements jsimports.Host.
func (i *Instance) Table() *valuetable.Table { return i.table }

// Shim implements jsimports.Host.
func (i *Instance) Shim() *sysshim.Shim { return i.shim }

// Timers implements jsimports.Host.
func (i *Instance) Timers() *timersvc.Service { return i.timers }

// Logger implements jsimports.Host.
func (i *Instance) Logger() *zap.Logger { return i.logger }

// RandReader implements jsimports.Host.
func (i *Instance) RandReader() io.Reader { return i.rnd }

// TimeOrigin implements jsimports.Host.
func (i *Instance) TimeOrigin() time.Time { return i.origin }

// Exit implements jsimports.Host: wasmExit sets the exit flag and resolves
// Run's wait channel. A second call is a no-op; the guest cannot exit twice.
func (i *Instance) Exit(code int32) {
	i.exitOnce.Do(func() {
		i.exitCode = code
		i.exited = true
		if code != 0 && i.logger != nil {
			i.logger.Sugar().Warnf("guest exited with code %d", code)
		}
		close(i.exitCh)
	})
}
