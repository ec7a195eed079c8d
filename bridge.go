// Package bridge runs WebAssembly modules built with GOOS=js GOARCH=wasm
// by reimplementing the host half of misc/wasm/wasm_exec.js natively in
// Go: linear memory access, NaN-boxed value passing, the fixed "go"
// import namespace, and the run/resume/exit instance lifecycle.
package bridge

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/wasmgo/jsbridge/runtime"
)

// Instance is a loaded, linked guest ready to run.
type Instance struct {
	inner *runtime.Instance
}

// Option configures a New Instance.
type Option = runtime.Option

// WithArgs sets the guest's argv (args[0] is conventionally "js").
func WithArgs(args ...string) Option { return runtime.WithArgs(args...) }

// WithEnv sets the guest's environment.
func WithEnv(env map[string]string) Option { return runtime.WithEnv(env) }

// WithStdout directs the guest's fd 1/2 console output to w.
func WithStdout(w io.Writer) Option { return runtime.WithStdout(w) }

// WithLogger sets the zap logger used for diagnostic warnings.
func WithLogger(logger *zap.Logger) Option { return runtime.WithLogger(logger) }

// WithRandSource overrides the source used for getRandomData.
func WithRandSource(r io.Reader) Option { return runtime.WithRandSource(r) }

// New compiles and links wasmBytes. The guest is not yet running; call Run.
func New(ctx context.Context, wasmBytes []byte, opts ...Option) (*Instance, error) {
	inner, err := runtime.New(ctx, wasmBytes, opts...)
	if err != nil {
		return nil, err
	}
	return &Instance{inner: inner}, nil
}

// Run starts the guest's main function and blocks until it exits,
// returning its exit code.
func (i *Instance) Run(ctx context.Context) (int32, error) {
	return i.inner.Run(ctx)
}

// Close releases the instance's wazero runtime.
func (i *Instance) Close(ctx context.Context) error {
	return i.inner.Close(ctx)
}
