// Package engine owns the wazero runtime lifecycle: compiling a guest
// module and instantiating it against whatever host modules the caller
// has linked in (the "go" namespace, in this bridge's case).
package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Engine wraps a wazero runtime, compiling and instantiating guest modules
// against it.
type Engine struct {
	runtime wazero.Runtime
}

// Config holds configuration for engine creation.
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages
	// (64KB each). 0 means wazero's default (65536 pages = 4GB).
	MemoryLimitPages uint32
}

// New creates an Engine with default configuration.
func New(ctx context.Context) (*Engine, error) {
	return NewWithConfig(ctx, nil)
}

// NewWithConfig creates an Engine with custom configuration.
func NewWithConfig(ctx context.Context, cfg *Config) (*Engine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg != nil && cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	return &Engine{runtime: rt}, nil
}

// Runtime returns the underlying wazero runtime, for packages (jsimports)
// that must register additional host modules against it.
func (e *Engine) Runtime() wazero.Runtime {
	return e.runtime
}

// Compile compiles wasmBytes into a reusable, validated module.
func (e *Engine) Compile(ctx context.Context, wasmBytes []byte) (wazero.CompiledModule, error) {
	debugf("compiling module (%d bytes)", len(wasmBytes))
	mod, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("compile module: %w", err)
	}
	return mod, nil
}

// Instantiate instantiates a compiled module under name, after the caller
// has linked any additional host modules (jsimports.Register) against the
// same runtime.
func (e *Engine) Instantiate(ctx context.Context, compiled wazero.CompiledModule, name string) (api.Module, error) {
	debugf("instantiating module %q", name)
	cfg := wazero.NewModuleConfig().WithName(name)
	mod, err := e.runtime.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		return nil, fmt.Errorf("instantiate module %s: %w", name, err)
	}
	return mod, nil
}

// Close releases all resources held by the engine, including every module
// instantiated against it.
func (e *Engine) Close(ctx context.Context) error {
	debugf("closing runtime")
	return e.runtime.Close(ctx)
}
