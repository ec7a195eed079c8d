// Command run executes a GOOS=js GOARCH=wasm binary under the bridge
// runtime, the way `node wasm_exec.js` or a browser tab would.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	bridge "github.com/wasmgo/jsbridge"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to a GOOS=js GOARCH=wasm binary")
		envVars     = flag.String("env", "", "Environment variables (KEY=VAL,KEY2=VAL2)")
		cliArgs     = flag.String("argv", "", "Guest argv after argv[0] (comma-separated)")
		interactive = flag.Bool("i", false, "Interactive mode with a live console view")
	)
	flag.Parse()

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: run -wasm <file.wasm> [-argv a,b,c] [-env K=V,...]")
		fmt.Fprintln(os.Stderr, "       run -wasm <file.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		if err := runInteractive(*wasmFile, *cliArgs, *envVars); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	code, err := run(*wasmFile, *cliArgs, *envVars)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(int(code))
}

func run(wasmFile, argvStr, envStr string) (int32, error) {
	ctx := context.Background()

	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return 0, fmt.Errorf("read file: %w", err)
	}

	opts := []bridge.Option{bridge.WithArgs(buildArgv(wasmFile, argvStr)...)}
	if envStr != "" {
		opts = append(opts, bridge.WithEnv(parseEnv(envStr)))
	}

	inst, err := bridge.New(ctx, data, opts...)
	if err != nil {
		return 0, fmt.Errorf("load module: %w", err)
	}
	defer inst.Close(ctx)

	return inst.Run(ctx)
}

func buildArgv(wasmFile, argvStr string) []string {
	argv := []string{"js"}
	if argvStr != "" {
		argv = append(argv, strings.Split(argvStr, ",")...)
	}
	return argv
}

func parseEnv(envStr string) map[string]string {
	env := make(map[string]string)
	for _, kv := range strings.Split(envStr, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			env[k] = v
		}
	}
	return env
}
