package jsimports

import (
	"math"

	"github.com/wasmgo/jsbridge/sysshim"
	"github.com/wasmgo/jsbridge/valuetable"
)

// InstallAmbientGlobals populates globalThis with the minimal fs/process/Math
// surface the Go runtime's js/wasm support files probe during init, before
// the guest's own main ever runs.
func InstallAmbientGlobals(global *valuetable.Object, shim *sysshim.Shim, args []string, env map[string]string) {
	global.Props["Array"] = valuetable.NewObject()
	global.Props["Object"] = valuetable.NewObject()
	global.Props["Uint8Array"] = &valuetable.Function{
		Invoke: func(this any, args []any) (any, error) {
			n := 0
			if len(args) > 0 {
				if f, ok := args[0].(float64); ok {
					n = int(f)
				}
			}
			return &valuetable.Object{Bytes: make([]byte, n)}, nil
		},
	}

	global.Props["Math"] = mathObject()
	global.Props["fs"] = fsObject(shim)
	global.Props["process"] = processObject(args, env)
}

func mathObject() *valuetable.Object {
	obj := valuetable.NewObject()
	unary := func(f func(float64) float64) *valuetable.Function {
		return &valuetable.Function{Invoke: func(this any, args []any) (any, error) {
			x, _ := args[0].(float64)
			return f(x), nil
		}}
	}
	obj.Props["abs"] = unary(math.Abs)
	obj.Props["floor"] = unary(math.Floor)
	obj.Props["ceil"] = unary(math.Ceil)
	obj.Props["trunc"] = unary(math.Trunc)
	obj.Props["sqrt"] = unary(math.Sqrt)
	obj.Props["random"] = &valuetable.Function{Invoke: func(this any, args []any) (any, error) {
		return 0.5, nil
	}}
	return obj
}

func fsObject(shim *sysshim.Shim) *valuetable.Object {
	obj := valuetable.NewObject()
	obj.Props["constants"] = valuetable.NewObject()
	obj.Props["writeSync"] = &valuetable.Function{Invoke: func(this any, args []any) (any, error) {
		if len(args) < 2 {
			return float64(0), nil
		}
		fd, _ := args[0].(float64)
		buf, ok := args[1].(*valuetable.Object)
		if !ok || buf.Bytes == nil {
			return float64(0), nil
		}
		n, err := shim.Write(int64(fd), buf.Bytes)
		if err != nil {
			return nil, err
		}
		return float64(n), nil
	}}
	obj.Props["fsync"] = &valuetable.Function{Invoke: func(this any, args []any) (any, error) {
		fd := float64(0)
		if len(args) > 0 {
			fd, _ = args[0].(float64)
		}
		if err := shim.Fsync(int64(fd)); err != nil {
			return nil, err
		}
		return valuetable.Undefined{}, nil
	}}
	failWith := func(op string) *valuetable.Function {
		return &valuetable.Function{Invoke: func(this any, args []any) (any, error) {
			return nil, sysshim.NotImplemented(op)
		}}
	}
	for _, op := range []string{"open", "read", "close", "stat", "fstat", "lstat", "chmod", "chown", "mkdir", "readdir", "unlink", "rmdir", "rename", "readlink", "symlink"} {
		obj.Props[op] = failWith(op)
	}
	return obj
}

func processObject(args []string, env map[string]string) *valuetable.Object {
	obj := valuetable.NewObject()
	argv := valuetable.NewObject()
	argvArray := make([]any, 0, len(args))
	for _, a := range args {
		argvArray = append(argvArray, a)
	}
	argv.Array = argvArray
	obj.Props["argv"] = argv

	envObj := valuetable.NewObject()
	for k, v := range env {
		envObj.Props[k] = v
	}
	obj.Props["env"] = envObj

	obj.Props["pid"] = float64(sysshim.ProcessIdentity())
	obj.Props["ppid"] = float64(sysshim.ProcessIdentity())
	obj.Props["platform"] = "js"
	obj.Props["version"] = "v18.0.0"
	obj.Props["exit"] = &valuetable.Function{Invoke: func(this any, args []any) (any, error) {
		return valuetable.Undefined{}, nil
	}}

	identity := func() *valuetable.Function {
		return &valuetable.Function{Invoke: func(this any, args []any) (any, error) {
			return float64(sysshim.ProcessIdentity()), nil
		}}
	}
	for _, op := range []string{"getuid", "getgid", "geteuid", "getegid"} {
		obj.Props[op] = identity()
	}

	notImplemented := func(op string) *valuetable.Function {
		return &valuetable.Function{Invoke: func(this any, args []any) (any, error) {
			return nil, sysshim.NotImplemented(op)
		}}
	}
	for _, op := range []string{"cwd", "chdir", "getgroups", "umask"} {
		obj.Props[op] = notImplemented(op)
	}
	return obj
}
