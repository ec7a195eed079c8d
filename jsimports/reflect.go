package jsimports

import (
	"github.com/wasmgo/jsbridge/valuetable"
)

// delegateGetter may be implemented by an Object's Delegate to compute
// properties rather than storing them in Props. The ambient objects
// installed by InstallAmbientGlobals use Props and set no Delegate.
type delegateGetter interface {
	Get(key string) (any, bool)
}

type delegateSetter interface {
	Set(key string, value any)
}

func getProperty(recv any, key string) any {
	obj, ok := recv.(*valuetable.Object)
	if !ok {
		return valuetable.Undefined{}
	}
	if obj.Delegate != nil {
		if dg, ok := obj.Delegate.(delegateGetter); ok {
			if v, ok := dg.Get(key); ok {
				return v
			}
		}
	}
	if v, ok := obj.Props[key]; ok {
		return v
	}
	return valuetable.Undefined{}
}

func setProperty(recv any, key string, val any) {
	obj, ok := recv.(*valuetable.Object)
	if !ok {
		return
	}
	if obj.Delegate != nil {
		if ds, ok := obj.Delegate.(delegateSetter); ok {
			ds.Set(key, val)
			return
		}
	}
	if obj.Props == nil {
		obj.Props = make(map[string]any)
	}
	obj.Props[key] = val
}

func getIndex(recv any, idx int) any {
	obj, ok := recv.(*valuetable.Object)
	if !ok || idx < 0 || idx >= len(obj.Array) {
		return valuetable.Undefined{}
	}
	return obj.Array[idx]
}

func setIndex(recv any, idx int, val any) {
	obj, ok := recv.(*valuetable.Object)
	if !ok || idx < 0 {
		return
	}
	for idx >= len(obj.Array) {
		obj.Array = append(obj.Array, valuetable.Undefined{})
	}
	obj.Array[idx] = val
}

func length(recv any) int64 {
	switch v := recv.(type) {
	case *valuetable.Object:
		if v.Array != nil {
			return int64(len(v.Array))
		}
		if v.Bytes != nil {
			return int64(len(v.Bytes))
		}
	case string:
		return int64(len(v))
	}
	return 0
}

func asFunction(recv any, method string) (*valuetable.Function, any, bool) {
	obj, ok := recv.(*valuetable.Object)
	if !ok {
		return nil, nil, false
	}
	v := getProperty(obj, method)
	fn, ok := v.(*valuetable.Function)
	return fn, obj, ok
}

func callMethod(recv any, method string, args []any) (any, error) {
	fn, this, ok := asFunction(recv, method)
	if !ok {
		return nil, errNotAFunction(method)
	}
	return fn.Invoke(this, args)
}

func invoke(recv any, args []any) (any, error) {
	fn, ok := recv.(*valuetable.Function)
	if !ok {
		return nil, errNotAFunction("")
	}
	return fn.Invoke(valuetable.Undefined{}, args)
}

func construct(recv any, args []any) (any, error) {
	fn, ok := recv.(*valuetable.Function)
	if !ok {
		return nil, errNotAFunction("")
	}
	return fn.Invoke(nil, args)
}

func instanceOf(recv, target any) bool {
	switch t := target.(type) {
	case *valuetable.Function:
		_ = t
		_, ok := recv.(*valuetable.Object)
		return ok
	default:
		return false
	}
}

type notAFunctionError struct {
	name string
}

func (e *notAFunctionError) Error() string {
	if e.name == "" {
		return "value is not a function"
	}
	return e.name + " is not a function"
}

func errNotAFunction(name string) error {
	return &notAFunctionError{name: name}
}
