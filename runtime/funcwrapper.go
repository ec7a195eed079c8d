package runtime

import (
	"context"

	"github.com/wasmgo/jsbridge/errors"
	"github.com/wasmgo/jsbridge/valuetable"
)

const pendingEventProp = "_pendingEvent"

// installFuncWrapperFactory exposes globalThis._makeFuncWrapper, the entry
// point the guest's syscall/js.FuncOf uses (via an ordinary reflective
// call) to obtain a callable JS value for a given wrapper id. Invoking the
// returned function stages a pending event on the embedder-self object and
// resumes the guest so its own _pendingEvent drain logic can service it.
func (i *Instance) installFuncWrapperFactory() {
	i.table.Global().Props["_makeFuncWrapper"] = &valuetable.Function{
		Invoke: func(this any, args []any) (any, error) {
			if len(args) == 0 {
				return nil, errors.New(errors.PhaseBridge, errors.KindUnsupported).
					Detail("_makeFuncWrapper requires a wrapper id").Build()
			}
			id, _ := args[0].(float64)
			return i.makeFuncWrapper(id), nil
		},
	}
}

func (i *Instance) makeFuncWrapper(id float64) *valuetable.Function {
	return &valuetable.Function{
		Invoke: func(this any, args []any) (any, error) {
			self := i.table.EmbedderSelf()

			i.pendingEventMu.Lock()
			if existing, ok := self.Props[pendingEventProp]; ok {
				if _, isUndef := existing.(valuetable.Undefined); !isUndef {
					i.pendingEventMu.Unlock()
					return nil, errors.New(errors.PhaseBridge, errors.KindUnsupported).
						Detail("func wrapper %v invoked while another callback is pending", id).Build()
				}
			}

			argsObj := valuetable.NewObject()
			argsObj.Array = args

			event := valuetable.NewObject()
			event.Props["id"] = id
			event.Props["this"] = this
			event.Props["args"] = argsObj

			self.Props[pendingEventProp] = event
			i.pendingEventMu.Unlock()

			if err := i.Resume(context.Background()); err != nil {
				i.pendingEventMu.Lock()
				delete(self.Props, pendingEventProp)
				i.pendingEventMu.Unlock()
				return nil, err
			}

			i.pendingEventMu.Lock()
			self.Props[pendingEventProp] = valuetable.Undefined{}
			i.pendingEventMu.Unlock()
			return event.Props["result"], nil
		},
	}
}
