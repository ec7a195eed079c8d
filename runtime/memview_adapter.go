package runtime

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wasmgo/jsbridge/memview"
)

// memviewOf wraps a live api.Memory in a *memview.View. api.Memory already
// satisfies memview.Memory structurally; this just names the conversion.
func memviewOf(mod api.Module) *memview.View {
	return memview.New(mod.Memory())
}
