// Package argwriter serialises command-line arguments and environment
// variables into a guest instance's linear memory ahead of the first call
// to its run export, following the fixed argv/envp layout described by the
// host bridge's Argument Writer component.
package argwriter

import (
	"sort"

	"github.com/wasmgo/jsbridge/errors"
	"github.com/wasmgo/jsbridge/memview"
)

// dataStart is the first address the argument/environment region may use;
// everything before it is reserved for the guest's own data section.
const dataStart = 4096

// windowSize bounds how much of linear memory the argv/envp region may
// occupy, matching the fixed 8192-byte allowance after dataStart.
const windowSize = 8192

// Result carries the argc/argv pair the guest's run export expects.
type Result struct {
	Argc int32
	Argv uint32
}

// Write serialises args followed by the sorted "KEY=VALUE" encoding of env
// into view starting at dataStart, then writes the argv and envp pointer
// arrays, returning the (argc, argv) pair to pass to the guest's run
// export.
func Write(view *memview.View, args []string, env map[string]string) (Result, error) {
	entries := make([]string, 0, len(args)+len(env))
	entries = append(entries, args...)

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		entries = append(entries, k+"="+env[k])
	}

	offset := uint32(dataStart)
	ptrs := make([]uint32, len(entries))

	for i, s := range entries {
		ptrs[i] = offset
		b := append([]byte(s), 0)
		if err := checkWindow(offset, uint32(len(b))); err != nil {
			return Result{}, err
		}
		if err := view.WriteBytes(offset, b); err != nil {
			return Result{}, err
		}
		offset += uint32(len(b))
		offset = alignUp8(offset)
	}

	argv := offset
	argc := int32(len(args))

	// argv pointer array, terminated by a zero slot, then envp likewise.
	for i := 0; i < len(args); i++ {
		if err := writePointerSlot(view, &offset, ptrs[i]); err != nil {
			return Result{}, err
		}
	}
	if err := writePointerSlot(view, &offset, 0); err != nil {
		return Result{}, err
	}
	for i := len(args); i < len(entries); i++ {
		if err := writePointerSlot(view, &offset, ptrs[i]); err != nil {
			return Result{}, err
		}
	}
	if err := writePointerSlot(view, &offset, 0); err != nil {
		return Result{}, err
	}

	if offset >= dataStart+windowSize {
		return Result{}, errors.ArgumentOverflow(int(offset - dataStart))
	}

	return Result{Argc: argc, Argv: argv}, nil
}

func writePointerSlot(view *memview.View, offset *uint32, ptr uint32) error {
	if err := checkWindow(*offset, 8); err != nil {
		return err
	}
	if err := view.SetUint32(*offset, ptr); err != nil {
		return err
	}
	if err := view.SetUint32(*offset+4, 0); err != nil {
		return err
	}
	*offset += 8
	return nil
}

func checkWindow(offset, size uint32) error {
	if offset+size > dataStart+windowSize {
		return errors.ArgumentOverflow(int(offset + size - dataStart))
	}
	return nil
}

func alignUp8(offset uint32) uint32 {
	if rem := offset % 8; rem != 0 {
		offset += 8 - rem
	}
	return offset
}
