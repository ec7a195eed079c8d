// Package sysshim implements the minimal ambient fs/process surface the
// guest's runtime expects: a line-buffered console-output collector plus
// stub syscalls that fail with a not-implemented sentinel.
package sysshim

import (
	"bytes"
	"io"

	"github.com/wasmgo/jsbridge/errors"
)

// Shim collects bytes written to any file descriptor into a line buffer,
// flushing complete lines to Sink as they appear.
type Shim struct {
	Sink io.Writer
	buf  bytes.Buffer
}

// New creates a Shim that flushes emitted lines to sink.
func New(sink io.Writer) *Shim {
	return &Shim{Sink: sink}
}

// Write implements the writeSync/wasmWrite path: bytes are buffered until a
// newline appears, at which point everything up to and including the last
// newline in the buffer is flushed to the sink and removed.
func (s *Shim) Write(fd int64, p []byte) (int, error) {
	s.buf.Write(p)
	data := s.buf.Bytes()
	if idx := bytes.LastIndexByte(data, '\n'); idx >= 0 {
		if s.Sink != nil {
			if _, err := s.Sink.Write(data[:idx+1]); err != nil {
				return 0, err
			}
		}
		remainder := append([]byte(nil), data[idx+1:]...)
		s.buf.Reset()
		s.buf.Write(remainder)
	}
	return len(p), nil
}

// Fsync is a no-op success, the one filesystem entrypoint besides write
// that does not raise the not-implemented sentinel.
func (s *Shim) Fsync(fd int64) error {
	return nil
}

// NotImplemented reports the sentinel error raised by every other
// filesystem entrypoint (open, read, close, stat, chmod, ...).
func NotImplemented(op string) error {
	return errors.NotImplementedSyscall(op)
}

// ProcessIdentity answers the ambient "process" object's identity queries:
// pid/ppid/getuid/getgid all return -1; getgroups/umask/cwd/chdir raise the
// sentinel (modeled by callers invoking NotImplemented directly).
func ProcessIdentity() int64 {
	return -1
}
