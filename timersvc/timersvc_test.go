package timersvc_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wasmgo/jsbridge/timersvc"
)

func TestTimerFiresAndCallsResume(t *testing.T) {
	var resumed atomic.Int32
	var svc *timersvc.Service
	var mu sync.Mutex
	var id uint32

	svc = timersvc.New(func() {
		resumed.Add(1)
		mu.Lock()
		svc.Clear(id)
		mu.Unlock()
	}, nil)

	start := time.Now()
	mu.Lock()
	id = svc.Schedule(10)
	mu.Unlock()

	deadline := time.After(2 * time.Second)
	for resumed.Load() == 0 {
		select {
		case <-deadline:
			t.Fatalf("timer never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if elapsed := time.Since(start); elapsed < 9*time.Millisecond {
		t.Fatalf("timer fired too early: %v", elapsed)
	}
}

func TestTimerResumesUntilDeregistered(t *testing.T) {
	var resumeCount atomic.Int32
	var svc *timersvc.Service
	var id uint32
	var mu sync.Mutex

	svc = timersvc.New(func() {
		n := resumeCount.Add(1)
		if n >= 3 {
			mu.Lock()
			svc.Clear(id)
			mu.Unlock()
		}
	}, nil)

	mu.Lock()
	id = svc.Schedule(5)
	mu.Unlock()

	deadline := time.After(2 * time.Second)
	for resumeCount.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("timer did not resume until deregistered, count=%d", resumeCount.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestClearBeforeFirePreventsResume(t *testing.T) {
	var resumed atomic.Int32
	svc := timersvc.New(func() { resumed.Add(1) }, nil)

	id := svc.Schedule(50)
	svc.Clear(id)

	time.Sleep(80 * time.Millisecond)
	if resumed.Load() != 0 {
		t.Fatalf("resume was called after Clear before fire")
	}
}
