// Package timersvc implements the Timer Service: monotonic ids mapped to
// host timer handles, with the resume-after-fire discipline the guest's
// cooperative scheduler relies on.
package timersvc

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// fireCompensation is added to every requested delay to compensate for
// early firing observed in common host timer implementations.
const fireCompensation = time.Millisecond

// Service tracks scheduled timers and invokes Resume on fire.
type Service struct {
	mu      sync.Mutex
	timers  map[uint32]*time.Timer
	nextID  uint32
	Resume  func()
	Logger  *zap.Logger
}

// New creates a Service. resume is called (possibly more than once per
// fire, see Schedule) whenever a timer fires.
func New(resume func(), logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		timers: make(map[uint32]*time.Timer),
		nextID: 1,
		Resume: resume,
		Logger: logger,
	}
}

// Schedule registers a timer that fires after delayMS+1 milliseconds,
// returning its monotonic id. On fire, Resume is invoked; if the guest has
// not deregistered the id by the time Resume returns, Resume is invoked
// again (and again) until the id is no longer present in the registry.
func (s *Service) Schedule(delayMS int64) uint32 {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.timers[id] = nil
	s.mu.Unlock()

	delay := time.Duration(delayMS)*time.Millisecond + fireCompensation
	timer := time.AfterFunc(delay, func() { s.fire(id) })

	s.mu.Lock()
	s.timers[id] = timer
	s.mu.Unlock()

	return id
}

func (s *Service) fire(id uint32) {
	first := true
	for {
		s.mu.Lock()
		_, stillRegistered := s.timers[id]
		s.mu.Unlock()
		if !stillRegistered {
			return
		}
		if !first {
			s.Logger.Sugar().Warnf("timer %d still registered after resume, resuming again", id)
		}
		first = false
		s.Resume()
	}
}

// Clear cancels the host timer for id and removes it from the registry.
// Cancelling after fire but before deregistration is a no-op: the fire
// loop's next registration check will simply see the id gone.
func (s *Service) Clear(id uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[id]; ok {
		if t != nil {
			t.Stop()
		}
		delete(s.timers, id)
	}
}
