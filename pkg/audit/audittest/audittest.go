// Package audittest, audit olaylarını bellekte toplayan test sink'i sağlar.
package audittest

import (
	"context"
	"sync"

	"github.com/akinalp/authgate/pkg/audit"
)

// Sink, olayları bellekte tutar.
type Sink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *Sink) Record(_ context.Context, e audit.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

// Events, kaydedilen olayların kopyasını döner.
func (s *Sink) Events() []audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audit.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Last, son kaydedilen olayı döner.
func (s *Sink) Last() (audit.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return audit.Event{}, false
	}
	return s.events[len(s.events)-1], true
}
