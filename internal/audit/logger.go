package audit

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/savegress/hospitalfin/internal/config"
	"github.com/savegress/hospitalfin/pkg/models"
)

// Outcome is the result of a data access decision
type Outcome string

const (
	OutcomeGranted  Outcome = "granted"
	OutcomeDenied   Outcome = "denied"
	OutcomeNotFound Outcome = "not_found"
)

// Event records one dataset access decision.
// It never carries record contents.
type Event struct {
	ID          string        `json:"id"`
	PrincipalID string        `json:"principal_id"`
	Role        models.Role   `json:"role"`
	EntityID    string        `json:"entity_id"`
	Period      models.Period `json:"period"`
	Action      string        `json:"action"`
	Outcome     Outcome       `json:"outcome"`
	Recorded    time.Time     `json:"recorded"`
}

// Logger keeps an in-memory trail of access decisions
type Logger struct {
	config  *config.AuditConfig
	events  []*Event
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	eventCh chan *Event
}

// NewLogger creates a new audit logger
func NewLogger(cfg *config.AuditConfig) *Logger {
	size := cfg.BufferSize
	if size <= 0 {
		size = 1000
	}
	return &Logger{
		config:  cfg,
		eventCh: make(chan *Event, size),
	}
}

// Start starts the audit logger
func (l *Logger) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = true
	l.stopCh = make(chan struct{})
	l.doneCh = make(chan struct{})
	stop, done := l.stopCh, l.doneCh
	l.mu.Unlock()

	go l.processEvents(ctx, stop, done)
	return nil
}

// Stop stops the audit logger after draining buffered events
func (l *Logger) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	close(l.stopCh)
	done := l.doneCh
	l.mu.Unlock()

	<-done
}

func (l *Logger) processEvents(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			l.mu.Lock()
			l.running = false
			l.mu.Unlock()
			l.drain()
			return
		case <-stop:
			l.drain()
			return
		case event := <-l.eventCh:
			l.store(event)
		}
	}
}

func (l *Logger) drain() {
	for {
		select {
		case event := <-l.eventCh:
			l.store(event)
		default:
			return
		}
	}
}

func (l *Logger) store(event *Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, event)
	if max := l.config.MaxEvents; max > 0 && len(l.events) > max {
		l.events = l.events[len(l.events)-max:]
	}
}

// Record logs an access decision
func (l *Logger) Record(ctx context.Context, event Event) *Event {
	if !l.config.Enabled {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Recorded.IsZero() {
		event.Recorded = time.Now()
	}
	e := &event

	if event.Outcome == OutcomeDenied {
		log.Printf("Access denied: principal=%s role=%s hospital=%s period=%d",
			event.PrincipalID, event.Role, event.EntityID, event.Period)
	}

	l.mu.RLock()
	if l.running {
		select {
		case l.eventCh <- e:
			l.mu.RUnlock()
			return e
		default:
		}
	}
	l.mu.RUnlock()

	// Not running or buffer full: store synchronously rather than drop.
	l.store(e)
	return e
}

// EventFilter selects audit events
type EventFilter struct {
	PrincipalID string
	EntityID    string
	Outcome     Outcome
	Since       time.Time
	Limit       int
}

// Events returns stored events matching filter, newest first
func (l *Logger) Events(filter EventFilter) []*Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var results []*Event
	for _, e := range l.events {
		if filter.PrincipalID != "" && e.PrincipalID != filter.PrincipalID {
			continue
		}
		if filter.EntityID != "" && e.EntityID != filter.EntityID {
			continue
		}
		if filter.Outcome != "" && e.Outcome != filter.Outcome {
			continue
		}
		if !filter.Since.IsZero() && e.Recorded.Before(filter.Since) {
			continue
		}
		results = append(results, e)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Recorded.After(results[j].Recorded)
	})
	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}
	return results
}

// Stats summarises stored events
type Stats struct {
	TotalEvents int             `json:"total_events"`
	ByOutcome   map[Outcome]int `json:"by_outcome"`
	ByEntity    map[string]int  `json:"by_entity"`
}

// Stats returns audit statistics
func (l *Logger) Stats() *Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := &Stats{
		ByOutcome: make(map[Outcome]int),
		ByEntity:  make(map[string]int),
	}
	for _, e := range l.events {
		stats.TotalEvents++
		stats.ByOutcome[e.Outcome]++
		stats.ByEntity[e.EntityID]++
	}
	return stats
}
