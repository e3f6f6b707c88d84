// Package notification is the external notifier collaborator: it consumes
// issued alerts from the event bus and delivers them through configured
// push providers, reporting delivery outcomes back asynchronously. The
// analysis core never blocks on anything in this package.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status tracks a notification through delivery.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// Notification is one outbound message derived from an issued alert.
type Notification struct {
	ID         string
	AlertID    string
	Title      string
	Message    string
	TargetUser string
	Status     Status
	Attempts   int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewNotification creates a pending notification.
func NewNotification(alertID, title, message, targetUser string) *Notification {
	now := time.Now()
	return &Notification{
		ID:         uuid.New().String(),
		AlertID:    alertID,
		Title:      title,
		Message:    message,
		TargetUser: targetUser,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Provider delivers one notification to an external channel.
type Provider interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// store keeps recent notifications in memory for inspection. Bounded, the
// oldest entries are evicted first.
type store struct {
	mu       sync.Mutex
	byID     map[string]*Notification
	order    []string
	capacity int
}

func newStore(capacity int) *store {
	return &store{
		byID:     make(map[string]*Notification, capacity),
		capacity: capacity,
	}
}

func (s *store) save(n *Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[n.ID]; !exists {
		s.order = append(s.order, n.ID)
		for len(s.order) > s.capacity {
			delete(s.byID, s.order[0])
			s.order = s.order[1:]
		}
	}
	n.UpdatedAt = time.Now()
	s.byID[n.ID] = n
}

func (s *store) get(id string) (*Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.byID[id]
	return n, ok
}

func (s *store) list() []*Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Notification, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}
