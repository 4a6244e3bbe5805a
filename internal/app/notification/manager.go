// Package notification provides the notification manager for broadcasting
// playback events to session watchers.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tubequeue/internal/domain/directive"
)

// Event reports the outcome of one playback operation.
type Event struct {
	SequenceNo uint64
	SessionKey string
	Operation  string
	Directive  directive.Directive
	Speech     string
	Time       time.Time
}

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(Event) error
}

// subscription represents a subscriber's subscription.
// An empty sessionKey receives events of every session.
type subscription struct {
	id         string
	sessionKey string
	stream     Stream
}

func (s *subscription) wants(sessionKey string) bool {
	return s.sessionKey == "" || s.sessionKey == sessionKey
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
	sendTimeout   time.Duration
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
		sendTimeout:   500 * time.Millisecond,
	}
}

// Subscribe adds a new subscription for sessionKey and returns the subscription ID.
func (m *Manager) Subscribe(sessionKey string, stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{
		id:         id,
		sessionKey: sessionKey,
		stream:     stream,
	}
	zlog.Debug().Msgf("notification: subscribed: id=%s key=%s", id, sessionKey)
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

func (m *Manager) nextSequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	m.sequenceNo++
	return m.sequenceNo
}

// Broadcast sends an event to every subscriber watching its session.
// Each stream send is done in a goroutine with a timeout to prevent blocking.
func (m *Manager) Broadcast(event Event) {
	event.SequenceNo = m.nextSequenceNo()
	if event.Time.IsZero() {
		event.Time = time.Now()
	}

	m.mu.RLock()
	// Copy subscriptions to avoid holding lock during sends
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		if sub.wants(event.SessionKey) {
			subs = append(subs, sub)
		}
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), m.sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.stream.Send(event)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Debug().Msgf("notification: send failed: id=%s error=%v", s.id, err)
				}
			case <-ctx.Done():
				zlog.Debug().Msgf("notification: send timed out: id=%s", s.id)
			}
		}(sub)
	}

	wg.Wait()
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close closes the manager and removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}
