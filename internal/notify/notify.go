// Package notify provides notification functionality for the trading application.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"monad-trader/internal/models"
)

// Notifier defines the interface for sending notifications.
type Notifier interface {
	SendCycle(ctx context.Context, record *models.DecisionRecord) error
	SendError(ctx context.Context, err error, where string) error
}

// Channel defines the interface for a notification channel.
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
	IsEnabled() bool
}

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationCycle NotificationType = "cycle"
	NotificationError NotificationType = "error"
)

// Notification represents a notification message.
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Timestamp time.Time
}

// Manager fans notifications out to all enabled channels. Channel
// failures are logged and never propagated to the caller.
type Manager struct {
	mu       sync.RWMutex
	channels []Channel
	log      zerolog.Logger
}

// NewManager creates a notification manager.
func NewManager(log zerolog.Logger, channels ...Channel) *Manager {
	return &Manager{channels: channels, log: log}
}

// AddChannel registers a notification channel.
func (m *Manager) AddChannel(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, ch)
}

// SendCycle reports the outcome of one decision cycle.
func (m *Manager) SendCycle(ctx context.Context, record *models.DecisionRecord) error {
	m.send(ctx, Notification{
		Type:      NotificationCycle,
		Title:     "Decision Cycle",
		Message:   formatCycle(record),
		Timestamp: time.Now(),
	})
	return nil
}

// SendError reports a pipeline failure.
func (m *Manager) SendError(ctx context.Context, err error, where string) error {
	m.send(ctx, Notification{
		Type:      NotificationError,
		Title:     "Pipeline Error",
		Message:   where + ": " + err.Error(),
		Timestamp: time.Now(),
	})
	return nil
}

func (m *Manager) send(ctx context.Context, n Notification) {
	m.mu.RLock()
	channels := make([]Channel, len(m.channels))
	copy(channels, m.channels)
	m.mu.RUnlock()

	for _, ch := range channels {
		if !ch.IsEnabled() {
			continue
		}
		if err := ch.Send(ctx, n); err != nil {
			m.log.Warn().Err(err).Str("channel", ch.Name()).Msg("notification delivery failed")
		}
	}
}
