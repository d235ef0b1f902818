// Package webhooks provides event notifications to external services.
//
// Compliance integrations can register webhook URLs to receive notifications
// about:
// - Deal status changes
// - Manual overrides
// - Appeal activity
package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/fairplayhq/nilguard/internal/security"
)

// EventType represents the type of webhook event
type EventType string

const (
	EventStatusChanged   EventType = "deal.status_changed"
	EventScoreRecorded   EventType = "deal.score_recorded"
	EventOverrideApplied EventType = "override.applied"
	EventAppealFiled     EventType = "appeal.filed"
	EventAppealResolved  EventType = "appeal.resolved"
	EventBulkCompleted   EventType = "bulk.completed"
)

// Event represents a webhook event
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscription represents a webhook subscription
type Subscription struct {
	ID                  string      `json:"id"`
	OwnerID             string      `json:"ownerId"`
	URL                 string      `json:"url"`
	Secret              string      `json:"-"` // Used for HMAC signing
	Events              []EventType `json:"events"`
	Active              bool        `json:"active"`
	CreatedAt           time.Time   `json:"createdAt"`
	LastSuccess         *time.Time  `json:"lastSuccess,omitempty"`
	LastError           string      `json:"lastError,omitempty"`
	ConsecutiveFailures int         `json:"consecutiveFailures,omitempty"`
}

// Store persists webhook subscriptions
type Store interface {
	Create(ctx context.Context, sub *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	GetByOwner(ctx context.Context, ownerID string) ([]*Subscription, error)
	GetByEvent(ctx context.Context, eventType EventType) ([]*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error
	Delete(ctx context.Context, id string) error
}

// RetryConfig controls delivery retry behaviour.
type RetryConfig struct {
	// MaxAttempts is the total number of delivery attempts per event.
	MaxAttempts int
	// BaseDelay is the delay before the first retry; doubles each attempt.
	BaseDelay time.Duration
	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration
	// MaxFailures disables a subscription after this many consecutive failures.
	MaxFailures int
}

// DefaultRetryConfig returns the standard delivery retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		MaxFailures: 50,
	}
}

// Dispatcher sends webhook events
type Dispatcher struct {
	store  Store
	client *http.Client
	retry  RetryConfig
	mu     sync.RWMutex

	// urlValidator rejects unsafe endpoint URLs before each delivery.
	// Overridable in tests to allow loopback servers.
	urlValidator func(string) error
}

// NewDispatcher creates a new webhook dispatcher with the default retry policy
func NewDispatcher(store Store) *Dispatcher {
	return NewDispatcherWithRetry(store, DefaultRetryConfig())
}

// NewDispatcherWithRetry creates a dispatcher with a custom retry policy
func NewDispatcherWithRetry(store Store, retry RetryConfig) *Dispatcher {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return &Dispatcher{
		store: store,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		retry:        retry,
		urlValidator: security.ValidateEndpointURL,
	}
}

// Store returns the subscription store backing this dispatcher.
func (d *Dispatcher) Store() Store {
	return d.store
}

// Dispatch sends an event to all relevant subscribers
func (d *Dispatcher) Dispatch(ctx context.Context, event *Event) error {
	subs, err := d.store.GetByEvent(ctx, event.Type)
	if err != nil {
		return fmt.Errorf("failed to get subscribers: %w", err)
	}

	for _, sub := range subs {
		if !sub.Active {
			continue
		}

		// Send async to avoid blocking
		go d.send(ctx, sub, event)
	}

	return nil
}

// DispatchToOwner sends an event to a specific subscriber's webhooks
func (d *Dispatcher) DispatchToOwner(ctx context.Context, ownerID string, event *Event) error {
	subs, err := d.store.GetByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to get subscriptions: %w", err)
	}

	for _, sub := range subs {
		if !sub.Active {
			continue
		}

		// Check if subscribed to this event type
		for _, et := range sub.Events {
			if et == event.Type {
				go d.send(ctx, sub, event)
				break
			}
		}
	}

	return nil
}

func (d *Dispatcher) send(ctx context.Context, sub *Subscription, event *Event) {
	if d.urlValidator != nil {
		if err := d.urlValidator(sub.URL); err != nil {
			d.updateError(ctx, sub, fmt.Sprintf("unsafe url: %v", err))
			return
		}
	}

	payload, err := json.Marshal(event)
	if err != nil {
		d.updateError(ctx, sub, "failed to marshal event")
		return
	}

	delay := d.retry.BaseDelay
	var lastErr string
	for attempt := 1; attempt <= d.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				d.updateError(ctx, sub, "delivery cancelled")
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > d.retry.MaxDelay {
				delay = d.retry.MaxDelay
			}
		}

		if err := d.attempt(ctx, sub, event, payload); err == nil {
			d.updateSuccess(ctx, sub)
			return
		} else {
			lastErr = err.Error()
		}
	}

	d.updateError(ctx, sub, lastErr)
}

func (d *Dispatcher) attempt(ctx context.Context, sub *Subscription, event *Event, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, "POST", sub.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-NILGuard-Event", string(event.Type))
	req.Header.Set("X-NILGuard-Timestamp", fmt.Sprintf("%d", event.Timestamp.Unix()))

	// Sign the payload if secret is set
	if sub.Secret != "" {
		signature := d.sign(payload, sub.Secret)
		req.Header.Set("X-NILGuard-Signature", signature)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("status %d", resp.StatusCode)
}

func (d *Dispatcher) sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

func (d *Dispatcher) updateSuccess(ctx context.Context, sub *Subscription) {
	now := time.Now()
	sub.LastSuccess = &now
	sub.LastError = ""
	sub.ConsecutiveFailures = 0
	d.store.Update(ctx, sub)
}

func (d *Dispatcher) updateError(ctx context.Context, sub *Subscription, errMsg string) {
	sub.LastError = errMsg
	sub.ConsecutiveFailures++
	if d.retry.MaxFailures > 0 && sub.ConsecutiveFailures >= d.retry.MaxFailures {
		sub.Active = false
	}
	d.store.Update(ctx, sub)
}

// MemoryStore is an in-memory implementation for testing
type MemoryStore struct {
	subs map[string]*Subscription
	mu   sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subs: make(map[string]*Subscription),
	}
}

func (m *MemoryStore) Create(ctx context.Context, sub *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[sub.ID] = sub
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sub, ok := m.subs[id]; ok {
		return sub, nil
	}
	return nil, fmt.Errorf("subscription not found")
}

func (m *MemoryStore) GetByOwner(ctx context.Context, ownerID string) ([]*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*Subscription
	for _, sub := range m.subs {
		if sub.OwnerID == ownerID {
			result = append(result, sub)
		}
	}
	return result, nil
}

func (m *MemoryStore) GetByEvent(ctx context.Context, eventType EventType) ([]*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*Subscription
	for _, sub := range m.subs {
		for _, et := range sub.Events {
			if et == eventType {
				result = append(result, sub)
				break
			}
		}
	}
	return result, nil
}

func (m *MemoryStore) Update(ctx context.Context, sub *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[sub.ID] = sub
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, id)
	return nil
}
