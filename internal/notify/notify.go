// Package notify streams best-effort progress events to an external UI
// listener. Delivery failures are logged and swallowed; they never reach
// the primary request flow.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventType identifies the kind of progress event.
type EventType string

const (
	EventSearchStarted   EventType = "search_started"
	EventLeadFound       EventType = "lead_found"
	EventSearchCompleted EventType = "search_completed"
	EventError           EventType = "error"
)

// AgentType tags every event with its producer.
const AgentType = "lead_finder"

// Event is the envelope POSTed to the listener.
type Event struct {
	ID           string         `json:"id"`
	AgentType    string         `json:"agent_type"`
	Event        EventType      `json:"event"`
	BusinessID   string         `json:"business_id,omitempty"`
	BusinessName string         `json:"business_name,omitempty"`
	Status       string         `json:"status,omitempty"`
	Message      string         `json:"message"`
	Data         map[string]any `json:"data,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// Notifier delivers events to a callback URL.
type Notifier struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

// New creates a Notifier. baseURL is the default listener; a per-request
// callback URL overrides it. timeout bounds each delivery attempt.
func New(baseURL string, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     zap.L().With(zap.String("component", "notify")),
	}
}

// Send posts one event. callbackURL overrides the configured default; when
// both are empty the event is dropped. Errors are logged at warn and
// swallowed.
func (n *Notifier) Send(ctx context.Context, callbackURL string, event Event) {
	url := callbackURL
	if url == "" {
		if n.baseURL == "" {
			return
		}
		url = n.baseURL + "/agent_callback"
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	event.AgentType = AgentType
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		n.log.Warn("marshal event failed", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		n.log.Warn("create callback request failed", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Warn("callback delivery failed",
			zap.String("event", string(event.Event)),
			zap.Error(err),
		)
		return
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		n.log.Warn("callback returned error status",
			zap.String("event", string(event.Event)),
			zap.Int("status", resp.StatusCode),
		)
	}
}
