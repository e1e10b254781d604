package transport

import (
	"context"
	"log/slog"
	"sync"

	"github.com/notifhub/notifhub/pkg/logger"
)

// Subscriptions keeps server-side broadcast-channel membership in sync with
// the client's active company. Membership is never assumed to survive a
// reconnect: every connected event re-subscribes the active company.
type Subscriptions struct {
	client *Client
	logger *slog.Logger

	mu            sync.Mutex
	activeCompany string

	onConnected Subscription
}

// NewSubscriptions wires a subscription manager to the client's lifecycle.
func NewSubscriptions(client *Client, log *slog.Logger) *Subscriptions {
	if log == nil {
		log = slog.Default()
	}
	s := &Subscriptions{
		client: client,
		logger: log,
	}
	s.onConnected = client.On(EventConnected, func(Event) {
		s.mu.Lock()
		company := s.activeCompany
		s.mu.Unlock()

		if company != "" {
			s.SubscribeToCompany(company)
		}
	})
	return s
}

// SetActiveCompany records the company whose channel should be joined and,
// when connected, moves membership over immediately. The server contract does
// not require the explicit unsubscribe (membership may be additive), but we
// send it for hygiene.
func (s *Subscriptions) SetActiveCompany(companyID string) {
	s.mu.Lock()
	previous := s.activeCompany
	s.activeCompany = companyID
	s.mu.Unlock()

	if !s.client.IsConnected() {
		return
	}
	if previous != "" && previous != companyID {
		s.UnsubscribeFromCompany(previous)
	}
	if companyID != "" {
		s.SubscribeToCompany(companyID)
	}
}

// ActiveCompany returns the currently tracked company id.
func (s *Subscriptions) ActiveCompany() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeCompany
}

// SubscribeToCompany joins the company broadcast channel. Skipped with a
// warning when disconnected: that race is expected during startup and the
// connected handler will re-issue the subscribe. Never queued.
func (s *Subscriptions) SubscribeToCompany(companyID string) {
	if err := s.client.Send(context.Background(), SignalSubscribeCompany, companyPayload{CompanyID: companyID}); err != nil {
		s.logger.LogAttrs(context.Background(), slog.LevelWarn, "cannot subscribe to company channel",
			logger.CompanyID(companyID),
			logger.Error(err),
		)
	}
}

// UnsubscribeFromCompany leaves the company broadcast channel. Same
// disconnected semantics as SubscribeToCompany.
func (s *Subscriptions) UnsubscribeFromCompany(companyID string) {
	if err := s.client.Send(context.Background(), SignalUnsubscribeCompany, companyPayload{CompanyID: companyID}); err != nil {
		s.logger.LogAttrs(context.Background(), slog.LevelWarn, "cannot unsubscribe from company channel",
			logger.CompanyID(companyID),
			logger.Error(err),
		)
	}
}

// Close detaches the manager from the client lifecycle.
func (s *Subscriptions) Close() {
	s.client.Off(s.onConnected)
}
