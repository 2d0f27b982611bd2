package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Event types this service reacts to. Anything else is acknowledged without
// side effects; Stripe adds kinds faster than we care about them.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// Event is the provider envelope, parsed only after signature verification.
type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// CheckoutSession is the slice of checkout.session.completed we consume.
type CheckoutSession struct {
	ID                string            `json:"id"`
	ClientReferenceID string            `json:"client_reference_id"`
	Customer          string            `json:"customer"`
	Subscription      string            `json:"subscription"`
	PaymentStatus     string            `json:"payment_status"`
	Metadata          map[string]string `json:"metadata"`
}

// Subscription is the slice of customer.subscription.* objects we consume.
type Subscription struct {
	ID       string            `json:"id"`
	Customer string            `json:"customer"`
	Status   string            `json:"status"`
	Metadata map[string]string `json:"metadata"`
	Items    struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// ParseStripeEvent decodes the event envelope from raw webhook bytes.
func ParseStripeEvent(payload []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("malformed event payload: %w", err)
	}
	if strings.TrimSpace(ev.Type) == "" {
		return nil, errors.New("malformed event payload: missing type")
	}
	return &ev, nil
}

// CreatedAt returns the event's own timestamp, used for the stale-event guard.
func (e *Event) CreatedAt() time.Time {
	return time.Unix(e.Created, 0)
}

// CheckoutSession decodes the data object for checkout events.
func (e *Event) CheckoutSession() (*CheckoutSession, error) {
	var cs CheckoutSession
	if err := json.Unmarshal(e.Data.Object, &cs); err != nil {
		return nil, fmt.Errorf("malformed checkout session object: %w", err)
	}
	return &cs, nil
}

// Subscription decodes the data object for subscription events.
func (e *Event) Subscription() (*Subscription, error) {
	var sub Subscription
	if err := json.Unmarshal(e.Data.Object, &sub); err != nil {
		return nil, fmt.Errorf("malformed subscription object: %w", err)
	}
	if strings.TrimSpace(sub.ID) == "" {
		return nil, errors.New("malformed subscription object: missing id")
	}
	return &sub, nil
}

// PriceIDs lists the price refs on the subscription items, in order.
func (s *Subscription) PriceIDs() []string {
	out := make([]string, 0, len(s.Items.Data))
	for _, item := range s.Items.Data {
		if id := strings.TrimSpace(item.Price.ID); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// UserRef extracts the local account reference from checkout metadata,
// preferring client_reference_id over metadata.user_id.
func (cs *CheckoutSession) UserRef() string {
	if ref := strings.TrimSpace(cs.ClientReferenceID); ref != "" {
		return ref
	}
	return strings.TrimSpace(cs.Metadata["user_id"])
}
