package payments

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// EventType is the provider-neutral classification of a webhook event.
type EventType string

const (
	EventPaymentSucceeded  EventType = "payment.succeeded"
	EventPaymentFailed     EventType = "payment.failed"
	EventPaymentProcessing EventType = "payment.processing"
	EventUnknown           EventType = "unknown"
)

// Event is the normalized form of a verified webhook payload. ID is the
// provider-assigned event identifier, or a synthesized one when the payload
// could not be parsed; ProviderRef points at the provider-side payment object
// the event is about.
type Event struct {
	Provider    string
	ID          string
	Synthesized bool
	Type        EventType
	RawType     string
	ProviderRef string
}

// eventIDCandidates are the field names providers use for their event
// identifier, in lookup order. Providers are not consistent here.
var eventIDCandidates = []string{"event_id", "id", "delivery_id"}

// ExtractEventID pulls the provider-assigned event identifier out of a
// verified payload. When the payload cannot be parsed or carries no usable
// identifier, a fresh random identifier is synthesized so the pipeline never
// rejects a signed delivery. Synthesized identifiers do not deduplicate a
// malformed payload across redeliveries; that is an accepted tradeoff.
func ExtractEventID(rawBody []byte) (string, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(rawBody, &fields); err != nil {
		return synthesizeEventID(), true
	}
	for _, key := range eventIDCandidates {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			continue
		}
		if strings.TrimSpace(id) != "" {
			return strings.TrimSpace(id), false
		}
	}
	return synthesizeEventID(), true
}

func synthesizeEventID() string {
	return "synthesized:" + uuid.NewString()
}

// ParseEvent normalizes a verified raw payload for the given provider. It
// never fails: unparseable or unrecognized payloads come back typed as
// EventUnknown with a synthesized identifier where necessary.
func ParseEvent(provider string, rawBody []byte) Event {
	id, synthesized := ExtractEventID(rawBody)
	ev := Event{
		Provider:    provider,
		ID:          id,
		Synthesized: synthesized,
		Type:        EventUnknown,
	}
	if synthesized {
		return ev
	}

	switch provider {
	case "stripe":
		parseStripePayload(rawBody, &ev)
	case "square":
		parseSquarePayload(rawBody, &ev)
	}
	return ev
}

type stripePayload struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	} `json:"data"`
}

func parseStripePayload(rawBody []byte, ev *Event) {
	var p stripePayload
	if err := json.Unmarshal(rawBody, &p); err != nil {
		return
	}
	ev.RawType = p.Type
	ev.ProviderRef = p.Data.Object.ID

	switch p.Type {
	case "payment_intent.succeeded":
		ev.Type = EventPaymentSucceeded
	case "payment_intent.payment_failed":
		ev.Type = EventPaymentFailed
	case "payment_intent.processing":
		ev.Type = EventPaymentProcessing
	}
}

type squarePayload struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			Payment struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"payment"`
		} `json:"object"`
	} `json:"data"`
}

func parseSquarePayload(rawBody []byte, ev *Event) {
	var p squarePayload
	if err := json.Unmarshal(rawBody, &p); err != nil {
		return
	}
	ev.RawType = p.Type
	ev.ProviderRef = p.Data.Object.Payment.ID

	if p.Type != "payment.created" && p.Type != "payment.updated" {
		return
	}
	switch p.Data.Object.Payment.Status {
	case "COMPLETED":
		ev.Type = EventPaymentSucceeded
	case "FAILED", "CANCELED":
		ev.Type = EventPaymentFailed
	case "PENDING", "APPROVED":
		ev.Type = EventPaymentProcessing
	}
}
