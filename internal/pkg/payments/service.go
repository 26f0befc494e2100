package payments

import (
	"context"
	"log"

	"gorm.io/gorm"
)

// IngestOutcome classifies how a verified delivery was handled.
type IngestOutcome int

const (
	// IngestProcessed: first delivery, ledger mutation applied.
	IngestProcessed IngestOutcome = iota
	// IngestDuplicate: event was consumed by an earlier delivery.
	IngestDuplicate
	// IngestIgnored: first delivery of an event type the system does not act
	// on; recorded and acknowledged, no mutation.
	IngestIgnored
)

// IngestResult reports the outcome of one webhook ingestion.
type IngestResult struct {
	Outcome IngestOutcome
	Event   Event
}

// Service is the ingestion core every provider endpoint funnels through:
// normalize the verified payload, pass the idempotency gate, and dispatch the
// ledger mutation. Gate and dispatch run in one storage transaction so a
// crash between them cannot strand an event as seen-but-unapplied.
type Service struct {
	db         *gorm.DB
	dispatcher Dispatcher
}

// NewService creates an ingestion service from a GORM DB handle.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Ingest consumes one verified webhook delivery. The raw body must be the
// exact bytes the signature was checked against. Returned errors are storage
// or dispatch failures and map to a retryable 5xx at the HTTP boundary;
// duplicates and ignored event types are successful outcomes.
func (s *Service) Ingest(ctx context.Context, provider string, rawBody []byte) (IngestResult, error) {
	ev := ParseEvent(provider, rawBody)
	result := IngestResult{Event: ev}

	if ev.Synthesized {
		log.Printf("[payments] %s delivery without stable event id, synthesized %s (payload flagged for review)", provider, ev.ID)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		outcome, err := insertProcessedEvent(tx, ev.Provider, ev.ID, string(ev.Type))
		if err != nil {
			return err
		}
		if outcome == OutcomeAlreadyExists {
			result.Outcome = IngestDuplicate
			return nil
		}
		if ev.Type == EventUnknown {
			// Recorded but not actionable; keep the gate row so redeliveries
			// of the same informational event short-circuit as duplicates.
			log.Printf("[payments] recorded unhandled %s event %s (type %q)", ev.Provider, ev.ID, ev.RawType)
			result.Outcome = IngestIgnored
			return nil
		}
		if err := s.dispatcher.Apply(tx, ev); err != nil {
			// Rolls back the gate row too: the provider retry gets a clean
			// second attempt.
			return err
		}
		result.Outcome = IngestProcessed
		return nil
	})
	if err != nil {
		return IngestResult{Event: ev}, err
	}
	return result, nil
}
