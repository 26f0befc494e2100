package payments

import (
	"github.com/astromitra/astromitra/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InsertOutcome is the typed result of the idempotency insert. Callers branch
// on this value, never on error-message text.
type InsertOutcome int

const (
	// OutcomeInserted means this (provider, event_id) pair was seen for the
	// first time and the caller owns dispatching it.
	OutcomeInserted InsertOutcome = iota
	// OutcomeAlreadyExists means a previous delivery already consumed the
	// event; the caller must acknowledge without dispatching again.
	OutcomeAlreadyExists
)

// insertProcessedEvent atomically records that the given (provider, event_id)
// pair has been seen. The unique index on the pair is the sole concurrency
// arbiter: two simultaneous deliveries of the same event resolve to exactly
// one OutcomeInserted. Any error is a genuine storage failure and must bubble
// up as retryable.
func insertProcessedEvent(tx *gorm.DB, provider, eventID, eventType string) (InsertOutcome, error) {
	event := models.ProcessedEvent{
		Provider:  provider,
		EventID:   eventID,
		EventType: eventType,
	}
	res := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "event_id"},
		},
		DoNothing: true,
	}).Create(&event)
	if res.Error != nil {
		return OutcomeAlreadyExists, res.Error
	}
	if res.RowsAffected == 0 {
		return OutcomeAlreadyExists, nil
	}
	return OutcomeInserted, nil
}
