package models

import "time"

// ProcessedEvent records a webhook delivery that has already been consumed,
// keyed uniquely by (provider, event_id). Rows are created exactly once per
// genuinely new event and are never updated or deleted; the table doubles as
// an audit trail of everything the payment providers ever told us.
type ProcessedEvent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Provider    string    `gorm:"type:varchar(20);not null;index:ux_processed_events_provider_event,unique,priority:1" json:"provider"`
	EventID     string    `gorm:"type:varchar(191);not null;index:ux_processed_events_provider_event,unique,priority:2" json:"event_id"`
	EventType   string    `gorm:"type:varchar(100);not null;default:''" json:"event_type"`
	FirstSeenAt time.Time `gorm:"autoCreateTime;index" json:"first_seen_at"`
}
