package models

import "time"

const (
	WalletEntryCredit = "credit"
	WalletEntryDebit  = "debit"

	WalletReasonPayment       = "payment"
	WalletReasonSessionCharge = "session_charge"
	WalletReasonAdjustment    = "adjustment"
)

// Wallet holds one balance row per user in integral minor-currency units.
// The balance is only ever changed through atomic increments guarded by the
// repository layer; it must never go negative.
type Wallet struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"-"`
	Balance   int64     `gorm:"not null;default:0" json:"balance"`
	Currency  string    `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// WalletEntry is an append-only ledger row written alongside every balance
// change. Entries are never updated or deleted.
type WalletEntry struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	Direction     string    `gorm:"type:varchar(10);not null" json:"direction"`
	Amount        int64     `gorm:"not null" json:"amount"`
	Currency      string    `gorm:"type:varchar(3);not null" json:"currency"`
	Reason        string    `gorm:"type:varchar(50);not null" json:"reason"`
	TransactionID *uint     `gorm:"index" json:"transaction_id,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
