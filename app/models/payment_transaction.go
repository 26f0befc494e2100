package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	PaymentProviderStripe = "stripe"
	PaymentProviderSquare = "square"

	PaymentMethodCard   = "card"
	PaymentMethodUPI    = "upi"
	PaymentMethodWallet = "wallet"

	TransactionStatusPending    = "pending"
	TransactionStatusProcessing = "processing"
	TransactionStatusSucceeded  = "succeeded"
	TransactionStatusFailed     = "failed"
)

// PaymentTransaction represents one attempted payment. Amounts are integral
// minor-currency units (cents/paise); amount and currency always travel
// together. Status is only ever advanced by the webhook dispatcher once the
// transaction has been handed to a provider.
type PaymentTransaction struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	User        *User     `gorm:"foreignKey:UserID" json:"-"`
	Method      string    `gorm:"type:varchar(20);not null" json:"method" validate:"oneof=card upi wallet"`
	Amount      int64     `gorm:"not null" json:"amount" validate:"gt=0"`
	Currency    string    `gorm:"type:varchar(3);not null" json:"currency" validate:"required,len=3"`
	Status      string    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Provider    string    `gorm:"type:varchar(20);not null;default:'';index:ux_payment_transactions_provider_ref,unique,priority:1" json:"provider"`
	ProviderRef string    `gorm:"type:varchar(191);not null;default:'';index:ux_payment_transactions_provider_ref,unique,priority:2" json:"provider_ref"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *PaymentTransaction) Validate() error {
	v := validator.New()

	return v.Struct(t)
}

// IsTerminal reports whether the transaction has reached a final status.
// Terminal statuses are never overwritten, regardless of what a late or
// duplicate provider event claims.
func (t *PaymentTransaction) IsTerminal() bool {
	return t.Status == TransactionStatusSucceeded || t.Status == TransactionStatusFailed
}
