package payments

import (
	"errors"
	"fmt"
	"log"

	"github.com/astromitra/astromitra/app/models"
	"gorm.io/gorm"
)

// DispatchError signals that a verified, first-seen event could not be
// applied to the ledger (most commonly: the referenced transaction does not
// exist yet). The webhook endpoint answers 5xx so the provider redelivers
// once the data race has resolved; repeated occurrences are a consistency bug
// and need operator attention.
type DispatchError struct {
	Provider    string
	ProviderRef string
	Reason      string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch failed for %s payment %q: %s", e.Provider, e.ProviderRef, e.Reason)
}

// Dispatcher applies normalized provider events to the transaction and wallet
// ledger. It holds no state; all mutations run on the *gorm.DB handle passed
// in, which the ingestion service scopes to the same transaction as the
// idempotency insert.
type Dispatcher struct{}

// Apply advances the transaction state machine for the event:
//
//	pending -> processing -> {succeeded | failed}
//
// A succeeded transition credits the user's wallet by the transaction amount.
// Terminal transactions are never regressed; late or out-of-order events
// against them are logged no-ops. Every status write is a conditional UPDATE
// so a concurrent transition cannot double-apply money even if the
// idempotency gate were somehow bypassed.
func (d *Dispatcher) Apply(tx *gorm.DB, ev Event) error {
	if ev.Type == EventUnknown {
		log.Printf("[payments] ignoring %s event type %q (event %s)", ev.Provider, ev.RawType, ev.ID)
		return nil
	}
	if ev.ProviderRef == "" {
		return &DispatchError{Provider: ev.Provider, ProviderRef: ev.ProviderRef, Reason: "event carries no payment reference"}
	}

	var txn models.PaymentTransaction
	err := tx.Where("provider = ? AND provider_ref = ?", ev.Provider, ev.ProviderRef).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &DispatchError{Provider: ev.Provider, ProviderRef: ev.ProviderRef, Reason: "no matching transaction"}
		}
		return err
	}

	if txn.IsTerminal() {
		log.Printf("[payments] transaction %d already %s, ignoring %s event %s", txn.ID, txn.Status, ev.Provider, ev.ID)
		return nil
	}

	switch ev.Type {
	case EventPaymentSucceeded:
		return d.applySucceeded(tx, &txn)
	case EventPaymentFailed:
		return d.applyFailed(tx, &txn)
	case EventPaymentProcessing:
		return d.applyProcessing(tx, &txn)
	}
	return nil
}

func (d *Dispatcher) applySucceeded(tx *gorm.DB, txn *models.PaymentTransaction) error {
	res := tx.Model(&models.PaymentTransaction{}).
		Where("id = ? AND status IN ?", txn.ID, []string{models.TransactionStatusPending, models.TransactionStatusProcessing}).
		Update("status", models.TransactionStatusSucceeded)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Lost the race against another transition; the winner owns the credit.
		log.Printf("[payments] transaction %d changed state concurrently, skipping credit", txn.ID)
		return nil
	}
	return CreditWallet(tx, txn.UserID, txn.Amount, txn.Currency, models.WalletReasonPayment, &txn.ID)
}

func (d *Dispatcher) applyFailed(tx *gorm.DB, txn *models.PaymentTransaction) error {
	return tx.Model(&models.PaymentTransaction{}).
		Where("id = ? AND status IN ?", txn.ID, []string{models.TransactionStatusPending, models.TransactionStatusProcessing}).
		Update("status", models.TransactionStatusFailed).Error
}

func (d *Dispatcher) applyProcessing(tx *gorm.DB, txn *models.PaymentTransaction) error {
	return tx.Model(&models.PaymentTransaction{}).
		Where("id = ? AND status = ?", txn.ID, models.TransactionStatusPending).
		Update("status", models.TransactionStatusProcessing).Error
}

// CreditWallet increments a user's wallet balance by amount minor units as a
// single atomic UPDATE and appends the matching ledger entry. The wallet row
// is created on first credit.
func CreditWallet(tx *gorm.DB, userID uint, amount int64, currency, reason string, transactionID *uint) error {
	if amount <= 0 {
		return fmt.Errorf("wallet credit must be positive, got %d", amount)
	}
	wallet := models.Wallet{UserID: userID, Currency: currency}
	if err := tx.Where("user_id = ?", userID).FirstOrCreate(&wallet).Error; err != nil {
		return err
	}
	res := tx.Model(&models.Wallet{}).
		Where("user_id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	entry := models.WalletEntry{
		UserID:        userID,
		Direction:     models.WalletEntryCredit,
		Amount:        amount,
		Currency:      currency,
		Reason:        reason,
		TransactionID: transactionID,
	}
	return tx.Create(&entry).Error
}

// ErrInsufficientBalance is returned when a debit would take a wallet
// negative. The debit is rejected, never clamped.
var ErrInsufficientBalance = errors.New("insufficient wallet balance")

// DebitWallet decrements a user's wallet balance by amount minor units. The
// conditional WHERE guarantees the balance never goes negative regardless of
// concurrent debits.
func DebitWallet(tx *gorm.DB, userID uint, amount int64, currency, reason string, transactionID *uint) error {
	if amount <= 0 {
		return fmt.Errorf("wallet debit must be positive, got %d", amount)
	}
	res := tx.Model(&models.Wallet{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientBalance
	}
	entry := models.WalletEntry{
		UserID:        userID,
		Direction:     models.WalletEntryDebit,
		Amount:        amount,
		Currency:      currency,
		Reason:        reason,
		TransactionID: transactionID,
	}
	return tx.Create(&entry).Error
}
