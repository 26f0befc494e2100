package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/astromitra/astromitra/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection serializes concurrent transactions instead of tripping
	// sqlite's busy errors; the unique index still arbitrates first-seen.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Wallet{},
		&models.WalletEntry{},
		&models.PaymentTransaction{},
		&models.ProcessedEvent{},
	))
	return db
}

func seedTransaction(t *testing.T, db *gorm.DB, provider, ref string, amount int64) *models.PaymentTransaction {
	t.Helper()
	user := &models.User{Name: "Asha Rao", Email: fmt.Sprintf("asha+%s@example.com", ref), Password: "x"}
	require.NoError(t, db.Create(user).Error)

	txn := &models.PaymentTransaction{
		UserID:      user.ID,
		Method:      models.PaymentMethodCard,
		Amount:      amount,
		Currency:    "USD",
		Status:      models.TransactionStatusPending,
		Provider:    provider,
		ProviderRef: ref,
	}
	require.NoError(t, db.Create(txn).Error)
	return txn
}

func walletBalance(t *testing.T, db *gorm.DB, userID uint) int64 {
	t.Helper()
	var wallet models.Wallet
	err := db.Where("user_id = ?", userID).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0
	}
	require.NoError(t, err)
	return wallet.Balance
}

func squareWebhookBody(eventID, paymentID, status string) []byte {
	return []byte(fmt.Sprintf(
		`{"event_id":%q,"type":"payment.updated","data":{"object":{"payment":{"id":%q,"status":%q}}}}`,
		eventID, paymentID, status))
}

func TestIngestSucceededThenDuplicate(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	txn := seedTransaction(t, db, "square", "sq_pay_t1", 5000)

	body := squareWebhookBody("sq_evt_t1", "sq_pay_t1", "COMPLETED")

	result, err := svc.Ingest(context.Background(), "square", body)
	require.NoError(t, err)
	assert.Equal(t, IngestProcessed, result.Outcome)

	var stored models.PaymentTransaction
	require.NoError(t, db.First(&stored, txn.ID).Error)
	assert.Equal(t, models.TransactionStatusSucceeded, stored.Status)
	assert.Equal(t, int64(5000), walletBalance(t, db, txn.UserID))

	// Identical redelivery acknowledges without re-applying anything.
	result, err = svc.Ingest(context.Background(), "square", body)
	require.NoError(t, err)
	assert.Equal(t, IngestDuplicate, result.Outcome)
	assert.Equal(t, int64(5000), walletBalance(t, db, txn.UserID))

	var entries int64
	require.NoError(t, db.Model(&models.WalletEntry{}).Where("user_id = ?", txn.UserID).Count(&entries).Error)
	assert.Equal(t, int64(1), entries)
}

func TestIngestConcurrentDuplicateDeliveries(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	txn := seedTransaction(t, db, "square", "sq_pay_conc", 2500)

	body := squareWebhookBody("sq_evt_conc", "sq_pay_conc", "COMPLETED")

	const n = 8
	results := make([]IngestOutcome, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Ingest(context.Background(), "square", body)
			results[i], errs[i] = res.Outcome, err
		}(i)
	}
	wg.Wait()

	processed, duplicates := 0, 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		switch results[i] {
		case IngestProcessed:
			processed++
		case IngestDuplicate:
			duplicates++
		}
	}
	assert.Equal(t, 1, processed, "exactly one delivery may win the gate")
	assert.Equal(t, n-1, duplicates)
	assert.Equal(t, int64(2500), walletBalance(t, db, txn.UserID))
}

func TestIngestReplayAgainstTerminalTransaction(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	txn := seedTransaction(t, db, "square", "sq_pay_replay", 1200)

	_, err := svc.Ingest(context.Background(), "square", squareWebhookBody("sq_evt_r1", "sq_pay_replay", "COMPLETED"))
	require.NoError(t, err)
	assert.Equal(t, int64(1200), walletBalance(t, db, txn.UserID))

	// A second succeeded event (fresh event id, same payment) passes the gate
	// but the terminal-state guard prevents a double credit.
	result, err := svc.Ingest(context.Background(), "square", squareWebhookBody("sq_evt_r2", "sq_pay_replay", "COMPLETED"))
	require.NoError(t, err)
	assert.Equal(t, IngestProcessed, result.Outcome)
	assert.Equal(t, int64(1200), walletBalance(t, db, txn.UserID))

	var stored models.PaymentTransaction
	require.NoError(t, db.First(&stored, txn.ID).Error)
	assert.Equal(t, models.TransactionStatusSucceeded, stored.Status)
}

func TestIngestOutOfOrderProcessingDoesNotRegress(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	txn := seedTransaction(t, db, "square", "sq_pay_ooo", 900)

	_, err := svc.Ingest(context.Background(), "square", squareWebhookBody("sq_evt_o1", "sq_pay_ooo", "COMPLETED"))
	require.NoError(t, err)

	// The delayed "processing" notification arrives after settlement.
	_, err = svc.Ingest(context.Background(), "square", squareWebhookBody("sq_evt_o2", "sq_pay_ooo", "PENDING"))
	require.NoError(t, err)

	var stored models.PaymentTransaction
	require.NoError(t, db.First(&stored, txn.ID).Error)
	assert.Equal(t, models.TransactionStatusSucceeded, stored.Status)
	assert.Equal(t, int64(900), walletBalance(t, db, txn.UserID))
}

func TestIngestProcessingAdvancesPending(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	txn := seedTransaction(t, db, "square", "sq_pay_proc", 700)

	result, err := svc.Ingest(context.Background(), "square", squareWebhookBody("sq_evt_p1", "sq_pay_proc", "PENDING"))
	require.NoError(t, err)
	assert.Equal(t, IngestProcessed, result.Outcome)

	var stored models.PaymentTransaction
	require.NoError(t, db.First(&stored, txn.ID).Error)
	assert.Equal(t, models.TransactionStatusProcessing, stored.Status)
	assert.Equal(t, int64(0), walletBalance(t, db, txn.UserID), "processing moves no money")
}

func TestIngestFailedEvent(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	txn := seedTransaction(t, db, "square", "sq_pay_fail", 800)

	_, err := svc.Ingest(context.Background(), "square", squareWebhookBody("sq_evt_f1", "sq_pay_fail", "FAILED"))
	require.NoError(t, err)

	var stored models.PaymentTransaction
	require.NoError(t, db.First(&stored, txn.ID).Error)
	assert.Equal(t, models.TransactionStatusFailed, stored.Status)
	assert.Equal(t, int64(0), walletBalance(t, db, txn.UserID))
}

func TestIngestUnknownEventTypeIsRecordedAndIgnored(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	body := []byte(`{"event_id":"sq_evt_info","type":"invoice.published","data":{}}`)

	result, err := svc.Ingest(context.Background(), "square", body)
	require.NoError(t, err)
	assert.Equal(t, IngestIgnored, result.Outcome)

	var count int64
	require.NoError(t, db.Model(&models.ProcessedEvent{}).
		Where("provider = ? AND event_id = ?", "square", "sq_evt_info").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// Redelivery of the informational event short-circuits as a duplicate.
	result, err = svc.Ingest(context.Background(), "square", body)
	require.NoError(t, err)
	assert.Equal(t, IngestDuplicate, result.Outcome)
}

func TestIngestMalformedPayloadIsAcknowledged(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	result, err := svc.Ingest(context.Background(), "square", []byte(`signed garbage, not json`))
	require.NoError(t, err)
	assert.Equal(t, IngestIgnored, result.Outcome)
	assert.True(t, result.Event.Synthesized)

	var count int64
	require.NoError(t, db.Model(&models.ProcessedEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestIngestMissingTransactionRollsBackGate(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	body := squareWebhookBody("sq_evt_orphan", "sq_pay_orphan", "COMPLETED")

	_, err := svc.Ingest(context.Background(), "square", body)
	var dispatchErr *DispatchError
	require.ErrorAs(t, err, &dispatchErr)

	// No ProcessedEvent row may survive: the provider retry must get a clean
	// second attempt once the transaction exists.
	var count int64
	require.NoError(t, db.Model(&models.ProcessedEvent{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	// Transaction shows up (initiation flow caught up), retry succeeds once.
	txn := seedTransaction(t, db, "square", "sq_pay_orphan", 3000)
	result, err := svc.Ingest(context.Background(), "square", body)
	require.NoError(t, err)
	assert.Equal(t, IngestProcessed, result.Outcome)
	assert.Equal(t, int64(3000), walletBalance(t, db, txn.UserID))
}

func TestIngestStorageFailureIsRetryable(t *testing.T) {
	db := newTestDB(t)
	txn := seedTransaction(t, db, "square", "sq_pay_outage", 4400)

	// Second handle onto the same shared-cache database simulates one replica
	// losing its storage connection.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	broken, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	brokenSQL, err := broken.DB()
	require.NoError(t, err)
	require.NoError(t, brokenSQL.Close())

	body := squareWebhookBody("sq_evt_outage", "sq_pay_outage", "COMPLETED")

	_, err = NewService(broken).Ingest(context.Background(), "square", body)
	require.Error(t, err, "storage unavailable must surface as a retryable error")

	var count int64
	require.NoError(t, db.Model(&models.ProcessedEvent{}).Count(&count).Error)
	assert.Equal(t, int64(0), count, "failed ingest must not record the event")

	// Provider retries once storage recovers; applied exactly once.
	result, err := NewService(db).Ingest(context.Background(), "square", body)
	require.NoError(t, err)
	assert.Equal(t, IngestProcessed, result.Outcome)
	assert.Equal(t, int64(4400), walletBalance(t, db, txn.UserID))

	result, err = NewService(db).Ingest(context.Background(), "square", body)
	require.NoError(t, err)
	assert.Equal(t, IngestDuplicate, result.Outcome)
	assert.Equal(t, int64(4400), walletBalance(t, db, txn.UserID))
}

func TestIngestStripeEventFlow(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	txn := seedTransaction(t, db, "stripe", "pi_550", 5500)

	body := []byte(`{"id":"evt_550","type":"payment_intent.succeeded","data":{"object":{"id":"pi_550"}}}`)

	result, err := svc.Ingest(context.Background(), "stripe", body)
	require.NoError(t, err)
	assert.Equal(t, IngestProcessed, result.Outcome)

	var stored models.PaymentTransaction
	require.NoError(t, db.First(&stored, txn.ID).Error)
	assert.Equal(t, models.TransactionStatusSucceeded, stored.Status)
	assert.Equal(t, int64(5500), walletBalance(t, db, txn.UserID))
}
