package controllers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/astromitra/astromitra/app/models"
	"github.com/astromitra/astromitra/internal/pkg/payments"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testSquareSecret = "square-test-secret"
	testSquareURL    = "https://api.astromitra.example/webhooks/square"
	testStripeSecret = "whsec_controller_test"
)

func newWebhookTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Wallet{},
		&models.WalletEntry{},
		&models.PaymentTransaction{},
		&models.ProcessedEvent{},
	))

	cfg := payments.Config{
		Stripe: payments.ProviderConfig{Secret: testStripeSecret, Tolerance: 5 * time.Minute},
		Square: payments.ProviderConfig{Secret: testSquareSecret, NotificationURL: testSquareURL},
	}
	wc := NewWebhookController(payments.NewService(db), cfg)

	app := fiber.New()
	app.Post("/webhooks/stripe", wc.HandleStripeWebhook)
	app.Post("/webhooks/square", wc.HandleSquareWebhook)
	return app, db
}

func seedWebhookTransaction(t *testing.T, db *gorm.DB, provider, ref string, amount int64) *models.PaymentTransaction {
	t.Helper()
	user := &models.User{Name: "Ravi Iyer", Email: fmt.Sprintf("ravi+%s@example.com", ref), Password: "x"}
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

func signSquareBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSquareSecret))
	mac.Write([]byte(testSquareURL))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func postWebhook(t *testing.T, app *fiber.App, path string, body []byte, header, value string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("POST", path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if header != "" {
		req.Header.Set(header, value)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(payload)
}

func TestSquareWebhookEndToEnd(t *testing.T) {
	app, db := newWebhookTestApp(t)
	txn := seedWebhookTransaction(t, db, "square", "sq_pay_e2e", 5000)

	body := []byte(`{"event_id":"sq_evt_e2e","type":"payment.updated","data":{"object":{"payment":{"id":"sq_pay_e2e","status":"COMPLETED"}}}}`)

	status, respBody := postWebhook(t, app, "/webhooks/square", body, "x-square-hmacsha256-signature", signSquareBody(body))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, respBody, `"ok":true`)

	var stored models.PaymentTransaction
	require.NoError(t, db.First(&stored, txn.ID).Error)
	assert.Equal(t, models.TransactionStatusSucceeded, stored.Status)

	var wallet models.Wallet
	require.NoError(t, db.Where("user_id = ?", txn.UserID).First(&wallet).Error)
	assert.Equal(t, int64(5000), wallet.Balance)

	// Redelivering the identical webhook acknowledges as duplicate and moves
	// no additional money.
	status, respBody = postWebhook(t, app, "/webhooks/square", body, "x-square-hmacsha256-signature", signSquareBody(body))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, respBody, `"duplicate":true`)

	require.NoError(t, db.Where("user_id = ?", txn.UserID).First(&wallet).Error)
	assert.Equal(t, int64(5000), wallet.Balance)
}

func TestSquareWebhookTamperedBody(t *testing.T) {
	app, db := newWebhookTestApp(t)
	seedWebhookTransaction(t, db, "square", "sq_pay_tamper", 5000)

	body := []byte(`{"event_id":"sq_evt_tamper","type":"payment.updated","data":{"object":{"payment":{"id":"sq_pay_tamper","status":"COMPLETED"}}}}`)
	sig := signSquareBody(body)

	// One character changed after signing.
	tampered := bytes.Replace(body, []byte("COMPLETED"), []byte("COMPLETEX"), 1)

	status, _ := postWebhook(t, app, "/webhooks/square", tampered, "x-square-hmacsha256-signature", sig)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	var events int64
	require.NoError(t, db.Model(&models.ProcessedEvent{}).Count(&events).Error)
	assert.Equal(t, int64(0), events, "unauthenticated delivery must not be recorded")

	var stored models.PaymentTransaction
	require.NoError(t, db.Where("provider_ref = ?", "sq_pay_tamper").First(&stored).Error)
	assert.Equal(t, models.TransactionStatusPending, stored.Status, "no dispatch may occur")
}

func TestSquareWebhookMissingSignature(t *testing.T) {
	app, _ := newWebhookTestApp(t)

	status, _ := postWebhook(t, app, "/webhooks/square", []byte(`{}`), "", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestStripeWebhookEndToEnd(t *testing.T) {
	app, db := newWebhookTestApp(t)
	txn := seedWebhookTransaction(t, db, "stripe", "pi_e2e", 2600)

	body := []byte(`{"id":"evt_e2e","type":"payment_intent.succeeded","data":{"object":{"id":"pi_e2e"}}}`)
	now := time.Now()
	header := fmt.Sprintf("t=%d,v1=%x", now.Unix(), webhook.ComputeSignature(now, body, testStripeSecret))

	status, _ := postWebhook(t, app, "/webhooks/stripe", body, "Stripe-Signature", header)
	assert.Equal(t, fiber.StatusOK, status)

	var stored models.PaymentTransaction
	require.NoError(t, db.First(&stored, txn.ID).Error)
	assert.Equal(t, models.TransactionStatusSucceeded, stored.Status)
}

func TestStripeWebhookBadSignatureIs400(t *testing.T) {
	app, _ := newWebhookTestApp(t)

	// Stripe expects 400 on signature failure, unlike Square's 401.
	status, _ := postWebhook(t, app, "/webhooks/stripe", []byte(`{}`), "Stripe-Signature", "t=1,v1=deadbeef")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestSquareWebhookUnknownEventTypeIsAcknowledged(t *testing.T) {
	app, db := newWebhookTestApp(t)

	body := []byte(`{"event_id":"sq_evt_dispute","type":"dispute.created","data":{}}`)
	status, respBody := postWebhook(t, app, "/webhooks/square", body, "x-square-hmacsha256-signature", signSquareBody(body))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, respBody, `"ignored":true`)

	var events int64
	require.NoError(t, db.Model(&models.ProcessedEvent{}).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestSquareWebhookMissingTransactionIs500(t *testing.T) {
	app, db := newWebhookTestApp(t)

	body := []byte(`{"event_id":"sq_evt_ghost","type":"payment.updated","data":{"object":{"payment":{"id":"sq_pay_ghost","status":"COMPLETED"}}}}`)
	status, respBody := postWebhook(t, app, "/webhooks/square", body, "x-square-hmacsha256-signature", signSquareBody(body))
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Contains(t, respBody, "dispatch_failed")

	var events int64
	require.NoError(t, db.Model(&models.ProcessedEvent{}).Count(&events).Error)
	assert.Equal(t, int64(0), events, "failed dispatch must leave no gate row behind")
}
