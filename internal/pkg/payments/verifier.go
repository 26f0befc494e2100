package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"
)

var (
	ErrMissingSignature = errors.New("signature header is required")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Verifier decides whether a webhook body genuinely originated from its
// provider. Implementations are pure functions of the exact raw bytes as
// transmitted; verifying a re-serialized body silently breaks signature
// matching and must never happen.
type Verifier interface {
	Verify(rawBody []byte, signatureHeader string) error
}

// SquareVerifier checks the x-square-hmacsha256-signature header: an
// HMAC-SHA256 over the registered notification URL concatenated with the raw
// body, base64-encoded.
type SquareVerifier struct {
	Secret          string
	NotificationURL string
}

func (v SquareVerifier) Verify(rawBody []byte, signatureHeader string) error {
	sig := strings.TrimSpace(signatureHeader)
	if sig == "" {
		return ErrMissingSignature
	}
	if v.Secret == "" {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(v.Secret))
	mac.Write([]byte(v.NotificationURL))
	mac.Write(rawBody)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrInvalidSignature
	}
	return nil
}

// StripeVerifier delegates to the Stripe SDK's own signature validation over
// the raw body, with a tolerance window for clock skew.
type StripeVerifier struct {
	Secret    string
	Tolerance time.Duration
}

func (v StripeVerifier) Verify(rawBody []byte, signatureHeader string) error {
	if strings.TrimSpace(signatureHeader) == "" {
		return ErrMissingSignature
	}
	tolerance := v.Tolerance
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	if err := webhook.ValidatePayloadWithTolerance(rawBody, signatureHeader, v.Secret, tolerance); err != nil {
		return ErrInvalidSignature
	}
	return nil
}
