package payment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrProvider      = errors.New("payment provider error")
	ErrSessionExists = errors.New("booking already has a checkout session")
	ErrNotPending    = errors.New("only pending bookings can be checked out")
)

const (
	SESSION_OPEN     = "open"
	SESSION_COMPLETE = "complete"
	SESSION_EXPIRED  = "expired"

	PAYMENT_PAID                = "paid"
	PAYMENT_UNPAID              = "unpaid"
	PAYMENT_NO_PAYMENT_REQUIRED = "no_payment_required"
)

// Gateway is a hosted checkout provider.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error)
	RetrieveSession(ctx context.Context, sessionID string) (*SessionStatus, error)
	CreateRefund(ctx context.Context, req RefundRequest) (string, error)
}

type CheckoutRequest struct {
	BookingID   string
	CustomerRef string
	AmountMinor int64
	Currency    string
	ProductName string
	Description string
	Image       string
	SuccessURL  string
	CancelURL   string
	ExpiresAt   time.Time
}

type RefundRequest struct {
	PaymentID      string
	AmountMinor    int64
	IdempotencyKey string
}

type Session struct {
	SessionID   string `json:"sessionId"`
	RedirectURL string `json:"redirectUrl"`
}

type SessionStatus struct {
	SessionID     string `json:"sessionId"`
	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus"`
	PaymentID     string `json:"paymentId,omitempty"`
	BookingID     string `json:"bookingId,omitempty"`
}

// Settled reports whether the provider has collected the money.
func (s *SessionStatus) Settled() bool {
	return s.Status == SESSION_COMPLETE &&
		(s.PaymentStatus == PAYMENT_PAID || s.PaymentStatus == PAYMENT_NO_PAYMENT_REQUIRED)
}

var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
	"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

// ToMinorUnits converts an amount to the smallest currency unit.
func ToMinorUnits(amount decimal.Decimal, currency string) int64 {
	if zeroDecimalCurrencies[strings.ToLower(currency)] {
		return amount.Round(0).IntPart()
	}
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
