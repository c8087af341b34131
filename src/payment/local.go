package payment

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
)

// LocalGateway stands in for the provider when no API key is configured.
// Sessions stay open until Complete or Expire is called.
type LocalGateway struct {
	mu       sync.Mutex
	host     string
	sessions map[string]*SessionStatus
	refunds  map[string]string
}

func NewLocalGateway(host string) *LocalGateway {
	log.Println("[Payment] WARNING: STRIPE_SECRET_KEY is not set, using the local payment gateway")
	return &LocalGateway{
		host:     host,
		sessions: map[string]*SessionStatus{},
		refunds:  map[string]string{},
	}
}

func (g *LocalGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := "cs_local_" + uuid.NewString()
	g.sessions[id] = &SessionStatus{
		SessionID:     id,
		Status:        SESSION_OPEN,
		PaymentStatus: PAYMENT_UNPAID,
		BookingID:     req.BookingID,
	}
	return &Session{SessionID: id, RedirectURL: fmt.Sprintf("%s/local-checkout/%s", g.host, id)}, nil
}

func (g *LocalGateway) RetrieveSession(ctx context.Context, sessionID string) (*SessionStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("no such checkout session: %s", sessionID)
	}
	c := *s
	return &c, nil
}

func (g *LocalGateway) CreateRefund(ctx context.Context, req RefundRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ref, ok := g.refunds[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return ref, nil
	}
	ref := "re_local_" + uuid.NewString()
	if req.IdempotencyKey != "" {
		g.refunds[req.IdempotencyKey] = ref
	}
	return ref, nil
}

// Complete marks a session as paid, like a customer finishing checkout.
func (g *LocalGateway) Complete(sessionID string) (*SessionStatus, error) {
	return g.settle(sessionID, SESSION_COMPLETE, PAYMENT_PAID, "pi_local_"+uuid.NewString())
}

func (g *LocalGateway) Expire(sessionID string) (*SessionStatus, error) {
	return g.settle(sessionID, SESSION_EXPIRED, PAYMENT_UNPAID, "")
}

func (g *LocalGateway) settle(sessionID, status, paymentStatus, paymentID string) (*SessionStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("no such checkout session: %s", sessionID)
	}
	s.Status = status
	s.PaymentStatus = paymentStatus
	s.PaymentID = paymentID
	c := *s
	return &c, nil
}
