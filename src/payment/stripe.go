package payment

import (
	"context"

	"github.com/stripe/stripe-go/v82"
)

const metadataBookingID = "booking_id"

type StripeGateway struct {
	sc *stripe.Client
}

func NewStripeGateway(sc *stripe.Client) *StripeGateway {
	return &StripeGateway{sc: sc}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	productData := &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
		Name:        stripe.String(req.ProductName),
		Description: stripe.String(req.Description),
	}
	if req.Image != "" {
		productData.Images = []*string{stripe.String(req.Image)}
	}
	params := stripe.CheckoutSessionCreateParams{
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		UIMode:            stripe.String("hosted"),
		Mode:              stripe.String("payment"),
		ClientReferenceID: stripe.String(req.BookingID),
		ExpiresAt:         stripe.Int64(req.ExpiresAt.Unix()),
		Metadata: map[string]string{
			metadataBookingID: req.BookingID,
			"renter_id":       req.CustomerRef,
		},
		PaymentIntentData: &stripe.CheckoutSessionCreatePaymentIntentDataParams{
			Metadata: map[string]string{
				metadataBookingID: req.BookingID,
			},
		},
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:    stripe.String(req.Currency),
					UnitAmount:  stripe.Int64(req.AmountMinor),
					ProductData: productData,
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.SetIdempotencyKey("checkout-" + req.BookingID)
	cs, err := g.sc.V1CheckoutSessions.Create(ctx, &params)
	if err != nil {
		return nil, err
	}
	return &Session{SessionID: cs.ID, RedirectURL: cs.URL}, nil
}

func (g *StripeGateway) RetrieveSession(ctx context.Context, sessionID string) (*SessionStatus, error) {
	cs, err := g.sc.V1CheckoutSessions.Retrieve(ctx, sessionID, &stripe.CheckoutSessionRetrieveParams{})
	if err != nil {
		return nil, err
	}
	return StatusFromCheckoutSession(cs), nil
}

func (g *StripeGateway) CreateRefund(ctx context.Context, req RefundRequest) (string, error) {
	params := stripe.RefundCreateParams{
		PaymentIntent: stripe.String(req.PaymentID),
		Amount:        stripe.Int64(req.AmountMinor),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	r, err := g.sc.V1Refunds.Create(ctx, &params)
	if err != nil {
		return "", err
	}
	return r.ID, nil
}

// StatusFromCheckoutSession flattens a stripe checkout session, it is also
// used for sessions decoded from webhook payloads.
func StatusFromCheckoutSession(cs *stripe.CheckoutSession) *SessionStatus {
	status := &SessionStatus{
		SessionID:     cs.ID,
		Status:        string(cs.Status),
		PaymentStatus: string(cs.PaymentStatus),
		BookingID:     cs.Metadata[metadataBookingID],
	}
	if status.BookingID == "" {
		status.BookingID = cs.ClientReferenceID
	}
	if cs.PaymentIntent != nil {
		status.PaymentID = cs.PaymentIntent.ID
	}
	return status
}
