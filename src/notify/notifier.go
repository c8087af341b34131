package notify

import (
	"context"
	"log"
	"rentals/src/booking"
	"rentals/src/lib"
	"rentals/src/models"
	"rentals/src/types"

	"github.com/google/uuid"
)

type Store interface {
	FindUser(ctx context.Context, id uint) (*models.User, error)
	SaveNotification(ctx context.Context, n *models.Notification) error
}

type Mailer interface {
	NewMailerMessage(input *lib.SendMailInput) bool
}

// Notifier records booking notices and emails them when a mailer is set.
// Failures are logged and never reach the booking operation.
type Notifier struct {
	store  Store
	mailer Mailer
	from   string
}

func NewNotifier(store Store, mailer Mailer, from string) *Notifier {
	return &Notifier{store: store, mailer: mailer, from: from}
}

func (n *Notifier) Notify(ctx context.Context, notice booking.Notice) {
	description := notice.Message
	record := &models.Notification{
		ID:             uuid.New(),
		UserID:         notice.UserID,
		ReferenceType:  "booking",
		ReferenceValue: notice.BookingID.String(),
		Title:          notice.Title,
		Description:    &description,
		ReferenceBody:  &types.JSONB{"booking_id": notice.BookingID.String()},
		Type:           notice.Kind,
	}

	if n.mailer != nil {
		user, err := n.store.FindUser(ctx, notice.UserID)
		if err != nil {
			log.Printf("[Notify] could not look up user %d: %s\n", notice.UserID, err.Error())
		} else if user.Email != "" {
			record.EmailDelivered = n.mailer.NewMailerMessage(&lib.SendMailInput{
				From:     n.from,
				FromName: "Rentals",
				To:       []string{user.Email},
				Subject:  notice.Title,
				Body:     notice.Message,
			})
		}
	}

	if err := n.store.SaveNotification(ctx, record); err != nil {
		log.Printf("[Notify] could not save %s notification for %s: %s\n", notice.Kind, notice.BookingID, err.Error())
	}
}
