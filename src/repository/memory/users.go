package memory

import (
	"context"
	"errors"
	"rentals/src/models"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrUserNotFound = errors.New("user not found")

type UserStore struct {
	mu            sync.Mutex
	users         map[uint]models.User
	notifications []models.Notification
}

func NewUserStore(users ...models.User) *UserStore {
	s := &UserStore{users: map[uint]models.User{}}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *UserStore) FindUser(ctx context.Context, id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (s *UserStore) SaveNotification(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.CreatedAt = time.Now()
	s.notifications = append(s.notifications, *n)
	return nil
}

// Notifications returns the notifications saved for a user.
func (s *UserStore) Notifications(userID uint) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}
