package boot

import (
	"context"
	"log"
	"rentals/src/booking"
	"rentals/src/common"
	"rentals/src/config"
	"rentals/src/db"
	"rentals/src/inventory"
	"rentals/src/lib"
	"rentals/src/lib/mailer"
	"rentals/src/middlewares"
	"rentals/src/models"
	"rentals/src/notify"
	"rentals/src/payment"
	"rentals/src/repository"
	"rentals/src/repository/memory"
	"rentals/src/types"
	"rentals/src/webhook"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func InitDb(cfg *config.App) (*gorm.DB, error) {
	conn, err := db.Open(cfg.GetDSN())
	if err != nil {
		return nil, err
	}
	err = conn.AutoMigrate(
		&models.User{},
		&models.House{},
		&models.Hotel{},
		&models.Car{},
		&models.Booking{},
		&models.Notification{},
	)
	if err != nil {
		log.Printf("error migration: %s\n", err.Error())
		return nil, err
	}
	return conn, nil
}

type userStore interface {
	notify.Store
	middlewares.UserFinder
}

// App holds the wired services shared by the HTTP handlers.
type App struct {
	Config   *config.App
	Bookings *booking.Service
	Payments *payment.Adapter
	// set when checkout runs against the local gateway
	Local    *payment.LocalGateway
	Webhooks *webhook.Reconciler
	Users    middlewares.UserFinder
	Sweeper  *common.PendingSweeper

	mailer *mailer.Queue
}

// InitApp wires stores, payment provider, dedupe log and mailer from the config.
func InitApp(cfg *config.App) (*App, error) {
	var (
		bookings booking.Repository
		rentals  inventory.Repository
		users    userStore
	)
	switch cfg.StoreDriver {
	case config.STORE_MEMORY:
		log.Println("[Boot] WARNING: using in-memory stores, data is lost on restart")
		bookings = memory.NewBookingStore()
		rentals = memory.NewRentalStore(DemoRentals(time.Now())...)
		users = memory.NewUserStore(DemoUsers()...)
	default:
		conn, err := InitDb(cfg)
		if err != nil {
			return nil, err
		}
		bookings = repository.NewBookingRepository(conn)
		rentals = repository.NewRentalRepository(conn)
		users = repository.NewUserRepository(conn)
	}

	app := &App{Config: cfg, Users: users}

	var gateway payment.Gateway
	if cfg.StripeSecretKey != "" {
		gateway = payment.NewStripeGateway(lib.GetStripeClient(cfg.StripeSecretKey))
	} else {
		app.Local = payment.NewLocalGateway("http://localhost:" + cfg.Port + "/api/v1")
		gateway = app.Local
	}
	app.Payments = payment.NewAdapter(gateway, bookings, cfg.AppHost, cfg.CheckoutTTL)

	var notifier *notify.Notifier
	if cfg.SMTPHost != "" {
		client, err := lib.GetSMTPClient(lib.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		})
		if err != nil {
			return nil, err
		}
		app.mailer = mailer.NewQueue(func(ctx context.Context, input *lib.SendMailInput) error {
			return lib.SendMail(ctx, client, input)
		}, 256)
		app.mailer.Start()
		notifier = notify.NewNotifier(users, app.mailer, cfg.SMTPFrom)
	} else {
		notifier = notify.NewNotifier(users, nil, cfg.SMTPFrom)
	}

	app.Bookings = booking.NewService(bookings, inventory.NewLedger(rentals), app.Payments, notifier,
		booking.WithCurrency(cfg.Currency))

	var events webhook.EventLog
	if cfg.RedisURL != "" {
		rdb, err := lib.GetRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		events = webhook.NewRedisEventLog(rdb, cfg.WebhookDedupeTTL)
	} else {
		log.Println("[Boot] REDIS_HOST is not set, webhook events are deduplicated in memory")
		events = webhook.NewMemoryEventLog(cfg.WebhookDedupeTTL)
	}
	app.Webhooks = webhook.NewReconciler(cfg.StripeWebhookSecret, cfg.AllowUnsignedWebhooks && !cfg.IsProd(), app.Bookings, events)

	app.Sweeper = common.NewPendingSweeper(app.Bookings, app.Payments, cfg.CheckoutTTL, 100)
	return app, nil
}

func InitScheduler(cfg *config.App, sweeper *common.PendingSweeper) error {
	if _, err := lib.CreateCronJob("pending-bookings", sweeper.Run, cfg.PendingSweepInterval); err != nil {
		log.Printf("Error scheduling pending sweeper: %s\n", err.Error())
		return err
	}
	return lib.StartScheduler()
}

func (a *App) Close() {
	lib.StopScheduler()
	if a.mailer != nil {
		a.mailer.Stop()
	}
}

func DemoUsers() []models.User {
	return []models.User{
		{ID: 1, Name: "Guest", Email: "guest@rentals.local", Role: types.ROLE_GUEST},
		{ID: 2, Name: "Admin", Email: "admin@rentals.local", Role: types.ROLE_ADMIN},
		{ID: 3, Name: "Second guest", Email: "guest2@rentals.local", Role: types.ROLE_GUEST},
	}
}

// DemoRentals returns one rental of each kind, available for the next 90 days.
func DemoRentals(from time.Time) []models.RentalItem {
	start := models.DateOnly(from)
	dates := make(types.StringList, 0, 90)
	for i := 0; i < 90; i++ {
		dates = append(dates, models.FormatDate(start.AddDate(0, 0, i)))
	}
	return []models.RentalItem{
		&models.House{
			ID:             1,
			OwnerID:        2,
			Title:          "Seaside cottage",
			Location:       "Lisbon",
			PricePerNight:  decimal.NewFromInt(120),
			MaxGuests:      4,
			AvailableDates: dates,
		},
		&models.Hotel{
			ID:               1,
			OwnerID:          2,
			Name:             "Harbour hotel",
			Location:         "Lisbon",
			PricePerNight:    decimal.NewFromInt(90),
			MaxGuestsPerRoom: 2,
			TotalRooms:       5,
			RoomsAvailable:   5,
		},
		&models.Car{
			ID:             1,
			OwnerID:        2,
			Make:           "Renault",
			Model:          "Clio",
			Location:       "Lisbon",
			PricePerDay:    decimal.NewFromInt(45),
			Seats:          5,
			AvailableDates: append(types.StringList{}, dates...),
		},
	}
}
