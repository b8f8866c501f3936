package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/parksmart/parksmart-api/internal/config"
	"github.com/parksmart/parksmart-api/internal/database"
	"github.com/parksmart/parksmart-api/internal/handler"
	"github.com/parksmart/parksmart-api/internal/pricing"
	"github.com/parksmart/parksmart-api/internal/qrtoken"
	"github.com/parksmart/parksmart-api/internal/queue"
	"github.com/parksmart/parksmart-api/internal/repository"
	"github.com/parksmart/parksmart-api/internal/reservation"
	"github.com/parksmart/parksmart-api/internal/router"
	queuepublisher "github.com/parksmart/parksmart-api/internal/service"
	"github.com/parksmart/parksmart-api/internal/utils"
	"github.com/parksmart/parksmart-api/internal/wallet"
	"github.com/parksmart/parksmart-api/internal/worker"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DSN(), database.Pool{MaxOpen: cfg.DBMaxOpen, MaxIdle: cfg.DBMaxIdle, ConnTTL: cfg.DBConnTTL})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	defer rdb.Close()

	loc, err := time.LoadLocation(cfg.FacilityTZ)
	if err != nil {
		log.Fatalf("invalid FACILITY_TZ %q: %v", cfg.FacilityTZ, err)
	}

	users := repository.NewUserRepo(db)
	txs := repository.NewTransactionRepo(db)
	spots := repository.NewSpotRepo(db)
	slots := repository.NewSlotRepo(db)
	rules := repository.NewPricingRuleRepo(db)
	reservations := repository.NewReservationRepo(db)

	ledger := wallet.NewLedger(wallet.NewSQLStore(db, users, txs))
	engine := pricing.NewEngine(rules, loc)
	codec := qrtoken.NewCodec([]byte(cfg.QRSecret))
	events := queuepublisher.NewPublisher(cfg.AMQPURL)
	svc := reservation.NewService(reservations, slots, spots, ledger, engine, codec, events)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go worker.NewExpirySweeper(svc, cfg.ExpirySweepInterval).Run(ctx)
	go func() {
		if err := queue.StartEventConsumer(cfg.AMQPURL); err != nil {
			log.Printf("event-consumer: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Validator = utils.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.Register(e, router.Handlers{
		Auth:         handler.NewAuthHandler(cfg, users),
		Spots:        handler.NewSpotHandler(spots, slots),
		Slots:        handler.NewSlotHandler(slots, events),
		Reservations: handler.NewReservationHandler(svc, reservations),
		QR:           handler.NewQRHandler(svc),
		Wallet:       handler.NewWalletHandler(ledger, txs),
		Pricing:      handler.NewPricingHandler(rules, spots, engine),
		Analytics:    handler.NewAnalyticsHandler(reservations),
	}, cfg, rdb)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (facility tz %s)", addr, cfg.FacilityTZ)
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
