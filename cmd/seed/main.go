// Command seed populates a fresh database with an administrator, a
// demo user with wallet balance, one parking spot with slots and two
// sample pricing rules.  It is idempotent enough for development use:
// rerunning against a seeded database fails on the unique emails and
// exits without side effects.
package main

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/parksmart/parksmart-api/internal/config"
	"github.com/parksmart/parksmart-api/internal/database"
	"github.com/parksmart/parksmart-api/internal/model"
	"github.com/parksmart/parksmart-api/internal/repository"
	"github.com/parksmart/parksmart-api/internal/utils"
	"github.com/parksmart/parksmart-api/internal/wallet"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DSN(), database.Pool{})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users := repository.NewUserRepo(db)
	txs := repository.NewTransactionRepo(db)
	spots := repository.NewSpotRepo(db)
	slots := repository.NewSlotRepo(db)
	rules := repository.NewPricingRuleRepo(db)
	ledger := wallet.NewLedger(wallet.NewSQLStore(db, users, txs))

	adminHash, err := utils.HashPassword("admin123!", cfg.BcryptCost)
	if err != nil {
		log.Fatalf("hash: %v", err)
	}
	adminID, err := users.Create(ctx, "Admin", "admin@parksmart.local", adminHash, model.RoleAdmin)
	if err != nil {
		log.Fatalf("create admin: %v", err)
	}
	log.Printf("created admin %d (admin@parksmart.local / admin123!)", adminID)

	demoHash, err := utils.HashPassword("demo1234!", cfg.BcryptCost)
	if err != nil {
		log.Fatalf("hash: %v", err)
	}
	demoID, err := users.Create(ctx, "Demo User", "demo@parksmart.local", demoHash, model.RoleUser)
	if err != nil {
		log.Fatalf("create demo user: %v", err)
	}
	if _, _, err := ledger.Credit(ctx, demoID, decimal.NewFromInt(500),
		model.CategoryWalletTopup, model.TxReference{}, "Initial demo balance"); err != nil {
		log.Fatalf("fund demo wallet: %v", err)
	}
	log.Printf("created demo user %d with 500.00 balance", demoID)

	spot := model.ParkingSpot{
		SpotNumber:   "CP-1",
		LocationName: "Central Plaza Parking",
		Address:      "1 Plaza Road",
		PricePerHour: decimal.NewFromInt(50),
		IsAvailable:  true,
	}
	if err := spots.Create(ctx, &spot); err != nil {
		log.Fatalf("create spot: %v", err)
	}
	for i := 1; i <= 10; i++ {
		slotType := "regular"
		if i > 8 {
			slotType = "electric"
		}
		s := model.Slot{
			SpotID:     spot.ID,
			SlotNumber: "CP-1-" + strconv.Itoa(i),
			Floor:      "G",
			SlotType:   slotType,
		}
		if err := slots.Create(ctx, &s); err != nil {
			log.Fatalf("create slot: %v", err)
		}
	}
	log.Printf("created spot %d with 10 slots", spot.ID)

	peak := model.PricingRule{
		Name:        "Weekday evening peak",
		Description: "Evening rush surcharge on workdays",
		SpotID:      &spot.ID,
		PeakHours:   []model.HourWindow{{Start: 17, End: 21}},
		DaysOfWeek:  []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
		Multiplier:  decimal.RequireFromString("1.5"),
		Priority:    10,
		IsActive:    true,
	}
	if err := rules.Create(ctx, &peak); err != nil {
		log.Fatalf("create rule: %v", err)
	}
	night := model.PricingRule{
		Name:        "Overnight discount",
		Description: "Cheaper parking through the night, wraps past midnight",
		PeakHours:   []model.HourWindow{{Start: 22, End: 6}},
		Multiplier:  decimal.RequireFromString("0.8"),
		Priority:    5,
		IsActive:    true,
	}
	if err := rules.Create(ctx, &night); err != nil {
		log.Fatalf("create rule: %v", err)
	}
	log.Printf("created pricing rules %d and %d", peak.ID, night.ID)
}
