package main

import (
	"context"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/solarsight/solarsight/pkg/log"
	"github.com/solarsight/solarsight/pkg/storage"
	"github.com/solarsight/solarsight/pkg/types"
)

// seeds the firestore emulator with a demo account and a day of
// synthetic telemetry snapshots for local frontend work.
func main() {
	os.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:8087")
	db := storage.Configured()
	lflag.Configure()

	ctx := context.Background()

	log.Ctx(ctx).InfoContext(ctx, "seeding mock data")

	account := types.Account{
		ID:     "demo",
		Name:   "Demo Homestead",
		Vendor: types.VendorGrowatt,
		Credentials: types.Credentials{
			Growatt: &types.GrowattCredentials{Username: "demo", Password: "demo"},
		},
	}
	if err := db.UpsertAccount(ctx, account); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed account", "error", err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	const (
		peakKW   = 8.0
		totalKWH = 12345.0
	)

	now := time.Now()
	start := now.Truncate(24 * time.Hour)
	daily := 0.0

	for t := start; t.Before(now); t = t.Add(time.Hour) {
		hour := t.Hour()

		// solar bell curve centered on early afternoon
		powerKW := 0.0
		if hour > 6 && hour < 19 {
			dist := math.Abs(float64(hour) - 13.0)
			powerKW = peakKW * math.Exp(-(dist*dist)/12.0)
			powerKW += (rng.Float64() * 0.4) - 0.2
			powerKW = math.Max(powerKW, 0)
		}
		daily += powerKW

		total := totalKWH + daily
		ts := t.UTC().Format(time.RFC3339)
		res := types.AggregateResult{
			Status:          types.StatusOnline,
			CurrentPower:    powerKW,
			DailyGeneration: daily,
			TotalGeneration: total,
			CO2Saved:        total * 0.000997,
			PlantCount:      1,
			Plants: []types.PlantSummary{{
				Name:         "Demo Homestead",
				PlantID:      "1",
				TodayEnergy:  daily,
				TotalEnergy:  total,
				CurrentPower: powerKW,
				Status:       types.StatusOnline,
			}},
			LastUpdate: &ts,
		}
		if err := db.UpsertSnapshot(ctx, account.ID, res); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to seed snapshot", "error", err)
			os.Exit(1)
		}
	}

	log.Ctx(ctx).InfoContext(ctx, "seeding complete")
	if err := db.Close(); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", "error", err)
	}
}
