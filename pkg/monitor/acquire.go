package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/solarsight/solarsight/pkg/log"
	"github.com/solarsight/solarsight/pkg/types"
	"golang.org/x/sync/errgroup"
)

const (
	// co2TonsPerKWH converts lifetime generation to avoided CO₂ in
	// metric tons, the factor the vendor's own dashboard uses.
	co2TonsPerKWH = 0.000997

	plantWorkers  = 4
	deviceWorkers = 4
)

// plantResult is the per-plant outcome of one run.
type plantResult struct {
	plant   plant
	powerKW float64
	source  string
}

// Acquire runs one full acquisition against the vendor and always
// returns a well-formed result. Units that fail to resolve contribute
// zero; only missing credentials, an unreachable vendor, rejected
// authentication or an unavailable plant list surface in the Error
// field, and even then every other field is populated.
func (g *Growatt) Acquire(ctx context.Context, creds types.Credentials) types.AggregateResult {
	if creds.Growatt == nil || creds.Growatt.Username == "" || creds.Growatt.Password == "" {
		// short-circuit before any network activity
		return assemble(nil, errMissingCredentials)
	}

	ctx, cancel := context.WithTimeout(ctx, g.runTimeout)
	defer cancel()

	sess, err := g.login(ctx, creds.Growatt)
	if err != nil {
		return assemble(nil, err)
	}

	plants, ok := g.listPlants(ctx, sess)
	if !ok {
		return assemble(nil, errPlantListUnavailable)
	}

	results := make([]plantResult, len(plants))
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(plantWorkers)
	for i, pl := range plants {
		grp.Go(func() error {
			results[i] = g.collectPlant(grpCtx, sess, pl)
			return nil
		})
	}
	// workers never return errors, Wait is just the barrier
	_ = grp.Wait()

	return assemble(results, nil)
}

// collectPlant resolves live power for one plant. A nonzero plant-level
// figure is authoritative and skips the device pass entirely; otherwise
// each device is probed and the readings summed. Summation is
// commutative so the device goroutines need no ordering.
func (g *Growatt) collectPlant(ctx context.Context, sess *session, pl plant) plantResult {
	res := plantResult{plant: pl}

	if kw, src := g.plantPower(ctx, sess, pl.id); kw != 0 {
		res.powerKW = kw
		res.source = src
		log.Ctx(ctx).DebugContext(ctx, "plant power resolved",
			slog.String("plantID", pl.id), slog.String("source", src))
		return res
	}

	devices, ok := g.listDevices(ctx, sess, pl.id)
	if !ok || len(devices) == 0 {
		log.Ctx(ctx).DebugContext(ctx, "plant resolved no power",
			slog.String("plantID", pl.id))
		return res
	}

	var mu sync.Mutex
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(deviceWorkers)
	for _, dev := range devices {
		grp.Go(func() error {
			r := g.locateReading(grpCtx, sess, pl.id, dev)
			if r.powerKW == 0 {
				return nil
			}
			mu.Lock()
			res.powerKW += r.powerKW
			if res.source == "" {
				res.source = r.source
			}
			mu.Unlock()
			return nil
		})
	}
	_ = grp.Wait()
	log.Ctx(ctx).DebugContext(ctx, "plant power summed from devices",
		slog.String("plantID", pl.id), slog.String("source", res.source),
		slog.Int("devices", len(devices)))
	return res
}

// assemble builds the final aggregate. It is the single place the
// output contract is enforced: every field is always set, LastUpdate is
// never nil and the result is valid JSON-wise even for a fully failed
// run.
func assemble(results []plantResult, fatal error) types.AggregateResult {
	res := types.AggregateResult{
		Status: types.StatusOffline,
		Plants: []types.PlantSummary{},
	}

	for _, pr := range results {
		status := types.StatusOffline
		if pr.powerKW > 0 || pr.plant.totalEnergy > 0 {
			status = types.StatusOnline
		}
		res.Plants = append(res.Plants, types.PlantSummary{
			Name:         pr.plant.name,
			PlantID:      pr.plant.id,
			TodayEnergy:  pr.plant.todayEnergy,
			TotalEnergy:  pr.plant.totalEnergy,
			CurrentPower: pr.powerKW,
			Status:       status,
		})
		res.CurrentPower += pr.powerKW
		res.DailyGeneration += pr.plant.todayEnergy
		res.TotalGeneration += pr.plant.totalEnergy
	}

	res.PlantCount = len(res.Plants)
	res.CO2Saved = res.TotalGeneration * co2TonsPerKWH
	if res.TotalGeneration > 0 {
		res.Status = types.StatusOnline
	}
	if fatal != nil {
		res.Error = fatal.Error()
	}

	now := time.Now().UTC().Format(time.RFC3339)
	res.LastUpdate = &now
	return res
}
