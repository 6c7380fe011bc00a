package types

const (
	// AccountIDNone is used when running in single-account mode.
	AccountIDNone = "none"

	// VendorGrowatt identifies the Growatt-style monitoring platform.
	VendorGrowatt = "growatt"
)

// Aggregate and per-plant status values. A run is online when at least
// one plant reported nonzero cumulative energy, regardless of whether
// live power resolved.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Account represents a customer whose vendor platform we poll.
type Account struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Vendor      string      `json:"vendor"`
	Credentials Credentials `json:"credentials"`
}

// Credentials holds the vendor platform credentials for an account.
// Exactly one provider field is expected to be set.
type Credentials struct {
	Growatt *GrowattCredentials `json:"growatt,omitempty"`
}

// GrowattCredentials are the web-portal credentials for the Growatt
// monitoring cloud. The password is kept in the clear only for the
// lifetime of an acquisition run; the platform requires its own digest
// of it at login time.
type GrowattCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// PlantSummary is the per-plant slice of the output contract. Today and
// total energy come from the plant-list call and are present even when
// live power resolution failed for the plant.
type PlantSummary struct {
	Name         string  `json:"name"`
	PlantID      string  `json:"plantId"`
	TodayEnergy  float64 `json:"todayEnergy"`
	TotalEnergy  float64 `json:"totalEnergy"`
	CurrentPower float64 `json:"currentPower"`
	Status       string  `json:"status"`
}

// AggregateResult is the stable output contract of an acquisition run.
// It is structurally valid even for fully degraded runs: quantities are
// zero and Error describes the fatal condition. Power is kW, energy is
// kWh, CO2 is metric tons.
type AggregateResult struct {
	Status            string         `json:"status"`
	CurrentPower      float64        `json:"currentPower"`
	DailyGeneration   float64        `json:"dailyGeneration"`
	MonthlyGeneration float64        `json:"monthlyGeneration"`
	TotalGeneration   float64        `json:"totalGeneration"`
	CO2Saved          float64        `json:"co2Saved"`
	PlantCount        int            `json:"plantCount"`
	Plants            []PlantSummary `json:"plants"`
	LastUpdate        *string        `json:"lastUpdate"`
	Error             string         `json:"error,omitempty"`
}
