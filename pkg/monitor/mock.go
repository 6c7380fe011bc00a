package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/solarsight/solarsight/pkg/types"
)

// MockPlatform is a Platform that returns a canned result, used in
// tests and for running the server without a vendor account.
type MockPlatform struct {
	mu     sync.Mutex
	result types.AggregateResult
	calls  int
}

// NewMockPlatform returns a mock that reports a single healthy plant.
func NewMockPlatform() *MockPlatform {
	now := time.Now().UTC().Format(time.RFC3339)
	return &MockPlatform{
		result: types.AggregateResult{
			Status:          types.StatusOnline,
			CurrentPower:    2.5,
			DailyGeneration: 12.3,
			TotalGeneration: 4567.8,
			CO2Saved:        4567.8 * co2TonsPerKWH,
			PlantCount:      1,
			Plants: []types.PlantSummary{{
				Name:         "Mock Plant",
				PlantID:      "1",
				TodayEnergy:  12.3,
				TotalEnergy:  4567.8,
				CurrentPower: 2.5,
				Status:       types.StatusOnline,
			}},
			LastUpdate: &now,
		},
	}
}

// SetResult replaces the canned result.
func (m *MockPlatform) SetResult(res types.AggregateResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = res
}

// Calls returns how many times Acquire was invoked.
func (m *MockPlatform) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockPlatform) Acquire(ctx context.Context, creds types.Credentials) types.AggregateResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.result
}
