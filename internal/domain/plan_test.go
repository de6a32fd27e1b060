package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePlan(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Plan
	}{
		{"free", "free", PlanFree},
		{"basic", "basic", PlanBasic},
		{"premium", "premium", PlanPremium},
		{"enterprise", "enterprise", PlanEnterprise},

		// Anything unrecognized collapses to the free tier
		{"empty", "", PlanFree},
		{"unknown", "platinum", PlanFree},
		{"case sensitive", "Basic", PlanFree},
		{"whitespace", " basic", PlanFree},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePlan(tt.in))
		})
	}
}

func TestMonthlyLimit(t *testing.T) {
	tests := []struct {
		name string
		plan string
		want int
	}{
		{"free", "free", 3},
		{"basic", "basic", 15},
		{"premium", "premium", 50},
		{"enterprise", "enterprise", 200},

		// Garbled plan names never grant more than the free tier
		{"unknown falls back to free", "gold", 3},
		{"empty falls back to free", "", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MonthlyLimit(tt.plan))
		})
	}
}

func TestLimitFor_UnknownPlan(t *testing.T) {
	// A Plan value constructed outside ParsePlan still gets the free limit.
	assert.Equal(t, 3, LimitFor(Plan("bogus")))
}

func TestValidPlanName(t *testing.T) {
	assert.True(t, ValidPlanName("free"))
	assert.True(t, ValidPlanName("basic"))
	assert.True(t, ValidPlanName("premium"))
	assert.True(t, ValidPlanName("enterprise"))
	assert.False(t, ValidPlanName(""))
	assert.False(t, ValidPlanName("platinum"))
}

func TestPlanPrice(t *testing.T) {
	assert.Equal(t, int64(0), PlanPrice(PlanFree))
	assert.Equal(t, int64(500_00), PlanPrice(PlanBasic))
	assert.Equal(t, int64(1500_00), PlanPrice(PlanPremium))
	assert.Equal(t, int64(5000_00), PlanPrice(PlanEnterprise))
}
