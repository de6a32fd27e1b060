package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUsageRecord_Remaining(t *testing.T) {
	tests := []struct {
		name  string
		used  int
		limit int
		want  int
	}{
		{"untouched", 0, 3, 3},
		{"partially used", 2, 3, 1},
		{"exactly exhausted", 3, 3, 0},
		{"over limit clamps to zero", 5, 3, 0},
		{"zero limit", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &UsageRecord{UsedCount: tt.used, LimitSnapshot: tt.limit}
			assert.Equal(t, tt.want, r.Remaining())
		})
	}
}

func TestUsageRecord_Exhausted(t *testing.T) {
	assert.False(t, (&UsageRecord{UsedCount: 2, LimitSnapshot: 3}).Exhausted())
	assert.True(t, (&UsageRecord{UsedCount: 3, LimitSnapshot: 3}).Exhausted())
	assert.True(t, (&UsageRecord{UsedCount: 4, LimitSnapshot: 3}).Exhausted())
	assert.True(t, (&UsageRecord{UsedCount: 0, LimitSnapshot: 0}).Exhausted())
}

func TestNewQuotaDecision(t *testing.T) {
	t.Run("allows with remaining quota", func(t *testing.T) {
		d := NewQuotaDecision(&UsageRecord{UsedCount: 1, LimitSnapshot: 3})

		assert.True(t, d.CanUpload)
		assert.Equal(t, 1, d.Used)
		assert.Equal(t, 3, d.Limit)
		assert.Equal(t, 2, d.Remaining)
		assert.Contains(t, d.Reason, "2 more")
	})

	t.Run("denies when exhausted", func(t *testing.T) {
		d := NewQuotaDecision(&UsageRecord{UsedCount: 3, LimitSnapshot: 3})

		assert.False(t, d.CanUpload)
		assert.Equal(t, 0, d.Remaining)
		assert.Contains(t, d.Reason, "upgrade your plan")
	})

	t.Run("is pure", func(t *testing.T) {
		record := &UsageRecord{UsedCount: 2, LimitSnapshot: 3}
		first := NewQuotaDecision(record)
		second := NewQuotaDecision(record)

		assert.Equal(t, first, second)
	})
}

func TestPeriodOf(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"mid month", time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC), "2025-03"},
		{"first instant of month", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), "2025-03"},
		{"last instant of month", time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC), "2025-03"},

		// Period boundaries are UTC: a local time late on the 31st can
		// already be the next month in UTC.
		{"timezone east of UTC", time.Date(2025, 4, 1, 2, 0, 0, 0, time.FixedZone("EAT", 3*3600)), "2025-03"},
		{"timezone west of UTC", time.Date(2025, 3, 31, 22, 0, 0, 0, time.FixedZone("PST", -8*3600)), "2025-04"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PeriodOf(tt.in))
		})
	}
}

func TestCurrentPeriod_Format(t *testing.T) {
	period := CurrentPeriod()
	assert.Len(t, period, 7)
	assert.Equal(t, "-", period[4:5])
}
