package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ogulcanaydogan/aussiebb-go/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestServiceID_UnmarshalNumber(t *testing.T) {
	var v struct {
		ID model.ServiceID `json:"service_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"service_id": 31337}`), &v))
	assert.Equal(t, model.ServiceID("31337"), v.ID)
}

func TestServiceID_UnmarshalString(t *testing.T) {
	var v struct {
		ID model.ServiceID `json:"service_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"service_id": "abc-1"}`), &v))
	assert.Equal(t, model.ServiceID("abc-1"), v.ID)
}

func TestServiceID_UnmarshalInvalid(t *testing.T) {
	var v struct {
		ID model.ServiceID `json:"service_id"`
	}
	assert.Error(t, json.Unmarshal([]byte(`{"service_id": true}`), &v))
}

func TestUsageDay_Key(t *testing.T) {
	d := model.UsageDay{Date: date(2024, time.July, 5), DownloadMB: 100, UploadMB: 20}
	assert.Equal(t, "2024-07-05", d.Key())
	assert.InDelta(t, 120.0, d.TotalMB(), 0.0001)
}

func TestUsageOverview_Unmetered(t *testing.T) {
	remaining := 5000.0
	assert.True(t, (&model.UsageOverview{}).Unmetered())
	assert.False(t, (&model.UsageOverview{RemainingMB: &remaining}).Unmetered())
}

func TestDaysIn(t *testing.T) {
	assert.Equal(t, 29, model.DaysIn(2024, time.February))
	assert.Equal(t, 28, model.DaysIn(2023, time.February))
	assert.Equal(t, 31, model.DaysIn(2024, time.December))
	assert.Equal(t, 30, model.DaysIn(2024, time.April))
}

func TestBillingPeriodBounds(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		rollover  int
		wantStart time.Time
		wantEnd   time.Time
	}{
		{"after rollover", date(2024, time.July, 28), 28, date(2024, time.July, 28), date(2024, time.August, 28)},
		{"before rollover", date(2024, time.July, 5), 28, date(2024, time.June, 28), date(2024, time.July, 28)},
		{"january wraps", date(2024, time.January, 3), 15, date(2023, time.December, 15), date(2024, time.January, 15)},
		{"calendar month", date(2024, time.March, 10), 1, date(2024, time.March, 1), date(2024, time.April, 1)},
		{"short month", date(2024, time.February, 29), 31, date(2024, time.January, 31), date(2024, time.March, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := model.BillingPeriodBounds(tt.now, tt.rollover)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
			assert.False(t, tt.now.Before(start))
			assert.True(t, tt.now.Before(end))
		})
	}
}
