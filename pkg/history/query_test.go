package history_test

import (
	"testing"
	"time"

	"github.com/ogulcanaydogan/aussiebb-go/pkg/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		key  string
		want history.Query
	}{
		{"2024", history.Query{Granularity: history.Year, Year: 2024}},
		{"2024-7", history.Query{Granularity: history.Month, Year: 2024, Month: time.July}},
		{"2024-07", history.Query{Granularity: history.Month, Year: 2024, Month: time.July}},
		{"2024-12", history.Query{Granularity: history.Month, Year: 2024, Month: time.December}},
		{"2024-7-5", history.Query{Granularity: history.Day, Year: 2024, Month: time.July, Day: 5}},
		{"2024-02-29", history.Query{Granularity: history.Day, Year: 2024, Month: time.February, Day: 29}},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			q, err := history.ParseQuery(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, q)
		})
	}
}

func TestParseQuery_Malformed(t *testing.T) {
	keys := []string{
		"",
		"abcd",
		"24",
		"20245",
		"2024-13",
		"2024-00",
		"2024-02-30",
		"2023-02-29",
		"2024-07-00",
		"2024-02-30-01",
		"2024-007",
		"2024/07/05",
		" 2024",
	}

	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			_, err := history.ParseQuery(key)
			require.Error(t, err)
			assert.ErrorIs(t, err, history.ErrMalformedKey)

			var keyErr *history.KeyError
			require.ErrorAs(t, err, &keyErr)
			assert.Equal(t, key, keyErr.Key)
		})
	}
}

func TestQuery_String(t *testing.T) {
	for key, want := range map[string]string{
		"2024":     "2024",
		"2024-7":   "2024-07",
		"2024-7-5": "2024-07-05",
	} {
		q, err := history.ParseQuery(key)
		require.NoError(t, err)
		assert.Equal(t, want, q.String())
	}
}

func TestQuery_Days_Year(t *testing.T) {
	leap, err := history.ParseQuery("2024")
	require.NoError(t, err)
	days := leap.Days()
	require.Len(t, days, 366)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), days[0])
	assert.Equal(t, time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC), days[len(days)-1])

	perMonth := map[time.Month]int{}
	for i, d := range days {
		perMonth[d.Month()]++
		if i > 0 {
			assert.True(t, days[i-1].Before(d))
		}
	}
	assert.Len(t, perMonth, 12)
	assert.Equal(t, 29, perMonth[time.February])
	assert.Equal(t, 31, perMonth[time.December])

	common, err := history.ParseQuery("2023")
	require.NoError(t, err)
	assert.Len(t, common.Days(), 365)
}

func TestQuery_Days_Month(t *testing.T) {
	q, err := history.ParseQuery("2023-02")
	require.NoError(t, err)
	days := q.Days()
	require.Len(t, days, 28)
	assert.Equal(t, 28, days[27].Day())

	q, err = history.ParseQuery("2024-04")
	require.NoError(t, err)
	assert.Len(t, q.Days(), 30)
}

func TestPeriodFor(t *testing.T) {
	tests := []struct {
		name     string
		date     time.Time
		rollover int
		want     history.Period
	}{
		{"before rollover", time.Date(2024, time.July, 5, 0, 0, 0, 0, time.UTC), 28, history.Period{Year: 2024, Month: time.June}},
		{"on rollover", time.Date(2024, time.July, 28, 0, 0, 0, 0, time.UTC), 28, history.Period{Year: 2024, Month: time.July}},
		{"after rollover", time.Date(2024, time.July, 30, 0, 0, 0, 0, time.UTC), 28, history.Period{Year: 2024, Month: time.July}},
		{"january wraps", time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC), 15, history.Period{Year: 2023, Month: time.December}},
		{"first of month rollover", time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), 1, history.Period{Year: 2024, Month: time.January}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, history.PeriodFor(tt.date, tt.rollover))
		})
	}
}

func TestPeriod_Endpoint(t *testing.T) {
	p := history.Period{Year: 2024, Month: time.June}
	assert.Equal(t, "broadband/123/usage/2024/6", p.Endpoint("123"))
	assert.Equal(t, "2024-06", p.String())
}
