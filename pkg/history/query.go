package history

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/ogulcanaydogan/aussiebb-go/pkg/model"
)

// ErrMalformedKey is returned for lookup or insertion keys that are not a
// valid year, year-month or calendar date.
var ErrMalformedKey = errors.New("malformed usage key")

// KeyError describes a rejected key. It unwraps to ErrMalformedKey.
type KeyError struct {
	Key    string
	Reason string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrMalformedKey, e.Key, e.Reason)
}

func (e *KeyError) Unwrap() error { return ErrMalformedKey }

// Granularity is the span a Query covers.
type Granularity int

const (
	Year  Granularity = iota + 1 // every day of a calendar year
	Month                        // every day of a calendar month
	Day                          // a single date
)

func (g Granularity) String() string {
	switch g {
	case Year:
		return "year"
	case Month:
		return "month"
	case Day:
		return "day"
	default:
		return "unknown"
	}
}

// Query is a parsed usage lookup key.
type Query struct {
	Granularity Granularity
	Year        int
	Month       time.Month
	Day         int
}

var (
	queryPattern = regexp.MustCompile(`^(\d{4})(?:-(\d{1,2})(?:-(\d{1,2}))?)?$`)
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// ParseQuery parses YYYY, YYYY-M[M] or YYYY-M[M]-D[D]. Months outside 1-12
// and days past the end of the month are rejected.
func ParseQuery(key string) (Query, error) {
	m := queryPattern.FindStringSubmatch(key)
	if m == nil {
		return Query{}, &KeyError{Key: key, Reason: "expected YYYY, YYYY-MM or YYYY-MM-DD"}
	}

	year, _ := strconv.Atoi(m[1])
	q := Query{Granularity: Year, Year: year}
	if m[2] == "" {
		return q, nil
	}

	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return Query{}, &KeyError{Key: key, Reason: "month out of range"}
	}
	q.Granularity = Month
	q.Month = time.Month(month)
	if m[3] == "" {
		return q, nil
	}

	day, _ := strconv.Atoi(m[3])
	if day < 1 || day > model.DaysIn(year, q.Month) {
		return Query{}, &KeyError{Key: key, Reason: "day out of range"}
	}
	q.Granularity = Day
	q.Day = day
	return q, nil
}

// parseDateKey accepts only the canonical YYYY-MM-DD form of a real date.
func parseDateKey(key string) (time.Time, error) {
	if !datePattern.MatchString(key) {
		return time.Time{}, &KeyError{Key: key, Reason: "expected YYYY-MM-DD"}
	}
	d, err := time.Parse(model.DateLayout, key)
	if err != nil {
		return time.Time{}, &KeyError{Key: key, Reason: "not a calendar date"}
	}
	return d, nil
}

// Days lists every date the query covers in ascending order.
func (q Query) Days() []time.Time {
	switch q.Granularity {
	case Day:
		return []time.Time{date(q.Year, q.Month, q.Day)}
	case Month:
		return monthDays(q.Year, q.Month)
	default:
		days := make([]time.Time, 0, 366)
		for m := time.January; m <= time.December; m++ {
			days = append(days, monthDays(q.Year, m)...)
		}
		return days
	}
}

func (q Query) String() string {
	switch q.Granularity {
	case Day:
		return fmt.Sprintf("%04d-%02d-%02d", q.Year, int(q.Month), q.Day)
	case Month:
		return fmt.Sprintf("%04d-%02d", q.Year, int(q.Month))
	default:
		return fmt.Sprintf("%04d", q.Year)
	}
}

func monthDays(year int, month time.Month) []time.Time {
	n := model.DaysIn(year, month)
	days := make([]time.Time, 0, n)
	for d := 1; d <= n; d++ {
		days = append(days, date(year, month, d))
	}
	return days
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
