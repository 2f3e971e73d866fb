package analytics

import (
	"strconv"
	"strings"
	"time"

	"github.com/comitanigiacomo/kanso-dashboard/internal/core/domain"
)

const (
	RangeAll         = "all"
	DefaultRangeDays = 30
	// MaxRangeDays bounds any token, "all" included, to about ten years.
	MaxRangeDays = 3660
)

// DateRange is an inclusive span of calendar days. Both ends sit on local
// midnight of their location. A range whose Start is after End is empty.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// RangeRequest is what callers hand to ResolveRange. A non-zero Start/End
// pair wins over Token. AccountAgeDays is the ceiling used by "all".
type RangeRequest struct {
	Token          string
	Start          time.Time
	End            time.Time
	AccountAgeDays int
}

func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: Midnight(start), End: Midnight(end)}
}

// IsRangeAll reports whether token asks for the whole account history.
func IsRangeAll(token string) bool {
	return strings.EqualFold(strings.TrimSpace(token), RangeAll)
}

// ParseRangeDays turns a range token into a day count, never more than
// MaxRangeDays.
func ParseRangeDays(token string, accountAgeDays int) int {
	if IsRangeAll(token) {
		return min(max(accountAgeDays, 0), MaxRangeDays)
	}

	n, err := strconv.Atoi(strings.TrimSpace(token))
	if err != nil || n <= 0 {
		return DefaultRangeDays
	}
	return min(n, MaxRangeDays)
}

func ResolveRange(req RangeRequest, now time.Time) DateRange {
	if !req.Start.IsZero() && !req.End.IsZero() {
		return NewDateRange(req.Start, req.End)
	}

	end := Midnight(now)
	n := ParseRangeDays(req.Token, req.AccountAgeDays)
	return DateRange{Start: end.AddDate(0, 0, -n), End: end}
}

func (r DateRange) Empty() bool {
	return r.Start.After(r.End)
}

// Days is the number of calendar days in the range, counting both ends.
func (r DateRange) Days() int {
	if r.Empty() {
		return 0
	}
	return int(epochDay(r.End)-epochDay(r.Start)) + 1
}

// epochDay numbers t's calendar date in days since 1970-01-01. It works on
// the date alone, so DST and very long spans cannot skew it.
func epochDay(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// Each calls fn for every day of the range in ascending order.
func (r DateRange) Each(fn func(day time.Time)) {
	n := r.Days()
	for i := 0; i < n; i++ {
		fn(r.Start.AddDate(0, 0, i))
	}
}

func (r DateRange) Contains(day time.Time) bool {
	d := Midnight(day.In(r.Start.Location()))
	return !d.Before(r.Start) && !d.After(r.End)
}

func dayKey(t time.Time) string {
	return t.Format(domain.DateLayout)
}
