package domain

import "time"

// CompletionRecord is the per-habit, per-day completion fact.
type CompletionRecord struct {
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Completions maps habit id -> day key (YYYY-MM-DD) -> record. It is sparse:
// a missing entry means "not completed".
type Completions map[string]map[string]CompletionRecord

// IsCompleted is safe to call on a nil map.
func (c Completions) IsCompleted(habitID, day string) bool {
	days, ok := c[habitID]
	if !ok {
		return false
	}
	return days[day].Completed
}

func (c Completions) Set(habitID, day string, rec CompletionRecord) {
	days, ok := c[habitID]
	if !ok {
		days = make(map[string]CompletionRecord)
		c[habitID] = days
	}
	days[day] = rec
}

// BuildCompletions folds raw entries into the completion mapping. Entries of
// the same habit and day are summed and compared to the habit target; entries
// of unknown habits are ignored. CompletedAt is the latest entry of the day.
func BuildCompletions(habits []*Habit, entries []*HabitEntry, loc *time.Location) Completions {
	targets := make(map[string]int, len(habits))
	for _, h := range habits {
		target := h.TargetValue
		if target < 1 {
			target = 1
		}
		targets[h.ID] = target
	}

	type bucket struct {
		total int
		last  time.Time
	}
	sums := make(map[string]map[string]*bucket)

	for _, e := range entries {
		if e == nil || e.DeletedAt != nil {
			continue
		}
		if _, known := targets[e.HabitID]; !known {
			continue
		}
		day := e.DayKey(loc)
		if sums[e.HabitID] == nil {
			sums[e.HabitID] = make(map[string]*bucket)
		}
		b, ok := sums[e.HabitID][day]
		if !ok {
			b = &bucket{}
			sums[e.HabitID][day] = b
		}
		b.total += e.Value
		if e.CompletionDate.After(b.last) {
			b.last = e.CompletionDate
		}
	}

	out := make(Completions, len(sums))
	for habitID, days := range sums {
		for day, b := range days {
			rec := CompletionRecord{Completed: b.total >= targets[habitID]}
			if rec.Completed {
				at := b.last
				rec.CompletedAt = &at
			}
			out.Set(habitID, day, rec)
		}
	}
	return out
}
