package analytics_test

import (
	"time"

	"github.com/comitanigiacomo/kanso-dashboard/internal/core/domain"
)

func day(s string) time.Time {
	t, err := time.ParseInLocation(domain.DateLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func habit(id string, weekdays ...int) *domain.Habit {
	return &domain.Habit{ID: id, Title: "Habit " + id, Weekdays: weekdays}
}

func completed(habitID string, days ...string) domain.Completions {
	c := domain.Completions{}
	for _, d := range days {
		c.Set(habitID, d, domain.CompletionRecord{Completed: true})
	}
	return c
}

func merge(cs ...domain.Completions) domain.Completions {
	out := domain.Completions{}
	for _, c := range cs {
		for id, days := range c {
			for d, rec := range days {
				out.Set(id, d, rec)
			}
		}
	}
	return out
}

