package domain

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrHabitTitleEmpty    = errors.New("habit title cannot be empty")
	ErrHabitTitleTooLong  = errors.New("habit title is too long (max 100 chars)")
	ErrHabitDescTooLong   = errors.New("habit description is too long (max 500 chars)")
	ErrHabitInvalidUserID = errors.New("invalid user id")
	ErrInvalidColor       = errors.New("invalid color format (must be #RRGGBB)")
	ErrInvalidWeekdays    = errors.New("invalid weekdays (must be 0-6)")
	ErrInvalidTarget      = errors.New("target cannot be negative")
	ErrInvalidInterval    = errors.New("interval cannot be negative")
	ErrHabitArchived      = errors.New("cannot update an archived habit")
	ErrInvalidHabitType   = errors.New("invalid habit type (must be boolean, numeric, or timer)")
	ErrInvalidReminder    = errors.New("invalid reminder format (must be HH:MM 24h)")
	ErrInvalidFrequency   = errors.New("invalid frequency (must be daily, weekly, specific_days, or interval)")
)

var colorRegex = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)
var reminderRegex = regexp.MustCompile(`^([0-1][0-9]|2[0-3]):[0-5][0-9]$`)

const (
	HabitTypeBoolean      = "boolean"
	HabitTypeNumeric      = "numeric"
	HabitTypeTimer        = "timer"
	HabitFreqDaily        = "daily"
	HabitFreqWeekly       = "weekly"
	HabitFreqSpecificDays = "specific_days"
	HabitFreqInterval     = "interval"
	DefaultIcon           = "default_icon"
	MaxTitleLen           = 100
	MaxDescLen            = 500
)

// Habit is the normalized habit shape shared by storage, services and the
// analytics package. Weekdays is the weekly schedule (0 = Sunday); an empty
// slice means the habit is due every day.
type Habit struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Color         string     `json:"color"`
	Icon          string     `json:"icon"`
	SortOrder     int        `json:"sort_order"`
	Type          string     `json:"type"`
	ReminderTime  *string    `json:"reminder_time,omitempty"`
	FrequencyType string     `json:"frequency_type"`
	Weekdays      []int      `json:"weekdays,omitempty"`
	Interval      int        `json:"interval,omitempty"`
	TargetValue   int        `json:"target_value"`
	Unit          string     `json:"unit"`
	CurrentStreak int        `json:"current_streak"`
	LongestStreak int        `json:"longest_streak"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	ArchivedAt    *time.Time `json:"archived_at,omitempty"`
	Version       int        `json:"version"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NormalizeWeekdays sorts and deduplicates a schedule and drops values
// outside 0-6. An empty result means every day.
func NormalizeWeekdays(days []int) []int {
	if len(days) == 0 {
		return nil
	}

	uniqueMap := make(map[int]bool)
	var uniqueDays []int
	for _, d := range days {
		if d < 0 || d > 6 {
			continue
		}
		if !uniqueMap[d] {
			uniqueMap[d] = true
			uniqueDays = append(uniqueDays, d)
		}
	}

	sort.Ints(uniqueDays)
	return uniqueDays
}

// HabitSettings carries the user-editable fields of a habit.
type HabitSettings struct {
	Title        string
	Description  string
	Color        string
	Icon         string
	Type         string
	ReminderTime string
	Unit         string
	TargetValue  int
	Interval     int
	Weekdays     []int
}

// Settings returns the current editable fields, ready to be patched and
// passed back to Update.
func (h *Habit) Settings() HabitSettings {
	s := HabitSettings{
		Title:       h.Title,
		Description: h.Description,
		Color:       h.Color,
		Icon:        h.Icon,
		Type:        h.Type,
		Unit:        h.Unit,
		TargetValue: h.TargetValue,
		Interval:    h.Interval,
		Weekdays:    h.Weekdays,
	}
	if h.ReminderTime != nil {
		s.ReminderTime = *h.ReminderTime
	}
	return s
}

func checkTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	switch {
	case title == "":
		return "", ErrHabitTitleEmpty
	case len(title) > MaxTitleLen:
		return "", ErrHabitTitleTooLong
	}
	return title, nil
}

// normalized validates s and returns the stored form: trimmed text, a
// positive target and interval, a sorted schedule and the derived frequency.
func (s HabitSettings) normalized() (HabitSettings, string, error) {
	var err error
	if s.Title, err = checkTitle(s.Title); err != nil {
		return s, "", err
	}
	s.Description = strings.TrimSpace(s.Description)
	if len(s.Description) > MaxDescLen {
		return s, "", ErrHabitDescTooLong
	}

	switch s.Type {
	case HabitTypeBoolean:
		s.TargetValue = 1
	case HabitTypeNumeric, HabitTypeTimer:
		if s.TargetValue < 0 {
			return s, "", ErrInvalidTarget
		}
		if s.TargetValue == 0 {
			s.TargetValue = 1
		}
	default:
		return s, "", ErrInvalidHabitType
	}

	if s.ReminderTime != "" && !reminderRegex.MatchString(s.ReminderTime) {
		return s, "", ErrInvalidReminder
	}
	if s.Color != "" && !colorRegex.MatchString(s.Color) {
		return s, "", ErrInvalidColor
	}
	if s.Interval < 0 {
		return s, "", ErrInvalidInterval
	}
	for _, d := range s.Weekdays {
		if d < 0 || d > 6 {
			return s, "", ErrInvalidWeekdays
		}
	}

	freq := HabitFreqDaily
	switch {
	case len(s.Weekdays) > 0:
		freq = HabitFreqSpecificDays
	case s.Interval > 1:
		freq = HabitFreqInterval
	}

	s.Interval = max(s.Interval, 1)
	s.Weekdays = NormalizeWeekdays(s.Weekdays)
	if s.Icon == "" {
		s.Icon = DefaultIcon
	}
	return s, freq, nil
}

func NewHabit(title, userID string) (*Habit, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrHabitInvalidUserID
	}
	title, err := checkTitle(title)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Habit{
		ID:            uuid.New().String(),
		UserID:        userID,
		Title:         title,
		Icon:          DefaultIcon,
		Type:          HabitTypeBoolean,
		TargetValue:   1,
		Interval:      1,
		FrequencyType: HabitFreqDaily,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
		StartDate:     now,
	}, nil
}

// Update replaces the editable fields. Nothing changes when validation fails.
func (h *Habit) Update(s HabitSettings) error {
	if h.ArchivedAt != nil {
		return ErrHabitArchived
	}

	s, freq, err := s.normalized()
	if err != nil {
		return err
	}

	h.Title = s.Title
	h.Description = s.Description
	h.Color = s.Color
	h.Icon = s.Icon
	h.Type = s.Type
	h.ReminderTime = nil
	if s.ReminderTime != "" {
		reminder := s.ReminderTime
		h.ReminderTime = &reminder
	}
	h.Unit = s.Unit
	h.TargetValue = s.TargetValue
	h.Interval = s.Interval
	h.Weekdays = s.Weekdays
	h.FrequencyType = freq
	h.UpdatedAt = time.Now().UTC()
	return nil
}

// SetFrequency overrides the derived frequency tag with an explicit one.
func (h *Habit) SetFrequency(freq string) error {
	switch freq {
	case HabitFreqDaily, HabitFreqWeekly, HabitFreqSpecificDays, HabitFreqInterval:
	default:
		return ErrInvalidFrequency
	}
	h.FrequencyType = freq
	return nil
}

func (h *Habit) UpdateStreak(current, longest int) {
	if current < 0 {
		current = 0
	}
	if longest < current {
		longest = current
	}
	h.CurrentStreak = current
	h.LongestStreak = longest
	h.UpdatedAt = time.Now().UTC()
}

func (h *Habit) ChangePosition(newOrder int) error {
	if h.ArchivedAt != nil {
		return ErrHabitArchived
	}

	h.SortOrder = newOrder
	h.UpdatedAt = time.Now().UTC()
	return nil
}

func (h *Habit) Archive() {
	if h.ArchivedAt != nil {
		return
	}

	now := time.Now().UTC()
	h.ArchivedAt = &now
	h.UpdatedAt = now
}

func (h *Habit) Restore() {
	if h.ArchivedAt == nil {
		return
	}
	h.ArchivedAt = nil
	h.UpdatedAt = time.Now().UTC()
}
