package analytics

import (
	"container/list"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const DefaultMemoCapacity = 256

// Memo caches Summarize results for one owner (typically a service
// instance). Keys are a fingerprint of every input, so a changed snapshot
// simply misses; nothing needs invalidating.
type Memo struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	items    map[uint64]*list.Element
}

type memoEntry struct {
	key    uint64
	start  time.Time
	end    time.Time
	today  time.Time
	report Report
}

// matches guards a hit against a fingerprint collision on the cheap fields.
// A collision that also agrees on range and day is accepted as negligible
// for a 64-bit hash.
func (e *memoEntry) matches(r DateRange, today time.Time) bool {
	return e.start.Equal(r.Start) && e.end.Equal(r.End) && e.today.Equal(today)
}

func NewMemo(capacity int) *Memo {
	if capacity <= 0 {
		capacity = DefaultMemoCapacity
	}
	return &Memo{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[uint64]*list.Element),
	}
}

// Summarize returns the cached report for these inputs, computing and
// storing it on a miss. hit reports which path was taken.
func (m *Memo) Summarize(s Snapshot, r DateRange, today time.Time, opts Options) (rep Report, hit bool) {
	opts = opts.WithDefaults()
	key := Fingerprint(s, r, today, opts)
	day := Midnight(today)

	m.mu.Lock()
	if el, ok := m.items[key]; ok {
		if e := el.Value.(*memoEntry); e.matches(r, day) {
			m.order.MoveToFront(el)
			m.mu.Unlock()
			return e.report, true
		}
	}
	m.mu.Unlock()

	rep = Summarize(s, r, today, opts)

	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.items[key]; ok {
		m.order.Remove(el)
		delete(m.items, key)
	}
	for m.order.Len() >= m.capacity {
		oldest := m.order.Back()
		m.order.Remove(oldest)
		delete(m.items, oldest.Value.(*memoEntry).key)
	}
	m.items[key] = m.order.PushFront(&memoEntry{key: key, start: r.Start, end: r.End, today: day, report: rep})
	return rep, false
}

func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

// Fingerprint hashes everything Summarize reads. Map iteration is sorted so
// equal inputs always produce the same key. Memo compares range and day on a
// hit; the snapshot itself is trusted to the 64-bit hash.
func Fingerprint(s Snapshot, r DateRange, today time.Time, opts Options) uint64 {
	d := xxhash.New()
	sep := func() { _, _ = d.WriteString("\x00") }
	writeInt := func(n int) {
		_, _ = d.WriteString(strconv.Itoa(n))
		sep()
	}

	_, _ = d.WriteString(r.Start.Format(time.RFC3339))
	sep()
	_, _ = d.WriteString(r.End.Format(time.RFC3339))
	sep()
	_, _ = d.WriteString(Midnight(today).Format(time.RFC3339))
	sep()

	_, _ = d.WriteString(strconv.FormatFloat(opts.WorstDayGap, 'g', -1, 64))
	sep()
	_, _ = d.WriteString(strconv.FormatFloat(opts.TrendDelta, 'g', -1, 64))
	sep()
	writeInt(opts.MinLeaderStreak)
	writeInt(opts.MaxInsights)
	writeInt(opts.StreakLookback)

	writeInt(len(s.Habits))
	for _, h := range s.Habits {
		if h == nil {
			sep()
			continue
		}
		_, _ = d.WriteString(h.ID)
		sep()
		_, _ = d.WriteString(h.Title)
		sep()
		writeInt(len(h.Weekdays))
		for _, wd := range h.Weekdays {
			writeInt(wd)
		}
	}

	habitIDs := make([]string, 0, len(s.Completions))
	for id := range s.Completions {
		habitIDs = append(habitIDs, id)
	}
	sort.Strings(habitIDs)

	for _, id := range habitIDs {
		days := s.Completions[id]
		keys := make([]string, 0, len(days))
		for day, rec := range days {
			if rec.Completed {
				keys = append(keys, day)
			}
		}
		if len(keys) == 0 {
			continue
		}
		sort.Strings(keys)

		_, _ = d.WriteString(id)
		sep()
		for _, day := range keys {
			_, _ = d.WriteString(day)
			sep()
		}
		sep()
	}

	return d.Sum64()
}
