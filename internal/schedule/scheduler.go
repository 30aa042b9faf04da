// Package schedule posts cat content to a channel at fixed daily slots.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
)

// Slot is one daily posting slot. Hour is the UTC hour of day at which the
// slot fires.
type Slot struct {
	Name     string
	Hour     int
	Greeting string
	Message  string
	Emoji    string
	Color    int
}

// DefaultSlots returns the three standard daily slots.
func DefaultSlots() []Slot {
	return []Slot{
		{
			Name:     "morning",
			Hour:     8,
			Greeting: "Good morning!",
			Message:  "Time to stretch, yawn, and demand breakfast.",
			Emoji:    "🌅",
			Color:    0xFFB347,
		},
		{
			Name:     "afternoon",
			Hour:     14,
			Greeting: "Afternoon nap check!",
			Message:  "A sunbeam is a terrible thing to waste.",
			Emoji:    "☀️",
			Color:    0xFFD700,
		},
		{
			Name:     "night",
			Hour:     21,
			Greeting: "Good night!",
			Message:  "Time for the nightly zoomies before bed.",
			Emoji:    "🌙",
			Color:    0x4B0082,
		},
	}
}

// CurrentSlot returns the latest slot whose hour has already started in the
// UTC day of now. Before the first slot of the day, it falls back to the
// earliest slot of the schedule.
func CurrentSlot(slots []Slot, now time.Time) (Slot, error) {
	if len(slots) == 0 {
		return Slot{}, fmt.Errorf("current slot: empty schedule")
	}

	sorted := make([]Slot, len(slots))
	copy(sorted, slots)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Hour < sorted[j].Hour })

	hour := now.UTC().Hour()
	current := sorted[0]
	for _, slot := range sorted {
		if slot.Hour <= hour {
			current = slot
		}
	}

	return current, nil
}

// PostFunc delivers one slot's content to the destination channel.
type PostFunc func(ctx context.Context, slot Slot)

// PosterOption mutates poster configuration.
type PosterOption func(*Poster)

// WithPosterLogger injects a structured logger.
func WithPosterLogger(logger *slog.Logger) PosterOption {
	return func(poster *Poster) {
		if logger != nil {
			poster.logger = logger
		}
	}
}

// Poster fires the post callback at each slot's hour, every day, in UTC.
type Poster struct {
	cron   *cron.Cron
	slots  []Slot
	post   PostFunc
	logger *slog.Logger
}

// NewPoster creates a poster over the given slots.
func NewPoster(slots []Slot, post PostFunc, options ...PosterOption) (*Poster, error) {
	if len(slots) == 0 {
		return nil, fmt.Errorf("new poster: empty schedule")
	}
	if post == nil {
		return nil, fmt.Errorf("new poster: nil post func")
	}
	for _, slot := range slots {
		if slot.Hour < 0 || slot.Hour > 23 {
			return nil, fmt.Errorf("new poster: slot %q: hour %d out of range", slot.Name, slot.Hour)
		}
	}

	poster := &Poster{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		slots:  slots,
		post:   post,
		logger: slog.Default(),
	}
	for _, option := range options {
		option(poster)
	}

	return poster, nil
}

// Start registers one cron entry per slot and starts the scheduler.
func (p *Poster) Start(ctx context.Context) error {
	for _, slot := range p.slots {
		slot := slot
		expr := fmt.Sprintf("0 %d * * *", slot.Hour)
		if _, err := p.cron.AddFunc(expr, func() {
			p.logger.InfoContext(ctx, "posting scheduled cat content",
				"slot", slot.Name,
				"hour", slot.Hour,
			)
			p.post(ctx, slot)
		}); err != nil {
			return fmt.Errorf("start poster: slot %q: %w", slot.Name, err)
		}
	}
	p.cron.Start()

	return nil
}

// Stop stops the scheduler and waits for any running post to finish.
func (p *Poster) Stop() {
	<-p.cron.Stop().Done()
}
