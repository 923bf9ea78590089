package mood

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sylvia-tgbot-go/internal/config"
	"github.com/sylvia-tgbot-go/internal/models"
)

// Clock maps wall-clock time to a mood bucket using the configured
// hour ranges. Ranges are half-open [start, end) and are not required
// to be contiguous or exhaustive; hours outside every range fall back
// to night.
type Clock struct {
	cfg config.MoodConfig
	now func() time.Time
}

// NewClock creates a Clock over the given hour-range configuration.
func NewClock(cfg config.MoodConfig) *Clock {
	return &Clock{cfg: cfg, now: time.Now}
}

// NewClockAt creates a Clock with an injected time source, for tests.
func NewClockAt(cfg config.MoodConfig, now func() time.Time) *Clock {
	return &Clock{cfg: cfg, now: now}
}

// Current returns the mood bucket for the current hour.
func (c *Clock) Current() models.Mood {
	return c.MoodFor(c.now())
}

// MoodFor returns the mood bucket for the given time. Buckets are
// checked in the fixed order morning, afternoon, evening; when ranges
// overlap, the earlier bucket in that order wins.
func (c *Clock) MoodFor(t time.Time) models.Mood {
	hour := t.Hour()
	switch {
	case c.cfg.Morning.Contains(hour):
		return models.MoodMorning
	case c.cfg.Afternoon.Contains(hour):
		return models.MoodAfternoon
	case c.cfg.Evening.Contains(hour):
		return models.MoodEvening
	default:
		return models.MoodNight
	}
}

// ValidateRanges logs a warning for every hour that is claimed by more
// than one bucket and for gaps that will silently resolve to night.
// Overlaps are still resolved by check order at runtime.
func ValidateRanges(cfg config.MoodConfig, log *logrus.Logger) {
	ranges := []struct {
		name  string
		hours config.HourRange
	}{
		{"morning", cfg.Morning},
		{"afternoon", cfg.Afternoon},
		{"evening", cfg.Evening},
	}

	var gaps []int
	for hour := 0; hour < 24; hour++ {
		var owners []string
		for _, r := range ranges {
			if r.hours.Contains(hour) {
				owners = append(owners, r.name)
			}
		}
		if len(owners) > 1 {
			log.WithFields(logrus.Fields{
				"hour":    hour,
				"buckets": owners,
			}).Warn("Mood hour ranges overlap; first bucket in check order wins")
		}
		if len(owners) == 0 {
			gaps = append(gaps, hour)
		}
	}
	if len(gaps) > 0 {
		log.WithField("hours", gaps).Debug("Hours outside all mood ranges default to night")
	}
}
