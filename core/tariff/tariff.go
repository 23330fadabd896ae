// Package tariff expands a time-of-use tariff calendar into yearly price and
// band series at an arbitrary sampling rate.
package tariff

import (
	"fmt"
	"time"

	"github.com/kilianp07/prosumer/core/model"
)

const (
	slotLayout = "15:04:05"
	dayLayout  = "01-02"
)

// Slot opens a tariff band at Start ("HH:MM:SS"). It lasts until the next
// slot of the same day, or until midnight for the last one.
type Slot struct {
	Start string `json:"start" yaml:"start"`
	Band  string `json:"band" yaml:"band"`
}

// Calendar describes the daily band layout of both seasons. HighStart and
// LowStart are "MM-DD" dates: the high season runs from HighStart included to
// LowStart excluded, every other day uses the low season layout.
type Calendar struct {
	HighSeason []Slot `json:"high_season" yaml:"high_season"`
	LowSeason  []Slot `json:"low_season" yaml:"low_season"`
	HighStart  string `json:"high_start" yaml:"high_start"`
	LowStart   string `json:"low_start" yaml:"low_start"`
}

// Validate checks the season bounds and both day layouts.
func (c Calendar) Validate() error {
	hs, ls, err := c.seasonBounds(2001)
	if err != nil {
		return err
	}
	if !hs.Before(ls) {
		return fmt.Errorf("%w: high season start %s must precede low season start %s", model.ErrDomain, c.HighStart, c.LowStart)
	}
	if _, err := layoutDay(c.HighSeason, 3600); err != nil {
		return fmt.Errorf("high season: %w", err)
	}
	if _, err := layoutDay(c.LowSeason, 3600); err != nil {
		return fmt.Errorf("low season: %w", err)
	}
	return nil
}

// Bands returns the band of every sample of year, stepsPerHour samples per
// hour.
func (c Calendar) Bands(stepsPerHour, year int) ([]string, error) {
	if stepsPerHour <= 0 {
		return nil, fmt.Errorf("%w: steps per hour must be positive, got %d", model.ErrDomain, stepsPerHour)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	high, err := layoutDay(c.HighSeason, stepsPerHour)
	if err != nil {
		return nil, err
	}
	low, err := layoutDay(c.LowSeason, stepsPerHour)
	if err != nil {
		return nil, err
	}
	hs, ls, err := c.seasonBounds(year)
	if err != nil {
		return nil, err
	}
	first := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := first.AddDate(1, 0, 0)
	out := make([]string, 0, 366*24*stepsPerHour)
	for d := first; d.Before(end); d = d.AddDate(0, 0, 1) {
		if !d.Before(hs) && d.Before(ls) {
			out = append(out, high...)
		} else {
			out = append(out, low...)
		}
	}
	return out, nil
}

// YearlyPrices maps the bands of year to prices. prices are given per band in
// currency per MWh; the returned series is in currency per kWh.
func YearlyPrices(c Calendar, prices map[string]float64, stepsPerHour, year int) (model.TimeSeries, error) {
	bands, err := c.Bands(stepsPerHour, year)
	if err != nil {
		return nil, err
	}
	out := make(model.TimeSeries, len(bands))
	for i, b := range bands {
		p, ok := prices[b]
		if !ok {
			return nil, fmt.Errorf("%w: no price for band %q", model.ErrDomain, b)
		}
		out[i] = p / 1000
	}
	return out, nil
}

// EnergyByBand integrates load over each band. bands and load must have the
// same length.
func EnergyByBand(bands []string, load model.TimeSeries, timestep float64) (map[string]float64, error) {
	if len(bands) != len(load) {
		return nil, fmt.Errorf("%w: %d bands for %d load samples", model.ErrInputShape, len(bands), len(load))
	}
	out := make(map[string]float64)
	for i, b := range bands {
		out[b] += load[i] * timestep
	}
	return out, nil
}

func (c Calendar) seasonBounds(year int) (time.Time, time.Time, error) {
	hs, err := time.Parse(dayLayout, c.HighStart)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: high season start: %v", model.ErrDomain, err)
	}
	ls, err := time.Parse(dayLayout, c.LowStart)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: low season start: %v", model.ErrDomain, err)
	}
	at := func(t time.Time) time.Time {
		return time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return at(hs), at(ls), nil
}

// layoutDay expands slots into the band of every sample of one day.
func layoutDay(slots []Slot, stepsPerHour int) ([]string, error) {
	if len(slots) == 0 {
		return nil, fmt.Errorf("%w: no slot", model.ErrDomain)
	}
	starts := make([]time.Duration, len(slots))
	for i, s := range slots {
		t, err := time.Parse(slotLayout, s.Start)
		if err != nil {
			return nil, fmt.Errorf("%w: slot %d: %v", model.ErrDomain, i, err)
		}
		starts[i] = time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second
		if s.Band == "" {
			return nil, fmt.Errorf("%w: slot %d has no band", model.ErrDomain, i)
		}
	}
	if starts[0] != 0 {
		return nil, fmt.Errorf("%w: first slot starts at %s, want 00:00:00", model.ErrDomain, slots[0].Start)
	}
	step := time.Hour / time.Duration(stepsPerHour)
	day := make([]string, 0, 24*stepsPerHour)
	for i, s := range slots {
		end := 24 * time.Hour
		if i+1 < len(slots) {
			end = starts[i+1]
		}
		if end <= starts[i] {
			return nil, fmt.Errorf("%w: slot %d (%s) does not start after slot %d", model.ErrDomain, i+1, slots[i+1].Start, i)
		}
		if (end-starts[i])%step != 0 {
			return nil, fmt.Errorf("%w: slot %d (%s) does not align on the %s sampling", model.ErrDomain, i, s.Start, step)
		}
		for n := int((end - starts[i]) / step); n > 0; n-- {
			day = append(day, s.Band)
		}
	}
	return day, nil
}
