package daterange

import (
	"errors"
	"time"
)

var ErrInvalidRange = errors.New("daterange: checkout must be after checkin")

const day = 24 * time.Hour

// DateRange represents a half-open stay interval [CheckIn, CheckOut).
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

func New(checkIn, checkOut time.Time) (DateRange, error) {
	dr := DateRange{CheckIn: checkIn.UTC(), CheckOut: checkOut.UTC()}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

func (dr DateRange) Validate() error {
	if dr.CheckIn.IsZero() || dr.CheckOut.IsZero() {
		return ErrInvalidRange
	}
	if !dr.CheckOut.After(dr.CheckIn) {
		return ErrInvalidRange
	}
	return nil
}

func (dr DateRange) IsZero() bool {
	return dr.CheckIn.IsZero() && dr.CheckOut.IsZero()
}

// Overlaps reports whether both intervals share at least one instant.
func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(dr.CheckOut)
}

// Contains reports whether other lies entirely within dr, bounds inclusive.
func (dr DateRange) Contains(other DateRange) bool {
	return !other.CheckIn.Before(dr.CheckIn) && !other.CheckOut.After(dr.CheckOut)
}

// Nights counts billable nights. A same-day stay still bills one night.
func (dr DateRange) Nights() int {
	return len(dr.NightDates())
}

// NightDates lists the calendar dates (UTC midnight) whose night the stay occupies:
// every date from the check-in date up to, not including, the check-out date.
func (dr DateRange) NightDates() []time.Time {
	if dr.IsZero() || !dr.CheckOut.After(dr.CheckIn) {
		return nil
	}
	start := Midnight(dr.CheckIn)
	end := Midnight(dr.CheckOut)
	if !end.After(start) {
		return []time.Time{start}
	}
	out := make([]time.Time, 0, int(end.Sub(start)/day))
	for d := start; d.Before(end); d = d.Add(day) {
		out = append(out, d)
	}
	return out
}

// Span returns the smallest range covering every given range.
func Span(ranges ...DateRange) DateRange {
	var out DateRange
	for i, r := range ranges {
		if i == 0 || r.CheckIn.Before(out.CheckIn) {
			out.CheckIn = r.CheckIn
		}
		if i == 0 || r.CheckOut.After(out.CheckOut) {
			out.CheckOut = r.CheckOut
		}
	}
	return out
}

// Midnight truncates t to the start of its UTC day.
func Midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
