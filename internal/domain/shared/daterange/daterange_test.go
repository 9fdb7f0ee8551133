package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func TestNewRejectsEmptyAndReversedRanges(t *testing.T) {
	_, err := New(date(2025, 6, 20, 0), date(2025, 6, 15, 0))
	require.ErrorIs(t, err, ErrInvalidRange)
	_, err = New(date(2025, 6, 15, 0), date(2025, 6, 15, 0))
	require.ErrorIs(t, err, ErrInvalidRange)
	_, err = New(time.Time{}, date(2025, 6, 15, 0))
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestOverlapsIsHalfOpen(t *testing.T) {
	a := DateRange{CheckIn: date(2025, 6, 15, 0), CheckOut: date(2025, 6, 20, 0)}
	b := DateRange{CheckIn: date(2025, 6, 20, 0), CheckOut: date(2025, 6, 22, 0)}
	c := DateRange{CheckIn: date(2025, 6, 19, 0), CheckOut: date(2025, 6, 21, 0)}

	assert.False(t, a.Overlaps(b))
	assert.False(t, b.Overlaps(a))
	assert.True(t, a.Overlaps(c))
	assert.True(t, c.Overlaps(b))
}

func TestContainsIncludesBounds(t *testing.T) {
	window := DateRange{CheckIn: date(2025, 6, 15, 0), CheckOut: date(2025, 6, 20, 0)}
	assert.True(t, window.Contains(window))
	assert.True(t, window.Contains(DateRange{CheckIn: date(2025, 6, 16, 0), CheckOut: date(2025, 6, 18, 0)}))
	assert.False(t, window.Contains(DateRange{CheckIn: date(2025, 6, 14, 0), CheckOut: date(2025, 6, 18, 0)}))
	assert.False(t, window.Contains(DateRange{CheckIn: date(2025, 6, 16, 0), CheckOut: date(2025, 6, 21, 0)}))
}

func TestNightDates(t *testing.T) {
	stay := DateRange{CheckIn: date(2025, 6, 15, 14), CheckOut: date(2025, 6, 18, 11)}
	nights := stay.NightDates()
	require.Len(t, nights, 3)
	assert.Equal(t, date(2025, 6, 15, 0), nights[0])
	assert.Equal(t, date(2025, 6, 17, 0), nights[2])
	assert.Equal(t, 3, stay.Nights())

	dayUse := DateRange{CheckIn: date(2025, 6, 15, 9), CheckOut: date(2025, 6, 15, 17)}
	assert.Equal(t, []time.Time{date(2025, 6, 15, 0)}, dayUse.NightDates())
	assert.Equal(t, 1, dayUse.Nights())
}

func TestSpan(t *testing.T) {
	a := DateRange{CheckIn: date(2025, 6, 15, 0), CheckOut: date(2025, 6, 18, 0)}
	b := DateRange{CheckIn: date(2025, 6, 12, 0), CheckOut: date(2025, 6, 16, 0)}
	assert.Equal(t, DateRange{CheckIn: date(2025, 6, 12, 0), CheckOut: date(2025, 6, 18, 0)}, Span(a, b))
}
