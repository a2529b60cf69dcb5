package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOverlapsIsInclusive(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2024, 9, 2, h, m, 0, 0, time.UTC) }
	booked := Interval{Start: at(8, 0), End: at(9, 0)}

	cases := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"before", at(6, 0), at(7, 0), false},
		{"ends when booked starts", at(7, 0), at(8, 0), true},
		{"inside", at(8, 15), at(8, 45), true},
		{"starts when booked ends", at(9, 0), at(10, 0), true},
		{"after", at(9, 1), at(10, 1), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(booked, tc.start, tc.end))
		})
	}
}

func TestBookingsCollides(t *testing.T) {
	start := time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)
	var b Bookings
	assert.False(t, b.Collides(start, start.Add(time.Hour)))

	b.Add(start, start.Add(time.Hour))
	assert.True(t, b.Collides(start.Add(30*time.Minute), start.Add(90*time.Minute)))
	assert.False(t, b.Collides(start.Add(2*time.Hour), start.Add(3*time.Hour)))
}
