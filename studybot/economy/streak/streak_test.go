package streak

import (
	"testing"
	"time"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestNext(t *testing.T) {
	// 2024-01-01 is a Monday.
	tests := []struct {
		name        string
		today       time.Time
		lastCheckin time.Time
		current     int
		want        int
	}{
		{
			name:  "first ever check-in",
			today: day(2024, time.January, 3),
			want:  1,
		},
		{
			name:        "consecutive day continues",
			today:       day(2024, time.January, 3), // Wed
			lastCheckin: day(2024, time.January, 2), // Tue
			current:     2,
			want:        3,
		},
		{
			name:        "missed a day resets",
			today:       day(2024, time.January, 5), // Fri
			lastCheckin: day(2024, time.January, 3), // Wed
			current:     3,
			want:        1,
		},
		{
			name:        "long gap resets",
			today:       day(2024, time.February, 20),
			lastCheckin: day(2024, time.January, 6),
			current:     5,
			want:        1,
		},
		{
			name:        "monday after sunday starts a new week",
			today:       day(2024, time.January, 8), // Mon
			lastCheckin: day(2024, time.January, 7), // Sun
			current:     7,
			want:        1,
		},
		{
			name:        "saturday to sunday continues",
			today:       day(2024, time.January, 7), // Sun
			lastCheckin: day(2024, time.January, 6), // Sat
			current:     6,
			want:        7,
		},
		{
			name:        "time of day does not matter",
			today:       time.Date(2024, time.January, 3, 23, 59, 0, 0, time.UTC),
			lastCheckin: time.Date(2024, time.January, 2, 0, 1, 0, 0, time.UTC),
			current:     1,
			want:        2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Next(tt.today, tt.lastCheckin, tt.current); got != tt.want {
				t.Errorf("Next() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestReward(t *testing.T) {
	tests := []struct {
		streak int
		base   int64
		want   int64
	}{
		{streak: 1, base: 1, want: 1},
		{streak: 4, base: 1, want: 4},
		{streak: 7, base: 1, want: 7},
		{streak: 3, base: 10, want: 30},
	}

	for _, tt := range tests {
		if got := Reward(tt.streak, tt.base); got != tt.want {
			t.Errorf("Reward(%d, %d) = %d, want %d", tt.streak, tt.base, got, tt.want)
		}
	}
}
