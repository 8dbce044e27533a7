package voice

import (
	"testing"

	"github.com/disgoorg/snowflake/v2"
)

func TestClassify(t *testing.T) {
	const (
		staging = snowflake.ID(100)
		roomA   = snowflake.ID(200)
		roomB   = snowflake.ID(300)
	)

	tests := []struct {
		name     string
		previous snowflake.ID
		next     snowflake.ID
		want     Transition
	}{
		{name: "join from nowhere", previous: 0, next: roomA, want: TransitionJoin},
		{name: "join from staging", previous: staging, next: roomA, want: TransitionJoin},
		{name: "switch between rooms", previous: roomA, next: roomB, want: TransitionSwitch},
		{name: "duplicate event same room", previous: roomA, next: roomA, want: TransitionSwitch},
		{name: "leave to nowhere", previous: roomA, next: 0, want: TransitionLeave},
		{name: "leave to staging", previous: roomA, next: staging, want: TransitionLeave},
		{name: "enter staging from nowhere", previous: 0, next: staging, want: TransitionNone},
		{name: "leave staging to nowhere", previous: staging, next: 0, want: TransitionNone},
		{name: "no voice at all", previous: 0, next: 0, want: TransitionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.previous, tt.next, staging); got != tt.want {
				t.Errorf("Classify(%d, %d) = %d, want %d", tt.previous, tt.next, got, tt.want)
			}
		})
	}
}
