package voice

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// MessageRef identifies a live progress message. The zero value means
// no message exists.
type MessageRef struct {
	ChannelID snowflake.ID
	MessageID snowflake.ID
}

func (r MessageRef) IsZero() bool {
	return r.MessageID == 0
}

// Notifier is the outbound messaging capability consumed by the
// scheduler. Failures to send or edit are logged by the caller and
// never abort a tick.
type Notifier interface {
	Send(ctx context.Context, channelID snowflake.ID, content string) (MessageRef, error)
	Edit(ctx context.Context, ref MessageRef, content string) error
	Delete(ctx context.Context, ref MessageRef) error
	// Disconnect forcibly removes the member from voice.
	Disconnect(ctx context.Context, userID snowflake.ID, reason string) error
}

// AudioPlayer plays a short cue in a voice channel. Implementations
// enforce a per (channel, cue) cooldown and silently skip while it is
// active.
type AudioPlayer interface {
	PlayCue(ctx context.Context, channelID snowflake.ID, cueID string) error
}

// EarningLedger is the slice of the ledger engine the scheduler needs.
type EarningLedger interface {
	CreditVoiceEarning(ctx context.Context, userID string, amount int64) error
}

// Ticker abstracts time.Ticker so tests can drive ticks manually.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock produces tickers. The real implementation wraps time.NewTicker.
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

type realClock struct{}

// NewClock returns a Clock backed by time.NewTicker.
func NewClock() Clock { return realClock{} }

type realTicker struct{ t *time.Ticker }

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

func (rt *realTicker) C() <-chan time.Time { return rt.t.C }
func (rt *realTicker) Stop()               { rt.t.Stop() }
