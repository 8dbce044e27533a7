package voice

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

const (
	// cueCooldown is the minimum gap between plays of the same cue in
	// the same channel.
	cueCooldown = 5 * time.Minute
	// cueCeiling force-releases a playback slot that never reported
	// completion.
	cueCeiling = 30 * time.Second
)

// CueBackend performs the actual playback: joining the channel,
// streaming the cue and leaving again. It blocks until playback ends
// or ctx is done.
type CueBackend interface {
	Play(ctx context.Context, channelID snowflake.ID, cueID string) error
}

// CueService wraps a CueBackend with the playback policy: a cooldown
// per (channel, cue) pair and at most one concurrent connection per
// channel. Skipped plays are not errors.
type CueService struct {
	backend CueBackend
	now     func() time.Time

	mu        sync.Mutex
	cooldowns map[cooldownKey]time.Time
	playing   map[snowflake.ID]struct{}
}

type cooldownKey struct {
	channelID snowflake.ID
	cueID     string
}

func NewCueService(backend CueBackend) *CueService {
	return &CueService{
		backend:   backend,
		now:       time.Now,
		cooldowns: make(map[cooldownKey]time.Time),
		playing:   make(map[snowflake.ID]struct{}),
	}
}

// PlayCue plays cueID in the channel unless the pair is cooling down or
// the channel already has a live connection. Playback runs in the
// background with a hard ceiling so a stuck connection always releases
// its slot.
func (c *CueService) PlayCue(ctx context.Context, channelID snowflake.ID, cueID string) error {
	key := cooldownKey{channelID: channelID, cueID: cueID}
	now := c.now()

	c.mu.Lock()
	if last, ok := c.cooldowns[key]; ok && now.Sub(last) < cueCooldown {
		c.mu.Unlock()
		slog.Debug("Audio cue in cooldown, skipping",
			slog.String("type", "voice"),
			slog.String("channel_id", channelID.String()),
			slog.String("cue", cueID))
		return nil
	}
	if _, busy := c.playing[channelID]; busy {
		c.mu.Unlock()
		slog.Debug("Channel already playing audio, skipping",
			slog.String("type", "voice"),
			slog.String("channel_id", channelID.String()),
			slog.String("cue", cueID))
		return nil
	}
	c.playing[channelID] = struct{}{}
	c.cooldowns[key] = now
	c.mu.Unlock()

	go func() {
		playCtx, cancel := context.WithTimeout(context.Background(), cueCeiling)
		defer cancel()
		defer func() {
			c.mu.Lock()
			delete(c.playing, channelID)
			c.mu.Unlock()
		}()

		if err := c.backend.Play(playCtx, channelID, cueID); err != nil {
			slog.Error("Audio cue playback failed",
				slog.String("type", "voice"),
				slog.String("channel_id", channelID.String()),
				slog.String("cue", cueID),
				slog.Any("error", err))
		}
	}()
	return nil
}
