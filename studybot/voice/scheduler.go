package voice

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/sync/errgroup"
)

// Config holds the reward-economy constants of the scheduler. All
// thresholds are minutes of accumulated presence.
type Config struct {
	StagingChannelID snowflake.ID
	SessionMinutes   int
	BreakWarnMinutes int
	FourHourMinutes  int
	HardCapMinutes   int
	HourlyReward     int64
	BreakCueID       string
	FourHourCueID    string
	TickInterval     time.Duration
}

// Scheduler owns one session per user currently present in a trackable
// voice channel. Every presence transition runs through
// HandleVoiceState, which always tears down any existing session
// before deciding whether to start a new one. That cleanup-first
// discipline is what guarantees at most one live tick loop per user.
type Scheduler struct {
	cfg      Config
	ledger   EarningLedger
	notifier Notifier
	audio    AudioPlayer
	clock    Clock

	mu       sync.Mutex
	sessions map[snowflake.ID]*session
}

func NewScheduler(cfg Config, ledger EarningLedger, notifier Notifier, audio AudioPlayer, clock Clock) *Scheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	return &Scheduler{
		cfg:      cfg,
		ledger:   ledger,
		notifier: notifier,
		audio:    audio,
		clock:    clock,
		sessions: make(map[snowflake.ID]*session),
	}
}

// session is the ephemeral per-user state. All mutable fields after
// construction belong exclusively to the tick goroutine; the scheduler
// only reads them back after that goroutine has exited.
type session struct {
	userID      snowflake.ID
	displayName string
	channelID   snowflake.ID
	channelName string

	sessionCounter  int
	totalMinutes    int
	minutesInCycle  int
	coinEarned      int64
	breakWarned     bool
	fourHourWarned  bool
	pendingCredit   int64
	progressMessage MessageRef

	ticker   Ticker
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// snapshot carries the counters that survive a channel switch.
type snapshot struct {
	sessionCounter int
	totalMinutes   int
	minutesInCycle int
	coinEarned     int64
	breakWarned    bool
	fourHourWarned bool
	pendingCredit  int64
}

// HandleVoiceState processes one presence transition. Zero channel IDs
// mean "not in voice". The teardown happens unconditionally and
// completes before any new session is created.
func (s *Scheduler) HandleVoiceState(userID snowflake.ID, displayName, channelName string, previous, next snowflake.ID) {
	snap := s.teardown(userID)

	switch Classify(previous, next, s.cfg.StagingChannelID) {
	case TransitionJoin:
		s.startSession(userID, displayName, channelName, next, nil)
	case TransitionSwitch:
		s.startSession(userID, displayName, channelName, next, snap)
	case TransitionLeave:
		slog.Info("Voice session ended",
			slog.String("type", "voice"),
			slog.String("user_id", userID.String()))
	case TransitionNone:
	}
}

func (s *Scheduler) startSession(userID snowflake.ID, displayName, channelName string, channelID snowflake.ID, snap *snapshot) {
	sess := &session{
		userID:         userID,
		displayName:    displayName,
		channelID:      channelID,
		channelName:    channelName,
		sessionCounter: 1,
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
	resumed := snap != nil
	if resumed {
		sess.sessionCounter = snap.sessionCounter
		sess.totalMinutes = snap.totalMinutes
		sess.minutesInCycle = snap.minutesInCycle
		sess.coinEarned = snap.coinEarned
		sess.breakWarned = snap.breakWarned
		sess.fourHourWarned = snap.fourHourWarned
		sess.pendingCredit = snap.pendingCredit
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	remaining := s.cfg.SessionMinutes - sess.minutesInCycle
	var text string
	if resumed {
		text = switchText(displayName, channelName, remaining, sess.coinEarned)
	} else {
		text = welcomeText(displayName, remaining, sess.coinEarned)
	}
	ref, err := s.notifier.Send(ctx, channelID, text)
	if err != nil {
		slog.Error("Failed to send session message",
			slog.String("type", "voice"),
			slog.String("user_id", userID.String()),
			slog.Any("error", err))
	} else {
		sess.progressMessage = ref
	}

	sess.ticker = s.clock.NewTicker(s.cfg.TickInterval)

	s.mu.Lock()
	s.sessions[userID] = sess
	s.mu.Unlock()

	go s.run(sess)

	slog.Info("Voice session started",
		slog.String("type", "voice"),
		slog.String("user_id", userID.String()),
		slog.String("channel", channelName),
		slog.Bool("resumed", resumed),
		slog.Int("total_minutes", sess.totalMinutes))
}

func (s *Scheduler) run(sess *session) {
	defer close(sess.done)
	defer sess.ticker.Stop()

	for {
		select {
		case <-sess.stop:
			return
		case <-sess.ticker.C():
			if !s.tick(sess) {
				// Hard cap reached. The loop stops here; the registry
				// entry is removed by the leave transition the forced
				// disconnect produces.
				return
			}
		}
	}
}

// tick is one minute of presence. Returns false when the session must
// stop ticking.
func (s *Scheduler) tick(sess *session) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sess.totalMinutes++
	sess.minutesInCycle++

	if sess.totalMinutes >= s.cfg.HardCapMinutes {
		if _, err := s.notifier.Send(ctx, sess.channelID, kickText(sess.displayName)); err != nil {
			slog.Error("Failed to send kick notice",
				slog.String("type", "voice"),
				slog.String("user_id", sess.userID.String()),
				slog.Any("error", err))
		}
		if err := s.notifier.Disconnect(ctx, sess.userID, "Studied past the safety cap - time to rest"); err != nil {
			slog.Error("Failed to disconnect member",
				slog.String("type", "voice"),
				slog.String("user_id", sess.userID.String()),
				slog.Any("error", err))
		}
		return false
	}

	milestone := ""
	if sess.totalMinutes == s.cfg.BreakWarnMinutes && !sess.breakWarned {
		sess.breakWarned = true
		milestone = breakWarningText(sess.displayName)
		if err := s.audio.PlayCue(ctx, sess.channelID, s.cfg.BreakCueID); err != nil {
			slog.Error("Failed to play break cue",
				slog.String("type", "voice"),
				slog.String("channel_id", sess.channelID.String()),
				slog.Any("error", err))
		}
	} else if sess.totalMinutes == s.cfg.FourHourMinutes && !sess.fourHourWarned {
		sess.fourHourWarned = true
		milestone = fourHourText(sess.displayName, sess.coinEarned, sess.totalMinutes)
		if err := s.audio.PlayCue(ctx, sess.channelID, s.cfg.FourHourCueID); err != nil {
			slog.Error("Failed to play four hour cue",
				slog.String("type", "voice"),
				slog.String("channel_id", sess.channelID.String()),
				slog.Any("error", err))
		}
	}

	if sess.pendingCredit > 0 {
		if err := s.ledger.CreditVoiceEarning(ctx, sess.userID.String(), sess.pendingCredit); err != nil {
			slog.Error("Voice earning retry failed",
				slog.String("type", "voice"),
				slog.String("user_id", sess.userID.String()),
				slog.Int64("pending", sess.pendingCredit),
				slog.Any("error", err))
		} else {
			sess.pendingCredit = 0
		}
	}

	remaining := s.cfg.SessionMinutes - sess.minutesInCycle
	text := milestone
	if text == "" {
		text = countdownText(sess.displayName, remaining, sess.coinEarned)
	}
	if !sess.progressMessage.IsZero() {
		if err := s.notifier.Edit(ctx, sess.progressMessage, text); err != nil {
			slog.Error("Failed to edit progress message",
				slog.String("type", "voice"),
				slog.String("user_id", sess.userID.String()),
				slog.Any("error", err))
		}
	}

	if sess.minutesInCycle >= s.cfg.SessionMinutes {
		sess.minutesInCycle = 0
		sess.coinEarned++
		sess.sessionCounter++
		if err := s.ledger.CreditVoiceEarning(ctx, sess.userID.String(), s.cfg.HourlyReward); err != nil {
			// Earning must not crash the session. The amount is kept
			// and retried on the next tick.
			slog.Error("Voice earning failed, will retry",
				slog.String("type", "voice"),
				slog.String("user_id", sess.userID.String()),
				slog.Any("error", err))
			sess.pendingCredit += s.cfg.HourlyReward
		}
		if _, err := s.notifier.Send(ctx, sess.channelID, completionText(sess.displayName, sess.sessionCounter)); err != nil {
			slog.Error("Failed to send completion notice",
				slog.String("type", "voice"),
				slog.String("user_id", sess.userID.String()),
				slog.Any("error", err))
		}
		slog.Info("Study hour completed",
			slog.String("type", "voice"),
			slog.String("user_id", sess.userID.String()),
			slog.Int("session", sess.sessionCounter),
			slog.Int("total_minutes", sess.totalMinutes))
	}
	return true
}

// teardown stops and removes the user's session if one exists and
// returns its counters. Idempotent: returns nil when there is nothing
// to clean. It blocks until the tick goroutine has exited, so no tick
// can run concurrently with a transition for the same user.
func (s *Scheduler) teardown(userID snowflake.ID) *snapshot {
	s.mu.Lock()
	sess, ok := s.sessions[userID]
	if ok {
		delete(s.sessions, userID)
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}

	sess.stopOnce.Do(func() { close(sess.stop) })
	<-sess.done

	if !sess.progressMessage.IsZero() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s.notifier.Delete(ctx, sess.progressMessage); err != nil {
			slog.Warn("Failed to delete progress message",
				slog.String("type", "voice"),
				slog.String("user_id", userID.String()),
				slog.Any("error", err))
		}
		cancel()
	}

	return &snapshot{
		sessionCounter: sess.sessionCounter,
		totalMinutes:   sess.totalMinutes,
		minutesInCycle: sess.minutesInCycle,
		coinEarned:     sess.coinEarned,
		breakWarned:    sess.breakWarned,
		fourHourWarned: sess.fourHourWarned,
		pendingCredit:  sess.pendingCredit,
	}
}

// ActiveSessions returns the number of live sessions.
func (s *Scheduler) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown tears down every live session concurrently. Used on bot
// exit so no tick goroutines outlive the process.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	ids := make([]snowflake.ID, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	for _, id := range ids {
		g.Go(func() error {
			s.teardown(id)
			return nil
		})
	}
	return g.Wait()
}
