package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

const (
	testStaging = snowflake.ID(100)
	testRoomA   = snowflake.ID(200)
	testRoomB   = snowflake.ID(300)
	testUser    = snowflake.ID(42)
)

// fakeTicker is driven manually. Sends on c are unbuffered, so a send
// returning means the tick loop has picked the tick up.
type fakeTicker struct {
	c chan time.Time
}

func (f *fakeTicker) C() <-chan time.Time { return f.c }
func (f *fakeTicker) Stop()               {}

type fakeClock struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

func (f *fakeClock) NewTicker(time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticker := &fakeTicker{c: make(chan time.Time)}
	f.tickers = append(f.tickers, ticker)
	return ticker
}

func (f *fakeClock) current() *fakeTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tickers[len(f.tickers)-1]
}

type fakeNotifier struct {
	mu          sync.Mutex
	nextID      snowflake.ID
	sent        []string
	edits       []string
	deleted     []MessageRef
	disconnects []snowflake.ID
}

func (f *fakeNotifier) Send(_ context.Context, channelID snowflake.ID, content string) (MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, content)
	return MessageRef{ChannelID: channelID, MessageID: f.nextID}, nil
}

func (f *fakeNotifier) Edit(_ context.Context, _ MessageRef, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, content)
	return nil
}

func (f *fakeNotifier) Delete(_ context.Context, ref MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ref)
	return nil
}

func (f *fakeNotifier) Disconnect(_ context.Context, userID snowflake.ID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects = append(f.disconnects, userID)
	return nil
}

func (f *fakeNotifier) disconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.disconnects)
}

func (f *fakeNotifier) sentMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type fakeAudio struct {
	mu   sync.Mutex
	cues []string
}

func (f *fakeAudio) PlayCue(_ context.Context, _ snowflake.ID, cueID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cues = append(f.cues, cueID)
	return nil
}

func (f *fakeAudio) played() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cues...)
}

type fakeEarningLedger struct {
	mu       sync.Mutex
	failures int
	credits  []int64
}

func (f *fakeEarningLedger) CreditVoiceEarning(_ context.Context, _ string, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("storage down")
	}
	f.credits = append(f.credits, amount)
	return nil
}

func (f *fakeEarningLedger) credited() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.credits...)
}

func testConfig() Config {
	return Config{
		StagingChannelID: testStaging,
		SessionMinutes:   60,
		BreakWarnMinutes: 210,
		FourHourMinutes:  240,
		HardCapMinutes:   245,
		HourlyReward:     1,
		BreakCueID:       "break",
		FourHourCueID:    "fourhour",
		TickInterval:     time.Minute,
	}
}

type fixture struct {
	scheduler *Scheduler
	clock     *fakeClock
	notifier  *fakeNotifier
	audio     *fakeAudio
	ledger    *fakeEarningLedger
}

func newFixture(cfg Config) *fixture {
	f := &fixture{
		clock:    &fakeClock{},
		notifier: &fakeNotifier{},
		audio:    &fakeAudio{},
		ledger:   &fakeEarningLedger{},
	}
	f.scheduler = NewScheduler(cfg, f.ledger, f.notifier, f.audio, f.clock)
	return f
}

// advance sends n ticks through the current ticker. Each send returns
// only after the tick loop has received the previous one.
func (f *fixture) advance(n int) {
	ticker := f.clock.current()
	for i := 0; i < n; i++ {
		ticker.c <- time.Now()
	}
}

func (f *fixture) join(channelID snowflake.ID) {
	f.scheduler.HandleVoiceState(testUser, "Tester", "study-room", 0, channelID)
}

func (f *fixture) leave(channelID snowflake.ID) {
	f.scheduler.HandleVoiceState(testUser, "Tester", "", channelID, 0)
}

func TestSchedulerFullHourPaysOneCoin(t *testing.T) {
	f := newFixture(testConfig())

	f.join(testRoomA)
	if got := f.scheduler.ActiveSessions(); got != 1 {
		t.Fatalf("ActiveSessions() = %d, want 1", got)
	}

	f.advance(60)
	f.leave(testRoomA)

	credits := f.ledger.credited()
	if len(credits) != 1 || credits[0] != 1 {
		t.Errorf("credits = %v, want [1]", credits)
	}
	if got := f.scheduler.ActiveSessions(); got != 0 {
		t.Errorf("ActiveSessions() after leave = %d, want 0", got)
	}

	// The completed hour advances the session counter to 2, which the
	// completion notice announces.
	sent := f.notifier.sentMessages()
	want := completionText("Tester", 2)
	if len(sent) == 0 {
		t.Fatal("no messages sent")
	}
	if got := sent[len(sent)-1]; got != want {
		t.Errorf("last sent message = %q, want %q", got, want)
	}
}

func TestSchedulerPartialHourPaysNothing(t *testing.T) {
	f := newFixture(testConfig())

	f.join(testRoomA)
	f.advance(59)
	f.leave(testRoomA)

	if credits := f.ledger.credited(); len(credits) != 0 {
		t.Errorf("credits = %v, want none for a partial hour", credits)
	}
}

func TestSchedulerSwitchPreservesProgress(t *testing.T) {
	f := newFixture(testConfig())

	f.join(testRoomA)
	f.advance(35)
	f.scheduler.HandleVoiceState(testUser, "Tester", "other-room", testRoomA, testRoomB)
	f.advance(25)
	f.leave(testRoomB)

	credits := f.ledger.credited()
	if len(credits) != 1 {
		t.Errorf("credits = %v, want exactly one coin across the switch", credits)
	}
}

func TestSchedulerLeaveResetsProgress(t *testing.T) {
	f := newFixture(testConfig())

	f.join(testRoomA)
	f.advance(59)
	f.leave(testRoomA)

	// A fresh join starts a new cycle; one more minute must not pay.
	f.join(testRoomA)
	f.advance(1)
	f.leave(testRoomA)

	if credits := f.ledger.credited(); len(credits) != 0 {
		t.Errorf("credits = %v, want none after reset", credits)
	}
}

func TestSchedulerStagingChannelNotTracked(t *testing.T) {
	f := newFixture(testConfig())

	f.scheduler.HandleVoiceState(testUser, "Tester", "staging", 0, testStaging)
	if got := f.scheduler.ActiveSessions(); got != 0 {
		t.Errorf("ActiveSessions() = %d, want 0 for staging channel", got)
	}

	// Staging to room counts as a join.
	f.scheduler.HandleVoiceState(testUser, "Tester", "study-room", testStaging, testRoomA)
	if got := f.scheduler.ActiveSessions(); got != 1 {
		t.Errorf("ActiveSessions() = %d, want 1 after staging hop", got)
	}
	f.leave(testRoomA)
}

func TestSchedulerMilestoneCues(t *testing.T) {
	cfg := testConfig()
	cfg.SessionMinutes = 1000 // keep hour completion out of the way
	cfg.BreakWarnMinutes = 2
	cfg.FourHourMinutes = 4
	cfg.HardCapMinutes = 100
	f := newFixture(cfg)

	f.join(testRoomA)
	f.advance(4)
	f.leave(testRoomA)

	played := f.audio.played()
	if len(played) != 2 || played[0] != "break" || played[1] != "fourhour" {
		t.Errorf("played cues = %v, want [break fourhour]", played)
	}
}

func TestSchedulerMilestonesFireOnceAcrossSwitch(t *testing.T) {
	cfg := testConfig()
	cfg.SessionMinutes = 1000
	cfg.BreakWarnMinutes = 2
	cfg.FourHourMinutes = 500
	cfg.HardCapMinutes = 600
	f := newFixture(cfg)

	f.join(testRoomA)
	f.advance(2)
	f.scheduler.HandleVoiceState(testUser, "Tester", "other-room", testRoomA, testRoomB)
	f.advance(3)
	f.leave(testRoomB)

	if played := f.audio.played(); len(played) != 1 {
		t.Errorf("played cues = %v, want the break cue exactly once", played)
	}
}

func TestSchedulerHardCapDisconnects(t *testing.T) {
	cfg := testConfig()
	cfg.SessionMinutes = 1000
	cfg.BreakWarnMinutes = 1000
	cfg.FourHourMinutes = 1000
	cfg.HardCapMinutes = 5
	f := newFixture(cfg)

	f.join(testRoomA)
	f.advance(5)

	// The tick loop has stopped; give the disconnect call a moment.
	deadline := time.Now().Add(2 * time.Second)
	for f.notifier.disconnectCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := f.notifier.disconnectCount(); got != 1 {
		t.Fatalf("disconnects = %d, want 1", got)
	}

	// The forced disconnect produces a leave event that cleans the
	// registry entry.
	f.leave(testRoomA)
	if got := f.scheduler.ActiveSessions(); got != 0 {
		t.Errorf("ActiveSessions() = %d, want 0", got)
	}
	if credits := f.ledger.credited(); len(credits) != 0 {
		t.Errorf("credits = %v, want none before a full hour", credits)
	}
}

func TestSchedulerRetriesFailedCredit(t *testing.T) {
	cfg := testConfig()
	cfg.SessionMinutes = 2
	cfg.BreakWarnMinutes = 1000
	cfg.FourHourMinutes = 1000
	cfg.HardCapMinutes = 1000
	f := newFixture(cfg)
	f.ledger.failures = 1

	f.join(testRoomA)
	f.advance(2) // completes a cycle, credit fails and is parked
	f.advance(1) // retry succeeds on the next tick
	f.leave(testRoomA)

	credits := f.ledger.credited()
	if len(credits) != 1 || credits[0] != 1 {
		t.Errorf("credits = %v, want [1] after retry", credits)
	}
}

func TestSchedulerShutdown(t *testing.T) {
	f := newFixture(testConfig())

	f.join(testRoomA)
	other := snowflake.ID(43)
	f.scheduler.HandleVoiceState(other, "Other", "study-room", 0, testRoomA)
	if got := f.scheduler.ActiveSessions(); got != 2 {
		t.Fatalf("ActiveSessions() = %d, want 2", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.scheduler.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if got := f.scheduler.ActiveSessions(); got != 0 {
		t.Errorf("ActiveSessions() after shutdown = %d, want 0", got)
	}
}
