package spawner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"reiatsu/logger"
	"reiatsu/reiatsu"
	"reiatsu/storage"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

const testEmoji = "💠"

type sentMessage struct {
	ChannelID string
	MessageID string
	Title     string
}

// fakeSession records REST calls instead of talking to Discord.
type fakeSession struct {
	mu           sync.Mutex
	next         int
	failChannels map[string]bool
	failDelete   bool
	onReact      func(messageID string) // called after the reaction is recorded, outside the lock
	sent         []sentMessage
	reactions    []string
	deleted      []string
}

func (f *fakeSession) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failChannels[channelID] {
		return nil, fmt.Errorf("channel %s: missing access", channelID)
	}
	f.next++
	id := fmt.Sprintf("msg-%d", f.next)
	f.sent = append(f.sent, sentMessage{ChannelID: channelID, MessageID: id, Title: embed.Title})
	return &discordgo.Message{ID: id, ChannelID: channelID}, nil
}

func (f *fakeSession) MessageReactionAdd(_, messageID, _ string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	f.reactions = append(f.reactions, messageID)
	hook := f.onReact
	f.mu.Unlock()
	if hook != nil {
		hook(messageID)
	}
	return nil
}

func (f *fakeSession) ChannelMessageDelete(_, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete {
		return errors.New("unknown message")
	}
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeSession) sentTo(channelID string) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.sent {
		if m.ChannelID == channelID {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeSession) deletedCount(messageID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range f.deleted {
		if id == messageID {
			n++
		}
	}
	return n
}

func newTestSpawner(t *testing.T) (*Spawner, *storage.DBStore, *fakeSession) {
	t.Helper()
	store, err := storage.NewDBStore(storage.DriverSQLite, filepath.Join(t.TempDir(), "reiatsu.db"))
	if err != nil {
		t.Fatalf("NewDBStore() error = %v", err)
	}
	t.Cleanup(store.Close)

	session := &fakeSession{failChannels: map[string]bool{}}
	s := New(store, session, logger.New(io.Discard, slog.LevelDebug), Options{Emoji: testEmoji, DefaultSpeed: "tres_rapide"})
	// 1%の Super Reiatsu を避けるため固定のロールを使う
	s.roll = func() reiatsu.Roll { return reiatsu.Roll{Percent: 50, Coin: 100, Amount: 7} }
	return s, store, session
}

// liveSpawn configures guildID and forces a spawn, returning the spawn message id.
func liveSpawn(t *testing.T, s *Spawner, store *storage.DBStore, guildID, channelID string) string {
	t.Helper()
	if err := store.SetSpawnChannel(guildID, channelID, "tres_rapide"); err != nil {
		t.Fatalf("SetSpawnChannel() error = %v", err)
	}
	if err := s.ForceSpawn(context.Background(), guildID); err != nil {
		t.Fatalf("ForceSpawn() error = %v", err)
	}
	cfg, err := store.GetGuildSpawn(guildID)
	if err != nil || cfg == nil || cfg.MessageID == nil {
		t.Fatalf("GetGuildSpawn() = %+v, %v, want a live spawn", cfg, err)
	}
	return *cfg.MessageID
}

func TestTickSpawnsWhenNeverSpawned(t *testing.T) {
	s, store, session := newTestSpawner(t)
	if err := store.SetSpawnChannel("g1", "c1", "tres_rapide"); err != nil {
		t.Fatal(err)
	}

	s.Tick(context.Background())

	cfg, err := store.GetGuildSpawn("g1")
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.IsSpawn || cfg.MessageID == nil || cfg.LastSpawnAt == nil {
		t.Fatalf("after first tick cfg = %+v, want a live spawn", cfg)
	}
	if cfg.Delay == nil || !reiatsu.LookupSpeed("tres_rapide").Contains(*cfg.Delay) {
		t.Errorf("drawn delay = %v, want persisted within tier", cfg.Delay)
	}
	if got := session.sentTo("c1"); len(got) != 1 || got[0].MessageID != *cfg.MessageID {
		t.Errorf("sent = %+v, want one spawn message", got)
	}
	if len(session.reactions) != 1 {
		t.Errorf("reactions = %v, want the spawn emoji added once", session.reactions)
	}

	// 出現中のギルドには投稿しない
	s.Tick(context.Background())
	if got := session.sentTo("c1"); len(got) != 1 {
		t.Errorf("second tick sent %d messages, want still 1", len(got))
	}
}

func TestTickRespectsDelay(t *testing.T) {
	tests := []struct {
		name      string
		ago       time.Duration
		delay     int
		fixed     *int
		wantSpawn bool
	}{
		{name: "elapsed beyond tier", ago: 100 * time.Second, delay: 45, wantSpawn: true},
		{name: "not yet", ago: 10 * time.Second, delay: 45, wantSpawn: false},
		{name: "fixed delay overrides", ago: 100 * time.Second, delay: 45, fixed: intPtr(600), wantSpawn: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, store, session := newTestSpawner(t)
			if err := store.SetSpawnChannel("g1", "c1", "tres_rapide"); err != nil {
				t.Fatal(err)
			}
			if _, err := store.MarkSpawned("g1", "old", time.Now().Add(-tt.ago)); err != nil {
				t.Fatal(err)
			}
			if _, err := store.ClaimSpawn("g1", "old", tt.delay); err != nil {
				t.Fatal(err)
			}
			if tt.fixed != nil {
				if _, err := store.SetFixedDelay("g1", tt.fixed); err != nil {
					t.Fatal(err)
				}
			}

			s.Tick(context.Background())

			spawned := len(session.sentTo("c1")) == 1
			if spawned != tt.wantSpawn {
				t.Errorf("spawned = %v, want %v", spawned, tt.wantSpawn)
			}
		})
	}
}

func TestTickFailingGuildDoesNotBlockOthers(t *testing.T) {
	s, store, session := newTestSpawner(t)
	session.failChannels["broken"] = true
	for guild, channel := range map[string]string{"g1": "broken", "g2": "c2", "g3": "c3"} {
		if err := store.SetSpawnChannel(guild, channel, "tres_rapide"); err != nil {
			t.Fatal(err)
		}
	}

	s.Tick(context.Background())

	for _, guild := range []string{"g2", "g3"} {
		cfg, err := store.GetGuildSpawn(guild)
		if err != nil {
			t.Fatal(err)
		}
		if !cfg.IsSpawn {
			t.Errorf("%s has no live spawn after tick", guild)
		}
	}
	cfg, err := store.GetGuildSpawn("g1")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.IsSpawn {
		t.Error("g1 recorded a spawn although sending failed")
	}
}

func TestClaimSingleWinner(t *testing.T) {
	s, store, session := newTestSpawner(t)
	msgID := liveSpawn(t, s, store, "g1", "c1")

	const n = 20
	results := make([]ClaimResult, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := s.Claim(ReactionEvent{GuildID: "g1", ChannelID: "c1", MessageID: msgID, UserID: fmt.Sprintf("u%d", i), Emoji: testEmoji})
			if err != nil {
				t.Errorf("Claim() error = %v", err)
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	winners := 0
	for i, res := range results {
		p, err := store.GetPlayer(fmt.Sprintf("u%d", i))
		if err != nil {
			t.Fatal(err)
		}
		switch res.Outcome {
		case OutcomeClaimed:
			winners++
			if p == nil || p.Points != reiatsu.BaseGain {
				t.Errorf("winner u%d player = %+v, want %d points", i, p, reiatsu.BaseGain)
			}
		case OutcomeStale:
			if p != nil {
				t.Errorf("loser u%d has a player row %+v, want no write", i, p)
			}
		default:
			t.Errorf("u%d outcome = %s", i, res.Outcome)
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}

	cfg, err := store.GetGuildSpawn("g1")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.IsSpawn || cfg.MessageID != nil {
		t.Errorf("after claim cfg = %+v, want cleared", cfg)
	}
	if cfg.Delay == nil || !reiatsu.LookupSpeed("tres_rapide").Contains(*cfg.Delay) {
		t.Errorf("delay after claim = %v, want within tier bounds", cfg.Delay)
	}
	if got := session.deletedCount(msgID); got != 1 {
		t.Errorf("spawn message deleted %d times, want 1", got)
	}
}

func TestClaimIgnoredAndStale(t *testing.T) {
	s, store, _ := newTestSpawner(t)
	msgID := liveSpawn(t, s, store, "g1", "c1")

	tests := []struct {
		name string
		ev   ReactionEvent
		want Outcome
	}{
		{name: "other emoji", ev: ReactionEvent{GuildID: "g1", ChannelID: "c1", MessageID: msgID, UserID: "u1", Emoji: "👍"}, want: OutcomeIgnored},
		{name: "direct message", ev: ReactionEvent{ChannelID: "dm", MessageID: msgID, UserID: "u1", Emoji: testEmoji}, want: OutcomeIgnored},
		{name: "other message", ev: ReactionEvent{GuildID: "g1", ChannelID: "c1", MessageID: "nope", UserID: "u1", Emoji: testEmoji}, want: OutcomeStale},
		{name: "unconfigured guild", ev: ReactionEvent{GuildID: "g9", ChannelID: "c9", MessageID: msgID, UserID: "u1", Emoji: testEmoji}, want: OutcomeStale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Claim(tt.ev)
			if err != nil {
				t.Fatalf("Claim() error = %v", err)
			}
			if res.Outcome != tt.want {
				t.Errorf("Outcome = %s, want %s", res.Outcome, tt.want)
			}
		})
	}

	if p, _ := store.GetPlayer("u1"); p != nil {
		t.Errorf("player written by ignored reactions: %+v", p)
	}
	if cfg, _ := store.GetGuildSpawn("g1"); !cfg.Live(msgID) {
		t.Error("spawn no longer live after ignored reactions")
	}
}

func TestClaimTravailleurCycle(t *testing.T) {
	s, store, _ := newTestSpawner(t)
	if err := store.SavePlayer(&storage.PlayerReiatsu{UserID: "worker", Class: reiatsu.ClassTravailleur.Key()}); err != nil {
		t.Fatal(err)
	}

	wantGains := []int64{1, 1, 1, 1, 6, 1}
	var total int64
	for i, want := range wantGains {
		msgID := liveSpawn(t, s, store, "g1", "c1")
		res, err := s.Claim(ReactionEvent{GuildID: "g1", ChannelID: "c1", MessageID: msgID, UserID: "worker", Emoji: testEmoji})
		if err != nil {
			t.Fatalf("claim %d: %v", i+1, err)
		}
		if res.Gain != want {
			t.Errorf("claim %d gain = %d, want %d", i+1, res.Gain, want)
		}
		total += want
	}

	p, err := store.GetPlayer("worker")
	if err != nil {
		t.Fatal(err)
	}
	if p.Points != total || p.BonusCounter != 1 {
		t.Errorf("player = %+v, want points %d counter 1", p, total)
	}
}

func TestClaimDeleteFailureStillRewards(t *testing.T) {
	s, store, session := newTestSpawner(t)
	msgID := liveSpawn(t, s, store, "g1", "c1")
	session.failDelete = true

	res, err := s.Claim(ReactionEvent{GuildID: "g1", ChannelID: "c1", MessageID: msgID, UserID: "u1", Emoji: testEmoji})
	if err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if res.Outcome != OutcomeClaimed {
		t.Errorf("Outcome = %s, want claimed", res.Outcome)
	}
}

func TestDecoyFlow(t *testing.T) {
	s, store, session := newTestSpawner(t)
	if err := store.SetSpawnChannel("g1", "c1", "lent"); err != nil {
		t.Fatal(err)
	}
	// 通常の出現は間隔内に留める
	if _, err := store.MarkSpawned("g1", "old", time.Now()); err != nil {
		t.Fatal(err)
	}
	if _, err := store.ClaimSpawn("g1", "old", 7200); err != nil {
		t.Fatal(err)
	}
	guild := "g1"
	if err := store.SavePlayer(&storage.PlayerReiatsu{
		UserID:       "illu",
		Points:       3,
		Class:        reiatsu.ClassIllusionniste.Key(),
		ActiveSkill:  true,
		SkillGuildID: &guild,
	}); err != nil {
		t.Fatal(err)
	}

	s.Tick(context.Background())

	sent := session.sentTo("c1")
	if len(sent) != 1 {
		t.Fatalf("sent = %+v, want only the decoy", sent)
	}
	decoyID := sent[0].MessageID
	owner, err := store.FindDecoyOwner(decoyID)
	if err != nil || owner == nil || owner.UserID != "illu" {
		t.Fatalf("FindDecoyOwner() = %+v, %v", owner, err)
	}

	// 囮が出ている間は次の囮を出さない
	s.Tick(context.Background())
	if got := len(session.sentTo("c1")); got != 1 {
		t.Errorf("second tick sent %d messages, want 1", got)
	}

	res, err := s.Claim(ReactionEvent{GuildID: "g1", ChannelID: "c1", MessageID: decoyID, UserID: "victim", Emoji: testEmoji})
	if err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if res.Outcome != OutcomeDecoy || res.UserID != "illu" || res.Gain != reiatsu.DecoyGain {
		t.Errorf("Claim() = %+v, want decoy paid to illu", res)
	}

	if p, _ := store.GetPlayer("victim"); p != nil {
		t.Errorf("clicker has a player row %+v, want untouched", p)
	}
	p, err := store.GetPlayer("illu")
	if err != nil {
		t.Fatal(err)
	}
	if p.Points != 3+reiatsu.DecoyGain || p.DecoyMessageID != nil || p.ActiveSkill {
		t.Errorf("owner after decoy = %+v", p)
	}
	if session.deletedCount(decoyID) != 1 {
		t.Error("decoy message was not deleted")
	}

	// 二度目のリアクションは何もしない
	res, err = s.Claim(ReactionEvent{GuildID: "g1", ChannelID: "c1", MessageID: decoyID, UserID: "late", Emoji: testEmoji})
	if err != nil || res.Outcome != OutcomeStale {
		t.Errorf("late claim = %+v, %v, want stale", res, err)
	}
}

func TestForceSpawnAndReset(t *testing.T) {
	s, store, session := newTestSpawner(t)
	ctx := context.Background()

	if err := s.ForceSpawn(ctx, "nowhere"); !errors.Is(err, ErrNoChannel) {
		t.Errorf("ForceSpawn(unconfigured) error = %v, want ErrNoChannel", err)
	}
	if err := s.Reset("nowhere"); !errors.Is(err, ErrNoChannel) {
		t.Errorf("Reset(unconfigured) error = %v, want ErrNoChannel", err)
	}

	msgID := liveSpawn(t, s, store, "g1", "c1")
	if err := s.ForceSpawn(ctx, "g1"); !errors.Is(err, ErrSpawnLive) {
		t.Errorf("ForceSpawn(live) error = %v, want ErrSpawnLive", err)
	}

	if err := s.Reset("g1"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	cfg, err := store.GetGuildSpawn("g1")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.IsSpawn || cfg.MessageID != nil {
		t.Errorf("after reset cfg = %+v", cfg)
	}
	if session.deletedCount(msgID) != 1 {
		t.Error("reset did not delete the stuck message")
	}

	res, err := s.Claim(ReactionEvent{GuildID: "g1", ChannelID: "c1", MessageID: msgID, UserID: "u1", Emoji: testEmoji})
	if err != nil || res.Outcome != OutcomeStale {
		t.Errorf("claim after reset = %+v, %v, want stale", res, err)
	}
}

func TestUpdatePlayerAbort(t *testing.T) {
	s, store, _ := newTestSpawner(t)
	errNope := errors.New("nope")

	if _, err := s.UpdatePlayer("u1", func(p *storage.PlayerReiatsu) error {
		p.Points = 99
		return errNope
	}); !errors.Is(err, errNope) {
		t.Fatalf("UpdatePlayer() error = %v, want errNope", err)
	}
	if p, _ := store.GetPlayer("u1"); p != nil {
		t.Errorf("aborted update saved %+v", p)
	}
}

func intPtr(v int) *int { return &v }

func TestClaimSameUserAcrossGuilds(t *testing.T) {
	s, store, _ := newTestSpawner(t)

	const guilds = 20
	events := make([]ReactionEvent, guilds)
	for n := range events {
		guildID := fmt.Sprintf("g%d", n)
		channelID := fmt.Sprintf("c%d", n)
		msgID := liveSpawn(t, s, store, guildID, channelID)
		events[n] = ReactionEvent{GuildID: guildID, ChannelID: channelID, MessageID: msgID, UserID: "ichigo", Emoji: testEmoji}
	}

	var wg sync.WaitGroup
	errs := make(chan error, guilds)
	for _, ev := range events {
		wg.Add(1)
		go func(ev ReactionEvent) {
			defer wg.Done()
			res, err := s.Claim(ev)
			if err == nil && res.Outcome != OutcomeClaimed {
				err = fmt.Errorf("%s: outcome %s", ev.GuildID, res.Outcome)
			}
			errs <- err
		}(ev)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Error(err)
		}
	}

	p, err := store.GetPlayer("ichigo")
	if err != nil || p == nil {
		t.Fatalf("GetPlayer() = %+v, %v", p, err)
	}
	if want := int64(guilds) * reiatsu.BaseGain; p.Points != want {
		t.Errorf("Points = %d after %d claims in different guilds, want %d", p.Points, guilds, want)
	}
}

func TestDecoyReactionWhileRecording(t *testing.T) {
	s, store, session := newTestSpawner(t)
	if err := store.SetSpawnChannel("g1", "c1", "lent"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.MarkSpawned("g1", "old", time.Now()); err != nil {
		t.Fatal(err)
	}
	if _, err := store.ClaimSpawn("g1", "old", 7200); err != nil {
		t.Fatal(err)
	}
	guild := "g1"
	if err := store.SavePlayer(&storage.PlayerReiatsu{
		UserID:       "illu",
		Class:        reiatsu.ClassIllusionniste.Key(),
		ActiveSkill:  true,
		SkillGuildID: &guild,
	}); err != nil {
		t.Fatal(err)
	}

	// 囮のIDが記録される前にリアクションが届く
	results := make(chan ClaimResult, 1)
	session.onReact = func(messageID string) {
		go func() {
			res, err := s.Claim(ReactionEvent{GuildID: "g1", ChannelID: "c1", MessageID: messageID, UserID: "victim", Emoji: testEmoji})
			if err != nil {
				t.Errorf("Claim() error = %v", err)
			}
			results <- res
		}()
		time.Sleep(50 * time.Millisecond)
	}

	s.Tick(context.Background())

	select {
	case res := <-results:
		if res.Outcome != OutcomeDecoy || res.UserID != "illu" {
			t.Errorf("Claim() = %+v, want the decoy paid to illu", res)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reaction was never arbitrated")
	}
	p, err := store.GetPlayer("illu")
	if err != nil {
		t.Fatal(err)
	}
	if p.Points != reiatsu.DecoyGain {
		t.Errorf("owner points = %d, want %d", p.Points, reiatsu.DecoyGain)
	}
}

func TestTickPostsDecoysBeforeGuilds(t *testing.T) {
	s, store, session := newTestSpawner(t)
	// 1件分しか投稿できない
	s.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)

	if err := store.SetSpawnChannel("g1", "c1", "tres_rapide"); err != nil {
		t.Fatal(err)
	}
	if err := store.SetSpawnChannel("g2", "c2", "lent"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.MarkSpawned("g2", "old", time.Now()); err != nil {
		t.Fatal(err)
	}
	if _, err := store.ClaimSpawn("g2", "old", 7200); err != nil {
		t.Fatal(err)
	}
	guild := "g2"
	if err := store.SavePlayer(&storage.PlayerReiatsu{
		UserID:       "illu",
		Class:        reiatsu.ClassIllusionniste.Key(),
		ActiveSkill:  true,
		SkillGuildID: &guild,
	}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Tick(ctx)

	if got := len(session.sentTo("c2")); got != 1 {
		t.Errorf("decoys sent = %d, want 1", got)
	}
	if got := len(session.sentTo("c1")); got != 0 {
		t.Errorf("spawns sent = %d, want 0 once the budget is spent", got)
	}
	if p, _ := store.GetPlayer("illu"); p == nil || p.DecoyMessageID == nil {
		t.Errorf("decoy not recorded: %+v", p)
	}
}
