// Package spawner posts Reiatsu spawns on a schedule and arbitrates who claims them.
package spawner

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"reiatsu/interfaces"
	"reiatsu/reiatsu"
	"reiatsu/storage"

	"golang.org/x/time/rate"
)

var (
	ErrSpawnLive = errors.New("a spawn is already live in this guild")
	ErrNoChannel = errors.New("no spawn channel configured for this guild")
)

// Options は Spawner の動作設定です。
type Options struct {
	Emoji          string
	DefaultSpeed   string
	PostsPerSecond float64 // 0以下なら無制限
}

// Spawner は定期的な出現、反応による獲得、イリュージョンの囮を扱います。
// ギルドごとの状態はギルドロックで、プレイヤーの行はプレイヤーロックで直列化されます。
type Spawner struct {
	store   interfaces.DataStore
	session interfaces.ChatSession
	log     interfaces.Logger

	emoji        string
	defaultSpeed string

	guildLocks  *KeyedMutex
	playerLocks *KeyedMutex
	limiter     *rate.Limiter

	rngMu sync.Mutex
	rng   *rand.Rand

	now  func() time.Time
	roll func() reiatsu.Roll
}

func New(store interfaces.DataStore, session interfaces.ChatSession, log interfaces.Logger, opts Options) *Spawner {
	limit := rate.Inf
	if opts.PostsPerSecond > 0 {
		limit = rate.Limit(opts.PostsPerSecond)
	}
	speed := opts.DefaultSpeed
	if !reiatsu.IsSpeed(speed) {
		speed = reiatsu.DefaultSpeedKey
	}

	s := &Spawner{
		store:        store,
		session:      session,
		log:          log,
		emoji:        opts.Emoji,
		defaultSpeed: speed,
		guildLocks:   NewKeyedMutex(),
		playerLocks:  NewKeyedMutex(),
		limiter:      rate.NewLimiter(limit, 1),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		now:          time.Now,
	}
	s.roll = func() reiatsu.Roll {
		s.rngMu.Lock()
		defer s.rngMu.Unlock()
		return reiatsu.NewRoll(s.rng)
	}
	return s
}

// Emoji returns the reaction players must click.
func (s *Spawner) Emoji() string {
	return s.emoji
}

// DefaultSpeed returns the tier new guilds start with.
func (s *Spawner) DefaultSpeed() string {
	return s.defaultSpeed
}

func (s *Spawner) randomDelay(speedKey string) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return reiatsu.LookupSpeed(speedKey).RandomDelay(s.rng)
}

// Tick は囮を投稿したあと、設定済みの全ギルドを確認し、期限が来たギルドに出現メッセージを投稿します。
// 1つのギルドでの失敗は記録され、他のギルドの処理は続行されます。
func (s *Spawner) Tick(ctx context.Context) {
	// 囮は発動ごとに1回だけなので、ギルドの巡回で期限切れになる前に出す
	s.spawnDecoys(ctx)

	configs, err := s.store.ListGuildSpawns()
	if err != nil {
		s.log.Error("出現設定の一覧取得に失敗", "error", err)
		return
	}

	for _, cfg := range configs {
		if ctx.Err() != nil {
			return
		}
		if err := s.tickGuild(ctx, cfg.GuildID); err != nil {
			s.log.Error("ギルドの出現処理に失敗", "error", err, "guildID", cfg.GuildID)
		}
	}
}

func (s *Spawner) tickGuild(ctx context.Context, guildID string) error {
	unlock := s.guildLocks.Lock(guildID)
	defer unlock()

	cfg, err := s.store.GetGuildSpawn(guildID)
	if err != nil {
		return fmt.Errorf("failed to read guild spawn: %w", err)
	}
	if cfg == nil || cfg.ChannelID == "" || cfg.IsSpawn {
		return nil
	}

	delay, err := s.effectiveDelay(cfg)
	if err != nil {
		return err
	}
	if !reiatsu.Due(cfg.LastSpawnAt, delay, s.now()) {
		return nil
	}
	return s.post(ctx, cfg)
}

// effectiveDelay は fixed_delay、保存済みの delay、速度帯からの抽選の順に決めます。
// 抽選した値は次回も同じ間隔になるよう保存されます。
func (s *Spawner) effectiveDelay(cfg *storage.GuildSpawnConfig) (int, error) {
	if cfg.FixedDelay != nil && *cfg.FixedDelay > 0 {
		return *cfg.FixedDelay, nil
	}
	if cfg.Delay != nil && *cfg.Delay > 0 {
		return *cfg.Delay, nil
	}
	delay := s.randomDelay(cfg.SpawnSpeed)
	if err := s.store.SetDelay(cfg.GuildID, delay); err != nil {
		return 0, fmt.Errorf("failed to persist delay: %w", err)
	}
	return delay, nil
}

// post sends the spawn message and records it. Caller holds the guild lock.
func (s *Spawner) post(ctx context.Context, cfg *storage.GuildSpawnConfig) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	msg, err := s.session.ChannelMessageSendEmbed(cfg.ChannelID, spawnEmbed(s.emoji))
	if err != nil {
		return fmt.Errorf("failed to send spawn message to %s: %w", cfg.ChannelID, err)
	}
	if err := s.session.MessageReactionAdd(cfg.ChannelID, msg.ID, s.emoji); err != nil {
		s.log.Warn("出現メッセージへのリアクション追加に失敗", "error", err, "guildID", cfg.GuildID, "messageID", msg.ID)
	}

	ok, err := s.store.MarkSpawned(cfg.GuildID, msg.ID, s.now())
	if err != nil {
		s.deleteMessage(cfg.ChannelID, msg.ID)
		return fmt.Errorf("failed to record spawn: %w", err)
	}
	if !ok {
		s.deleteMessage(cfg.ChannelID, msg.ID)
		return nil
	}

	s.log.Info("Reiatsuが出現しました", "guildID", cfg.GuildID, "channelID", cfg.ChannelID, "messageID", msg.ID)
	return nil
}

// ForceSpawn posts a spawn now, ignoring the delay.
func (s *Spawner) ForceSpawn(ctx context.Context, guildID string) error {
	unlock := s.guildLocks.Lock(guildID)
	defer unlock()

	cfg, err := s.store.GetGuildSpawn(guildID)
	if err != nil {
		return fmt.Errorf("failed to read guild spawn: %w", err)
	}
	if cfg == nil || cfg.ChannelID == "" {
		return ErrNoChannel
	}
	if cfg.IsSpawn {
		return ErrSpawnLive
	}
	return s.post(ctx, cfg)
}

// Reset clears a stuck spawn and draws a new delay. The old message is deleted if it still exists.
func (s *Spawner) Reset(guildID string) error {
	unlock := s.guildLocks.Lock(guildID)
	defer unlock()

	cfg, err := s.store.GetGuildSpawn(guildID)
	if err != nil {
		return fmt.Errorf("failed to read guild spawn: %w", err)
	}
	if cfg == nil {
		return ErrNoChannel
	}

	if err := s.store.ResetSpawn(guildID, s.randomDelay(cfg.SpawnSpeed)); err != nil {
		return fmt.Errorf("failed to reset spawn: %w", err)
	}
	if cfg.MessageID != nil && cfg.ChannelID != "" {
		s.deleteMessage(cfg.ChannelID, *cfg.MessageID)
	}
	s.log.Info("出現状態をリセットしました", "guildID", guildID)
	return nil
}

// UpdatePlayer loads (or creates) a player row, applies fn and saves it under the player lock.
// fn returning an error aborts the save.
func (s *Spawner) UpdatePlayer(userID string, fn func(p *storage.PlayerReiatsu) error) (*storage.PlayerReiatsu, error) {
	unlock := s.playerLocks.Lock(userID)
	defer unlock()

	p, err := s.store.GetPlayer(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read player: %w", err)
	}
	if p == nil {
		p = &storage.PlayerReiatsu{UserID: userID}
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	if err := s.store.SavePlayer(p); err != nil {
		return nil, fmt.Errorf("failed to save player: %w", err)
	}
	return p, nil
}

func (s *Spawner) deleteMessage(channelID, messageID string) {
	if err := s.session.ChannelMessageDelete(channelID, messageID); err != nil {
		s.log.Warn("メッセージの削除に失敗", "error", err, "channelID", channelID, "messageID", messageID)
	}
}
