package spawner

import (
	"time"

	"reiatsu/reiatsu"
	"reiatsu/storage"
)

// Status は管理コマンド、CLI、Web API で表示するギルドの出現状態です。
type Status struct {
	GuildID    string     `json:"guild_id"`
	ChannelID  string     `json:"channel_id"`
	Speed      string     `json:"speed"`
	Live       bool       `json:"live"`
	MessageID  string     `json:"message_id,omitempty"`
	LastSpawn  *time.Time `json:"last_spawn_at,omitempty"`
	Delay      int        `json:"delay"`
	FixedDelay bool       `json:"fixed_delay"`
	NextSpawn  *time.Time `json:"next_spawn_at,omitempty"` // nil when live or due on the next tick with no history
}

// StatusOf summarises cfg as seen at now.
func StatusOf(cfg *storage.GuildSpawnConfig, now time.Time) Status {
	st := Status{
		GuildID:   cfg.GuildID,
		ChannelID: cfg.ChannelID,
		Speed:     reiatsu.LookupSpeed(cfg.SpawnSpeed).Key,
		Live:      cfg.IsSpawn,
		LastSpawn: cfg.LastSpawnAt,
	}
	if cfg.MessageID != nil {
		st.MessageID = *cfg.MessageID
	}
	switch {
	case cfg.FixedDelay != nil && *cfg.FixedDelay > 0:
		st.Delay = *cfg.FixedDelay
		st.FixedDelay = true
	case cfg.Delay != nil:
		st.Delay = *cfg.Delay
	}

	if !st.Live && cfg.LastSpawnAt != nil && st.Delay > 0 {
		next := cfg.LastSpawnAt.Add(time.Duration(st.Delay) * time.Second)
		if next.Before(now) {
			next = now
		}
		st.NextSpawn = &next
	}
	return st
}
