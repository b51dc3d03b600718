package storage

import "time"

// GuildSpawnConfig はギルドごとのReiatsu出現設定です。
type GuildSpawnConfig struct {
	GuildID     string     `json:"guild_id"`
	ChannelID   string     `json:"channel_id"`
	IsSpawn     bool       `json:"is_spawn"`
	MessageID   *string    `json:"message_id"`
	LastSpawnAt *time.Time `json:"last_spawn_at"`
	Delay       *int       `json:"delay"`
	FixedDelay  *int       `json:"fixed_delay"`
	SpawnSpeed  string     `json:"spawn_speed"`
}

// Live reports whether the row tracks messageID as its live spawn.
func (c *GuildSpawnConfig) Live(messageID string) bool {
	return c.IsSpawn && c.MessageID != nil && *c.MessageID == messageID
}

// PlayerReiatsu はユーザーごとのReiatsu状態です。ギルドをまたいで共有されます。
type PlayerReiatsu struct {
	UserID          string     `json:"user_id"`
	Points          int64      `json:"points"`
	Class           string     `json:"class"`
	BonusCounter    int        `json:"bonus_counter"`
	ActiveSkill     bool       `json:"active_skill"`
	SkillGuildID    *string    `json:"skill_guild_id"`
	DecoyMessageID  *string    `json:"decoy_message_id"`
	DecoyChannelID  *string    `json:"decoy_channel_id"`
	LastClassChange *time.Time `json:"last_class_change"`
	LastSkillAt     *time.Time `json:"last_skill_at"`
}
