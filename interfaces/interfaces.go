package interfaces

import (
	"time"

	"reiatsu/storage"

	"github.com/bwmarrin/discordgo"
)

// Logger は、アプリケーション全体で使用されるロガーのインターフェースを定義します。
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Fatal(msg string, args ...any)
}

// DataStore は、ボットが依存するデータベース操作のインターフェースを定義します。
type DataStore interface {
	Close()
	PingDB() error

	GetGuildSpawn(guildID string) (*storage.GuildSpawnConfig, error)
	ListGuildSpawns() ([]storage.GuildSpawnConfig, error)
	SetSpawnChannel(guildID, channelID, defaultSpeed string) error
	DeleteGuildSpawn(guildID string) error
	SetSpawnSpeed(guildID, speed string, delay int) (bool, error)
	SetFixedDelay(guildID string, delay *int) (bool, error)
	SetDelay(guildID string, delay int) error
	MarkSpawned(guildID, messageID string, at time.Time) (bool, error)
	ClaimSpawn(guildID, messageID string, nextDelay int) (bool, error)
	ResetSpawn(guildID string, nextDelay int) error

	GetPlayer(userID string) (*storage.PlayerReiatsu, error)
	SavePlayer(p *storage.PlayerReiatsu) error
	GetLeaderboard(limit int) ([]storage.PlayerReiatsu, error)
	ListDecoyCandidates(class string) ([]storage.PlayerReiatsu, error)
	FindDecoyOwner(messageID string) (*storage.PlayerReiatsu, error)
	SetDecoy(userID, channelID, messageID string) (bool, error)
	ResolveDecoy(userID, messageID string, gain int64) (bool, error)
}

// ChatSession は出現メッセージの送信と削除に使うDiscord REST操作です。*discordgo.Session が満たします。
type ChatSession interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

// CommandHandler は、すべてのボットコマンドが実装すべきインターフェースを定義します。
type CommandHandler interface {
	GetCommandDef() *discordgo.ApplicationCommand
	Handle(s *discordgo.Session, i *discordgo.InteractionCreate)
	HandleComponent(s *discordgo.Session, i *discordgo.InteractionCreate)
	GetComponentIDs() []string
	GetCategory() string
}
