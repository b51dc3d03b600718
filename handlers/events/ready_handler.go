package events

import (
	"reiatsu/interfaces"

	"github.com/bwmarrin/discordgo"
)

// OnReady は、Botの準備ができたときに呼び出され、ステータスを設定します。
func OnReady(s *discordgo.Session, r *discordgo.Ready, log interfaces.Logger) {
	log.Info("Bot is ready", "user", r.User.String(), "guilds", len(r.Guilds))
	if err := s.UpdateGameStatus(0, "💠 Reiatsu | /reiatsu"); err != nil {
		log.Warn("ステータスの設定に失敗", "error", err)
	}
}
