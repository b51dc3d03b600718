package commands

import (
	"fmt"
	"time"

	"reiatsu/interfaces"

	"github.com/bwmarrin/discordgo"
)

type PingCommand struct {
	StartTime time.Time
	Store     interfaces.DataStore
	Log       interfaces.Logger
}

func (c *PingCommand) GetCommandDef() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "ping",
		Description: "Mesure la latence du bot et de la base de données.",
	}
}

func (c *PingCommand) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	// 1. API応答時間を測定するため、最初のメッセージを送信
	apiStart := time.Now()
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Mesure en cours...",
		},
	})
	apiLatency := time.Since(apiStart)
	if err != nil {
		c.Log.Error("pingコマンドの初期応答に失敗", "error", err)
		return
	}

	// 2. データベースの応答時間を測定
	dbStart := time.Now()
	dbErr := c.Store.PingDB()
	dbLatency := time.Since(dbStart)
	dbStatus := "✅ OK"
	if dbErr != nil {
		dbStatus = "❌ Erreur"
		dbLatency = 0
	}

	gatewayLatency := s.HeartbeatLatency()

	embed := &discordgo.MessageEmbed{
		Title: "🏓 Pong!",
		Color: latencyColor(gatewayLatency, apiLatency, dbErr != nil),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Gateway", Value: fmt.Sprintf("```%s```", gatewayLatency.String()), Inline: true},
			{Name: "API", Value: fmt.Sprintf("```%s```", apiLatency.String()), Inline: true},
			{Name: "Base de données", Value: fmt.Sprintf("```%s (%s)```", dbStatus, dbLatency.String()), Inline: true},
			{Name: "En ligne depuis", Value: fmt.Sprintf("```%s```", formatUptime(time.Since(c.StartTime))), Inline: false},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}

	// 最初に送信したメッセージを編集
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &[]string{""}[0],
		Embeds:  &[]*discordgo.MessageEmbed{embed},
	}); err != nil {
		c.Log.Warn("pingの結果の送信に失敗", "error", err)
	}
}

func latencyColor(gateway, api time.Duration, dbFailed bool) int {
	switch {
	case dbFailed || gateway.Milliseconds() > 400 || api.Milliseconds() > 600:
		return 0xf04747 // Red
	case gateway.Milliseconds() > 150 || api.Milliseconds() > 300:
		return 0xfaa61a // Yellow
	default:
		return 0x43b581 // Green
	}
}

// 稼働時間を「Xj Yh Zmin」の形式に変換する
func formatUptime(d time.Duration) string {
	d = d.Round(time.Minute)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	return fmt.Sprintf("%dj %dh %dmin", days, h, m)
}

func (c *PingCommand) HandleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {}
func (c *PingCommand) GetComponentIDs() []string                                            { return []string{} }
func (c *PingCommand) GetCategory() string                                                  { return "Utilitaire" }
