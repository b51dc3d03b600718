package commands

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	colorInfo  = 0x5dade2
	colorOK    = 0x2ecc71
	colorError = 0xe74c3c
	colorGold  = 0xffd700
	colorGray  = 0x95a5a6
)

func sendEmbedResponse(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
	})
}

// sendEphemeral は実行者にだけ見えるメッセージを返します。
func sendEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}

func sendErrorResponse(s *discordgo.Session, i *discordgo.InteractionCreate, message string) error {
	return sendEphemeral(s, i, &discordgo.MessageEmbed{
		Title:       "❌ Erreur",
		Description: message,
		Color:       colorError,
	})
}

// interactionUser は DM でもサーバーでも実行者を返します。
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func subcommand(i *discordgo.InteractionCreate) (string, map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return "", nil
	}
	sub := data.Options[0]
	opts := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(sub.Options))
	for _, o := range sub.Options {
		opts[o.Name] = o
	}
	return sub.Name, opts
}

// formatDuration renders d as "2h 05min" (or "42s" under a minute).
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Round(time.Second)/time.Second))
	}
	d = d.Round(time.Minute)
	h := d / time.Hour
	m := (d - h*time.Hour) / time.Minute
	if h == 0 {
		return fmt.Sprintf("%dmin", m)
	}
	return fmt.Sprintf("%dh %02dmin", h, m)
}

func int64Ptr(i int64) *int64 {
	return &i
}

func floatPtr(f float64) *float64 {
	return &f
}
