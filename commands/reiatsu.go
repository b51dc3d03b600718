package commands

import (
	"fmt"
	"strings"

	"reiatsu/interfaces"
	"reiatsu/reiatsu"
	"reiatsu/storage"

	"github.com/bwmarrin/discordgo"
)

const (
	leaderboardSize      = 10
	leaderboardRefreshID = "reiatsu_classement_refresh"
)

// ReiatsuCommand handles /reiatsu profil and /reiatsu classement.
type ReiatsuCommand struct {
	Store interfaces.DataStore
	Log   interfaces.Logger
}

func (c *ReiatsuCommand) GetCommandDef() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "reiatsu",
		Description: "Consulte ton Reiatsu ou le classement.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "profil",
				Description: "Affiche le Reiatsu d'un joueur.",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionUser,
						Name:        "joueur",
						Description: "Le joueur à consulter (toi par défaut)",
						Required:    false,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "classement",
				Description: "Les joueurs avec le plus de Reiatsu.",
			},
		},
	}
}

func (c *ReiatsuCommand) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	name, opts := subcommand(i)
	switch name {
	case "profil":
		target := interactionUser(i)
		if o, ok := opts["joueur"]; ok {
			target = o.UserValue(s)
		}
		c.handleProfile(s, i, target)
	case "classement":
		c.handleLeaderboard(s, i)
	}
}

func (c *ReiatsuCommand) handleProfile(s *discordgo.Session, i *discordgo.InteractionCreate, target *discordgo.User) {
	p, err := c.Store.GetPlayer(target.ID)
	if err != nil {
		c.Log.Error("プロフィールの取得に失敗", "error", err, "userID", target.ID)
		sendErrorResponse(s, i, "Impossible de lire le profil pour le moment.")
		return
	}
	if p == nil {
		p = &storage.PlayerReiatsu{UserID: target.ID}
	}

	embed := profileEmbed(p)
	embed.Title = fmt.Sprintf("💠 Reiatsu de %s", target.Username)
	embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: target.AvatarURL("")}
	sendEmbedResponse(s, i, embed)
}

func profileEmbed(p *storage.PlayerReiatsu) *discordgo.MessageEmbed {
	class := reiatsu.ParseClass(p.Class)
	fields := []*discordgo.MessageEmbedField{
		{Name: "Reiatsu", Value: fmt.Sprintf("**%d**", p.Points), Inline: true},
		{Name: "Classe", Value: class.Label(), Inline: true},
	}
	if class == reiatsu.ClassTravailleur {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Bonus",
			Value:  fmt.Sprintf("%d/%d", p.BonusCounter, reiatsu.TravailleurEvery),
			Inline: true,
		})
	}
	if class.HasSkill() {
		state := "Inactive"
		switch {
		case p.DecoyMessageID != nil:
			state = "Illusion en place"
		case p.ActiveSkill:
			state = "Active"
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Compétence", Value: state, Inline: true})
	}
	return &discordgo.MessageEmbed{Color: colorInfo, Fields: fields}
}

func (c *ReiatsuCommand) handleLeaderboard(s *discordgo.Session, i *discordgo.InteractionCreate) {
	players, err := c.Store.GetLeaderboard(leaderboardSize)
	if err != nil {
		c.Log.Error("ランキングの取得に失敗", "error", err)
		sendErrorResponse(s, i, "Impossible de lire le classement pour le moment.")
		return
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: leaderboardResponse(players),
	}); err != nil {
		c.Log.Error("ランキングの送信に失敗", "error", err)
	}
}

// HandleComponent は classement の更新ボタンでメッセージを書き換えます。
func (c *ReiatsuCommand) HandleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.MessageComponentData().CustomID != leaderboardRefreshID {
		return
	}
	players, err := c.Store.GetLeaderboard(leaderboardSize)
	if err != nil {
		c.Log.Error("ランキングの取得に失敗", "error", err)
		sendErrorResponse(s, i, "Impossible de lire le classement pour le moment.")
		return
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: leaderboardResponse(players),
	}); err != nil {
		c.Log.Error("ランキングの更新に失敗", "error", err)
	}
}

func leaderboardResponse(players []storage.PlayerReiatsu) *discordgo.InteractionResponseData {
	embed := &discordgo.MessageEmbed{
		Title:       "🏆 Classement Reiatsu",
		Description: "Personne n'a encore absorbé de Reiatsu !",
		Color:       colorGray,
	}
	if len(players) > 0 {
		embed.Description = leaderboardText(players)
		embed.Color = colorGold
	}
	return &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Actualiser",
					Style:    discordgo.SecondaryButton,
					CustomID: leaderboardRefreshID,
					Emoji:    &discordgo.ComponentEmoji{Name: "🔄"},
				},
			}},
		},
	}
}

func leaderboardText(players []storage.PlayerReiatsu) string {
	var b strings.Builder
	for idx, p := range players {
		var medal string
		switch idx {
		case 0:
			medal = "🥇"
		case 1:
			medal = "🥈"
		case 2:
			medal = "🥉"
		default:
			medal = fmt.Sprintf("%2d.", idx+1)
		}
		fmt.Fprintf(&b, "%s <@%s> - **%d** Reiatsu\n", medal, p.UserID, p.Points)
	}
	return b.String()
}

func (c *ReiatsuCommand) GetComponentIDs() []string { return []string{leaderboardRefreshID} }
func (c *ReiatsuCommand) GetCategory() string       { return "Reiatsu" }
