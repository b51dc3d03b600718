package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reiatsu/interfaces"
	"reiatsu/reiatsu"
	"reiatsu/spawner"
	"reiatsu/storage"

	"github.com/bwmarrin/discordgo"
)

// ReiatsuAdminCommand は /reiatsuadmin で出現設定を管理します。サーバー管理権限が必要です。
type ReiatsuAdminCommand struct {
	Store   interfaces.DataStore
	Spawner *spawner.Spawner
	Log     interfaces.Logger
}

func (c *ReiatsuAdminCommand) GetCommandDef() *discordgo.ApplicationCommand {
	speedChoices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(reiatsu.Speeds()))
	for _, sp := range reiatsu.Speeds() {
		speedChoices = append(speedChoices, &discordgo.ApplicationCommandOptionChoice{
			Name:  fmt.Sprintf("%s (%s - %s)", sp.Label, formatDuration(time.Duration(sp.Min)*time.Second), formatDuration(time.Duration(sp.Max)*time.Second)),
			Value: sp.Key,
		})
	}

	return &discordgo.ApplicationCommand{
		Name:                     "reiatsuadmin",
		Description:              "Configuration des apparitions de Reiatsu.",
		DefaultMemberPermissions: int64Ptr(discordgo.PermissionManageGuild),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "set",
				Description: "Définit le salon où le Reiatsu apparaît.",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:         discordgo.ApplicationCommandOptionChannel,
						Name:         "salon",
						Description:  "Le salon d'apparition",
						Required:     true,
						ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "unset",
				Description: "Désactive les apparitions sur ce serveur.",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "vitesse",
				Description: "Change la vitesse d'apparition.",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "vitesse",
						Description: "La nouvelle vitesse",
						Required:    true,
						Choices:     speedChoices,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "delai",
				Description: "Impose un délai fixe entre deux apparitions (0 pour revenir à l'aléatoire).",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "secondes",
						Description: "Délai en secondes",
						Required:    true,
						MinValue:    floatPtr(0),
						MaxValue:    7 * 24 * 3600,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "spawn",
				Description: "Fait apparaître un Reiatsu immédiatement.",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "status",
				Description: "Affiche l'état des apparitions.",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "reset",
				Description: "Débloque un Reiatsu resté coincé.",
			},
		},
	}
}

func (c *ReiatsuAdminCommand) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		sendErrorResponse(s, i, "Cette commande s'utilise sur un serveur.")
		return
	}

	name, opts := subcommand(i)
	var err error
	switch name {
	case "set":
		ch := opts["salon"].ChannelValue(s)
		if err = c.Spawner.SetChannel(i.GuildID, ch.ID); err == nil {
			c.reply(s, i, fmt.Sprintf("Le Reiatsu apparaîtra dans <#%s>.", ch.ID))
		}
	case "unset":
		if err = c.Spawner.Unset(i.GuildID); err == nil {
			c.reply(s, i, "Les apparitions sont désactivées sur ce serveur.")
		}
	case "vitesse":
		key := opts["vitesse"].StringValue()
		var delay int
		if delay, err = c.Spawner.SetSpeed(i.GuildID, key); err == nil {
			c.reply(s, i, fmt.Sprintf("Vitesse **%s**. Prochain délai : %s.", reiatsu.LookupSpeed(key).Label, formatDuration(time.Duration(delay)*time.Second)))
		}
	case "delai":
		secs := int(opts["secondes"].IntValue())
		if err = c.Spawner.SetFixedDelay(i.GuildID, secs); err == nil {
			if secs == 0 {
				c.reply(s, i, "Délai fixe retiré, retour au délai aléatoire.")
			} else {
				c.reply(s, i, fmt.Sprintf("Délai fixe : %s.", formatDuration(time.Duration(secs)*time.Second)))
			}
		}
	case "spawn":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = c.Spawner.ForceSpawn(ctx, i.GuildID)
		cancel()
		if err == nil {
			c.reply(s, i, "Un Reiatsu vient d'apparaître.")
		}
	case "status":
		err = c.handleStatus(s, i)
	case "reset":
		if err = c.Spawner.Reset(i.GuildID); err == nil {
			c.reply(s, i, "L'état du Reiatsu a été réinitialisé.")
		}
	}

	switch {
	case err == nil:
	case errors.Is(err, spawner.ErrNoChannel):
		sendErrorResponse(s, i, "Aucun salon configuré. Utilise `/reiatsuadmin set` d'abord.")
	case errors.Is(err, spawner.ErrSpawnLive):
		sendErrorResponse(s, i, "Un Reiatsu est déjà présent sur ce serveur.")
	default:
		c.Log.Error("管理コマンドの実行に失敗", "error", err, "subcommand", name, "guildID", i.GuildID)
		sendErrorResponse(s, i, "Une erreur est survenue.")
	}
}

func (c *ReiatsuAdminCommand) reply(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) {
	sendEphemeral(s, i, &discordgo.MessageEmbed{Description: "✅ " + msg, Color: colorOK})
}

func (c *ReiatsuAdminCommand) handleStatus(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	cfg, err := c.Store.GetGuildSpawn(i.GuildID)
	if err != nil {
		return err
	}
	if cfg == nil {
		return spawner.ErrNoChannel
	}
	// 応答済みのインタラクションにはエラーを返せないので記録だけする
	if err := sendEphemeral(s, i, statusEmbed(cfg, time.Now())); err != nil {
		c.Log.Error("ステータスの送信に失敗", "error", err, "guildID", i.GuildID)
	}
	return nil
}

func statusEmbed(cfg *storage.GuildSpawnConfig, now time.Time) *discordgo.MessageEmbed {
	st := spawner.StatusOf(cfg, now)

	state := "En attente"
	switch {
	case st.Live:
		state = "💠 Reiatsu présent"
	case st.NextSpawn != nil:
		state = fmt.Sprintf("Prochain dans %s", formatDuration(st.NextSpawn.Sub(now)))
	case st.LastSpawn == nil:
		state = "Au prochain passage"
	}

	delay := "Non tiré"
	if st.Delay > 0 {
		delay = formatDuration(time.Duration(st.Delay) * time.Second)
		if st.FixedDelay {
			delay += " (fixe)"
		}
	}

	channel := "Aucun"
	if st.ChannelID != "" {
		channel = fmt.Sprintf("<#%s>", st.ChannelID)
	}

	return &discordgo.MessageEmbed{
		Title: "📊 État du Reiatsu",
		Color: colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Salon", Value: channel, Inline: true},
			{Name: "Vitesse", Value: reiatsu.LookupSpeed(st.Speed).Label, Inline: true},
			{Name: "Délai", Value: delay, Inline: true},
			{Name: "État", Value: state, Inline: false},
		},
	}
}

func (c *ReiatsuAdminCommand) HandleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {}
func (c *ReiatsuAdminCommand) GetComponentIDs() []string                                            { return []string{} }
func (c *ReiatsuAdminCommand) GetCategory() string                                                  { return "Administration" }
