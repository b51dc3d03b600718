package commands

import (
	"errors"
	"fmt"
	"time"

	"reiatsu/interfaces"
	"reiatsu/reiatsu"
	"reiatsu/spawner"
	"reiatsu/storage"

	"github.com/bwmarrin/discordgo"
)

var (
	errNoSkill     = errors.New("class has no skill")
	errSkillActive = errors.New("skill already active")
)

// armSkill arms the class skill of p in guildID.
func armSkill(p *storage.PlayerReiatsu, guildID string, now time.Time) error {
	class := reiatsu.ParseClass(p.Class)
	if !class.HasSkill() {
		return errNoSkill
	}
	if p.ActiveSkill || p.DecoyMessageID != nil {
		return errSkillActive
	}
	if p.LastSkillAt != nil {
		if left := p.LastSkillAt.Add(class.SkillCooldown()).Sub(now); left > 0 {
			return &cooldownError{remaining: left}
		}
	}

	p.ActiveSkill = true
	p.SkillGuildID = &guildID
	p.LastSkillAt = &now
	return nil
}

// SkillCommand handles /skill.
type SkillCommand struct {
	Store   interfaces.DataStore
	Spawner *spawner.Spawner
	Log     interfaces.Logger
}

func (c *SkillCommand) GetCommandDef() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "skill",
		Description: "Active la compétence de ta classe sur ce serveur.",
	}
}

func (c *SkillCommand) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		sendErrorResponse(s, i, "Cette commande s'utilise sur un serveur.")
		return
	}

	cfg, err := c.Store.GetGuildSpawn(i.GuildID)
	if err != nil {
		c.Log.Error("出現設定の取得に失敗", "error", err, "guildID", i.GuildID)
		sendErrorResponse(s, i, "Impossible d'activer la compétence pour le moment.")
		return
	}
	if cfg == nil || cfg.ChannelID == "" {
		sendErrorResponse(s, i, "Aucun salon de Reiatsu n'est configuré sur ce serveur.")
		return
	}

	user := interactionUser(i)
	_, err = c.Spawner.UpdatePlayer(user.ID, func(p *storage.PlayerReiatsu) error {
		return armSkill(p, i.GuildID, time.Now())
	})

	var cd *cooldownError
	switch {
	case errors.Is(err, errNoSkill):
		sendErrorResponse(s, i, "Ta classe n'a pas de compétence à activer.")
	case errors.Is(err, errSkillActive):
		sendErrorResponse(s, i, "Ta compétence est déjà active.")
	case errors.As(err, &cd):
		sendErrorResponse(s, i, fmt.Sprintf("Compétence disponible dans **%s**.", formatDuration(cd.remaining)))
	case err != nil:
		c.Log.Error("スキルの発動に失敗", "error", err, "userID", user.ID)
		sendErrorResponse(s, i, "Impossible d'activer la compétence pour le moment.")
	default:
		c.Log.Info("スキルを発動しました", "userID", user.ID, "guildID", i.GuildID)
		sendEphemeral(s, i, &discordgo.MessageEmbed{
			Title:       "🎭 Illusion préparée",
			Description: fmt.Sprintf("Un faux Reiatsu apparaîtra bientôt dans <#%s>. Celui qui le touchera te rapportera %d Reiatsu.", cfg.ChannelID, reiatsu.DecoyGain),
			Color:       colorOK,
		})
	}
}

func (c *SkillCommand) HandleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {}
func (c *SkillCommand) GetComponentIDs() []string                                            { return []string{} }
func (c *SkillCommand) GetCategory() string                                                  { return "Reiatsu" }
