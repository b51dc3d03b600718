package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"reiatsu/interfaces"
	"reiatsu/reiatsu"
	"reiatsu/spawner"
	"reiatsu/storage"

	"github.com/bwmarrin/discordgo"
)

var errSameClass = errors.New("class already selected")

// cooldownError は待ち時間が残っていることを表します。
type cooldownError struct {
	remaining time.Duration
}

func (e *cooldownError) Error() string {
	return fmt.Sprintf("cooldown: %s remaining", e.remaining)
}

// changeClass applies a class selection to p. The first selection has no cooldown.
func changeClass(p *storage.PlayerReiatsu, class reiatsu.Class, now time.Time) error {
	if reiatsu.ParseClass(p.Class) == class {
		return errSameClass
	}
	if p.LastClassChange != nil {
		if left := p.LastClassChange.Add(reiatsu.ClassChangeCooldown).Sub(now); left > 0 {
			return &cooldownError{remaining: left}
		}
	}

	p.Class = class.Key()
	p.BonusCounter = 0
	p.ActiveSkill = false
	p.SkillGuildID = nil
	p.LastClassChange = &now
	return nil
}

// ClasseCommand handles /classe.
type ClasseCommand struct {
	Spawner *spawner.Spawner
	Log     interfaces.Logger
}

func (c *ClasseCommand) GetCommandDef() *discordgo.ApplicationCommand {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(reiatsu.Classes()))
	for _, class := range reiatsu.Classes() {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: class.Label(), Value: class.Key()})
	}

	return &discordgo.ApplicationCommand{
		Name:        "classe",
		Description: "Choisis ta classe de Reiatsu.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "choisir",
				Description: "Change de classe (une fois toutes les 24h).",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "classe",
						Description: "La nouvelle classe",
						Required:    true,
						Choices:     choices,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "liste",
				Description: "Décrit chaque classe.",
			},
		},
	}
}

func (c *ClasseCommand) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	name, opts := subcommand(i)
	switch name {
	case "choisir":
		c.handleChoose(s, i, opts["classe"].StringValue())
	case "liste":
		sendEphemeral(s, i, &discordgo.MessageEmbed{
			Title:       "📜 Classes",
			Description: classListText(),
			Color:       colorInfo,
		})
	}
}

func (c *ClasseCommand) handleChoose(s *discordgo.Session, i *discordgo.InteractionCreate, key string) {
	class := reiatsu.ParseClass(key)
	if class == reiatsu.ClassNone {
		sendErrorResponse(s, i, "Classe inconnue.")
		return
	}

	user := interactionUser(i)
	_, err := c.Spawner.UpdatePlayer(user.ID, func(p *storage.PlayerReiatsu) error {
		return changeClass(p, class, time.Now())
	})

	var cd *cooldownError
	switch {
	case errors.Is(err, errSameClass):
		sendErrorResponse(s, i, fmt.Sprintf("Tu es déjà **%s**.", class.Label()))
	case errors.As(err, &cd):
		sendErrorResponse(s, i, fmt.Sprintf("Tu pourras changer de classe dans **%s**.", formatDuration(cd.remaining)))
	case err != nil:
		c.Log.Error("クラスの変更に失敗", "error", err, "userID", user.ID)
		sendErrorResponse(s, i, "Impossible de changer de classe pour le moment.")
	default:
		c.Log.Info("クラスを変更しました", "userID", user.ID, "class", class.Key())
		sendEmbedResponse(s, i, &discordgo.MessageEmbed{
			Title:       "✅ Nouvelle classe",
			Description: fmt.Sprintf("<@%s> est maintenant **%s**.\n%s", user.ID, class.Label(), class.Description()),
			Color:       colorOK,
		})
	}
}

func classListText() string {
	var b strings.Builder
	for _, class := range reiatsu.Classes() {
		fmt.Fprintf(&b, "**%s** : %s\n", class.Label(), class.Description())
	}
	return b.String()
}

func (c *ClasseCommand) HandleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {}
func (c *ClasseCommand) GetComponentIDs() []string                                            { return []string{} }
func (c *ClasseCommand) GetCategory() string                                                  { return "Reiatsu" }
