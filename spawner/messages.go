package spawner

import (
	"fmt"
	"time"

	"reiatsu/reiatsu"

	"github.com/bwmarrin/discordgo"
)

const (
	colorSpawn = 0x5dade2
	colorSuper = 0xf1c40f
	colorClaim = 0x2ecc71
	colorEmpty = 0x95a5a6
	colorDecoy = 0x8e44ad
)

func spawnEmbed(emoji string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s Un Reiatsu est apparu !", emoji),
		Description: fmt.Sprintf("Clique sur %s pour l'absorber avant les autres.", emoji),
		Color:       colorSpawn,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

func decoyEmbed(emoji string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s Un Reiatsu instable flotte dans l'air…", emoji),
		Description: fmt.Sprintf("Clique sur %s pour tenter de l'absorber.", emoji),
		Color:       colorSpawn,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

func claimEmbed(userID string, class reiatsu.Class, res reiatsu.Result, total int64) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Footer: &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Total : %d Reiatsu", total)},
	}
	switch {
	case res.Super:
		embed.Title = "🌟 Super Reiatsu !"
		embed.Description = fmt.Sprintf("<@%s> a absorbé un **Super Reiatsu** et gagne **%d** Reiatsu !", userID, res.Gain)
		embed.Color = colorSuper
	case res.Gain == 0:
		embed.Title = "🎲 Pas de chance…"
		embed.Description = fmt.Sprintf("<@%s> a absorbé le Reiatsu mais le pari est perdu : **0** Reiatsu.", userID)
		embed.Color = colorEmpty
	default:
		embed.Title = "💠 Reiatsu absorbé"
		embed.Description = fmt.Sprintf("<@%s> a absorbé le Reiatsu et gagne **%d** Reiatsu.", userID, res.Gain)
		embed.Color = colorClaim
		if class == reiatsu.ClassTravailleur && res.Gain == reiatsu.TravailleurBoost {
			embed.Description += "\nLe travail paie : bonus de Travailleur !"
		}
	}
	return embed
}

func decoyClaimEmbed(clickerID, ownerID string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🎭 C'était une illusion !",
		Description: fmt.Sprintf("<@%s> s'est fait piéger. <@%s> récupère **%d** Reiatsu.", clickerID, ownerID, reiatsu.DecoyGain),
		Color:       colorDecoy,
	}
}
