package events

import (
	"strings"

	"reiatsu/interfaces"

	"github.com/bwmarrin/discordgo"
)

// OnInteractionCreate は、すべてのインタラクションを処理する中央ハブです。
func OnInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate, commandHandlers, componentHandlers map[string]interfaces.CommandHandler, log interfaces.Logger) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		name := i.ApplicationCommandData().Name
		if h, ok := commandHandlers[name]; ok {
			h.Handle(s, i)
		} else {
			log.Warn("Unknown command received", "command", name)
		}
	case discordgo.InteractionMessageComponent:
		customID := i.MessageComponentData().CustomID
		if h := findComponentHandler(componentHandlers, customID); h != nil {
			h.HandleComponent(s, i)
		} else {
			log.Warn("Unknown component interaction received", "customID", customID)
		}
	}
}

// findComponentHandler は完全一致、次にプレフィックス一致でハンドラーを探します。
func findComponentHandler(handlers map[string]interfaces.CommandHandler, customID string) interfaces.CommandHandler {
	if h, ok := handlers[customID]; ok {
		return h
	}
	for prefix, h := range handlers {
		if strings.HasPrefix(customID, prefix) {
			return h
		}
	}
	return nil
}
