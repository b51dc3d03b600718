package commands

import (
	"time"

	"reiatsu/interfaces"
	"reiatsu/spawner"

	"github.com/bwmarrin/discordgo"
)

// AppContext provides dependencies to commands.
type AppContext struct {
	Log       interfaces.Logger
	Store     interfaces.DataStore
	Spawner   *spawner.Spawner
	StartTime time.Time
}

// RegisterCommands initializes and returns all command handlers.
func RegisterCommands(appCtx *AppContext) (map[string]interfaces.CommandHandler, map[string]interfaces.CommandHandler, []*discordgo.ApplicationCommand) {
	commandHandlers := make(map[string]interfaces.CommandHandler)
	componentHandlers := make(map[string]interfaces.CommandHandler)
	registeredCommands := make([]*discordgo.ApplicationCommand, 0)

	// To add a new command, simply add it to this list.
	commands := []interfaces.CommandHandler{
		&ReiatsuCommand{Store: appCtx.Store, Log: appCtx.Log},
		&ClasseCommand{Spawner: appCtx.Spawner, Log: appCtx.Log},
		&SkillCommand{Store: appCtx.Store, Spawner: appCtx.Spawner, Log: appCtx.Log},
		&ReiatsuAdminCommand{Store: appCtx.Store, Spawner: appCtx.Spawner, Log: appCtx.Log},
		&PingCommand{StartTime: appCtx.StartTime, Store: appCtx.Store, Log: appCtx.Log},
	}

	for _, cmd := range commands {
		commandDef := cmd.GetCommandDef()
		commandHandlers[commandDef.Name] = cmd
		registeredCommands = append(registeredCommands, commandDef)

		for _, id := range cmd.GetComponentIDs() {
			componentHandlers[id] = cmd
		}
	}

	// ラッパーハンドラーを作成して、元のハンドラーをラップする
	for name, handler := range commandHandlers {
		commandHandlers[name] = &CommandUsageWrapper{
			CommandHandler: handler,
			Log:            appCtx.Log,
		}
	}

	return commandHandlers, componentHandlers, registeredCommands
}

// CommandUsageWrapper は、コマンドの実行をラップして使用状況と所要時間を記録します。
type CommandUsageWrapper struct {
	interfaces.CommandHandler
	Log interfaces.Logger
}

func (w *CommandUsageWrapper) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	start := time.Now()
	w.CommandHandler.Handle(s, i)

	var userID string
	if u := interactionUser(i); u != nil {
		userID = u.ID
	}
	w.Log.Debug("コマンドを実行しました",
		"command", w.CommandHandler.GetCommandDef().Name,
		"category", w.CommandHandler.GetCategory(),
		"guildID", i.GuildID,
		"userID", userID,
		"elapsed", time.Since(start),
	)
}
