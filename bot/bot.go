package bot

import (
	"context"
	"fmt"
	"time"

	"reiatsu/commands"
	"reiatsu/config"
	"reiatsu/handlers/events"
	"reiatsu/interfaces"
	"reiatsu/spawner"
	"reiatsu/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/robfig/cron/v3"
)

// Bot はDiscordボットのコアな状態とロジックを管理します。
type Bot struct {
	Session           *discordgo.Session
	cfg               *config.Config
	log               interfaces.Logger
	store             *storage.DBStore
	scheduler         *cron.Cron
	spawner           *spawner.Spawner
	commandHandlers   map[string]interfaces.CommandHandler
	componentHandlers map[string]interfaces.CommandHandler
	commandDefs       []*discordgo.ApplicationCommand
	startTime         time.Time
}

// New は新しいBotインスタンスを作成します。store の所有権は呼び出し側に残ります。
func New(cfg *config.Config, log interfaces.Logger, store *storage.DBStore) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsGuildMessageReactions

	sp := spawner.New(store, dg, log, spawner.Options{
		Emoji:          cfg.Spawner.Emoji,
		DefaultSpeed:   cfg.Spawner.DefaultSpeed,
		PostsPerSecond: cfg.Spawner.PostsPerSecond,
	})

	b := &Bot{
		Session: dg,
		cfg:     cfg,
		log:     log,
		store:   store,
		scheduler: cron.New(cron.WithChain(
			cron.Recover(cronLogger{log}),
			cron.SkipIfStillRunning(cronLogger{log}),
		)),
		spawner:   sp,
		startTime: time.Now(),
	}
	b.commandHandlers, b.componentHandlers, b.commandDefs = commands.RegisterCommands(&commands.AppContext{
		Log:       log,
		Store:     store,
		Spawner:   sp,
		StartTime: b.startTime,
	})
	return b, nil
}

// Spawner returns the spawner shared with the web API.
func (b *Bot) Spawner() *spawner.Spawner {
	return b.spawner
}

// Run はDiscordに接続し、ctx がキャンセルされるまでブロックします。
// main_instance が false の場合、出現の定期処理とリアクションの裁定は行いません。
func (b *Bot) Run(ctx context.Context) error {
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		events.OnReady(s, r, b.log)
	})
	b.Session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		events.OnInteractionCreate(s, i, b.commandHandlers, b.componentHandlers, b.log)
	})
	events.NewChannelHandler(b.log, b.store, b.spawner).Register(b.Session)

	mainInstance := b.cfg.Spawner.MainInstance
	if mainInstance {
		events.NewReactionHandler(b.log, b.spawner).Register(b.Session)
	}

	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	defer b.Session.Close()

	b.log.Info("Discord Botが起動しました。コマンドを登録します...", "commands", len(b.commandDefs))
	if _, err := b.Session.ApplicationCommandBulkOverwrite(b.Session.State.User.ID, "", b.commandDefs); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	if mainInstance {
		if err := b.scheduleTick(ctx); err != nil {
			return err
		}
		b.scheduler.Start()
		defer func() { <-b.scheduler.Stop().Done() }()
		b.log.Info("出現スケジューラーを開始しました", "tick", b.cfg.Spawner.Tick.String())
	} else {
		b.log.Warn("main_instance が無効のため、出現とリアクションの処理を行いません")
	}

	<-ctx.Done()
	b.log.Info("Botをシャットダウンします...")
	return nil
}

func (b *Bot) scheduleTick(ctx context.Context) error {
	tick := b.cfg.Spawner.Tick
	_, err := b.scheduler.AddFunc(fmt.Sprintf("@every %s", tick), func() {
		tickCtx, cancel := context.WithTimeout(ctx, tick)
		defer cancel()
		b.spawner.Tick(tickCtx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule spawn tick: %w", err)
	}
	return nil
}

// cronLogger adapts interfaces.Logger to cron.Logger.
type cronLogger struct {
	log interfaces.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
