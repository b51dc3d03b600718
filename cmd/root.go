package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"reiatsu/bot"
	"reiatsu/config"
	"reiatsu/logger"
	"reiatsu/servers"
	"reiatsu/spawner"
	"reiatsu/storage"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewRootCmd builds the reiatsu command tree.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "reiatsu",
		Short: "Discord bot that spawns Reiatsu for players to absorb",
		Long: `reiatsu runs the Discord bot: it posts Reiatsu spawns in configured channels,
arbitrates who claims them and keeps the player totals.

Configuration comes from config.yaml, .env and REIATSU_* environment variables.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), cfgFile)
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml)")

	root.AddCommand(newMigrateCmd(&cfgFile), newStatusCmd(&cfgFile))
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runBot(ctx context.Context, cfgFile string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	log := logger.Init(logger.Options{File: cfg.Log.File, Level: cfg.Log.Level})

	store, err := storage.NewDBStore(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	b, err := bot.New(cfg, log, store)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.Run(gctx) })
	if cfg.Web.Enabled {
		ws := servers.NewWebServer(log, cfg, store, b.Spawner())
		g.Go(func() error { return ws.Run(gctx) })
	}
	return g.Wait()
}

func newMigrateCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database tables and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadDatabaseConfig(*cfgFile)
			if err != nil {
				return err
			}
			store, err := storage.NewDBStore(cfg.Database.Driver, cfg.Database.DSN)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer store.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", store.Driver())
			return nil
		},
	}
}

func newStatusCmd(cfgFile *string) *cobra.Command {
	var guildID string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the persisted spawn state of one or all guilds",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadDatabaseConfig(*cfgFile)
			if err != nil {
				return err
			}
			store, err := storage.NewDBStore(cfg.Database.Driver, cfg.Database.DSN)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer store.Close()

			var rows []storage.GuildSpawnConfig
			if guildID != "" {
				row, err := store.GetGuildSpawn(guildID)
				if err != nil {
					return err
				}
				if row == nil {
					return fmt.Errorf("guild %s: %w", guildID, spawner.ErrNoChannel)
				}
				rows = append(rows, *row)
			} else if rows, err = store.ListGuildSpawns(); err != nil {
				return err
			}
			return printStatus(cmd.OutOrStdout(), rows, time.Now())
		},
	}
	cmd.Flags().StringVar(&guildID, "guild", "", "guild id (all configured guilds when empty)")
	return cmd
}

func printStatus(w io.Writer, rows []storage.GuildSpawnConfig, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GUILD\tCHANNEL\tSPEED\tSTATE\tDELAY\tNEXT")
	for i := range rows {
		st := spawner.StatusOf(&rows[i], now)

		state := "waiting"
		if st.Live {
			state = "live " + st.MessageID
		}
		delay := "-"
		if st.Delay > 0 {
			delay = (time.Duration(st.Delay) * time.Second).String()
			if st.FixedDelay {
				delay += " (fixed)"
			}
		}
		next := "-"
		switch {
		case st.NextSpawn != nil:
			next = st.NextSpawn.Sub(now).Round(time.Second).String()
		case !st.Live && st.LastSpawn == nil:
			next = "next tick"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", st.GuildID, st.ChannelID, st.Speed, state, delay, next)
	}
	return tw.Flush()
}
