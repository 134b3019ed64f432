// Command alphasrv runs the alphacore server: the TCP game listener, the
// HTTP status/worldmap surface, and the backup-mode toggle, wired from a
// TOML config file via cobra subcommands.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oriumgames/alphacore/internal/config"
	"github.com/oriumgames/alphacore/internal/populate"
	"github.com/oriumgames/alphacore/internal/server"
	"github.com/oriumgames/alphacore/internal/status"
	"github.com/oriumgames/alphacore/internal/world"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "alphasrv",
		Short: "alphacore game server",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "alphacore.toml", "path to config file")
	root.AddCommand(serveCmd(), backupCmd())

	if err := root.Execute(); err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the game and status servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			log := logrus.NewEntry(logrus.StandardLogger())
			season := seasonFor(cfg.World.Season)

			store, err := world.NewStore(cfg.World.Folder, cfg.World.Seed,
				world.WithPopulators(populate.Flatland{}, populate.Ore{}),
				world.WithSeason(season),
				world.WithSeasonName(cfg.World.Season),
			)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go store.Run(ctx)

			if cfg.Status.Enabled {
				go func() {
					h := status.NewHandler(store, time.Now())
					color.Green("status listening on %s", cfg.Status.ListenAddr)
					if err := http.ListenAndServe(cfg.Status.ListenAddr, h); err != nil {
						log.WithError(err).Error("status server stopped")
					}
				}()
			}

			srv := server.New(cfg.Server.ListenAddr, store, log)
			color.Green("game server listening on %s", cfg.Server.ListenAddr)
			return srv.Serve(ctx)
		},
	}
}

func backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup <folder>",
		Short: "toggle save-off for a consistent external backup, then save-on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			store, err := world.NewStore(cfg.World.Folder, cfg.World.Seed)
			if err != nil {
				return err
			}

			store.SaveOff()
			color.Yellow("saving disabled for %s; external backup tooling may now read %s", cfg.World.Folder, args[0])
			defer func() {
				store.SaveOn()
				color.Green("saving re-enabled")
			}()
			return nil
		},
	}
}

func seasonFor(name string) world.Season {
	switch name {
	case "snow":
		return populate.SnowSeason{}
	default:
		return populate.NullSeason{}
	}
}
