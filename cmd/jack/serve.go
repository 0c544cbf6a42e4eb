package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shaddrood-cmd/jack-bot/internal/discordrt"
	"github.com/shaddrood-cmd/jack-bot/internal/healthcheck"
	"github.com/shaddrood-cmd/jack-bot/internal/logutil"
	"github.com/shaddrood-cmd/jack-bot/internal/puzzle"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Connect to Discord and answer puzzle DMs",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			table, err := puzzle.BuildTable(puzzle.TableOptions{
				Manual:         manualPuzzles,
				ManualKeywords: manualKeywords,
				PuzzlesJSON:    viper.GetString("puzzles.json"),
				KeywordsJSON:   viper.GetString("keywords.json"),
				FilePath:       flagOrViperString(cmd, "puzzles-file", "puzzles.file"),
			})
			if err != nil {
				logger.Error("config_error", "error", err.Error())
				return err
			}
			logger.Info("answer_table_loaded", "puzzles", len(table.IDs()), "keywords", len(table.Keywords()))

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if listen := healthcheck.NormalizeListen(healthListen()); listen != "" {
				healthServer, err := healthcheck.StartServer(ctx, logger, listen, "discord")
				if err != nil {
					logger.Warn("health_server_start_error", "addr", listen, "error", err.Error())
				} else {
					defer func() {
						shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
						_ = healthServer.Shutdown(shutdownCtx)
						cancel()
					}()
				}
			}

			if err := discordrt.Run(ctx, discordrt.Options{
				BotToken:      flagOrViperString(cmd, "bot-token", "discord.bot_token"),
				GuildID:       flagOrViperString(cmd, "guild-id", "discord.guild_id"),
				LogChannelID:  flagOrViperString(cmd, "log-channel-id", "discord.log_channel_id"),
				SelectCommand: viper.GetString("puzzles.select_command"),
				SpecialID:     viper.GetString("puzzles.special_id"),
				Table:         table,
				Sessions:      puzzle.NewMemoryStore(),
				Logger:        logger,
			}); err != nil {
				logger.Error("config_error", "error", err.Error())
				return err
			}
			return nil
		},
	}

	cmd.Flags().String("bot-token", "", "Discord bot token.")
	cmd.Flags().String("guild-id", "", "Target server (guild) id.")
	cmd.Flags().String("log-channel-id", "", "Channel id for success announcements (empty disables).")
	cmd.Flags().String("puzzles-file", "", "YAML answer-table file (optional).")

	return cmd
}

// healthListen prefers the hosting platform's PORT variable unless the
// listen address was configured explicitly.
func healthListen() string {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" && strings.TrimSpace(os.Getenv("JACK_HEALTH_LISTEN")) == "" {
		return port
	}
	return viper.GetString("health.listen")
}
