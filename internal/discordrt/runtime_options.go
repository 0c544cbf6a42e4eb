package discordrt

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shaddrood-cmd/jack-bot/internal/puzzle"
)

// Options configures the discord runtime. Table and the ids come from the
// startup configuration; Sessions defaults to the in-memory store.
type Options struct {
	BotToken      string
	GuildID       string
	LogChannelID  string
	SelectCommand string
	SpecialID     string
	Table         *puzzle.Table
	Sessions      puzzle.Store
	Logger        *slog.Logger
}

func (o Options) normalize() (Options, error) {
	o.BotToken = strings.TrimSpace(o.BotToken)
	if o.BotToken == "" {
		return o, fmt.Errorf("missing discord.bot_token (set via --bot-token or JACK_DISCORD_BOT_TOKEN)")
	}
	o.GuildID = strings.TrimSpace(o.GuildID)
	if o.GuildID == "" {
		return o, fmt.Errorf("missing discord.guild_id (set via --guild-id or JACK_DISCORD_GUILD_ID)")
	}
	if _, err := strconv.ParseUint(o.GuildID, 10, 64); err != nil {
		return o, fmt.Errorf("discord.guild_id is invalid: %s", o.GuildID)
	}
	o.LogChannelID = strings.TrimSpace(o.LogChannelID)
	if o.LogChannelID == "0" {
		o.LogChannelID = ""
	}
	if o.LogChannelID != "" {
		if _, err := strconv.ParseUint(o.LogChannelID, 10, 64); err != nil {
			return o, fmt.Errorf("discord.log_channel_id is invalid: %s", o.LogChannelID)
		}
	}
	if o.Table == nil || o.Table.Len() == 0 {
		return o, fmt.Errorf("answer table is required")
	}
	if o.Sessions == nil {
		o.Sessions = puzzle.NewMemoryStore()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o, nil
}
