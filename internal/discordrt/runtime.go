// Package discordrt runs the Discord side of the bot: one gateway session,
// a DM handler that feeds the puzzle resolver, and the optional success
// announcements to a log channel.
package discordrt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/shaddrood-cmd/jack-bot/internal/puzzle"
	"github.com/shaddrood-cmd/jack-bot/internal/rolegrant"
)

const (
	msgGuildUnavailable = "⚠️ Serveur introuvable. Vérifie l'invitation du bot et JACK_DISCORD_GUILD_ID."
	msgNotAMember       = "❌ Tu dois être membre du serveur pour participer."
	msgInternalError    = "⚠️ Une erreur est survenue. Réessaie plus tard."
)

// Run opens the gateway session and blocks until ctx is done. Every failure
// past startup is logged and answered with templated text; nothing inside
// the message path terminates the process.
func Run(ctx context.Context, opts Options) error {
	opts, err := opts.normalize()
	if err != nil {
		return err
	}
	logger := opts.Logger

	dg, err := discordgo.New("Bot " + opts.BotToken)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMembers |
		discordgo.IntentDirectMessages |
		discordgo.IntentMessageContent

	granter := &guildGranter{session: dg, guildID: opts.GuildID, logger: logger}
	resolver, err := puzzle.NewResolver(puzzle.ResolverConfig{
		Table:         opts.Table,
		Sessions:      opts.Sessions,
		Granter:       granter,
		SelectCommand: opts.SelectCommand,
		SpecialID:     opts.SpecialID,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		botUser := ""
		if r.User != nil {
			botUser = r.User.Username
		}
		logger.Info("discord_ready",
			"bot_user", botUser,
			"guild_id", opts.GuildID,
			"puzzle_ids", strings.Join(opts.Table.IDs(), ","),
			"keywords", len(opts.Table.Keywords()),
		)
	})
	dg.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		handleMessage(ctx, logger, resolver, opts, s, m)
	})

	if err := dg.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	defer func() { _ = dg.Close() }()
	logger.Info("discord_start", "guild_id", opts.GuildID, "log_channel_enabled", opts.LogChannelID != "")

	<-ctx.Done()
	logger.Info("discord_stop", "reason", "context_canceled")
	return nil
}

func handleMessage(ctx context.Context, logger *slog.Logger, resolver *puzzle.Resolver, opts Options, s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}
	// DMs only: guild messages carry a guild id.
	if m.GuildID != "" {
		return
	}
	text := strings.TrimSpace(m.Content)
	if text == "" {
		return
	}

	correlationID := "dm_" + uuid.NewString()
	ctx = rolegrant.WithCorrelationID(ctx, correlationID)
	logger.Info("dm_received", "correlation_id", correlationID, "user_id", m.Author.ID, "text_len", len(text))
	logger.Debug("dm_normalized", "correlation_id", correlationID, "normalized", puzzle.Normalize(text))

	member, replyText := guildMember(ctx, logger, s, opts.GuildID, m.Author.ID)
	if replyText != "" {
		sendReply(logger, s, m.ChannelID, correlationID, replyText)
		return
	}

	displayName := memberDisplayName(member, m.Author)
	reply, err := resolver.HandleMessage(ctx, m.Author.ID, displayName, text)
	if err != nil {
		logger.Error("dm_resolve_error", "correlation_id", correlationID, "user_id", m.Author.ID, "error", err.Error())
		sendReply(logger, s, m.ChannelID, correlationID, msgInternalError)
		return
	}

	sendReply(logger, s, m.ChannelID, correlationID, reply.Text)

	if reply.Granted && opts.LogChannelID != "" {
		if _, err := s.ChannelMessageSend(opts.LogChannelID, announcementText(displayName, reply), discordgo.WithContext(ctx)); err != nil {
			logger.Warn("announce_send_error", "correlation_id", correlationID, "channel_id", opts.LogChannelID, "error", err.Error())
		}
	}
}

// guildMember resolves the sender inside the configured guild. A miss maps
// to user-facing text; the caller replies and stops.
func guildMember(ctx context.Context, logger *slog.Logger, s *discordgo.Session, guildID, userID string) (*discordgo.Member, string) {
	if _, err := s.State.Guild(guildID); err != nil {
		if _, err := s.Guild(guildID, discordgo.WithContext(ctx)); err != nil {
			logger.Warn("guild_fetch_error", "guild_id", guildID, "error", err.Error())
			return nil, msgGuildUnavailable
		}
	}
	if member, err := s.State.Member(guildID, userID); err == nil && member != nil {
		return member, ""
	}
	member, err := s.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		if isNotFoundError(err) {
			return nil, msgNotAMember
		}
		logger.Warn("member_fetch_error", "guild_id", guildID, "user_id", userID, "error", err.Error())
		return nil, msgInternalError
	}
	return member, ""
}

func memberDisplayName(member *discordgo.Member, author *discordgo.User) string {
	if member != nil && strings.TrimSpace(member.Nick) != "" {
		return member.Nick
	}
	if author != nil && strings.TrimSpace(author.GlobalName) != "" {
		return author.GlobalName
	}
	if author != nil {
		return author.Username
	}
	return ""
}

func announcementText(displayName string, reply puzzle.Reply) string {
	if reply.PuzzleID != "" {
		return fmt.Sprintf("🏆 %s a résolu l'énigme %s et obtenu le rôle **%s**.", displayName, reply.PuzzleID, reply.RoleName)
	}
	return fmt.Sprintf("🏆 %s a trouvé un mot-clé et obtenu le rôle **%s**.", displayName, reply.RoleName)
}

func sendReply(logger *slog.Logger, s *discordgo.Session, channelID, correlationID, text string) {
	if text == "" {
		return
	}
	if _, err := s.ChannelMessageSend(channelID, text); err != nil {
		// A lost notification after a successful grant is accepted; the
		// grant itself is never rolled back.
		logger.Warn("dm_reply_send_error", "correlation_id", correlationID, "channel_id", channelID, "error", err.Error())
	}
}
