package discordrt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/shaddrood-cmd/jack-bot/internal/rolegrant"
)

// guildGranter implements rolegrant.Granter against one guild. Platform
// failures never surface as errors: they are folded into the Outcome so the
// resolver can reply without inspecting SDK types.
type guildGranter struct {
	session *discordgo.Session
	guildID string
	logger  *slog.Logger
}

func (g *guildGranter) Grant(ctx context.Context, userID, roleID, reason string) (rolegrant.Result, error) {
	if g == nil || g.session == nil {
		return rolegrant.Result{}, fmt.Errorf("granter is not initialized")
	}
	if strings.TrimSpace(userID) == "" {
		return rolegrant.Result{}, fmt.Errorf("user_id is required")
	}
	if strings.TrimSpace(roleID) == "" {
		return rolegrant.Result{}, fmt.Errorf("role_id is required")
	}

	role := g.role(ctx, roleID)
	if role == nil {
		return rolegrant.Result{Outcome: rolegrant.RoleMissing}, nil
	}

	member := g.member(ctx, userID)
	if member != nil {
		for _, held := range member.Roles {
			if held == roleID {
				return rolegrant.Result{Outcome: rolegrant.AlreadyHeld, RoleName: role.Name}, nil
			}
		}
	}

	err := g.session.GuildMemberRoleAdd(g.guildID, userID, roleID,
		discordgo.WithContext(ctx),
		discordgo.WithAuditLogReason(auditReason(ctx, reason)),
	)
	if err != nil {
		outcome := outcomeFromPlatformError(err)
		g.logger.Error("role_add_error", "guild_id", g.guildID, "user_id", userID, "role_id", roleID, "outcome", outcome.String(), "error", err.Error())
		return rolegrant.Result{Outcome: outcome, RoleName: role.Name}, nil
	}
	return rolegrant.Result{Outcome: rolegrant.Granted, RoleName: role.Name}, nil
}

// Holds reports whether the member already carries the role. Lookup
// failures are reported as not held; the caller falls back to its
// default reply.
func (g *guildGranter) Holds(ctx context.Context, userID, roleID string) (bool, string, error) {
	if g == nil || g.session == nil {
		return false, "", fmt.Errorf("granter is not initialized")
	}
	if strings.TrimSpace(userID) == "" {
		return false, "", fmt.Errorf("user_id is required")
	}
	if strings.TrimSpace(roleID) == "" {
		return false, "", fmt.Errorf("role_id is required")
	}

	role := g.role(ctx, roleID)
	if role == nil {
		return false, "", nil
	}
	member := g.member(ctx, userID)
	if member == nil {
		return false, role.Name, nil
	}
	for _, held := range member.Roles {
		if held == roleID {
			return true, role.Name, nil
		}
	}
	return false, role.Name, nil
}

// auditReason stamps the per-message correlation id into the audit log
// reason when one is attached to the context.
func auditReason(ctx context.Context, reason string) string {
	if id := rolegrant.CorrelationID(ctx); id != "" {
		return reason + " [" + id + "]"
	}
	return reason
}

func (g *guildGranter) role(ctx context.Context, roleID string) *discordgo.Role {
	if role, err := g.session.State.Role(g.guildID, roleID); err == nil && role != nil {
		return role
	}
	roles, err := g.session.GuildRoles(g.guildID, discordgo.WithContext(ctx))
	if err != nil {
		g.logger.Warn("guild_roles_fetch_error", "guild_id", g.guildID, "error", err.Error())
		return nil
	}
	for _, role := range roles {
		if role.ID == roleID {
			return role
		}
	}
	return nil
}

func (g *guildGranter) member(ctx context.Context, userID string) *discordgo.Member {
	if member, err := g.session.State.Member(g.guildID, userID); err == nil && member != nil {
		return member
	}
	member, err := g.session.GuildMember(g.guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		g.logger.Warn("guild_member_fetch_error", "guild_id", g.guildID, "user_id", userID, "error", err.Error())
		return nil
	}
	return member
}

// outcomeFromPlatformError maps an SDK error from the role-add call: HTTP 403
// (Manage Roles missing or role hierarchy) is Forbidden, anything else is a
// transient platform failure.
func outcomeFromPlatformError(err error) rolegrant.Outcome {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusForbidden {
		return rolegrant.Forbidden
	}
	return rolegrant.TransientError
}

func isNotFoundError(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}
