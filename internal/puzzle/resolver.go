package puzzle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shaddrood-cmd/jack-bot/internal/rolegrant"
)

const DefaultSelectCommand = "!enigme"

// Reply is the resolver's answer to one inbound DM. Text always carries the
// user-visible message; Granted marks a fresh role grant and drives the
// optional log-channel announcement.
type Reply struct {
	Text     string
	Granted  bool
	PuzzleID string
	RoleID   string
	RoleName string
}

type ResolverConfig struct {
	Table         *Table
	Sessions      Store
	Granter       rolegrant.Granter
	SelectCommand string
	SpecialID     string
	Logger        *slog.Logger
}

// Resolver is the per-user state machine: Idle until a puzzle is selected,
// AwaitingAnswer until the answer matches, Idle again once the role is held.
// It is the sole mutator of the session store.
type Resolver struct {
	table     *Table
	sessions  Store
	granter   rolegrant.Granter
	selectCmd string
	specialID string
	logger    *slog.Logger
}

func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	if cfg.Table == nil {
		return nil, fmt.Errorf("table is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if cfg.Granter == nil {
		return nil, fmt.Errorf("granter is required")
	}
	selectCmd := Normalize(cfg.SelectCommand)
	if selectCmd == "" {
		selectCmd = DefaultSelectCommand
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		table:     cfg.Table,
		sessions:  cfg.Sessions,
		granter:   cfg.Granter,
		selectCmd: selectCmd,
		specialID: Normalize(cfg.SpecialID),
		logger:    logger,
	}, nil
}

// HandleMessage resolves one normalized DM: a select command picks a puzzle,
// anything else is an answer submission. The returned error is reserved for
// collaborator misuse; every expected failure mode is a Reply.
func (r *Resolver) HandleMessage(ctx context.Context, userID, displayName, rawText string) (Reply, error) {
	if r == nil {
		return Reply{}, fmt.Errorf("resolver is not initialized")
	}
	if strings.TrimSpace(userID) == "" {
		return Reply{}, fmt.Errorf("user_id is required")
	}

	text := Normalize(rawText)
	if word, rest, ok := splitCommand(text); ok && word == r.selectCmd {
		return r.selectPuzzle(userID, rest), nil
	}
	return r.submitAnswer(ctx, userID, displayName, text)
}

func (r *Resolver) selectPuzzle(userID, requestedID string) Reply {
	if requestedID == "" {
		return Reply{Text: replyUsage(r.selectCmd)}
	}
	def, ok := r.table.Puzzle(requestedID)
	if !ok {
		// Prior session, if any, stays untouched.
		return Reply{Text: replyUnknownPuzzle(requestedID)}
	}
	// Last select wins; a previous selection is discarded silently.
	r.sessions.Set(userID, def.ID)
	r.logger.Debug("puzzle_selected", "user_id", userID, "puzzle_id", def.ID)
	return Reply{Text: replySelected(def.ID), PuzzleID: def.ID}
}

func (r *Resolver) submitAnswer(ctx context.Context, userID, displayName, text string) (Reply, error) {
	puzzleID, active := r.sessions.Get(userID)
	if !active {
		if roleID, ok := r.table.KeywordRole(text); ok {
			return r.grant(ctx, userID, displayName, "", roleID, fmt.Sprintf("Mot-clé (%s)", text))
		}
		// A user who already solved a puzzle may DM its answer again without
		// re-selecting; confirm the held role instead of asking to select.
		if def, ok := r.table.PuzzleByAnswer(text); ok {
			held, roleName, err := r.granter.Holds(ctx, userID, def.RoleID)
			if err != nil {
				return Reply{}, fmt.Errorf("check role %s: %w", def.RoleID, err)
			}
			if held {
				return Reply{Text: replyAlreadyHeld(roleName), PuzzleID: def.ID, RoleID: def.RoleID, RoleName: roleName}, nil
			}
		}
		return Reply{Text: replySelectFirst(r.selectCmd)}, nil
	}

	def, ok := r.table.Puzzle(puzzleID)
	if !ok {
		// The session points at an id the table no longer carries; treat it
		// like an idle user rather than corrupting state.
		r.sessions.Clear(userID)
		return Reply{Text: replySelectFirst(r.selectCmd)}, nil
	}
	if text != def.Answer {
		r.logger.Debug("answer_mismatch", "user_id", userID, "puzzle_id", def.ID)
		return Reply{Text: replyWrongAnswer}, nil
	}
	return r.grant(ctx, userID, displayName, def.ID, def.RoleID, fmt.Sprintf("Réponse d'énigme (%s)", def.ID))
}

func (r *Resolver) grant(ctx context.Context, userID, displayName, puzzleID, roleID, reason string) (Reply, error) {
	res, err := r.granter.Grant(ctx, userID, roleID, reason)
	if err != nil {
		return Reply{}, fmt.Errorf("grant role %s: %w", roleID, err)
	}

	reply := Reply{PuzzleID: puzzleID, RoleID: roleID, RoleName: res.RoleName}
	switch res.Outcome {
	case rolegrant.Granted:
		r.logger.Info("role_granted", "user_id", userID, "puzzle_id", puzzleID, "role_id", roleID)
		if puzzleID != "" && puzzleID == r.specialID {
			reply.Text = replySuccessSpecial(displayName, res.RoleName)
		} else {
			reply.Text = replySuccess(displayName, res.RoleName)
		}
		reply.Granted = true
		r.clearSession(userID, puzzleID)
	case rolegrant.AlreadyHeld:
		// Idempotent terminal state: the puzzle counts as solved.
		reply.Text = replyAlreadyHeld(res.RoleName)
		r.clearSession(userID, puzzleID)
	case rolegrant.Forbidden:
		r.logger.Error("role_grant_forbidden", "user_id", userID, "role_id", roleID)
		reply.Text = replyForbidden
	case rolegrant.RoleMissing:
		r.logger.Error("role_grant_role_missing", "user_id", userID, "role_id", roleID)
		reply.Text = replyRoleMissing
	default:
		r.logger.Warn("role_grant_transient_error", "user_id", userID, "role_id", roleID)
		reply.Text = replyTransient
	}
	return reply, nil
}

func (r *Resolver) clearSession(userID, puzzleID string) {
	if puzzleID == "" {
		return
	}
	r.sessions.Clear(userID)
}

func splitCommand(text string) (word, rest string, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", "", false
	}
	return fields[0], strings.Join(fields[1:], " "), true
}
