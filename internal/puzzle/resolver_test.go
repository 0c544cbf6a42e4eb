package puzzle

import (
	"context"
	"strings"
	"testing"

	"github.com/shaddrood-cmd/jack-bot/internal/rolegrant"
)

type grantCall struct {
	userID string
	roleID string
	reason string
}

type fakeGranter struct {
	result rolegrant.Result
	err    error
	calls  []grantCall

	holds         bool
	holdsRoleName string
	holdsErr      error
	holdsCalls    int
}

func (g *fakeGranter) Grant(_ context.Context, userID, roleID, reason string) (rolegrant.Result, error) {
	g.calls = append(g.calls, grantCall{userID: userID, roleID: roleID, reason: reason})
	return g.result, g.err
}

func (g *fakeGranter) Holds(_ context.Context, _, _ string) (bool, string, error) {
	g.holdsCalls++
	return g.holds, g.holdsRoleName, g.holdsErr
}

const roleX = "140000000000000001"

func newTestResolver(t *testing.T, granter rolegrant.Granter, keywords []Keyword) (*Resolver, *MemoryStore) {
	t.Helper()
	table, err := NewTable([]Definition{
		{ID: "3", Answer: "tradition", RoleID: roleX},
		{ID: "7", Answer: "la clé d'or", RoleID: "140000000000000002"},
	}, keywords)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	store := NewMemoryStore()
	r, err := NewResolver(ResolverConfig{Table: table, Sessions: store, Granter: granter})
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	return r, store
}

func handle(t *testing.T, r *Resolver, userID, text string) Reply {
	t.Helper()
	reply, err := r.HandleMessage(context.Background(), userID, "Arthur", text)
	if err != nil {
		t.Fatalf("HandleMessage(%q) error = %v", text, err)
	}
	return reply
}

func TestSubmitBeforeSelect(t *testing.T) {
	granter := &fakeGranter{}
	r, _ := newTestResolver(t, granter, nil)

	reply := handle(t, r, "u1", "tradition")
	if !strings.Contains(reply.Text, "!enigme") {
		t.Fatalf("reply = %q, want select-first hint", reply.Text)
	}
	if len(granter.calls) != 0 {
		t.Fatalf("grant calls = %d, want 0", len(granter.calls))
	}
}

func TestSelectPuzzle(t *testing.T) {
	r, store := newTestResolver(t, &fakeGranter{}, nil)

	reply := handle(t, r, "u1", "!enigme 3")
	if !strings.Contains(reply.Text, "3") {
		t.Fatalf("reply = %q, want id in prompt", reply.Text)
	}
	if id, ok := store.Get("u1"); !ok || id != "3" {
		t.Fatalf("session = %q, %v, want 3", id, ok)
	}
}

func TestSelectUnknownPuzzleKeepsState(t *testing.T) {
	r, store := newTestResolver(t, &fakeGranter{}, nil)

	handle(t, r, "u1", "!enigme 3")
	reply := handle(t, r, "u1", "!enigme 99")
	if !strings.Contains(reply.Text, "99") {
		t.Fatalf("reply = %q, want unknown-puzzle message", reply.Text)
	}
	if id, _ := store.Get("u1"); id != "3" {
		t.Fatalf("session = %q after invalid select, want 3", id)
	}
}

func TestSelectMissingArgument(t *testing.T) {
	r, store := newTestResolver(t, &fakeGranter{}, nil)
	reply := handle(t, r, "u1", "!enigme")
	if !strings.Contains(reply.Text, "!enigme") {
		t.Fatalf("reply = %q, want usage message", reply.Text)
	}
	if _, ok := store.Get("u1"); ok {
		t.Fatalf("session created by usage reply")
	}
}

func TestReselectionLastWins(t *testing.T) {
	r, store := newTestResolver(t, &fakeGranter{}, nil)
	handle(t, r, "u1", "!enigme 3")
	handle(t, r, "u1", "!enigme 7")
	if id, _ := store.Get("u1"); id != "7" {
		t.Fatalf("session = %q after reselect, want 7", id)
	}
}

func TestWrongAnswerKeepsSession(t *testing.T) {
	granter := &fakeGranter{}
	r, store := newTestResolver(t, granter, nil)

	handle(t, r, "u1", "!enigme 3")
	reply := handle(t, r, "u1", "mauvaise piste")
	if reply.Text != replyWrongAnswer {
		t.Fatalf("reply = %q, want wrong-answer message", reply.Text)
	}
	if id, _ := store.Get("u1"); id != "3" {
		t.Fatalf("session = %q after wrong answer, want 3", id)
	}
	if len(granter.calls) != 0 {
		t.Fatalf("grant calls = %d, want 0", len(granter.calls))
	}
}

// The end-to-end flow: select, answer with noisy casing and spacing, get the
// role, then resend the answer without re-selecting and hit the idempotent
// terminal state.
func TestSolveScenario(t *testing.T) {
	granter := &fakeGranter{result: rolegrant.Result{Outcome: rolegrant.Granted, RoleName: "Gardien"}}
	r, store := newTestResolver(t, granter, nil)

	if reply := handle(t, r, "u1", "!enigme 3"); !strings.Contains(reply.Text, "3") {
		t.Fatalf("select reply = %q", reply.Text)
	}

	reply := handle(t, r, "u1", "  TRADITION  ")
	if !reply.Granted {
		t.Fatalf("reply.Granted = false, want true")
	}
	if reply.Text != replySuccess("Arthur", "Gardien") {
		t.Fatalf("reply = %q, want success template", reply.Text)
	}
	if reply.PuzzleID != "3" || reply.RoleID != roleX {
		t.Fatalf("reply ids = %q/%q", reply.PuzzleID, reply.RoleID)
	}
	if len(granter.calls) != 1 || granter.calls[0].roleID != roleX {
		t.Fatalf("grant calls = %+v, want one for role X", granter.calls)
	}
	if !strings.Contains(granter.calls[0].reason, "(3)") {
		t.Fatalf("grant reason = %q, want puzzle id", granter.calls[0].reason)
	}
	if _, ok := store.Get("u1"); ok {
		t.Fatalf("session not cleared after grant")
	}

	// The answer comes back without a new selection: the platform now
	// reports the role as held and no grant is attempted.
	granter.holds = true
	granter.holdsRoleName = "Gardien"
	reply = handle(t, r, "u1", "tradition")
	if reply.Granted {
		t.Fatalf("reply.Granted = true on already-held")
	}
	if reply.Text != replyAlreadyHeld("Gardien") {
		t.Fatalf("reply = %q, want already-held template", reply.Text)
	}
	if len(granter.calls) != 1 {
		t.Fatalf("grant calls = %d after resubmission, want 1", len(granter.calls))
	}
	if granter.holdsCalls != 1 {
		t.Fatalf("holds calls = %d, want 1", granter.holdsCalls)
	}
	if _, ok := store.Get("u1"); ok {
		t.Fatalf("session created by already-held reply")
	}
}

// A stranger (or a user whose role was since removed) who sends a bare answer
// still gets the select-first hint, with no grant attempted.
func TestAnswerResubmissionWithoutRole(t *testing.T) {
	granter := &fakeGranter{}
	r, _ := newTestResolver(t, granter, nil)

	reply := handle(t, r, "u1", "tradition")
	if !strings.Contains(reply.Text, "!enigme") {
		t.Fatalf("reply = %q, want select-first hint", reply.Text)
	}
	if granter.holdsCalls != 1 {
		t.Fatalf("holds calls = %d, want 1", granter.holdsCalls)
	}
	if len(granter.calls) != 0 {
		t.Fatalf("grant calls = %d, want 0", len(granter.calls))
	}
}

// Active sessions keep the grant path idempotent: answering a selected puzzle
// whose role is already held clears the session.
func TestAlreadyHeldWhileAwaitingAnswer(t *testing.T) {
	granter := &fakeGranter{result: rolegrant.Result{Outcome: rolegrant.AlreadyHeld, RoleName: "Gardien"}}
	r, store := newTestResolver(t, granter, nil)

	handle(t, r, "u1", "!enigme 3")
	reply := handle(t, r, "u1", "tradition")
	if reply.Text != replyAlreadyHeld("Gardien") {
		t.Fatalf("reply = %q, want already-held template", reply.Text)
	}
	if _, ok := store.Get("u1"); ok {
		t.Fatalf("session not cleared after already-held")
	}
}

func TestGrantFailureKeepsSession(t *testing.T) {
	cases := []struct {
		name    string
		outcome rolegrant.Outcome
		want    string
	}{
		{name: "forbidden", outcome: rolegrant.Forbidden, want: replyForbidden},
		{name: "role missing", outcome: rolegrant.RoleMissing, want: replyRoleMissing},
		{name: "transient", outcome: rolegrant.TransientError, want: replyTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			granter := &fakeGranter{result: rolegrant.Result{Outcome: tc.outcome}}
			r, store := newTestResolver(t, granter, nil)

			handle(t, r, "u1", "!enigme 3")
			reply := handle(t, r, "u1", "tradition")
			if reply.Text != tc.want {
				t.Fatalf("reply = %q, want %q", reply.Text, tc.want)
			}
			if reply.Granted {
				t.Fatalf("reply.Granted = true on %s", tc.name)
			}
			// Session stays so the user can simply resend the answer.
			if id, _ := store.Get("u1"); id != "3" {
				t.Fatalf("session = %q, want 3", id)
			}
		})
	}
}

func TestKeywordGrantWhileIdle(t *testing.T) {
	granter := &fakeGranter{result: rolegrant.Result{Outcome: rolegrant.Granted, RoleName: "Testeur"}}
	r, _ := newTestResolver(t, granter, []Keyword{{Word: "sésame", RoleID: "150000000000000001"}})

	reply := handle(t, r, "u1", " SESAME ")
	if !reply.Granted {
		t.Fatalf("reply.Granted = false for keyword")
	}
	if reply.PuzzleID != "" {
		t.Fatalf("reply.PuzzleID = %q for keyword, want empty", reply.PuzzleID)
	}
	if len(granter.calls) != 1 || granter.calls[0].roleID != "150000000000000001" {
		t.Fatalf("grant calls = %+v", granter.calls)
	}
}

func TestKeywordIgnoredWhileAwaitingAnswer(t *testing.T) {
	granter := &fakeGranter{result: rolegrant.Result{Outcome: rolegrant.Granted}}
	r, store := newTestResolver(t, granter, []Keyword{{Word: "sesame", RoleID: "150000000000000001"}})

	handle(t, r, "u1", "!enigme 3")
	reply := handle(t, r, "u1", "sesame")
	if reply.Text != replyWrongAnswer {
		t.Fatalf("reply = %q, want wrong answer while a session is active", reply.Text)
	}
	if id, _ := store.Get("u1"); id != "3" {
		t.Fatalf("session = %q, want 3", id)
	}
}

func TestSpecialPuzzleTemplate(t *testing.T) {
	granter := &fakeGranter{result: rolegrant.Result{Outcome: rolegrant.Granted, RoleName: "Élu"}}
	table, err := NewTable([]Definition{{ID: "24", Answer: "fin", RoleID: roleX}}, nil)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	r, err := NewResolver(ResolverConfig{
		Table:     table,
		Sessions:  NewMemoryStore(),
		Granter:   granter,
		SpecialID: "24",
	})
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}

	handle(t, r, "u1", "!enigme 24")
	reply := handle(t, r, "u1", "fin")
	if reply.Text != replySuccessSpecial("Arthur", "Élu") {
		t.Fatalf("reply = %q, want special success template", reply.Text)
	}
}

func TestDiacriticInsensitiveAnswer(t *testing.T) {
	granter := &fakeGranter{result: rolegrant.Result{Outcome: rolegrant.Granted, RoleName: "Clé"}}
	r, _ := newTestResolver(t, granter, nil)

	handle(t, r, "u1", "!enigme 7")
	reply := handle(t, r, "u1", "LA  CLE D'OR")
	if !reply.Granted {
		t.Fatalf("reply = %q, want grant despite accents and spacing", reply.Text)
	}
}

func TestGranterMisuseErrorPropagates(t *testing.T) {
	granter := &fakeGranter{err: context.DeadlineExceeded}
	r, _ := newTestResolver(t, granter, nil)

	handle(t, r, "u1", "!enigme 3")
	if _, err := r.HandleMessage(context.Background(), "u1", "Arthur", "tradition"); err == nil {
		t.Fatalf("HandleMessage() expected error from granter")
	}
}

func TestNewResolverValidation(t *testing.T) {
	table, _ := NewTable([]Definition{{ID: "1", Answer: "a", RoleID: "1"}}, nil)
	cases := []struct {
		name string
		cfg  ResolverConfig
	}{
		{name: "missing table", cfg: ResolverConfig{Sessions: NewMemoryStore(), Granter: &fakeGranter{}}},
		{name: "missing sessions", cfg: ResolverConfig{Table: table, Granter: &fakeGranter{}}},
		{name: "missing granter", cfg: ResolverConfig{Table: table, Sessions: NewMemoryStore()}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewResolver(tc.cfg); err == nil {
				t.Fatalf("NewResolver() expected error")
			}
		})
	}
}
