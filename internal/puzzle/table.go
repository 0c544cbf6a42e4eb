package puzzle

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition is one selectable puzzle: a short id, the expected answer and
// the role granted on a correct submission.
type Definition struct {
	ID     string `yaml:"id" json:"id"`
	Answer string `yaml:"answer" json:"answer"`
	RoleID string `yaml:"role_id" json:"role_id"`
}

// Keyword is a direct grant entry: a secret word sent in DM with no prior
// puzzle selection, mapped straight to a role.
type Keyword struct {
	Word   string `yaml:"word"`
	RoleID string `yaml:"role_id"`
}

// Table is the immutable answer table, keyed by normalized puzzle id and
// normalized keyword. Built once at startup, never mutated afterwards.
type Table struct {
	puzzles  map[string]Definition
	keywords map[string]string
}

// TableOptions lists the configuration sources merged into a Table.
// Precedence on key collision, highest first: Manual entries, the JSON env
// blobs, the YAML file.
type TableOptions struct {
	Manual         []Definition
	ManualKeywords []Keyword
	PuzzlesJSON    string
	KeywordsJSON   string
	FilePath       string
}

type tableFile struct {
	Puzzles  []Definition `yaml:"puzzles"`
	Keywords []Keyword    `yaml:"keywords"`
}

// NewTable assembles a table from explicit entries. Ids and keywords are
// normalized before insertion; a duplicate key is a configuration error.
func NewTable(puzzles []Definition, keywords []Keyword) (*Table, error) {
	t := &Table{
		puzzles:  make(map[string]Definition, len(puzzles)),
		keywords: make(map[string]string, len(keywords)),
	}
	if err := t.addPuzzles(puzzles); err != nil {
		return nil, err
	}
	if err := t.addKeywords(keywords); err != nil {
		return nil, err
	}
	return t, nil
}

// BuildTable merges all configured sources. The resulting table must not be
// empty: a bot with nothing to grant is a startup configuration error.
func BuildTable(opts TableOptions) (*Table, error) {
	t := &Table{
		puzzles:  make(map[string]Definition),
		keywords: make(map[string]string),
	}

	if path := strings.TrimSpace(opts.FilePath); path != "" {
		file, err := loadTableFile(path)
		if err != nil {
			return nil, err
		}
		if err := t.addPuzzles(file.Puzzles); err != nil {
			return nil, fmt.Errorf("puzzles file %s: %w", path, err)
		}
		if err := t.addKeywords(file.Keywords); err != nil {
			return nil, fmt.Errorf("puzzles file %s: %w", path, err)
		}
	}

	jsonPuzzles, err := parsePuzzlesJSON(opts.PuzzlesJSON)
	if err != nil {
		return nil, err
	}
	if err := t.addPuzzles(jsonPuzzles); err != nil {
		return nil, fmt.Errorf("puzzles.json: %w", err)
	}
	jsonKeywords, err := parseKeywordsJSON(opts.KeywordsJSON)
	if err != nil {
		return nil, err
	}
	if err := t.addKeywords(jsonKeywords); err != nil {
		return nil, fmt.Errorf("keywords.json: %w", err)
	}

	if err := t.addPuzzles(opts.Manual); err != nil {
		return nil, fmt.Errorf("manual puzzles: %w", err)
	}
	if err := t.addKeywords(opts.ManualKeywords); err != nil {
		return nil, fmt.Errorf("manual keywords: %w", err)
	}

	if t.Len() == 0 {
		return nil, fmt.Errorf("answer table is empty (set puzzles.file, JACK_PUZZLES_JSON or the manual entries)")
	}
	return t, nil
}

// Puzzle returns the definition for a normalized puzzle id.
func (t *Table) Puzzle(id string) (Definition, bool) {
	if t == nil {
		return Definition{}, false
	}
	def, ok := t.puzzles[Normalize(id)]
	return def, ok
}

// KeywordRole returns the role id for a normalized keyword.
func (t *Table) KeywordRole(word string) (string, bool) {
	if t == nil {
		return "", false
	}
	roleID, ok := t.keywords[Normalize(word)]
	return roleID, ok
}

// PuzzleByAnswer returns the puzzle whose answer matches the normalized text.
// When several puzzles share an answer the one with the lowest id wins, so
// repeated lookups stay deterministic.
func (t *Table) PuzzleByAnswer(text string) (Definition, bool) {
	if t == nil {
		return Definition{}, false
	}
	answer := Normalize(text)
	if answer == "" {
		return Definition{}, false
	}
	var best Definition
	found := false
	for _, def := range t.puzzles {
		if def.Answer != answer {
			continue
		}
		if !found || idLess(def.ID, best.ID) {
			best = def
			found = true
		}
	}
	return best, found
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.puzzles) + len(t.keywords)
}

// IDs returns the puzzle ids in stable order, numeric ids first in numeric
// order. Used for the ready log line.
func (t *Table) IDs() []string {
	if t == nil {
		return nil
	}
	ids := make([]string, 0, len(t.puzzles))
	for id := range t.puzzles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return idLess(ids[i], ids[j]) })
	return ids
}

// idLess orders puzzle ids with numeric ids first in numeric order.
func idLess(x, y string) bool {
	a, aErr := strconv.Atoi(x)
	b, bErr := strconv.Atoi(y)
	if aErr == nil && bErr == nil {
		return a < b
	}
	if (aErr == nil) != (bErr == nil) {
		return aErr == nil
	}
	return x < y
}

// Keywords returns the configured keywords in sorted order.
func (t *Table) Keywords() []string {
	if t == nil {
		return nil
	}
	words := make([]string, 0, len(t.keywords))
	for w := range t.keywords {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// addPuzzles applies one source. A duplicate id inside the same source is a
// configuration error; overwriting an earlier source is how precedence works.
func (t *Table) addPuzzles(defs []Definition) error {
	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		id := Normalize(def.ID)
		if id == "" {
			return fmt.Errorf("puzzle id is required")
		}
		answer := Normalize(def.Answer)
		if answer == "" {
			return fmt.Errorf("puzzle %s: answer is required", id)
		}
		roleID, err := validSnowflake(def.RoleID)
		if err != nil {
			return fmt.Errorf("puzzle %s: %w", id, err)
		}
		if seen[id] {
			return fmt.Errorf("puzzle %s is defined twice", id)
		}
		seen[id] = true
		t.puzzles[id] = Definition{ID: id, Answer: answer, RoleID: roleID}
	}
	return nil
}

func (t *Table) addKeywords(words []Keyword) error {
	seen := make(map[string]bool, len(words))
	for _, kw := range words {
		word := Normalize(kw.Word)
		if word == "" {
			return fmt.Errorf("keyword is required")
		}
		roleID, err := validSnowflake(kw.RoleID)
		if err != nil {
			return fmt.Errorf("keyword %s: %w", word, err)
		}
		if seen[word] {
			return fmt.Errorf("keyword %s is defined twice", word)
		}
		seen[word] = true
		t.keywords[word] = roleID
	}
	return nil
}

func loadTableFile(path string) (tableFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return tableFile{}, fmt.Errorf("read puzzles file: %w", err)
	}
	var file tableFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return tableFile{}, fmt.Errorf("puzzles file %s is invalid: %w", path, err)
	}
	return file, nil
}

func parsePuzzlesJSON(blob string) ([]Definition, error) {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return nil, nil
	}
	raw := map[string]struct {
		Answer string          `json:"answer"`
		RoleID json.RawMessage `json:"role_id"`
	}{}
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return nil, fmt.Errorf("puzzles.json is invalid: %w", err)
	}
	out := make([]Definition, 0, len(raw))
	for id, entry := range raw {
		roleID, err := snowflakeFromJSON(entry.RoleID)
		if err != nil {
			return nil, fmt.Errorf("puzzles.json entry %s: %w", id, err)
		}
		out = append(out, Definition{ID: id, Answer: entry.Answer, RoleID: roleID})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func parseKeywordsJSON(blob string) ([]Keyword, error) {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return nil, nil
	}
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return nil, fmt.Errorf("keywords.json is invalid: %w", err)
	}
	out := make([]Keyword, 0, len(raw))
	for word, value := range raw {
		roleID, err := snowflakeFromJSON(value)
		if err != nil {
			return nil, fmt.Errorf("keywords.json entry %s: %w", word, err)
		}
		out = append(out, Keyword{Word: word, RoleID: roleID})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Word < out[j].Word })
	return out, nil
}

// snowflakeFromJSON accepts a role id written either as a JSON number (the
// original config format) or as a string.
func snowflakeFromJSON(raw json.RawMessage) (string, error) {
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, `"`) {
		var unquoted string
		if err := json.Unmarshal(raw, &unquoted); err != nil {
			return "", fmt.Errorf("role_id is invalid")
		}
		s = unquoted
	}
	return validSnowflake(s)
}

func validSnowflake(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("role_id is required")
	}
	if _, err := strconv.ParseUint(s, 10, 64); err != nil {
		return "", fmt.Errorf("role_id is invalid: %s", s)
	}
	return s, nil
}
