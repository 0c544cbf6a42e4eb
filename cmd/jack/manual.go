package main

import "github.com/shaddrood-cmd/jack-bot/internal/puzzle"

// Manual answer-table entries, compiled into the binary. Entries here win
// over JACK_PUZZLES_JSON / JACK_KEYWORDS_JSON and over puzzles.file on key
// collision. Role ids are Discord snowflakes (right click → Copy ID).
//
// Example:
//
//	manualPuzzles = []puzzle.Definition{
//		{ID: "3", Answer: "tradition", RoleID: "140000000000000001"},
//	}
//	manualKeywords = []puzzle.Keyword{
//		{Word: "avalon", RoleID: "222222222222222222"},
//	}
var (
	manualPuzzles  []puzzle.Definition
	manualKeywords []puzzle.Keyword
)
