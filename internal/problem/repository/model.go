package repository

import "strings"

// Difficulty is the stored ordinal for a problem's difficulty.
type Difficulty int8

const (
	DifficultyUnknown Difficulty = 0
	DifficultyEasy    Difficulty = 1
	DifficultyMedium  Difficulty = 2
	DifficultyHard    Difficulty = 3
)

// String returns the human-readable difficulty label.
func (d Difficulty) String() string {
	switch d {
	case DifficultyEasy:
		return "Easy"
	case DifficultyMedium:
		return "Medium"
	case DifficultyHard:
		return "Hard"
	default:
		return "Unknown"
	}
}

// ParseDifficulty converts a difficulty label to its ordinal, ignoring
// case. Unrecognized labels map to DifficultyUnknown.
func ParseDifficulty(label string) Difficulty {
	switch strings.ToLower(label) {
	case "easy":
		return DifficultyEasy
	case "medium":
		return DifficultyMedium
	case "hard":
		return DifficultyHard
	default:
		return DifficultyUnknown
	}
}

// Problem is a stored practice problem. FrontendID is the stable external
// identifier, unique across refreshes; ID is the internal row id.
type Problem struct {
	ID          int64      `json:"id"`
	FrontendID  int64      `json:"frontendId"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Difficulty  Difficulty `json:"difficulty"`
	Description string     `json:"description"`
	Premium     bool       `json:"premium"`
}

// TopicTag is a shared problem topic, unique by name.
type TopicTag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
