package moments

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Feeling is an emotion tag drawn from a fixed vocabulary.
type Feeling string

const (
	FeelingHappy  Feeling = "happy"
	FeelingSad    Feeling = "sad"
	FeelingAngry  Feeling = "angry"
	FeelingScared Feeling = "scared"
)

// ErrUnknownFeeling indicates a tag outside the feelings vocabulary.
var ErrUnknownFeeling = errors.New("moments: unknown feeling")

var feelingEmoji = map[Feeling]string{
	FeelingHappy:  "😄",
	FeelingSad:    "😢",
	FeelingAngry:  "😠",
	FeelingScared: "😨",
}

// Vocabulary lists every supported feeling in presentation order.
func Vocabulary() []Feeling {
	return []Feeling{FeelingHappy, FeelingSad, FeelingAngry, FeelingScared}
}

// ParseFeeling normalizes raw input and checks it against the vocabulary.
func ParseFeeling(rawInput string) (Feeling, error) {
	feeling := normalizeFeeling(rawInput)
	if !feeling.Known() {
		return "", fmt.Errorf("%w: %q", ErrUnknownFeeling, rawInput)
	}
	return feeling, nil
}

// Known reports whether the feeling is part of the vocabulary.
func (f Feeling) Known() bool {
	_, ok := feelingEmoji[f]
	return ok
}

// Emoji returns the glyph shown on the detail view, empty for unknown tags.
func (f Feeling) Emoji() string {
	return feelingEmoji[f]
}

// Label returns the capitalized form used next to checkboxes.
func (f Feeling) Label() string {
	if f == "" {
		return ""
	}
	value := string(f)
	return strings.ToUpper(value[:1]) + value[1:]
}

func normalizeFeeling(rawInput string) Feeling {
	return Feeling(strings.ToLower(strings.TrimSpace(rawInput)))
}

// NormalizeFeelings lower-cases, de-duplicates and sorts a selection.
// Blank entries are dropped.
func NormalizeFeelings(selection []Feeling) []Feeling {
	seen := make(map[Feeling]struct{}, len(selection))
	normalized := make([]Feeling, 0, len(selection))
	for _, raw := range selection {
		feeling := normalizeFeeling(string(raw))
		if feeling == "" {
			continue
		}
		if _, duplicate := seen[feeling]; duplicate {
			continue
		}
		seen[feeling] = struct{}{}
		normalized = append(normalized, feeling)
	}
	sort.Slice(normalized, func(i, j int) bool {
		return normalized[i] < normalized[j]
	})
	return normalized
}

// ParseFeelingList splits a comma-joined wire value into a normalized set.
func ParseFeelingList(joined string) []Feeling {
	if strings.TrimSpace(joined) == "" {
		return nil
	}
	parts := strings.Split(joined, ",")
	raw := make([]Feeling, 0, len(parts))
	for _, part := range parts {
		raw = append(raw, Feeling(part))
	}
	return NormalizeFeelings(raw)
}

// JoinFeelings renders the canonical comma-joined form of a selection.
func JoinFeelings(selection []Feeling) string {
	normalized := NormalizeFeelings(selection)
	parts := make([]string, len(normalized))
	for index, feeling := range normalized {
		parts[index] = string(feeling)
	}
	return strings.Join(parts, ",")
}

// SymmetricDifference returns the feelings present in exactly one of the two
// selections, sorted. Order and case of the inputs are ignored.
func SymmetricDifference(left, right []Feeling) []Feeling {
	leftSet := NormalizeFeelings(left)
	rightSet := NormalizeFeelings(right)

	inRight := make(map[Feeling]struct{}, len(rightSet))
	for _, feeling := range rightSet {
		inRight[feeling] = struct{}{}
	}
	inLeft := make(map[Feeling]struct{}, len(leftSet))
	for _, feeling := range leftSet {
		inLeft[feeling] = struct{}{}
	}

	var difference []Feeling
	for _, feeling := range leftSet {
		if _, ok := inRight[feeling]; !ok {
			difference = append(difference, feeling)
		}
	}
	for _, feeling := range rightSet {
		if _, ok := inLeft[feeling]; !ok {
			difference = append(difference, feeling)
		}
	}
	sort.Slice(difference, func(i, j int) bool {
		return difference[i] < difference[j]
	})
	return difference
}
