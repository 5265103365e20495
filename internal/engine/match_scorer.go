package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/scrypster/recall/pkg/types"
)

// Match thresholds.
const (
	// MinMatchThreshold is the lowest confidence kept as a potential match.
	MinMatchThreshold = 0.7

	// ReviewThreshold is the confidence above which a match is worth a
	// human look in the review UI.
	ReviewThreshold = 0.8

	// AutoAcceptThreshold is the confidence at which a suggestion may be
	// accepted without review.
	AutoAcceptThreshold = 0.95
)

// Rule confidences.
const (
	aliasConfidence          = 0.95
	nicknameConfidence       = 0.85
	similarFirstConfidence   = 0.80
	initialConfidence        = 0.70
	highSimilarityConfidence = 0.9

	lastNameSimilarity      = 0.9
	firstNameSimilarity     = 0.8
	highSimilarityThreshold = 0.9
)

// Match reasons.
const (
	ReasonDifferentTypes = "different entity types"
	ReasonExactMatch     = "exact match"
	ReasonKnownAlias     = "known alias"
	ReasonNickname       = "same last name, nickname match"
	ReasonInitial        = "same last name, initial match"
	ReasonSimilarFirst   = "same last name, similar first names"
	ReasonHighSimilarity = "high string similarity"
	ReasonBelowThreshold = "below similarity threshold"
	reasonSimilarityFmt  = "string similarity %.2f"
)

var (
	nonWordPattern    = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// NormalizeEntityValue lowercases v, strips everything that is neither a
// letter, digit, underscore nor whitespace (in any script), and collapses
// runs of whitespace.
func NormalizeEntityValue(v string) string {
	v = strings.ToLower(v)
	v = nonWordPattern.ReplaceAllString(v, "")
	v = whitespacePattern.ReplaceAllString(v, " ")
	return strings.TrimSpace(v)
}

// MatchScorer decides how likely two entity mentions denote the same thing.
// It holds only read-only data and is safe for concurrent use.
type MatchScorer struct {
	nicknames *NicknameDictionary
}

// NewMatchScorer creates a scorer backed by the given nickname dictionary.
// A nil dictionary selects the built-in one.
func NewMatchScorer(nicknames *NicknameDictionary) *MatchScorer {
	if nicknames == nil {
		nicknames = DefaultNicknames()
	}
	return &MatchScorer{nicknames: nicknames}
}

// Match scores a pair and packages the result.
func (s *MatchScorer) Match(e1, e2 types.Entity, aliases []types.Alias) types.MatchResult {
	confidence, reason := s.Score(e1, e2, aliases)
	return types.MatchResult{
		Entity1:    e1,
		Entity2:    e2,
		Confidence: confidence,
		Reason:     reason,
	}
}

// Score returns a confidence in [0,1] that e1 and e2 are the same real-world
// thing, with a human-readable reason. The first applicable rule wins:
// type mismatch, exact match, known alias, person-name rules, then plain
// Jaro-Winkler similarity.
func (s *MatchScorer) Score(e1, e2 types.Entity, aliases []types.Alias) (float64, string) {
	if e1.Type != e2.Type {
		return 0, ReasonDifferentTypes
	}

	n1 := NormalizeEntityValue(e1.Value)
	n2 := NormalizeEntityValue(e2.Value)
	// Values made only of punctuation normalize to "" and are never exact.
	if n1 != "" && n1 == n2 {
		return 1.0, ReasonExactMatch
	}

	if isKnownAlias(e1.Type, e1.Value, e2.Value, aliases) {
		return aliasConfidence, ReasonKnownAlias
	}

	if e1.Type == types.EntityTypePerson {
		if confidence, reason, ok := s.scorePersonNames(n1, n2); ok {
			return confidence, reason
		}
	}

	if n1 == "" || n2 == "" {
		return 0, ReasonBelowThreshold
	}
	sim := JaroWinkler(n1, n2)
	switch {
	case sim >= highSimilarityThreshold:
		return highSimilarityConfidence, ReasonHighSimilarity
	case sim >= MinMatchThreshold:
		return sim, fmt.Sprintf(reasonSimilarityFmt, sim)
	default:
		return 0, ReasonBelowThreshold
	}
}

// scorePersonNames applies the first/last name rules to two normalized
// person names. ok is false when no rule applies.
func (s *MatchScorer) scorePersonNames(n1, n2 string) (float64, string, bool) {
	t1 := strings.Fields(n1)
	t2 := strings.Fields(n2)
	if len(t1) < 2 || len(t2) < 2 {
		return 0, "", false
	}

	if JaroWinkler(t1[len(t1)-1], t2[len(t2)-1]) < lastNameSimilarity {
		return 0, "", false
	}

	first1, first2 := t1[0], t2[0]
	switch {
	case s.nicknames.SameFormalName(first1, first2):
		return nicknameConfidence, ReasonNickname, true
	case initialMatches(first1, first2) || initialMatches(first2, first1):
		return initialConfidence, ReasonInitial, true
	case JaroWinkler(first1, first2) >= firstNameSimilarity:
		return similarFirstConfidence, ReasonSimilarFirst, true
	}
	return 0, "", false
}

// isInitial reports whether tok looks like an initial: one character, or
// two characters ending in a period.
func isInitial(tok string) bool {
	r := []rune(tok)
	switch len(r) {
	case 1:
		return true
	case 2:
		return r[1] == '.'
	}
	return false
}

// initialMatches reports whether initial is an initial and name starts with
// its letter.
func initialMatches(initial, name string) bool {
	if !isInitial(initial) {
		return false
	}
	letter := []rune(initial)[0]
	rn := []rune(name)
	return len(rn) > 0 && rn[0] == letter
}

// isKnownAlias reports whether an alias record of the given type links the
// two values in either direction, comparing case-insensitively (and
// ignoring punctuation).
func isKnownAlias(entityType types.EntityType, v1, v2 string, aliases []types.Alias) bool {
	for _, a := range aliases {
		if a.EntityType != entityType {
			continue
		}
		if (sameName(a.EntityValue, v1) && sameName(a.Alias, v2)) ||
			(sameName(a.EntityValue, v2) && sameName(a.Alias, v1)) {
			return true
		}
	}
	return false
}

func sameName(a, b string) bool {
	if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) {
		return true
	}
	na := NormalizeEntityValue(a)
	return na != "" && na == NormalizeEntityValue(b)
}
