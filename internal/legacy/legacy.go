// Package legacy is the offline keyword classifier used whenever the remote
// classifier is unavailable or unsure.
package legacy

import (
	"context"
	"sort"
	"strings"

	"parle/internal/intent"
)

const youtubeToken = "youtube"

var (
	QuitWords   = []string{"quitter", "stop", "au revoir"}
	OpenWords   = []string{"ouvre", "ouvrir", "lance", "lancer", "démarrer", "démarre", "start", "open"}
	SearchWords = []string{"cherche", "recherche", "trouve", "trouver", "google", "search"}

	// google triggers a search but stays part of the query.
	searchVerbs = []string{"cherche", "recherche", "trouve", "trouver", "search"}
)

// Classifier applies an ordered keyword cascade. The first matching rule
// decides; matching is substring containment on the lower-cased command.
type Classifier struct{}

func (Classifier) Classify(_ context.Context, text string) intent.Intent {
	return Classify(text)
}

func Classify(text string) intent.Intent {
	cmd := intent.Normalize(text)

	switch {
	case containsAny(cmd, QuitWords):
		return legacyIntent(intent.Quit, "", "")

	case strings.Contains(cmd, youtubeToken):
		return legacyIntent(intent.Search, "", cmd)

	case containsAny(cmd, OpenWords):
		return legacyIntent(intent.Open, strip(cmd, OpenWords), "")

	case containsAny(cmd, SearchWords):
		return legacyIntent(intent.Search, "", strip(cmd, searchVerbs))
	}

	return legacyIntent(intent.Unknown, "", "")
}

func legacyIntent(action intent.Action, target, search string) intent.Intent {
	return intent.Intent{
		Action:     action,
		Target:     target,
		Search:     search,
		Confidence: 1,
		Origin:     intent.Legacy,
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// strip removes every keyword from s, longest first so that "recherche" is
// not left as "re" by removing "cherche" before it.
func strip(s string, words []string) string {
	sorted := append([]string(nil), words...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i]) > len(sorted[j])
	})

	for _, w := range sorted {
		s = strings.ReplaceAll(s, w, "")
	}

	return strings.Join(strings.Fields(s), " ")
}
