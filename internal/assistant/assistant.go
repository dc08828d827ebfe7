// Package assistant is the per-command entry point: it classifies a command
// with the remote classifier, falls back to the keyword rules when the
// answer is unusable, and carries out the resulting action.
package assistant

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"

	"parle/internal/apps"
	"parle/internal/fuzzy"
	"parle/internal/intent"
	"parle/internal/launch"
	"parle/internal/media"
)

// Minimum fuzzy scores, compared with a strict greater-than.
const (
	DirectOpenThreshold    = 70 // OpenApp, no classifier involved
	ConfirmedOpenThreshold = 50 // target named by the remote classifier
	KeywordOpenThreshold   = 60 // target left after stripping open keywords
)

// MinConfidence is the confidence from which an unhandled remote action is
// answered with "can't do that yet" instead of falling back to the rules.
const MinConfidence = 0.4

const Greeting = "Bonjour, je suis votre assistant. Que puis-je faire pour vous ?"

var ErrNotFound = errors.New("application not found")

// Outcome tells the caller whether to keep reading commands.
type Outcome int

const (
	Continue Outcome = iota
	Stop
)

func (o Outcome) String() string {
	if o == Stop {
		return "stop"
	}
	return "continue"
}

type Speaker interface {
	Say(text string)
}

type Resolver interface {
	Resolve(ctx context.Context, query string) string
}

type Deps struct {
	Apps     apps.Index
	Remote   intent.Classifier
	Fallback intent.Classifier
	Voice    Speaker
	Launcher launch.Launcher
	Browser  launch.Browser
	Player   Resolver
}

type Assistant struct {
	apps     apps.Index
	aliases  []string
	remote   intent.Classifier
	fallback intent.Classifier
	voice    Speaker
	launcher launch.Launcher
	browser  launch.Browser
	player   Resolver
}

func New(d Deps) *Assistant {
	return &Assistant{
		apps:     d.Apps,
		aliases:  d.Apps.Aliases(),
		remote:   d.Remote,
		fallback: d.Fallback,
		voice:    d.Voice,
		launcher: d.Launcher,
		browser:  d.Browser,
		player:   d.Player,
	}
}

// Process handles one command. Blank commands are ignored.
func (a *Assistant) Process(ctx context.Context, raw string) Outcome {
	if strings.TrimSpace(raw) == "" {
		return Continue
	}

	in := a.remote.Classify(ctx, raw)
	if out, handled := a.execute(ctx, in); handled {
		return out
	}

	log.Info("Falling back to keyword rules", "action", in.Action, "confidence", in.Confidence)

	return a.executeLegacy(ctx, a.fallback.Classify(ctx, intent.Normalize(raw)))
}

// execute carries out a remote intent. handled is false when the intent is
// not usable and the keyword rules should decide instead.
func (a *Assistant) execute(ctx context.Context, in intent.Intent) (out Outcome, handled bool) {
	switch {
	case in.Action == intent.Quit || in.Action == intent.Close:
		a.voice.Say("Au revoir !")
		return Stop, true

	case in.Action == intent.Open && in.Target != "" && len(a.apps) > 0:
		alias, err := a.open(in.Target, ConfirmedOpenThreshold)
		switch {
		case errors.Is(err, ErrNotFound):
			a.voice.Say(fmt.Sprintf("Je n'ai pas trouvé l'application '%s'.", in.Target))
		case err == nil:
			a.voice.Say(fmt.Sprintf("Ouverture de %s...", alias))
		}
		return Continue, true

	case in.Action == intent.Search && in.Search != "":
		a.search(in.Search)
		return Continue, true

	case in.Action == intent.Play:
		if in.Search != "" {
			a.play(ctx, in.Search)
		}
		return Continue, true

	case in.Usable() && in.Confidence >= MinConfidence:
		a.voice.Say("Je ne sais pas encore faire cette action.")
		return Continue, true
	}

	return Continue, false
}

func (a *Assistant) executeLegacy(ctx context.Context, in intent.Intent) Outcome {
	switch in.Action {
	case intent.Quit:
		a.voice.Say("Au revoir !")
		return Stop

	case intent.Search:
		if in.Search == "" {
			a.voice.Say("Que dois-je rechercher ?")
			break
		}
		a.search(in.Search)

	case intent.Open:
		alias, err := a.open(in.Target, KeywordOpenThreshold)
		switch {
		case errors.Is(err, ErrNotFound):
			a.voice.Say(fmt.Sprintf("Je n'ai pas trouvé l'application proche de '%s'.", in.Target))
		case err == nil:
			a.voice.Say(fmt.Sprintf("Lancement de %s...", alias))
		}

	case intent.Play:
		if in.Search != "" {
			a.play(ctx, in.Search)
		}

	default:
		a.voice.Say("Je ne comprends pas. Essayez 'ouvre [app]' ou 'cherche [sujet]'.")
	}

	return Continue
}

// OpenApp opens the application best matching name without consulting any
// classifier, so it demands the highest score.
func (a *Assistant) OpenApp(name string) {
	alias, err := a.open(name, DirectOpenThreshold)
	switch {
	case errors.Is(err, ErrNotFound):
		a.voice.Say(fmt.Sprintf("Application '%s' non trouvée.", name))
	case err == nil:
		a.voice.Say(fmt.Sprintf("Ouverture de %s...", alias))
	}
}

// open resolves name against the application index and launches it. Launch
// failures are announced here; ErrNotFound is left to the caller.
func (a *Assistant) open(name string, threshold int) (string, error) {
	m, ok := fuzzy.BestMatch(name, a.aliases)
	if !ok || !m.Above(threshold) {
		log.Info("No application matched", "query", name, "best", m.Candidate,
			"score", m.Score, "threshold", threshold)
		return "", ErrNotFound
	}

	cmd := a.apps[m.Candidate]
	log.Info("Opening application", "alias", m.Candidate, "cmd", cmd, "score", m.Score)

	if err := a.launcher.Launch(cmd); err != nil {
		log.Error("Failed to launch", "cmd", cmd, "err", err)
		a.voice.Say(fmt.Sprintf("Impossible de lancer %s.", m.Candidate))
		return "", err
	}

	return m.Candidate, nil
}

func (a *Assistant) search(query string) {
	u, youtube := media.SearchURL(query)
	if youtube {
		a.voice.Say(fmt.Sprintf("Recherche de '%s' sur YouTube...", query))
	} else {
		a.voice.Say(fmt.Sprintf("Recherche de '%s' sur internet...", query))
	}
	a.openURL(u)
}

func (a *Assistant) play(ctx context.Context, query string) {
	a.voice.Say(fmt.Sprintf("Lecture de '%s' sur YouTube...", query))
	a.openURL(a.player.Resolve(ctx, query))
}

func (a *Assistant) openURL(u string) {
	log.Info("Opening URL", "url", u)
	if err := a.browser.OpenURL(u); err != nil {
		log.Error("Failed to open browser", "err", err)
		a.voice.Say("Impossible d'ouvrir le navigateur.")
	}
}
