// Package setup wires the assistant from configuration for the parle
// binaries.
package setup

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	log "log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"parle/internal/apps"
	"parle/internal/assistant"
	"parle/internal/config"
	"parle/internal/launch"
	"parle/internal/legacy"
	"parle/internal/media"
	"parle/internal/nlu"
	"parle/internal/proxy"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

// Logger installs a tint handler writing to w as the default logger.
func Logger(w io.Writer, level string) error {
	lvl, ok := logLevelMap[level]
	if !ok {
		return fmt.Errorf("unknown log level %q", level)
	}

	log.SetDefault(log.New(tint.NewHandler(w, &tint.Options{
		Level: lvl,
	})))
	return nil
}

// Env loads the .env file at path into the process environment. A missing
// file is not an error.
func Env(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug("No env file", "path", path)
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Classifier builds the remote classifier. The key is read from the
// environment variable named in cfg.Classifier; without it the classifier is
// disabled, not broken.
func Classifier(cfg *config.Config) (*nlu.Classifier, error) {
	httpClient, err := proxy.NewSocksClient(cfg.Proxy.Socks, cfg.Proxy.Timeout.Duration)
	if err != nil {
		return nil, fmt.Errorf("proxy %s: %w", cfg.Proxy.Socks, err)
	}
	if httpClient != nil {
		log.Debug("Classifier goes through proxy", "proxy", cfg.Proxy.Socks)
	}

	return nlu.New(nlu.Config{
		APIKey:     os.Getenv(cfg.Classifier.APIKeyEnv),
		BaseURL:    cfg.Classifier.BaseURL,
		Model:      cfg.Classifier.Model,
		Timeout:    cfg.Classifier.Timeout.Duration,
		HTTPClient: httpClient,
	}), nil
}

// Assistant builds the application index and the dispatcher around voice.
func Assistant(cfg *config.Config, remote *nlu.Classifier, voice assistant.Speaker) *assistant.Assistant {
	index := apps.Build(apps.Options{
		Dirs:      cfg.Apps.Dirs,
		Locale:    cfg.Apps.Locale,
		Overrides: cfg.Apps.Overrides,
	})

	return assistant.New(assistant.Deps{
		Apps:     index,
		Remote:   remote,
		Fallback: legacy.Classifier{},
		Voice:    voice,
		Launcher: launch.Shell{},
		Browser:  launch.Desktop{},
		Player: media.Player{
			YtDlp:   cfg.Media.YtDlp,
			Timeout: cfg.Media.Timeout.Duration,
		},
	})
}
