// Package config loads the optional parle.yaml file. Every field has a
// default, so running without a file is the common case.
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"parle/internal/apps"
	"parle/internal/ipc"
	"parle/internal/media"
	"parle/internal/nlu"
)

// Duration wraps time.Duration with YAML unmarshaling from strings like "10s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

type Config struct {
	Classifier ClassifierConfig `yaml:"classifier"`
	Apps       AppsConfig       `yaml:"apps"`
	Media      MediaConfig      `yaml:"media"`
	Speech     SpeechConfig     `yaml:"speech"`
	IPC        IPCConfig        `yaml:"ipc"`
	Bus        BusConfig        `yaml:"bus"`
	Proxy      ProxyConfig      `yaml:"proxy"`
}

type ClassifierConfig struct {
	APIKeyEnv string   `yaml:"api_key_env"` // environment variable holding the key
	BaseURL   string   `yaml:"base_url"`
	Model     string   `yaml:"model"`
	Timeout   Duration `yaml:"timeout"`
}

type AppsConfig struct {
	Dirs      []string          `yaml:"dirs"`
	Locale    string            `yaml:"locale"`
	Overrides map[string]string `yaml:"overrides"` // merged over the built-in aliases
}

type MediaConfig struct {
	YtDlp   string   `yaml:"yt_dlp"`
	Timeout Duration `yaml:"timeout"`
}

type SpeechConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Model     string   `yaml:"model"` // whisper ggml model
	Language  string   `yaml:"language"`
	Voice     string   `yaml:"voice"` // espeak-ng language
	Rate      int      `yaml:"rate"`
	Cue       string   `yaml:"cue"` // mp3 played before listening, empty for none
	Notify    bool     `yaml:"notify"` // desktop notification when listening starts
	Pause     Duration `yaml:"pause"`
	Duck      bool     `yaml:"duck"`
	Silence   Duration `yaml:"silence"`
	MaxLength Duration `yaml:"max_length"`
}

type IPCConfig struct {
	Socket string `yaml:"socket"`
}

type BusConfig struct {
	URL string `yaml:"url"`
}

type ProxyConfig struct {
	Socks   string   `yaml:"socks"`
	Timeout Duration `yaml:"timeout"`
}

const (
	DefaultAPIKeyEnv = "GROQ_API_KEY"
	DefaultModelPath = "models/ggml-base.bin"
	DefaultCuePath   = "beep.mp3"
)

func Default() *Config {
	return &Config{
		Classifier: ClassifierConfig{
			APIKeyEnv: DefaultAPIKeyEnv,
			BaseURL:   nlu.DefaultBaseURL,
			Model:     nlu.DefaultModel,
			Timeout:   Duration{nlu.DefaultTimeout},
		},
		Apps: AppsConfig{
			Dirs:      apps.DefaultDirs(),
			Locale:    "fr",
			Overrides: maps.Clone(apps.Defaults),
		},
		Media: MediaConfig{
			YtDlp:   media.DefaultYtDlp,
			Timeout: Duration{media.DefaultResolveTimeout},
		},
		Speech: SpeechConfig{
			Enabled:   true,
			Model:     DefaultModelPath,
			Language:  "fr",
			Voice:     "fr",
			Rate:      175,
			Cue:       DefaultCuePath,
			Pause:     Duration{500 * time.Millisecond},
			Duck:      true,
			Silence:   Duration{600 * time.Millisecond},
			MaxLength: Duration{10 * time.Second},
		},
		IPC: IPCConfig{Socket: ipc.DefaultSocketPath},
	}
}

// Load reads path over the defaults, expanding environment variables first.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Classifier.APIKeyEnv == "" {
		errs = append(errs, errors.New("classifier.api_key_env must not be empty"))
	}
	if cfg.Classifier.Timeout.Duration <= 0 {
		errs = append(errs, errors.New("classifier.timeout must be positive"))
	}
	if cfg.Media.Timeout.Duration <= 0 {
		errs = append(errs, errors.New("media.timeout must be positive"))
	}
	if cfg.Speech.Rate <= 0 {
		errs = append(errs, errors.New("speech.rate must be positive"))
	}
	if cfg.Speech.Pause.Duration < 0 {
		errs = append(errs, errors.New("speech.pause must not be negative"))
	}
	if cfg.Speech.Enabled && cfg.Speech.Model == "" {
		errs = append(errs, errors.New("speech.model is required when speech.enabled is true"))
	}
	if cfg.IPC.Socket == "" {
		errs = append(errs, errors.New("ipc.socket must not be empty"))
	}

	return errors.Join(errs...)
}
