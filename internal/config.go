package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdulahad-2/Sage-video-downloader/internal/acquire"
	"github.com/abdulahad-2/Sage-video-downloader/internal/api"
	"github.com/abdulahad-2/Sage-video-downloader/internal/ffmpeg"
	"github.com/abdulahad-2/Sage-video-downloader/internal/staging"
	"github.com/ilyakaznacheev/cleanenv"
	homedir "github.com/mitchellh/go-homedir"
)

const sageDirSuffix = "sage"

// SageConfig is the single configuration struct constructed at startup
// and injected into each component; nothing reads ambient global state.
type SageConfig struct {
	Staging staging.Config `yaml:"staging"`
	Acquire acquire.Config `yaml:"acquire"`
	Ffmpeg  ffmpeg.Config  `yaml:"ffmpeg"`
	Rest    api.RestConfig `yaml:"api"`
}

// LoadFromFile populates the config from a YAML file merged with
// environment variable overrides. When no file path is given only the
// environment (and tag defaults) are consulted.
func (config *SageConfig) LoadFromFile(configPath string) error {
	if configPath == "" {
		if err := cleanenv.ReadEnv(config); err != nil {
			return fmt.Errorf("failed to load configuration from environment: %w", err)
		}
	} else if err := cleanenv.ReadConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to load configuration from '%s': %w", configPath, err)
	}

	return config.normalise()
}

// normalise expands and defaults the staging directory. A '~' prefix is
// expanded to the user's home; an empty path falls back to a directory
// under the user cache dir.
func (config *SageConfig) normalise() error {
	if config.Staging.DirPath == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			return fmt.Errorf("failed to derive default staging dir: %w", err)
		}

		config.Staging.DirPath = filepath.Join(dir, sageDirSuffix, "staging")
		return nil
	}

	expanded, err := homedir.Expand(config.Staging.DirPath)
	if err != nil {
		return fmt.Errorf("failed to expand staging dir '%s': %w", config.Staging.DirPath, err)
	}

	config.Staging.DirPath = expanded
	return nil
}
