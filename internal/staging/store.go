package staging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abdulahad-2/Sage-video-downloader/pkg/logger"
	"github.com/google/uuid"
)

var log = logger.Get("StagingStore")

// ErrInvalidName is returned when a requested artifact name fails safe
// resolution (traversal segments, separators, absolute paths). It is
// deliberately distinct from the os.ErrNotExist case so the API layer
// can report a malformed name differently to a missing artifact.
var ErrInvalidName = errors.New("artifact name is not valid")

type Config struct {
	DirPath            string `yaml:"staging_dir" env:"STAGING_DIR"`
	EvictionSeconds    int    `yaml:"eviction_seconds" env:"EVICTION_SECONDS" env-default:"900"`
	ForcedGraceSeconds int    `yaml:"forced_grace_seconds" env:"FORCED_GRACE_SECONDS" env-default:"60"`
	SweepSchedule      string `yaml:"sweep_schedule" env:"SWEEP_SCHEDULE" env-default:"@every 5m"`
	FilenameByteLimit  int    `yaml:"filename_byte_limit" env:"FILENAME_BYTE_LIMIT" env-default:"255"`
}

func (config *Config) EvictionDelay() time.Duration {
	return time.Second * time.Duration(config.EvictionSeconds)
}

func (config *Config) ForcedGraceDelay() time.Duration {
	return time.Second * time.Duration(config.ForcedGraceSeconds)
}

// Store is the staging area which holds ephemeral artifacts between
// acquisition and eviction. Artifacts are identified by opaque names
// which are generated randomly, so the store has no namespace invariant
// to protect with locking; uniqueness holds by construction.
type Store struct {
	root      string
	nameLimit int
}

// New validates the staging directory (creating it if missing) and
// returns a Store rooted there. If the path exists but is a regular
// file, an error is returned.
func New(config Config) (*Store, error) {
	root, err := filepath.Abs(config.DirPath)
	if err != nil {
		return nil, fmt.Errorf("staging path '%s' could not be resolved: %w", config.DirPath, err)
	}

	if info, err := os.Stat(root); err == nil {
		if !info.IsDir() {
			return nil, fmt.Errorf("staging path '%s' is not a directory", root)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(root, os.ModeDir|os.ModePerm); err != nil {
			return nil, fmt.Errorf("staging path '%s' could not be created: %w", root, err)
		}
	} else {
		return nil, fmt.Errorf("staging path '%s' could not be accessed: %w", root, err)
	}

	limit := config.FilenameByteLimit
	if limit <= 0 {
		limit = 255
	}

	return &Store{root: root, nameLimit: limit}, nil
}

func (store *Store) Root() string {
	return store.root
}

// NewToken generates the random portion of a fresh artifact name. The
// token is a v4 UUID, so names are unguessable and non-enumerable, and
// carry no information about the request or the source media.
func (store *Store) NewToken() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// NewArtifactName combines a fresh token with the given extension,
// truncating the token (never the extension) if the configured
// filename byte limit demands it.
func (store *Store) NewArtifactName(ext string) string {
	token := store.NewToken()
	suffix := ""
	if ext != "" {
		suffix = "." + strings.TrimPrefix(ext, ".")
	}

	if over := len(token) + len(suffix) - store.nameLimit; over > 0 && over < len(token) {
		token = token[:len(token)-over]
	}

	return token + suffix
}

// ResolveSafe canonicalizes the requested artifact name and returns the
// absolute path it denotes inside the store root. Any name which is
// empty, contains a path separator or traversal segment, or whose
// canonical form would escape the root is rejected with ErrInvalidName.
func (store *Store) ResolveSafe(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return "", ErrInvalidName
	}
	if strings.ContainsAny(name, "/\\") || filepath.IsAbs(name) {
		return "", ErrInvalidName
	}

	path := filepath.Join(store.root, filepath.Clean(name))
	rel, err := filepath.Rel(store.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrInvalidName
	}

	return path, nil
}

// Exists reports whether the named artifact currently resolves to a
// regular file inside the store.
func (store *Store) Exists(name string) bool {
	path, err := store.ResolveSafe(name)
	if err != nil {
		return false
	}

	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Delete removes the named artifact. Deleting an artifact which is
// already absent is not an error; eviction tasks race freely on the
// same name and rely on this idempotence.
func (store *Store) Delete(name string) error {
	path, err := store.ResolveSafe(name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete artifact '%s': %w", name, err)
	}

	return nil
}

// FindByToken returns the name of the artifact whose filename begins
// with the given token, or an empty string if none exists. Acquisition
// writes through an extension-templated output path, so the final
// extension is only known once the transfer completes.
func (store *Store) FindByToken(token string) string {
	entries, err := os.ReadDir(store.root)
	if err != nil {
		return ""
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), token) {
			return entry.Name()
		}
	}

	return ""
}

// SweepOlderThan deletes every staged file whose modification time is
// older than the provided age, returning the number removed. This is
// the recovery path for artifacts orphaned by a crash between
// materialization and eviction scheduling.
func (store *Store) SweepOlderThan(age time.Duration) int {
	entries, err := os.ReadDir(store.root)
	if err != nil {
		log.Emit(logger.ERROR, "Sweep of staging dir failed: %v\n", err)
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if time.Since(info.ModTime()) > age {
			if err := store.Delete(entry.Name()); err != nil {
				log.Emit(logger.WARNING, "Sweep could not remove '%s': %v\n", entry.Name(), err)
				continue
			}

			removed++
		}
	}

	return removed
}
