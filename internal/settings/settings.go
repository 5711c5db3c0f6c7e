// Package settings owns the durable plugin settings file: debug logging,
// remote rule fetching and its trusted-domain whitelist, plus the standalone
// host bridge configuration (known channels and bot nicknames per network).
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"autoresponder/internal/common/errors"
	"autoresponder/internal/common/logging"
)

// Settings is the on-disk settings document.
type Settings struct {
	// Debug enables debug-level engine logging.
	Debug bool `json:"debug"`
	// RemoteFetchEnabled gates remote rule imports entirely.
	RemoteFetchEnabled bool `json:"remote_fetch_enabled"`
	// TrustedDomains whitelists hostnames rule sets may be fetched from.
	TrustedDomains []string `json:"trusted_domains"`
	// Subscriptions lists rule-set URLs re-fetched on the refresh schedule.
	Subscriptions []string `json:"subscriptions,omitempty"`
	// Nicknames maps network identifier to the bot's current nickname there.
	Nicknames map[string]string `json:"nicknames,omitempty"`
	// Channels maps network identifier to the channels known on it.
	Channels map[string][]string `json:"channels,omitempty"`
}

// Default returns the settings used when no file exists or it cannot be
// parsed: everything off, nothing trusted.
func Default() Settings {
	return Settings{
		Debug:              false,
		RemoteFetchEnabled: false,
		TrustedDomains:     []string{},
	}
}

// Store owns the current settings and their durable file.
type Store struct {
	path   string
	logger logging.Logger

	mu       sync.RWMutex
	current  Settings
	onReload []func(Settings)
}

// NewStore creates a settings store backed by the given file path. The
// in-memory settings start at Default until Load is called.
func NewStore(path string, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Store{
		path:    path,
		logger:  logger,
		current: Default(),
	}
}

// Path returns the durable settings file path.
func (s *Store) Path() string {
	return s.path
}

// Current returns a copy of the active settings.
func (s *Store) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// OnReload registers a hook invoked with the new settings every time they
// are replaced.
func (s *Store) OnReload(fn func(Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReload = append(s.onReload, fn)
}

// Load reads the settings file. A missing or unparseable file is recovered
// locally by falling back to defaults; both cases are logged and the error
// returned so an interactive caller can surface it.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.apply(Default())
		if os.IsNotExist(err) {
			s.logger.Warn("Settings file does not exist, using defaults", logging.String("path", s.path))
			return errors.NotFoundError("settings file").WithContext("path", s.path)
		}
		s.logger.Error("Failed to read settings file, using defaults", err, logging.String("path", s.path))
		return errors.ConfigError("failed to read settings file", err).WithContext("path", s.path)
	}

	var parsed Settings
	if err := json.Unmarshal(data, &parsed); err != nil {
		s.apply(Default())
		s.logger.Error("Failed to parse settings file, using defaults", err, logging.String("path", s.path))
		return errors.ConfigError("failed to parse settings file", err).WithContext("path", s.path)
	}

	s.apply(parsed)
	s.logger.Info("Loaded settings",
		logging.Bool("debug", parsed.Debug),
		logging.Bool("remote_fetch_enabled", parsed.RemoteFetchEnabled),
		logging.Int("trusted_domains", len(parsed.TrustedDomains)),
	)
	return nil
}

// Save writes settings to the durable file with whole-file replace
// semantics and swaps them in on success.
func (s *Store) Save(settings Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return errors.InternalError("failed to encode settings", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.PersistenceError("failed to create settings directory", err).WithContext("path", dir)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return errors.PersistenceError("failed to create temp settings file", err).WithContext("path", s.path)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.PersistenceError("failed to write settings file", err).WithContext("path", s.path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.PersistenceError("failed to close temp settings file", err).WithContext("path", s.path)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return errors.PersistenceError("failed to replace settings file", err).WithContext("path", s.path)
	}

	s.apply(settings)
	return nil
}

// IsTrusted reports whether a hostname is on the trusted-domain whitelist.
// Comparison is case-insensitive and exact.
func (s *Store) IsTrusted(host string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, domain := range s.current.TrustedDomains {
		if strings.EqualFold(domain, host) {
			return true
		}
	}
	return false
}

// Nickname implements respond.NicknameSource against the settings file.
func (s *Store) Nickname(server string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Nicknames[server]
}

func (s *Store) apply(settings Settings) {
	s.mu.Lock()
	s.current = settings
	hooks := make([]func(Settings), len(s.onReload))
	copy(hooks, s.onReload)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(settings)
	}
}
