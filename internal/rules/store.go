package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"autoresponder/internal/common/errors"
	"autoresponder/internal/common/logging"
)

// Notifier receives human-readable load/save outcomes for an interactive
// caller. It may be nil.
type Notifier func(message string)

// Store owns the canonical in-memory rule list and its on-disk
// representation. The list is mutated only through Load, SetRules and
// Bootstrap; matchers and dispatchers only ever see snapshots.
type Store struct {
	path   string
	logger logging.Logger

	mu       sync.RWMutex
	rules    []*Rule
	onReload []func()
}

// NewStore creates a rule store backed by the given file path.
func NewStore(path string, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Store{
		path:   path,
		logger: logger,
	}
}

// Path returns the durable rule file path.
func (s *Store) Path() string {
	return s.path
}

// Rules returns a snapshot of the current rule list. The returned slice is
// the caller's to keep; a reload never mutates it.
func (s *Store) Rules() []*Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]*Rule, len(s.rules))
	copy(snapshot, s.rules)
	return snapshot
}

// OnReload registers a hook invoked every time the rule set is replaced.
// The cooldown tracker registers its reset here so stale identities cannot
// leak across reloads.
func (s *Store) OnReload(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReload = append(s.onReload, fn)
}

// Bootstrap writes a default rule file containing a single example rule if
// no file exists yet. An existing file is never touched.
func (s *Store) Bootstrap() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return errors.PersistenceError("failed to stat rule file", err).WithContext("path", s.path)
	}

	example := []*Rule{
		{
			Server:        "ExampleNet",
			ListenChannel: "#example",
			TriggerText:   "^!ping\\b",
			ResponseText:  "pong, {{sender}}!",
		},
	}

	if err := s.Save(example); err != nil {
		return err
	}

	s.logger.Info("Bootstrapped default rule file", logging.String("path", s.path))
	return nil
}

// Load reads the durable rule file and replaces the in-memory rule set.
//
// There are three terminal outcomes: success (rules swapped, reload hooks
// fired, count reported), file-not-found, and parse/validation failure. On
// either failure the in-memory rules are left unchanged. All outcomes are
// logged, and reported through notify when one is supplied.
func (s *Store) Load(notify Notifier) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn("Rule file does not exist", logging.String("path", s.path))
			report(notify, fmt.Sprintf("Rule file %s does not exist.", s.path))
			return errors.NotFoundError("rule file").WithContext("path", s.path)
		}
		s.logger.Error("Failed to read rule file", err, logging.String("path", s.path))
		report(notify, fmt.Sprintf("Failed to read rule file: %v", err))
		return errors.ConfigError("failed to read rule file", err).WithContext("path", s.path)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Error("Failed to parse rule file", err, logging.String("path", s.path))
		report(notify, fmt.Sprintf("Failed to parse rule file: %v", err))
		return errors.ConfigError("failed to parse rule file", err).WithContext("path", s.path)
	}

	parsed, err := FromDocument(doc)
	if err != nil {
		s.logger.Error("Rule file failed validation", err, logging.String("path", s.path))
		report(notify, fmt.Sprintf("Rule file is invalid: %v", err))
		return err
	}

	s.SetRules(parsed)

	s.logger.Info("Loaded rules", logging.Int("count", len(parsed)), logging.String("path", s.path))
	report(notify, fmt.Sprintf("Loaded %d rule(s).", len(parsed)))
	return nil
}

// SetRules swaps the in-memory rule set and fires the reload hooks. The swap
// is atomic from the perspective of concurrent message handling: evaluations
// that captured the previous snapshot complete against it.
func (s *Store) SetRules(newRules []*Rule) {
	s.mu.Lock()
	s.rules = newRules
	hooks := make([]func(), len(s.onReload))
	copy(hooks, s.onReload)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

// Save serializes the given rule list to the durable rule file. The write is
// atomic from the caller's point of view: content goes to a temp file in the
// same directory which then replaces the target, so readers never observe a
// partial file. A failed save leaves the in-memory set authoritative; the
// error tells the initiating caller that memory and disk have diverged.
func (s *Store) Save(ruleList []*Rule) error {
	data, err := json.MarshalIndent(ruleList, "", "  ")
	if err != nil {
		return errors.InternalError("failed to encode rules", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.PersistenceError("failed to create rule directory", err).WithContext("path", dir)
	}

	tmp, err := os.CreateTemp(dir, ".rules-*.json")
	if err != nil {
		return errors.PersistenceError("failed to create temp rule file", err).WithContext("path", s.path)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.PersistenceError("failed to write rule file", err).WithContext("path", s.path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.PersistenceError("failed to close temp rule file", err).WithContext("path", s.path)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return errors.PersistenceError("failed to replace rule file", err).WithContext("path", s.path)
	}

	return nil
}

func report(notify Notifier, message string) {
	if notify != nil {
		notify(message)
	}
}
