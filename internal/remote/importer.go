// Package remote imports rule sets from operator-supplied URLs, gated by the
// remote-fetch feature flag and the trusted-domain whitelist.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"autoresponder/internal/common/errors"
	"autoresponder/internal/common/logging"
	"autoresponder/internal/rules"
	"autoresponder/internal/settings"
)

// maxBodySize caps a fetched rule document at 1 MiB. Remote rule files are a
// few KiB in practice; anything larger is not a rule set.
const maxBodySize = 1 << 20

// ImportResult summarizes a completed or previewed import.
type ImportResult struct {
	URL         string `json:"url"`
	Fetched     int    `json:"fetched"`
	Added       int    `json:"added"`
	Overwritten int    `json:"overwritten"`
	Total       int    `json:"total"`
	Committed   bool   `json:"committed"`
}

// Importer fetches, validates and merges remote rule sets. Fetches go
// through a circuit breaker so a misbehaving remote cannot be hammered by
// repeated import attempts or the refresh schedule.
type Importer struct {
	store    *rules.Store
	settings *settings.Store
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
	logger   logging.Logger
}

// NewImporter creates an importer. client may be nil, in which case a
// 30-second-timeout client is used.
func NewImporter(store *rules.Store, settingsStore *settings.Store, client *http.Client, logger logging.Logger) *Importer {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "remote-rule-fetch",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Importer{
		store:    store,
		settings: settingsStore,
		client:   client,
		breaker:  breaker,
		logger:   logger,
	}
}

// Preview fetches and validates a remote rule set and merges it against the
// current rules without persisting anything, so an operator can inspect the
// outcome before committing untrusted input.
func (i *Importer) Preview(ctx context.Context, rawURL string) (*ImportResult, error) {
	incoming, err := i.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	merged := rules.Merge(i.store.Rules(), incoming)
	return &ImportResult{
		URL:         rawURL,
		Fetched:     len(incoming),
		Added:       merged.Added,
		Overwritten: merged.Overwritten,
		Total:       len(merged.Rules),
	}, nil
}

// Import fetches a remote rule set, merges it into the current rules,
// persists the merged set to the durable rule file and swaps it in. No
// failure path mutates durable state.
func (i *Importer) Import(ctx context.Context, rawURL string) (*ImportResult, error) {
	incoming, err := i.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	merged := rules.Merge(i.store.Rules(), incoming)

	if err := i.store.Save(merged.Rules); err != nil {
		return nil, err
	}
	i.store.SetRules(merged.Rules)

	i.logger.Info("Imported remote rules",
		logging.String("url", rawURL),
		logging.Int("added", merged.Added),
		logging.Int("overwritten", merged.Overwritten),
	)

	return &ImportResult{
		URL:         rawURL,
		Fetched:     len(incoming),
		Added:       merged.Added,
		Overwritten: merged.Overwritten,
		Total:       len(merged.Rules),
		Committed:   true,
	}, nil
}

// fetch applies the gates in order: feature flag, URL shape, whitelist,
// breaker-wrapped HTTP fetch, parse, validation. Every failure class gets
// its own user-facing message.
func (i *Importer) fetch(ctx context.Context, rawURL string) ([]*rules.Rule, error) {
	if !i.settings.Current().RemoteFetchEnabled {
		return nil, errors.RemoteError("remote rule fetching is disabled", nil)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return nil, errors.RemoteError(fmt.Sprintf("invalid rule URL %q", rawURL), err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.RemoteError(fmt.Sprintf("unsupported URL scheme %q", parsed.Scheme), nil)
	}

	if !i.settings.IsTrusted(parsed.Hostname()) {
		return nil, errors.RemoteError(fmt.Sprintf("host %q is not in the trusted domain list", parsed.Hostname()), nil)
	}

	body, err := i.breaker.Execute(func() (interface{}, error) {
		return i.doFetch(ctx, rawURL)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, errors.RemoteError("remote fetch temporarily suspended after repeated failures", err)
		}
		return nil, err
	}

	var doc interface{}
	if err := json.Unmarshal(body.([]byte), &doc); err != nil {
		return nil, errors.RemoteError("remote rule set is not valid JSON", err)
	}

	incoming, err := rules.FromDocument(doc)
	if err != nil {
		return nil, errors.RemoteError("remote rule set failed validation", err)
	}

	return incoming, nil
}

func (i *Importer) doFetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.RemoteError("failed to build rule fetch request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, errors.RemoteError("failed to fetch remote rule set", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.RemoteError(fmt.Sprintf("remote returned status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.RemoteError("failed to read remote rule set", err)
	}

	return body, nil
}
