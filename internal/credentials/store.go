// Package credentials keeps per-provider secrets and their validation state
// for the lifetime of the process.
//
// Every provider has its own entry lock, so validating two providers at once
// never contends. Writes to one provider serialize and the last one wins.
package credentials

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/agentoven/agentdesk/pkg/models"
)

var (
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrStaleCredential is returned when a validation result refers to a
	// secret that has since been replaced or removed.
	ErrStaleCredential = errors.New("credential changed since it was tested")
)

type entry struct {
	mu   sync.Mutex
	cred models.Credential
}

// Store is an in-memory credential store keyed by provider id.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time

	// revisions are store-wide so a removed and re-added credential never
	// reuses a revision number.
	revisions atomic.Uint64
}

func NewStore() *Store {
	return &Store{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

func (s *Store) lookup(providerID string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[providerID]
	return e, ok
}

// Set stores a secret, clearing any previous validation state. It returns the
// new revision of the credential.
func (s *Store) Set(providerID, secret string) uint64 {
	s.mu.Lock()
	e, ok := s.entries[providerID]
	if !ok {
		e = &entry{cred: models.Credential{ProviderID: providerID}}
		s.entries[providerID] = e
	}
	// Held together with the membership lock so a concurrent Remove cannot
	// orphan this entry mid-write.
	e.mu.Lock()
	s.mu.Unlock()
	defer e.mu.Unlock()

	e.cred.Secret = secret
	e.cred.Validated = false
	e.cred.LastLatencyMs = nil
	e.cred.LastError = ""
	e.cred.Revision = s.revisions.Add(1)
	e.cred.UpdatedAt = s.now()

	log.Info().EmbedObject(View(e.cred)).Msg("Credential stored")
	return e.cred.Revision
}

// Get returns a copy of the stored credential.
func (s *Store) Get(providerID string) (models.Credential, bool) {
	e, ok := s.lookup(providerID)
	if !ok {
		return models.Credential{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyCredential(e.cred), true
}

// Secret returns only the secret and its revision.
func (s *Store) Secret(providerID string) (string, uint64, bool) {
	e, ok := s.lookup(providerID)
	if !ok {
		return "", 0, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cred.Secret, e.cred.Revision, e.cred.Secret != ""
}

// Remove deletes the credential. Removing an absent credential is a no-op.
func (s *Store) Remove(providerID string) {
	s.mu.Lock()
	e, ok := s.entries[providerID]
	delete(s.entries, providerID)
	s.mu.Unlock()

	if ok {
		e.mu.Lock()
		e.cred.Revision = s.revisions.Add(1)
		e.mu.Unlock()
		log.Info().Str("provider", providerID).Msg("Credential removed")
	}
}

// MarkValidated records a successful round-trip for the given revision.
func (s *Store) MarkValidated(providerID string, revision uint64, latencyMs int64) error {
	return s.update(providerID, revision, func(c *models.Credential) {
		c.Validated = true
		c.LastLatencyMs = &latencyMs
		c.LastError = ""
	})
}

// MarkInvalid records a failed round-trip for the given revision.
func (s *Store) MarkInvalid(providerID string, revision uint64, message string) error {
	return s.update(providerID, revision, func(c *models.Credential) {
		c.Validated = false
		c.LastLatencyMs = nil
		c.LastError = message
	})
}

func (s *Store) update(providerID string, revision uint64, fn func(*models.Credential)) error {
	e, ok := s.lookup(providerID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrCredentialNotFound, providerID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cred.Revision != revision {
		return fmt.Errorf("%w: %s (tested revision %d, current %d)",
			ErrStaleCredential, providerID, revision, e.cred.Revision)
	}
	fn(&e.cred)
	e.cred.UpdatedAt = s.now()
	log.Debug().EmbedObject(View(e.cred)).Msg("Credential validation state updated")
	return nil
}

// List returns a copy of every stored credential ordered by provider id.
func (s *Store) List() []models.Credential {
	s.mu.RLock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)

	out := make([]models.Credential, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.Get(id); ok {
			out = append(out, c)
		}
	}
	return out
}

func copyCredential(c models.Credential) models.Credential {
	cp := c
	if c.LastLatencyMs != nil {
		v := *c.LastLatencyMs
		cp.LastLatencyMs = &v
	}
	return cp
}

// ── Presentation ─────────────────────────────────────────────

// View wraps a credential for logging. The secret is never written.
type View models.Credential

func (v View) MarshalZerologObject(e *zerolog.Event) {
	e.Str("provider", v.ProviderID).
		Bool("validated", v.Validated).
		Uint64("revision", v.Revision)
	if v.LastLatencyMs != nil {
		e.Int64("latency_ms", *v.LastLatencyMs)
	}
	if v.LastError != "" {
		e.Str("last_error", v.LastError)
	}
}

// Mask hides all but a short prefix and suffix of a secret.
func Mask(secret string) string {
	r := []rune(secret)
	switch {
	case len(r) == 0:
		return ""
	case len(r) <= 8:
		return "••••••••"
	default:
		return string(r[:4]) + "••••" + string(r[len(r)-4:])
	}
}

// Masked returns a copy of c with the secret masked.
func Masked(c models.Credential) models.Credential {
	c = copyCredential(c)
	c.Secret = Mask(c.Secret)
	return c
}

// SeedFromEnv stores the secret found in each provider's CredentialEnv
// variable. It returns the number of credentials seeded.
func (s *Store) SeedFromEnv(providers []models.Provider, lookup func(string) (string, bool)) int {
	n := 0
	for _, p := range providers {
		if p.CredentialEnv == "" {
			continue
		}
		if v, ok := lookup(p.CredentialEnv); ok && v != "" {
			s.Set(p.ID, v)
			n++
		}
	}
	return n
}
