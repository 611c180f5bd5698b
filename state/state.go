// Package state implements the persisted translation freshness document
// and the staleness operations over it.
//
// The document is a single JSON file tracking, per locale and per
// namespaced key, when that key's content last changed. The base
// locale's entry is the source of truth for which keys exist; a key
// absent from another locale's entry means "not yet translated", not
// an error. The whole document is loaded at the start of a run, mutated
// in memory, and written back once at the end.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lingokit/lingokit/langmeta"
)

// Version is the state document format version.
const Version = 1

// ErrNoState reports that no state document exists yet. Callers surface
// it as a user-actionable condition (run `lingokit init`), not as a
// generic I/O failure.
var ErrNoState = errors.New("no state document found")

// KeyMeta is the freshness record for one (locale, key) pair.
type KeyMeta struct {
	// LastModified is when the key's content last changed for this
	// locale. Monotonically non-decreasing.
	LastModified time.Time `json:"lastModified"`
	// Current caches the key's last known value so the reconciler can
	// tell content changes from mere presence. Empty means no value
	// has been recorded.
	Current string `json:"current,omitempty"`
}

// LocaleEntry tracks one locale known to the system.
type LocaleEntry struct {
	Code        string  `json:"code"`
	EnglishName string  `json:"englishName"`
	LocalName   string  `json:"localName"`
	Keys        *KeyMap `json:"keys"`
}

// State is the single persisted document.
type State struct {
	Version          int            `json:"version"`
	BaseLocale       string         `json:"baseLocale"`
	TranslationsPath string         `json:"translationsPath"`
	Locales          []*LocaleEntry `json:"locales"`

	dirty bool
}

// New creates an initial state document with an empty locale list.
func New(baseLocale, translationsPath string) *State {
	return &State{
		Version:          Version,
		BaseLocale:       baseLocale,
		TranslationsPath: translationsPath,
	}
}

// Load reads the state document from path. A missing file yields
// ErrNoState; malformed JSON propagates with the offending path.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNoState, path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for _, le := range s.Locales {
		if le.Keys == nil {
			le.Keys = NewKeyMap()
		}
	}
	return &s, nil
}

// Save writes the whole document to path as formatted JSON. Saving
// clears the dirty flag.
func (s *State) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	s.dirty = false
	return nil
}

// Dirty reports whether the document has unpersisted mutations.
func (s *State) Dirty() bool { return s.dirty }

// MarkDirty forces the dirty flag, for callers that mutate entries
// directly.
func (s *State) MarkDirty() { s.dirty = true }

// Locale returns the entry for code, or nil if untracked.
func (s *State) Locale(code string) *LocaleEntry {
	for _, le := range s.Locales {
		if le.Code == code {
			return le
		}
	}
	return nil
}

// Base returns the base locale's entry, or nil before the first sync.
func (s *State) Base() *LocaleEntry {
	return s.Locale(s.BaseLocale)
}

// EnsureLocale returns the entry for code, creating one with looked-up
// display names if absent.
func (s *State) EnsureLocale(code string) *LocaleEntry {
	if le := s.Locale(code); le != nil {
		return le
	}
	meta := langmeta.Resolve(code)
	le := &LocaleEntry{
		Code:        code,
		EnglishName: meta.EnglishName,
		LocalName:   meta.LocalName,
		Keys:        NewKeyMap(),
	}
	s.Locales = append(s.Locales, le)
	s.dirty = true
	return le
}

// Touch bumps the timestamp for (locale, key) without recording a
// value. Used to re-confirm presence and to seed untranslated keys for
// newly tracked locales. Timestamps only move forward.
func (s *State) Touch(locale, key string, ts time.Time) {
	le := s.EnsureLocale(locale)
	meta, ok := le.Keys.Get(key)
	if !ok {
		le.Keys.Set(key, KeyMeta{LastModified: ts})
		s.dirty = true
		return
	}
	if ts.After(meta.LastModified) {
		meta.LastModified = ts
		le.Keys.Set(key, meta)
		s.dirty = true
	}
}

// TouchValue records observed content for (locale, key). When value
// equals the stored current value the call is a no-op, so repeated
// syncs of unchanged content never manufacture staleness.
func (s *State) TouchValue(locale, key string, ts time.Time, value string) {
	le := s.EnsureLocale(locale)
	meta, ok := le.Keys.Get(key)
	if ok && meta.Current == value {
		return
	}
	if ok && !ts.After(meta.LastModified) {
		// Content changed but the clock did not advance; keep the
		// stored timestamp so it never moves backwards.
		ts = meta.LastModified
	}
	le.Keys.Set(key, KeyMeta{LastModified: ts, Current: value})
	s.dirty = true
}

// RemoveKey deletes key from every tracked locale's metadata.
func (s *State) RemoveKey(key string) {
	for _, le := range s.Locales {
		if le.Keys.Delete(key) {
			s.dirty = true
		}
	}
}

// IsStale reports whether locale's copy of key is older than the base
// locale's, or missing entirely. Keys the base locale does not track
// are never stale.
func (s *State) IsStale(locale, key string) bool {
	base := s.Base()
	if base == nil {
		return false
	}
	baseMeta, ok := base.Keys.Get(key)
	if !ok {
		return false
	}
	le := s.Locale(locale)
	if le == nil {
		return true
	}
	meta, ok := le.Keys.Get(key)
	if !ok {
		return true
	}
	return baseMeta.LastModified.After(meta.LastModified)
}

// StaleKey is one entry in the staleness report. LocaleModified is nil
// when the target locale has no record of the key at all.
type StaleKey struct {
	Locale         string
	Key            string
	BaseModified   time.Time
	LocaleModified *time.Time
}

// Diff returns every stale (locale, key) pair: locales in document
// order, keys in the base locale's stored order. This report drives
// both the status command and work accounting.
func (s *State) Diff() []StaleKey {
	base := s.Base()
	if base == nil {
		return nil
	}

	var report []StaleKey
	for _, le := range s.Locales {
		if le.Code == s.BaseLocale {
			continue
		}
		for _, key := range base.Keys.Ordered() {
			if !s.IsStale(le.Code, key) {
				continue
			}
			baseMeta, _ := base.Keys.Get(key)
			sk := StaleKey{
				Locale:       le.Code,
				Key:          key,
				BaseModified: baseMeta.LastModified,
			}
			if meta, ok := le.Keys.Get(key); ok {
				ts := meta.LastModified
				sk.LocaleModified = &ts
			}
			report = append(report, sk)
		}
	}
	return report
}
