// Package reconcile brings the state document into agreement with what
// is physically present in the base locale's translation files, and
// propagates structural changes to every tracked locale.
package reconcile

import (
	"fmt"
	"os"
	"time"

	"github.com/lingokit/lingokit/flatten"
	"github.com/lingokit/lingokit/state"
	"github.com/lingokit/lingokit/transfile"
)

// Options controls a reconciliation run.
type Options struct {
	// State is the document to reconcile. Mutated in place.
	State *state.State
	// StatePath, when set, is where the document is persisted if the
	// run produced any mutation. Left empty, the caller persists.
	StatePath string
	// Now supplies timestamps; defaults to time.Now.
	Now func() time.Time
	// OnLog emits informational messages.
	OnLog func(format string, args ...any)
	// OnWarn emits recoverable problems (unreadable locale dirs).
	OnWarn func(format string, args ...any)
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) warn(format string, args ...any) {
	if o.OnWarn != nil {
		o.OnWarn(format, args...)
	}
}

func (o *Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now().UTC()
}

// Result summarizes what a run changed.
type Result struct {
	// Added counts base keys seen for the first time.
	Added int
	// Updated counts base keys whose content changed.
	Updated int
	// Removed counts keys that vanished from the base locale and were
	// deleted from every locale's metadata.
	Removed int
	// Seeded counts (locale, key) pairs newly marked as owed.
	Seeded int
	// NewLocales lists locale directories discovered this run.
	NewLocales []string
	// Changed reports whether this run mutated the state document.
	Changed bool
}

// Run executes one reconciliation pass. Malformed JSON in a base file
// aborts the run with an error naming the file; a missing base
// directory is created and treated as empty.
func Run(opts Options) (*Result, error) {
	st := opts.State
	res := &Result{}
	now := opts.now()

	baseDir := transfile.LocaleDir(st.TranslationsPath, st.BaseLocale)
	namespaces, err := transfile.Namespaces(baseDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading base locale directory %s: %w", baseDir, err)
		}
		if mkErr := os.MkdirAll(baseDir, 0755); mkErr != nil {
			return nil, fmt.Errorf("creating base locale directory %s: %w", baseDir, mkErr)
		}
		opts.log("Created base locale directory %s", baseDir)
		namespaces = nil
	}

	// Flatten every base file into one combined key/value view.
	current := make(map[string]string)
	var order []string
	for _, ns := range namespaces {
		doc, err := transfile.ReadFile(transfile.Path(st.TranslationsPath, st.BaseLocale, ns))
		if err != nil {
			return nil, err
		}
		for _, e := range flatten.Flatten(ns, doc) {
			if _, seen := current[e.Key]; !seen {
				order = append(order, e.Key)
			}
			current[e.Key] = e.Value
		}
	}

	baseCreated := st.Locale(st.BaseLocale) == nil
	base := st.EnsureLocale(st.BaseLocale)

	// Record additions and content changes. Empty values are treated
	// as "no content observed" and never recorded or propagated.
	for _, key := range order {
		value := current[key]
		if value == "" {
			continue
		}
		meta, tracked := base.Keys.Get(key)
		switch {
		case !tracked:
			st.TouchValue(st.BaseLocale, key, now, value)
			res.Added++
		case meta.Current != value:
			st.TouchValue(st.BaseLocale, key, now, value)
			res.Updated++
		}
	}

	// Keys tracked in the base but gone from its files are dead
	// everywhere. Removal wins over anything observed later this run.
	removed := make(map[string]bool)
	for _, key := range append([]string(nil), base.Keys.Ordered()...) {
		if _, present := current[key]; !present {
			removed[key] = true
		}
	}
	for key := range removed {
		st.RemoveKey(key)
		res.Removed++
	}

	// Discover locale directories and seed owed keys. Locales already
	// tracked in the document are seeded even when their directory is
	// gone from disk; deleting a directory does not untrack a locale.
	locales, err := transfile.Locales(st.TranslationsPath)
	if err != nil {
		opts.warn("Cannot enumerate locales in %s: %v", st.TranslationsPath, err)
		locales = nil
	}
	onDisk := make(map[string]bool, len(locales))
	for _, code := range locales {
		onDisk[code] = true
	}
	for _, le := range st.Locales {
		if !onDisk[le.Code] {
			locales = append(locales, le.Code)
		}
	}
	for _, code := range locales {
		if code == st.BaseLocale {
			continue
		}
		if st.Locale(code) == nil {
			res.NewLocales = append(res.NewLocales, code)
			opts.log("Discovered locale %s", code)
		}
		le := st.EnsureLocale(code)
		for _, key := range base.Keys.Ordered() {
			if removed[key] || le.Keys.Has(key) {
				continue
			}
			st.Touch(code, key, now)
			res.Seeded++
		}
	}

	// Per-run accounting, not the document's cumulative dirty flag: in
	// caller-persists mode nothing ever clears that flag, so a no-op
	// second run would otherwise still report a change.
	res.Changed = baseCreated ||
		res.Added+res.Updated+res.Removed+res.Seeded > 0 ||
		len(res.NewLocales) > 0
	if res.Changed && opts.StatePath != "" {
		if err := st.Save(opts.StatePath); err != nil {
			return nil, err
		}
	}
	return res, nil
}
