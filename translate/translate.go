// Package translate implements the AI-assisted fill-in orchestrator:
// it determines which locale/key pairs are missing from the translation
// files, submits them to the remote translation service in bounded
// chunks, and commits results to the target files and the state
// document with write-then-touch ordering.
package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lingokit/lingokit/flatten"
	"github.com/lingokit/lingokit/state"
	"github.com/lingokit/lingokit/transfile"
)

// DefaultChunkSize bounds how many keys go into one remote request.
const DefaultChunkSize = 100

// SystemPrompt instructs the translation service. {{sourceLang}},
// {{targetLang}} and {{tone}} are substituted per request.
const SystemPrompt = `You are a professional translator specializing in software and product localization. You receive a JSON object mapping keys to UI strings in {{sourceLang}} and translate the values into {{targetLang}}.

TRANSLATION PRINCIPLES:
- Translate for naturalness and fluency in {{targetLang}}, not word-for-word
- Use established IT/software terminology standard in {{targetLang}}
- Keep brand names and proper nouns unchanged
- Tone: {{tone}}

TECHNICAL REQUIREMENTS:
- Translate ONLY the values. Never translate, rename, or omit keys.
- Preserve all variable tokens in double curly braces exactly as they appear in the source.
- Preserve leading/trailing whitespace, newlines, and punctuation patterns.
- Return ONLY a JSON object with exactly the same keys and translated values. No explanations, no markdown code blocks.`

// Options controls a translation run.
type Options struct {
	// Provider is the remote translation service configuration.
	Provider Provider
	// Context is free-text project context included with each request.
	Context string
	// Tone is the tone directive (default "professional").
	Tone string
	// ChunkSize is how many keys to translate per request.
	ChunkSize int
	// MaxConcurrent bounds concurrent locale tasks (fan-out is per
	// locale, not per chunk).
	MaxConcurrent int
	// RequestDelay is the delay between launching locale tasks.
	RequestDelay time.Duration
	// MaxRetries is the per-request retry budget.
	MaxRetries int
	// UpdateAll resubmits the entire base content instead of only the
	// keys missing from each target file.
	UpdateAll bool
	// Now supplies timestamps; defaults to time.Now.
	Now func() time.Time
	// OnProgress is called after each chunk with per-locale counts.
	OnProgress func(locale string, done, total int)
	// OnLog emits informational messages.
	OnLog func(format string, args ...any)
	// OnError emits per-chunk and per-file failures. These do not
	// abort the run.
	OnError func(format string, args ...any)
	// Verbose enables request-level logging.
	Verbose bool
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) effectiveChunkSize() int {
	if o.ChunkSize > 0 {
		return o.ChunkSize
	}
	return DefaultChunkSize
}

func (o *Options) effectiveMaxConcurrent() int {
	if o.MaxConcurrent > 0 {
		return o.MaxConcurrent
	}
	return 3
}

func (o *Options) effectiveMaxRetries() int {
	if o.MaxRetries > 0 {
		return o.MaxRetries
	}
	return 3
}

func (o *Options) effectiveTone() string {
	if o.Tone != "" {
		return o.Tone
	}
	return "professional"
}

func (o *Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now().UTC()
}

// Result summarizes a translation run.
type Result struct {
	// Translated counts keys written across all locales and files.
	Translated int
	// FailedChunks counts remote calls that yielded no translations.
	FailedChunks int
	// FailedFiles counts target files skipped due to read/write errors.
	FailedFiles int
}

// item is one unit of translation work within a namespace.
type item struct {
	relPath string // dot path within the file
	value   string // base locale text
}

// nsContent is the flattened base content of one namespace.
type nsContent struct {
	namespace string
	items     []item
}

// chunkResult is the outcome of one remote call. A failed chunk folds
// to "no additions" at the orchestrator boundary; the distinction stays
// visible to logs and tests.
type chunkResult struct {
	translations map[string]string
	err          error
}

// Run fills in missing or outdated translations for the given target
// locales. Target locales fan out concurrently; within one locale,
// files and chunks proceed sequentially. State is persisted once at the
// end, strictly after the file writes it describes.
func Run(ctx context.Context, st *state.State, statePath string, locales []string, opts Options) (*Result, error) {
	if err := opts.Provider.Validate(); err != nil {
		return nil, err
	}

	baseContent, err := loadBaseContent(st)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	if len(baseContent) == 0 || len(locales) == 0 {
		return res, nil
	}

	rl := &rateLimitState{}
	var mu sync.Mutex // guards st and res across locale workers

	runErr := runParallel(ctx, locales, opts.effectiveMaxConcurrent(), opts.RequestDelay, func(ctx context.Context, locale string) error {
		return translateLocale(ctx, st, baseContent, locale, opts, rl, &mu, res)
	})

	if st.Dirty() && statePath != "" {
		if err := st.Save(statePath); err != nil {
			return res, err
		}
	}
	return res, runErr
}

// loadBaseContent reads and flattens every base locale file once.
func loadBaseContent(st *state.State) ([]nsContent, error) {
	baseDir := transfile.LocaleDir(st.TranslationsPath, st.BaseLocale)
	namespaces, err := transfile.Namespaces(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading base locale directory %s: %w", baseDir, err)
	}

	var content []nsContent
	for _, ns := range namespaces {
		doc, err := transfile.ReadFile(transfile.Path(st.TranslationsPath, st.BaseLocale, ns))
		if err != nil {
			return nil, err
		}
		nc := nsContent{namespace: ns}
		prefix := ns + "."
		for _, e := range flatten.Flatten(ns, doc) {
			nc.items = append(nc.items, item{
				relPath: strings.TrimPrefix(e.Key, prefix),
				value:   e.Value,
			})
		}
		content = append(content, nc)
	}
	return content, nil
}

// translateLocale processes every namespace for one target locale.
func translateLocale(ctx context.Context, st *state.State, baseContent []nsContent, locale string, opts Options, rl *rateLimitState, mu *sync.Mutex, res *Result) error {
	total := 0
	done := 0
	work := make([][]item, len(baseContent))
	docs := make([]*flatten.Value, len(baseContent))

	for i, nc := range baseContent {
		path := transfile.Path(st.TranslationsPath, locale, nc.namespace)
		doc, err := transfile.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				doc = flatten.NewNode()
			} else {
				opts.logError("Skipping %s: %v", path, err)
				mu.Lock()
				res.FailedFiles++
				mu.Unlock()
				continue
			}
		}
		docs[i] = doc
		work[i] = selectWork(nc, doc, opts.UpdateAll)
		total += len(work[i])
	}

	if total == 0 {
		opts.log("%s: up to date", locale)
		return nil
	}
	opts.log("Translating %s — %d keys...", locale, total)

	for i, nc := range baseContent {
		if len(work[i]) == 0 || docs[i] == nil {
			continue
		}

		translated := make(map[string]string)
		for ci, chunk := range splitItems(work[i], opts.effectiveChunkSize()) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			outcome := translateChunk(ctx, st.BaseLocale, locale, nc.namespace, chunk, opts, rl)
			if outcome.err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				opts.logError("Chunk %d failed for %s/%s.json: %v", ci+1, locale, nc.namespace, outcome.err)
				mu.Lock()
				res.FailedChunks++
				mu.Unlock()
			} else {
				// Later chunks win on overlap; chunks partition the
				// key set, so overlap does not occur by construction.
				for k, v := range outcome.translations {
					translated[k] = v
				}
			}

			done += len(chunk)
			if opts.OnProgress != nil {
				opts.OnProgress(locale, done, total)
			}
		}

		if len(translated) == 0 {
			continue
		}

		// Commit: merge into existing content, write the file, and
		// only then touch the state. State must never claim a
		// translation that is not durably on disk.
		for _, relPath := range sortedKeys(translated) {
			docs[i].Set(relPath, translated[relPath])
		}
		path := transfile.Path(st.TranslationsPath, locale, nc.namespace)
		if err := transfile.WriteFile(path, docs[i]); err != nil {
			opts.logError("Writing %s: %v", path, err)
			mu.Lock()
			res.FailedFiles++
			mu.Unlock()
			continue
		}

		now := opts.now()
		mu.Lock()
		for relPath, value := range translated {
			st.TouchValue(locale, nc.namespace+"."+relPath, now, value)
		}
		res.Translated += len(translated)
		mu.Unlock()

		opts.log("%s/%s.json: +%d keys", locale, nc.namespace, len(translated))
	}

	return nil
}

// selectWork returns the base items to translate for one target file.
// Selective mode keeps only keys absent from the target file's content;
// update-all resubmits everything.
func selectWork(nc nsContent, target *flatten.Value, updateAll bool) []item {
	if updateAll {
		return nc.items
	}
	var missing []item
	for _, it := range nc.items {
		if _, ok := target.Get(it.relPath); !ok {
			missing = append(missing, it)
		}
	}
	return missing
}

// translateChunk submits one chunk as a single request.
func translateChunk(ctx context.Context, sourceLocale, targetLocale, namespace string, chunk []item, opts Options, rl *rateLimitState) chunkResult {
	payload := make(map[string]string, len(chunk))
	for _, it := range chunk {
		payload[it.relPath] = it.value
	}

	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return chunkResult{err: fmt.Errorf("marshaling chunk: %w", err)}
	}

	systemPrompt := strings.NewReplacer(
		"{{sourceLang}}", sourceLocale,
		"{{targetLang}}", targetLocale,
		"{{tone}}", opts.effectiveTone(),
	).Replace(SystemPrompt)

	var userMsg strings.Builder
	if opts.Context != "" {
		userMsg.WriteString("Project context: ")
		userMsg.WriteString(opts.Context)
		userMsg.WriteString("\n\n")
	}
	fmt.Fprintf(&userMsg, "Translate the values of this JSON object from %s to %s:\n\n%s\n", sourceLocale, targetLocale, body)

	text, err := callChat(ctx, opts.Provider, systemPrompt, userMsg.String(), rl, opts.effectiveMaxRetries(), opts.Verbose)
	if err != nil {
		return chunkResult{err: err}
	}

	translations, err := parseTranslationMap(text, payload)
	if err != nil {
		return chunkResult{err: err}
	}
	return chunkResult{translations: translations}
}

// splitItems divides the work set into chunks of the given size.
func splitItems(items []item, chunkSize int) [][]item {
	if chunkSize <= 0 || chunkSize >= len(items) {
		return [][]item{items}
	}
	var chunks [][]item
	for i := 0; i < len(items); i += chunkSize {
		end := i + chunkSize
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// runParallel runs tasks with a concurrency limit and optional launch
// delay, returning the first error.
func runParallel[T any](ctx context.Context, tasks []T, maxConcurrent int, delay time.Duration, fn func(context.Context, T) error) error {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once

	for i, task := range tasks {
		if ctx.Err() != nil {
			break
		}

		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(delay):
			}
		}

		sem <- struct{}{}
		wg.Add(1)

		go func(t T) {
			defer func() {
				<-sem
				wg.Done()
			}()

			if err := fn(ctx, t); err != nil {
				errOnce.Do(func() {
					firstErr = err
				})
			}
		}(task)
	}

	wg.Wait()
	return firstErr
}
