// lingokit — translation state and sync toolkit for i18next projects.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lingokit/lingokit/config"
	"github.com/lingokit/lingokit/flatten"
	"github.com/lingokit/lingokit/i18n"
	"github.com/lingokit/lingokit/reconcile"
	"github.com/lingokit/lingokit/settings"
	"github.com/lingokit/lingokit/state"
	"github.com/lingokit/lingokit/transfile"
	"github.com/lingokit/lingokit/translate"
	"github.com/lingokit/lingokit/tsgen"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir    string
	transPath  string
	sourceLang string
	stateFile  string
)

// project loads .lingokit.yaml from the root directory and applies
// flag overrides on top. Flags win over the file; the file wins over
// built-in defaults.
func project(cmd *cobra.Command) (*config.Project, error) {
	proj, err := config.Load(rootDir)
	if err != nil {
		return nil, err
	}
	flags := cmd.Root().PersistentFlags()
	if flags.Changed("path") {
		proj.Path = transPath
	}
	if flags.Changed("source") {
		proj.Source = sourceLang
	}
	if flags.Changed("state") {
		proj.State = stateFile
	}
	return proj, nil
}

// resolve anchors a possibly-relative config path at the root directory.
func resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(rootDir, path)
}

// loadState reads the state document, turning a missing file into an
// actionable message.
func loadState(proj *config.Project) (*state.State, string, error) {
	statePath := resolve(proj.State)
	st, err := state.Load(statePath)
	if err != nil {
		if errors.Is(err, state.ErrNoState) {
			return nil, "", errors.New(i18n.T("No state file found. Run 'lingokit init' first."))
		}
		return nil, "", err
	}
	// Anchor the translations directory at the root directory.
	st.TranslationsPath = resolve(st.TranslationsPath)
	return st, statePath, nil
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lingokit",
		Short: i18n.T("Translation state and sync toolkit for i18next projects"),
		Long: `lingokit — translation state and sync toolkit for i18next projects.

Tracks per-key modification timestamps for every locale in a state
document, detects translations that went stale after a source text
change, and fills the gaps through an OpenAI-compatible chat API.

Commands:
  init        Create the translation state document
  sync        Reconcile state with the base locale files
  status      Report stale and missing translations
  translate   Fill missing and outdated translations using AI
  generate    Emit the typed TypeScript key surface

Translation files live in <path>/<locale>/<namespace>.json. Defaults
come from .lingokit.yaml in the project root; flags override the file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flags — inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")
	root.PersistentFlags().StringVar(&transPath, "path", "i18n", "Translations directory")
	root.PersistentFlags().StringVar(&sourceLang, "source", "en", "Base locale code")
	root.PersistentFlags().StringVar(&stateFile, "state", "lingokit.state.json", "State document path")

	root.AddCommand(
		newInitCmd(),
		newSyncCmd(),
		newStatusCmd(),
		newTranslateCmd(),
		newGenerateCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")

	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("lingokit version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// init (create the state document)
// ---------------------------------------------------------------------------

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the translation state document",
		Long: `Create an empty translation state document for this project.

The document records a per-key modification timestamp for every locale.
Run 'lingokit sync' afterwards to populate it from the base locale
files. Running init again when the document exists is a no-op.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := project(cmd)
			if err != nil {
				return err
			}
			statePath := resolve(proj.State)

			if _, err := os.Stat(statePath); err == nil {
				logInfo(i18n.T("State file already exists at %s"), statePath)
				return nil
			}

			st := state.New(proj.Source, proj.Path)
			if err := st.Save(statePath); err != nil {
				return err
			}

			logSuccess(i18n.T("Initialized translation state at %s"), statePath)
			logInfo("Run 'lingokit sync' to pick up the base locale keys.")
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// sync (reconcile state with base locale files)
// ---------------------------------------------------------------------------

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile state with the base locale files",
		Long: `Bring the state document into agreement with the base locale files.

Scans <path>/<source>/*.json, records new keys, bumps timestamps on
changed values, removes keys that vanished from the base locale, and
registers any new locale directories found under <path>.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := project(cmd)
			if err != nil {
				return err
			}
			st, statePath, err := loadState(proj)
			if err != nil {
				return err
			}

			res, err := reconcile.Run(reconcile.Options{
				State:     st,
				StatePath: statePath,
				OnLog:     logInfo,
				OnWarn:    logWarning,
			})
			if err != nil {
				return err
			}

			if !res.Changed {
				logSuccess(i18n.T("Everything is up to date"))
				return nil
			}

			var parts []string
			if res.Added > 0 {
				parts = append(parts, fmt.Sprintf(i18n.N("%d key added", "%d keys added", res.Added), res.Added))
			}
			if res.Updated > 0 {
				parts = append(parts, fmt.Sprintf(i18n.N("%d key updated", "%d keys updated", res.Updated), res.Updated))
			}
			if res.Removed > 0 {
				parts = append(parts, fmt.Sprintf(i18n.N("%d key removed", "%d keys removed", res.Removed), res.Removed))
			}
			if len(parts) > 0 {
				logSuccess("Sync complete: %s", strings.Join(parts, ", "))
			} else {
				logSuccess("Sync complete")
			}
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// status (read-only staleness report)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	var stats bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report stale and missing translations",
		Long: `List every translation that is missing or older than its source text.

Reads the state document only; no files are modified and no network
calls are made. Exits with status 1 when stale translations remain, so
the command can gate CI pipelines.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := project(cmd)
			if err != nil {
				return err
			}
			st, _, err := loadState(proj)
			if err != nil {
				return err
			}

			report := st.Diff()

			if stats {
				showStatsTable(st, report)
			}

			if len(report) == 0 {
				logSuccess(i18n.T("All translations are up to date"))
				return nil
			}

			byLocale := make(map[string][]state.StaleKey)
			var order []string
			for _, sk := range report {
				if _, seen := byLocale[sk.Locale]; !seen {
					order = append(order, sk.Locale)
				}
				byLocale[sk.Locale] = append(byLocale[sk.Locale], sk)
			}

			for _, code := range order {
				fmt.Fprintf(os.Stderr, "\n%s%s%s\n", colorBlue, code, colorReset)
				for _, sk := range byLocale[code] {
					localeTS := i18n.T("missing")
					if sk.LocaleModified != nil {
						localeTS = sk.LocaleModified.Format(time.RFC3339)
					}
					fmt.Fprintf(os.Stderr, "  %s  (source %s, locale %s)\n",
						sk.Key, sk.BaseModified.Format(time.RFC3339), localeTS)
				}
			}
			fmt.Fprintln(os.Stderr)

			return fmt.Errorf(i18n.N("%d stale key", "%d stale keys", len(report)), len(report))
		},
	}

	cmd.Flags().BoolVar(&stats, "stats", false, "Show per-locale coverage table")

	return cmd
}

func showStatsTable(st *state.State, report []state.StaleKey) {
	base := st.Base()
	if base == nil || base.Keys.Len() == 0 {
		logInfo("No keys tracked yet. Run 'lingokit sync' first.")
		return
	}
	total := base.Keys.Len()

	staleCount := make(map[string]int)
	for _, sk := range report {
		staleCount[sk.Locale]++
	}

	fmt.Fprintf(os.Stderr, "\n%sTranslation Statistics%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "\n%-10s %-22s %-10s %-8s\n", "Locale", "Name", "Stale", "Fresh")
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 52))

	for _, loc := range st.Locales {
		if loc.Code == st.BaseLocale {
			continue
		}
		stale := staleCount[loc.Code]
		percent := 100
		if total > 0 {
			percent = (total - stale) * 100 / total
		}
		fmt.Fprintf(os.Stderr, "%-10s %-22s %-10d %d%%\n", loc.Code, loc.EnglishName, stale, percent)
	}

	fmt.Fprintln(os.Stderr, strings.Repeat("─", 52))
	fmt.Fprintf(os.Stderr, "Source keys (%s): %d\n\n", st.BaseLocale, total)
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	var (
		apiURL  string
		apiKey  string
		model   string
		locales string

		projContext string
		tone        string
		updateAll   bool
		verbose     bool

		chunkSize     int
		maxConcurrent int
		requestDelay  time.Duration
		timeout       time.Duration
		maxRetries    int
	)

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Fill missing and outdated translations using AI",
		Long: `Translate missing and outdated keys through an OpenAI-compatible API.

A sync runs first so the state reflects the current base locale files.
Each target locale is processed concurrently; within a locale, files
and chunks proceed sequentially. A failed chunk is logged and skipped;
its keys stay missing and are retried on the next run.

API configuration is resolved from flags, then the LINGOKIT_API_URL /
LINGOKIT_API_KEY environment variables, then the credential store.

Examples:
  # Translate every tracked locale
  lingokit translate --api-url https://api.openai.com/v1

  # Translate specific locales with a custom tone
  lingokit translate --locale de-DE,fr-FR --tone casual

  # Re-translate everything, not just missing keys
  lingokit translate --update-all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := project(cmd)
			if err != nil {
				return err
			}

			prov := translate.Provider{
				BaseURL: apiURL,
				APIKey:  apiKey,
				Model:   model,
				Timeout: timeout,
			}.FromEnv()
			if prov.BaseURL == "" {
				prov.BaseURL = settings.APIURL()
			}
			if prov.APIKey == "" {
				prov.APIKey = settings.APIKey()
			}
			if err := prov.Validate(); err != nil {
				return err
			}

			st, statePath, err := loadState(proj)
			if err != nil {
				return err
			}

			// Sync first so the run sees the current base content.
			if _, err := reconcile.Run(reconcile.Options{
				State:     st,
				StatePath: statePath,
				OnLog:     logInfo,
				OnWarn:    logWarning,
			}); err != nil {
				return err
			}

			var targets []string
			switch {
			case locales != "":
				targets = strings.Split(locales, ",")
			case len(proj.Locales) > 0:
				targets = proj.Locales
			default:
				for _, loc := range st.Locales {
					if loc.Code != st.BaseLocale {
						targets = append(targets, loc.Code)
					}
				}
			}
			if len(targets) == 0 {
				logInfo("No target locales found. Create a locale directory under %s and re-run.", proj.Path)
				return nil
			}

			projectContext := projContext
			if projectContext == "" {
				projectContext = proj.Context
			}
			toneValue := tone
			if toneValue == "" {
				toneValue = proj.Tone
			}

			logInfo("Model: %s, max concurrent: %d", prov.Model, maxConcurrent)
			logInfo("Translating: %s", strings.Join(targets, ", "))

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt)
			go func() {
				<-sigCh
				logWarning(i18n.T("Interrupted, finishing current work..."))
				cancel()
			}()

			opts := translate.Options{
				Provider:      prov,
				Context:       projectContext,
				Tone:          toneValue,
				ChunkSize:     chunkSize,
				MaxConcurrent: maxConcurrent,
				RequestDelay:  requestDelay,
				MaxRetries:    maxRetries,
				UpdateAll:     updateAll,
				Verbose:       verbose,
				OnProgress: func(locale string, done, total int) {
					logInfo("  %s: %d/%d", locale, done, total)
				},
				OnLog:   logInfo,
				OnError: logError,
			}

			res, err := translate.Run(ctx, st, statePath, targets, opts)
			if err != nil {
				if ctx.Err() != nil {
					logWarning("Translation interrupted, partial progress saved")
					return nil
				}
				return err
			}

			if res.Translated > 0 {
				logSuccess(i18n.N("%d key translated", "%d keys translated", res.Translated), res.Translated)
			} else {
				logSuccess(i18n.T("All translations are up to date"))
			}
			if res.FailedChunks > 0 || res.FailedFiles > 0 {
				logWarning("%d chunk(s) and %d file(s) failed; missing keys will be retried on the next run", res.FailedChunks, res.FailedFiles)
				return fmt.Errorf("translation finished with %d failed chunk(s) and %d failed file(s)", res.FailedChunks, res.FailedFiles)
			}
			return nil
		},
	}

	// API configuration
	cmd.Flags().StringVar(&apiURL, "api-url", "", "API base URL (or LINGOKIT_API_URL env var)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key (or LINGOKIT_API_KEY env var)")
	cmd.Flags().StringVar(&model, "model", "", "Chat model name (default "+translate.DefaultModel+")")

	// Target selection
	cmd.Flags().StringVar(&locales, "locale", "", "Locales to translate (comma-separated, default: all tracked)")

	// Translation behavior
	cmd.Flags().StringVar(&projContext, "context", "", "Project context passed to the translation service")
	cmd.Flags().StringVar(&tone, "tone", "", "Translation tone (default professional)")
	cmd.Flags().BoolVar(&updateAll, "update-all", false, "Re-translate every key, not just missing ones")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Enable detailed logging")

	// Tuning
	cmd.Flags().IntVar(&chunkSize, "chunk-size", translate.DefaultChunkSize, "Keys per API request")
	cmd.Flags().IntVar(&maxConcurrent, "max-concurrent", 3, "Maximum concurrent locale tasks")
	cmd.Flags().DurationVar(&requestDelay, "request-delay", 0, "Delay between launching locale tasks")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Request timeout (0 = default)")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 3, "Maximum retries per request")

	return cmd
}

// ---------------------------------------------------------------------------
// generate (TypeScript key surface)
// ---------------------------------------------------------------------------

func newGenerateCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Emit the typed TypeScript key surface",
		Long: `Generate a TypeScript module with the namespace union, the full
translation key union, and the interpolation parameters of every key,
derived from the base locale files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := project(cmd)
			if err != nil {
				return err
			}
			if out != "" {
				proj.Out = out
			}

			baseDir := transfile.LocaleDir(resolve(proj.Path), proj.Source)
			namespaces, err := transfile.Namespaces(baseDir)
			if err != nil {
				return fmt.Errorf("reading base locale directory: %w", err)
			}

			var entries []flatten.Entry
			for _, ns := range namespaces {
				doc, err := transfile.ReadFile(transfile.Path(resolve(proj.Path), proj.Source, ns))
				if err != nil {
					return err
				}
				entries = append(entries, flatten.Flatten(ns, doc)...)
			}

			outPath := resolve(proj.OutPath())
			if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
				return fmt.Errorf("creating %s: %w", filepath.Dir(outPath), err)
			}
			if err := os.WriteFile(outPath, tsgen.Generate(namespaces, entries), 0644); err != nil {
				return fmt.Errorf("writing %s: %w", outPath, err)
			}

			logSuccess(i18n.T("Generated %s"), outPath)
			logInfo("%d namespaces, %d keys", len(namespaces), len(entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Output file (default <path>/keys.ts)")

	return cmd
}
