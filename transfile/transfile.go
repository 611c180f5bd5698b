// Package transfile reads and writes the per-locale translation files.
//
// Files live at <translationsPath>/<localeCode>/<namespace>.json and
// hold a nested JSON object of string leaves. The namespace is the file
// name minus its extension.
package transfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lingokit/lingokit/flatten"
)

// Path returns the translation file path for a locale and namespace.
func Path(translationsPath, locale, namespace string) string {
	return filepath.Join(translationsPath, locale, namespace+".json")
}

// LocaleDir returns the directory holding a locale's translation files.
func LocaleDir(translationsPath, locale string) string {
	return filepath.Join(translationsPath, locale)
}

// ReadFile parses the translation file at path. Errors identify the
// offending path so a malformed file can be located directly.
func ReadFile(path string) (*flatten.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := flatten.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return doc, nil
}

// WriteFile formats and writes a translation document, creating the
// locale directory if needed.
func WriteFile(path string, doc *flatten.Value) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, doc.Marshal(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Namespaces lists the logical file names (minus .json) in a locale
// directory, sorted. A missing directory yields (nil, os.ErrNotExist)
// through the underlying ReadDir error.
func Namespaces(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var namespaces []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		namespaces = append(namespaces, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(namespaces)
	return namespaces, nil
}

// Locales lists the locale subdirectories of the translations path,
// sorted.
func Locales(translationsPath string) ([]string, error) {
	entries, err := os.ReadDir(translationsPath)
	if err != nil {
		return nil, err
	}

	var locales []string
	for _, entry := range entries {
		if entry.IsDir() {
			locales = append(locales, entry.Name())
		}
	}
	sort.Strings(locales)
	return locales, nil
}
