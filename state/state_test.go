package state

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var (
	t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
	t2 = t0.Add(2 * time.Hour)
)

func TestTouchValueSuppressesUnchangedContent(t *testing.T) {
	st := New("en", "i18n")
	st.TouchValue("en", "main.hello", t0, "Hello")

	meta, ok := st.Base().Keys.Get("main.hello")
	if !ok || !meta.LastModified.Equal(t0) {
		t.Fatalf("unexpected meta after first touch: %+v", meta)
	}

	// Same content later must not advance the timestamp.
	st.TouchValue("en", "main.hello", t1, "Hello")
	meta, _ = st.Base().Keys.Get("main.hello")
	if !meta.LastModified.Equal(t0) {
		t.Fatalf("unchanged content advanced timestamp to %v", meta.LastModified)
	}

	// Changed content does.
	st.TouchValue("en", "main.hello", t2, "Hello!")
	meta, _ = st.Base().Keys.Get("main.hello")
	if !meta.LastModified.Equal(t2) || meta.Current != "Hello!" {
		t.Fatalf("changed content not recorded: %+v", meta)
	}
}

func TestTimestampsNeverMoveBackwards(t *testing.T) {
	st := New("en", "i18n")
	st.TouchValue("en", "k", t2, "v1")

	// Content change with an older clock keeps the stored timestamp.
	st.TouchValue("en", "k", t0, "v2")
	meta, _ := st.Base().Keys.Get("k")
	if !meta.LastModified.Equal(t2) {
		t.Fatalf("timestamp moved backwards: %v", meta.LastModified)
	}
	if meta.Current != "v2" {
		t.Fatalf("content not updated: %q", meta.Current)
	}

	st.Touch("en", "k", t1)
	meta, _ = st.Base().Keys.Get("k")
	if !meta.LastModified.Equal(t2) {
		t.Fatalf("Touch moved timestamp backwards: %v", meta.LastModified)
	}
}

func TestIsStale(t *testing.T) {
	st := New("en", "i18n")
	st.TouchValue("en", "a", t1, "A")
	st.EnsureLocale("de-DE")

	if !st.IsStale("de-DE", "a") {
		t.Error("key missing from locale should be stale")
	}
	if st.IsStale("de-DE", "untracked") {
		t.Error("key the base does not track should never be stale")
	}
	if !st.IsStale("fr-FR", "a") {
		t.Error("untracked locale should owe every base key")
	}

	st.Touch("de-DE", "a", t0)
	if !st.IsStale("de-DE", "a") {
		t.Error("older locale timestamp should be stale")
	}

	st.Touch("de-DE", "a", t1)
	if st.IsStale("de-DE", "a") {
		t.Error("equal timestamps should be fresh")
	}

	st.Touch("de-DE", "a", t2)
	if st.IsStale("de-DE", "a") {
		t.Error("newer locale timestamp should be fresh")
	}
}

func TestDiffOrderAndMissingMarker(t *testing.T) {
	st := New("en", "i18n")
	st.TouchValue("en", "first", t1, "1")
	st.TouchValue("en", "second", t1, "2")
	st.TouchValue("en", "third", t1, "3")

	st.Touch("de-DE", "first", t2)  // fresh
	st.Touch("de-DE", "second", t0) // stale
	// "third" never touched: missing
	st.EnsureLocale("fr-FR")

	report := st.Diff()
	if len(report) != 5 {
		t.Fatalf("expected 5 stale pairs, got %d: %+v", len(report), report)
	}

	// Locales in document order, keys in base stored order.
	if report[0].Locale != "de-DE" || report[0].Key != "second" {
		t.Fatalf("unexpected first entry: %+v", report[0])
	}
	if report[0].LocaleModified == nil || !report[0].LocaleModified.Equal(t0) {
		t.Fatalf("stale entry should carry the locale timestamp: %+v", report[0])
	}
	if report[1].Key != "third" || report[1].LocaleModified != nil {
		t.Fatalf("missing entry should have nil LocaleModified: %+v", report[1])
	}
	for i, key := range []string{"first", "second", "third"} {
		if report[2+i].Locale != "fr-FR" || report[2+i].Key != key {
			t.Fatalf("unexpected fr-FR entry %d: %+v", i, report[2+i])
		}
	}
}

func TestRemoveKeyPropagates(t *testing.T) {
	st := New("en", "i18n")
	st.TouchValue("en", "gone", t0, "x")
	st.Touch("de-DE", "gone", t0)
	st.Touch("fr-FR", "gone", t0)

	st.RemoveKey("gone")

	for _, code := range []string{"en", "de-DE", "fr-FR"} {
		if st.Locale(code).Keys.Has("gone") {
			t.Errorf("key survived removal in %s", code)
		}
	}
}

func TestLoadMissingYieldsErrNoState(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, ErrNoState) {
		t.Fatalf("expected ErrNoState, got %v", err)
	}
}

func TestLoadMalformedNamesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), path) {
		t.Fatalf("expected parse error naming %s, got %v", path, err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "state.json")

	st := New("en", "i18n")
	st.TouchValue("en", "z.last", t0, "Z")
	st.TouchValue("en", "a.first", t1, "A")
	st.Touch("uk-UA", "z.last", t1)

	if !st.Dirty() {
		t.Fatal("mutations should mark the document dirty")
	}
	if err := st.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if st.Dirty() {
		t.Fatal("Save should clear the dirty flag")
	}

	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back.BaseLocale != "en" || back.TranslationsPath != "i18n" {
		t.Fatalf("header fields lost: %+v", back)
	}

	keys := back.Base().Keys.Ordered()
	if len(keys) != 2 || keys[0] != "z.last" || keys[1] != "a.first" {
		t.Fatalf("key order lost on round trip: %v", keys)
	}
	meta, ok := back.Base().Keys.Get("a.first")
	if !ok || meta.Current != "A" || !meta.LastModified.Equal(t1) {
		t.Fatalf("key meta lost on round trip: %+v", meta)
	}

	uk := back.Locale("uk-UA")
	if uk == nil || uk.EnglishName == "" {
		t.Fatalf("locale display names lost: %+v", uk)
	}
}

func TestEnsureLocaleResolvesNames(t *testing.T) {
	st := New("en", "i18n")
	le := st.EnsureLocale("de-DE")
	if le.EnglishName != "German (Germany)" {
		t.Fatalf("EnglishName = %q", le.EnglishName)
	}
	if again := st.EnsureLocale("de-DE"); again != le {
		t.Fatal("EnsureLocale should return the existing entry")
	}
}
