package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lingokit/lingokit/state"
	"github.com/lingokit/lingokit/transfile"
)

var (
	t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// chatReply wraps a payload in the chat-completion response shape.
func chatReply(t *testing.T, payload map[string]string) []byte {
	t.Helper()
	content, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": string(content)}},
		},
	}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// requestedKeys extracts the keys of the JSON object embedded in the
// user message of a chat request.
func requestedKeys(t *testing.T, body []byte) map[string]string {
	t.Helper()
	var req struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("request not valid JSON: %v", err)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
		t.Fatalf("unexpected message layout: %+v", req.Messages)
	}
	user := req.Messages[1].Content
	start := strings.Index(user, "{")
	if start < 0 {
		t.Fatalf("no JSON object in user message: %s", user)
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(user[start:]), &payload); err != nil {
		t.Fatalf("payload not parseable: %v", err)
	}
	return payload
}

func TestRunTranslatesMissingKeys(t *testing.T) {
	dir := t.TempDir()
	st := state.New("en", filepath.Join(dir, "i18n"))
	writeFile(t, filepath.Join(dir, "i18n", "en", "main.json"),
		`{"hello": "Hello", "bye": "Goodbye"}`)
	writeFile(t, filepath.Join(dir, "i18n", "es-ES", "main.json"),
		`{"bye": "Adiós"}`)
	st.TouchValue("en", "main.hello", t0, "Hello")
	st.TouchValue("en", "main.bye", t0, "Goodbye")

	var gotPayload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing bearer auth, got %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		gotPayload = requestedKeys(t, body)
		w.Write(chatReply(t, map[string]string{"hello": "Hola"}))
	}))
	defer srv.Close()

	statePath := filepath.Join(dir, "state.json")
	opts := Options{
		Provider: Provider{BaseURL: srv.URL, APIKey: "test-key", Model: "test"},
		Now:      func() time.Time { return t1 },
	}
	res, err := Run(context.Background(), st, statePath, []string{"es-ES"}, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Translated != 1 || res.FailedChunks != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}

	// Only the missing key was requested; "bye" was already present.
	if len(gotPayload) != 1 || gotPayload["hello"] != "Hello" {
		t.Fatalf("unexpected request payload: %v", gotPayload)
	}

	// Translation landed in the file, existing content untouched.
	doc, err := transfile.ReadFile(transfile.Path(st.TranslationsPath, "es-ES", "main"))
	if err != nil {
		t.Fatalf("reading target file: %v", err)
	}
	if got, _ := doc.Get("hello"); got != "Hola" {
		t.Fatalf("hello = %q, want Hola", got)
	}
	if got, _ := doc.Get("bye"); got != "Adiós" {
		t.Fatalf("existing translation clobbered: %q", got)
	}

	// State recorded the write and was persisted.
	meta, ok := st.Locale("es-ES").Keys.Get("main.hello")
	if !ok || meta.Current != "Hola" || !meta.LastModified.Equal(t1) {
		t.Fatalf("state not touched: %+v", meta)
	}
	if st.IsStale("es-ES", "main.hello") {
		t.Fatal("translated key should be fresh")
	}
	if _, err := os.Stat(statePath); err != nil {
		t.Fatalf("state not persisted: %v", err)
	}
}

func TestRunContinuesPastFailedChunks(t *testing.T) {
	dir := t.TempDir()
	st := state.New("en", filepath.Join(dir, "i18n"))
	writeFile(t, filepath.Join(dir, "i18n", "en", "a.json"), `{"k": "A"}`)
	writeFile(t, filepath.Join(dir, "i18n", "en", "b.json"), `{"k": "B"}`)
	writeFile(t, filepath.Join(dir, "i18n", "de-DE", "a.json"), `{}`)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), `\"A\"`) || strings.Contains(string(body), `"A"`) {
			http.Error(w, "boom", http.StatusBadRequest)
			return
		}
		w.Write(chatReply(t, map[string]string{"k": "B!"}))
	}))
	defer srv.Close()

	opts := Options{
		Provider:   Provider{BaseURL: srv.URL, APIKey: "k", Model: "test"},
		MaxRetries: 1,
		Now:        func() time.Time { return t1 },
	}
	res, err := Run(context.Background(), st, "", []string{"de-DE"}, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.FailedChunks != 1 {
		t.Fatalf("expected 1 failed chunk, got %+v", res)
	}
	if res.Translated != 1 {
		t.Fatalf("surviving namespace should still translate: %+v", res)
	}

	// The failed namespace wrote nothing and touched nothing.
	if _, err := os.Stat(transfile.Path(st.TranslationsPath, "de-DE", "a")); err == nil {
		doc, _ := transfile.ReadFile(transfile.Path(st.TranslationsPath, "de-DE", "a"))
		if _, ok := doc.Get("k"); ok {
			t.Fatal("failed chunk must not write translations")
		}
	}
	if st.Locale("de-DE") != nil && st.Locale("de-DE").Keys.Has("a.k") {
		t.Fatal("failed chunk must not touch state")
	}
}

func TestRunValidatesProviderBeforeIO(t *testing.T) {
	st := state.New("en", t.TempDir())
	_, err := Run(context.Background(), st, "", []string{"de-DE"}, Options{})
	if err == nil || !strings.Contains(err.Error(), "API URL") {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRunUpdateAllResubmitsEverything(t *testing.T) {
	dir := t.TempDir()
	st := state.New("en", filepath.Join(dir, "i18n"))
	writeFile(t, filepath.Join(dir, "i18n", "en", "main.json"), `{"a": "A", "b": "B"}`)
	writeFile(t, filepath.Join(dir, "i18n", "fr-FR", "main.json"), `{"a": "ancien", "b": "vieux"}`)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		payload := requestedKeys(t, body)
		out := make(map[string]string, len(payload))
		for k, v := range payload {
			out[k] = "fr:" + v
		}
		w.Write(chatReply(t, out))
	}))
	defer srv.Close()

	opts := Options{
		Provider:  Provider{BaseURL: srv.URL, APIKey: "k", Model: "test"},
		UpdateAll: true,
		Now:       func() time.Time { return t1 },
	}
	res, err := Run(context.Background(), st, "", []string{"fr-FR"}, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Translated != 2 {
		t.Fatalf("update-all should resubmit both keys: %+v", res)
	}

	doc, _ := transfile.ReadFile(transfile.Path(st.TranslationsPath, "fr-FR", "main"))
	if got, _ := doc.Get("a"); got != "fr:A" {
		t.Fatalf("a = %q", got)
	}
}

func TestSplitItems(t *testing.T) {
	items := make([]item, 7)
	for i := range items {
		items[i] = item{relPath: fmt.Sprintf("k%d", i)}
	}

	chunks := splitItems(items, 3)
	if len(chunks) != 3 || len(chunks[0]) != 3 || len(chunks[2]) != 1 {
		t.Fatalf("unexpected chunking: %d chunks", len(chunks))
	}

	if got := splitItems(items, 0); len(got) != 1 || len(got[0]) != 7 {
		t.Fatalf("chunk size 0 should mean one chunk, got %d", len(got))
	}
	if got := splitItems(items, 100); len(got) != 1 {
		t.Fatalf("oversized chunk should mean one chunk, got %d", len(got))
	}
}

func TestParseTranslationMap(t *testing.T) {
	requested := map[string]string{"a": "A", "b": "B"}

	t.Run("plain object", func(t *testing.T) {
		got, err := parseTranslationMap(`{"a": "x", "b": "y"}`, requested)
		if err != nil || len(got) != 2 {
			t.Fatalf("got %v, err %v", got, err)
		}
	})

	t.Run("markdown fences stripped", func(t *testing.T) {
		got, err := parseTranslationMap("```json\n{\"a\": \"x\"}\n```", requested)
		if err != nil || got["a"] != "x" {
			t.Fatalf("got %v, err %v", got, err)
		}
	})

	t.Run("surrounding prose stripped", func(t *testing.T) {
		got, err := parseTranslationMap(`Here you go: {"a": "x"} hope it helps`, requested)
		if err != nil || got["a"] != "x" {
			t.Fatalf("got %v, err %v", got, err)
		}
	})

	t.Run("unrequested and empty keys dropped", func(t *testing.T) {
		got, err := parseTranslationMap(`{"a": "x", "extra": "nope", "b": ""}`, requested)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got["a"] != "x" {
			t.Fatalf("got %v", got)
		}
	})

	t.Run("not an object", func(t *testing.T) {
		if _, err := parseTranslationMap(`just text`, requested); err == nil {
			t.Fatal("expected error for non-JSON response")
		}
	})
}

func TestProviderFromEnvAndValidate(t *testing.T) {
	t.Setenv(EnvAPIURL, "https://env.example/v1")
	t.Setenv(EnvAPIKey, "env-key")

	p := Provider{}.FromEnv()
	if p.BaseURL != "https://env.example/v1" || p.APIKey != "env-key" {
		t.Fatalf("env not applied: %+v", p)
	}
	if p.Model != DefaultModel {
		t.Fatalf("default model not applied: %q", p.Model)
	}

	// Explicit values win over the environment.
	p = Provider{BaseURL: "https://flag.example", APIKey: "flag-key"}.FromEnv()
	if p.BaseURL != "https://flag.example" || p.APIKey != "flag-key" {
		t.Fatalf("flags overridden by env: %+v", p)
	}

	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvAPIKey, "")
	if err := (Provider{}.FromEnv()).Validate(); err == nil {
		t.Fatal("expected validation error with nothing configured")
	}
	if err := (Provider{BaseURL: "x"}).Validate(); err == nil || !strings.Contains(err.Error(), EnvAPIKey) {
		t.Fatalf("key error should name %s, got %v", EnvAPIKey, err)
	}
}

func TestCallChatRetriesServerErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "flaky", http.StatusInternalServerError)
			return
		}
		w.Write(chatReply(t, map[string]string{"k": "v"}))
	}))
	defer srv.Close()

	prov := Provider{BaseURL: srv.URL, APIKey: "k", Model: "test"}
	text, err := callChat(context.Background(), prov, "sys", "user", nil, 2, false)
	if err != nil {
		t.Fatalf("callChat: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected retry after 500, got %d attempts", attempts)
	}
	if !strings.Contains(text, `"k"`) {
		t.Fatalf("unexpected content: %q", text)
	}
}
