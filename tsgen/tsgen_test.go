package tsgen

import (
	"strings"
	"testing"

	"github.com/lingokit/lingokit/flatten"
)

func TestGenerate(t *testing.T) {
	entries := []flatten.Entry{
		{Key: "main.title", Value: "Welcome"},
		{Key: "main.greeting", Value: "Hello, {{name}}! You have {{count}} messages."},
		{Key: "errors.retry", Value: "Retry in {{ seconds }}s"},
	}

	out := string(Generate([]string{"main", "errors"}, entries))

	if !strings.HasPrefix(out, "// Code generated by lingokit. DO NOT EDIT.") {
		t.Fatalf("missing generated header:\n%s", out)
	}
	for _, want := range []string{
		`| "main"`,
		`| "errors";`,
		`| "main.title"`,
		`| "errors.retry";`,
		`"main.greeting": { name: string; count: string };`,
		`"errors.retry": { seconds: string };`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	// Keys without placeholders stay out of TranslationParams.
	if strings.Contains(out, `"main.title": {`) {
		t.Errorf("parameterless key leaked into TranslationParams:\n%s", out)
	}
}

func TestGenerateEmpty(t *testing.T) {
	out := string(Generate(nil, nil))

	if !strings.Contains(out, "export type Namespace = never;") {
		t.Errorf("empty namespace union should be never:\n%s", out)
	}
	if !strings.Contains(out, "export type TranslationKey = never;") {
		t.Errorf("empty key union should be never:\n%s", out)
	}
	if !strings.Contains(out, "export interface TranslationParams {\n}") {
		t.Errorf("params interface should be empty:\n%s", out)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	entries := []flatten.Entry{
		{Key: "a.x", Value: "{{p}} {{q}} {{p}}"},
		{Key: "a.y", Value: "plain"},
	}
	first := string(Generate([]string{"a"}, entries))
	second := string(Generate([]string{"a"}, entries))
	if first != second {
		t.Fatal("output not stable across calls")
	}

	// Duplicate placeholders collapse, first appearance wins.
	if !strings.Contains(first, `"a.x": { p: string; q: string };`) {
		t.Fatalf("placeholder dedup failed:\n%s", first)
	}
}
