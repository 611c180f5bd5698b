// Package tsgen emits the statically-typed TypeScript key surface for
// application code: a namespace union, the full translation key union,
// and a record mapping parameterized keys to their variable names.
//
// The emitter is a pure transform over the reconciled base locale key
// set; it performs no I/O itself.
package tsgen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lingokit/lingokit/flatten"
)

// placeholderPattern matches {{name}} interpolation tokens in values.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Generate renders the key surface for the given namespaces and their
// flattened entries. Namespaces and entries keep their given order so
// the output is stable across runs.
func Generate(namespaces []string, entries []flatten.Entry) []byte {
	var b strings.Builder

	b.WriteString("// Code generated by lingokit. DO NOT EDIT.\n\n")

	// Namespace union.
	b.WriteString("export type Namespace =")
	if len(namespaces) == 0 {
		b.WriteString(" never;\n")
	} else {
		b.WriteByte('\n')
		for i, ns := range namespaces {
			fmt.Fprintf(&b, "  | %q", ns)
			if i == len(namespaces)-1 {
				b.WriteByte(';')
			}
			b.WriteByte('\n')
		}
	}
	b.WriteByte('\n')

	// Full key union.
	b.WriteString("export type TranslationKey =")
	if len(entries) == 0 {
		b.WriteString(" never;\n")
	} else {
		b.WriteByte('\n')
		for i, e := range entries {
			fmt.Fprintf(&b, "  | %q", e.Key)
			if i == len(entries)-1 {
				b.WriteByte(';')
			}
			b.WriteByte('\n')
		}
	}
	b.WriteByte('\n')

	// Parameterized-key record. Keys without placeholders are omitted.
	b.WriteString("export interface TranslationParams {\n")
	for _, e := range entries {
		params := placeholders(e.Value)
		if len(params) == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %q: { ", e.Key)
		for i, p := range params {
			if i > 0 {
				b.WriteString("; ")
			}
			fmt.Fprintf(&b, "%s: string", p)
		}
		b.WriteString(" };\n")
	}
	b.WriteString("}\n")

	return []byte(b.String())
}

// placeholders returns the distinct {{name}} tokens in value, in order
// of first appearance.
func placeholders(value string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(value, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
