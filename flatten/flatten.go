// Package flatten implements the nested translation document model and
// its projection onto namespaced dot-path keys.
//
// A translation file is a JSON object whose values are either string
// leaves or further objects:
//
//	{
//	    "hello": "Hello",
//	    "nav": {
//	        "title": "Home",
//	        "menu": { "settings": "Settings" }
//	    }
//	}
//
// Flattening "main" over the document above yields the ordered pairs
// main.hello, main.nav.title, main.nav.menu.settings. Key order follows
// the document, so identical input always produces identical output.
package flatten

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Value is a node in a nested translation document: either a string
// leaf or an object with ordered children.
type Value struct {
	leaf     string
	isLeaf   bool
	children map[string]*Value
	order    []string
}

// NewNode returns an empty object node.
func NewNode() *Value {
	return &Value{children: make(map[string]*Value)}
}

// NewLeaf returns a string leaf.
func NewLeaf(s string) *Value {
	return &Value{leaf: s, isLeaf: true}
}

// IsLeaf reports whether v is a string leaf.
func (v *Value) IsLeaf() bool { return v.isLeaf }

// Leaf returns the leaf string (empty for object nodes).
func (v *Value) Leaf() string { return v.leaf }

// Keys returns the child keys of an object node in document order.
func (v *Value) Keys() []string { return v.order }

// Child returns the named child of an object node, or nil.
func (v *Value) Child(key string) *Value {
	if v.children == nil {
		return nil
	}
	return v.children[key]
}

// Len returns the number of direct children of an object node.
func (v *Value) Len() int { return len(v.order) }

// Entry is one flattened key/value pair.
type Entry struct {
	Key   string // "<namespace>.<dot-path>"
	Value string
}

// Parse decodes a nested translation document preserving key order.
// Values that are neither strings nor objects (numbers, arrays, null)
// are skipped silently; schema validation happens elsewhere.
func Parse(data []byte) (*Value, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))

	t, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if delim, ok := t.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object at document root, got %v", t)
	}

	root, err := parseObject(dec)
	if err != nil {
		return nil, err
	}
	return root, nil
}

// parseObject reads object members after the opening brace was consumed.
func parseObject(dec *json.Decoder) (*Value, error) {
	node := NewNode()

	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := kt.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %T", kt)
		}

		vt, err := dec.Token()
		if err != nil {
			return nil, err
		}

		switch tv := vt.(type) {
		case string:
			node.put(key, NewLeaf(tv))
		case json.Delim:
			if tv == '{' {
				child, err := parseObject(dec)
				if err != nil {
					return nil, err
				}
				node.put(key, child)
			} else {
				// Array: not a translation value, skip its contents.
				if err := skipCompound(dec); err != nil {
					return nil, err
				}
			}
		default:
			// Number, bool, or null. Skipped.
		}
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	return node, nil
}

// skipCompound consumes tokens until the open array/object whose opening
// delimiter was just read is balanced again.
func skipCompound(dec *json.Decoder) error {
	depth := 1
	for depth > 0 {
		t, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := t.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}

func (v *Value) put(key string, child *Value) {
	if v.children == nil {
		v.children = make(map[string]*Value)
	}
	if _, exists := v.children[key]; !exists {
		v.order = append(v.order, key)
	}
	v.children[key] = child
}

// Set inserts or replaces the leaf at the given dot path, creating
// intermediate object nodes as needed. Existing keys keep their
// position; new keys are appended.
func (v *Value) Set(path string, value string) {
	parts := strings.Split(path, ".")
	node := v
	for _, part := range parts[:len(parts)-1] {
		child := node.Child(part)
		if child == nil || child.isLeaf {
			child = NewNode()
			node.put(part, child)
		}
		node = child
	}
	node.put(parts[len(parts)-1], NewLeaf(value))
}

// Get returns the leaf value at the given dot path and whether it exists.
func (v *Value) Get(path string) (string, bool) {
	node := v
	for _, part := range strings.Split(path, ".") {
		if node == nil || node.isLeaf {
			return "", false
		}
		node = node.Child(part)
	}
	if node == nil || !node.isLeaf {
		return "", false
	}
	return node.leaf, true
}

// Unflatten rebuilds a nested document from dot-path entries. Keys are
// inserted in sorted order so the result is deterministic regardless of
// map iteration.
func Unflatten(entries map[string]string) *Value {
	paths := make([]string, 0, len(entries))
	for path := range entries {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	root := NewNode()
	for _, path := range paths {
		root.Set(path, entries[path])
	}
	return root
}

// Flatten projects a document onto its ordered namespaced key/value
// pairs. Pure: repeated calls over the same document yield the same
// slice.
func Flatten(namespace string, v *Value) []Entry {
	var entries []Entry
	walk(namespace, v, &entries)
	return entries
}

func walk(prefix string, v *Value, out *[]Entry) {
	for _, key := range v.order {
		child := v.children[key]
		path := prefix + "." + key
		if child.isLeaf {
			*out = append(*out, Entry{Key: path, Value: child.leaf})
		} else {
			walk(path, child, out)
		}
	}
}

// Marshal renders the document as two-space indented JSON with a
// trailing newline, preserving key order.
func (v *Value) Marshal() []byte {
	var b strings.Builder
	writeValue(&b, v, 0)
	b.WriteByte('\n')
	return []byte(b.String())
}

func writeValue(b *strings.Builder, v *Value, depth int) {
	if v.isLeaf {
		b.WriteString(jsonString(v.leaf))
		return
	}
	if len(v.order) == 0 {
		b.WriteString("{}")
		return
	}
	b.WriteString("{\n")
	indent := strings.Repeat("  ", depth+1)
	for i, key := range v.order {
		b.WriteString(indent)
		b.WriteString(jsonString(key))
		b.WriteString(": ")
		writeValue(b, v.children[key], depth+1)
		if i < len(v.order)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteByte('}')
}

func jsonString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}
