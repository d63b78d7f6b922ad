// Package config implements the flat dotted-key typed variable store the
// engine's console reads and writes at runtime (Camera.fovy,
// Render.shadow_map_dim, …), backed by a TOML document. TOML's [section] +
// key = value syntax is a strict superset of the simple INI-style layout
// the console's get/set/list_vars commands expose; this package's public
// API is that dotted-key contract, not TOML's own section/table
// API. Grounded on cogentcore-core's tomlx package (decoder/encoder
// wrapper over pelletier/go-toml/v2) for the library choice, generalized
// from "decode into a known Go struct" to "decode into a flat dotted-key
// map the console `get`/`set` commands address at runtime".
package config

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Store is the flat, typed variable store the core reads from and the
// console command layer writes to. Values are int64,
// float64, string, or bool; one level of TOML [section] nesting becomes
// one dotted-key prefix (Camera.fovy == [Camera]\nfovy = ...).
type Store struct {
	values map[string]any
}

// New returns an empty store.
func New() *Store {
	return &Store{values: make(map[string]any)}
}

// Load reads a TOML document from r and flattens it into the dotted keys
// of a new Store.
func Load(r io.Reader) (*Store, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	var doc map[string]any
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("config: parse TOML: %w", err)
	}
	s := New()
	flatten("", doc, s.values)
	return s, nil
}

func flatten(prefix string, node map[string]any, out map[string]any) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flatten(key, sub, out)
			continue
		}
		out[key] = v
	}
}

// Save re-nests the store's dotted keys one level deep (the prefix before
// the first dot becomes a TOML table) and writes it to w.
func (s *Store) Save(w io.Writer) error {
	doc := make(map[string]any)
	for key, v := range s.values {
		section, name, nested := strings.Cut(key, ".")
		if !nested {
			doc[key] = v
			continue
		}
		table, ok := doc[section].(map[string]any)
		if !ok {
			table = make(map[string]any)
			doc[section] = table
		}
		table[name] = v
	}
	enc := toml.NewEncoder(w)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("config: encode TOML: %w", err)
	}
	return nil
}

// Int returns key's value as an int64, or ok=false if it is absent or not
// an integer.
func (s *Store) Int(key string) (int64, bool) {
	switch v := s.values[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}

// Float returns key's value as a float64, accepting an integer value too
// (TOML distinguishes `1` from `1.0`, but callers of a typed-variable
// store shouldn't have to care).
func (s *Store) Float(key string) (float64, bool) {
	switch v := s.values[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// String returns key's value as a string.
func (s *Store) String(key string) (string, bool) {
	v, ok := s.values[key].(string)
	return v, ok
}

// Bool returns key's value as a bool.
func (s *Store) Bool(key string) (bool, bool) {
	v, ok := s.values[key].(bool)
	return v, ok
}

// Set stores a value under key, overwriting any existing entry. The
// console `set <var> <value>` command is the only expected caller: the
// engine core only ever reads from the store, all writes flow through the
// console command layer.
func (s *Store) Set(key string, value any) {
	s.values[key] = value
}

// List returns every key with the given prefix (a plain "" prefix lists
// everything), sorted, for the console `list_vars [prefix]` command.
func (s *Store) List(prefix string) []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
