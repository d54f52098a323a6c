// Package params is a flat key/value parameter store, the configuration
// source controllers read from at initialization.
package params

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Store holds named parameters. It is populated before a controller
// initializes and read-only afterwards.
type Store struct {
	values map[string]any
}

func New() *Store {
	return &Store{values: make(map[string]any)}
}

// Load reads a YAML mapping from path into a new store.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := New()
	if err := yaml.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("params: %s: %w", path, err)
	}
	return s, nil
}

func (s *Store) SetString(key, value string) {
	s.values[key] = value
}

func (s *Store) SetStringList(key string, values []string) {
	s.values[key] = values
}

// GetString returns the string parameter under key, reporting whether
// it exists and is a string.
func (s *Store) GetString(key string) (string, bool) {
	v, ok := s.values[key].(string)
	return v, ok
}

// GetStringDefault returns the string under key, or def when the key is
// absent or not a string.
func (s *Store) GetStringDefault(key, def string) string {
	if v, ok := s.GetString(key); ok {
		return v
	}
	return def
}

// GetStringList returns the list of strings under key. YAML sequences
// decode as []any, so both representations are accepted.
func (s *Store) GetStringList(key string) ([]string, bool) {
	switch v := s.values[key].(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, len(v))
		for i, e := range v {
			str, ok := e.(string)
			if !ok {
				return nil, false
			}
			out[i] = str
		}
		return out, true
	default:
		return nil, false
	}
}
