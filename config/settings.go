package config

import (
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Setting keys read through Settings.GetValue.
const (
	// SettingInlineChatEnabled gates the whole inline chat controller.
	SettingInlineChatEnabled = "inline_chat.enabled"
	// SettingInlineChatAgentID names the agent the controller talks to.
	SettingInlineChatAgentID = "inline_chat.agent_id"
)

// Settings is a flat, dotted-key view over a Config used as a configuration
// lookup by components that only need a handful of values. It is safe for
// concurrent use.
type Settings struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewSettings creates settings from explicit key/value pairs.
func NewSettings(values map[string]any) *Settings {
	s := &Settings{values: make(map[string]any, len(values))}
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

// Settings flattens the configuration into dotted keys named after the YAML
// field names, e.g. "inline_chat.enabled".
func (c *Config) Settings() (*Settings, error) {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("config: encode settings: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("config: decode settings: %w", err)
	}
	s := &Settings{values: make(map[string]any)}
	flatten("", tree, s.values)
	return s, nil
}

func flatten(prefix string, node map[string]any, out map[string]any) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := v.(map[string]any); ok {
			flatten(key, child, out)
			continue
		}
		out[key] = v
	}
}

// GetValue returns the value stored under key, or nil.
func (s *Settings) GetValue(key string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key]
}

// Set overrides a single key.
func (s *Settings) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Bool returns the value under key as a bool; anything else is false.
func (s *Settings) Bool(key string) bool {
	b, _ := s.GetValue(key).(bool)
	return b
}

// String returns the value under key as a string; anything else is "".
func (s *Settings) String(key string) string {
	str, _ := s.GetValue(key).(string)
	return str
}

// Keys returns every key, sorted.
func (s *Settings) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	return keys
}
