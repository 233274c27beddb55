// Package catalog resolves the external theme catalog into the fixed
// Prompt shape at the collaborator boundary, so the rest of the engine
// never re-sniffs payload field variants.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/hanasu-app/hanasu/internal/domain"
)

// Store is the persistence surface the catalog reads from.
type Store interface {
	ListPrompts(ctx context.Context) ([]*domain.Prompt, error)
}

// DB serves the prompt list from the store on demand; nothing is cached
// across process restarts.
type DB struct {
	store Store
}

// NewDB creates a store-backed catalog.
func NewDB(store Store) *DB {
	return &DB{store: store}
}

// Prompts returns the full prompt list.
func (c *DB) Prompts(ctx context.Context) ([]*domain.Prompt, error) {
	return c.store.ListPrompts(ctx)
}

// rawPrompt absorbs the ad hoc field-name variants seen in catalog
// payloads. Resolution to the fixed Prompt shape happens here, once.
type rawPrompt struct {
	ID        json.RawMessage `json:"id"`
	ThemeKey  string          `json:"theme_key"`
	Level     string          `json:"level"`
	Type      string          `json:"type"`
	Sub       json.RawMessage `json:"sub"`
	DisplayID string          `json:"display_id"`
	Question  string          `json:"question"`
	Text      string          `json:"text"`
}

type payload struct {
	All    []rawPrompt `json:"all"`
	Themes []rawPrompt `json:"themes"`
}

// DecodePayload parses a catalog payload. The payload may be a bare array,
// or an object carrying the list under "all" or "themes".
func DecodePayload(data []byte) ([]*domain.Prompt, error) {
	var list []rawPrompt
	if err := json.Unmarshal(data, &list); err != nil {
		var p payload
		if err2 := json.Unmarshal(data, &p); err2 != nil {
			return nil, fmt.Errorf("decode catalog payload: %w", err2)
		}
		switch {
		case p.All != nil:
			list = p.All
		case p.Themes != nil:
			list = p.Themes
		default:
			return nil, fmt.Errorf("catalog payload has no prompt list")
		}
	}

	prompts := make([]*domain.Prompt, 0, len(list))
	for _, r := range list {
		prompts = append(prompts, r.resolve())
	}
	return prompts, nil
}

func (r rawPrompt) resolve() *domain.Prompt {
	id := flexString(r.ID)
	if id == "" {
		id = r.ThemeKey
	}
	text := r.Question
	if text == "" {
		text = r.Text
	}
	return &domain.Prompt{
		ID:        id,
		Level:     r.Level,
		Type:      r.Type,
		Sub:       flexString(r.Sub),
		DisplayID: r.DisplayID,
		Text:      text,
	}
}

// flexString reads a JSON value that may arrive as a string or a number.
func flexString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return ""
}

// LoadFile reads a catalog payload from disk.
func LoadFile(path string) ([]*domain.Prompt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return DecodePayload(data)
}
