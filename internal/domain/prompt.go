// Package domain contains core domain types for the hanasu practice service.
package domain

// Prompt is a single practice topic, tagged with level and type.
// Prompts are immutable and sourced from the theme catalog.
type Prompt struct {
	ID        string `json:"id"`
	Level     string `json:"level"`
	Type      string `json:"type,omitempty"`
	Sub       string `json:"sub,omitempty"`
	DisplayID string `json:"display_id,omitempty"`
	Text      string `json:"question"`
}

// Key returns the prompt identity used for persistence. When the catalog
// row carries no ID, a level+sub+type composite key is used instead.
func (p *Prompt) Key() string {
	if p.ID != "" {
		return p.ID
	}
	return p.Level + "/" + p.Sub + "/" + p.Type
}
