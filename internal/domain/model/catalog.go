package model

// Model describes one selectable upstream chat model.
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Default     bool   `json:"default,omitempty"`
}

// catalog is the fixed set of models the service exposes. The order here
// is the order returned to clients.
var catalog = []Model{
	{
		ID:          "qwen3.5-plus",
		Name:        "Qwen3.5 Plus",
		Description: "Balanced general-purpose model, the default choice",
		Default:     true,
	},
	{
		ID:          "qwen3-max-2026-01-23",
		Name:        "Qwen3 Max",
		Description: "Strongest reasoning in the Qwen3 family",
	},
	{
		ID:          "qwen3-coder-next",
		Name:        "Qwen3 Coder Next",
		Description: "Latest coding-tuned preview",
	},
	{
		ID:          "qwen3-coder-plus",
		Name:        "Qwen3 Coder Plus",
		Description: "Stable coding-tuned model",
	},
	{
		ID:          "glm-5",
		Name:        "GLM-5",
		Description: "Zhipu flagship model",
	},
	{
		ID:          "glm-4.7",
		Name:        "GLM-4.7",
		Description: "Zhipu fast general model",
	},
	{
		ID:          "kimi-k2.5",
		Name:        "Kimi K2.5",
		Description: "Moonshot long-context model",
	},
}

// All returns the full catalog.
func All() []Model {
	out := make([]Model, len(catalog))
	copy(out, catalog)
	return out
}

// IsSupported reports whether id names a catalog model.
func IsSupported(id string) bool {
	for _, m := range catalog {
		if m.ID == id {
			return true
		}
	}
	return false
}

// DefaultID returns the id of the default model.
func DefaultID() string {
	for _, m := range catalog {
		if m.Default {
			return m.ID
		}
	}
	return catalog[0].ID
}

// IDs returns the catalog ids in order.
func IDs() []string {
	ids := make([]string, len(catalog))
	for i, m := range catalog {
		ids[i] = m.ID
	}
	return ids
}
