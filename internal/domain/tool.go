package domain

// ToolCategory enumerates the catalog sections a tool can appear under.
type ToolCategory string

const (
	ToolCategoryImage ToolCategory = "image"
	ToolCategoryVideo ToolCategory = "video"
)

// ToolParameter describes one tool-specific knob exposed to the caller.
type ToolParameter struct {
	ID           string   `json:"id"`
	Label        string   `json:"label"`
	Type         string   `json:"type"`
	Options      []string `json:"options,omitempty"`
	DefaultValue any      `json:"default_value,omitempty"`
}

// ToolDefinition describes one generation tool. CostCredits is the immutable
// credit price charged per successful generation; the orchestrator reads the
// cost from here and nowhere else.
type ToolDefinition struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    ToolCategory    `json:"category"`
	APIID       int             `json:"api_id"`
	CostCredits int             `json:"cost_credits"`
	Parameters  []ToolParameter `json:"parameters"`
	IsNew       bool            `json:"is_new,omitempty"`
	IsTop       bool            `json:"is_top,omitempty"`
	IsBest      bool            `json:"is_best,omitempty"`
}

var tools = []ToolDefinition{
	{
		ID:          "nano-banana",
		Name:        "Nano Banana",
		Description: "Ultra-fast image generation (Google Flash 2.5)",
		Category:    ToolCategoryImage,
		APIID:       385,
		CostCredits: 2,
		IsTop:       true,
		Parameters: []ToolParameter{
			{
				ID:           "img_model",
				Label:        "Model",
				Type:         "select",
				Options:      []string{"img-google/flash-25", "img-flux/kontext-max", "img-flux/pro1.1"},
				DefaultValue: "img-google/flash-25",
			},
			{
				ID:           "aspect_ratio",
				Label:        "Aspect ratio",
				Type:         "select",
				Options:      []string{"1:1", "4:3", "16:9", "9:16"},
				DefaultValue: "1:1",
			},
		},
	},
	{
		ID:          "kling-video",
		Name:        "Kling Video 2.6",
		Description: "Cinematic AI video generation",
		Category:    ToolCategoryVideo,
		APIID:       601,
		CostCredits: 10,
		IsBest:      true,
	},
}

// Tools returns the tool catalog in display order.
func Tools() []ToolDefinition {
	out := make([]ToolDefinition, len(tools))
	copy(out, tools)
	return out
}

// FindTool looks a tool up by its catalog id.
func FindTool(id string) (ToolDefinition, bool) {
	for _, t := range tools {
		if t.ID == id {
			return t, true
		}
	}
	return ToolDefinition{}, false
}
