package runware

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedEndpoint indicates the payload builder has no capability
// entry for the requested endpoint.
var ErrUnsupportedEndpoint = errors.New("runware: unsupported endpoint")

// Capability describes which optional payload fields a model family accepts.
type Capability struct {
	NegativePrompt bool
	Dimensions     bool
	Steps          bool
	CFGScale       bool
	SeedImage      bool
	OutputQuality  bool
}

// Model capabilities are keyed by the vendor prefix of the endpoint
// identifier (the part before the first colon).
var vendorCapabilities = map[string]Capability{
	"runware":    {NegativePrompt: true, Dimensions: true, Steps: true, CFGScale: true, SeedImage: true},
	"civitai":    {NegativePrompt: true, Dimensions: true, Steps: true, CFGScale: true, SeedImage: true},
	"google":     {Dimensions: true, SeedImage: true},
	"klingai":    {Dimensions: true, SeedImage: true, OutputQuality: true},
	"elevenlabs": {},
}

// ModelCapabilities returns the capability entry for an endpoint, falling
// back to a conservative zero entry for unknown vendors.
func ModelCapabilities(endpointID string) Capability {
	caps, _ := vendorCapabilities[vendorPrefix(endpointID)]
	return caps
}

// BuildImagePayload shapes an imageInference payload from the raw input,
// including only the fields the endpoint's model family accepts. It fails
// with ErrUnsupportedEndpoint when the vendor is unknown.
func BuildImagePayload(endpointID string, input map[string]any) (*ImageInferenceParams, error) {
	caps, ok := vendorCapabilities[vendorPrefix(endpointID)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEndpoint, endpointID)
	}

	params := &ImageInferenceParams{
		PositivePrompt: stringField(input, "positivePrompt", "prompt"),
		Model:          endpointID,
		NumberResults:  intField(input, 1, "numberResults"),
		OutputType:     "URL",
		OutputFormat:   stringFieldDefault(input, "PNG", "outputFormat"),
		IncludeCost:    boolField(input, true, "includeCost"),
	}
	if caps.NegativePrompt {
		params.NegativePrompt = stringField(input, "negativePrompt")
	}
	if caps.Dimensions {
		params.Width = intField(input, 0, "width")
		params.Height = intField(input, 0, "height")
	}
	if caps.Steps {
		params.Steps = intField(input, 0, "steps")
	}
	if caps.CFGScale {
		params.CFGScale = floatField(input, 0, "CFGScale", "cfgScale", "guidance_scale")
	}
	return params, nil
}

func vendorPrefix(endpointID string) string {
	if idx := strings.IndexByte(endpointID, ':'); idx > 0 {
		return endpointID[:idx]
	}
	return endpointID
}

func stringField(input map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := input[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func stringFieldDefault(input map[string]any, fallback string, keys ...string) string {
	if s := stringField(input, keys...); s != "" {
		return s
	}
	return fallback
}

func intField(input map[string]any, fallback int, keys ...string) int {
	for _, key := range keys {
		switch v := input[key].(type) {
		case int:
			if v != 0 {
				return v
			}
		case float64:
			if v != 0 {
				return int(v)
			}
		}
	}
	return fallback
}

func floatField(input map[string]any, fallback float64, keys ...string) float64 {
	for _, key := range keys {
		switch v := input[key].(type) {
		case float64:
			if v != 0 {
				return v
			}
		case int:
			if v != 0 {
				return float64(v)
			}
		}
	}
	return fallback
}

func boolField(input map[string]any, fallback bool, keys ...string) bool {
	for _, key := range keys {
		if b, ok := input[key].(bool); ok {
			return b
		}
	}
	return fallback
}
