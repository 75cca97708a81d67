package orchestrator

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/tenqz/videosos/internal/catalog"
	"github.com/tenqz/videosos/internal/domain"
	"github.com/tenqz/videosos/internal/providers/runware"
)

// Generic fallbacks applied when neither the caller nor the endpoint
// catalog provides a value.
const (
	fallbackVideoDuration = 5
	fallbackVideoWidth    = 1920
	fallbackVideoHeight   = 1080
	fallbackVideoFps      = 24
	fallbackAudioDuration = 30

	defaultOutputQuality = 99

	audioBitrate    = 128
	audioSampleRate = 44100
)

// seedImageKeys lists the candidate input fields for an image job's seed
// image, in priority order.
var seedImageKeys = []string{"seedImage", "inputImage", "image", "image_url"}

// deferredSeed is a seed image that arrived as an inline binary and must be
// uploaded to the provider just before the inference call.
type deferredSeed struct {
	url      string
	blob     *domain.Blob
	cacheKey string
}

func (s *deferredSeed) upload(ctx context.Context, client RunwareClient) (string, error) {
	contentType := s.blob.ContentType
	if contentType == "" {
		contentType = "image/png"
	}
	dataURI := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(s.blob.Data)
	return client.UploadImageAsset(ctx, dataURI, s.cacheKey)
}

// resolveSeedImage scans the candidate keys in priority order. A string
// candidate is a remote reference usable as-is; a binary candidate becomes
// a deferred upload keyed by its source field. Falsy candidates are
// skipped. Returns nil when no candidate is usable.
func resolveSeedImage(input map[string]any) *deferredSeed {
	for _, key := range seedImageKeys {
		switch candidate := input[key].(type) {
		case string:
			if candidate == "" {
				continue
			}
			return &deferredSeed{url: candidate}
		case *domain.Blob:
			if candidate == nil || len(candidate.Data) == 0 {
				continue
			}
			return &deferredSeed{blob: candidate, cacheKey: key}
		case domain.Blob:
			if len(candidate.Data) == 0 {
				continue
			}
			return &deferredSeed{blob: &candidate, cacheKey: key}
		}
	}
	return nil
}

// buildVideoPayload flattens the caller input into a videoInference
// payload, defaulting unset fields from the endpoint catalog entry and
// falling back to generic defaults for uncataloged endpoints.
func buildVideoPayload(endpointID string, input map[string]any, taskUUID string) *runware.VideoInferenceParams {
	defaultDuration := fallbackVideoDuration
	defaultWidth := fallbackVideoWidth
	defaultHeight := fallbackVideoHeight
	defaultFps := fallbackVideoFps
	if ep := catalog.Find(endpointID); ep != nil {
		if ep.DefaultDuration > 0 {
			defaultDuration = ep.DefaultDuration
		}
		if ep.DefaultWidth > 0 {
			defaultWidth = ep.DefaultWidth
		}
		if ep.DefaultHeight > 0 {
			defaultHeight = ep.DefaultHeight
		}
		if ep.DefaultFps > 0 {
			defaultFps = ep.DefaultFps
		}
	}

	params := &runware.VideoInferenceParams{
		TaskUUID:       taskUUID,
		PositivePrompt: stringField(input, "positivePrompt", "prompt"),
		Model:          endpointID,
		Duration:       intField(input, defaultDuration, "duration"),
		Fps:            intField(input, defaultFps, "fps"),
		Width:          intField(input, defaultWidth, "width"),
		Height:         intField(input, defaultHeight, "height"),
		OutputFormat:   stringFieldDefault(input, "mp4", "outputFormat"),
		OutputType:     "URL",
		NumberResults:  intField(input, 1, "numberResults"),
		IncludeCost:    boolField(input, true, "includeCost"),
		DeliveryMethod: "async",
	}

	if runware.ModelCapabilities(endpointID).OutputQuality {
		quality := intField(input, defaultOutputQuality, "outputQuality")
		params.OutputQuality = &quality
	}

	// Vendor-namespaced settings apply only to Google Veo endpoints; both
	// toggles default to enabled.
	if strings.HasPrefix(endpointID, "google:") {
		params.ProviderSettings = &runware.ProviderSettings{
			Google: &runware.GoogleSettings{
				EnhancePrompt: boolField(input, true, "enhancePrompt"),
				GenerateAudio: boolField(input, true, "generateAudio"),
			},
		}
	}

	if ref, ok := input["inputImage"].(string); ok && ref != "" {
		params.InputImage = ref
	}
	return params
}

// buildAudioPayload shapes the fixed music/voiceover payload. Audio
// endpoints carry no catalog defaults; format and quality are fixed by the
// delivery contract.
func buildAudioPayload(endpointID string, input map[string]any, taskUUID string) *runware.AudioInferenceParams {
	return &runware.AudioInferenceParams{
		TaskUUID:       taskUUID,
		PositivePrompt: stringField(input, "prompt"),
		Model:          endpointID,
		Duration:       intField(input, fallbackAudioDuration, "duration"),
		OutputFormat:   "MP3",
		OutputType:     "URL",
		AudioSettings: runware.AudioSettings{
			Bitrate:    audioBitrate,
			SampleRate: audioSampleRate,
		},
	}
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

func boolField(input map[string]any, fallback bool, keys ...string) bool {
	for _, key := range keys {
		if b, ok := input[key].(bool); ok {
			return b
		}
	}
	return fallback
}
