package catalog

import "github.com/tenqz/videosos/internal/domain"

// Endpoint describes one entry of a provider's model catalog, including the
// per-endpoint generation defaults used when the caller leaves them unset.
type Endpoint struct {
	EndpointID      string
	Label           string
	Provider        domain.Provider
	MediaType       domain.MediaType
	DefaultDuration int
	DefaultWidth    int
	DefaultHeight   int
	DefaultFps      int
}

// FalEndpoints is the static catalog of fal queue endpoints.
var FalEndpoints = []Endpoint{
	{EndpointID: "fal-ai/flux/dev", Label: "Flux Dev", Provider: domain.ProviderFal, MediaType: domain.MediaTypeImage},
	{EndpointID: "fal-ai/flux/schnell", Label: "Flux Schnell", Provider: domain.ProviderFal, MediaType: domain.MediaTypeImage},
	{EndpointID: "fal-ai/flux-pro/v1.1-ultra", Label: "Flux Pro 1.1 Ultra", Provider: domain.ProviderFal, MediaType: domain.MediaTypeImage},
	{EndpointID: "fal-ai/gemini-25-flash-image/edit", Label: "Gemini Flash Edit", Provider: domain.ProviderFal, MediaType: domain.MediaTypeImage},
	{EndpointID: "fal-ai/minimax/video-01-live", Label: "Minimax Video 01 Live", Provider: domain.ProviderFal, MediaType: domain.MediaTypeVideo},
	{EndpointID: "fal-ai/kling-video/v1.5/pro", Label: "Kling 1.5 Pro", Provider: domain.ProviderFal, MediaType: domain.MediaTypeVideo},
	{EndpointID: "fal-ai/mmaudio-v2", Label: "MMAudio V2", Provider: domain.ProviderFal, MediaType: domain.MediaTypeMusic},
	{EndpointID: "fal-ai/playht/tts/v3", Label: "PlayHT TTS v3", Provider: domain.ProviderFal, MediaType: domain.MediaTypeVoiceover},
}

// RunwareEndpoints is the static catalog of runware model endpoints.
var RunwareEndpoints = []Endpoint{
	{EndpointID: "runware:100@1", Label: "Flux Schnell (Runware)", Provider: domain.ProviderRunware, MediaType: domain.MediaTypeImage},
	{EndpointID: "runware:101@1", Label: "Flux Dev (Runware)", Provider: domain.ProviderRunware, MediaType: domain.MediaTypeImage},
	{EndpointID: "civitai:4384@128713", Label: "DreamShaper 8", Provider: domain.ProviderRunware, MediaType: domain.MediaTypeImage},
	{EndpointID: "google:3@0", Label: "Veo 3", Provider: domain.ProviderRunware, MediaType: domain.MediaTypeVideo,
		DefaultDuration: 8, DefaultWidth: 1280, DefaultHeight: 720, DefaultFps: 24},
	{EndpointID: "google:2@0", Label: "Veo 2", Provider: domain.ProviderRunware, MediaType: domain.MediaTypeVideo,
		DefaultDuration: 5, DefaultWidth: 1280, DefaultHeight: 720, DefaultFps: 24},
	{EndpointID: "klingai:5@3", Label: "Kling 2.1 Master", Provider: domain.ProviderRunware, MediaType: domain.MediaTypeVideo,
		DefaultDuration: 5, DefaultWidth: 1920, DefaultHeight: 1080, DefaultFps: 30},
	{EndpointID: "elevenlabs:1@1", Label: "ElevenLabs Music", Provider: domain.ProviderRunware, MediaType: domain.MediaTypeMusic},
	{EndpointID: "elevenlabs:2@1", Label: "ElevenLabs Voice", Provider: domain.ProviderRunware, MediaType: domain.MediaTypeVoiceover},
}

// Find looks up an endpoint across both catalogs. The scan order matters:
// fal entries shadow runware entries with the same identifier.
func Find(endpointID string) *Endpoint {
	for i := range FalEndpoints {
		if FalEndpoints[i].EndpointID == endpointID {
			return &FalEndpoints[i]
		}
	}
	for i := range RunwareEndpoints {
		if RunwareEndpoints[i].EndpointID == endpointID {
			return &RunwareEndpoints[i]
		}
	}
	return nil
}

// ResolveProvider selects the provider governing an endpoint identifier.
// Unknown identifiers fall back to fal rather than failing, so endpoints
// added upstream before being cataloged here still route somewhere.
func ResolveProvider(endpointID string) domain.Provider {
	if ep := Find(endpointID); ep != nil {
		return ep.Provider
	}
	return domain.ProviderFal
}
