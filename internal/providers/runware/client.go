package runware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tenqz/videosos/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("runware: api key is required")

// APIError is returned when the runware API rejects a request at the
// transport level.
type APIError struct {
	Status  int
	Message string
	Body    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("runware: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("runware: status %d", e.Status)
}

// TaskError is an error reported inside an otherwise successful response.
type TaskError struct {
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	ResponseContent string `json:"responseContent,omitempty"`
}

// Text returns the most specific message available.
func (e *TaskError) Text(fallback string) string {
	if e == nil {
		return fallback
	}
	if e.Message != "" {
		return e.Message
	}
	if e.ResponseContent != "" {
		return e.ResponseContent
	}
	return fallback
}

// TaskResult is one element of a normalized runware response. Raw retains
// the element's JSON exactly as received so callers can persist the
// provider payload verbatim.
type TaskResult struct {
	TaskType string     `json:"taskType,omitempty"`
	TaskUUID string     `json:"taskUUID,omitempty"`
	Status   string     `json:"status,omitempty"`
	ImageURL string     `json:"imageURL,omitempty"`
	VideoURL string     `json:"videoURL,omitempty"`
	AudioURL string     `json:"audioURL,omitempty"`
	Cost     float64    `json:"cost,omitempty"`
	Error    *TaskError `json:"error,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// Failed reports whether the element carries an error marker.
func (r *TaskResult) Failed() bool {
	return r != nil && (r.Error != nil || r.Status == "error")
}

// GoogleSettings toggles Veo-specific behavior.
type GoogleSettings struct {
	EnhancePrompt bool `json:"enhancePrompt"`
	GenerateAudio bool `json:"generateAudio"`
}

// ProviderSettings carries vendor-namespaced option blocks.
type ProviderSettings struct {
	Google *GoogleSettings `json:"google,omitempty"`
}

// ImageInferenceParams is the closed payload for an imageInference task.
type ImageInferenceParams struct {
	TaskType       string  `json:"taskType"`
	TaskUUID       string  `json:"taskUUID"`
	PositivePrompt string  `json:"positivePrompt"`
	NegativePrompt string  `json:"negativePrompt,omitempty"`
	Model          string  `json:"model"`
	Width          int     `json:"width,omitempty"`
	Height         int     `json:"height,omitempty"`
	Steps          int     `json:"steps,omitempty"`
	CFGScale       float64 `json:"CFGScale,omitempty"`
	NumberResults  int     `json:"numberResults,omitempty"`
	OutputType     string  `json:"outputType,omitempty"`
	OutputFormat   string  `json:"outputFormat,omitempty"`
	IncludeCost    bool    `json:"includeCost,omitempty"`
	SeedImage      string  `json:"seedImage,omitempty"`
}

// VideoInferenceParams is the closed payload for a videoInference task.
type VideoInferenceParams struct {
	TaskType         string            `json:"taskType"`
	TaskUUID         string            `json:"taskUUID"`
	PositivePrompt   string            `json:"positivePrompt"`
	Model            string            `json:"model"`
	Duration         int               `json:"duration"`
	Fps              int               `json:"fps"`
	Width            int               `json:"width"`
	Height           int               `json:"height"`
	OutputFormat     string            `json:"outputFormat"`
	OutputType       string            `json:"outputType"`
	NumberResults    int               `json:"numberResults"`
	IncludeCost      bool              `json:"includeCost"`
	DeliveryMethod   string            `json:"deliveryMethod"`
	OutputQuality    *int              `json:"outputQuality,omitempty"`
	ProviderSettings *ProviderSettings `json:"providerSettings,omitempty"`
	InputImage       string            `json:"inputImage,omitempty"`
}

// AudioSettings fixes the delivered audio quality.
type AudioSettings struct {
	Bitrate    int `json:"bitrate"`
	SampleRate int `json:"sampleRate"`
}

// AudioInferenceParams is the closed payload for an audioInference task,
// shared by music and voiceover generation.
type AudioInferenceParams struct {
	TaskType       string        `json:"taskType"`
	TaskUUID       string        `json:"taskUUID"`
	PositivePrompt string        `json:"positivePrompt"`
	Model          string        `json:"model"`
	Duration       int           `json:"duration"`
	OutputFormat   string        `json:"outputFormat"`
	OutputType     string        `json:"outputType"`
	AudioSettings  AudioSettings `json:"audioSettings"`
}

type imageUploadTask struct {
	TaskType string `json:"taskType"`
	TaskUUID string `json:"taskUUID"`
	Image    string `json:"image"`
}

type apiEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Code     string `json:"code"`
		Message  string `json:"message"`
		TaskUUID string `json:"taskUUID"`
	} `json:"errors"`
}

// Options configures the runware client.
type Options struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the runware task API. Every operation is a
// POST of a task array against the same endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.runware.ai/v1"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// RequestImages runs an imageInference task.
func (c *Client) RequestImages(ctx context.Context, params *ImageInferenceParams) ([]TaskResult, error) {
	params.TaskType = "imageInference"
	return c.runTask(ctx, params)
}

// VideoInference runs a videoInference task.
func (c *Client) VideoInference(ctx context.Context, params *VideoInferenceParams) ([]TaskResult, error) {
	params.TaskType = "videoInference"
	return c.runTask(ctx, params)
}

// AudioInference runs an audioInference task.
func (c *Client) AudioInference(ctx context.Context, params *AudioInferenceParams) ([]TaskResult, error) {
	params.TaskType = "audioInference"
	return c.runTask(ctx, params)
}

// UploadImageAsset stores an inline image with the provider and returns the
// remote reference usable as a seed image. The cache key names the input
// field the asset came from; repeated uploads for the same field reuse the
// provider-side asset when the API reports one.
func (c *Client) UploadImageAsset(ctx context.Context, dataURI, cacheKey string) (string, error) {
	task := imageUploadTask{
		TaskType: "imageUpload",
		TaskUUID: cacheKey,
		Image:    dataURI,
	}
	results, err := c.runTask(ctx, task)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", errors.New("runware: image upload returned no result")
	}
	first := results[0]
	if first.Failed() {
		return "", fmt.Errorf("runware: image upload failed: %s", first.Error.Text("unknown error"))
	}
	var uploaded struct {
		ImageUUID string `json:"imageUUID"`
		ImageURL  string `json:"imageURL"`
	}
	if err := json.Unmarshal(first.Raw, &uploaded); err != nil {
		return "", fmt.Errorf("runware: decode image upload: %w", err)
	}
	if uploaded.ImageURL != "" {
		return uploaded.ImageURL, nil
	}
	if uploaded.ImageUUID != "" {
		return uploaded.ImageUUID, nil
	}
	return "", errors.New("runware: image upload returned no reference")
}

func (c *Client) runTask(ctx context.Context, task any) ([]TaskResult, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	body, err := json.Marshal([]any{task})
	if err != nil {
		return nil, fmt.Errorf("runware: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("runware: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("runware: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("runware: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Body: string(raw)}
		var envelope apiEnvelope
		if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Errors) > 0 {
			apiErr.Message = envelope.Errors[0].Message
		}
		return nil, apiErr
	}
	return normalizeResults(raw)
}

// normalizeResults flattens the response into a result slice. The API may
// answer with an envelope whose data field is an array or a single object,
// with a bare array, or with a bare object; task-level errors become result
// elements carrying an error marker.
func normalizeResults(raw []byte) ([]TaskResult, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return decodeElements(trimmed)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("runware: decode response: %w", err)
	}

	var results []TaskResult
	if len(envelope.Data) > 0 {
		decoded, err := decodeElements(envelope.Data)
		if err != nil {
			return nil, err
		}
		results = decoded
	}
	for _, taskErr := range envelope.Errors {
		element, _ := json.Marshal(map[string]any{
			"taskUUID": taskErr.TaskUUID,
			"error":    map[string]string{"code": taskErr.Code, "message": taskErr.Message},
		})
		results = append(results, TaskResult{
			TaskUUID: taskErr.TaskUUID,
			Error:    &TaskError{Code: taskErr.Code, Message: taskErr.Message},
			Raw:      element,
		})
	}
	if results == nil {
		// Bare object response without an envelope.
		var result TaskResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, fmt.Errorf("runware: decode response: %w", err)
		}
		result.Raw = append(json.RawMessage(nil), raw...)
		results = []TaskResult{result}
	}
	return results, nil
}

func decodeElements(data json.RawMessage) ([]TaskResult, error) {
	elements, err := splitElements(data)
	if err != nil {
		return nil, err
	}
	results := make([]TaskResult, 0, len(elements))
	for _, element := range elements {
		var result TaskResult
		if err := json.Unmarshal(element, &result); err != nil {
			return nil, fmt.Errorf("runware: decode result element: %w", err)
		}
		result.Raw = element
		results = append(results, result)
	}
	return results, nil
}

func splitElements(data json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var elements []json.RawMessage
		if err := json.Unmarshal(trimmed, &elements); err != nil {
			return nil, fmt.Errorf("runware: decode result array: %w", err)
		}
		return elements, nil
	}
	return []json.RawMessage{trimmed}, nil
}

// Source hands out a ready client, failing when the provider cannot be
// reached or no credentials are configured. The submission path obtains the
// handle only after the pending record is persisted.
type Source interface {
	Client(ctx context.Context) (*Client, error)
}

// LazySource builds the client on first use and reuses it afterwards.
type LazySource struct {
	opts Options

	mu     sync.Mutex
	client *Client
}

// NewLazySource wraps client options in a lazily-connecting source.
func NewLazySource(opts Options) *LazySource {
	return &LazySource{opts: opts}
}

// Client returns the shared client, constructing it on first call. It fails
// with ErrMissingAPIKey when no credentials are configured.
func (s *LazySource) Client(ctx context.Context) (*Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	if strings.TrimSpace(s.opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := NewClient(s.opts)
	if err != nil {
		return nil, err
	}
	s.client = client
	return client, nil
}
