package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tenqz/videosos/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("fal: api key is required")

// APIError is returned when the fal API rejects a request.
type APIError struct {
	Status  int
	Message string
	Body    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("fal: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("fal: status %d", e.Status)
}

// Options configures the fal queue client.
type Options struct {
	APIKey         string
	QueueBaseURL   string
	RestBaseURL    string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the fal queue and storage APIs.
type Client struct {
	apiKey       string
	queueBaseURL string
	restBaseURL  string
	httpClient   *http.Client
	logger       *infra.Logger
}

// QueueSubmitResult is the acknowledgment returned by a queue submission.
type QueueSubmitResult struct {
	RequestID   string `json:"request_id"`
	Status      string `json:"status"`
	ResponseURL string `json:"response_url"`
	StatusURL   string `json:"status_url"`
}

type initiateUploadRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
}

type initiateUploadResponse struct {
	UploadURL string `json:"upload_url"`
	FileURL   string `json:"file_url"`
}

type errorDetail struct {
	Detail any `json:"detail"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	queueBaseURL := strings.TrimRight(opts.QueueBaseURL, "/")
	if queueBaseURL == "" {
		queueBaseURL = "https://queue.fal.run"
	}
	restBaseURL := strings.TrimRight(opts.RestBaseURL, "/")
	if restBaseURL == "" {
		restBaseURL = "https://rest.alpha.fal.ai"
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
		apiKey:       strings.TrimSpace(opts.APIKey),
		queueBaseURL: queueBaseURL,
		restBaseURL:  restBaseURL,
		httpClient:   httpClient,
		logger:       logger,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// Submit enqueues a generation request and returns the provider's
// correlation identifier. The job itself completes asynchronously and is
// observed by the result poller, not by this client.
func (c *Client) Submit(ctx context.Context, endpointID string, input map[string]any) (*QueueSubmitResult, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(endpointID) == "" {
		return nil, errors.New("fal: endpoint id is required")
	}
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("fal: encode request: %w", err)
	}
	endpoint := c.queueBaseURL + "/" + strings.TrimLeft(endpointID, "/")
	raw, err := c.do(ctx, http.MethodPost, endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	var decoded QueueSubmitResult
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("fal: decode response: %w", err)
	}
	if decoded.RequestID == "" {
		return nil, errors.New("fal: empty request id")
	}
	c.logger.Debug().
		Str("endpoint_id", endpointID).
		Str("request_id", decoded.RequestID).
		Msg("fal: submitted queue request")
	return &decoded, nil
}

// UploadBlob stores a binary payload in fal's asset storage and returns the
// durable file URL. The flow is two requests: initiate-upload for a signed
// target, then a PUT of the raw bytes.
func (c *Client) UploadBlob(ctx context.Context, data []byte, contentType string) (string, error) {
	if !c.HasCredentials() {
		return "", ErrMissingAPIKey
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	initPayload, err := json.Marshal(initiateUploadRequest{
		FileName:    "upload.bin",
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("fal: encode initiate upload: %w", err)
	}
	raw, err := c.do(ctx, http.MethodPost, c.restBaseURL+"/storage/upload/initiate", "application/json", bytes.NewReader(initPayload))
	if err != nil {
		return "", err
	}
	var initiated initiateUploadResponse
	if err := json.Unmarshal(raw, &initiated); err != nil {
		return "", fmt.Errorf("fal: decode initiate upload: %w", err)
	}
	if initiated.UploadURL == "" || initiated.FileURL == "" {
		return "", errors.New("fal: initiate upload returned empty urls")
	}

	putReq, err := http.NewRequestWithContext(ctx, http.MethodPut, initiated.UploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("fal: build upload request: %w", err)
	}
	putReq.Header.Set("Content-Type", contentType)
	resp, err := c.httpClient.Do(putReq)
	if err != nil {
		return "", fmt.Errorf("fal: upload bytes: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", &APIError{Status: resp.StatusCode, Message: "upload rejected", Body: string(body)}
	}
	c.logger.Debug().
		Str("file_url", initiated.FileURL).
		Int("bytes", len(data)).
		Msg("fal: uploaded blob to storage")
	return initiated.FileURL, nil
}

func (c *Client) do(ctx context.Context, method, endpoint, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("fal: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Key "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fal: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fal: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Body: string(raw)}
		var detail errorDetail
		if err := json.Unmarshal(raw, &detail); err == nil {
			if msg, ok := detail.Detail.(string); ok {
				apiErr.Message = msg
			}
		}
		return nil, apiErr
	}
	return raw, nil
}
