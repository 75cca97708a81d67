package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tenqz/videosos/internal/catalog"
	"github.com/tenqz/videosos/internal/domain"
	"github.com/tenqz/videosos/internal/download"
	"github.com/tenqz/videosos/internal/infra"
	"github.com/tenqz/videosos/internal/metrics"
	"github.com/tenqz/videosos/internal/providers/fal"
	"github.com/tenqz/videosos/internal/providers/runware"
	"github.com/tenqz/videosos/internal/thumbnail"
)

// JobRequest is a caller-constructed submission. It is consumed once and
// never persisted as-is.
type JobRequest struct {
	ProjectID  string
	EndpointID string
	MediaType  domain.MediaType
	Input      map[string]any
}

// SubmitResult acknowledges an accepted job. For the runware path Immediate
// is true and the record already exists in pending state; reconciliation
// continues detached from the caller.
type SubmitResult struct {
	TaskID    string
	RequestID string
	Immediate bool
}

// FalSubmitter is the slice of the fal client the orchestrator consumes.
type FalSubmitter interface {
	Submit(ctx context.Context, endpointID string, input map[string]any) (*fal.QueueSubmitResult, error)
	UploadBlob(ctx context.Context, data []byte, contentType string) (string, error)
}

// RunwareClient is the slice of the runware client the orchestrator consumes.
type RunwareClient interface {
	RequestImages(ctx context.Context, params *runware.ImageInferenceParams) ([]runware.TaskResult, error)
	VideoInference(ctx context.Context, params *runware.VideoInferenceParams) ([]runware.TaskResult, error)
	AudioInference(ctx context.Context, params *runware.AudioInferenceParams) ([]runware.TaskResult, error)
	UploadImageAsset(ctx context.Context, dataURI, cacheKey string) (string, error)
}

// RunwareSource hands out a runware client. Obtaining the handle happens
// after the pending record is persisted, so an unavailable client settles
// the record as failed instead of surfacing to the caller.
type RunwareSource interface {
	Client(ctx context.Context) (RunwareClient, error)
}

// RunwareSourceFunc adapts a closure to RunwareSource.
type RunwareSourceFunc func(ctx context.Context) (RunwareClient, error)

// Client calls the wrapped closure.
func (f RunwareSourceFunc) Client(ctx context.Context) (RunwareClient, error) { return f(ctx) }

// Options wires the orchestrator's collaborators.
type Options struct {
	Store       domain.MediaStore
	Invalidator domain.Invalidator
	Fal         FalSubmitter
	Runware     RunwareSource
	Fetcher     download.Fetcher
	Thumbnails  thumbnail.Extractor
	Logger      *infra.Logger

	// OnAsyncError is invoked for failures that happen after the caller
	// already holds an accepted acknowledgment but still warrant a
	// secondary notification (video generation rejected by the provider).
	OnAsyncError func(projectID, taskID string, err error)

	Now   func() time.Time
	NewID func() string
}

// Orchestrator drives the submission and reconciliation state machine for
// generation jobs. Per job, the record moves pending -> completed or
// pending -> failed; record creation always happens before any transition.
type Orchestrator struct {
	store        domain.MediaStore
	invalidator  domain.Invalidator
	fal          FalSubmitter
	runware      RunwareSource
	fetcher      download.Fetcher
	thumbnails   thumbnail.Extractor
	logger       *infra.Logger
	onAsyncError func(projectID, taskID string, err error)
	now          func() time.Time
	newID        func() string

	tasks sync.WaitGroup
}

// New constructs an orchestrator, defaulting clocks, identifiers and the
// logger when unset.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	inv := opts.Invalidator
	if inv == nil {
		inv = nopInvalidator{}
	}
	return &Orchestrator{
		store:        opts.Store,
		invalidator:  inv,
		fal:          opts.Fal,
		runware:      opts.Runware,
		fetcher:      opts.Fetcher,
		thumbnails:   opts.Thumbnails,
		logger:       logger,
		onAsyncError: opts.OnAsyncError,
		now:          now,
		newID:        newID,
	}
}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(context.Context, string) {}

// Submit routes the request to the governing provider and returns once the
// job is accepted. Errors returned here mean no media record exists.
func (o *Orchestrator) Submit(ctx context.Context, req JobRequest) (*SubmitResult, error) {
	if !req.MediaType.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedMediaType, req.MediaType)
	}
	switch catalog.ResolveProvider(req.EndpointID) {
	case domain.ProviderRunware:
		return o.submitRunware(ctx, req)
	default:
		return o.submitFal(ctx, req)
	}
}

// Drain blocks until every detached reconciliation and download task has
// finished. Used on shutdown and by tests.
func (o *Orchestrator) Drain() {
	o.tasks.Wait()
}

// submitFal normalizes the input, submits to the fal queue and creates the
// record only once the provider acknowledged the request. A submission
// failure therefore leaves no trace in the store.
func (o *Orchestrator) submitFal(ctx context.Context, req JobRequest) (*SubmitResult, error) {
	prepared, err := o.normalizeFalInput(ctx, req.Input)
	if err != nil {
		return nil, err
	}
	ack, err := o.fal.Submit(ctx, req.EndpointID, prepared)
	if err != nil {
		return nil, err
	}
	rec := &domain.MediaRecord{
		ID:         o.newID(),
		ProjectID:  req.ProjectID,
		CreatedAt:  o.now(),
		MediaType:  req.MediaType,
		Kind:       domain.MediaKindGenerated,
		Provider:   domain.ProviderFal,
		EndpointID: req.EndpointID,
		RequestID:  ack.RequestID,
		Status:     domain.MediaStatusPending,
		Input:      prepared,
	}
	created, err := o.store.Create(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("create media record: %w", err)
	}
	metrics.JobsSubmittedTotal.WithLabelValues(string(domain.ProviderFal), string(req.MediaType)).Inc()
	o.invalidator.Invalidate(ctx, req.ProjectID)
	o.logger.Info().
		Str("media_id", created.ID).
		Str("request_id", ack.RequestID).
		Str("endpoint_id", req.EndpointID).
		Msg("submitted fal job")
	return &SubmitResult{TaskID: created.ID, RequestID: ack.RequestID}, nil
}

// submitRunware persists a pending record under a locally generated task
// identifier, returns the acknowledgment, and reconciles the provider call
// in a detached task. The UI sees the pending entry even if the network
// call never returns.
func (o *Orchestrator) submitRunware(ctx context.Context, req JobRequest) (*SubmitResult, error) {
	taskUUID := o.newID()

	call, err := shapeRunwareCall(req, taskUUID)
	if err != nil {
		return nil, err
	}

	rec := &domain.MediaRecord{
		ID:         taskUUID,
		ProjectID:  req.ProjectID,
		CreatedAt:  o.now(),
		MediaType:  req.MediaType,
		Kind:       domain.MediaKindGenerated,
		Provider:   domain.ProviderRunware,
		EndpointID: req.EndpointID,
		TaskUUID:   taskUUID,
		Status:     domain.MediaStatusPending,
		Input:      req.Input,
	}
	if _, err := o.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create media record: %w", err)
	}
	metrics.JobsSubmittedTotal.WithLabelValues(string(domain.ProviderRunware), string(req.MediaType)).Inc()

	result := &SubmitResult{TaskID: taskUUID, Immediate: true}

	// The acknowledgment above is sealed before the task spawns; nothing
	// past this point can reach the caller synchronously.
	bg := context.WithoutCancel(ctx)
	o.spawn(func() {
		o.reconcileRunware(bg, req, taskUUID, call)
	})
	return result, nil
}

// runwareCall pairs the shaped payload with the deferred seed upload, if
// any, for one provider invocation.
type runwareCall struct {
	image *runware.ImageInferenceParams
	video *runware.VideoInferenceParams
	audio *runware.AudioInferenceParams
	seed  *deferredSeed
}

func shapeRunwareCall(req JobRequest, taskUUID string) (*runwareCall, error) {
	switch req.MediaType {
	case domain.MediaTypeImage:
		params, err := runware.BuildImagePayload(req.EndpointID, req.Input)
		if err != nil {
			return nil, err
		}
		params.TaskUUID = taskUUID
		seed := resolveSeedImage(req.Input)
		if seed != nil && seed.url != "" {
			params.SeedImage = seed.url
			seed = nil
		}
		return &runwareCall{image: params, seed: seed}, nil
	case domain.MediaTypeVideo:
		return &runwareCall{video: buildVideoPayload(req.EndpointID, req.Input, taskUUID)}, nil
	case domain.MediaTypeMusic, domain.MediaTypeVoiceover:
		return &runwareCall{audio: buildAudioPayload(req.EndpointID, req.Input, taskUUID)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedMediaType, req.MediaType)
	}
}

func (o *Orchestrator) reconcileRunware(ctx context.Context, req JobRequest, taskUUID string, call *runwareCall) {
	defer o.invalidator.Invalidate(ctx, req.ProjectID)

	client, err := o.runware.Client(ctx)
	if err != nil || client == nil {
		if err == nil {
			err = domain.ErrClientUnavailable
		}
		o.logger.Error().Err(err).Str("task_uuid", taskUUID).Msg("runware client unavailable")
		o.settleFailed(ctx, req, taskUUID)
		return
	}

	if call.seed != nil {
		ref, err := call.seed.upload(ctx, client)
		if err != nil {
			o.logger.Error().Err(err).Str("task_uuid", taskUUID).Msg("seed image upload failed")
			o.settleFailed(ctx, req, taskUUID)
			return
		}
		call.image.SeedImage = ref
	}

	var results []runware.TaskResult
	switch {
	case call.image != nil:
		results, err = client.RequestImages(ctx, call.image)
	case call.video != nil:
		results, err = client.VideoInference(ctx, call.video)
	default:
		results, err = client.AudioInference(ctx, call.audio)
	}
	if err != nil {
		o.logger.Error().Err(err).Str("task_uuid", taskUUID).Str("endpoint_id", req.EndpointID).Msg("runware call failed")
		o.settleFailed(ctx, req, taskUUID)
		return
	}
	if len(results) == 0 {
		// Nothing to inspect; the poller owns the rest of this job's life.
		return
	}

	first := results[0]
	if first.Failed() {
		o.logger.Error().
			Str("task_uuid", taskUUID).
			Str("message", first.Error.Text("generation failed")).
			Msg("runware reported task error")
		o.settleFailed(ctx, req, taskUUID)
		if req.MediaType == domain.MediaTypeVideo {
			// The caller already holds an accepted acknowledgment, so a
			// status flip alone is invisible until the next refresh; the
			// hook is the secondary notification channel.
			o.reportAsyncError(req.ProjectID, taskUUID, errors.New(first.Error.Text("video generation failed")))
		}
		return
	}

	resultURL := completionURL(req.MediaType, first)
	if resultURL == "" {
		// No completion marker: the record stays pending and the external
		// poller observes eventual completion.
		return
	}

	meta := domain.MediaMetadata{Cost: first.Cost, TaskUUID: first.TaskUUID}
	if err := o.store.MarkCompleted(ctx, taskUUID, json.RawMessage(first.Raw), meta); err != nil {
		o.logger.Error().Err(err).Str("task_uuid", taskUUID).Msg("failed to persist completion")
		return
	}
	metrics.JobsSettledTotal.WithLabelValues(string(domain.ProviderRunware), string(req.MediaType), string(domain.MediaStatusCompleted)).Inc()

	o.spawn(func() {
		o.fetchResultBlob(ctx, req, taskUUID, resultURL, first.VideoURL != "")
	})
}

// fetchResultBlob downloads the completed payload and attaches it. Failures
// are logged only; a completed record with no blob is a valid terminal
// state.
func (o *Orchestrator) fetchResultBlob(ctx context.Context, req JobRequest, taskUUID, resultURL string, isVideo bool) {
	blob, err := o.fetcher.Fetch(ctx, resultURL)
	if err != nil {
		metrics.BlobDownloadsTotal.WithLabelValues(string(req.MediaType), "false").Inc()
		o.logger.Error().Err(err).Str("task_uuid", taskUUID).Str("url", resultURL).Msg("failed to download result blob")
		return
	}
	metrics.BlobDownloadsTotal.WithLabelValues(string(req.MediaType), "true").Inc()
	if err := o.store.AttachBlob(ctx, taskUUID, blob); err != nil {
		o.logger.Error().Err(err).Str("task_uuid", taskUUID).Msg("failed to attach blob")
		return
	}

	if !isVideo || req.MediaType != domain.MediaTypeVideo || o.thumbnails == nil {
		return
	}
	thumb, err := o.thumbnails.Extract(ctx, blob)
	if err != nil {
		o.logger.Error().Err(err).Str("task_uuid", taskUUID).Msg("failed to extract thumbnail")
		return
	}
	if thumb == nil {
		return
	}
	if err := o.store.AttachThumbnail(ctx, taskUUID, thumb); err != nil {
		o.logger.Error().Err(err).Str("task_uuid", taskUUID).Msg("failed to attach thumbnail")
		return
	}
	o.invalidator.Invalidate(ctx, req.ProjectID)
}

func (o *Orchestrator) settleFailed(ctx context.Context, req JobRequest, taskUUID string) {
	if err := o.store.MarkFailed(ctx, taskUUID); err != nil {
		o.logger.Error().Err(err).Str("task_uuid", taskUUID).Msg("failed to persist failed status")
		return
	}
	metrics.JobsSettledTotal.WithLabelValues(string(domain.ProviderRunware), string(req.MediaType), string(domain.MediaStatusFailed)).Inc()
}

func (o *Orchestrator) reportAsyncError(projectID, taskID string, err error) {
	if o.onAsyncError != nil {
		o.onAsyncError(projectID, taskID, err)
		return
	}
	o.logger.Error().Err(err).Str("project_id", projectID).Str("task_id", taskID).Msg("async generation error")
}

func (o *Orchestrator) spawn(fn func()) {
	o.tasks.Add(1)
	go func() {
		defer o.tasks.Done()
		fn()
	}()
}

// completionURL returns the media-type-appropriate completion marker, or ""
// when the response indicates the task is still running. Video accepts an
// image URL as well: some models deliver a still as the immediate result.
func completionURL(mediaType domain.MediaType, result runware.TaskResult) string {
	switch mediaType {
	case domain.MediaTypeImage:
		return result.ImageURL
	case domain.MediaTypeVideo:
		if result.VideoURL != "" {
			return result.VideoURL
		}
		return result.ImageURL
	case domain.MediaTypeMusic, domain.MediaTypeVoiceover:
		return result.AudioURL
	}
	return ""
}
