package runware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(Options{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, server
}

func TestRequestImagesSendsTaskArray(t *testing.T) {
	var captured []map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("request body not an array: %v", err)
		}
		w.Write([]byte(`{"data":[{"taskUUID":"t1","imageURL":"https://x/a.png","cost":0.02}]}`))
	})

	results, err := client.RequestImages(context.Background(), &ImageInferenceParams{
		TaskUUID:       "t1",
		PositivePrompt: "a cat",
		Model:          "runware:100@1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(captured) != 1 || captured[0]["taskType"] != "imageInference" {
		t.Fatalf("request = %v, want single imageInference task", captured)
	}
	if len(results) != 1 || results[0].ImageURL != "https://x/a.png" || results[0].Cost != 0.02 {
		t.Fatalf("results = %+v", results)
	}
}

func TestRunTaskRetainsRawElement(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"taskUUID":"t1","videoURL":"https://x/v.mp4","seed":12345,"unmodeled":"kept"}]}`))
	})

	results, err := client.VideoInference(context.Background(), &VideoInferenceParams{TaskUUID: "t1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(results[0].Raw, &raw); err != nil {
		t.Fatalf("raw element not JSON: %v", err)
	}
	if raw["unmodeled"] != "kept" || raw["seed"] != float64(12345) {
		t.Fatalf("raw = %v, want fields beyond the typed struct preserved", raw)
	}
}

func TestRunTaskAcceptsSingleObjectData(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"taskUUID":"t1","audioURL":"https://x/a.mp3"}}`))
	})

	results, err := client.AudioInference(context.Background(), &AudioInferenceParams{TaskUUID: "t1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].AudioURL != "https://x/a.mp3" {
		t.Fatalf("results = %+v", results)
	}
}

func TestRunTaskAcceptsBareArrayResponse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"taskUUID":"t1","imageURL":"https://x/a.png","cost":0.02}]`))
	})

	results, err := client.RequestImages(context.Background(), &ImageInferenceParams{TaskUUID: "t1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].ImageURL != "https://x/a.png" || results[0].Cost != 0.02 {
		t.Fatalf("results = %+v", results)
	}
	var raw map[string]any
	if err := json.Unmarshal(results[0].Raw, &raw); err != nil {
		t.Fatalf("raw element not JSON: %v", err)
	}
	if raw["taskUUID"] != "t1" {
		t.Fatalf("raw = %v", raw)
	}
}

func TestRunTaskAcceptsBareObjectResponse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"taskUUID":"t1","imageURL":"https://x/a.png"}`))
	})

	results, err := client.RequestImages(context.Background(), &ImageInferenceParams{TaskUUID: "t1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].ImageURL != "https://x/a.png" {
		t.Fatalf("results = %+v", results)
	}
}

func TestRunTaskSurfacesEnvelopeErrorsAsResults(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"code":"invalidModel","message":"unknown model","taskUUID":"t1"}]}`))
	})

	results, err := client.RequestImages(context.Background(), &ImageInferenceParams{TaskUUID: "t1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || !results[0].Failed() {
		t.Fatalf("results = %+v, want one failed element", results)
	}
	if results[0].Error.Message != "unknown model" || results[0].TaskUUID != "t1" {
		t.Fatalf("error element = %+v", results[0])
	}
}

func TestRunTaskReturnsAPIErrorOnRejectedStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errors":[{"message":"invalid api key"}]}`))
	})

	_, err := client.RequestImages(context.Background(), &ImageInferenceParams{TaskUUID: "t1"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Message != "invalid api key" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestRunTaskRequiresCredentials(t *testing.T) {
	client, err := NewClient(Options{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if client.HasCredentials() {
		t.Fatal("client without key must report no credentials")
	}
	if _, err := client.RequestImages(context.Background(), &ImageInferenceParams{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
}

func TestUploadImageAssetReturnsRemoteReference(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var tasks []map[string]any
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &tasks); err != nil || len(tasks) != 1 {
			t.Errorf("request body = %s", body)
		}
		if tasks[0]["taskType"] != "imageUpload" || tasks[0]["taskUUID"] != "inputImage" {
			t.Errorf("task = %v", tasks[0])
		}
		w.Write([]byte(`{"data":[{"taskUUID":"inputImage","imageUUID":"u-1","imageURL":"https://im.runware.ai/u-1"}]}`))
	})

	ref, err := client.UploadImageAsset(context.Background(), "data:image/png;base64,aGk=", "inputImage")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref != "https://im.runware.ai/u-1" {
		t.Fatalf("ref = %q", ref)
	}
}

func TestUploadImageAssetFallsBackToUUID(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"taskUUID":"seedImage","imageUUID":"u-2"}]}`))
	})

	ref, err := client.UploadImageAsset(context.Background(), "data:image/png;base64,aGk=", "seedImage")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref != "u-2" {
		t.Fatalf("ref = %q", ref)
	}
}

func TestLazySourceWithoutKey(t *testing.T) {
	source := NewLazySource(Options{})
	if _, err := source.Client(context.Background()); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
}

func TestLazySourceReusesClient(t *testing.T) {
	source := NewLazySource(Options{APIKey: "k"})
	first, err := source.Client(context.Background())
	if err != nil {
		t.Fatalf("first Client: %v", err)
	}
	second, err := source.Client(context.Background())
	if err != nil {
		t.Fatalf("second Client: %v", err)
	}
	if first != second {
		t.Fatal("source must reuse the constructed client")
	}
}

func TestTaskResultFailed(t *testing.T) {
	if (&TaskResult{Status: "error"}).Failed() == false {
		t.Fatal("status error must count as failed")
	}
	if (&TaskResult{Error: &TaskError{Message: "x"}}).Failed() == false {
		t.Fatal("error marker must count as failed")
	}
	if (&TaskResult{Status: "processing"}).Failed() {
		t.Fatal("processing must not count as failed")
	}
}
