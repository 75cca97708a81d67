package fal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSubmitPostsToEndpointPath(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)
		w.Write([]byte(`{"request_id":"req-1","status":"IN_QUEUE","response_url":"https://q/r","status_url":"https://q/s"}`))
	}))
	defer server.Close()

	client, err := NewClient(Options{APIKey: "secret", QueueBaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	result, err := client.Submit(context.Background(), "fal-ai/flux/dev", map[string]any{"prompt": "a cat"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/fal-ai/flux/dev" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Key secret" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotBody["prompt"] != "a cat" {
		t.Fatalf("body = %v", gotBody)
	}
	if result.RequestID != "req-1" || result.Status != "IN_QUEUE" {
		t.Fatalf("result = %+v", result)
	}
}

func TestSubmitDecodesErrorDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":"prompt is too long"}`))
	}))
	defer server.Close()

	client, _ := NewClient(Options{APIKey: "secret", QueueBaseURL: server.URL})
	_, err := client.Submit(context.Background(), "fal-ai/flux/dev", map[string]any{"prompt": "x"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity || apiErr.Message != "prompt is too long" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestSubmitRejectsEmptyRequestID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"IN_QUEUE"}`))
	}))
	defer server.Close()

	client, _ := NewClient(Options{APIKey: "secret", QueueBaseURL: server.URL})
	if _, err := client.Submit(context.Background(), "fal-ai/flux/dev", nil); err == nil {
		t.Fatal("expected error for acknowledgment without request id")
	}
}

func TestSubmitRequiresCredentials(t *testing.T) {
	client, err := NewClient(Options{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if client.HasCredentials() {
		t.Fatal("client without key must report no credentials")
	}
	if _, err := client.Submit(context.Background(), "fal-ai/flux/dev", nil); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
}

func TestUploadBlobTwoStepFlow(t *testing.T) {
	var putBody []byte
	var putContentType string
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/storage/upload/initiate", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ContentType string `json:"content_type"`
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &req)
		if req.ContentType != "image/png" {
			t.Errorf("content_type = %q", req.ContentType)
		}
		resp, _ := json.Marshal(map[string]string{
			"upload_url": server.URL + "/signed-target",
			"file_url":   "https://v3.fal.media/files/abc",
		})
		w.Write(resp)
	})
	mux.HandleFunc("/signed-target", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %q, want PUT", r.Method)
		}
		putBody, _ = io.ReadAll(r.Body)
		putContentType = r.Header.Get("Content-Type")
	})

	client, _ := NewClient(Options{APIKey: "secret", RestBaseURL: server.URL})
	url, err := client.UploadBlob(context.Background(), []byte("png-bytes"), "image/png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://v3.fal.media/files/abc" {
		t.Fatalf("url = %q", url)
	}
	if string(putBody) != "png-bytes" || putContentType != "image/png" {
		t.Fatalf("put = %q (%q)", putBody, putContentType)
	}
}

func TestUploadBlobSurfacesRejectedPut(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/storage/upload/initiate", func(w http.ResponseWriter, r *http.Request) {
		resp, _ := json.Marshal(map[string]string{
			"upload_url": server.URL + "/signed-target",
			"file_url":   "https://v3.fal.media/files/abc",
		})
		w.Write(resp)
	})
	mux.HandleFunc("/signed-target", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	client, _ := NewClient(Options{APIKey: "secret", RestBaseURL: server.URL})
	_, err := client.UploadBlob(context.Background(), []byte("x"), "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.Status != http.StatusForbidden {
		t.Fatalf("status = %d", apiErr.Status)
	}
}
