package remote

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"orion/internal/fault"
	"orion/internal/llm"
	"orion/internal/notify"
	"orion/internal/render"
	"orion/internal/server"
	"orion/internal/studio"
	"orion/internal/templates"
)

type stubBackend struct {
	err      error
	notified []notify.Notification
}

func (s *stubBackend) Compose(_ context.Context, req studio.ComposeRequest) (*llm.Content, error) {
	if s.err != nil {
		return nil, s.err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &llm.Content{Headline: "For " + req.BrandName, Hashtags: llm.FallbackHashtags()}, nil
}

func (s *stubBackend) Speak(_ context.Context, req studio.SpeechRequest) (*studio.Speech, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &studio.Speech{AudioURL: "https://cdn.example.com/" + req.Voice + ".mp3", Success: true}, nil
}

func (s *stubBackend) RenderImage(_ context.Context, req studio.RenderRequest) (*studio.RenderJob, error) {
	if s.err != nil {
		return nil, s.err
	}
	if req.Format == "billboard" {
		return nil, &templates.NotFoundError{Kind: templates.KindImage, Format: req.Format}
	}
	return &studio.RenderJob{ID: "img-1", Status: render.StatusQueued, Message: "Render started successfully"}, nil
}

func (s *stubBackend) RenderVideo(_ context.Context, _ studio.RenderRequest) (*studio.RenderJob, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &studio.RenderJob{ID: "vid-1", Status: render.StatusQueued, Message: "Video render started successfully"}, nil
}

func (s *stubBackend) RenderStatus(_ context.Context, id string) (*studio.RenderStatus, error) {
	return &studio.RenderStatus{ID: id, Status: render.StatusDone, URL: "https://cdn.example.com/" + id + ".mp4", Progress: 3}, nil
}

func (s *stubBackend) Notify(_ context.Context, n notify.Notification) error {
	s.notified = append(s.notified, n)
	return s.err
}

func newRemote(t *testing.T, backend studio.Backend) *Client {
	t.Helper()
	srv := httptest.NewServer(server.New(backend, server.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", WithHTTPClient(srv.Client()))
}

func TestRoundTrip(t *testing.T) {
	backend := &stubBackend{}
	client := newRemote(t, backend)
	ctx := context.Background()

	content, err := client.Compose(ctx, studio.ComposeRequest{BrandName: "Acme", Description: "Beans"})
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}
	if content.Headline != "For Acme" || len(content.Hashtags) != llm.HashtagCount {
		t.Errorf("content = %+v", content)
	}

	speech, err := client.Speak(ctx, studio.SpeechRequest{Script: "Hi", Voice: "echo"})
	if err != nil {
		t.Fatalf("Speak() error: %v", err)
	}
	if !speech.Success || speech.AudioURL != "https://cdn.example.com/echo.mp3" {
		t.Errorf("speech = %+v", speech)
	}

	job, err := client.RenderVideo(ctx, studio.RenderRequest{Headline: "Hi", LogoURL: "l"})
	if err != nil {
		t.Fatalf("RenderVideo() error: %v", err)
	}
	if job.ID != "vid-1" || job.Status != render.StatusQueued {
		t.Errorf("job = %+v", job)
	}

	status, err := client.RenderStatus(ctx, "vid 1")
	if err != nil {
		t.Fatalf("RenderStatus() error: %v", err)
	}
	if status.ID != "vid 1" || status.Status != render.StatusDone || status.URL != "https://cdn.example.com/vid 1.mp4" {
		t.Errorf("status = %+v", status)
	}

	if err := client.Notify(ctx, notify.Notification{ID: "vid-1", Status: "done"}); err != nil {
		t.Fatalf("Notify() error: %v", err)
	}
	if len(backend.notified) != 1 {
		t.Errorf("notified = %d, want 1", len(backend.notified))
	}
}

func TestErrorTaxonomy(t *testing.T) {
	ctx := context.Background()

	t.Run("validation", func(t *testing.T) {
		client := newRemote(t, &stubBackend{})
		_, err := client.Compose(ctx, studio.ComposeRequest{})
		var v *fault.ValidationError
		if !errors.As(err, &v) {
			t.Fatalf("error = %v, want ValidationError", err)
		}
		if v.Message != "Brand name and description are required" {
			t.Errorf("Message = %q", v.Message)
		}
	})

	t.Run("notFoundIsValidation", func(t *testing.T) {
		client := newRemote(t, &stubBackend{})
		_, err := client.RenderImage(ctx, studio.RenderRequest{Headline: "Hi", LogoURL: "l", Format: "billboard"})
		if !fault.IsValidation(err) {
			t.Errorf("error = %v, want ValidationError", err)
		}
	})

	t.Run("emptyStatusID", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:0")
		if _, err := client.RenderStatus(ctx, " "); !fault.IsValidation(err) {
			t.Errorf("error = %v, want ValidationError", err)
		}
	})

	t.Run("upstream", func(t *testing.T) {
		upstream := &fault.UpstreamError{Service: "shotstack", StatusCode: 403, Message: "Forbidden"}
		client := newRemote(t, &stubBackend{err: &render.SubmissionError{Err: upstream}})
		_, err := client.RenderImage(ctx, studio.RenderRequest{Headline: "Hi", LogoURL: "l"})

		var sub *render.SubmissionError
		if !errors.As(err, &sub) {
			t.Fatalf("error = %v, want SubmissionError", err)
		}
		var up *fault.UpstreamError
		if !errors.As(err, &up) || up.StatusCode != http.StatusInternalServerError {
			t.Fatalf("error = %v, want UpstreamError with status 500", err)
		}
		if up.Message != "Failed to render template: Forbidden" {
			t.Errorf("Message = %q", up.Message)
		}
	})

	t.Run("decode", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).Compose(ctx, studio.ComposeRequest{BrandName: "a", Description: "b"})
		var d *fault.DecodeError
		if !errors.As(err, &d) {
			t.Errorf("error = %v, want DecodeError", err)
		}
	})
}

func TestSubmissionsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).RenderVideo(context.Background(), studio.RenderRequest{Headline: "Hi", LogoURL: "l"})
	if !fault.IsUpstream(err) {
		t.Errorf("error = %v, want UpstreamError", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}
