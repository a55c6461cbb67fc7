package studio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"orion/internal/fault"
	"orion/internal/llm"
	"orion/internal/notify"
	"orion/internal/render"
	"orion/internal/speech"
	"orion/internal/templates"
)

type fakeGenerator struct {
	content *llm.Content
	err     error
	got     llm.Brief
	calls   int
}

func (f *fakeGenerator) GenerateContent(_ context.Context, brief llm.Brief) (*llm.Content, error) {
	f.calls++
	f.got = brief
	return f.content, f.err
}

type fakeSpeaker struct {
	err       error
	gotText   string
	gotVoice  speech.Voice
	callCount int
}

func (f *fakeSpeaker) Synthesize(_ context.Context, text string, voice speech.Voice) (*speech.Audio, error) {
	f.callCount++
	f.gotText = text
	f.gotVoice = voice
	if f.err != nil {
		return nil, f.err
	}
	return &speech.Audio{Data: []byte("mp3"), ContentType: "audio/mpeg"}, nil
}

type fakeRenderer struct {
	payload any
	job     *render.Job
	state   *render.State
	err     error
	polled  string
}

func (f *fakeRenderer) Submit(_ context.Context, payload any) (*render.Job, error) {
	f.payload = payload
	if f.err != nil {
		return nil, f.err
	}
	return f.job, nil
}

func (f *fakeRenderer) Poll(_ context.Context, id string) (*render.State, error) {
	f.polled = id
	if f.err != nil {
		return nil, f.err
	}
	return f.state, nil
}

type fakeRecorder struct {
	got []notify.Notification
	err error
}

func (f *fakeRecorder) Record(n notify.Notification) (notify.Notification, error) {
	f.got = append(f.got, n)
	return n, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCompose(t *testing.T) {
	gen := &fakeGenerator{content: &llm.Content{Headline: "Fresh", Caption: "Brewed daily", Hashtags: llm.FallbackHashtags(), Script: "Try it"}}
	svc := NewService(Options{Generator: gen, Logger: discardLogger()})

	content, err := svc.Compose(context.Background(), ComposeRequest{BrandName: "Acme Coffee", Description: "Roasted beans"})
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}
	if content.Headline != "Fresh" {
		t.Errorf("Headline = %q, want Fresh", content.Headline)
	}
	if gen.got.BrandName != "Acme Coffee" {
		t.Errorf("generator got brand %q", gen.got.BrandName)
	}
}

func TestComposeErrors(t *testing.T) {
	tests := []struct {
		name           string
		req            ComposeRequest
		genErr         error
		wantValidation bool
		wantCalls      int
	}{
		{
			name:           "missingBrand",
			req:            ComposeRequest{Description: "Roasted beans"},
			wantValidation: true,
		},
		{
			name:           "missingDescription",
			req:            ComposeRequest{BrandName: "Acme"},
			wantValidation: true,
		},
		{
			name:      "upstreamFailure",
			req:       ComposeRequest{BrandName: "Acme", Description: "Beans"},
			genErr:    fault.Unreachable("llm", errors.New("connection refused")),
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{err: tt.genErr}
			svc := NewService(Options{Generator: gen, Logger: discardLogger()})

			_, err := svc.Compose(context.Background(), tt.req)
			if err == nil {
				t.Fatal("Compose() should fail")
			}
			if fault.IsValidation(err) != tt.wantValidation {
				t.Errorf("IsValidation(%v) = %v, want %v", err, fault.IsValidation(err), tt.wantValidation)
			}
			if gen.calls != tt.wantCalls {
				t.Errorf("generator calls = %d, want %d", gen.calls, tt.wantCalls)
			}
		})
	}
}

func TestSpeak(t *testing.T) {
	speaker := &fakeSpeaker{}
	svc := NewService(Options{Speaker: speaker, Logger: discardLogger()})

	got, err := svc.Speak(context.Background(), SpeechRequest{Script: "Hello there", Voice: "nova"})
	if err != nil {
		t.Fatalf("Speak() error: %v", err)
	}
	if !got.Success {
		t.Error("Success = false")
	}
	if got.AudioURL != "data:audio/mpeg;base64,bXAz" {
		t.Errorf("AudioURL = %q", got.AudioURL)
	}
	if speaker.gotVoice != speech.VoiceNova {
		t.Errorf("voice = %q, want nova", speaker.gotVoice)
	}
}

func TestSpeakErrors(t *testing.T) {
	tests := []struct {
		name           string
		req            SpeechRequest
		speakErr       error
		wantValidation bool
	}{
		{name: "emptyScript", req: SpeechRequest{Script: "  "}, wantValidation: true},
		{name: "unknownVoice", req: SpeechRequest{Script: "Hi", Voice: "robot"}, wantValidation: true},
		{
			name:     "providerFailure",
			req:      SpeechRequest{Script: "Hi"},
			speakErr: &speech.SynthesisError{Provider: "openai", Err: &fault.UpstreamError{Service: "openai", StatusCode: 500}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			speaker := &fakeSpeaker{err: tt.speakErr}
			svc := NewService(Options{Speaker: speaker, Logger: discardLogger()})

			_, err := svc.Speak(context.Background(), tt.req)
			if err == nil {
				t.Fatal("Speak() should fail")
			}
			if fault.IsValidation(err) != tt.wantValidation {
				t.Errorf("IsValidation(%v) = %v, want %v", err, fault.IsValidation(err), tt.wantValidation)
			}
			if tt.wantValidation && speaker.callCount != 0 {
				t.Error("provider called despite invalid input")
			}
		})
	}
}

func TestRenderImage(t *testing.T) {
	renderer := &fakeRenderer{job: &render.Job{ID: "r-1", Status: render.StatusQueued}}
	svc := NewService(Options{
		Renderer:    renderer,
		CallbackURL: "https://orion.example.com/api/shotstackWebhook",
		Logger:      discardLogger(),
	})

	job, err := svc.RenderImage(context.Background(), RenderRequest{
		Headline: `Say "hi"`,
		Caption:  "Caption",
		LogoURL:  "https://example.com/logo.png",
	})
	if err != nil {
		t.Fatalf("RenderImage() error: %v", err)
	}
	if job.ID != "r-1" || job.Status != render.StatusQueued {
		t.Errorf("job = %+v", job)
	}
	if job.Message != "Render started successfully" {
		t.Errorf("Message = %q", job.Message)
	}

	payload, ok := renderer.payload.(map[string]any)
	if !ok {
		t.Fatalf("payload type = %T", renderer.payload)
	}
	if payload["callback"] != "https://orion.example.com/api/shotstackWebhook" {
		t.Errorf("callback = %v", payload["callback"])
	}
	timeline := payload["timeline"].(map[string]any)
	if timeline["background"] != templates.DefaultPaletteColor {
		t.Errorf("background = %v, want default palette", timeline["background"])
	}
}

func TestRenderVideo(t *testing.T) {
	tests := []struct {
		name           string
		audioURL       string
		wantSoundtrack bool
	}{
		{name: "withVoiceover", audioURL: "https://cdn.example.com/v.mp3", wantSoundtrack: true},
		{name: "silent", audioURL: "", wantSoundtrack: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			renderer := &fakeRenderer{job: &render.Job{ID: "v-1"}}
			svc := NewService(Options{Renderer: renderer, Logger: discardLogger()})

			job, err := svc.RenderVideo(context.Background(), RenderRequest{
				Headline: "Launch",
				LogoURL:  "https://example.com/logo.png",
				AudioURL: tt.audioURL,
				Format:   templates.FormatStory,
			})
			if err != nil {
				t.Fatalf("RenderVideo() error: %v", err)
			}
			if job.Message != "Video render started successfully" {
				t.Errorf("Message = %q", job.Message)
			}

			payload := renderer.payload.(map[string]any)
			if _, ok := payload["callback"]; ok {
				t.Error("callback set without a callback URL")
			}
			timeline := payload["timeline"].(map[string]any)
			_, hasSoundtrack := timeline["soundtrack"]
			if hasSoundtrack != tt.wantSoundtrack {
				t.Errorf("soundtrack present = %v, want %v", hasSoundtrack, tt.wantSoundtrack)
			}
		})
	}
}

func TestRenderErrors(t *testing.T) {
	tests := []struct {
		name           string
		video          bool
		req            RenderRequest
		submitErr      error
		wantValidation bool
		wantNotFound   bool
	}{
		{
			name:           "missingHeadline",
			req:            RenderRequest{LogoURL: "https://example.com/logo.png"},
			wantValidation: true,
		},
		{
			name:           "missingLogo",
			req:            RenderRequest{Headline: "Hi"},
			wantValidation: true,
		},
		{
			name:         "unknownFormat",
			req:          RenderRequest{Headline: "Hi", LogoURL: "l", Format: "billboard"},
			wantNotFound: true,
		},
		{
			name:         "staticVideo",
			video:        true,
			req:          RenderRequest{Headline: "Hi", LogoURL: "l", Format: templates.FormatStatic},
			wantNotFound: true,
		},
		{
			name:      "submitFailure",
			req:       RenderRequest{Headline: "Hi", LogoURL: "l"},
			submitErr: &render.SubmissionError{Err: &fault.UpstreamError{Service: "shotstack", StatusCode: 401}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			renderer := &fakeRenderer{err: tt.submitErr, job: &render.Job{ID: "x"}}
			svc := NewService(Options{Renderer: renderer, Logger: discardLogger()})

			var err error
			if tt.video {
				_, err = svc.RenderVideo(context.Background(), tt.req)
			} else {
				_, err = svc.RenderImage(context.Background(), tt.req)
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if fault.IsValidation(err) != tt.wantValidation {
				t.Errorf("IsValidation(%v) = %v, want %v", err, fault.IsValidation(err), tt.wantValidation)
			}
			var notFound *templates.NotFoundError
			if errors.As(err, &notFound) != tt.wantNotFound {
				t.Errorf("NotFoundError = %v, want %v", errors.As(err, &notFound), tt.wantNotFound)
			}
			if (tt.wantValidation || tt.wantNotFound) && renderer.payload != nil {
				t.Error("renderer called despite rejected request")
			}
		})
	}
}

func TestRenderStatus(t *testing.T) {
	renderer := &fakeRenderer{state: &render.State{
		ID:       "r-1",
		Status:   render.StatusDone,
		URL:      "https://cdn.example.com/r-1.jpg",
		Progress: 4.2,
	}}
	svc := NewService(Options{Renderer: renderer, Logger: discardLogger()})

	got, err := svc.RenderStatus(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("RenderStatus() error: %v", err)
	}
	if got.Status != render.StatusDone || got.URL != "https://cdn.example.com/r-1.jpg" {
		t.Errorf("status = %+v", got)
	}
	if renderer.polled != "r-1" {
		t.Errorf("polled %q, want r-1", renderer.polled)
	}

	if _, err := svc.RenderStatus(context.Background(), ""); !fault.IsValidation(err) {
		t.Errorf("empty id error = %v, want validation error", err)
	}
}

func TestRenderStatusPollFailure(t *testing.T) {
	renderer := &fakeRenderer{err: &render.PollError{ID: "r-1", Err: errors.New("boom")}}
	svc := NewService(Options{Renderer: renderer, Logger: discardLogger()})

	_, err := svc.RenderStatus(context.Background(), "r-1")
	var pollErr *render.PollError
	if !errors.As(err, &pollErr) {
		t.Errorf("error = %v, want PollError", err)
	}
}

func TestNotify(t *testing.T) {
	recorder := &fakeRecorder{}
	svc := NewService(Options{Recorder: recorder, Logger: discardLogger()})

	n := notify.Notification{ID: "r-1", Status: "done", URL: "https://cdn.example.com/r-1.mp4"}
	if err := svc.Notify(context.Background(), n); err != nil {
		t.Fatalf("Notify() error: %v", err)
	}
	if len(recorder.got) != 1 || recorder.got[0].ID != "r-1" {
		t.Errorf("recorded = %+v", recorder.got)
	}

	recorder.err = errors.New("disk full")
	if err := svc.Notify(context.Background(), n); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("Notify() error = %v, want disk full", err)
	}

	bare := NewService(Options{Logger: discardLogger()})
	if err := bare.Notify(context.Background(), n); err != nil {
		t.Errorf("Notify() without recorder error: %v", err)
	}
}
