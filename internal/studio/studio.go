// Package studio is the backend the wizard drives: copy generation, voiceover
// synthesis, render submission, render status and the completion hook. Service
// runs these in-process; studio/remote reaches a Service over HTTP.
package studio

import (
	"context"

	"orion/internal/llm"
	"orion/internal/notify"
	"orion/internal/render"
)

type ComposeRequest = llm.Brief

type SpeechRequest struct {
	Script string `json:"script"`
	Voice  string `json:"voice,omitempty"`
}

type Speech struct {
	AudioURL string `json:"audioUrl"`
	Success  bool   `json:"success"`
}

type RenderRequest struct {
	Headline     string `json:"headline"`
	Caption      string `json:"caption"`
	LogoURL      string `json:"logoUrl"`
	PaletteColor string `json:"paletteColor,omitempty"`
	AudioURL     string `json:"audioUrl,omitempty"`
	Format       string `json:"format,omitempty"`
}

type RenderJob struct {
	ID      string        `json:"id"`
	Status  render.Status `json:"status"`
	Message string        `json:"message"`
}

type RenderStatus struct {
	ID       string        `json:"id"`
	Status   render.Status `json:"status"`
	URL      string        `json:"url"`
	Error    string        `json:"error"`
	Progress float64       `json:"progress"`
}

// Backend is everything the wizard needs from the outside world.
type Backend interface {
	Compose(ctx context.Context, req ComposeRequest) (*llm.Content, error)
	Speak(ctx context.Context, req SpeechRequest) (*Speech, error)
	RenderImage(ctx context.Context, req RenderRequest) (*RenderJob, error)
	RenderVideo(ctx context.Context, req RenderRequest) (*RenderJob, error)
	RenderStatus(ctx context.Context, id string) (*RenderStatus, error)
	Notify(ctx context.Context, n notify.Notification) error
}
