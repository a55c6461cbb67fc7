package wizard

import (
	"context"
	"errors"

	"orion/internal/campaign"
	"orion/internal/fault"
	"orion/internal/render"
	"orion/internal/studio"
	"orion/internal/templates"
)

// outcome is what a successful action does to the session. apply runs under
// the session lock; it is never called when the action failed.
type outcome struct {
	next  Step
	apply func(d *campaign.Data)
}

// handler performs the action offered at one step against a snapshot of the
// campaign. It must not touch the session.
type handler func(ctx context.Context, backend studio.Backend, data campaign.Data) (outcome, error)

type action int

const (
	actionContinue action = iota
	actionGenerate
	actionFinalize
)

type stepHandler struct {
	action action
	run    handler
	// failure is shown when run fails for a reason other than bad input.
	failure string
}

var handlers = map[Step]stepHandler{
	StepBrand:     {action: actionContinue, run: checkBrand},
	StepTargeting: {action: actionContinue, run: composeCopy, failure: "Failed to generate content. Please try again."},
	StepCopy:      {action: actionContinue, run: synthesizeVoiceover, failure: "Failed to generate voiceover. Please try again."},
	StepImage:     {action: actionGenerate, run: submitImage, failure: "Failed to start rendering. Please try again."},
	StepVideo:     {action: actionGenerate, run: submitVideo, failure: "Failed to start video rendering. Please try again."},
	StepPreview:   {action: actionFinalize, run: finalize},
}

func checkBrand(_ context.Context, _ studio.Backend, data campaign.Data) (outcome, error) {
	if err := data.ValidateBrand(); err != nil {
		return outcome{}, err
	}
	return outcome{next: StepTargeting}, nil
}

func composeCopy(ctx context.Context, backend studio.Backend, data campaign.Data) (outcome, error) {
	content, err := backend.Compose(ctx, studio.ComposeRequest{
		BrandName:   data.BrandName,
		Website:     data.Website,
		Description: data.Description,
		Industry:    data.Industry,
		Goal:        data.Goal,
		Tone:        data.Tone,
		Audience:    data.Audience,
		Platform:    data.Platform,
	})
	if err != nil {
		return outcome{}, err
	}

	return outcome{
		next: StepCopy,
		apply: func(d *campaign.Data) {
			d.Headline = content.Headline
			d.Caption = content.Caption
			d.Hashtags = append([]string(nil), content.Hashtags...)
			d.Script = content.Script
		},
	}, nil
}

func synthesizeVoiceover(ctx context.Context, backend studio.Backend, data campaign.Data) (outcome, error) {
	if !data.IncludeVoiceover {
		// A voiceover from an earlier pass must not leak into the video.
		return outcome{
			next:  StepImage,
			apply: func(d *campaign.Data) { d.AudioURL = "" },
		}, nil
	}

	speech, err := backend.Speak(ctx, studio.SpeechRequest{
		Script: data.Script,
		Voice:  string(data.Voice),
	})
	if err != nil {
		return outcome{}, err
	}

	return outcome{
		next:  StepImage,
		apply: func(d *campaign.Data) { d.AudioURL = speech.AudioURL },
	}, nil
}

func submitImage(ctx context.Context, backend studio.Backend, data campaign.Data) (outcome, error) {
	return renderImage(ctx, backend, data, StepVideo)
}

func renderImage(ctx context.Context, backend studio.Backend, data campaign.Data, next Step) (outcome, error) {
	job, err := backend.RenderImage(ctx, studio.RenderRequest{
		Headline:     data.Headline,
		Caption:      data.Caption,
		LogoURL:      data.LogoURL,
		PaletteColor: data.PaletteColor,
		Format:       templates.FormatFor(data.Platform, templates.KindImage),
	})
	if err != nil {
		return outcome{}, err
	}
	return queued(next, job), nil
}

func submitVideo(ctx context.Context, backend studio.Backend, data campaign.Data) (outcome, error) {
	if !data.WantsVideo() {
		// A failed render never recovers, so the image is submitted again.
		if data.RenderStatus == render.StatusFailed {
			return renderImage(ctx, backend, data, StepRendering)
		}
		return outcome{next: StepRendering}, nil
	}

	job, err := backend.RenderVideo(ctx, studio.RenderRequest{
		Headline:     data.Headline,
		Caption:      data.Caption,
		LogoURL:      data.LogoURL,
		PaletteColor: data.PaletteColor,
		AudioURL:     data.AudioURL,
		Format:       templates.FormatFor(data.Platform, templates.KindVideo),
	})
	if err != nil {
		return outcome{}, err
	}
	return queued(StepRendering, job), nil
}

func queued(next Step, job *studio.RenderJob) outcome {
	return outcome{
		next: next,
		apply: func(d *campaign.Data) {
			d.RenderID = job.ID
			d.RenderStatus = render.StatusQueued
		},
	}
}

func finalize(_ context.Context, _ studio.Backend, _ campaign.Data) (outcome, error) {
	return outcome{next: StepDone}, nil
}

// stepError turns a handler failure into what the user sees. Steps without a
// failure message only reject input, and show the rejection itself.
func stepError(step Step, h stepHandler, err error) *StepError {
	message := h.failure
	var validation *fault.ValidationError
	if message == "" && errors.As(err, &validation) {
		message = validation.Message
	}
	if message == "" {
		message = genericFailure
	}
	return &StepError{Step: step, Message: message, Err: err}
}
