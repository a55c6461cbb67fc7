package speech

import (
	"context"
	"fmt"
	"strings"

	"orion/internal/fault"
)

// Voice selects one of the six supported narrator voices.
type Voice string

const (
	VoiceAlloy   Voice = "alloy"
	VoiceEcho    Voice = "echo"
	VoiceFable   Voice = "fable"
	VoiceOnyx    Voice = "onyx"
	VoiceNova    Voice = "nova"
	VoiceShimmer Voice = "shimmer"

	DefaultVoice = VoiceAlloy
)

// VoiceOption pairs a voice with the label shown to users.
type VoiceOption struct {
	Voice Voice
	Label string
}

// Voices lists every supported voice in display order.
var Voices = []VoiceOption{
	{VoiceAlloy, "Alloy (Neutral)"},
	{VoiceEcho, "Echo (Male)"},
	{VoiceFable, "Fable (British Male)"},
	{VoiceOnyx, "Onyx (Deep Male)"},
	{VoiceNova, "Nova (Female)"},
	{VoiceShimmer, "Shimmer (Soft Female)"},
}

// Valid reports whether v is one of the supported voices.
func (v Voice) Valid() bool {
	for _, opt := range Voices {
		if opt.Voice == v {
			return true
		}
	}
	return false
}

// ParseVoice resolves a voice name, falling back to DefaultVoice when empty.
func ParseVoice(name string) (Voice, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultVoice, nil
	}
	v := Voice(name)
	if !v.Valid() {
		return "", fault.Invalid("voice", fmt.Sprintf("unsupported voice %q", name))
	}
	return v, nil
}

// Audio is synthesized speech ready to be published.
type Audio struct {
	Data        []byte
	ContentType string
}

// Duration estimates playback length in seconds assuming 128 kbps MP3.
func (a *Audio) Duration() float64 {
	const bitrate = 128000.0
	return float64(len(a.Data)*8) / bitrate
}

// Provider turns a script into narrated audio.
type Provider interface {
	Synthesize(ctx context.Context, text string, voice Voice) (*Audio, error)
}

// SynthesisError reports an upstream speech failure. No fallback audio is produced.
type SynthesisError struct {
	Provider string
	Err      error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesize speech (%s): %v", e.Provider, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// CheckInput validates a synthesis request before anything is sent upstream.
func CheckInput(text string, voice Voice) error {
	if strings.TrimSpace(text) == "" {
		return fault.Invalid("script", "Script is required")
	}
	if !voice.Valid() {
		return fault.Invalid("voice", fmt.Sprintf("unsupported voice %q", voice))
	}
	return nil
}
