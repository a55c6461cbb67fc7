package wizard

import "fmt"

// Step is a position in the eight-step lifecycle of a session.
type Step int

const (
	StepBrand Step = iota
	StepTargeting
	StepCopy
	StepImage
	StepVideo
	StepRendering
	StepPreview
	StepDone
)

var stepNames = [...]string{
	StepBrand:     "brand",
	StepTargeting: "targeting",
	StepCopy:      "copy",
	StepImage:     "image",
	StepVideo:     "video",
	StepRendering: "rendering",
	StepPreview:   "preview",
	StepDone:      "done",
}

var stepPrompts = [...]string{
	StepBrand:     "What are you posting today? Add a short description — I'll use it to shape your script & copy.",
	StepTargeting: "Great. Tell me a few basics — industry, goal, tone, platform, audience, palette.",
	StepCopy:      "Would you like me to generate a voiceover for your post?",
	StepImage:     "Perfect! Now I'm generating your visual content...",
	StepVideo:     "Let me assemble your video with all the elements...",
	StepRendering: "Processing your content. This usually takes 30-60 seconds...",
	StepPreview:   "Here's a preview of your social media post!",
	StepDone:      "All done! Your content is ready to download or post.",
}

func (s Step) Valid() bool {
	return s >= StepBrand && s <= StepDone
}

func (s Step) String() string {
	if !s.Valid() {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

// Prompt is the message shown to the user on arrival at s.
func (s Step) Prompt() string {
	if !s.Valid() {
		return ""
	}
	return stepPrompts[s]
}

// CanGoBack reports whether back-navigation is offered from s.
func (s Step) CanGoBack() bool {
	return s >= StepTargeting && s <= StepPreview
}
