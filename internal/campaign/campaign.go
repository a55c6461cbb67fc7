// Package campaign holds the record a wizard session accumulates while building
// one social media post, along with the fixed option sets offered to the user.
package campaign

import (
	"strings"

	"orion/internal/fault"
	"orion/internal/render"
	"orion/internal/speech"
)

const DefaultPaletteColor = "#00d9ff"

var (
	Industries = []string{
		"Tech",
		"eCommerce",
		"Health & Wellness",
		"Coaching/Education",
		"SaaS/Tech",
		"Real Estate",
		"Digital Marketing",
		"Other",
	}
	Goals     = []string{"Traffic", "Engagement", "Awareness", "Conversions", "Leads"}
	Tones     = []string{"Commercial", "Professional", "Casual", "Inspirational", "Humorous", "Educational"}
	Platforms = []string{"Instagram Reel 9:16", "Instagram Story 9:16", "Static 1:1", "Wide 16:9"}
	Audiences = []string{"General", "Young Adults", "Professionals", "Business Owners", "Students"}
)

// Data is everything collected and generated for one post.
type Data struct {
	BrandName   string
	Website     string
	Description string
	LogoURL     string

	Industry string
	Goal     string
	Tone     string
	Platform string
	Audience string

	PaletteColor     string
	IncludeVoiceover bool
	Voice            speech.Voice

	Headline string
	Caption  string
	Hashtags []string
	Script   string

	AudioURL string
	ImageURL string
	VideoURL string

	RenderID     string
	RenderStatus render.Status
}

// New returns a record populated with defaults.
func New() *Data {
	d := &Data{}
	d.Reset()
	return d
}

// Reset clears every field back to its default.
func (d *Data) Reset() {
	*d = Data{
		PaletteColor: DefaultPaletteColor,
		Voice:        speech.DefaultVoice,
	}
}

// Clone returns a deep copy safe to hand to callers outside the session.
func (d *Data) Clone() Data {
	c := *d
	if d.Hashtags != nil {
		c.Hashtags = append([]string(nil), d.Hashtags...)
	}
	return c
}

// ValidateBrand checks the fields required before leaving the first step.
func (d *Data) ValidateBrand() error {
	switch {
	case strings.TrimSpace(d.BrandName) == "":
		return fault.Invalid("brandName", "Brand/Product name is required")
	case strings.TrimSpace(d.Description) == "":
		return fault.Invalid("description", "Description is required")
	case strings.TrimSpace(d.LogoURL) == "":
		return fault.Invalid("logoUrl", "Logo URL is required")
	}
	return nil
}

// WantsVideo reports whether the chosen platform produces a video asset.
func (d *Data) WantsVideo() bool {
	return IsVideoPlatform(d.Platform)
}

// MediaURL returns the final asset location for the chosen platform.
func (d *Data) MediaURL() string {
	if d.WantsVideo() {
		return d.VideoURL
	}
	return d.ImageURL
}

// IsVideoPlatform reports whether platform names a motion format.
func IsVideoPlatform(platform string) bool {
	return strings.Contains(platform, "Reel") ||
		strings.Contains(platform, "Story") ||
		strings.Contains(platform, "Wide")
}

// Contains reports whether value is one of options. Empty is always allowed.
func Contains(options []string, value string) bool {
	if value == "" {
		return true
	}
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}
