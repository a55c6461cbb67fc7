// Package llm defines the content generation contract and normalizes whatever
// shape the language model returns into post copy.
package llm

import (
	"context"
	"encoding/json"
	"strings"

	"orion/internal/fault"
)

const HashtagCount = 5

// Brief describes the post the model is asked to write copy for.
type Brief struct {
	BrandName   string `json:"brandName"`
	Website     string `json:"website,omitempty"`
	Description string `json:"description"`
	Industry    string `json:"industry,omitempty"`
	Goal        string `json:"goal,omitempty"`
	Tone        string `json:"tone,omitempty"`
	Audience    string `json:"audience,omitempty"`
	Platform    string `json:"platform,omitempty"`
}

// Content is the generated copy for one post.
type Content struct {
	Headline string   `json:"headline"`
	Caption  string   `json:"caption"`
	Hashtags []string `json:"hashtags"`
	Script   string   `json:"script"`
}

// Generator produces post copy from a brief.
type Generator interface {
	GenerateContent(ctx context.Context, brief Brief) (*Content, error)
}

// Validate checks the fields the model cannot do without.
func (b Brief) Validate() error {
	if strings.TrimSpace(b.BrandName) == "" || strings.TrimSpace(b.Description) == "" {
		return fault.Invalid("brief", "Brand name and description are required")
	}
	return nil
}

// WithDefaults fills unset targeting fields.
func (b Brief) WithDefaults() Brief {
	if b.Industry == "" {
		b.Industry = "General"
	}
	if b.Goal == "" {
		b.Goal = "Engagement"
	}
	if b.Tone == "" {
		b.Tone = "Professional"
	}
	if b.Audience == "" {
		b.Audience = "General"
	}
	if b.Platform == "" {
		b.Platform = "Instagram"
	}
	return b
}

// Fallback is the copy used when the model's answer cannot be decoded.
func Fallback() Content {
	return Content{
		Headline: "Amazing Campaign Ahead!",
		Caption:  "Discover something extraordinary. Your journey starts here.",
		Hashtags: []string{"innovation", "creative", "awesome", "trending", "discover"},
		Script:   "Hey there! Get ready for something amazing. This is your moment to shine and make an impact. Join us on this incredible journey!",
	}
}

// FallbackHashtags replace a hashtag field that is not a list of five tags.
func FallbackHashtags() []string {
	return []string{"social", "media", "content", "marketing", "digital"}
}

type rawContent struct {
	Headline string          `json:"headline"`
	Caption  string          `json:"caption"`
	Hashtags json.RawMessage `json:"hashtags"`
	Script   string          `json:"script"`
}

// ParseContent decodes a model answer. It never fails: an undecodable answer
// yields Fallback, a malformed hashtag field yields FallbackHashtags, and empty
// text fields are filled from Fallback. ok is false when anything was substituted.
func ParseContent(raw string) (content Content, ok bool) {
	var decoded rawContent
	if err := json.Unmarshal([]byte(StripCodeFences(raw)), &decoded); err != nil {
		return Fallback(), false
	}

	ok = true
	fallback := Fallback()
	content = Content{
		Headline: strings.TrimSpace(decoded.Headline),
		Caption:  strings.TrimSpace(decoded.Caption),
		Script:   strings.TrimSpace(decoded.Script),
	}
	if content.Headline == "" {
		content.Headline, ok = fallback.Headline, false
	}
	if content.Caption == "" {
		content.Caption, ok = fallback.Caption, false
	}
	if content.Script == "" {
		content.Script, ok = fallback.Script, false
	}

	tags, tagsOK := parseHashtags(decoded.Hashtags)
	if !tagsOK {
		tags, ok = FallbackHashtags(), false
	}
	content.Hashtags = tags

	return content, ok
}

func parseHashtags(raw json.RawMessage) ([]string, bool) {
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil || len(tags) != HashtagCount {
		return nil, false
	}
	for i, tag := range tags {
		tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
		if tag == "" {
			return nil, false
		}
		tags[i] = tag
	}
	return tags, true
}

// StripCodeFences removes markdown code fences a model may wrap JSON in.
func StripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json\n", "")
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```\n", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
