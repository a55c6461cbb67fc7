// Package templates resolves declarative render templates into job payloads.
//
// Templates live under <kind>/<format>.json and carry {{placeholder}} tokens for
// the headline, caption, logo, palette color and audio track. The default set is
// embedded; a directory on disk can replace it.
package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"
)

//go:embed data
var embedded embed.FS

// Kind separates still-image templates from video templates.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

const (
	FormatStatic = "static"
	FormatReel   = "reel"
	FormatStory  = "story"
	FormatWide   = "wide"

	DefaultPaletteColor = "#00d9ff"
)

var formatKey = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Values are substituted into a template's placeholders.
type Values struct {
	Headline     string
	Caption      string
	LogoURL      string
	PaletteColor string
	AudioURL     string
}

// NotFoundError reports a format with no template for the requested kind.
type NotFoundError struct {
	Kind   Kind
	Format string
	// Available lists the formats the set does have for Kind.
	Available []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("template %s/%s.json not found", e.Kind, e.Format)
}

// MalformedError reports a template that did not yield a valid payload after substitution.
type MalformedError struct {
	Kind   Kind
	Format string
	Err    error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("template %s/%s.json malformed: %v", e.Kind, e.Format, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// FormatFor maps a platform selection to a template format. Unrecognized
// platforms fall back to static for images and reel for video.
func FormatFor(platform string, kind Kind) string {
	switch platform {
	case "Instagram Reel 9:16":
		return FormatReel
	case "Instagram Story 9:16":
		return FormatStory
	case "Static 1:1":
		return FormatStatic
	case "Wide 16:9":
		return FormatWide
	}
	if kind == KindVideo {
		return FormatReel
	}
	return FormatStatic
}

// Set is a collection of templates rooted at an fs.FS.
type Set struct {
	fsys fs.FS
}

// NewSet uses fsys, which must contain image/ and video/ directories.
func NewSet(fsys fs.FS) *Set {
	return &Set{fsys: fsys}
}

// Embedded returns the built-in template set.
func Embedded() *Set {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		panic(fmt.Sprintf("templates: embedded data: %v", err))
	}
	return NewSet(sub)
}

// Load returns the template set at dir, or the embedded set when dir is empty.
func Load(dir string) (*Set, error) {
	if dir == "" {
		return Embedded(), nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open templates dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open templates dir: %s is not a directory", dir)
	}
	return NewSet(os.DirFS(dir)), nil
}

// Formats lists the format keys available for kind.
func (s *Set) Formats(kind Kind) []string {
	entries, err := fs.ReadDir(s.fsys, string(kind))
	if err != nil {
		return nil
	}
	var formats []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		formats = append(formats, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(formats)
	return formats
}

// Resolve loads the template for kind and format, substitutes values, and
// parses the result. A video payload without an audio URL has its soundtrack
// removed.
func (s *Set) Resolve(kind Kind, format string, values Values) (map[string]any, error) {
	if !formatKey.MatchString(format) {
		return nil, &NotFoundError{Kind: kind, Format: format, Available: s.Formats(kind)}
	}

	raw, err := fs.ReadFile(s.fsys, path.Join(string(kind), format+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Kind: kind, Format: format, Available: s.Formats(kind)}
		}
		return nil, fmt.Errorf("read template %s/%s: %w", kind, format, err)
	}

	palette := values.PaletteColor
	if palette == "" {
		palette = DefaultPaletteColor
	}

	replacer := strings.NewReplacer(
		"{{headline}}", escape(values.Headline),
		"{{caption}}", escape(values.Caption),
		"{{logoUrl}}", escape(values.LogoURL),
		"{{paletteColor}}", escape(palette),
		"{{audioUrl}}", escape(values.AudioURL),
	)

	var payload map[string]any
	if err := json.Unmarshal([]byte(replacer.Replace(string(raw))), &payload); err != nil {
		return nil, &MalformedError{Kind: kind, Format: format, Err: err}
	}

	timeline, ok := payload["timeline"].(map[string]any)
	if !ok {
		return nil, &MalformedError{Kind: kind, Format: format, Err: errors.New("missing timeline")}
	}

	if kind == KindVideo && values.AudioURL == "" {
		delete(timeline, "soundtrack")
	}

	return payload, nil
}

// escape renders s as the body of a JSON string literal.
func escape(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	out := strings.TrimSuffix(buf.String(), "\n")
	return out[1 : len(out)-1]
}
