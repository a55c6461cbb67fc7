package prompts

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

const defaultPromptsPath = "prompts.yaml"

//go:embed default.yaml
var defaultPrompts []byte

type Prompts struct {
	System  SystemPrompts  `yaml:"system"`
	Compose ComposePrompts `yaml:"compose"`
}

type SystemPrompts struct {
	Compose string `yaml:"compose"`
}

type ComposePrompts struct {
	Brief string `yaml:"brief"`
}

type ComposeParams struct {
	BrandName   string
	Website     string
	Description string
	Industry    string
	Goal        string
	Tone        string
	Audience    string
	Platform    string
}

// Default returns the built-in prompt set.
func Default() *Prompts {
	p, err := parse(defaultPrompts)
	if err != nil {
		panic(fmt.Sprintf("prompts: embedded defaults: %v", err))
	}
	return p
}

// Load reads prompts.yaml from the working directory, falling back to the
// built-in set when the file does not exist.
func Load() (*Prompts, error) {
	p, err := LoadFrom(defaultPromptsPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return p, err
}

func LoadFrom(path string) (*Prompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}

	p, err := parse(data)
	if err != nil {
		return nil, err
	}

	defaults := Default()
	if p.System.Compose == "" {
		p.System.Compose = defaults.System.Compose
	}
	if p.Compose.Brief == "" {
		p.Compose.Brief = defaults.Compose.Brief
	}

	return p, nil
}

func (p *Prompts) RenderCompose(params ComposeParams) (string, error) {
	return render(p.Compose.Brief, params)
}

func parse(data []byte) (*Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse prompts file: %w", err)
	}
	return &p, nil
}

func render(tmpl string, data any) (string, error) {
	t, err := template.New("prompt").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}
