package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginBottom(1)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

// envOrder is the key order written to .env.
var envOrder = []string{
	"LLM_API_KEY",
	"OPENAI_API_KEY",
	"ELEVENLABS_API_KEY",
	"SHOTSTACK_API_KEY",
	"SHOTSTACK_ENV",
	"GOOGLE_CLOUD_PROJECT",
	"GCS_BUCKET",
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard for Orion",
	Long:  `Configure API keys and output directories for Orion.`,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	fmt.Println(titleStyle.Render("✨ Orion Setup"))

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Creating directories", createDirectories},
		{"Configuring environment", configureEnv},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	return nil
}

func createDirectories() error {
	dirs := []string{"output", "data"}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	fmt.Println(successStyle.Render("✓ Created directories"))
	return nil
}

func configureEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		var overwrite bool
		if err := huh.NewConfirm().
			Title("Found existing .env file").
			Description("Overwrite?").
			Value(&overwrite).
			Run(); err != nil {
			return err
		}
		if !overwrite {
			fmt.Println(infoStyle.Render("Kept existing .env"))
			return nil
		}
	}

	env := make(map[string]string)

	if err := configureRequiredKeys(env); err != nil {
		return err
	}

	if err := configureVoice(env); err != nil {
		return err
	}

	if err := configureGCP(env); err != nil {
		return err
	}

	return writeEnvFile(".env", env)
}

func configureRequiredKeys(env map[string]string) error {
	var llmKey, shotstackKey string
	shotstackEnv := "stage"

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("LLM API Key").
				Description("Groq key from https://console.groq.com/keys, or an OpenAI key").
				EchoMode(huh.EchoModePassword).
				Value(&llmKey).
				Validate(required("LLM API Key")),
			huh.NewInput().
				Title("Shotstack API Key").
				Description("https://dashboard.shotstack.io").
				EchoMode(huh.EchoModePassword).
				Value(&shotstackKey).
				Validate(required("Shotstack API Key")),
			huh.NewSelect[string]().
				Title("Shotstack environment").
				Options(
					huh.NewOption("Sandbox (stage)", "stage"),
					huh.NewOption("Production (v1)", "v1"),
				).
				Value(&shotstackEnv),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	env["LLM_API_KEY"] = strings.TrimSpace(llmKey)
	env["SHOTSTACK_API_KEY"] = strings.TrimSpace(shotstackKey)
	env["SHOTSTACK_ENV"] = shotstackEnv
	return nil
}

func configureVoice(env map[string]string) error {
	provider := "openai"
	if err := huh.NewSelect[string]().
		Title("Voiceover provider").
		Options(
			huh.NewOption("OpenAI TTS", "openai"),
			huh.NewOption("ElevenLabs", "elevenlabs"),
		).
		Value(&provider).
		Run(); err != nil {
		return err
	}

	title, key, link := "OpenAI API Key", "OPENAI_API_KEY", "https://platform.openai.com/api-keys"
	if provider == "elevenlabs" {
		title, key, link = "ElevenLabs API Key", "ELEVENLABS_API_KEY", "https://elevenlabs.io/app/settings/api-keys"
		fmt.Println(infoStyle.Render("Set tts.provider: elevenlabs in config.yaml to use it"))
	}

	var apiKey string
	if err := huh.NewInput().
		Title(title).
		Description(link).
		EchoMode(huh.EchoModePassword).
		Value(&apiKey).
		Validate(required(title)).
		Run(); err != nil {
		return err
	}

	env[key] = strings.TrimSpace(apiKey)
	return nil
}

func configureGCP(env map[string]string) error {
	var setupGCP bool
	if err := huh.NewConfirm().
		Title("Setup Google Cloud?").
		Description("Used for Secret Manager keys and hosting voiceovers in Cloud Storage").
		Value(&setupGCP).
		Run(); err != nil {
		return err
	}

	if !setupGCP {
		return nil
	}

	project := activeProject()
	var bucket string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project ID").
				Value(&project).
				Validate(required("Project ID")),
			huh.NewInput().
				Title("Cloud Storage bucket").
				Description("Must allow public reads so the renderer can fetch audio (optional)").
				Value(&bucket),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	env["GOOGLE_CLOUD_PROJECT"] = strings.TrimSpace(project)
	if bucket = strings.TrimSpace(bucket); bucket != "" {
		env["GCS_BUCKET"] = bucket
		fmt.Println(infoStyle.Render("Set storage.provider: gcs in config.yaml to upload voiceovers"))
	}

	if commandExists("gcloud") {
		if err := runWithSpinner("Enabling APIs", func() error {
			return runSetupCmd("gcloud", "services", "enable",
				"secretmanager.googleapis.com", "storage.googleapis.com",
				"--project", env["GOOGLE_CLOUD_PROJECT"])
		}); err != nil {
			fmt.Println(warnStyle.Render(fmt.Sprintf("API enablement failed: %v", err)))
		}
	} else {
		fmt.Println(warnStyle.Render("gcloud CLI not found - install from https://cloud.google.com/sdk/docs/install"))
	}

	return nil
}

func activeProject() string {
	if !commandExists("gcloud") {
		return ""
	}
	out, err := exec.Command("gcloud", "config", "get-value", "project").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func writeEnvFile(path string, env map[string]string) error {
	if err := os.WriteFile(path, []byte(renderEnv(env)), 0600); err != nil {
		return err
	}

	fmt.Println(successStyle.Render("✓ Created " + path))
	printNextSteps()
	return nil
}

// renderEnv formats env in envOrder, skipping empty values.
func renderEnv(env map[string]string) string {
	var b strings.Builder
	for _, key := range envOrder {
		if val, ok := env[key]; ok && val != "" {
			fmt.Fprintf(&b, "%s=%s\n", key, val)
		}
	}
	return b.String()
}

func printNextSteps() {
	fmt.Println()
	fmt.Println(titleStyle.Render("Next steps:"))
	fmt.Println("  1. Run: orion wizard")
	fmt.Println("  2. Or serve the API: orion serve")
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func runSetupCmd(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %s", err, stderr.String())
	}
	return nil
}

func runWithSpinner(title string, fn func() error) error {
	var err error
	_ = spinner.New().
		Title(title).
		Action(func() { err = fn() }).
		Run()
	if err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ " + title))
	return nil
}
