package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"orion/internal/campaign"
	"orion/internal/fault"
	"orion/internal/render"
	"orion/internal/speech"
	"orion/internal/storage"
	"orion/internal/wizard"
	"orion/pkg/config"
)

const (
	actionBack = "back"
	actionQuit = "quit"
	actionNext = "next"
)

var errQuit = errors.New("quit")

var (
	promptStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("252"))
	stepStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
)

var bestPractices = []string{
	"Post during peak engagement hours (typically 9-11 AM or 7-9 PM)",
	"Engage with comments within the first hour to boost visibility",
	"Use all suggested hashtags to maximize reach",
	"Consider creating variations for different platforms",
	"Track performance metrics to optimize future content",
}

var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Build a social media post step by step",
	Long: `Walk through the eight steps of creating a post: brand details, targeting,
generated copy and voiceover, image and video rendering, preview and download.`,
	RunE: runWizard,
}

func init() {
	addBackendFlag(wizardCmd)
	rootCmd.AddCommand(wizardCmd)
}

func runWizard(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	cfg, err := config.LoadFrom(ctx, configPath)
	if err != nil {
		return err
	}

	backend, release, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()

	session := wizard.New(backend, wizard.Options{
		Logger:       slog.Default(),
		PollInterval: cfg.Wizard.PollInterval,
		SettleDelay:  cfg.Wizard.SettleDelay,
		PollTimeout:  cfg.Wizard.Timeout(),
		OnChange: func(ev wizard.Event) {
			slog.Debug("Wizard state changed", "step", ev.Step, "render_status", ev.RenderStatus, "error", ev.Err)
		},
	})
	defer func() { _ = session.Close() }()

	ui := &wizardUI{
		session: session,
		local:   storage.NewLocalStorage(cfg.Storage.OutputDir, nil),
	}

	fmt.Println(titleStyle.Render("✨ Orion"))
	err = ui.run(ctx)
	if errors.Is(err, errQuit) || errors.Is(err, huh.ErrUserAborted) {
		fmt.Println(infoStyle.Render("Bye!"))
		return nil
	}
	return err
}

type wizardUI struct {
	session *wizard.Session
	local   *storage.LocalStorage
}

func (u *wizardUI) run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		step := u.session.Step()
		fmt.Println()
		fmt.Println(stepStyle.Render(fmt.Sprintf("Step %d of %d", int(step)+1, int(wizard.StepDone)+1)))
		fmt.Println(promptStyle.Render(step.Prompt()))

		var err error
		switch step {
		case wizard.StepBrand:
			err = u.brand(ctx)
		case wizard.StepTargeting:
			err = u.targeting(ctx)
		case wizard.StepCopy:
			err = u.copy(ctx)
		case wizard.StepImage:
			err = u.image(ctx)
		case wizard.StepVideo:
			err = u.video(ctx)
		case wizard.StepRendering:
			err = u.rendering(ctx)
		case wizard.StepPreview:
			err = u.preview(ctx)
		case wizard.StepDone:
			err = u.done(ctx)
		}
		if err == nil {
			continue
		}

		var stepErr *wizard.StepError
		var invalid *fault.ValidationError
		switch {
		case errors.As(err, &stepErr):
			fmt.Println(warnStyle.Render("✗ " + stepErr.Message))
		case errors.As(err, &invalid):
			fmt.Println(warnStyle.Render("✗ " + invalid.Message))
		default:
			return err
		}
	}
}

func (u *wizardUI) brand(ctx context.Context) error {
	data := u.session.Data()
	brand := wizard.Brand{
		BrandName:   data.BrandName,
		Website:     data.Website,
		Description: data.Description,
		LogoURL:     data.LogoURL,
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Brand name").
				Value(&brand.BrandName).
				Validate(required("Brand name")),
			huh.NewInput().
				Title("Website").
				Placeholder("https://example.com").
				Value(&brand.Website),
			huh.NewText().
				Title("Description").
				Description("What is this post about?").
				Value(&brand.Description).
				Validate(required("Description")),
			huh.NewInput().
				Title("Logo URL").
				Placeholder("https://example.com/logo.png").
				Value(&brand.LogoURL).
				Validate(required("Logo URL")),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	if err := u.session.SetBrand(brand); err != nil {
		return err
	}
	return u.session.Continue(ctx)
}

func (u *wizardUI) targeting(ctx context.Context) error {
	data := u.session.Data()
	t := wizard.Targeting{
		Industry:         orFirst(data.Industry, campaign.Industries),
		Goal:             orFirst(data.Goal, campaign.Goals),
		Tone:             orFirst(data.Tone, campaign.Tones),
		Platform:         orFirst(data.Platform, campaign.Platforms),
		Audience:         orFirst(data.Audience, campaign.Audiences),
		PaletteColor:     data.PaletteColor,
		IncludeVoiceover: data.IncludeVoiceover,
		Voice:            data.Voice,
	}

	voices := make([]huh.Option[speech.Voice], 0, len(speech.Voices))
	for _, v := range speech.Voices {
		voices = append(voices, huh.NewOption(v.Label, v.Voice))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Industry").Options(huh.NewOptions(campaign.Industries...)...).Value(&t.Industry),
			huh.NewSelect[string]().Title("Goal").Options(huh.NewOptions(campaign.Goals...)...).Value(&t.Goal),
			huh.NewSelect[string]().Title("Tone").Options(huh.NewOptions(campaign.Tones...)...).Value(&t.Tone),
		),
		huh.NewGroup(
			huh.NewSelect[string]().Title("Platform").Options(huh.NewOptions(campaign.Platforms...)...).Value(&t.Platform),
			huh.NewSelect[string]().Title("Audience").Options(huh.NewOptions(campaign.Audiences...)...).Value(&t.Audience),
			huh.NewInput().
				Title("Palette color").
				Placeholder(campaign.DefaultPaletteColor).
				Value(&t.PaletteColor),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Include a voiceover?").
				Value(&t.IncludeVoiceover),
			huh.NewSelect[speech.Voice]().
				Title("Voice").
				Options(voices...).
				Value(&t.Voice),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	if err := u.session.SetTargeting(t); err != nil {
		return err
	}

	choice, err := chooseAction(wizard.StepTargeting, "Generate copy")
	if err != nil || choice == actionBack {
		return u.backOr(choice, err)
	}
	return runWithSpinner("Writing your copy", func() error {
		return u.session.Continue(ctx)
	})
}

func (u *wizardUI) copy(ctx context.Context) error {
	data := u.session.Data()
	fmt.Println(labelStyle.Render("Headline") + "  " + data.Headline)
	fmt.Println(labelStyle.Render("Caption") + "   " + data.Caption)
	fmt.Println(labelStyle.Render("Hashtags") + "  " + formatHashtags(data.Hashtags))

	if data.IncludeVoiceover {
		script := data.Script
		if err := huh.NewText().
			Title("Voiceover script").
			Description("Edit before it is recorded").
			Value(&script).
			Run(); err != nil {
			return err
		}
		if err := u.session.SetScript(script); err != nil {
			return err
		}
	}

	label := "Continue"
	if data.IncludeVoiceover {
		label = "Record voiceover"
	}
	choice, err := chooseAction(wizard.StepCopy, label)
	if err != nil || choice == actionBack {
		return u.backOr(choice, err)
	}
	if !data.IncludeVoiceover {
		return u.session.Continue(ctx)
	}
	return runWithSpinner("Recording voiceover", func() error {
		return u.session.Continue(ctx)
	})
}

func (u *wizardUI) image(ctx context.Context) error {
	choice, err := chooseAction(wizard.StepImage, "Generate")
	if err != nil || choice == actionBack {
		return u.backOr(choice, err)
	}
	return runWithSpinner("Starting image render", func() error {
		return u.session.Generate(ctx)
	})
}

func (u *wizardUI) video(ctx context.Context) error {
	data := u.session.Data()
	label, title := "Generate video", "Starting video render"
	if !data.WantsVideo() {
		label, title = "Continue", "Starting image render"
	}

	choice, err := chooseAction(wizard.StepVideo, label)
	if err != nil || choice == actionBack {
		return u.backOr(choice, err)
	}
	if !data.WantsVideo() && data.RenderStatus != render.StatusFailed {
		return u.session.Generate(ctx)
	}
	return runWithSpinner(title, func() error {
		return u.session.Generate(ctx)
	})
}

func (u *wizardUI) rendering(ctx context.Context) error {
	if u.session.Polling() {
		err := runWithSpinner("Rendering", func() error {
			return u.session.AwaitRender(ctx)
		})
		if err == nil {
			return nil
		}
		if !wizard.IsRenderFailure(err) {
			return err
		}
		fmt.Println(warnStyle.Render("✗ " + wizard.UserMessage(err)))
	}

	// The cycle ended without an asset. Going back resubmits the render.
	choice, err := chooseAction(wizard.StepRendering)
	if err != nil {
		return err
	}
	return u.backOr(choice, nil)
}

func (u *wizardUI) preview(ctx context.Context) error {
	data := u.session.Data()

	kind := "Image"
	if data.WantsVideo() {
		kind = "Video"
	}
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(data.PaletteColor)).
		Padding(1, 2).
		Width(72)
	fmt.Println(card.Render(strings.Join([]string{
		labelStyle.Render(data.Headline),
		"",
		data.Caption,
		"",
		infoStyle.Render(formatHashtags(data.Hashtags)),
		"",
		fmt.Sprintf("%s: %s", kind, data.MediaURL()),
	}, "\n")))

	choice, err := chooseAction(wizard.StepPreview, "Looks good")
	if err != nil || choice == actionBack {
		return u.backOr(choice, err)
	}
	return u.session.Finalize(ctx)
}

func (u *wizardUI) done(ctx context.Context) error {
	data := u.session.Data()
	fmt.Println(successStyle.Render("✓ Your social media content has been successfully created!"))

	var download bool
	if err := huh.NewConfirm().
		Title("Download your content?").
		Description("Saved to " + u.local.OutputDir()).
		Value(&download).
		Run(); err != nil {
		return err
	}
	if download {
		if err := u.download(ctx, data); err != nil {
			fmt.Println(warnStyle.Render(fmt.Sprintf("Download failed: %v", err)))
		}
	}

	fmt.Println()
	fmt.Println(titleStyle.Render("Best practices"))
	for _, tip := range bestPractices {
		fmt.Println("  • " + tip)
	}

	var again bool
	if err := huh.NewConfirm().
		Title("Create another post?").
		Affirmative("Create Another Post").
		Negative("Quit").
		Value(&again).
		Run(); err != nil {
		return err
	}
	if !again {
		return errQuit
	}
	return u.session.Restart()
}

func (u *wizardUI) download(ctx context.Context, data campaign.Data) error {
	src := data.MediaURL()
	if src == "" {
		return fmt.Errorf("no rendered asset")
	}

	var path string
	err := runWithSpinner("Downloading", func() error {
		var err error
		path, err = u.local.Download(ctx, src, mediaFilename(data))
		return err
	})
	if err != nil {
		return err
	}
	fmt.Println(infoStyle.Render("Saved " + path))
	return nil
}

// backOr handles the shared Back and Quit choices of the action menu.
func (u *wizardUI) backOr(choice string, err error) error {
	if err != nil {
		return err
	}
	switch choice {
	case actionBack:
		return u.session.Back()
	case actionQuit:
		return errQuit
	}
	return nil
}

// chooseAction offers the step's primary action, if any, plus Back where the
// step allows it and Quit.
func chooseAction(step wizard.Step, primary ...string) (string, error) {
	var options []huh.Option[string]
	for _, label := range primary {
		options = append(options, huh.NewOption(label, actionNext))
	}
	if step.CanGoBack() {
		options = append(options, huh.NewOption("Back", actionBack))
	}
	options = append(options, huh.NewOption("Quit", actionQuit))

	var choice string
	if err := huh.NewSelect[string]().
		Title("What next?").
		Options(options...).
		Value(&choice).
		Run(); err != nil {
		return "", err
	}
	if choice == actionQuit {
		return "", errQuit
	}
	return choice, nil
}

func formatHashtags(tags []string) string {
	formatted := make([]string, len(tags))
	for i, tag := range tags {
		formatted[i] = "#" + tag
	}
	return strings.Join(formatted, " ")
}

func mediaFilename(data campaign.Data) string {
	name := strings.ToLower(strings.Join(strings.Fields(data.BrandName), "-"))
	if name == "" {
		name = "post"
	}
	if data.RenderID != "" {
		name += "-" + data.RenderID
	}
	return name
}

func orFirst(value string, options []string) string {
	if value != "" || len(options) == 0 {
		return value
	}
	return options[0]
}
