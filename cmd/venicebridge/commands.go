package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Fayeblade1488/venicebridge"
	"github.com/Fayeblade1488/venicebridge/catalog"
	"github.com/Fayeblade1488/venicebridge/gitkraken"
	"github.com/Fayeblade1488/venicebridge/registry"
	"github.com/Fayeblade1488/venicebridge/workflow"
)

func runGenerate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	prompt := fs.String("prompt", "", "generation prompt (required)")
	model := fs.String("model", "", "model id (default: provider default)")
	aspect := fs.String("aspect", "tall", `aspect ratio: "square", "tall", or "wide"`)
	width := fs.Int("width", 0, "explicit width, overrides -aspect with -height")
	height := fs.Int("height", 0, "explicit height, overrides -aspect with -width")
	steps := fs.Int("steps", venicebridge.DefaultSteps, "inference steps")
	cfg := fs.Float64("cfg", venicebridge.DefaultCFGScale, "cfg scale")
	negative := fs.String("negative", "", "negative prompt")
	seed := fs.Int64("seed", 0, "generation seed (omit for random)")
	format := fs.String("format", "png", `output format: "png" or "webp"`)
	style := fs.String("style", "", "style preset")
	safe := fs.Bool("safe", false, "enable content safety filtering")
	watermark := fs.Bool("watermark", false, "keep the provider watermark")
	exif := fs.Bool("exif", false, "embed EXIF metadata")
	upscale := fs.Bool("upscale", false, "chain an upscale pass after generation")
	scale := fs.Int("scale", 4, "upscale factor when -upscale is set")
	thumbnail := fs.Bool("thumbnail", false, "write a small preview alongside the output")
	outDir := fs.String("out", "generated", "output directory")
	name := fs.String("name", "", "output file stem (default: derived from prompt)")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	verbose := fs.Bool("verbose", false, "echo transport events to stderr")
	apiKey := fs.String("api-key", "", "Venice API key (default: VENICE_API_KEY)")
	fs.Parse(args)

	if *prompt == "" && fs.NArg() > 0 {
		*prompt = strings.Join(fs.Args(), " ")
	}

	opts := []venicebridge.GenerateOption{
		venicebridge.WithModel(*model),
		venicebridge.WithAspectRatio(venicebridge.AspectRatio(*aspect)),
		venicebridge.WithSteps(*steps),
		venicebridge.WithCFGScale(*cfg),
		venicebridge.WithNegativePrompt(*negative),
		venicebridge.WithFormat(venicebridge.ImageFormat(*format)),
		venicebridge.WithStylePreset(*style),
		venicebridge.WithSafeMode(*safe),
		venicebridge.WithWatermark(*watermark),
		venicebridge.WithEmbedEXIF(*exif),
		venicebridge.WithAutoUpscale(*upscale),
		venicebridge.WithThumbnail(*thumbnail),
		venicebridge.WithOutputDir(*outDir),
		venicebridge.WithOutputName(*name),
	}
	if *width > 0 || *height > 0 {
		opts = append(opts, venicebridge.WithDimensions(*width, *height))
	}
	seedSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			seedSet = true
		}
	})
	if seedSet {
		opts = append(opts, venicebridge.WithSeed(*seed))
	}
	if *upscale {
		up := venicebridge.DefaultUpscaleOptions()
		up.Scale = *scale
		opts = append(opts, venicebridge.WithUpscaleOptions(up))
	}

	tp, done, err := veniceTransport(*apiKey, *verbose)
	if err != nil {
		return err
	}
	gen := workflow.NewGenerator(tp)
	res := gen.Generate(ctx, venicebridge.NewGenerationRequest(*prompt, opts...))
	done()
	if res.Err != nil {
		return res.Err
	}

	if *asJSON {
		return printJSON(generateOutput(res))
	}
	fmt.Println("generated:", res.Path)
	fmt.Println("metadata: ", res.MetadataPath)
	fmt.Println("sha256:   ", res.SHA256)
	if res.UpscaledPath != "" {
		fmt.Println("upscaled: ", res.UpscaledPath)
	}
	if res.UpscaleErr != nil {
		fmt.Fprintln(os.Stderr, "warning: upscale failed:", res.UpscaleErr)
	}
	if res.ThumbnailPath != "" {
		fmt.Println("thumbnail:", res.ThumbnailPath)
	}
	if res.ThumbnailErr != nil {
		fmt.Fprintln(os.Stderr, "warning: thumbnail failed:", res.ThumbnailErr)
	}
	return nil
}

// generateOutput flattens an ImageResult for JSON printing; errors render
// as strings.
func generateOutput(res *venicebridge.ImageResult) map[string]any {
	out := map[string]any{
		"success":       res.Success,
		"path":          res.Path,
		"metadata_path": res.MetadataPath,
		"sha256":        res.SHA256,
		"request_id":    res.RequestID,
	}
	if res.UpscaledPath != "" {
		out["upscaled_path"] = res.UpscaledPath
		out["upscaled_metadata_path"] = res.UpscaledMetadataPath
		out["upscaled_sha256"] = res.UpscaledSHA256
	}
	if res.UpscaleErr != nil {
		out["upscale_error"] = res.UpscaleErr.Error()
	}
	if res.ThumbnailPath != "" {
		out["thumbnail_path"] = res.ThumbnailPath
	}
	if res.ThumbnailErr != nil {
		out["thumbnail_error"] = res.ThumbnailErr.Error()
	}
	return out
}

func runUpscale(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("upscale", flag.ExitOnError)
	in := fs.String("in", "", "input image path (required)")
	out := fs.String("out", "", "output path (default: <input>_upscaled)")
	scale := fs.Int("scale", 4, "upscale factor")
	enhance := fs.Bool("enhance", true, "enhance details while upscaling")
	creativity := fs.Float64("creativity", 0.15, "enhancement creativity, 0..1")
	replication := fs.Float64("replication", 0.35, "replication factor, 0..1")
	prompt := fs.String("prompt", "", "prompt guiding the enhancement")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	verbose := fs.Bool("verbose", false, "echo transport events to stderr")
	apiKey := fs.String("api-key", "", "Venice API key (default: VENICE_API_KEY)")
	fs.Parse(args)

	if *in == "" && fs.NArg() > 0 {
		*in = fs.Arg(0)
	}
	if *in == "" {
		return fmt.Errorf("upscale: -in is required")
	}

	tp, done, err := veniceTransport(*apiKey, *verbose)
	if err != nil {
		return err
	}
	gen := workflow.NewGenerator(tp)
	res := gen.Upscale(ctx, *in, *out, venicebridge.UpscaleOptions{
		Scale:       *scale,
		Enhance:     *enhance,
		Creativity:  *creativity,
		Replication: *replication,
		Prompt:      *prompt,
	})
	done()
	if res.Err != nil {
		return res.Err
	}

	if *asJSON {
		return printJSON(map[string]any{
			"success": res.Success,
			"input":   *in,
			"path":    res.Path,
			"sha256":  res.SHA256,
		})
	}
	fmt.Println("upscaled:", res.Path)
	return nil
}

func runModels(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("models", flag.ExitOnError)
	uncensoredOnly := fs.Bool("uncensored", false, "list only uncensored models")
	asJSON := fs.Bool("json", false, "print the list as JSON")
	apiKey := fs.String("api-key", "", "Venice API key (default: VENICE_API_KEY)")
	fs.Parse(args)

	tp, done, err := veniceTransport(*apiKey, false)
	if err != nil {
		return err
	}
	defer done()

	cat := catalog.New(tp)
	var models []venicebridge.ModelEntry
	if *uncensoredOnly {
		models, err = cat.Uncensored(ctx)
	} else {
		models, err = cat.List(ctx)
	}
	if err != nil {
		return err
	}

	if *asJSON {
		return printJSON(models)
	}
	for _, m := range models {
		line := m.ID
		if m.DisplayName != "" && m.DisplayName != m.ID {
			line += "  (" + m.DisplayName + ")"
		}
		if len(m.CapabilityTags) > 0 {
			line += "  [" + strings.Join(m.CapabilityTags, ", ") + "]"
		}
		fmt.Println(line)
	}
	return nil
}

func runVerify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "print the status as JSON")
	apiKey := fs.String("api-key", "", "Venice API key (default: VENICE_API_KEY)")
	fs.Parse(args)

	tp, done, err := veniceTransport(*apiKey, false)
	if err != nil {
		return err
	}
	defer done()

	status, err := catalog.New(tp).VerifyKey(ctx)
	if err != nil {
		return err
	}

	if *asJSON {
		return printJSON(status)
	}
	if status.Valid {
		fmt.Println("API key is valid")
	} else {
		fmt.Println("API key is invalid:", status.Message)
	}
	return nil
}

func runChat(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	provider := fs.String("provider", "venice", "provider id from the providers file")
	model := fs.String("model", "", "model id (required)")
	system := fs.String("system", "", "system prompt")
	temp := fs.Float64("temp", 0, "sampling temperature (omit for provider default)")
	maxTokens := fs.Int("max-tokens", 0, "completion token limit")
	config := fs.String("config", "", "providers file path (default: Raycast config)")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	fs.Parse(args)

	message := strings.Join(fs.Args(), " ")
	if message == "" {
		return fmt.Errorf("chat: a message argument is required")
	}

	reg, err := registry.Load(*config)
	if err != nil {
		return err
	}

	req := venicebridge.ChatRequest{
		Provider:  *provider,
		Model:     *model,
		MaxTokens: *maxTokens,
	}
	if *system != "" {
		req.Messages = append(req.Messages, venicebridge.ChatMessage{
			Role: venicebridge.RoleSystem, Content: *system,
		})
	}
	req.Messages = append(req.Messages, venicebridge.ChatMessage{
		Role: venicebridge.RoleUser, Content: message,
	})
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "temp" {
			req.Temperature = temp
		}
	})

	res := workflow.NewChatter(reg).Chat(ctx, req)
	if res.Err != nil {
		return res.Err
	}

	if *asJSON {
		out := map[string]any{
			"success":       res.Success,
			"text":          res.Text,
			"finish_reason": res.FinishReason,
			"request_id":    res.RequestID,
		}
		if res.Usage != nil {
			out["usage"] = res.Usage
		}
		return printJSON(out)
	}
	fmt.Println(res.Text)
	return nil
}

func runExportConfig(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export-config", flag.ExitOnError)
	path := fs.String("path", "", "destination file (default: Raycast config)")
	apiKey := fs.String("api-key", "", "Venice API key (default: VENICE_API_KEY)")
	fs.Parse(args)

	if *path == "" {
		paths := registry.DefaultPaths()
		if len(paths) == 0 {
			return fmt.Errorf("export-config: cannot determine a default path, use -path")
		}
		*path = paths[0]
	}

	tp, done, err := veniceTransport(*apiKey, false)
	if err != nil {
		return err
	}
	defer done()

	res, err := registry.Export(ctx, catalog.New(tp), tp.Provider(), *path)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d models)\n", res.Path, res.ModelCount)
	return nil
}

func runGK(ctx context.Context, args []string) error {
	cli := gitkraken.New()
	if !cli.Installed() {
		return fmt.Errorf("gitkraken cli (gk) is not installed or not in PATH")
	}

	res := cli.Run(ctx, args...)
	if res.Err != nil {
		return res.Err
	}
	if res.Stdout != "" {
		fmt.Print(res.Stdout)
	}
	if res.Stderr != "" {
		fmt.Fprint(os.Stderr, res.Stderr)
	}
	if !res.Success {
		return fmt.Errorf("gk exited with status %d", res.ExitCode)
	}
	return nil
}
