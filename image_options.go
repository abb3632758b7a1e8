package venicebridge

// GenerateOption is a functional option for configuring generation requests.
type GenerateOption func(*GenerationRequest)

// NewGenerationRequest builds a request with the package defaults applied,
// then the given options in order. Safe mode and watermarking default off,
// matching the uncensored generation profile.
func NewGenerationRequest(prompt string, opts ...GenerateOption) GenerationRequest {
	r := GenerationRequest{
		Prompt:        prompt,
		AspectRatio:   AspectTall,
		Steps:         DefaultSteps,
		CFGScale:      DefaultCFGScale,
		Format:        FormatPNG,
		HideWatermark: true,
		SafeMode:      false,
		Upscale:       DefaultUpscaleOptions(),
		OutputDir:     "generated",
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// WithModel sets the model to use for generation.
func WithModel(model string) GenerateOption {
	return func(r *GenerationRequest) { r.Model = model }
}

// WithAspectRatio sets the named output geometry.
func WithAspectRatio(a AspectRatio) GenerateOption {
	return func(r *GenerationRequest) { r.AspectRatio = a }
}

// WithDimensions sets explicit pixel dimensions, overriding the aspect ratio.
func WithDimensions(width, height int) GenerateOption {
	return func(r *GenerationRequest) {
		r.Width = width
		r.Height = height
	}
}

// WithSteps sets the number of inference steps.
func WithSteps(n int) GenerateOption {
	return func(r *GenerationRequest) { r.Steps = n }
}

// WithCFGScale sets the classifier-free guidance scale.
func WithCFGScale(s float64) GenerateOption {
	return func(r *GenerationRequest) { r.CFGScale = s }
}

// WithNegativePrompt sets a prompt describing what to avoid.
func WithNegativePrompt(p string) GenerateOption {
	return func(r *GenerationRequest) { r.NegativePrompt = p }
}

// WithSeed fixes the generation seed for reproducibility.
func WithSeed(seed int64) GenerateOption {
	return func(r *GenerationRequest) { r.Seed = &seed }
}

// WithFormat sets the requested output format.
func WithFormat(f ImageFormat) GenerateOption {
	return func(r *GenerationRequest) { r.Format = f }
}

// WithStylePreset applies a named style preset.
func WithStylePreset(style string) GenerateOption {
	return func(r *GenerationRequest) { r.StylePreset = style }
}

// WithSafeMode toggles content safety filtering.
func WithSafeMode(on bool) GenerateOption {
	return func(r *GenerationRequest) { r.SafeMode = on }
}

// WithWatermark toggles the provider watermark. The default hides it.
func WithWatermark(on bool) GenerateOption {
	return func(r *GenerationRequest) { r.HideWatermark = !on }
}

// WithEmbedEXIF requests EXIF metadata embedding in the output.
func WithEmbedEXIF(on bool) GenerateOption {
	return func(r *GenerationRequest) { r.EmbedEXIF = on }
}

// WithAutoUpscale chains an upscale call after a successful generation.
func WithAutoUpscale(on bool) GenerateOption {
	return func(r *GenerationRequest) { r.AutoUpscale = on }
}

// WithUpscaleOptions replaces the default upscale parameters.
func WithUpscaleOptions(u UpscaleOptions) GenerateOption {
	return func(r *GenerationRequest) { r.Upscale = u }
}

// WithThumbnail requests a small preview image alongside the output.
func WithThumbnail(on bool) GenerateOption {
	return func(r *GenerationRequest) { r.Thumbnail = on }
}

// WithOutputDir sets the directory generated files are written to.
func WithOutputDir(dir string) GenerateOption {
	return func(r *GenerationRequest) { r.OutputDir = dir }
}

// WithOutputName overrides the prompt-derived output file stem.
func WithOutputName(name string) GenerateOption {
	return func(r *GenerationRequest) { r.OutputName = name }
}
