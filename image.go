package venicebridge

// AspectRatio names a preset output geometry.
type AspectRatio string

const (
	AspectSquare AspectRatio = "square" // 1024x1024
	AspectTall   AspectRatio = "tall"   // 768x1024
	AspectWide   AspectRatio = "wide"   // 1024x768
)

// aspectDims maps named aspect ratios to pixel dimensions.
var aspectDims = map[AspectRatio][2]int{
	AspectSquare: {1024, 1024},
	AspectTall:   {768, 1024},
	AspectWide:   {1024, 768},
}

// Dims returns the pixel dimensions for the aspect ratio, or ok=false for
// an unknown name.
func (a AspectRatio) Dims() (width, height int, ok bool) {
	d, ok := aspectDims[a]
	return d[0], d[1], ok
}

// ImageFormat is the on-disk format requested from the provider.
type ImageFormat string

const (
	FormatPNG  ImageFormat = "png"
	FormatWebP ImageFormat = "webp"
)

// Generation defaults tuned for the Venice uncensored models.
const (
	DefaultSteps    = 30
	DefaultCFGScale = 5.0
)

// UpscaleOptions controls the optional second-stage upscale call.
type UpscaleOptions struct {
	Scale       int     // upscale factor, e.g. 4
	Enhance     bool    // enhance details while upscaling
	Creativity  float64 // enhancement creativity, 0..1
	Replication float64 // replication factor, 0..1
	Prompt      string  // optional prompt guiding the enhancement
}

// DefaultUpscaleOptions returns the upscale parameters used when none are supplied.
func DefaultUpscaleOptions() UpscaleOptions {
	return UpscaleOptions{
		Scale:       4,
		Enhance:     true,
		Creativity:  0.15,
		Replication: 0.35,
	}
}

// GenerationRequest describes one image generation call. Construct it with
// NewGenerationRequest and validate it before dispatch; a request that
// fails Validate never reaches the transport.
type GenerationRequest struct {
	Prompt         string
	Model          string // empty means the provider default
	AspectRatio    AspectRatio
	Width          int // explicit dimensions override AspectRatio when both set
	Height         int
	Steps          int
	CFGScale       float64
	NegativePrompt string
	Seed           *int64
	Format         ImageFormat
	StylePreset    string
	HideWatermark  bool
	EmbedEXIF      bool
	SafeMode       bool

	AutoUpscale bool
	Upscale     UpscaleOptions

	// Thumbnail requests a small preview image alongside the output.
	Thumbnail bool

	OutputDir  string
	OutputName string // overrides the prompt-derived slug
}

// Validate checks the request and returns a validation error naming the
// first failing field, or nil.
func (r GenerationRequest) Validate() error {
	if r.Prompt == "" {
		return NewValidationError("prompt", "must not be empty")
	}
	if r.Steps <= 0 {
		return NewValidationError("steps", "must be greater than zero")
	}
	if r.CFGScale <= 0 {
		return NewValidationError("cfg_scale", "must be greater than zero")
	}
	if r.Width < 0 || r.Height < 0 {
		return NewValidationError("dimensions", "must not be negative")
	}
	if r.Width == 0 || r.Height == 0 {
		if _, _, ok := r.AspectRatio.Dims(); !ok {
			return NewValidationError("aspect_ratio", `must be one of "square", "tall", "wide"`)
		}
	}
	switch r.Format {
	case FormatPNG, FormatWebP:
	default:
		return NewValidationError("format", `must be "png" or "webp"`)
	}
	if r.AutoUpscale && r.Upscale.Scale <= 1 {
		return NewValidationError("upscale.scale", "must be greater than one")
	}
	return nil
}

// EffectiveDims resolves the request geometry: explicit width/height win,
// otherwise the named aspect ratio decides.
func (r GenerationRequest) EffectiveDims() (width, height int) {
	if r.Width > 0 && r.Height > 0 {
		return r.Width, r.Height
	}
	w, h, _ := r.AspectRatio.Dims()
	return w, h
}

// ImageResult is the tagged outcome of a generation or upscale workflow.
// On success exactly one of Bytes/Path is populated, and when Path is set
// the file exists and is non-empty at return time.
type ImageResult struct {
	Success bool
	Bytes   []byte
	Path    string

	MetadataPath string
	SHA256       string
	RequestID    string

	// Upscale chain results. UpscaleErr being set with Success still true
	// means the base image landed but the follow-up upscale did not.
	UpscaledPath         string
	UpscaledMetadataPath string
	UpscaledSHA256       string
	UpscaleErr           error

	// Thumbnail results follow the same partial-success convention:
	// ThumbnailErr set with Success still true means the image landed
	// but the thumbnail write did not.
	ThumbnailPath string
	ThumbnailErr  error

	Metadata map[string]any
	Err      error
}
