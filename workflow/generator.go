package workflow

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Fayeblade1488/venicebridge"
	"github.com/Fayeblade1488/venicebridge/decode"
	"github.com/Fayeblade1488/venicebridge/redact"
	"github.com/Fayeblade1488/venicebridge/transport"
)

// Provider endpoint paths.
const (
	generatePath = "/image/generate"
	upscalePath  = "/image/upscale"
)

// Transport executes workflow requests. *transport.Client satisfies it.
type Transport interface {
	Do(ctx context.Context, req transport.Request) (*transport.RawResponse, error)
	Provider() venicebridge.ProviderConfig
}

// Generator runs the image generation and upscale pipelines against a
// single provider transport.
type Generator struct {
	tp     Transport
	events chan<- Event
	now    func() time.Time
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithEvents sets a channel for pipeline stage events. Events are dropped
// rather than blocking when the channel is full.
func WithEvents(ch chan<- Event) GeneratorOption {
	return func(g *Generator) { g.events = ch }
}

// NewGenerator creates a generation pipeline backed by the given transport.
func NewGenerator(tp Transport, opts ...GeneratorOption) *Generator {
	g := &Generator{tp: tp, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate runs the full pipeline for one request: validate, call the
// provider, decode, persist, and optionally upscale. The returned result
// is always non-nil; inspect Success and Err.
func (g *Generator) Generate(ctx context.Context, req venicebridge.GenerationRequest) *venicebridge.ImageResult {
	start := g.now()

	g.emit(Event{Type: EventValidating, Operation: "generate"})
	if err := req.Validate(); err != nil {
		return g.fail("generate", start, err)
	}

	g.emit(Event{Type: EventRequesting, Operation: "generate"})
	raw, err := g.tp.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   generatePath,
		Body:   g.generationBody(req),
	})
	if err != nil {
		return g.fail("generate", start, err)
	}

	g.emit(Event{Type: EventDecoding, Operation: "generate"})
	payload, err := decode.Image(raw)
	if err != nil {
		return g.fail("generate", start, err)
	}

	g.emit(Event{Type: EventPersisting, Operation: "generate"})
	result, stem, metaDir, upDir, err := g.persist(req, raw, payload)
	if err != nil {
		return g.fail("generate", start, err)
	}

	if req.AutoUpscale {
		g.emit(Event{Type: EventUpscaling, Operation: "generate", Path: result.Path})
		g.chainUpscale(ctx, req, result, stem, metaDir, upDir)
	}

	if req.Thumbnail {
		path, err := writeThumbnail(result.Path, payload.Bytes, req.Format)
		if err != nil {
			result.ThumbnailErr = err
		} else {
			result.ThumbnailPath = path
		}
	}

	g.emit(Event{Type: EventDone, Operation: "generate", Path: result.Path, Duration: g.now().Sub(start)})
	return result
}

// generationBody builds the provider request body. Field names follow the
// generation endpoint's wire contract.
func (g *Generator) generationBody(req venicebridge.GenerationRequest) map[string]any {
	model := req.Model
	if model == "" {
		model = g.tp.Provider().DefaultModel
	}
	width, height := req.EffectiveDims()

	body := map[string]any{
		"model":               model,
		"prompt":              req.Prompt,
		"negative_prompt":     req.NegativePrompt,
		"width":               width,
		"height":              height,
		"steps":               req.Steps,
		"cfg_scale":           req.CFGScale,
		"format":              string(req.Format),
		"hide_watermark":      req.HideWatermark,
		"embed_exif_metadata": req.EmbedEXIF,
		"safe_mode":           req.SafeMode,
	}
	if req.Seed != nil {
		body["seed"] = *req.Seed
	}
	if req.StylePreset != "" && !strings.EqualFold(req.StylePreset, "none") {
		body["style_preset"] = req.StylePreset
	}
	return body
}

// persist writes the base image and its metadata sidecar, returning the
// populated result plus the stem and directories the upscale chain reuses.
func (g *Generator) persist(req venicebridge.GenerationRequest, raw *transport.RawResponse, payload *decode.ImagePayload) (*venicebridge.ImageResult, string, string, string, error) {
	imgDir, upDir, metaDir, err := outputDirs(req.OutputDir)
	if err != nil {
		return nil, "", "", "", err
	}

	ext := "." + string(req.Format)
	stem := uniqueStem(imgDir, stemFor(req, g.now()), ext)
	imgPath := filepath.Join(imgDir, stem+ext)

	if err := writeAtomic(imgPath, payload.Bytes); err != nil {
		return nil, "", "", "", err
	}
	sha := sha256Hex(payload.Bytes)

	width, height := req.EffectiveDims()
	meta := map[string]any{
		"timestamp": g.now().UTC().Format(time.RFC3339),
		"mode":      "generate",
		"request_params": map[string]any{
			"prompt":          req.Prompt,
			"model":           req.Model,
			"aspect_ratio":    string(req.AspectRatio),
			"width":           width,
			"height":          height,
			"steps":           req.Steps,
			"cfg_scale":       req.CFGScale,
			"negative_prompt": req.NegativePrompt,
			"seed":            seedValue(req.Seed),
			"format":          string(req.Format),
			"style_preset":    req.StylePreset,
			"hide_watermark":  req.HideWatermark,
			"embed_exif":      req.EmbedEXIF,
			"safe_mode":       req.SafeMode,
		},
		"response_meta": payload.Meta,
		"request_id":    raw.RequestID,
		"output_sha256": sha,
		"output_path":   imgPath,
	}

	metaPath := filepath.Join(metaDir, stem+".json")
	if err := writeMetadata(metaPath, meta); err != nil {
		return nil, "", "", "", err
	}

	result := &venicebridge.ImageResult{
		Success:      true,
		Path:         imgPath,
		MetadataPath: metaPath,
		SHA256:       sha,
		RequestID:    raw.RequestID,
		Metadata:     meta,
	}
	return result, stem, metaDir, upDir, nil
}

// chainUpscale runs the optional second-stage upscale. Any failure here is
// partial success: the base result stays intact and the error lands in
// UpscaleErr.
func (g *Generator) chainUpscale(ctx context.Context, req venicebridge.GenerationRequest, result *venicebridge.ImageResult, stem, metaDir, upDir string) {
	base, err := os.ReadFile(result.Path)
	if err != nil {
		result.UpscaleErr = venicebridge.NewPersistenceError("read base image for upscale", err)
		return
	}

	upBytes, upMeta, err := g.upscaleBytes(ctx, base, req.Upscale)
	if err != nil {
		result.UpscaleErr = err
		return
	}

	ext := "." + string(req.Format)
	upPath := filepath.Join(upDir, stem+"_upscaled"+ext)
	if err := writeAtomic(upPath, upBytes); err != nil {
		result.UpscaleErr = err
		return
	}
	upSHA := sha256Hex(upBytes)

	upMetaPath := filepath.Join(metaDir, stem+"_upscaled.json")
	if err := writeMetadata(upMetaPath, map[string]any{
		"timestamp":    g.now().UTC().Format(time.RFC3339),
		"mode":         "upscale_post_gen",
		"source_image": result.Path,
		"upscale_params": map[string]any{
			"scale":          req.Upscale.Scale,
			"enhance":        req.Upscale.Enhance,
			"creativity":     req.Upscale.Creativity,
			"replication":    req.Upscale.Replication,
			"enhance_prompt": req.Upscale.Prompt,
		},
		"response_meta": upMeta,
		"output_sha256": upSHA,
		"output_path":   upPath,
	}); err != nil {
		result.UpscaleErr = err
		return
	}

	result.UpscaledPath = upPath
	result.UpscaledMetadataPath = upMetaPath
	result.UpscaledSHA256 = upSHA
}

// streamTransport is satisfied by transports that can hand back the
// response body as a reader, letting large upscale payloads go to disk
// without a second in-memory copy.
type streamTransport interface {
	Stream(ctx context.Context, req transport.Request) (*transport.RawResponse, io.ReadCloser, error)
}

// Upscale runs the standalone upscale pipeline on an existing image file.
// The output lands next to the input as <stem>_upscaled<ext> unless
// outputPath is given.
func (g *Generator) Upscale(ctx context.Context, imagePath, outputPath string, opts venicebridge.UpscaleOptions) *venicebridge.ImageResult {
	start := g.now()

	g.emit(Event{Type: EventValidating, Operation: "upscale", Path: imagePath})
	if opts.Scale <= 1 {
		return g.fail("upscale", start, venicebridge.NewValidationError("scale", "must be greater than one"))
	}

	base, err := os.ReadFile(imagePath)
	if err != nil {
		return g.fail("upscale", start, venicebridge.NewPersistenceError("read "+imagePath, err))
	}

	if outputPath == "" {
		ext := filepath.Ext(imagePath)
		stem := strings.TrimSuffix(filepath.Base(imagePath), ext)
		dir := filepath.Dir(imagePath)
		outputPath = filepath.Join(dir, uniqueStem(dir, stem+"_upscaled", ext)+ext)
	}

	g.emit(Event{Type: EventUpscaling, Operation: "upscale", Path: imagePath})
	sha, requestID, err := g.upscaleToFile(ctx, base, opts, outputPath)
	if err != nil {
		return g.fail("upscale", start, err)
	}

	result := &venicebridge.ImageResult{
		Success:   true,
		Path:      outputPath,
		SHA256:    sha,
		RequestID: requestID,
		Metadata: map[string]any{
			"mode":         "upscale",
			"input_path":   imagePath,
			"input_sha256": sha256Hex(base),
			"output_path":  outputPath,
		},
	}

	g.emit(Event{Type: EventDone, Operation: "upscale", Path: outputPath, Duration: g.now().Sub(start)})
	return result
}

// upscaleToFile calls the upscale endpoint and lands the result at path.
// When the transport supports streaming, the body goes to disk directly;
// otherwise it is buffered through decode.Image.
func (g *Generator) upscaleToFile(ctx context.Context, image []byte, opts venicebridge.UpscaleOptions, path string) (sha, requestID string, err error) {
	req := transport.Request{
		Method: http.MethodPost,
		Path:   upscalePath,
		Body:   upscaleBody(image, opts),
	}

	st, ok := g.tp.(streamTransport)
	if !ok {
		raw, err := g.tp.Do(ctx, req)
		if err != nil {
			return "", "", err
		}
		payload, err := decode.Image(raw)
		if err != nil {
			return "", "", err
		}
		if err := writeAtomic(path, payload.Bytes); err != nil {
			return "", "", err
		}
		return sha256Hex(payload.Bytes), raw.RequestID, nil
	}

	raw, body, err := st.Stream(ctx, req)
	if err != nil {
		return "", "", err
	}
	defer body.Close()

	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return "", "", venicebridge.NewPersistenceError("create "+tmp, err)
	}

	hasher := sha256.New()
	_, copyErr := decode.CopyImage(raw.ContentType, body, io.MultiWriter(f, hasher))
	closeErr := f.Close()
	if copyErr != nil {
		os.Remove(tmp)
		return "", "", copyErr
	}
	if closeErr != nil {
		os.Remove(tmp)
		return "", "", venicebridge.NewPersistenceError("close "+tmp, closeErr)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", "", venicebridge.NewPersistenceError("rename into "+path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), raw.RequestID, nil
}

// upscaleBody builds the upscale endpoint request body. Field names
// follow the endpoint's wire contract.
func upscaleBody(image []byte, opts venicebridge.UpscaleOptions) map[string]any {
	body := map[string]any{
		"image":             base64.StdEncoding.EncodeToString(image),
		"scale":             opts.Scale,
		"enhance":           opts.Enhance,
		"enhanceCreativity": opts.Creativity,
		"replication":       opts.Replication,
	}
	if opts.Prompt != "" {
		body["enhancePrompt"] = opts.Prompt
	}
	return body
}

// upscaleBytes calls the upscale endpoint with a base64 payload and
// returns the upscaled image plus the response metadata.
func (g *Generator) upscaleBytes(ctx context.Context, image []byte, opts venicebridge.UpscaleOptions) ([]byte, map[string]any, error) {
	raw, err := g.tp.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   upscalePath,
		Body:   upscaleBody(image, opts),
	})
	if err != nil {
		return nil, nil, err
	}

	payload, err := decode.Image(raw)
	if err != nil {
		return nil, nil, err
	}

	meta := payload.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	if raw.RequestID != "" {
		meta["request_id"] = raw.RequestID
	}
	return payload.Bytes, meta, nil
}

// fail emits a failure event and returns a failed result. The error
// message is redacted before it reaches the event channel.
func (g *Generator) fail(op string, start time.Time, err error) *venicebridge.ImageResult {
	g.emit(Event{
		Type:      EventFailed,
		Operation: op,
		Duration:  g.now().Sub(start),
		Error:     redactedError(err),
	})
	return &venicebridge.ImageResult{Err: err}
}

func (g *Generator) emit(ev Event) {
	emit(g.events, ev)
}

func seedValue(seed *int64) any {
	if seed == nil {
		return nil
	}
	return *seed
}

// redactedError wraps an error so its rendered message passes through the
// redactor. Diagnostic sinks see the wrapper, callers unwrap the original.
func redactedError(err error) error {
	if err == nil {
		return nil
	}
	return &scrubbedError{err: err}
}

type scrubbedError struct{ err error }

func (e *scrubbedError) Error() string { return redact.Redact(e.err.Error()) }
func (e *scrubbedError) Unwrap() error { return e.err }
