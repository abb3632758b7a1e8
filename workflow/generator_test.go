package workflow

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fayeblade1488/venicebridge"
	"github.com/Fayeblade1488/venicebridge/transport"
)

// mockTransport scripts responses per call and counts invocations.
type mockTransport struct {
	calls   int
	paths   []string
	handler func(call int, req transport.Request) (*transport.RawResponse, error)
}

func (m *mockTransport) Do(ctx context.Context, req transport.Request) (*transport.RawResponse, error) {
	m.calls++
	m.paths = append(m.paths, req.Path)
	return m.handler(m.calls, req)
}

func (m *mockTransport) Provider() venicebridge.ProviderConfig {
	return venicebridge.Venice("vk-test-key")
}

func binaryResponse(body []byte) *transport.RawResponse {
	return &transport.RawResponse{
		StatusCode:  http.StatusOK,
		ContentType: "image/png",
		Body:        body,
		RequestID:   "req-123",
	}
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 32), G: uint8(y * 32), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestGenerateValidationShortCircuits(t *testing.T) {
	tp := &mockTransport{}
	gen := NewGenerator(tp)

	req := venicebridge.NewGenerationRequest("a castle", venicebridge.WithSteps(0))
	res := gen.Generate(context.Background(), req)

	require.False(t, res.Success)
	require.Error(t, res.Err)
	assert.True(t, venicebridge.IsValidation(res.Err))
	assert.Equal(t, "steps", venicebridge.FieldOf(res.Err))
	assert.Equal(t, 0, tp.calls, "invalid request must not reach the transport")
}

func TestGenerateBinarySuccess(t *testing.T) {
	imageBytes := []byte("not-really-a-png-but-binary")
	tp := &mockTransport{handler: func(call int, req transport.Request) (*transport.RawResponse, error) {
		return binaryResponse(imageBytes), nil
	}}
	gen := NewGenerator(tp)

	dir := t.TempDir()
	req := venicebridge.NewGenerationRequest("a misty castle at dawn",
		venicebridge.WithOutputDir(dir),
		venicebridge.WithSeed(42),
	)
	res := gen.Generate(context.Background(), req)

	require.NoError(t, res.Err)
	require.True(t, res.Success)
	assert.Equal(t, "req-123", res.RequestID)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, imageBytes, data)
	assert.Contains(t, filepath.Base(res.Path), "s42")
	assert.True(t, strings.HasSuffix(res.Path, ".png"))

	metaData, err := os.ReadFile(res.MetadataPath)
	require.NoError(t, err)
	var meta map[string]any
	require.NoError(t, json.Unmarshal(metaData, &meta))
	assert.Equal(t, "generate", meta["mode"])
	assert.Equal(t, res.SHA256, meta["output_sha256"])

	// No stray temp file left behind.
	parts, err := filepath.Glob(filepath.Join(dir, "*.part"))
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestGenerateDecodesEmbeddedBase64(t *testing.T) {
	imageBytes := []byte("embedded-image-bytes")
	body, err := json.Marshal(map[string]any{
		"images": []string{base64.StdEncoding.EncodeToString(imageBytes)},
		"timing": map[string]any{"total": 1.2},
	})
	require.NoError(t, err)

	tp := &mockTransport{handler: func(call int, req transport.Request) (*transport.RawResponse, error) {
		return &transport.RawResponse{
			StatusCode:  http.StatusOK,
			ContentType: "application/json",
			Body:        body,
		}, nil
	}}
	gen := NewGenerator(tp)

	req := venicebridge.NewGenerationRequest("a fox", venicebridge.WithOutputDir(t.TempDir()))
	res := gen.Generate(context.Background(), req)

	require.NoError(t, res.Err)
	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, imageBytes, data)
}

func TestGenerateBodyUsesProviderDefaultModel(t *testing.T) {
	var captured map[string]any
	tp := &mockTransport{handler: func(call int, req transport.Request) (*transport.RawResponse, error) {
		captured = req.Body.(map[string]any)
		return binaryResponse([]byte("img")), nil
	}}
	gen := NewGenerator(tp)

	req := venicebridge.NewGenerationRequest("a fox", venicebridge.WithOutputDir(t.TempDir()))
	res := gen.Generate(context.Background(), req)
	require.NoError(t, res.Err)

	assert.Equal(t, "flux-dev-uncensored", captured["model"])
	assert.Equal(t, 768, captured["width"])
	assert.Equal(t, 1024, captured["height"])
	assert.Equal(t, 30, captured["steps"])
	assert.Equal(t, 5.0, captured["cfg_scale"])
	assert.Equal(t, true, captured["hide_watermark"])
	assert.Equal(t, false, captured["safe_mode"])
	_, hasSeed := captured["seed"]
	assert.False(t, hasSeed)
}

func TestGenerateTransportFailure(t *testing.T) {
	tp := &mockTransport{handler: func(call int, req transport.Request) (*transport.RawResponse, error) {
		return nil, venicebridge.NewTransportError("upstream unavailable", http.StatusServiceUnavailable, nil)
	}}
	gen := NewGenerator(tp)

	req := venicebridge.NewGenerationRequest("a fox", venicebridge.WithOutputDir(t.TempDir()))
	res := gen.Generate(context.Background(), req)

	require.False(t, res.Success)
	assert.True(t, venicebridge.IsTransport(res.Err))
	assert.Empty(t, res.Path)
}

func TestGenerateCollisionAppendsSuffix(t *testing.T) {
	tp := &mockTransport{handler: func(call int, req transport.Request) (*transport.RawResponse, error) {
		return binaryResponse([]byte(fmt.Sprintf("image-%d", call))), nil
	}}
	gen := NewGenerator(tp)
	gen.now = func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) }

	dir := t.TempDir()
	req := venicebridge.NewGenerationRequest("a fox",
		venicebridge.WithOutputDir(dir),
		venicebridge.WithSeed(7),
	)

	first := gen.Generate(context.Background(), req)
	require.NoError(t, first.Err)
	second := gen.Generate(context.Background(), req)
	require.NoError(t, second.Err)

	assert.NotEqual(t, first.Path, second.Path)
	assert.True(t, strings.HasSuffix(second.Path, "_2.png"), "got %s", second.Path)

	data, err := os.ReadFile(first.Path)
	require.NoError(t, err)
	assert.Equal(t, []byte("image-1"), data, "first output must not be overwritten")
}

func TestAutoUpscaleSuccess(t *testing.T) {
	tp := &mockTransport{handler: func(call int, req transport.Request) (*transport.RawResponse, error) {
		if call == 1 {
			return binaryResponse([]byte("base-image")), nil
		}
		body := req.Body.(map[string]any)
		assert.Equal(t, 4, body["scale"])
		assert.Equal(t, true, body["enhance"])
		assert.Equal(t, 0.15, body["enhanceCreativity"])
		assert.Equal(t, 0.35, body["replication"])
		return binaryResponse([]byte("upscaled-image")), nil
	}}
	gen := NewGenerator(tp)

	dir := t.TempDir()
	req := venicebridge.NewGenerationRequest("a fox",
		venicebridge.WithOutputDir(dir),
		venicebridge.WithAutoUpscale(true),
	)
	res := gen.Generate(context.Background(), req)

	require.NoError(t, res.Err)
	require.True(t, res.Success)
	require.NoError(t, res.UpscaleErr)
	assert.Equal(t, 2, tp.calls)
	assert.Equal(t, []string{"/image/generate", "/image/upscale"}, tp.paths)

	assert.Equal(t, filepath.Join(dir, "upscaled"), filepath.Dir(res.UpscaledPath))
	data, err := os.ReadFile(res.UpscaledPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("upscaled-image"), data)
	assert.NotEmpty(t, res.UpscaledSHA256)
	assert.FileExists(t, res.UpscaledMetadataPath)
}

func TestAutoUpscaleFailureIsPartialSuccess(t *testing.T) {
	tp := &mockTransport{handler: func(call int, req transport.Request) (*transport.RawResponse, error) {
		if call == 1 {
			return binaryResponse([]byte("base-image")), nil
		}
		return nil, venicebridge.NewTransportError("upscale backend down", http.StatusBadGateway, nil)
	}}
	gen := NewGenerator(tp)

	req := venicebridge.NewGenerationRequest("a fox",
		venicebridge.WithOutputDir(t.TempDir()),
		venicebridge.WithAutoUpscale(true),
	)
	res := gen.Generate(context.Background(), req)

	require.NoError(t, res.Err)
	assert.True(t, res.Success, "base image success survives upscale failure")
	assert.FileExists(t, res.Path)
	require.Error(t, res.UpscaleErr)
	assert.True(t, venicebridge.IsTransport(res.UpscaleErr))
	assert.Empty(t, res.UpscaledPath)
}

func TestGenerateMetadataIsRedacted(t *testing.T) {
	body, err := json.Marshal(map[string]any{
		"images":  []string{base64.StdEncoding.EncodeToString([]byte("img"))},
		"api_key": "vk-leaked-secret",
	})
	require.NoError(t, err)

	tp := &mockTransport{handler: func(call int, req transport.Request) (*transport.RawResponse, error) {
		return &transport.RawResponse{
			StatusCode:  http.StatusOK,
			ContentType: "application/json",
			Body:        body,
		}, nil
	}}
	gen := NewGenerator(tp)

	req := venicebridge.NewGenerationRequest("a fox", venicebridge.WithOutputDir(t.TempDir()))
	res := gen.Generate(context.Background(), req)
	require.NoError(t, res.Err)

	metaData, err := os.ReadFile(res.MetadataPath)
	require.NoError(t, err)
	assert.NotContains(t, string(metaData), "vk-leaked-secret")
	assert.Contains(t, string(metaData), "[REDACTED]")

	var meta map[string]any
	assert.NoError(t, json.Unmarshal(metaData, &meta), "metadata stays valid JSON after redaction")
}

func TestGenerateThumbnail(t *testing.T) {
	tp := &mockTransport{handler: func(call int, req transport.Request) (*transport.RawResponse, error) {
		return binaryResponse(testPNG(t)), nil
	}}
	gen := NewGenerator(tp)

	req := venicebridge.NewGenerationRequest("a fox",
		venicebridge.WithOutputDir(t.TempDir()),
		venicebridge.WithThumbnail(true),
	)
	res := gen.Generate(context.Background(), req)

	require.NoError(t, res.Err)
	require.NotEmpty(t, res.ThumbnailPath)
	assert.Contains(t, filepath.Base(res.ThumbnailPath), "_thumb")
	assert.FileExists(t, res.ThumbnailPath)
	assert.NoError(t, res.ThumbnailErr)
}

func TestGenerateThumbnailFailureIsRecorded(t *testing.T) {
	tp := &mockTransport{handler: func(call int, req transport.Request) (*transport.RawResponse, error) {
		return binaryResponse([]byte("not a decodable image")), nil
	}}
	gen := NewGenerator(tp)

	req := venicebridge.NewGenerationRequest("a fox",
		venicebridge.WithOutputDir(t.TempDir()),
		venicebridge.WithThumbnail(true),
	)
	res := gen.Generate(context.Background(), req)

	require.NoError(t, res.Err)
	assert.True(t, res.Success)
	assert.FileExists(t, res.Path)
	assert.Empty(t, res.ThumbnailPath)
	require.Error(t, res.ThumbnailErr)
	assert.True(t, venicebridge.IsDecode(res.ThumbnailErr))
}

func TestGenerateEvents(t *testing.T) {
	tp := &mockTransport{handler: func(call int, req transport.Request) (*transport.RawResponse, error) {
		return binaryResponse([]byte("img")), nil
	}}
	events := make(chan Event, 16)
	gen := NewGenerator(tp, WithEvents(events))

	req := venicebridge.NewGenerationRequest("a fox", venicebridge.WithOutputDir(t.TempDir()))
	res := gen.Generate(context.Background(), req)
	require.NoError(t, res.Err)
	close(events)

	var types []EventType
	for ev := range events {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []EventType{EventValidating, EventRequesting, EventDecoding, EventPersisting, EventDone}, types)
}

func TestUpscaleStandalone(t *testing.T) {
	tp := &mockTransport{handler: func(call int, req transport.Request) (*transport.RawResponse, error) {
		body := req.Body.(map[string]any)
		decoded, err := base64.StdEncoding.DecodeString(body["image"].(string))
		require.NoError(t, err)
		assert.Equal(t, []byte("original"), decoded)
		return binaryResponse([]byte("bigger")), nil
	}}
	gen := NewGenerator(tp)

	dir := t.TempDir()
	input := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(input, []byte("original"), 0o644))

	res := gen.Upscale(context.Background(), input, "", venicebridge.DefaultUpscaleOptions())

	require.NoError(t, res.Err)
	require.True(t, res.Success)
	assert.Equal(t, filepath.Join(dir, "photo_upscaled.png"), res.Path)
	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, []byte("bigger"), data)
}

// streamMockTransport adds a scripted Stream method on top of mockTransport.
type streamMockTransport struct {
	mockTransport
	streamCalls int
	streamBody  []byte
	contentType string
}

func (m *streamMockTransport) Stream(ctx context.Context, req transport.Request) (*transport.RawResponse, io.ReadCloser, error) {
	m.streamCalls++
	return &transport.RawResponse{
		StatusCode:  http.StatusOK,
		ContentType: m.contentType,
		RequestID:   "stream-req-1",
	}, io.NopCloser(bytes.NewReader(m.streamBody)), nil
}

func TestUpscalePrefersStreamingTransport(t *testing.T) {
	tp := &streamMockTransport{
		streamBody:  []byte("streamed-upscale"),
		contentType: "image/png",
	}
	gen := NewGenerator(tp)

	dir := t.TempDir()
	input := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(input, []byte("original"), 0o644))

	res := gen.Upscale(context.Background(), input, "", venicebridge.DefaultUpscaleOptions())

	require.NoError(t, res.Err)
	assert.Equal(t, 1, tp.streamCalls)
	assert.Equal(t, 0, tp.calls, "streaming transport bypasses Do")
	assert.Equal(t, "stream-req-1", res.RequestID)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, []byte("streamed-upscale"), data)
	assert.Equal(t, sha256Hex(data), res.SHA256)

	parts, err := filepath.Glob(filepath.Join(dir, "*.part"))
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestUpscaleRejectsBadScale(t *testing.T) {
	tp := &mockTransport{}
	gen := NewGenerator(tp)

	res := gen.Upscale(context.Background(), "whatever.png", "", venicebridge.UpscaleOptions{Scale: 1})

	require.Error(t, res.Err)
	assert.True(t, venicebridge.IsValidation(res.Err))
	assert.Equal(t, "scale", venicebridge.FieldOf(res.Err))
	assert.Equal(t, 0, tp.calls)
}

func TestUpscaleMissingInputFile(t *testing.T) {
	tp := &mockTransport{}
	gen := NewGenerator(tp)

	res := gen.Upscale(context.Background(), filepath.Join(t.TempDir(), "absent.png"), "", venicebridge.DefaultUpscaleOptions())

	require.Error(t, res.Err)
	assert.True(t, venicebridge.IsPersistence(res.Err))
	assert.Equal(t, 0, tp.calls)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "a_misty_castle_at_dawn", slug("A misty castle, at dawn!"))
	assert.Equal(t, "", slug("!!! ..."))
	long := slug(strings.Repeat("wordy ", 20))
	assert.LessOrEqual(t, len(long), maxSlugLen+1)
}
