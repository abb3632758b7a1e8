// Package decode normalizes provider responses into image bytes or chat
// payloads. A response whose shape is not recognized yields a decode
// error, never a crash or a silently empty result.
package decode

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/Fayeblade1488/venicebridge"
	"github.com/Fayeblade1488/venicebridge/transport"
)

// ImagePayload is a decoded image response.
type ImagePayload struct {
	// Bytes is the raw image data.
	Bytes []byte

	// Meta carries the non-image fields of a JSON response, or a minimal
	// description for binary responses.
	Meta map[string]any
}

// Image decodes an image generation or upscale response. Binary content
// types (image/*) are taken as the payload directly; application/json is
// searched for an embedded base64 image under "images" or "image".
func Image(raw *transport.RawResponse) (*ImagePayload, error) {
	if isBinaryImage(raw.ContentType) {
		if len(raw.Body) == 0 {
			return nil, venicebridge.NewDecodeError("binary image response with empty body", nil)
		}
		return &ImagePayload{
			Bytes: raw.Body,
			Meta:  map[string]any{"binary": true, "content_type": raw.ContentType},
		}, nil
	}

	if !isJSON(raw.ContentType) {
		return nil, venicebridge.NewDecodeError(
			fmt.Sprintf("unsupported content type %q for image response", raw.ContentType), nil)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw.Body, &payload); err != nil {
		return nil, venicebridge.NewDecodeError("image response is not valid JSON", err)
	}

	encoded, ok := embeddedImage(payload)
	if !ok {
		return nil, venicebridge.NewDecodeError("no image data found in response JSON", nil)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, venicebridge.NewDecodeError("embedded image is not valid base64", err)
	}
	if len(data) == 0 {
		return nil, venicebridge.NewDecodeError("embedded image decoded to zero bytes", nil)
	}

	// Drop the bulky base64 fields from the metadata copy.
	meta := make(map[string]any, len(payload))
	for k, v := range payload {
		if k == "images" || k == "image" {
			continue
		}
		meta[k] = v
	}

	return &ImagePayload{Bytes: data, Meta: meta}, nil
}

// CopyImage streams a response body into w without materializing a second
// copy of the image. Binary bodies are copied directly; JSON bodies are
// buffered once and their base64 payload is decoded on the fly.
// Returns the number of image bytes written.
func CopyImage(contentType string, body io.Reader, w io.Writer) (int64, error) {
	if isBinaryImage(contentType) {
		n, err := io.Copy(w, body)
		if err != nil {
			return n, venicebridge.NewDecodeError("copy binary image body", err)
		}
		if n == 0 {
			return 0, venicebridge.NewDecodeError("binary image response with empty body", nil)
		}
		return n, nil
	}

	if !isJSON(contentType) {
		return 0, venicebridge.NewDecodeError(
			fmt.Sprintf("unsupported content type %q for image response", contentType), nil)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return 0, venicebridge.NewDecodeError("read image response body", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return 0, venicebridge.NewDecodeError("image response is not valid JSON", err)
	}
	encoded, ok := embeddedImage(payload)
	if !ok {
		return 0, venicebridge.NewDecodeError("no image data found in response JSON", nil)
	}

	n, err := io.Copy(w, base64.NewDecoder(base64.StdEncoding, strings.NewReader(encoded)))
	if err != nil {
		return n, venicebridge.NewDecodeError("embedded image is not valid base64", err)
	}
	if n == 0 {
		return 0, venicebridge.NewDecodeError("embedded image decoded to zero bytes", nil)
	}
	return n, nil
}

// ChatPayload is a decoded chat completion response.
type ChatPayload struct {
	Text         string
	FinishReason string
	Usage        *venicebridge.Usage
}

// chatCompletion is the OpenAI-compatible completion shape.
type chatCompletion struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Chat decodes an OpenAI-compatible chat completion response.
func Chat(raw *transport.RawResponse) (*ChatPayload, error) {
	if !isJSON(raw.ContentType) {
		return nil, venicebridge.NewDecodeError(
			fmt.Sprintf("unsupported content type %q for chat response", raw.ContentType), nil)
	}

	var completion chatCompletion
	if err := json.Unmarshal(raw.Body, &completion); err != nil {
		return nil, venicebridge.NewDecodeError("chat response is not valid JSON", err)
	}
	if len(completion.Choices) == 0 {
		return nil, venicebridge.NewDecodeError("chat response has no choices", nil)
	}

	choice := completion.Choices[0]
	if choice.Message.Content == "" {
		return nil, venicebridge.NewDecodeError("chat response has no message content", nil)
	}

	payload := &ChatPayload{
		Text:         choice.Message.Content,
		FinishReason: choice.FinishReason,
	}
	if completion.Usage != nil {
		payload.Usage = &venicebridge.Usage{
			InputTokens:  completion.Usage.PromptTokens,
			OutputTokens: completion.Usage.CompletionTokens,
			TotalTokens:  completion.Usage.TotalTokens,
		}
	}
	return payload, nil
}

// embeddedImage finds a base64 image in a JSON payload: "images" first
// (list of strings, first entry wins), then the singular "image".
func embeddedImage(payload map[string]any) (string, bool) {
	if list, ok := payload["images"].([]any); ok {
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				return s, true
			}
		}
	}
	if s, ok := payload["image"].(string); ok && s != "" {
		return s, true
	}
	return "", false
}

func isBinaryImage(contentType string) bool {
	return strings.HasPrefix(mediaType(contentType), "image/")
}

func isJSON(contentType string) bool {
	return mediaType(contentType) == "application/json"
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return contentType
	}
	return mt
}
