package redact

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "vk-1a2b3c4d5e6f7g8h"

func TestRedactJSON(t *testing.T) {
	in := `{"model":"flux-dev","api_key":"` + secret + `","steps":30}`
	out := Redact(in)

	assert.NotContains(t, out, secret)
	assert.Contains(t, out, `"api_key":"[REDACTED]"`)

	// Still valid JSON after redaction.
	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, "flux-dev", parsed["model"])
	assert.Equal(t, float64(30), parsed["steps"])
}

func TestRedactYAML(t *testing.T) {
	in := "base_url: https://api.venice.ai/api/v1\napi_key: " + secret + "\nmodel: venice-uncensored\n"
	out := Redact(in)

	assert.NotContains(t, out, secret)
	assert.Contains(t, out, "api_key: [REDACTED]")
	assert.Contains(t, out, "base_url: https://api.venice.ai/api/v1")
}

func TestRedactYAMLQuotedValue(t *testing.T) {
	in := `token: "` + secret + `"`
	out := Redact(in)

	assert.NotContains(t, out, secret)
	assert.Equal(t, `token: "[REDACTED]"`, out)
}

func TestRedactBearerHeader(t *testing.T) {
	in := "Authorization: Bearer " + secret
	out := Redact(in)

	assert.NotContains(t, out, secret)
	assert.Equal(t, "Authorization: Bearer [REDACTED]", out)
}

func TestRedactQueryString(t *testing.T) {
	in := "GET https://example.com/v1/models?api_key=" + secret + "&page=2"
	out := Redact(in)

	assert.NotContains(t, out, secret)
	assert.Contains(t, out, "api_key=[REDACTED]")
	assert.Contains(t, out, "page=2")
}

func TestRedactCaseInsensitive(t *testing.T) {
	for _, in := range []string{
		"API_KEY=" + secret,
		"Api-Key: " + secret,
		"AUTHORIZATION: BEARER " + secret,
		`"Token": "` + secret + `"`,
		"password=" + secret,
	} {
		out := Redact(in)
		assert.NotContains(t, out, secret, "input: %s", in)
	}
}

func TestRedactIdempotent(t *testing.T) {
	inputs := []string{
		`{"api_key":"` + secret + `"}`,
		"Authorization: Bearer " + secret,
		"secret: " + secret,
		"no credentials here",
	}
	for _, in := range inputs {
		once := Redact(in)
		twice := Redact(once)
		assert.Equal(t, once, twice, "input: %s", in)
	}
}

func TestRedactLeavesPlainTextAlone(t *testing.T) {
	in := "generated 42 images with model flux-dev-uncensored"
	assert.Equal(t, in, Redact(in))
}

func TestHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+secret)
	h.Set("X-Api-Key", secret)
	h.Set("Content-Type", "application/json")
	h.Set("X-Debug", "api_key="+secret)

	out := Headers(h)

	assert.Equal(t, []string{Placeholder}, out["Authorization"])
	assert.Equal(t, []string{Placeholder}, out["X-Api-Key"])
	assert.Equal(t, "application/json", out.Get("Content-Type"))
	assert.NotContains(t, out.Get("X-Debug"), secret)

	// Original headers untouched.
	assert.Contains(t, h.Get("Authorization"), secret)
}
