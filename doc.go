// Package venicebridge provides a resilient client core for driving
// Venice.ai image generation and OpenAI-compatible chat providers from a
// command-line front end.
//
// The root package defines the shared data model and error taxonomy.
// The work happens in the subpackages:
//
//   - [github.com/Fayeblade1488/venicebridge/transport]: authenticated HTTP
//     execution with dual timeouts, retry, and redacted diagnostics
//   - [github.com/Fayeblade1488/venicebridge/decode]: response normalization
//     (raw binary, base64-embedded JSON, or chat completion JSON)
//   - [github.com/Fayeblade1488/venicebridge/catalog]: cached model listing
//     and capability classification
//   - [github.com/Fayeblade1488/venicebridge/registry]: externally configured
//     chat providers loaded from YAML
//   - [github.com/Fayeblade1488/venicebridge/workflow]: one-shot generation,
//     upscale, and chat orchestration with atomic persistence
//   - [github.com/Fayeblade1488/venicebridge/gitkraken]: thin wrapper around
//     the GitKraken CLI binary
//
// # Basic Usage
//
// Generate an image and write it (plus a sidecar metadata file) to disk:
//
//	cfg := venicebridge.Venice(os.Getenv("VENICE_API_KEY"))
//	tp, err := transport.NewClient(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	gen := workflow.NewGenerator(tp)
//	res := gen.Generate(ctx, venicebridge.NewGenerationRequest("a red fox in the snow",
//	    venicebridge.WithAspectRatio(venicebridge.AspectTall),
//	    venicebridge.WithAutoUpscale(true),
//	))
//	if !res.Success {
//	    log.Fatal(res.Err)
//	}
//	fmt.Println(res.Path)
//
// # Errors
//
// Every failure carries both a machine-checkable kind (validation,
// transport, decode, provider, persistence) and a retry category
// (transient, permanent, user input). Secret material is scrubbed from
// error text before it is surfaced; see
// [github.com/Fayeblade1488/venicebridge/redact].
package venicebridge
