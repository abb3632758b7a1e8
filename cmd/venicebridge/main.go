// Command venicebridge drives Venice.ai image generation, OpenAI-compatible
// chat providers, and the GitKraken CLI from one argument surface.
//
// Configuration is via environment variables (a .env file is loaded when
// present):
//
//	VENICE_API_KEY - Venice.ai API key (required for generate/upscale/models/verify)
//
// Usage:
//
//	venicebridge generate -prompt "a misty castle at dawn" -upscale
//	venicebridge upscale -in photo.png -scale 4
//	venicebridge models -uncensored
//	venicebridge verify
//	venicebridge chat -provider venice -model venice-uncensored "say hello"
//	venicebridge export-config
//	venicebridge gk ai commit
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Fayeblade1488/venicebridge"
	"github.com/Fayeblade1488/venicebridge/redact"
	"github.com/Fayeblade1488/venicebridge/transport"
)

func main() {
	godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "generate":
		err = runGenerate(ctx, args)
	case "upscale":
		err = runUpscale(ctx, args)
	case "models":
		err = runModels(ctx, args)
	case "verify":
		err = runVerify(ctx, args)
	case "chat":
		err = runChat(ctx, args)
	case "export-config":
		err = runExportConfig(ctx, args)
	case "gk":
		err = runGK(ctx, args)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", redact.Redact(err.Error()))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: venicebridge <command> [flags]

commands:
  generate       generate an image from a prompt
  upscale        upscale an existing image file
  models         list available models
  verify         check the configured API key
  chat           run a chat completion against a registered provider
  export-config  write a Raycast-compatible providers file
  gk             run a GitKraken CLI command

run "venicebridge <command> -h" for command flags
`)
}

// veniceProvider builds the provider configuration from the -api-key
// flag, falling back to the environment.
func veniceProvider(keyFlag string) (venicebridge.ProviderConfig, error) {
	key := keyFlag
	if key == "" {
		key = os.Getenv("VENICE_API_KEY")
	}
	if key == "" {
		return venicebridge.ProviderConfig{}, fmt.Errorf("no API key: set VENICE_API_KEY or pass -api-key")
	}
	return venicebridge.Venice(key), nil
}

// veniceTransport builds a transport client, optionally echoing request
// events to stderr.
func veniceTransport(apiKey string, verbose bool) (*transport.Client, func(), error) {
	cfg, err := veniceProvider(apiKey)
	if err != nil {
		return nil, nil, err
	}

	var opts []transport.Option
	done := func() {}
	if verbose {
		events := make(chan transport.Event, 64)
		finished := make(chan struct{})
		go func() {
			defer close(finished)
			for ev := range events {
				switch ev.Type {
				case transport.EventRequestStart:
					fmt.Fprintf(os.Stderr, "[%s] %s %s\n", ev.Type, ev.Method, redact.Redact(ev.URL))
				case transport.EventRetry:
					fmt.Fprintf(os.Stderr, "[%s] %s\n", ev.Type, ev.Method)
				case transport.EventRequestError:
					fmt.Fprintf(os.Stderr, "[%s] %v\n", ev.Type, redact.Redact(fmt.Sprint(ev.Error)))
				default:
					fmt.Fprintf(os.Stderr, "[%s] status=%d attempts=%d in %s\n", ev.Type, ev.StatusCode, ev.Attempts, ev.Duration)
				}
			}
		}()
		opts = append(opts, transport.WithEvents(events))
		done = func() {
			close(events)
			<-finished
		}
	}

	client, err := transport.NewClient(cfg, opts...)
	if err != nil {
		done()
		return nil, nil, err
	}
	return client, done, nil
}

// printJSON writes v as indented JSON, redacted.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(redact.Redact(string(data)))
	return nil
}
