// Package workflow orchestrates the image generation and chat pipelines:
// validate the request, call the transport, decode the response, persist
// the output, and optionally chain an upscale pass.
//
// A request that fails validation never reaches the transport. An upscale
// failure after a successful base generation is partial success: the
// result keeps the base image paths and records the upscale error
// separately. Progress is observable through a non-blocking event channel.
package workflow
