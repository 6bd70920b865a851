/*
Package reel renders programmatically defined compositions frame by frame in headless
browser sessions and assembles the captured frames into an artifact.

A render has exactly one outcome: Succeeded, Cancelled or Failed. Cancellation is
cooperative through a cancel.Token, exceptions thrown inside the page are surfaced as
symbolicated errors tagged with the frame being produced, and the first terminal
condition wins.

# Packages

  - pkg/render: the orchestrator (Render, Start, Job).
  - pkg/cancel: cancellation tokens and OS signal forwarding.
  - pkg/bridge: asynchronous page exceptions to structured errors.
  - pkg/symbolicate: source map resolution of stack frames.
  - pkg/adapters: chrome sessions, frame and process assemblers, redis and memory
    record stores, the HTTP API.

# Usage

	provider := chrome.NewProvider(chrome.Config{Headless: true})
	defer provider.Close()

	orch := render.New(provider, frames.NewSequence("png"))
	out := orch.Render(ctx, render.Request{
		Composition: domain.Composition{ID: "intro", Width: 1920, Height: 1080, FPS: 30, DurationInFrames: 90},
		ServeURL:    "http://localhost:3000",
		Output:      "out/intro",
	})
	if out.Kind == domain.OutcomeFailed {
		log.Fatal(out.Err)
	}

The reel command wraps the same wiring behind a configuration file: see cmd/reel.
*/
package reel
