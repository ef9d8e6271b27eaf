/*
Package storewizard is a guided multi-step creation engine for store entities
such as digital products and services.

A wizard is described by a blueprint: an ordered list of steps with local
field rules and remote uniqueness checks, draft defaults, and a submission
plan that creates one primary record followed by dependent records. The engine
gates navigation on validation, autosaves the draft after a quiet period,
merges starter templates without overwriting user input, and reports the
outcome of every submission step.

# Architecture

The engine follows a hexagonal layout. The core packages (registry,
validation, autosave, templates, submission and the internal controller) only
talk to the outside world through the interfaces in pkg/ports. Adapters for
those ports live under pkg/adapters: in-memory, file, Redis, Loam, HTTP and MCP.

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/storewizard"
		"github.com/aretw0/storewizard/pkg/adapters/memory"
		"github.com/aretw0/storewizard/pkg/blueprint"
	)

	func main() {
		ctx := context.Background()
		engine, err := storewizard.New(blueprint.DigitalProduct(), memory.NewPersistence(),
			storewizard.WithRemoteValidator(memory.NewValidator()),
		)
		if err != nil {
			log.Fatal(err)
		}

		wizard, err := engine.Start(ctx, "session-1")
		if err != nil {
			log.Fatal(err)
		}
		defer wizard.Close()

		_ = wizard.UpdateDraft(map[string]any{"name": "Go in Practice", "slug": "go-in-practice"})
		if ok, err := wizard.GoNext(ctx); err != nil || !ok {
			log.Printf("step blocked: %v", wizard.Errors())
		}
	}

# Sessions

Servers hosting many wizards use Engine.Sessions, which returns a
session.Manager that serialises access per session key, locally and
optionally across replicas through a distributed lock.
*/
package storewizard
