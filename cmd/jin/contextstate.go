package main

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dabstractor/jin/internal/atomicio"
	"github.com/dabstractor/jin/internal/jinerr"
	"github.com/dabstractor/jin/internal/layer"
)

func emptyContext() layer.Context {
	return layer.Context{SchemaVersion: 1}
}

// loadContext reads the persisted ProjectContext at path, returning
// emptyContext() (no mode/scope/project active) if the file doesn't exist yet.
func loadContext(path string) (layer.Context, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return emptyContext(), nil
	}
	if err != nil {
		return layer.Context{}, jinerr.New(jinerr.IoError, err)
	}
	var ctx layer.Context
	if err := yaml.Unmarshal(data, &ctx); err != nil {
		return layer.Context{}, jinerr.New(jinerr.ParseError, err).WithPath(path)
	}
	return ctx, nil
}

// saveContext persists ctx to path via write-temp-then-rename, stamping
// LastUpdated.
func saveContext(path string, ctx layer.Context) error {
	ctx.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	data, err := yaml.Marshal(ctx)
	if err != nil {
		return jinerr.New(jinerr.IoError, err)
	}
	return atomicio.WriteFile(path, data, 0o644)
}
