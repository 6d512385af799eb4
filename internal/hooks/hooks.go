// Package hooks runs an optional executable in .jin/hooks/ after a
// lifecycle event succeeds (§ ambient stack "Hooks"): post-commit after
// internal/commitpipeline, post-apply after internal/workspace.
package hooks

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dabstractor/jin/internal/layer"
)

// Event types
const (
	EventPostCommit = "post-commit"
	EventPostApply  = "post-apply"
)

// Hook file names
const (
	HookPostCommit = "post-commit"
	HookPostApply  = "post-apply"
)

// Payload is the JSON document piped to a hook's stdin, describing the
// lifecycle event that triggered it.
type Payload struct {
	Operation string        `json:"operation"`
	Event     string        `json:"event"`
	Actor     string        `json:"actor,omitempty"`
	Layers    []layer.Layer `json:"layers,omitempty"`
	Paths     []string      `json:"paths,omitempty"`
	CommitOID string        `json:"commit_oid,omitempty"`
}

// Runner handles hook execution.
type Runner struct {
	hooksDir string
	timeout  time.Duration
}

// NewRunner creates a new hook runner. hooksDir is typically
// project.Paths.HooksDir.
func NewRunner(hooksDir string) *Runner {
	return &Runner{
		hooksDir: hooksDir,
		timeout:  10 * time.Second,
	}
}

// NewRunnerFromWorkspace creates a hook runner for a workspace rooted at
// workspaceRoot, using the fixed .jin/hooks layout.
func NewRunnerFromWorkspace(workspaceRoot string) *Runner {
	return NewRunner(filepath.Join(workspaceRoot, ".jin", "hooks"))
}

// Run executes a hook if it exists. Runs asynchronously: returns
// immediately, the hook runs in the background, fire-and-forget.
func (r *Runner) Run(event string, payload Payload) {
	hookName := eventToHook(event)
	if hookName == "" {
		return
	}

	hookPath := filepath.Join(r.hooksDir, hookName)

	info, err := os.Stat(hookPath)
	if err != nil || info.IsDir() {
		return // hook doesn't exist, skip silently
	}
	if info.Mode()&0111 == 0 {
		return // not executable, skip
	}

	go func() {
		_ = r.runHook(hookPath, event, payload)
	}()
}

// RunSync executes a hook synchronously and returns any error. Useful for
// tests or callers that need to wait for the hook.
func (r *Runner) RunSync(event string, payload Payload) error {
	hookName := eventToHook(event)
	if hookName == "" {
		return nil
	}

	hookPath := filepath.Join(r.hooksDir, hookName)

	info, err := os.Stat(hookPath)
	if err != nil || info.IsDir() {
		return nil
	}
	if info.Mode()&0111 == 0 {
		return nil
	}

	return r.runHook(hookPath, event, payload)
}

// HookExists reports whether an executable hook is installed for event.
func (r *Runner) HookExists(event string) bool {
	hookName := eventToHook(event)
	if hookName == "" {
		return false
	}

	hookPath := filepath.Join(r.hooksDir, hookName)
	info, err := os.Stat(hookPath)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0111 != 0
}

func eventToHook(event string) string {
	switch event {
	case EventPostCommit:
		return HookPostCommit
	case EventPostApply:
		return HookPostApply
	default:
		return ""
	}
}
