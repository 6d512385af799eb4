package hooks

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dabstractor/jin/internal/layer"
)

func TestNewRunner(t *testing.T) {
	runner := NewRunner("/tmp/hooks")
	if runner == nil {
		t.Fatal("NewRunner returned nil")
	}
	if runner.hooksDir != "/tmp/hooks" {
		t.Errorf("hooksDir = %q, want %q", runner.hooksDir, "/tmp/hooks")
	}
	if runner.timeout != 10*time.Second {
		t.Errorf("timeout = %v, want %v", runner.timeout, 10*time.Second)
	}
}

func TestNewRunnerFromWorkspace(t *testing.T) {
	runner := NewRunnerFromWorkspace("/workspace")
	if runner == nil {
		t.Fatal("NewRunnerFromWorkspace returned nil")
	}
	expected := filepath.Join("/workspace", ".jin", "hooks")
	if runner.hooksDir != expected {
		t.Errorf("hooksDir = %q, want %q", runner.hooksDir, expected)
	}
}

func TestEventToHook(t *testing.T) {
	tests := []struct {
		event    string
		expected string
	}{
		{EventPostCommit, HookPostCommit},
		{EventPostApply, HookPostApply},
		{"unknown", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			result := eventToHook(tt.event)
			if result != tt.expected {
				t.Errorf("eventToHook(%q) = %q, want %q", tt.event, result, tt.expected)
			}
		})
	}
}

func TestHookExists_NoHook(t *testing.T) {
	tmpDir := t.TempDir()
	runner := NewRunner(tmpDir)

	if runner.HookExists(EventPostCommit) {
		t.Error("HookExists returned true for non-existent hook")
	}
}

func TestHookExists_NotExecutable(t *testing.T) {
	tmpDir := t.TempDir()
	hookPath := filepath.Join(tmpDir, HookPostCommit)

	if err := os.WriteFile(hookPath, []byte("#!/bin/sh\necho test"), 0644); err != nil {
		t.Fatalf("Failed to create hook file: %v", err)
	}

	runner := NewRunner(tmpDir)

	if runner.HookExists(EventPostCommit) {
		t.Error("HookExists returned true for non-executable hook")
	}
}

func TestHookExists_Executable(t *testing.T) {
	tmpDir := t.TempDir()
	hookPath := filepath.Join(tmpDir, HookPostCommit)

	if err := os.WriteFile(hookPath, []byte("#!/bin/sh\necho test"), 0755); err != nil {
		t.Fatalf("Failed to create hook file: %v", err)
	}

	runner := NewRunner(tmpDir)

	if !runner.HookExists(EventPostCommit) {
		t.Error("HookExists returned false for executable hook")
	}
}

func TestHookExists_Directory(t *testing.T) {
	tmpDir := t.TempDir()
	hookPath := filepath.Join(tmpDir, HookPostCommit)

	if err := os.MkdirAll(hookPath, 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	runner := NewRunner(tmpDir)

	if runner.HookExists(EventPostCommit) {
		t.Error("HookExists returned true for directory")
	}
}

func TestRunSync_NoHook(t *testing.T) {
	tmpDir := t.TempDir()
	runner := NewRunner(tmpDir)

	payload := Payload{Operation: "jin commit", Layers: []layer.Layer{layer.GlobalBase}}

	err := runner.RunSync(EventPostCommit, payload)
	if err != nil {
		t.Errorf("RunSync returned error for non-existent hook: %v", err)
	}
}

func TestRunSync_NotExecutable(t *testing.T) {
	tmpDir := t.TempDir()
	hookPath := filepath.Join(tmpDir, HookPostCommit)

	if err := os.WriteFile(hookPath, []byte("#!/bin/sh\necho test"), 0644); err != nil {
		t.Fatalf("Failed to create hook file: %v", err)
	}

	runner := NewRunner(tmpDir)
	payload := Payload{Operation: "jin commit"}

	err := runner.RunSync(EventPostCommit, payload)
	if err != nil {
		t.Errorf("RunSync returned error for non-executable hook: %v", err)
	}
}

func TestRunSync_Success(t *testing.T) {
	tmpDir := t.TempDir()
	hookPath := filepath.Join(tmpDir, HookPostCommit)
	outputFile := filepath.Join(tmpDir, "output.txt")

	hookScript := `#!/bin/sh
echo "$1 $2" > ` + outputFile
	if err := os.WriteFile(hookPath, []byte(hookScript), 0755); err != nil {
		t.Fatalf("Failed to create hook file: %v", err)
	}

	runner := NewRunner(tmpDir)
	payload := Payload{Operation: "jin-commit"}

	err := runner.RunSync(EventPostCommit, payload)
	if err != nil {
		t.Errorf("RunSync returned error: %v", err)
	}

	output, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatalf("Failed to read output file: %v", err)
	}

	expected := "jin-commit post-commit\n"
	if string(output) != expected {
		t.Errorf("Hook output = %q, want %q", string(output), expected)
	}
}

func TestRunSync_ReceivesJSON(t *testing.T) {
	tmpDir := t.TempDir()
	hookPath := filepath.Join(tmpDir, HookPostCommit)
	outputFile := filepath.Join(tmpDir, "stdin.txt")

	hookScript := `#!/bin/sh
cat > ` + outputFile
	if err := os.WriteFile(hookPath, []byte(hookScript), 0755); err != nil {
		t.Fatalf("Failed to create hook file: %v", err)
	}

	runner := NewRunner(tmpDir)
	payload := Payload{
		Operation: "jin-commit",
		Layers:    []layer.Layer{layer.GlobalBase},
		Paths:     []string{"config.yaml"},
	}

	err := runner.RunSync(EventPostCommit, payload)
	if err != nil {
		t.Errorf("RunSync returned error: %v", err)
	}

	output, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatalf("Failed to read output file: %v", err)
	}

	if len(output) == 0 {
		t.Error("Hook did not receive JSON input")
	}
	if string(output) == "" || output[0] != '{' {
		t.Errorf("Hook input doesn't look like JSON: %s", string(output))
	}
}

func TestRunSync_Timeout(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping timeout test in short mode")
	}

	tmpDir := t.TempDir()
	hookPath := filepath.Join(tmpDir, HookPostCommit)

	hookScript := `#!/bin/sh
sleep 60`
	if err := os.WriteFile(hookPath, []byte(hookScript), 0755); err != nil {
		t.Fatalf("Failed to create hook file: %v", err)
	}

	runner := &Runner{
		hooksDir: tmpDir,
		timeout:  500 * time.Millisecond,
	}
	payload := Payload{Operation: "jin-commit"}

	start := time.Now()
	err := runner.RunSync(EventPostCommit, payload)
	elapsed := time.Since(start)

	if err == nil {
		t.Error("RunSync should have returned error for timeout")
	}
	if elapsed > 5*time.Second {
		t.Errorf("RunSync took too long: %v", elapsed)
	}
}

func TestRunSync_KillsDescendants(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("requires Linux /proc")
	}
	if testing.Short() {
		t.Skip("Skipping long-running descendant kill test in short mode")
	}

	tmpDir := t.TempDir()
	hookPath := filepath.Join(tmpDir, HookPostCommit)
	pidFile := filepath.Join(tmpDir, "child.pid")

	hookScript := `#!/bin/sh
(sleep 60 & echo $! > ` + pidFile + ` ; wait)`
	if err := os.WriteFile(hookPath, []byte(hookScript), 0755); err != nil {
		t.Fatalf("Failed to create hook file: %v", err)
	}

	runner := &Runner{
		hooksDir: tmpDir,
		timeout:  500 * time.Millisecond,
	}
	payload := Payload{Operation: "jin-commit"}

	err := runner.RunSync(EventPostCommit, payload)
	if err == nil {
		t.Fatal("Expected RunSync to return an error on timeout")
	}

	data, err := os.ReadFile(pidFile)
	if err != nil {
		t.Fatalf("Failed to read pid file: %v", err)
	}
	pidStr := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		t.Fatalf("Invalid pid in pid file: %v", err)
	}

	for i := 0; i < 10; i++ {
		if _, err := os.Stat(filepath.Join("/proc", strconv.Itoa(pid))); err != nil {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	t.Fatalf("Child process %d still exists after timeout", pid)
}

func TestRunSync_HookFailure(t *testing.T) {
	tmpDir := t.TempDir()
	hookPath := filepath.Join(tmpDir, HookPostApply)

	hookScript := `#!/bin/sh
exit 1`
	if err := os.WriteFile(hookPath, []byte(hookScript), 0755); err != nil {
		t.Fatalf("Failed to create hook file: %v", err)
	}

	runner := NewRunner(tmpDir)
	payload := Payload{Operation: "jin-apply"}

	err := runner.RunSync(EventPostApply, payload)
	if err == nil {
		t.Error("RunSync should have returned error for failed hook")
	}
}

func TestRun_Async(t *testing.T) {
	tmpDir := t.TempDir()
	hookPath := filepath.Join(tmpDir, HookPostApply)
	outputFile := filepath.Join(tmpDir, "async_output.txt")

	hookScript := "#!/bin/sh\n" +
		"echo \"async\" > \"" + outputFile + "\"\n"
	if err := os.WriteFile(hookPath, []byte(hookScript), 0755); err != nil {
		t.Fatalf("Failed to create hook file: %v", err)
	}

	runner := NewRunner(tmpDir)
	payload := Payload{Operation: "jin-apply"}

	runner.Run(EventPostApply, payload)

	var output []byte
	var err error
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		output, err = os.ReadFile(outputFile)
		if err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if err != nil {
		t.Fatalf("Failed to read output file after retries: %v", err)
	}

	expected := "async\n"
	if string(output) != expected {
		t.Errorf("Hook output = %q, want %q", string(output), expected)
	}
}

func TestAllHookEvents(t *testing.T) {
	events := []struct {
		event string
		hook  string
	}{
		{EventPostCommit, HookPostCommit},
		{EventPostApply, HookPostApply},
	}

	for _, e := range events {
		t.Run(e.event, func(t *testing.T) {
			result := eventToHook(e.event)
			if result != e.hook {
				t.Errorf("eventToHook(%q) = %q, want %q", e.event, result, e.hook)
			}
		})
	}
}
