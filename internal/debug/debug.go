// Package debug provides a process-wide leveled logger backed by a rotating
// file, used for diagnostic output that should not pollute command stdout.
package debug

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu      sync.Mutex
	logger  *log.Logger
	enabled bool
)

// Init lazily wires a rotating log file under metaDir/debug.log. Safe to call
// more than once; only the first call takes effect.
func Init(metaDir string) {
	mu.Lock()
	defer mu.Unlock()
	if logger != nil {
		return
	}
	enabled = os.Getenv("JIN_DEBUG") != ""
	w := &lumberjack.Logger{
		Filename:   filepath.Join(metaDir, "debug.log"),
		MaxSize:    5, // megabytes
		MaxBackups: 2,
		MaxAge:     30, // days
	}
	logger = log.New(w, "", log.LstdFlags|log.Lmicroseconds)
}

// Logf writes a formatted debug line. A no-op until Init has been called and
// JIN_DEBUG is set in the environment, matching the ambient-but-quiet
// logging posture of CLI tools in this family.
func Logf(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil || !enabled {
		return
	}
	logger.Output(2, fmt.Sprintf(format, args...))
}

// Errorf writes a formatted error line, always (regardless of JIN_DEBUG),
// since operational failures belong in the rotating log even when verbose
// debug output is off.
func Errorf(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		return
	}
	logger.Output(2, "ERROR: "+fmt.Sprintf(format, args...))
}
