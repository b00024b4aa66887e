// Package logging holds the debug/error helpers shared by the rag-loader
// packages and commands. Debug output is off unless SetDebug(true) is called.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

var (
	mu        sync.RWMutex
	debugMode = false
	output    io.Writer = os.Stderr
	exit                = os.Exit
)

// SetDebug enables or disables debug output
func SetDebug(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	debugMode = enabled
}

// IsDebug reports whether debug output is enabled
func IsDebug() bool {
	mu.RLock()
	defer mu.RUnlock()
	return debugMode
}

// SetOutput redirects log output, mostly for tests
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Debugf prints debug information only when debug mode is enabled
func Debugf(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if debugMode {
		fmt.Fprintf(output, format+"\n", args...)
	}
}

// Infof always prints
func Infof(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	fmt.Fprintf(output, format+"\n", args...)
}

// Fatal logs an error with the caller's file and line, then exits
func Fatal(err error) {
	_, file, line, _ := runtime.Caller(1)
	mu.RLock()
	fmt.Fprintf(output, "😡 %s:%d - %v\n", filepath.Base(file), line, err)
	mu.RUnlock()
	exit(1)
}
