// Package discoverylog provides the ambient console logging used across
// the token discovery core. It follows the prefixed-line style of the
// fuzzer driver's own CLI output rather than a structured logger.
package discoverylog

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu     sync.Mutex
	out    io.Writer = os.Stderr
	silent bool
)

// SetOutput redirects log output; primarily for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// SetSilent suppresses all output when silent is true, mirroring the
// reference implementation's silent_run config flag.
func SetSilent(s bool) {
	mu.Lock()
	defer mu.Unlock()
	silent = s
}

// Info prints an informational line prefixed "[*]".
func Info(format string, args ...any) {
	printf("[*] ", format, args...)
}

// Warn prints a warning line prefixed "[!]".
func Warn(format string, args ...any) {
	printf("[!] ", format, args...)
}

// Stats prints a per-component status line, equivalent to the
// reference implementation's print_stats! macro: "[component] message".
func Stats(component, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	printf("", "[%s] %s", component, msg)
}

func printf(prefix, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if silent {
		return
	}
	fmt.Fprintf(out, prefix+format+"\n", args...)
}
