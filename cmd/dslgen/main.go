// cmd/dslgen/main.go
package main

import (
	"fmt"
	"os"
	"strings"

	"dslgen/internal/cache"
	"dslgen/internal/diagnostic"
	"dslgen/internal/driver"
	"dslgen/internal/frontend"
)

const VERSION = "0.1.0"

// Build variables - set during build with ldflags.
var (
	BuildDate = "unknown"
	GitCommit = "unknown"
)

var commandAliases = map[string]string{
	"b": "build",
	"v": "version",
	"h": "help",
}

func main() {
	os.Exit(main1())
}

// main1 holds the actual CLI logic, separated from main so the testscript
// harness can re-exec the test binary as the "dslgen" command in a
// subprocess (see main_test.go).
func main1() int {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		return 1
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "help", "--help", "-h":
		showUsage()
	case "version", "--version", "-v":
		showVersion()
	case "build":
		if err := runBuild(args[1:]); err != nil {
			fmt.Fprintln(os.Stderr, "dslgen build:", err)
			return 1
		}
	default:
		fmt.Fprintf(os.Stderr, "dslgen: unknown command %q\n\n", args[0])
		showUsage()
		return 1
	}
	return 0
}

func showUsage() {
	fmt.Println(`dslgen - stencil kernel compiler

Usage:
  dslgen build <file.go> <KernelFunc> [--backend=interpreted|native] [--debug-ir]
  dslgen version
  dslgen help

"build" parses the named function out of <file.go> as a kernel definition,
compiles it with the selected backend, and prints the path of the cache
entry it was written to.`)
}

func showVersion() {
	fmt.Printf("dslgen %s (built %s, commit %s)\n", VERSION, BuildDate, GitCommit)
}

func runBuild(args []string) error {
	var backend driver.Backend
	var debugIR bool
	var positional []string
	for _, a := range args {
		switch {
		case strings.HasPrefix(a, "--backend="):
			switch strings.TrimPrefix(a, "--backend=") {
			case "native":
				backend = driver.Native
			case "interpreted", "":
				backend = driver.Interpreted
			default:
				return fmt.Errorf("unknown backend %q", strings.TrimPrefix(a, "--backend="))
			}
		case a == "--debug-ir":
			debugIR = true
		default:
			positional = append(positional, a)
		}
	}
	if len(positional) != 2 {
		return fmt.Errorf("expected <file.go> <KernelFunc>, got %d positional args", len(positional))
	}
	path, fnName := positional[0], positional[1]

	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if _, err := driver.Register(string(src), fnName, driver.Options{Backend: backend, DebugIR: debugIR}); err != nil {
		if fe, ok := err.(*frontend.Error); ok {
			return fmt.Errorf("%s", diagnostic.Render(fe, string(src)))
		}
		return err
	}

	fp := cache.Fingerprint(string(src))
	if backend == driver.Native {
		fmt.Println(cache.NativeArtifactDir(fp))
	} else {
		fmt.Println(cache.InterpretedArtifactPath(fp))
	}
	return nil
}
