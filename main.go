// Command emberc compiles a single ember script to a native
// executable: lexer -> parser -> lowering -> LLVM codegen -> optimize
// -> textual IR -> clang link (spec §5, §6).
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/emberlang/emberc/compiler"
	"github.com/emberlang/emberc/lexer"
	"github.com/emberlang/emberc/lower"
	"github.com/emberlang/emberc/parser"
	"github.com/emberlang/emberc/token"
	"tinygo.org/x/go-llvm"
)

const sourceSuffix = ".es"

// Build-time variables injected via linker flags (ldflags).
//
// These defaults are used for development builds (go build -o emberc).
// A release build overwrites them with, for example:
//
//	go build -ldflags "-X main.Version=$(git describe --tags) ..." -o emberc
//
// The -X flag overwrites these string variables at link time.
// See: https://pkg.go.dev/cmd/link (-X importpath.name=value)
var (
	Version   = "dev"     // Overwritten with git tag (e.g., "v0.5.0")
	Commit    = "unknown" // Overwritten with git commit hash
	BuildDate = "unknown" // Overwritten with build timestamp
)

// printVersion prints version information to stdout, including the
// LLVM target triple and linker emberc would use for a build right
// now, since both directly determine what kind of binary `emberc
// <source.es>` produces on this machine.
func printVersion() {
	fmt.Printf("emberc %s (%s/%s)\n", Version, runtime.GOOS, runtime.GOARCH)
	if Commit != "unknown" {
		fmt.Printf("  commit: %s\n", Commit)
	}
	if BuildDate != "unknown" {
		fmt.Printf("  built:  %s\n", BuildDate)
	}
	fmt.Printf("  target: %s\n", llvm.DefaultTargetTriple())
	fmt.Printf("  linker: %s\n", resolveClang())
}

// defaultCacheDir returns $EMBERC_CACHE if set, else an OS-appropriate
// cache directory (spec §5 step 6, adapted from the teacher's
// defaultPTCache/PTCACHE pattern).
func defaultCacheDir() string {
	if env := os.Getenv("EMBERC_CACHE"); env != "" {
		return env
	}

	homeDir, _ := os.UserHomeDir()
	var dir string
	switch runtime.GOOS {
	case "windows":
		if localAppData := os.Getenv("LocalAppData"); localAppData != "" {
			return filepath.Join(localAppData, "emberc")
		}
		dir = filepath.Join(homeDir, "AppData", "Local", "emberc")
	case "darwin":
		dir = filepath.Join(homeDir, "Library", "Caches", "emberc")
	default:
		if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
			return filepath.Join(xdg, "emberc")
		}
		dir = filepath.Join(homeDir, ".cache", "emberc")
	}
	return dir
}

// resolveClang finds the clang-compatible linker driver: $EMBERC_LLVM_PATH
// if set, falling back to PATH (spec §5 step 6, matching the teacher's
// env-var-or-PATH pattern for locating LLVM tools).
func resolveClang() string {
	if dir := os.Getenv("EMBERC_LLVM_PATH"); dir != "" {
		return filepath.Join(dir, "clang")
	}
	return "clang"
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func reportErrors(source, what string, errs []*token.CompileError) {
	for _, e := range errs {
		fmt.Fprintln(os.Stderr, e.Render(source))
	}
	fail("emberc: %d %s error(s)", len(errs), what)
}

func main() {
	if len(os.Args) != 2 {
		fail("usage: emberc <source%s>", sourceSuffix)
	}
	srcPath := os.Args[1]
	if srcPath == "--version" || srcPath == "-version" {
		printVersion()
		return
	}

	data, err := os.ReadFile(srcPath)
	if err != nil {
		fail("emberc: %v", err)
	}
	source := string(data)

	l := lexer.New(source)
	p := parser.New(l)
	prog := p.Parse()
	if errs := p.Errors(); len(errs) > 0 {
		reportErrors(source, "parse", errs)
	}

	lo := lower.New()
	irProg := lo.Program(prog)
	if len(lo.Errors) > 0 {
		reportErrors(source, "lowering", lo.Errors)
	}

	stem := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))

	c := compiler.NewCompiler(stem)
	defer c.Dispose()
	c.CompileProgram(irProg)
	if len(c.Errors) > 0 {
		reportErrors(source, "codegen", c.Errors)
	}

	if err := c.Optimize(); err != nil {
		fail("emberc: %v", err)
	}

	llPath := stem + ".ll"
	if err := os.WriteFile(llPath, []byte(c.IR()), 0644); err != nil {
		fail("emberc: writing %s: %v", llPath, err)
	}

	cacheDir := defaultCacheDir()
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		fail("emberc: creating cache dir %s: %v", cacheDir, err)
	}
	runtimeObjs, err := prepareRuntime(cacheDir)
	if err != nil {
		fail("emberc: preparing runtime: %v", err)
	}

	outBin := stem
	linkArgs := append([]string{llPath}, runtimeObjs...)
	linkArgs = append(linkArgs, "-o", outBin)

	cmd := exec.Command(resolveClang(), linkArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fail("emberc: link failed: %v", err)
	}
}
