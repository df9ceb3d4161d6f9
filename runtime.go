package main

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// Compiler driver constants (spec §5/§6): the CC flags used to build
// the embedded runtime, and the cache layout emberc shares across
// invocations.
const (
	optLevel      = "-O2"
	cStd          = "-std=c11"
	fPIC          = "-fPIC"
	osWindows     = "windows"
	defaultCC     = "clang"
	runtimeSubdir = "runtime"
	runtimeSrc    = "runtime.c"
	runtimeObj    = runtimeSrc + ".o"

	// runtimeEmbedPath is the lookup path into embeddedRuntimeFS, which
	// (like every io/fs.FS) always uses "/" regardless of host OS;
	// filepath.Join would use "\" on Windows and break the lookup.
	runtimeEmbedPath = runtimeSubdir + "/" + runtimeSrc

	// runtimeMarchEnv overrides the -march flag used to build the
	// embedded runtime. Unset, the runtime builds portable (no -march
	// at all): emberc's output binary is meant to run on machines other
	// than the one that compiled it, so baking in -march=native by
	// default would silently produce binaries that SIGILL on an older
	// CPU. Set it to a target name ("x86-64-v2") or a full flag
	// ("-march=native") for a build meant only to run locally.
	runtimeMarchEnv = "EMBERC_MARCH"

	// keepRuntimeCaches/minRuntimeCacheAge govern the build cache's
	// generation GC. emberc's cache key space is GOOS x GOARCH x CC path
	// x march override, which on one machine is small and changes
	// rarely, unlike a multi-package compiler's per-project cache whose
	// key space grows with the number of projects built; a single
	// runtime.c recompiles in well under a second, so there is little
	// reason to let more than a handful of generations pile up or to
	// keep them around for long.
	keepRuntimeCaches  = 3
	minRuntimeCacheAge = 3 * 24 * 60 * 60
)

func ccCommand() string {
	if cc := os.Getenv("EMBERC_CC"); cc != "" {
		return cc
	}
	return defaultCC
}

// isRuntimeHashDir reports whether name looks like a cache directory
// emberc itself created (an 8-char hex shortHash), distinguishing it
// from stray user files that might share the runtime cache root.
func isRuntimeHashDir(name string) bool {
	if len(name) != 8 {
		return false
	}
	_, err := hex.DecodeString(name)
	return err == nil
}

//go:embed runtime
var embeddedRuntimeFS embed.FS

// runtimeCompileFlags returns the flags the embedded runtime.c is
// compiled with; shared between compileRuntimeSource and
// runtimeCacheKey so a flag change invalidates the cache.
func runtimeCompileFlags() []string {
	flags := []string{optLevel, cStd}
	if march := os.Getenv(runtimeMarchEnv); march != "" {
		if strings.HasPrefix(march, "-march=") {
			flags = append(flags, march)
		} else {
			flags = append(flags, "-march="+march)
		}
	}
	if runtime.GOOS != osWindows {
		flags = append(flags, fPIC)
	}
	return flags
}

// runtimeCacheKey hashes the one embedded runtime.c plus the compile
// settings that affect its object code. A multi-package compiler's
// runtime support can vary with which packages a given program pulls
// in, so it needs a cache key that accounts for "how many translation
// units, and which ones" per build; emberc links exactly one fixed C
// file into every binary regardless of what the source program does,
// so the key is just a hash of that file's bytes plus the settings
// that can change its object code, with no file-count bookkeeping.
func runtimeCacheKey() (shortHash, fullHash string, err error) {
	data, err := embeddedRuntimeFS.ReadFile(runtimeEmbedPath)
	if err != nil {
		return "", "", fmt.Errorf("read embedded %s: %w", runtimeSrc, err)
	}

	h := sha256.New()
	h.Write(data)
	h.Write([]byte(ccCommand()))
	for _, flag := range runtimeCompileFlags() {
		h.Write([]byte(flag))
	}
	h.Write([]byte(runtime.GOOS))
	h.Write([]byte(runtime.GOARCH))

	fullHash = hex.EncodeToString(h.Sum(nil))
	shortHash = fullHash[:8]
	return shortHash, fullHash, nil
}

func extractRuntimeSource(rtDir string) error {
	if err := os.MkdirAll(rtDir, 0755); err != nil {
		return fmt.Errorf("create runtime dir: %w", err)
	}
	data, err := embeddedRuntimeFS.ReadFile(runtimeEmbedPath)
	if err != nil {
		return fmt.Errorf("read embedded %s: %w", runtimeSrc, err)
	}
	return os.WriteFile(filepath.Join(rtDir, runtimeSrc), data, 0644)
}

func compileRuntimeSource(rtDir string) (string, error) {
	src := filepath.Join(rtDir, runtimeSrc)
	outObj := filepath.Join(rtDir, runtimeObj)
	cc := ccCommand()
	args := append(runtimeCompileFlags(), "-I", rtDir, "-c", src, "-o", outObj)
	if out, err := exec.Command(cc, args...).CombinedOutput(); err != nil {
		return "", fmt.Errorf("compile %s with %s: %v\n%s", src, cc, err, out)
	}
	return outObj, nil
}

// pruneStaleRuntimeCaches removes cached runtime builds beyond the
// `keep` most recent, but only ones older than minAge seconds, so a
// second emberc process mid-build never loses the directory it's
// currently populating.
func pruneStaleRuntimeCaches(runtimeDir string, keep int, minAge int64) {
	entries, err := os.ReadDir(runtimeDir)
	if err != nil || len(entries) <= keep {
		return
	}

	type dirInfo struct {
		name  string
		mtime int64
	}
	var dirs []dirInfo
	for _, e := range entries {
		if e.IsDir() && isRuntimeHashDir(e.Name()) {
			if info, err := e.Info(); err == nil {
				dirs = append(dirs, dirInfo{e.Name(), info.ModTime().Unix()})
			}
		}
	}
	if len(dirs) <= keep {
		return
	}

	cutoff := time.Now().Unix() - minAge
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].mtime < dirs[j].mtime })
	for i := 0; i < len(dirs)-keep; i++ {
		if dirs[i].mtime < cutoff {
			path := filepath.Join(runtimeDir, dirs[i].name)
			if err := os.RemoveAll(path); err != nil {
				fmt.Printf("warning: failed to remove stale runtime cache %s: %v\n", path, err)
			}
		}
	}
}

// prepareRuntime ensures the embedded C runtime is extracted and
// compiled to an object file under cacheDir, reusing a prior build
// when the hash of runtime.c+flags matches. A flock-guarded `.lock`
// file keeps two concurrent emberc invocations from compiling the same
// runtime twice (spec §5 step 6, SPEC_FULL §2 "Build cache +
// concurrency guard").
func prepareRuntime(cacheDir string) ([]string, error) {
	runtimeDir := filepath.Join(cacheDir, runtimeSubdir)
	if err := os.MkdirAll(runtimeDir, 0755); err != nil {
		return nil, fmt.Errorf("create runtime cache dir: %w", err)
	}

	lock := flock.New(filepath.Join(runtimeDir, ".lock"))
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("acquire runtime cache lock: %w", err)
	}
	defer lock.Unlock()

	shortHash, fullHash, err := runtimeCacheKey()
	if err != nil {
		return nil, err
	}
	rtDir := filepath.Join(runtimeDir, shortHash)
	hashFile := filepath.Join(rtDir, ".hash")
	objPath := filepath.Join(rtDir, runtimeObj)

	if stored, err := os.ReadFile(hashFile); err == nil && string(stored) == fullHash {
		if _, err := os.Stat(objPath); err == nil {
			return []string{objPath}, nil
		}
	}
	os.RemoveAll(rtDir)

	pruneStaleRuntimeCaches(runtimeDir, keepRuntimeCaches, minRuntimeCacheAge)

	if err := extractRuntimeSource(rtDir); err != nil {
		return nil, err
	}
	obj, err := compileRuntimeSource(rtDir)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(hashFile, []byte(fullHash), 0644); err != nil {
		return nil, fmt.Errorf("write runtime cache hash: %w", err)
	}
	return []string{obj}, nil
}
