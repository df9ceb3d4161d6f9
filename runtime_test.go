package main

import (
	"os"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func containsPrefix(values []string, prefix string) bool {
	for _, v := range values {
		if strings.HasPrefix(v, prefix) {
			return true
		}
	}
	return false
}

func TestRuntimeCompileFlagsDefaultPortable(t *testing.T) {
	t.Setenv(runtimeMarchEnv, "")

	flags := runtimeCompileFlags()

	require.Contains(t, flags, optLevel)
	require.Contains(t, flags, cStd)
	require.False(t, containsPrefix(flags, "-march="), "expected a portable default with no -march, got %v", flags)

	if runtime.GOOS == osWindows {
		require.NotContains(t, flags, fPIC)
		return
	}
	require.Contains(t, flags, fPIC)
}

func TestRuntimeCompileFlagsMarchOverride(t *testing.T) {
	t.Setenv(runtimeMarchEnv, "x86-64")

	flags := runtimeCompileFlags()

	require.Contains(t, flags, "-march=x86-64")
}

func TestRuntimeCompileFlagsMarchFlagPassthrough(t *testing.T) {
	t.Setenv(runtimeMarchEnv, "-march=native")

	flags := runtimeCompileFlags()

	require.Contains(t, flags, "-march=native")
}

func TestIsRuntimeHashDirAcceptsOnlyEightCharHex(t *testing.T) {
	require.True(t, isRuntimeHashDir("0123abcd"))
	require.False(t, isRuntimeHashDir("0123abc"))
	require.False(t, isRuntimeHashDir("notahexx"))
	require.False(t, isRuntimeHashDir(".lock"))
}

func TestRuntimeCacheKeyChangesWithFlags(t *testing.T) {
	t.Setenv(runtimeMarchEnv, "")
	_, base, err := runtimeCacheKey()
	require.NoError(t, err)

	t.Setenv(runtimeMarchEnv, "x86-64")
	_, withMarch, err := runtimeCacheKey()
	require.NoError(t, err)

	require.NotEqual(t, base, withMarch, "a flag change must invalidate the runtime cache key")
}

func TestCcCommandDefaultsToClang(t *testing.T) {
	t.Setenv("EMBERC_CC", "")
	require.Equal(t, defaultCC, ccCommand())

	t.Setenv("EMBERC_CC", "zig cc")
	require.Equal(t, "zig cc", ccCommand())
}

func TestPruneStaleRuntimeCachesKeepsRecentAndFresh(t *testing.T) {
	dir := t.TempDir()
	var names []string
	for i := 0; i < 6; i++ {
		name := "0123456" + string(rune('a'+i))
		require.True(t, isRuntimeHashDir(name))
		require.NoError(t, os.MkdirAll(dir+"/"+name, 0755))
		names = append(names, name)
	}

	pruneStaleRuntimeCaches(dir, keepRuntimeCaches, minRuntimeCacheAge)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, len(names), "nothing should be pruned while every entry is fresh")
}
