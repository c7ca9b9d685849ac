package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	a := newApp()
	outBuf, errBuf := &bytes.Buffer{}, &bytes.Buffer{}
	a.root.SetOut(outBuf)
	a.root.SetErr(errBuf)
	a.root.SetArgs(args)
	err = a.root.Execute()
	return outBuf.String(), errBuf.String(), err
}

func TestXRBTreeCLI_Help(t *testing.T) {
	testcases := []struct {
		args    []string
		wantOut string
	}{
		{[]string{"--help"}, "xrbtree drives the arena backed red-black tree"},
		{[]string{"scenario", "--help"}, "Replay the reference scenario"},
		{[]string{"soak", "--help"}, "--key-space"},
	}
	for _, tc := range testcases {
		t.Run(strings.Join(tc.args, " "), func(tt *testing.T) {
			out, _, err := execute(tt, tc.args...)
			require.NoError(tt, err)
			require.Contains(tt, out, tc.wantOut)
		})
	}

	_, _, err := execute(t, "unknown")
	require.Error(t, err)
}

func TestXRBTreeCLI_Scenario(t *testing.T) {
	out, _, err := execute(t, "scenario", "--log-level", "error")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, len(scenarioSteps))
	require.Contains(t, lines[0], "insert [5 10 7 6 7 8] => [5 6 7 8 10]")
	require.Contains(t, lines[1], "delete [7] => [5 6 8 10]")
	require.Contains(t, lines[2], "delete [5 20] => [6 8 10]")
	require.Contains(t, lines[3], "delete [100 5 8] => [6 10]")
	require.Contains(t, lines[4], "delete [6 8 10 -1] => [] (height 0)")
}

func TestXRBTreeCLI_ScenarioDesc(t *testing.T) {
	out, _, err := execute(t, "scenario", "--desc", "--log-level", "error")
	require.NoError(t, err)
	require.Contains(t, out, "=> [10 8 7 6 5]")
}

func TestXRBTreeCLI_ScenarioDebugLog(t *testing.T) {
	_, logs, err := execute(t, "scenario", "--log-level", "debug", "--log-encoder", "json")
	require.NoError(t, err)
	require.Contains(t, logs, `"msg":"[xrbtree] scenario step"`)
	require.Contains(t, logs, `"component":"xrbtree.rbtree"`)
}

func TestXRBTreeCLI_ScenarioPrometheus(t *testing.T) {
	out, _, err := execute(t, "scenario", "--log-level", "error", "--metrics", "prometheus")
	require.NoError(t, err)
	require.Contains(t, out, "rbtree_rotations_total")
	require.Contains(t, out, "rbtree_insert_fixups_total")
	require.Contains(t, out, "app_core_goroutines")
}

func TestXRBTreeCLI_ScenarioStdoutMetrics(t *testing.T) {
	out, _, err := execute(t, "scenario", "--log-level", "error", "--metrics", "stdout")
	require.NoError(t, err)
	require.Contains(t, out, "rbtree.delete.fixups")
}

func TestXRBTreeCLI_Soak(t *testing.T) {
	profile := filepath.Join(t.TempDir(), "cpu.pprof")
	out, _, err := execute(t, "soak",
		"--log-level", "error",
		"--ops", "4000",
		"--seed", "7",
		"--key-space", "128",
		"--workers", "3",
		"--cpu-profile", profile,
	)
	require.NoError(t, err)
	require.Contains(t, out, "worker 0: ops 1334")
	require.Contains(t, out, "worker 2: ops 1333")
	require.Contains(t, out, "total keys")
	require.Contains(t, out, "ops/s")
	info, err := os.Stat(profile)
	require.NoError(t, err)
	require.NotZero(t, info.Size())
}

func TestXRBTreeCLI_InvalidFlags(t *testing.T) {
	_, _, err := execute(t, "soak", "--workers", "0", "--key-space", "0")
	require.ErrorIs(t, err, errInvalidSoakFlag)

	_, _, err = execute(t, "scenario", "--log-encoder", "xml")
	require.ErrorIs(t, err, errUnknownEncoder)

	_, _, err = execute(t, "scenario", "--metrics", "statsd")
	require.ErrorIs(t, err, errUnknownMetrics)
}

func TestXRBTreeCLI_EnvOverrides(t *testing.T) {
	t.Setenv("XRBTREE_METRICS", "statsd")
	_, _, err := execute(t, "scenario", "--log-level", "error")
	require.ErrorIs(t, err, errUnknownMetrics)

	// The explicit flag wins over the environment.
	_, _, err = execute(t, "scenario", "--log-level", "error", "--metrics", "none")
	require.NoError(t, err)

	t.Setenv("XRBTREE_METRICS", "none")
	t.Setenv("XRBTREE_LOG_ENCODER", "text")
	t.Setenv("XRBTREE_LOG_LEVEL", "debug")
	_, logs, err := execute(t, "scenario")
	require.NoError(t, err)
	require.Contains(t, logs, "[xrbtree] scenario step")
	require.NotContains(t, logs, `"msg":`)
}
