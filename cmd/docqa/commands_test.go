package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/markdown"
)

// run executes the root command with a fresh config and returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		kind, noExamples, skipIngest = "answer", false, false
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
	})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "--log-level", "error"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCleanCommand(t *testing.T) {
	out, err := run(t, "# Build\n\nThe build page explains the layout.\n", "clean")
	require.NoError(t, err)
	assert.Contains(t, out, "# Build")
	assert.Contains(t, out, "The build page explains the layout.")

	_, err = run(t, "x", "clean", "--kind", "html")
	assert.ErrorContains(t, err, "unknown kind")
}

func TestBlocksCommand(t *testing.T) {
	out, err := run(t, "# Build\n\nThe build page explains the layout.\n", "blocks")
	require.NoError(t, err)
	var blocks []markdown.Block
	require.NoError(t, json.Unmarshal([]byte(out), &blocks))
	require.Len(t, blocks, 2)
	assert.Equal(t, markdown.BlockHeading, blocks[0].Kind)
	assert.Equal(t, markdown.BlockParagraph, blocks[1].Kind)

	out, err = run(t, "   ", "blocks")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestIngestCommand(t *testing.T) {
	root := filepath.Join(t.TempDir(), "galay-http")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "server.md"), []byte("# Server\n\nHttpServer serves requests.\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pool.md"), []byte("# Pool\n\nThe pool keeps connections.\n"), 0o644))

	out, err := run(t, "", "ingest", root)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Indexed 2 chunks."), out)
}
