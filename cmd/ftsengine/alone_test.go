package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	fctx "github.com/ryogrid/ftsengine/internal/context"
)

func TestOpenOrCreateThenReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")

	db, err := openOrCreate(dir)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db2, err := openOrCreate(dir)
	require.NoError(t, err)
	require.NoError(t, db2.Close())
}

func TestRunAloneEchoesUntilQuit(t *testing.T) {
	dir := t.TempDir()

	stdin, stdinW, err := os.Pipe()
	require.NoError(t, err)
	stdoutR, stdoutW, err := os.Pipe()
	require.NoError(t, err)

	origIn, origOut := os.Stdin, os.Stdout
	os.Stdin, os.Stdout = stdin, stdoutW
	defer func() { os.Stdin, os.Stdout = origIn, origOut }()

	done := make(chan error, 1)
	go func() {
		done <- runAlone(dir, fctx.EncodingUTF8)
	}()

	stdinW.Write([]byte("hello\nquit\n"))
	stdinW.Close()

	require.NoError(t, <-done)
	stdoutW.Close()

	out, err := io.ReadAll(stdoutR)
	require.NoError(t, err)
	require.True(t, bytes.Contains(out, []byte("hello")))
}
