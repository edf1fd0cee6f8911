package should_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/amp-labs/fsm/logger"
	"github.com/amp-labs/fsm/should"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errCloseFailed = errors.New("close failed")

type mockCloser struct {
	closeErr error
	closed   bool
}

func (m *mockCloser) Close() error {
	m.closed = true

	return m.closeErr
}

func TestClose(t *testing.T) {
	t.Parallel()

	ok := &mockCloser{}
	should.Close(ok, "closing")
	assert.True(t, ok.closed)

	failing := &mockCloser{closeErr: errCloseFailed}
	should.Close(failing, "closing", logger.WithMuted(context.Background(), true))
	assert.True(t, failing.closed)
}

func TestClose_NilCloser(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		should.Close(nil, "closing")
	})
}

func TestClose_RealFile(t *testing.T) {
	t.Parallel()

	file, err := os.Create(filepath.Join(t.TempDir(), "door.yaml"))
	require.NoError(t, err)

	should.Close(file, "closing file")

	_, err = file.WriteString("more")
	require.Error(t, err)
}

func TestRemove(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "door.yaml")
	require.NoError(t, os.WriteFile(path, []byte("states: {}"), 0o600))

	should.Remove(path, "removing file")

	_, err := os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)

	// Already gone; nothing to report.
	should.Remove(path, "removing file")
}

//nolint:paralleltest // Test replaces the default slog logger
func TestClose_LogsFailure(t *testing.T) {
	var buf bytes.Buffer

	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))

	t.Cleanup(func() { slog.SetDefault(prev) })

	should.Close(&mockCloser{closeErr: errCloseFailed}, "closing door")

	assert.Contains(t, buf.String(), "closing door")
	assert.Contains(t, buf.String(), "close failed")
}
