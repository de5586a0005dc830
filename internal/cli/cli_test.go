package cli

import (
	"bytes"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// resetCommand restores cmd's flags to their defaults, points baseDir at
// dir and captures the command's output.
func resetCommand(t *testing.T, cmd *cobra.Command, dir string) *syncBuffer {
	t.Helper()

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		require.NoError(t, f.Value.Set(f.DefValue))
		f.Changed = false
	})
	baseDir = dir

	out := &syncBuffer{}
	cmd.SetOut(out)
	t.Cleanup(func() { cmd.SetOut(nil) })
	return out
}

func setFlag(t *testing.T, cmd *cobra.Command, name, value string) {
	t.Helper()
	require.NoError(t, cmd.Flags().Set(name, value))
}

// stubPassword makes the password prompt return password.
func stubPassword(t *testing.T, password string, err error) *int {
	t.Helper()
	calls := 0
	orig := promptPassword
	promptPassword = func() (string, error) {
		calls++
		return password, err
	}
	t.Cleanup(func() { promptPassword = orig })
	return &calls
}

func stubEnv(t *testing.T, env map[string]string) {
	t.Helper()
	orig := getenv
	getenv = func(key string) string { return env[key] }
	t.Cleanup(func() { getenv = orig })
}

// syncBuffer is a bytes.Buffer safe for a command writing from one
// goroutine while the test reads from another.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
