package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testBlockSize = 4096

// CLI runs bcachetool in-process against files in a temp directory.
type CLI struct {
	t   *testing.T
	Dir string
	Env map[string]string
}

func NewCLI(t *testing.T) *CLI {
	t.Helper()
	dir := t.TempDir()
	return &CLI{
		t:   t,
		Dir: dir,
		Env: map[string]string{"HOME": dir},
	}
}

// Run executes the CLI and returns stdout, stderr, and exit code. Global
// flags select buffered I/O, a 16 slot cache and a store under Dir.
func (r *CLI) Run(args ...string) (string, string, int) {
	var outBuf, errBuf bytes.Buffer

	fullArgs := append([]string{
		"bcachetool",
		"--direct=false",
		"--cache-memory", "65536",
		"--store", filepath.Join(r.Dir, "images"),
	}, args...)
	code := Run(&outBuf, &errBuf, fullArgs, r.Env, nil)

	return outBuf.String(), errBuf.String(), code
}

// MustRun fails the test if the command returns non-zero.
func (r *CLI) MustRun(args ...string) string {
	r.t.Helper()
	stdout, stderr, code := r.Run(args...)
	if code != 0 {
		r.t.Fatalf("command %v failed with exit code %d\nstderr: %s", args, code, stderr)
	}
	return strings.TrimSpace(stdout)
}

// MustFail fails the test if the command succeeds. Returns trimmed stderr.
func (r *CLI) MustFail(args ...string) string {
	r.t.Helper()
	stdout, stderr, code := r.Run(args...)
	if code == 0 {
		r.t.Fatalf("command %v succeeded, expected failure\nstdout: %s", args, stdout)
	}
	return strings.TrimSpace(stderr)
}

// Device creates a device file of nrBlocks blocks, each filled by fill.
func (r *CLI) Device(name string, nrBlocks int, fill func(index int) []byte) string {
	r.t.Helper()
	data := make([]byte, nrBlocks*testBlockSize)
	if fill != nil {
		for i := range nrBlocks {
			if b := fill(i); b != nil {
				copy(data[i*testBlockSize:(i+1)*testBlockSize], b)
			}
		}
	}
	path := filepath.Join(r.Dir, name)
	require.NoError(r.t, os.WriteFile(path, data, 0o644))
	return path
}

// Block returns block index of a device file.
func (r *CLI) Block(path string, index int) []byte {
	r.t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(r.t, err)
	return data[index*testBlockSize : (index+1)*testBlockSize]
}

func filled(b byte) []byte {
	return bytes.Repeat([]byte{b}, testBlockSize)
}
