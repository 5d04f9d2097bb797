package audit

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun(id string) Run {
	return Run{
		RunID:    id,
		Origin:   "cli",
		Input:    "ops.json",
		Tools:    []string{"Query", "Sorting"},
		Results:  2,
		Status:   []string{"Query done. Rows=3", "Sorting done. Rows=3"},
		Summary:  "All operations done.",
		Duration: 3 * time.Millisecond,
	}
}

func writeRuns(t *testing.T, path string, n int) {
	t.Helper()
	l, err := NewLogger(path)
	require.NoError(t, err)
	for i := range n {
		_, err := l.Log(sampleRun(string(rune('a' + i))))
		require.NoError(t, err)
	}
}

func TestLogAndVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.jsonl")
	writeRuns(t, path, 5)
	require.NoError(t, Verify(path))

	entries, err := Tail(path, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(4), entries[0].Seq)
	assert.Equal(t, "e", entries[1].RunID)
	assert.Equal(t, []string{"Query", "Sorting"}, entries[1].Tools)
	assert.Equal(t, 3.0, entries[1].Duration)
}

func TestVerifyDetectsTampering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	writeRuns(t, path, 3)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := data
	for i := range tampered {
		if tampered[i] == '3' {
			tampered[i] = '4'
			break
		}
	}
	require.NoError(t, os.WriteFile(path, tampered, 0o600))
	assert.Error(t, Verify(path))
}

func TestVerifyDetectsSequenceGap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	writeRuns(t, path, 5)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := splitLines(data)
	var out []byte
	for i, line := range lines {
		if i == 2 {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	require.NoError(t, os.WriteFile(path, out, 0o600))
	assert.ErrorContains(t, Verify(path), "sequence gap")
}

func TestVerifyEmptyLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	assert.NoError(t, Verify(path))
}

func TestLoggerResumesChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	writeRuns(t, path, 2)

	l, err := NewLogger(path)
	require.NoError(t, err)
	e, err := l.Log(sampleRun("third"))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), e.Seq)

	require.NoError(t, Verify(path))
	entries, err := Tail(path, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestNewLoggerRejectsCorruptTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{not json\n"), 0o600))
	_, err := NewLogger(path)
	assert.Error(t, err)
}
