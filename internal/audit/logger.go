package audit

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const genesisInput = "sqlops-genesis"

// Logger appends hash-chained entries to a JSONL file.
type Logger struct {
	mu       sync.Mutex
	path     string
	seq      uint64
	prevHash string
}

// NewLogger opens or creates the log at path and resumes its chain from the
// last entry.
func NewLogger(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	l := &Logger{path: path, prevHash: genesisHash()}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	if lines := splitLines(data); len(lines) > 0 {
		var last Entry
		if err := json.Unmarshal(lines[len(lines)-1], &last); err != nil {
			return nil, fmt.Errorf("audit log %s: last entry: %w", path, err)
		}
		l.seq = last.Seq
		l.prevHash = last.Hash
	}
	return l, nil
}

// Log appends one entry for r and returns it.
func (l *Logger) Log(r Run) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cwd, _ := os.Getwd()
	e := Entry{
		Seq:      l.seq + 1,
		Time:     time.Now().UTC(),
		PrevHash: l.prevHash,
		RunID:    r.RunID,
		Origin:   r.Origin,
		Input:    r.Input,
		Tools:    r.Tools,
		Results:  r.Results,
		Failed:   r.Failed,
		Status:   r.Status,
		Summary:  r.Summary,
		Duration: float64(r.Duration.Microseconds()) / 1000.0,
		Cwd:      cwd,
	}
	e.Hash = computeHash(e)

	data, err := json.Marshal(e)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal audit entry: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return Entry{}, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return Entry{}, fmt.Errorf("write audit entry: %w", err)
	}

	l.seq = e.Seq
	l.prevHash = e.Hash
	return e, nil
}

// Path returns the log file path.
func (l *Logger) Path() string { return l.path }

func genesisHash() string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(genesisInput)))
}

func computeHash(e Entry) string {
	e.Hash = ""
	data, _ := json.Marshal(e)
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) > 0 {
			lines = append(lines, line)
		}
	}
	return lines
}
