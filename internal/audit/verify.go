package audit

import (
	"encoding/json"
	"fmt"
	"os"
)

// Verify checks sequence numbers and the hash chain of the log at path.
// It returns an error describing the first broken entry.
func Verify(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read audit log: %w", err)
	}

	wantPrev := genesisHash()
	var prevSeq uint64
	for i, line := range splitLines(data) {
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("line %d: invalid JSON: %w", i+1, err)
		}
		if e.Seq != prevSeq+1 {
			return fmt.Errorf("line %d: sequence gap: expected %d, got %d", i+1, prevSeq+1, e.Seq)
		}
		if e.PrevHash != wantPrev {
			return fmt.Errorf("line %d: prev_hash mismatch: expected %s, got %s", i+1, short(wantPrev), short(e.PrevHash))
		}
		if got := computeHash(e); e.Hash != got {
			return fmt.Errorf("line %d: hash mismatch: expected %s, got %s", i+1, short(got), short(e.Hash))
		}
		wantPrev = e.Hash
		prevSeq = e.Seq
	}
	return nil
}

// Tail returns up to the last n entries of the log at path, oldest first.
func Tail(path string, n int) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	lines := splitLines(data)
	n = max(0, min(n, len(lines)))

	entries := make([]Entry, 0, n)
	for _, line := range lines[len(lines)-n:] {
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func short(h string) string {
	if len(h) > 16 {
		return h[:16] + "..."
	}
	return h
}
