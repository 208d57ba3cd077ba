package weather

import (
	"fmt"
	"os"
	"path/filepath"
)

// SaveSnapshot writes the snapshot's verbatim provider payload to a JSON file
// under dir, creating the directory if needed. An empty filename gets a
// timestamped default. Returns the full path written.
func SaveSnapshot(snap *Snapshot, dir, filename string) (string, error) {
	if len(snap.Raw) == 0 {
		return "", fmt.Errorf("snapshot has no raw payload to save")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	if filename == "" {
		filename = fmt.Sprintf("weather_%s.json", timeNow().Format("20060102_150405"))
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, snap.Raw, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads a previously saved payload back into a Snapshot.
func LoadSnapshot(path string) (*Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	snap, err := parseSnapshot(raw)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return snap, nil
}
