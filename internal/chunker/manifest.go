package chunker

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/voxprep/voxprep/internal/storage"
)

// ManifestEntry is one line of the copy plan: a single object's chunk
// assignment with fully qualified source and destination identifiers.
type ManifestEntry struct {
	Chunk string `json:"chunk"`
	Src   string `json:"src"`
	Dst   string `json:"dst"`
	Size  int64  `json:"size"`
}

// DestinationKey computes the destination object key for a source key:
// the source prefix is stripped and the remainder nests under
// {dstPrefix}{chunkName}/.
func DestinationKey(srcKey, srcPrefix, dstPrefix, chunkName string) string {
	rel := strings.TrimPrefix(srcKey, srcPrefix)
	return dstPrefix + chunkName + "/" + rel
}

// WriteManifest writes one JSONL record per object to path, fully
// replacing any prior manifest. The manifest is a deterministic function
// of the current listing and chunk count, so regenerating it is always
// safe.
func WriteManifest(path, bucket, srcPrefix, dstPrefix string, chunks []Chunk) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, chunk := range chunks {
		name := chunk.Name()
		for _, obj := range chunk.Objects {
			entry := ManifestEntry{
				Chunk: name,
				Src:   storage.URI(bucket, obj.Key),
				Dst:   storage.URI(bucket, DestinationKey(obj.Key, srcPrefix, dstPrefix, name)),
				Size:  obj.Size,
			}
			if err := enc.Encode(entry); err != nil {
				_ = f.Close()
				return fmt.Errorf("write manifest entry: %w", err)
			}
		}
	}

	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush manifest: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close manifest: %w", err)
	}
	return nil
}

// ReadManifest loads every entry from a JSONL manifest, for audit and
// tests.
func ReadManifest(path string) ([]ManifestEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer func() { _ = f.Close() }()

	var entries []ManifestEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry ManifestEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("parse manifest line: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return entries, nil
}
