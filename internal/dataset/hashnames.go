package dataset

import (
	"crypto/md5"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// RenameRecord maps an original directory path to its hashed replacement.
type RenameRecord struct {
	Original string
	New      string
}

// HashName returns the MD5 hex digest of name. Song directory names come
// from scraped metadata and can contain anything; the hash gives a flat,
// filesystem-safe namespace while the mapping CSV preserves the original.
func HashName(name string) string {
	sum := md5.Sum([]byte(name))
	return hex.EncodeToString(sum[:])
}

// HashRenameSecondLevel renames every second-level directory under
// baseDir (i.e. baseDir/*/*) to the MD5 hash of its name, appending a
// numeric suffix on collision, and returns the applied renames.
func HashRenameSecondLevel(baseDir string) ([]RenameRecord, error) {
	firstLevel, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", baseDir, err)
	}

	var records []RenameRecord
	for _, first := range firstLevel {
		if !first.IsDir() {
			continue
		}
		firstPath := filepath.Join(baseDir, first.Name())

		secondLevel, err := os.ReadDir(firstPath)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", firstPath, err)
		}

		// Deterministic processing order.
		names := make([]string, 0, len(secondLevel))
		for _, second := range secondLevel {
			if second.IsDir() {
				names = append(names, second.Name())
			}
		}
		sort.Strings(names)

		for _, name := range names {
			oldPath := filepath.Join(firstPath, name)
			newName := HashName(name)
			newPath := filepath.Join(firstPath, newName)

			for suffix := 1; pathExists(newPath); suffix++ {
				newPath = filepath.Join(firstPath, fmt.Sprintf("%s_%d", newName, suffix))
			}

			if err := os.Rename(oldPath, newPath); err != nil {
				return records, fmt.Errorf("rename %s: %w", oldPath, err)
			}
			records = append(records, RenameRecord{Original: oldPath, New: newPath})
		}
	}

	return records, nil
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WriteRenameCSV persists the original→new mapping.
func WriteRenameCSV(path string, records []RenameRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create rename csv: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"original", "new"}); err != nil {
		_ = f.Close()
		return fmt.Errorf("write rename csv header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write([]string{rec.Original, rec.New}); err != nil {
			_ = f.Close()
			return fmt.Errorf("write rename csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush rename csv: %w", err)
	}
	return f.Close()
}
