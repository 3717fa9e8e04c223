// Package chunker splits a bucket prefix into K byte-balanced chunks and
// copies every object into its chunk's destination prefix, resumably.
package chunker

import (
	"errors"
	"fmt"
	"sort"

	"github.com/voxprep/voxprep/internal/storage"
)

// Static errors for chunk planning.
var (
	// ErrInvalidChunkCount is returned when the requested chunk count is
	// not at least 1.
	ErrInvalidChunkCount = errors.New("chunker: chunk count must be >= 1")
	// ErrNoObjects is returned when the source prefix holds no objects.
	ErrNoObjects = errors.New("chunker: no objects found under source prefix")
)

// Chunk is an ordered collection of objects assigned together.
type Chunk struct {
	// Index is the 1-based chunk number.
	Index int
	// Objects are the chunk's members, in assignment order.
	Objects []storage.Object
	// Total is the sum of the members' sizes in bytes.
	Total int64
}

// Name returns the chunk's destination sub-prefix component, "chunk_<i>".
func (c Chunk) Name() string {
	return fmt.Sprintf("chunk_%d", c.Index)
}

// Partition distributes objs into exactly k chunks so total bytes per
// chunk are approximately equal. It sorts objects by size descending and
// assigns each to the chunk with the smallest running total, lowest index
// on ties (longest-processing-time-first). The assignment is deterministic
// for a given input, which keeps regenerated manifests stable.
func Partition(objs []storage.Object, k int) ([]Chunk, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChunkCount, k)
	}

	sorted := make([]storage.Object, len(objs))
	copy(sorted, objs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Size > sorted[j].Size
	})

	chunks := make([]Chunk, k)
	for i := range chunks {
		chunks[i].Index = i + 1
	}

	for _, obj := range sorted {
		min := 0
		for i := 1; i < k; i++ {
			if chunks[i].Total < chunks[min].Total {
				min = i
			}
		}
		chunks[min].Objects = append(chunks[min].Objects, obj)
		chunks[min].Total += obj.Size
	}

	return chunks, nil
}

// TotalBytes sums the sizes of all objects.
func TotalBytes(objs []storage.Object) int64 {
	var total int64
	for _, obj := range objs {
		total += obj.Size
	}
	return total
}

// HumanBytes formats a byte count in base-1024 units.
func HumanBytes(n int64) string {
	suffixes := []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}
	f := float64(n)
	for _, s := range suffixes {
		if f < 1024.0 || s == suffixes[len(suffixes)-1] {
			return fmt.Sprintf("%.2f %s", f, s)
		}
		f /= 1024.0
	}
	return fmt.Sprintf("%.2f B", f)
}
