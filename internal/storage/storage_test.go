package storage

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURI(t *testing.T) {
	assert.Equal(t, "gs://bkt/roformer_vocal_stems/a.wav", URI("bkt", "roformer_vocal_stems/a.wav"))
}

func TestParseURI(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{"gs scheme", "gs://bkt/path/to/a.wav", "bkt", "path/to/a.wav", false},
		{"s3 scheme", "s3://bkt/a.wav", "bkt", "a.wav", false},
		{"no scheme", "bkt/a.wav", "", "", true},
		{"missing key", "gs://bkt", "", "", true},
		{"missing bucket", "gs:///a.wav", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, key, err := ParseURI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrBadURI)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestNormalizePrefix(t *testing.T) {
	assert.Equal(t, "stems/", NormalizePrefix("stems"))
	assert.Equal(t, "stems/", NormalizePrefix("stems/"))
	assert.Equal(t, "", NormalizePrefix(""))
}

func TestMemStore_List(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore("bkt")
	store.PutSized("stems/b.wav", 20)
	store.PutSized("stems/a.wav", 10)
	store.PutSized("other/c.wav", 5)
	store.Put("stems/", nil) // directory placeholder

	objs, err := store.List(ctx, "stems/", 0)
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, Object{Key: "stems/a.wav", Size: 10}, objs[0])
	assert.Equal(t, Object{Key: "stems/b.wav", Size: 20}, objs[1])

	t.Run("limit caps results", func(t *testing.T) {
		objs, err := store.List(ctx, "stems/", 1)
		require.NoError(t, err)
		assert.Len(t, objs, 1)
	})

	t.Run("empty prefix yields nothing", func(t *testing.T) {
		objs, err := store.List(ctx, "missing/", 0)
		require.NoError(t, err)
		assert.Empty(t, objs)
	})
}

func TestMemStore_Copy(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore("bkt")
	store.Put("stems/a.wav", []byte("payload"))

	require.NoError(t, store.Copy(ctx, "stems/a.wav", "chunks/chunk_1/a.wav"))
	assert.True(t, store.Has("chunks/chunk_1/a.wav"))
	assert.Equal(t, []string{"stems/a.wav -> chunks/chunk_1/a.wav"}, store.CopyLog())

	t.Run("missing source", func(t *testing.T) {
		err := store.Copy(ctx, "stems/missing.wav", "chunks/chunk_1/missing.wav")
		assert.ErrorIs(t, err, ErrObjectNotFound)
	})

	t.Run("failure injection", func(t *testing.T) {
		store.FailCopies["stems/a.wav"] = 1
		err := store.Copy(ctx, "stems/a.wav", "chunks/chunk_2/a.wav")
		require.Error(t, err)
		// Second attempt succeeds.
		require.NoError(t, store.Copy(ctx, "stems/a.wav", "chunks/chunk_2/a.wav"))
	})
}

func TestMemStore_Download(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore("bkt")
	store.Put("stems/a.wav", []byte("payload"))

	var buf bytes.Buffer
	n, err := store.Download(ctx, "stems/a.wav", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, "payload", buf.String())

	_, err = store.Download(ctx, "nope", &buf)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
