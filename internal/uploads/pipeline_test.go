package uploads

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBlobStore records calls and can be told to fail specific file payloads.
type fakeBlobStore struct {
	mu          sync.Mutex
	uploads     []string // keys, in call order
	removed     []string
	failUploads map[string]bool // payload contents that should fail
	failRemoves map[string]bool // keys that should fail
}

func (f *fakeBlobStore) Upload(_ context.Context, key string, data []byte, _ string, _ map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUploads[string(data)] {
		return "", errors.New("upload failed")
	}
	f.uploads = append(f.uploads, key)
	return "http://blobs.local/child-images/" + key, nil
}

func (f *fakeBlobStore) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRemoves[key] {
		return errors.New("remove failed")
	}
	f.removed = append(f.removed, key)
	return nil
}

func jpeg(name, payload string) File {
	return File{Name: name, ContentType: "image/jpeg", Data: []byte(payload)}
}

func TestProcessEmptyBatch(t *testing.T) {
	p := NewPipeline(&fakeBlobStore{})

	_, err := p.Process(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestProcessFiltersEmptyPayloads(t *testing.T) {
	blobs := &fakeBlobStore{}
	p := NewPipeline(blobs)

	files := []File{
		jpeg("a.jpg", "aaa"),
		jpeg("b.jpg", ""),
		jpeg("c.jpg", "ccc"),
		jpeg("d.jpg", ""),
		jpeg("e.jpg", "eee"),
	}
	urls, err := p.Process(context.Background(), files)
	require.NoError(t, err)
	assert.Len(t, urls, 3, "exactly the three non-empty files upload")
	assert.Len(t, blobs.uploads, 3)
}

func TestProcessFiltersDisallowedTypes(t *testing.T) {
	blobs := &fakeBlobStore{}
	p := NewPipeline(blobs)

	files := []File{
		jpeg("a.jpg", "aaa"),
		{Name: "b.gif", ContentType: "image/gif", Data: []byte("bbb")},
		{Name: "c.png", ContentType: "image/png", Data: []byte("ccc")},
	}
	urls, err := p.Process(context.Background(), files)
	require.NoError(t, err)
	assert.Len(t, urls, 2)
}

func TestProcessAllInvalidMakesNoRemoteCalls(t *testing.T) {
	blobs := &fakeBlobStore{}
	p := NewPipeline(blobs)

	files := []File{jpeg("a.jpg", ""), jpeg("b.jpg", "")}
	_, err := p.Process(context.Background(), files)
	assert.ErrorIs(t, err, ErrAllInvalid)
	assert.Empty(t, blobs.uploads, "no upload may be attempted for an all-invalid batch")
}

func TestProcessToleratesPartialFailure(t *testing.T) {
	blobs := &fakeBlobStore{failUploads: map[string]bool{"bbb": true}}
	p := NewPipeline(blobs)

	files := []File{jpeg("a.jpg", "aaa"), jpeg("b.jpg", "bbb"), jpeg("c.jpg", "ccc")}
	urls, err := p.Process(context.Background(), files)
	require.NoError(t, err, "a partially failed batch must still succeed")
	assert.Len(t, urls, 2)
	assert.Len(t, blobs.uploads, 2)
}

func TestProcessAllUploadsFailed(t *testing.T) {
	blobs := &fakeBlobStore{failUploads: map[string]bool{"aaa": true, "bbb": true}}
	p := NewPipeline(blobs)

	files := []File{jpeg("a.jpg", "aaa"), jpeg("b.jpg", "bbb")}
	_, err := p.Process(context.Background(), files)
	assert.ErrorIs(t, err, ErrAllUploadsFailed)
}

func TestProcessKeysLiveUnderFolder(t *testing.T) {
	blobs := &fakeBlobStore{}
	p := NewPipeline(blobs)

	urls, err := p.Process(context.Background(), []File{jpeg("a.jpg", "aaa")})
	require.NoError(t, err)
	require.Len(t, urls, 1)
	require.Len(t, blobs.uploads, 1)
	assert.True(t, strings.HasPrefix(blobs.uploads[0], Folder+"/"))

	// the key derived from the returned URL round-trips to the upload key
	assert.Equal(t, blobs.uploads[0], KeyFromURL(urls[0]))
}

func TestKeyFromURL(t *testing.T) {
	assert.Equal(t, Folder+"/abc123", KeyFromURL("http://host/bucket/children_profiles/abc123.jpg"))
	assert.Equal(t, Folder+"/abc123", KeyFromURL("http://host/bucket/children_profiles/abc123"))
	assert.Equal(t, Folder+"/photo", KeyFromURL("https://cdn.example.com/x/photo.png"))
}

func TestDeleteAll(t *testing.T) {
	blobs := &fakeBlobStore{}
	p := NewPipeline(blobs)

	failed := p.DeleteAll(context.Background(), []string{
		"http://host/bucket/children_profiles/one.jpg",
		"http://host/bucket/children_profiles/two.jpg",
		"http://host/bucket/children_profiles/three.jpg",
	})
	assert.Zero(t, failed)
	assert.ElementsMatch(t, []string{
		Folder + "/one", Folder + "/two", Folder + "/three",
	}, blobs.removed)
}

func TestDeleteAllToleratesFailures(t *testing.T) {
	blobs := &fakeBlobStore{failRemoves: map[string]bool{Folder + "/two": true}}
	p := NewPipeline(blobs)

	failed := p.DeleteAll(context.Background(), []string{
		"http://host/bucket/children_profiles/one.jpg",
		"http://host/bucket/children_profiles/two.jpg",
	})
	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{Folder + "/one"}, blobs.removed)
}
