package uploads

import (
	"context"
	"errors"
	"log"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrEmptyBatch is returned when the pipeline is invoked with no files.
	// Callers that simply have no images to upload should skip the pipeline
	// instead of invoking it empty.
	ErrEmptyBatch = errors.New("no files provided for upload")
	// ErrAllInvalid is returned when every file in the batch was filtered
	// out before any remote call was made.
	ErrAllInvalid = errors.New("all provided files are invalid")
	// ErrAllUploadsFailed is returned when every eligible file failed to
	// upload.
	ErrAllUploadsFailed = errors.New("all file uploads failed")
)

// Folder is the fixed storage folder all profile images live under.
const Folder = "children_profiles"

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

// File is one incoming image: raw bytes plus the declared content type and
// original name. Files are ephemeral; the pipeline never persists them.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// BlobStore is the remote object store the pipeline uploads to.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) (url string, err error)
	Remove(ctx context.Context, key string) error
}

// Pipeline validates a batch of image files and uploads the eligible ones
// concurrently. It is stateless and safe for concurrent use.
type Pipeline struct {
	blobs BlobStore
}

func NewPipeline(blobs BlobStore) *Pipeline {
	return &Pipeline{blobs: blobs}
}

// Allowed reports whether a content type is in the accepted image set.
func Allowed(contentType string) bool {
	return allowedTypes[contentType]
}

// Process filters the batch and uploads every eligible file concurrently,
// waiting for all uploads to settle. A partially failed batch still succeeds:
// the returned URLs are the successful subset, in settlement order. Only a
// fully invalid or fully failed batch is an error.
func (p *Pipeline) Process(ctx context.Context, files []File) ([]string, error) {
	if len(files) == 0 {
		return nil, ErrEmptyBatch
	}

	var valid []File
	for _, f := range files {
		if len(f.Data) == 0 {
			log.Printf("skipping invalid file %q: empty payload", f.Name)
			continue
		}
		if !Allowed(f.ContentType) {
			log.Printf("skipping invalid file %q: content type %q not allowed", f.Name, f.ContentType)
			continue
		}
		valid = append(valid, f)
	}
	if len(valid) == 0 {
		return nil, ErrAllInvalid
	}

	// Fan out one upload per file and wait for every one to settle.
	// Failures never cancel sibling uploads.
	type result struct {
		name string
		url  string
		err  error
	}
	results := make(chan result, len(valid))
	var wg sync.WaitGroup
	for _, f := range valid {
		wg.Add(1)
		go func(f File) {
			defer wg.Done()
			key := Folder + "/" + uuid.New().String()
			url, err := p.blobs.Upload(ctx, key, f.Data, f.ContentType, map[string]string{
				"quality": "auto:good",
			})
			results <- result{name: f.Name, url: url, err: err}
		}(f)
	}
	wg.Wait()
	close(results)

	var urls []string
	for res := range results {
		if res.err != nil {
			log.Printf("upload of %q failed: %v", res.name, res.err)
			continue
		}
		urls = append(urls, res.url)
	}
	if len(urls) == 0 {
		return nil, ErrAllUploadsFailed
	}
	return urls, nil
}

// DeleteAll removes the blobs behind the given URLs concurrently. Failures
// are logged and counted but never abort the caller: orphaned blobs are an
// accepted failure mode when the owning profile is being deleted.
func (p *Pipeline) DeleteAll(ctx context.Context, urls []string) int {
	if len(urls) == 0 {
		return 0
	}

	var wg sync.WaitGroup
	failures := make(chan string, len(urls))
	for _, u := range urls {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			if err := p.blobs.Remove(ctx, KeyFromURL(u)); err != nil {
				log.Printf("delete of %q failed: %v", u, err)
				failures <- u
			}
		}(u)
	}
	wg.Wait()
	close(failures)

	return len(failures)
}

// KeyFromURL derives the storage key for a previously uploaded image: the
// URL's last path segment without its extension, scoped under the fixed
// folder.
func KeyFromURL(url string) string {
	segment := path.Base(url)
	if i := strings.LastIndex(segment, "."); i > 0 {
		segment = segment[:i]
	}
	return Folder + "/" + segment
}
