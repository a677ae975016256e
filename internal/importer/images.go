package importer

import (
	"encoding/base64"
	"path"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sohilsayed/Mangatan-sub002/internal/epub"
)

// imageExtToMIME is the fixed extension-to-MIME table used for extracted
// images. Unknown extensions default to image/png.
var imageExtToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".bmp":  "image/bmp",
}

const defaultImageMIME = "image/png"

// imageStore maps path variants to data-URI image strings. For each image
// at archive path p, three keys resolve to the same canonical string: p,
// "/"+p, and p with a leading slash stripped. Chapter HTML references the
// same image inconsistently; the variants make lookup resilient without
// duplicating bytes.
type imageStore struct {
	mu    sync.Mutex
	blobs map[string]string
}

func newImageStore() *imageStore {
	return &imageStore{blobs: make(map[string]string)}
}

// Register stores one image under its three path-variant keys.
func (s *imageStore) Register(p string, data []byte, mimeType string) {
	uri := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)

	stripped := strings.TrimPrefix(p, "/")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[p] = uri
	s.blobs["/"+stripped] = uri
	s.blobs[stripped] = uri
}

// Lookup resolves a path to its data URI, if registered.
func (s *imageStore) Lookup(p string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uri, ok := s.blobs[p]
	return uri, ok
}

// Blobs returns the underlying variant-keyed map.
func (s *imageStore) Blobs() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blobs
}

// Len returns the number of distinct registered paths, counting each image
// once rather than per variant.
func (s *imageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	distinct := make(map[string]struct{}, len(s.blobs))
	for k := range s.blobs {
		distinct[strings.TrimPrefix(k, "/")] = struct{}{}
	}
	return len(distinct)
}

// mimeForImage returns the MIME type for an image path by extension.
func mimeForImage(p string) string {
	if mime, ok := imageExtToMIME[strings.ToLower(path.Ext(p))]; ok {
		return mime
	}
	return defaultImageMIME
}

// isImagePath reports whether an archive entry name has an image extension.
func isImagePath(p string) bool {
	_, ok := imageExtToMIME[strings.ToLower(path.Ext(p))]
	return ok
}

// extractImages pulls every image entry out of the archive into a store.
// Entries are processed in fixed-size batches; within a batch extraction
// runs concurrently and the batch is awaited in full before the next one
// starts, bounding peak memory to one batch's worth of decoded images.
// Individual failures are logged and omitted; they never fail the parse.
func extractImages(a *epub.Archive, batchSize int, logger *zap.Logger, onBatch func(done, total int)) *imageStore {
	if batchSize <= 0 {
		batchSize = 8
	}

	var paths []string
	for _, p := range a.Paths() {
		if isImagePath(p) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	store := newImageStore()
	for start := 0; start < len(paths); start += batchSize {
		end := start + batchSize
		if end > len(paths) {
			end = len(paths)
		}

		var g errgroup.Group
		for _, p := range paths[start:end] {
			p := p
			g.Go(func() error {
				data, err := a.ReadFile(p)
				if err != nil {
					logger.Warn("image extraction failed, skipping entry",
						zap.String("path", p), zap.Error(err))
					return nil
				}
				store.Register(p, data, mimeForImage(p))
				return nil
			})
		}
		// Goroutines swallow their own errors; Wait only synchronizes.
		_ = g.Wait()

		if onBatch != nil {
			onBatch(end, len(paths))
		}
	}
	return store
}
