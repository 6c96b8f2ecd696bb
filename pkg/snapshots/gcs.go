package snapshots

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/samvad-hq/rss-opinion/internal/logger"
)

// requestTimeout bounds each bucket call.
const requestTimeout = 60 * time.Second

// objectInfo is the subset of object attributes used for latest selection.
type objectInfo struct {
	Name    string
	Updated time.Time
}

// bucket abstracts the object operations so the selection logic is testable.
type bucket interface {
	List(ctx context.Context, prefix string) ([]objectInfo, error)
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
	Close() error
}

// BlobStore implements Store on top of an object bucket.
type BlobStore struct {
	bucket  bucket
	name    string
	now     func() time.Time
	timeout time.Duration
	log     logger.Logger
}

// NewGCSStore opens a Cloud Storage backed store. credentialsJSON may be empty
// to use application default credentials.
func NewGCSStore(ctx context.Context, bucketName string, credentialsJSON []byte, log logger.Logger) (*BlobStore, error) {
	var opts []option.ClientOption
	if len(credentialsJSON) > 0 {
		opts = append(opts, option.WithCredentialsJSON(credentialsJSON))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return newBlobStore(&gcsBucket{client: client, handle: client.Bucket(bucketName)}, bucketName, log), nil
}

func newBlobStore(b bucket, name string, log logger.Logger) *BlobStore {
	return &BlobStore{bucket: b, name: name, now: time.Now, timeout: requestTimeout, log: logger.Ensure(log)}
}

// Latest downloads the most recently updated document under the key's prefix.
func (s *BlobStore) Latest(ctx context.Context, key string) ([]byte, error) {
	listCtx, cancel := context.WithTimeout(ctx, s.timeout)
	objects, err := s.bucket.List(listCtx, prefix(key))
	cancel()
	if err != nil {
		return nil, fmt.Errorf("list %s/%s: %w", s.name, prefix(key), err)
	}
	if len(objects) == 0 {
		s.log.InfoObj("no stored snapshot found", "snapshot_missing", map[string]any{
			"bucket": s.name,
			"prefix": prefix(key),
		})
		return nil, ErrNotFound
	}

	latest := objects[0]
	for _, o := range objects[1:] {
		if o.Updated.After(latest.Updated) {
			latest = o
		}
	}

	readCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	data, err := s.bucket.Read(readCtx, latest.Name)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", s.name, latest.Name, err)
	}
	s.log.DebugObj("stored snapshot downloaded", "snapshot_loaded", map[string]any{
		"bucket": s.name,
		"object": latest.Name,
		"bytes":  len(data),
	})
	return data, nil
}

// Save uploads doc as a new object under the key's prefix.
func (s *BlobStore) Save(ctx context.Context, key string, doc []byte) error {
	name := objectName(key, s.now())
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.bucket.Write(ctx, name, doc); err != nil {
		return fmt.Errorf("write %s/%s: %w", s.name, name, err)
	}
	s.log.InfoObj("snapshot uploaded", "snapshot_saved", map[string]any{
		"bucket": s.name,
		"object": name,
		"bytes":  len(doc),
	})
	return nil
}

// Close releases the underlying client.
func (s *BlobStore) Close() error {
	return s.bucket.Close()
}

type gcsBucket struct {
	client *storage.Client
	handle *storage.BucketHandle
}

func (b *gcsBucket) List(ctx context.Context, prefix string) ([]objectInfo, error) {
	it := b.handle.Objects(ctx, &storage.Query{Prefix: prefix})
	var out []objectInfo
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, objectInfo{Name: attrs.Name, Updated: attrs.Updated})
	}
}

func (b *gcsBucket) Read(ctx context.Context, name string) ([]byte, error) {
	r, err := b.handle.Object(name).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (b *gcsBucket) Write(ctx context.Context, name string, data []byte) error {
	w := b.handle.Object(name).NewWriter(ctx)
	w.ContentType = "application/xml"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (b *gcsBucket) Close() error {
	return b.client.Close()
}
