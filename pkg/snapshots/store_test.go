package snapshots

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memBucket struct {
	objects  map[string]memObject
	listErr  error
	closed   bool
	deadline []time.Time
}

func (b *memBucket) record(ctx context.Context) {
	d, _ := ctx.Deadline()
	b.deadline = append(b.deadline, d)
}

type memObject struct {
	data    []byte
	updated time.Time
}

func newMemBucket() *memBucket { return &memBucket{objects: map[string]memObject{}} }

func (b *memBucket) List(ctx context.Context, prefix string) ([]objectInfo, error) {
	b.record(ctx)
	if b.listErr != nil {
		return nil, b.listErr
	}
	var out []objectInfo
	for name, o := range b.objects {
		if strings.HasPrefix(name, prefix) {
			out = append(out, objectInfo{Name: name, Updated: o.updated})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (b *memBucket) Read(ctx context.Context, name string) ([]byte, error) {
	b.record(ctx)
	o, ok := b.objects[name]
	if !ok {
		return nil, errors.New("object not found")
	}
	return o.data, nil
}

func (b *memBucket) Write(ctx context.Context, name string, data []byte) error {
	b.record(ctx)
	b.objects[name] = memObject{data: append([]byte(nil), data...), updated: time.Now()}
	return nil
}

func (b *memBucket) Close() error {
	b.closed = true
	return nil
}

func TestBlobStoreLatestMissing(t *testing.T) {
	s := newBlobStore(newMemBucket(), "test-bucket", nil)
	_, err := s.Latest(context.Background(), "elabc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBlobStoreLatestPicksMostRecentlyUpdated(t *testing.T) {
	b := newMemBucket()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	// Names sort opposite to update time so selection must use Updated.
	b.objects["elabc/20240501100000.xml"] = memObject{data: []byte("newer"), updated: base.Add(time.Hour)}
	b.objects["elabc/20240501110000.xml"] = memObject{data: []byte("older"), updated: base}
	b.objects["elabcdario/20240601000000.xml"] = memObject{data: []byte("other"), updated: base.Add(48 * time.Hour)}

	s := newBlobStore(b, "test-bucket", nil)
	got, err := s.Latest(context.Background(), "elabc")
	require.NoError(t, err)
	assert.Equal(t, []byte("newer"), got)
}

func TestBlobStoreSaveNamesObject(t *testing.T) {
	b := newMemBucket()
	s := newBlobStore(b, "test-bucket", nil)
	s.now = func() time.Time { return time.Date(2024, 5, 1, 10, 30, 15, 0, time.UTC) }

	require.NoError(t, s.Save(context.Background(), "vozpopuli", []byte("<rss/>")))
	require.Contains(t, b.objects, "vozpopuli/20240501103015.xml")

	got, err := s.Latest(context.Background(), "vozpopuli")
	require.NoError(t, err)
	assert.Equal(t, []byte("<rss/>"), got)

	require.NoError(t, s.Close())
	assert.True(t, b.closed)
}

func TestBlobStoreListError(t *testing.T) {
	b := newMemBucket()
	b.listErr = errors.New("permission denied")
	s := newBlobStore(b, "test-bucket", nil)

	_, err := s.Latest(context.Background(), "elabc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestBoltStoreRoundTrip(t *testing.T) {
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "nested", "snapshots.db"), nil)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	_, err = s.Latest(ctx, "elabc")
	assert.ErrorIs(t, err, ErrNotFound)

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	require.NoError(t, s.Save(ctx, "elabc", []byte("first")))

	clock = clock.Add(time.Minute)
	require.NoError(t, s.Save(ctx, "elabc", []byte("second")))
	require.NoError(t, s.Save(ctx, "other", []byte("unrelated")))

	got, err := s.Latest(ctx, "elabc")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func TestObjectName(t *testing.T) {
	at := time.Date(2024, 12, 31, 23, 59, 58, 0, time.FixedZone("CET", 3600))
	assert.Equal(t, "elabc/20241231225958.xml", objectName("elabc", at))
}

func TestBlobStoreBoundsBucketCalls(t *testing.T) {
	b := newMemBucket()
	s := newBlobStore(b, "test-bucket", nil)
	s.timeout = time.Second

	require.NoError(t, s.Save(context.Background(), "elabc", []byte("<rss/>")))
	_, err := s.Latest(context.Background(), "elabc")
	require.NoError(t, err)

	require.Len(t, b.deadline, 3, "write, list and read")
	for _, d := range b.deadline {
		require.False(t, d.IsZero(), "bucket call without deadline")
		assert.WithinDuration(t, time.Now().Add(time.Second), d, time.Second)
	}
}
