package storage

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memBucket is an in-memory objectStore
type memBucket struct {
	mu        sync.Mutex
	objects   map[string][]byte
	buckets   map[string]bool
	failPuts  int
	failCopy  error
	putCalls  int
	copyCalls int
}

func newMemBucket() *memBucket {
	return &memBucket{objects: map[string][]byte{}, buckets: map[string]bool{}}
}

func (m *memBucket) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buckets[bucketName], nil
}

func (m *memBucket) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets[bucketName] = true
	return nil
}

func (m *memBucket) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	if m.failPuts > 0 {
		m.failPuts--
		return minio.UploadInfo{}, errors.New("503 slow down")
	}
	data, _ := io.ReadAll(reader)
	m.objects[objectName] = data
	return minio.UploadInfo{Bucket: bucketName, Key: objectName}, nil
}

func (m *memBucket) CopyObject(ctx context.Context, dst minio.CopyDestOptions, src minio.CopySrcOptions) (minio.UploadInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.copyCalls++
	if m.failCopy != nil {
		return minio.UploadInfo{}, m.failCopy
	}
	data, ok := m.objects[src.Object]
	if !ok {
		return minio.UploadInfo{}, errors.New("no such key")
	}
	m.objects[dst.Object] = data
	return minio.UploadInfo{Bucket: dst.Bucket, Key: dst.Object}, nil
}

func (m *memBucket) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, objectName)
	return nil
}

func (m *memBucket) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	m.mu.Lock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, opts.Prefix) {
			keys = append(keys, k)
		}
	}
	m.mu.Unlock()
	sort.Strings(keys)

	ch := make(chan minio.ObjectInfo)
	go func() {
		defer close(ch)
		for _, k := range keys {
			select {
			case ch <- minio.ObjectInfo{Key: k}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func (m *memBucket) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func newMinio(store *memBucket) *MinioFolderTransport {
	return newMinioTransport(store, MinioConfig{
		Bucket:       "bureau",
		Prefix:       "/projects/",
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
	}, zap.NewNop())
}

func TestMinioFolderTransport_EnsureBucket(t *testing.T) {
	store := newMemBucket()
	tr := newMinio(store)

	require.NoError(t, tr.EnsureBucket(context.Background()))
	assert.True(t, store.buckets["bureau"])
}

func TestMinioFolderTransport_CreateWritesKeepMarker(t *testing.T) {
	store := newMemBucket()
	tr := newMinio(store)
	ctx := context.Background()

	require.NoError(t, tr.CreateFolder(ctx, "Direct/Template/Kazan/Active/Baumana 1 40 m2"))
	assert.Equal(t, []string{"projects/Direct/Template/Kazan/Active/Baumana 1 40 m2/.keep"}, store.keys())

	ok, err := tr.Exists(ctx, "Direct/Template/Kazan/Active/Baumana 1 40 m2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tr.Exists(ctx, "Direct/Template/Kazan/Active/Baumana 1")
	require.NoError(t, err)
	assert.False(t, ok, "a name prefix is not a folder")
}

func TestMinioFolderTransport_RetriesTransientFailures(t *testing.T) {
	store := newMemBucket()
	store.failPuts = 2
	tr := newMinio(store)

	require.NoError(t, tr.CreateFolder(context.Background(), "a/b"))
	assert.Equal(t, 3, store.putCalls)
}

func TestMinioFolderTransport_GivesUpAfterMaxAttempts(t *testing.T) {
	store := newMemBucket()
	store.failPuts = 10
	tr := newMinio(store)

	assert.Error(t, tr.CreateFolder(context.Background(), "a/b"))
	assert.Equal(t, 3, store.putCalls)
}

func TestMinioFolderTransport_CopyAndDelete(t *testing.T) {
	store := newMemBucket()
	tr := newMinio(store)
	ctx := context.Background()

	store.objects["projects/x/Active/flat/.keep"] = nil
	store.objects["projects/x/Active/flat/plan.pdf"] = []byte("plan")
	store.objects["projects/x/Active/flat/photos/1.jpg"] = []byte("jpg")

	require.NoError(t, tr.CopyContents(ctx, "x/Active/flat", "x/Archive/flat"))
	assert.Equal(t, []byte("jpg"), store.objects["projects/x/Archive/flat/photos/1.jpg"])
	assert.Contains(t, store.keys(), "projects/x/Active/flat/plan.pdf")

	require.NoError(t, tr.DeleteFolder(ctx, "x/Active/flat"))
	for _, k := range store.keys() {
		assert.False(t, strings.HasPrefix(k, "projects/x/Active/"), k)
	}
	assert.Len(t, store.keys(), 3)
}

func TestMinioFolderTransport_CopyFailure(t *testing.T) {
	store := newMemBucket()
	store.failCopy = errors.New("access denied")
	store.objects["projects/x/old/a.txt"] = []byte("a")
	tr := newMinio(store)

	err := tr.CopyContents(context.Background(), "x/old", "x/new")
	assert.Error(t, err)
	assert.Contains(t, store.keys(), "projects/x/old/a.txt")
}

func TestMinioFolderTransport_RejectsTraversal(t *testing.T) {
	tr := newMinio(newMemBucket())
	assert.Error(t, tr.CreateFolder(context.Background(), "a/../../b"))
	assert.Error(t, tr.DeleteFolder(context.Background(), "//"))
}
