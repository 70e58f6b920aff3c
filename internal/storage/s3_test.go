package storage_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3aws "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/origan-dev/gateway/internal/storage"
)

// mockS3Client implements storage.S3Client over a map.
type mockS3Client struct {
	objects map[string][]byte
	getErr  error
	putErr  error
}

func newMockS3Client() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) GetObject(ctx context.Context, params *s3aws.GetObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3aws.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3Client) PutObject(ctx context.Context, params *s3aws.PutObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.objects[aws.ToString(params.Key)] = data
	return &s3aws.PutObjectOutput{}, nil
}

func (m *mockS3Client) HeadObject(ctx context.Context, params *s3aws.HeadObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.HeadObjectOutput, error) {
	if _, ok := m.objects[aws.ToString(params.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3aws.HeadObjectOutput{}, nil
}

func (m *mockS3Client) DeleteObject(ctx context.Context, params *s3aws.DeleteObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.DeleteObjectOutput, error) {
	delete(m.objects, aws.ToString(params.Key))
	return &s3aws.DeleteObjectOutput{}, nil
}

func newTestS3(t *testing.T, client storage.S3Client) *storage.S3Store {
	t.Helper()
	store, err := storage.NewS3(context.Background(),
		storage.Config{Bucket: "test-bucket", Region: "us-east-1"},
		storage.WithS3Client(client))
	require.NoError(t, err)
	return store
}

func TestNewS3RequiresBucket(t *testing.T) {
	t.Parallel()

	_, err := storage.NewS3(context.Background(), storage.Config{Region: "us-east-1"})
	assert.ErrorIs(t, err, storage.ErrInvalidConfig)
}

func TestS3StoreRoundTrip(t *testing.T) {
	t.Parallel()

	client := newMockS3Client()
	store := newTestS3(t, client)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "deployments/d1/app/index.html", []byte("<html>"), "text/html"))

	data, err := store.Get(ctx, "deployments/d1/app/index.html")
	require.NoError(t, err)
	assert.Equal(t, []byte("<html>"), data)

	assert.True(t, store.Exists(ctx, "deployments/d1/app/index.html"))
	assert.False(t, store.Exists(ctx, "deployments/d1/app/missing.js"))
}

func TestS3StoreGetMissingObject(t *testing.T) {
	t.Parallel()

	store := newTestS3(t, newMockS3Client())

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestS3StoreDelete(t *testing.T) {
	t.Parallel()

	client := newMockS3Client()
	store := newTestS3(t, client)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "certs/site.example.com", []byte("pem"), ""))
	require.NoError(t, store.Delete(ctx, "certs/site.example.com"))

	err := store.Delete(ctx, "certs/site.example.com")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestS3StoreRejectsTraversalKeys(t *testing.T) {
	t.Parallel()

	store := newTestS3(t, newMockS3Client())
	ctx := context.Background()

	for _, key := range []string{"", "../secrets", "deployments/../../etc/passwd"} {
		_, err := store.Get(ctx, key)
		assert.ErrorIs(t, err, storage.ErrInvalidKey, key)
	}
}

func TestS3StoreStripsLeadingSlash(t *testing.T) {
	t.Parallel()

	client := newMockS3Client()
	store := newTestS3(t, client)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "/certs/a.pem", []byte("x"), ""))

	_, ok := client.objects["certs/a.pem"]
	assert.True(t, ok, "keys are stored without the leading slash")

	data, err := store.Get(ctx, "certs/a.pem")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
}

func TestMemoryStoreIsolation(t *testing.T) {
	t.Parallel()

	store := storage.NewMemory()
	ctx := context.Background()

	original := []byte("original")
	require.NoError(t, store.Put(ctx, "k", original, ""))

	// Mutating the caller's slice must not affect the stored copy.
	original[0] = 'X'

	data, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), data)
}
