package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dafibh/bazaar/bazaar-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjectStore struct {
	headErr  error
	putErr   error
	created  []string
	objects  map[string][]byte
	metadata map[string]map[string]string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{
		objects:  make(map[string][]byte),
		metadata: make(map[string]map[string]string),
	}
}

func (f *fakeObjectStore) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeObjectStore) CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.created = append(f.created, aws.ToString(params.Bucket))
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeObjectStore) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(params.Key)
	f.objects[key] = body
	f.metadata[key] = params.Metadata
	return &s3.PutObjectOutput{}, nil
}

func testArchiveEvent() *domain.PaymentProcessedEvent {
	return &domain.PaymentProcessedEvent{
		OrderID:   8,
		Decimals:  6,
		Amounts:   []uint64{300000},
		Timestamp: time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC).Unix(),
	}
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "settlements/2026/03/14/8.json", ObjectKey(testArchiveEvent()))
}

func TestS3EventArchive_Deliver(t *testing.T) {
	store := newFakeObjectStore()
	archive := &S3EventArchive{client: store, bucket: "settlements"}
	event := testArchiveEvent()

	require.NoError(t, archive.Deliver(context.Background(), []*domain.PaymentProcessedEvent{event}))

	body, ok := store.objects["settlements/2026/03/14/8.json"]
	require.True(t, ok)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "8", decoded["orderId"])
	assert.Equal(t, "8", store.metadata["settlements/2026/03/14/8.json"]["order-id"])

	// redelivery overwrites the same object
	require.NoError(t, archive.Deliver(context.Background(), []*domain.PaymentProcessedEvent{event}))
	assert.Len(t, store.objects, 1)
}

func TestS3EventArchive_DeliverError(t *testing.T) {
	store := newFakeObjectStore()
	store.putErr = errors.New("access denied")
	archive := &S3EventArchive{client: store, bucket: "settlements"}

	err := archive.Deliver(context.Background(), []*domain.PaymentProcessedEvent{testArchiveEvent()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settlement 8")
}

func TestS3EventArchive_EnsureBucket(t *testing.T) {
	t.Run("exists", func(t *testing.T) {
		store := newFakeObjectStore()
		archive := &S3EventArchive{client: store, bucket: "settlements"}
		require.NoError(t, archive.ensureBucket(context.Background()))
		assert.Empty(t, store.created)
	})

	t.Run("missing", func(t *testing.T) {
		store := newFakeObjectStore()
		store.headErr = &types.NotFound{}
		archive := &S3EventArchive{client: store, bucket: "settlements"}
		require.NoError(t, archive.ensureBucket(context.Background()))
		assert.Equal(t, []string{"settlements"}, store.created)
	})

	t.Run("forbidden", func(t *testing.T) {
		store := newFakeObjectStore()
		store.headErr = errors.New("forbidden")
		archive := &S3EventArchive{client: store, bucket: "settlements"}
		assert.Error(t, archive.ensureBucket(context.Background()))
		assert.Empty(t, store.created)
	})
}

func TestS3EventArchive_ReceiptURL(t *testing.T) {
	client := s3.New(s3.Options{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("AKID", "SECRET", ""),
	})
	archive := &S3EventArchive{client: newFakeObjectStore(), presigner: s3.NewPresignClient(client), bucket: "settlements"}

	url, err := archive.ReceiptURL(context.Background(), testArchiveEvent(), 15*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.Contains(url, "settlements/2026/03/14/8.json"), url)
	assert.Contains(t, url, "X-Amz-Expires=900")

	noPresign := &S3EventArchive{client: newFakeObjectStore(), bucket: "settlements"}
	_, err = noPresign.ReceiptURL(context.Background(), testArchiveEvent(), time.Minute)
	assert.Error(t, err)
}
