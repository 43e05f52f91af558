package contentstore_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-publishing/internal/adapters/contentstore"
	"github.com/goliatone/go-publishing/pkg/interfaces"
)

type mockS3Client struct {
	mock.Mock
}

func (m *mockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func (m *mockS3Client) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(*s3.DeleteObjectOutput), args.Error(1)
}

func responseError(status int) error {
	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
			Err:      errors.New("s3 failure"),
		},
	}
}

func TestS3StorePutItem(t *testing.T) {
	client := new(mockS3Client)
	store := contentstore.NewS3StoreWithClient(client, "archive", "/live/")

	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		body, _ := io.ReadAll(in.Body)
		return *in.Bucket == "archive" &&
			*in.Key == "live/guidance/vat-rates.json" &&
			*in.ContentType == "application/json" &&
			string(body) == `{"title":"VAT"}`
	})).Return(&s3.PutObjectOutput{}, nil)

	require.NoError(t, store.PutItem(context.Background(), "/guidance/vat-rates", []byte(`{"title":"VAT"}`)))
	client.AssertExpectations(t)
}

func TestS3StoreObjectKey(t *testing.T) {
	store := contentstore.NewS3StoreWithClient(new(mockS3Client), "archive", "")
	assert.Equal(t, "index.json", store.ObjectKey("/"))
	assert.Equal(t, "vat-rates.json", store.ObjectKey("/vat-rates"))
}

func TestS3StoreClassifiesErrors(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		notFound  bool
		transient bool
	}{
		{name: "missing key", err: &smithy.GenericAPIError{Code: "NoSuchKey"}, notFound: true},
		{name: "server error", err: responseError(http.StatusInternalServerError), transient: true},
		{name: "forbidden", err: responseError(http.StatusForbidden)},
		{name: "network", err: errors.New("dial tcp: refused"), transient: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := new(mockS3Client)
			client.On("DeleteObject", mock.Anything, mock.Anything).Return((*s3.DeleteObjectOutput)(nil), tc.err)
			store := contentstore.NewS3StoreWithClient(client, "archive", "live")

			err := store.DeleteItem(context.Background(), "/vat-rates")
			require.Error(t, err)
			if tc.notFound {
				assert.ErrorIs(t, err, interfaces.ErrStoreNotFound)
				return
			}
			assert.Equal(t, tc.transient, interfaces.IsTransient(err))
		})
	}
}
