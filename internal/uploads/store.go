package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	// LocalPublicPrefix is the route the local store is served under.
	LocalPublicPrefix = "/uploads"

	localDirectoryMode = 0o755
	localFileMode      = 0o644

	errorMessageLocalWrite = "uploads: write local file"
	errorMessageS3Put      = "uploads: put s3 object"
	errorMessageS3Config   = "uploads: load aws config"
)

var (
	ErrMissingBucket = errors.New("uploads: missing s3 bucket")
	ErrInvalidKey    = errors.New("uploads: invalid object key")
)

// Store persists an object and returns its public URL.
type Store interface {
	Put(ctx context.Context, key string, contentType string, data []byte) (string, error)
}

// LocalStore writes objects below a root directory served at LocalPublicPrefix.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

// Root is the directory the static file route should serve.
func (store *LocalStore) Root() string {
	return store.root
}

func (store *LocalStore) Put(_ context.Context, key string, _ string, data []byte) (string, error) {
	cleanedKey, keyErr := cleanKey(key)
	if keyErr != nil {
		return "", keyErr
	}
	target := filepath.Join(store.root, filepath.FromSlash(cleanedKey))
	if err := os.MkdirAll(filepath.Dir(target), localDirectoryMode); err != nil {
		return "", fmt.Errorf("%s: %w", errorMessageLocalWrite, err)
	}
	if err := os.WriteFile(target, data, localFileMode); err != nil {
		return "", fmt.Errorf("%s: %w", errorMessageLocalWrite, err)
	}
	return LocalPublicPrefix + "/" + cleanedKey, nil
}

// ObjectPutter is the subset of *s3.Client used by S3Store.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config selects the bucket and, for S3-compatible services, the endpoint.
type S3Config struct {
	Bucket        string
	Region        string
	Endpoint      string
	PublicBaseURL string
}

// S3Store uploads objects to a bucket.
type S3Store struct {
	client        ObjectPutter
	bucket        string
	region        string
	publicBaseURL string
}

// NewS3Store loads the default AWS credential chain and builds a client for the bucket.
func NewS3Store(ctx context.Context, configuration S3Config) (*S3Store, error) {
	if strings.TrimSpace(configuration.Bucket) == "" {
		return nil, ErrMissingBucket
	}
	var loadOptions []func(*awsconfig.LoadOptions) error
	if configuration.Region != "" {
		loadOptions = append(loadOptions, awsconfig.WithRegion(configuration.Region))
	}
	awsConfiguration, loadErr := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if loadErr != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageS3Config, loadErr)
	}
	client := s3.NewFromConfig(awsConfiguration, func(options *s3.Options) {
		if configuration.Endpoint != "" {
			options.BaseEndpoint = aws.String(configuration.Endpoint)
			options.UsePathStyle = true
		}
	})
	return NewS3StoreWithClient(client, configuration), nil
}

// NewS3StoreWithClient builds an S3Store around an existing client.
func NewS3StoreWithClient(client ObjectPutter, configuration S3Config) *S3Store {
	return &S3Store{
		client:        client,
		bucket:        strings.TrimSpace(configuration.Bucket),
		region:        configuration.Region,
		publicBaseURL: strings.TrimRight(configuration.PublicBaseURL, "/"),
	}
}

func (store *S3Store) Put(ctx context.Context, key string, contentType string, data []byte) (string, error) {
	cleanedKey, keyErr := cleanKey(key)
	if keyErr != nil {
		return "", keyErr
	}
	_, putErr := store.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(store.bucket),
		Key:           aws.String(cleanedKey),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if putErr != nil {
		return "", fmt.Errorf("%s: %w", errorMessageS3Put, putErr)
	}
	if store.publicBaseURL != "" {
		return store.publicBaseURL + "/" + cleanedKey, nil
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", store.bucket, store.region, cleanedKey), nil
}

func cleanKey(key string) (string, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(key), "/")
	if trimmed == "" || strings.Contains(trimmed, "..") || strings.Contains(trimmed, "\\") {
		return "", ErrInvalidKey
	}
	return trimmed, nil
}
