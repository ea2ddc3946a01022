package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/store/model"
)

const resultObjectPrefix = "results/"

type MinioOpts func(c *minioConfig)

type minioConfig struct {
	endpoint        string
	bucket          string
	accessKey       string
	secretAccessKey string
	region          string
	useSSL          bool
}

// ObjectResultStore keeps each result set as a json object in an S3 compatible bucket.
type ObjectResultStore struct {
	cfg    *minioConfig
	client *minio.Client
}

var _ Result = (*ObjectResultStore)(nil)

func NewObjectResultStore(opts ...MinioOpts) (*ObjectResultStore, error) {
	cfg := &minioConfig{region: "us-east-1"}
	for _, o := range opts {
		o(cfg)
	}

	client, err := minio.New(cfg.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.accessKey, cfg.secretAccessKey, ""),
		Secure: cfg.useSSL,
		Region: cfg.region,
	})
	if err != nil {
		return nil, err
	}

	return &ObjectResultStore{cfg: cfg, client: client}, nil
}

func (s *ObjectResultStore) Put(ctx context.Context, id string, rs model.ResultSet) error {
	data, err := json.Marshal(rs)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, s.cfg.bucket, objectKey(id), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("storing results %s: %w", id, err)
	}
	return nil
}

func (s *ObjectResultStore) Get(ctx context.Context, id string) (*model.ResultSet, error) {
	object, err := s.client.GetObject(ctx, s.cfg.bucket, objectKey(id), minio.GetObjectOptions{})
	if err != nil {
		return nil, translateObjectErr(err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, translateObjectErr(err)
	}

	var rs model.ResultSet
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("decoding results %s: %w", id, err)
	}
	return &rs, nil
}

func translateObjectErr(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return ErrRecordNotFound
	}
	return err
}

func objectKey(id string) string {
	return resultObjectPrefix + id + ".json"
}

func WithEndpoint(endpoint string) MinioOpts {
	return func(c *minioConfig) {
		c.endpoint = endpoint
	}
}

func WithBucket(bucket string) MinioOpts {
	return func(c *minioConfig) {
		c.bucket = bucket
	}
}

func WithAccessKey(accessKey string) MinioOpts {
	return func(c *minioConfig) {
		c.accessKey = accessKey
	}
}

func WithSecretKey(secretKey string) MinioOpts {
	return func(c *minioConfig) {
		c.secretAccessKey = secretKey
	}
}

func WithSSL(useSSL bool) MinioOpts {
	return func(c *minioConfig) {
		c.useSSL = useSSL
	}
}
