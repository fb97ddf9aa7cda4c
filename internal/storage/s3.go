package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// s3KeyPrefix namespaces attachment objects inside the bucket.
const s3KeyPrefix = "contacts/"

// S3 stores attachments as private objects.  References are the object
// keys ("contacts/<name>").
type S3 struct {
	client *s3.Client
	bucket string
}

// S3Options configures NewS3.  Endpoint selects an S3-compatible service
// (MinIO, Spaces) and switches to path-style addressing; empty uses AWS.
// Empty keys fall back to the default AWS credential chain.
type S3Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

func NewS3(ctx context.Context, o S3Options) (*S3, error) {
	loaders := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(o.Region)}
	if o.AccessKey != "" {
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(opts *s3.Options) {
		if o.Endpoint != "" {
			opts.BaseEndpoint = aws.String(o.Endpoint)
			opts.UsePathStyle = true
		}
	})
	return &S3{client: client, bucket: o.Bucket}, nil
}

func (s *S3) Save(ctx context.Context, ext string, r io.Reader, size int64, contentType string) (string, error) {
	key := s3KeyPrefix + objectName(ext)
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPrivate,
	}
	if size > 0 {
		in.ContentLength = aws.Int64(size)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	return key, nil
}

func (s *S3) key(ref string) (string, error) {
	if !strings.HasPrefix(ref, s3KeyPrefix) || len(ref) == len(s3KeyPrefix) {
		return "", ErrUnknownRef
	}
	return ref, nil
}

func (s *S3) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	key, err := s.key(ref)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	return out.Body, nil
}

// Remove deletes the object.  S3 DeleteObject succeeds for absent keys.
func (s *S3) Remove(ctx context.Context, ref string) error {
	key, err := s.key(ref)
	if err != nil {
		return err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)}); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
