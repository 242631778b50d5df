package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/fitsync/internal/common"
	sc "github.com/dmitrijs2005/fitsync/internal/server/config"
)

// PresignExpiry is how long a presigned media URL stays valid.
const PresignExpiry = 15 * time.Minute

const mediaPrefix = "media/"

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// MediaService hands out presigned S3 URLs for post images. Clients upload
// and download the bytes directly against the object store.
type MediaService struct {
	config *sc.Config
	now    func() time.Time
}

func NewMediaService(config *sc.Config) *MediaService {
	return &MediaService{config: config, now: time.Now}
}

// StorageKey returns a fresh object key under the owner's prefix.
func (s *MediaService) StorageKey(owner string) string {
	d := s.now().UTC()
	return fmt.Sprintf("%s%s/%d/%d/%d/%v", mediaPrefix, owner, d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *MediaService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// PresignUpload returns a new storage key and a PUT URL for it. Only image
// content types are accepted.
func (s *MediaService) PresignUpload(ctx context.Context, owner, contentType string) (string, string, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", "", fmt.Errorf("%w: content type %q is not an image", common.ErrorInvalidArgument, contentType)
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return "", "", err
	}

	bucket := s.config.S3Bucket
	key := s.StorageKey(owner)

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return "", "", err
	}

	return key, req.URL, nil
}

// PresignDownload returns a GET URL for key.
func (s *MediaService) PresignDownload(ctx context.Context, key string) (string, error) {
	if !strings.HasPrefix(key, mediaPrefix) || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: bad media key %q", common.ErrorInvalidArgument, key)
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}
