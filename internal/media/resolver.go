package media

import (
	"context"
	"errors"
	"strings"
	"time"

	"callpower/internal/campaign"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
)

var ErrNoFile = errors.New("media: recording has no file")

// Resolver produces a URL the telephony provider can fetch and play.
type Resolver interface {
	AudioURL(ctx context.Context, a campaign.AudioRecording) (string, error)
}

// StaticResolver uses FileURL as stored, or joins FileKey onto BaseURL.
type StaticResolver struct {
	BaseURL string
}

func (r StaticResolver) AudioURL(ctx context.Context, a campaign.AudioRecording) (string, error) {
	if a.FileURL != "" {
		return a.FileURL, nil
	}
	if a.FileKey != "" && r.BaseURL != "" {
		return strings.TrimRight(r.BaseURL, "/") + "/" + strings.TrimLeft(a.FileKey, "/"), nil
	}
	return "", ErrNoFile
}

// S3Resolver presigns GET URLs for recordings stored in a bucket.
// Recordings without a FileKey fall back to their FileURL.
type S3Resolver struct {
	client *s3.S3
	bucket string
	ttl    time.Duration
}

func NewS3Resolver(client *s3.S3, bucket string, ttl time.Duration) *S3Resolver {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &S3Resolver{client: client, bucket: bucket, ttl: ttl}
}

func (r *S3Resolver) AudioURL(ctx context.Context, a campaign.AudioRecording) (string, error) {
	if a.FileKey == "" {
		return StaticResolver{}.AudioURL(ctx, a)
	}
	if r.client == nil || r.bucket == "" {
		return "", errors.New("media: s3 not configured")
	}
	req, _ := r.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(a.FileKey),
	})
	return req.Presign(r.ttl)
}
