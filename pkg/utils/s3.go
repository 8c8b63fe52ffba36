package utils

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Config controls the object storage client.
// Endpoint is optional and enables S3-compatible stores (minio, etc.).
type S3Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

func (c S3Config) withDefaults() S3Config {
	out := c
	if out.Region == "" {
		out.Region = "us-east-1"
	}
	return out
}

// OpenS3 builds an S3 client. Static credentials are used when provided,
// otherwise the default AWS credential chain applies.
func OpenS3(cfg S3Config) (*s3.S3, error) {
	cfg = cfg.withDefaults()

	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("s3 session: %w", err)
	}
	return s3.New(sess), nil
}
