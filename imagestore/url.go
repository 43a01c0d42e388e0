package imagestore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// FromURL opens the store named by location:
//
//	s3://bucket/prefix            AWS credentials from the default chain
//	minio://host:port/bucket/prefix?secure=false
//	                              credentials from MINIO_ACCESS_KEY / MINIO_SECRET_KEY
//	file:///dir or /dir           a Local store
func FromURL(ctx context.Context, location string) (Store, error) {
	if !strings.Contains(location, "://") {
		return NewLocal(location), nil
	}
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("imagestore: %w", err)
	}

	switch u.Scheme {
	case "file":
		return NewLocal(u.Path), nil

	case "s3":
		if u.Host == "" {
			return nil, fmt.Errorf("imagestore: %q has no bucket", location)
		}
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("imagestore: load aws config: %w", err)
		}
		return NewS3(s3.NewFromConfig(cfg), u.Host, strings.TrimPrefix(u.Path, "/"), DefaultUploadConfig()), nil

	case "minio":
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		if u.Host == "" || bucket == "" {
			return nil, fmt.Errorf("imagestore: %q needs host and bucket", location)
		}
		secure := true
		if v := u.Query().Get("secure"); v != "" {
			if secure, err = strconv.ParseBool(v); err != nil {
				return nil, fmt.Errorf("imagestore: secure=%q: %w", v, err)
			}
		}
		client, err := minio.New(u.Host, &minio.Options{
			Creds:  credentials.NewEnvMinio(),
			Secure: secure,
		})
		if err != nil {
			return nil, fmt.Errorf("imagestore: %w", err)
		}
		return NewMinIO(client, bucket, prefix), nil

	default:
		return nil, fmt.Errorf("imagestore: unsupported scheme %q", u.Scheme)
	}
}
