// Package awsutil parses AWS object references used as dataset locations.
package awsutil

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	s3Scheme  = "s3://"
	arnPrefix = "arn:"
	// arnSegments is the number of colon-separated segments in an ARN.
	arnSegments = 6
	// arnRegionIndex is the zero-based index of the region segment in an ARN.
	arnRegionIndex = 3
	s3HostMarker   = ".s3."
	s3HostSuffix   = ".amazonaws.com"
)

// ErrNotS3 is returned by ParseS3 for references that are not S3 objects.
var ErrNotS3 = errors.New("not an s3 object reference")

// ErrMalformedS3 is returned for S3 references missing a bucket or key.
var ErrMalformedS3 = errors.New("malformed s3 object reference")

// S3Object identifies an object. Region is empty unless the reference
// carries one.
type S3Object struct {
	Bucket string
	Key    string
	Region string
}

// URI renders the object as s3://bucket/key.
func (o S3Object) URI() string {
	return s3Scheme + o.Bucket + "/" + o.Key
}

// IsS3Reference reports whether raw looks like an S3 object reference.
func IsS3Reference(raw string) bool {
	raw = strings.TrimSpace(raw)
	return strings.HasPrefix(raw, s3Scheme) ||
		strings.HasPrefix(raw, "arn:aws:s3:") ||
		isVirtualHostedURL(raw)
}

// ParseS3 parses s3://bucket/key, arn:aws:s3:::bucket/key and
// https://bucket.s3.region.amazonaws.com/key references.
func ParseS3(raw string) (S3Object, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, s3Scheme):
		return split(raw, strings.TrimPrefix(raw, s3Scheme), "")
	case strings.HasPrefix(raw, arnPrefix):
		parts := strings.SplitN(raw, ":", arnSegments)
		if len(parts) < arnSegments || parts[2] != "s3" {
			return S3Object{}, fmt.Errorf("%w: %q", ErrNotS3, raw)
		}
		return split(raw, parts[arnSegments-1], parts[arnRegionIndex])
	case isVirtualHostedURL(raw):
		u, err := url.Parse(raw)
		if err != nil {
			return S3Object{}, fmt.Errorf("%w: %q: %w", ErrMalformedS3, raw, err)
		}
		bucket, rest, _ := strings.Cut(u.Host, s3HostMarker)
		region := strings.TrimSuffix(rest, s3HostSuffix)
		return split(raw, bucket+u.Path, region)
	default:
		return S3Object{}, fmt.Errorf("%w: %q", ErrNotS3, raw)
	}
}

// RegionFromARN extracts the region segment of an ARN. Returns "" when the
// ARN is malformed or global.
func RegionFromARN(arn string) string {
	parts := strings.Split(arn, ":")
	if len(parts) < arnSegments {
		return ""
	}
	return parts[arnRegionIndex]
}

func split(raw, path, region string) (S3Object, error) {
	bucket, key, ok := strings.Cut(path, "/")
	if !ok || bucket == "" || key == "" {
		return S3Object{}, fmt.Errorf("%w: %q (want bucket and key)", ErrMalformedS3, raw)
	}
	return S3Object{Bucket: bucket, Key: key, Region: region}, nil
}

func isVirtualHostedURL(raw string) bool {
	if !strings.HasPrefix(raw, "https://") {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.Contains(u.Host, s3HostMarker) && strings.HasSuffix(u.Host, s3HostSuffix)
}
