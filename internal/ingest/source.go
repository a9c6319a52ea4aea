package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/caarlos0/env/v11"

	"github.com/rshade/carbonfocus/internal/awsutil"
	"github.com/rshade/carbonfocus/internal/logging"
)

const (
	// MaxDatasetBytes caps how much of a dataset is read.
	MaxDatasetBytes = 64 << 20

	defaultS3Region = "us-east-1"
)

// ObjectGetter is the subset of the S3 API used to fetch datasets.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config configures the S3 client. Credentials come from the default AWS
// chain (AWS_ACCESS_KEY_ID, profiles, instance roles).
type S3Config struct {
	Region    string `env:"CARBONFOCUS_S3_REGION"`
	Endpoint  string `env:"CARBONFOCUS_S3_ENDPOINT"`
	PathStyle bool   `env:"CARBONFOCUS_S3_PATH_STYLE"`
}

// S3ConfigFromEnv reads S3Config from CARBONFOCUS_S3_* variables.
func S3ConfigFromEnv() (S3Config, error) {
	var cfg S3Config
	if err := env.Parse(&cfg); err != nil {
		return S3Config{}, fmt.Errorf("parsing s3 environment: %w", err)
	}
	return cfg, nil
}

// NewS3Client builds an S3 client. A custom endpoint targets S3-compatible
// services such as MinIO.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = defaultS3Region
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// Reader fetches dataset documents from files or S3.
type Reader struct {
	s3       ObjectGetter
	s3Config S3Config
}

// ReaderOption customizes a Reader.
type ReaderOption func(*Reader)

// WithS3Client uses client for s3:// locations instead of building one.
func WithS3Client(client ObjectGetter) ReaderOption {
	return func(r *Reader) { r.s3 = client }
}

// WithS3Config sets the configuration used to build the S3 client lazily.
func WithS3Config(cfg S3Config) ReaderOption {
	return func(r *Reader) { r.s3Config = cfg }
}

// NewReader returns a Reader.
func NewReader(opts ...ReaderOption) *Reader {
	r := &Reader{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Location is a parsed dataset location. Region is set when an S3
// reference names one.
type Location struct {
	Path   string
	Bucket string
	Key    string
	Region string
}

// IsS3 reports whether the location points at an S3 object.
func (l Location) IsS3() bool { return l.Bucket != "" }

// String renders the location, using s3://bucket/key for S3 objects.
func (l Location) String() string {
	if l.IsS3() {
		return awsutil.S3Object{Bucket: l.Bucket, Key: l.Key}.URI()
	}
	return l.Path
}

// ParseLocation parses an S3 reference (s3://bucket/key, an S3 object ARN or
// a virtual-hosted https URL) or returns a file location.
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, fmt.Errorf("%w: empty", ErrInvalidLocation)
	}
	if !awsutil.IsS3Reference(raw) {
		return Location{Path: raw}, nil
	}
	obj, err := awsutil.ParseS3(raw)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %w", ErrInvalidLocation, err)
	}
	return Location{Bucket: obj.Bucket, Key: obj.Key, Region: obj.Region}, nil
}

// Load reads and parses the dataset at location.
func (r *Reader) Load(ctx context.Context, location string) (*Dataset, error) {
	loc, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}
	data, err := r.read(ctx, loc)
	if err != nil {
		return nil, err
	}
	name := loc.Path
	if loc.IsS3() {
		name = loc.Key
	}
	return Parse(ctx, data, FormatFromPath(name))
}

func (r *Reader) read(ctx context.Context, loc Location) ([]byte, error) {
	log := logging.FromContext(ctx)
	log.Debug().
		Str("component", "ingest").
		Str("operation", "read_dataset").
		Str("location", loc.String()).
		Msg("reading dataset")

	if !loc.IsS3() {
		f, err := os.Open(loc.Path)
		if err != nil {
			return nil, fmt.Errorf("opening dataset: %w", err)
		}
		defer f.Close()
		return readLimited(f)
	}

	client, err := r.s3Client(ctx, loc.Region)
	if err != nil {
		return nil, err
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		log.Error().
			Str("component", "ingest").
			Str("location", loc.String()).
			Err(err).
			Msg("failed to fetch dataset object")
		return nil, fmt.Errorf("fetching %s: %w", loc, err)
	}
	defer out.Body.Close()
	return readLimited(out.Body)
}

// s3Client returns the injected client or builds one. A region carried by the
// location applies only when none is configured.
func (r *Reader) s3Client(ctx context.Context, region string) (ObjectGetter, error) {
	if r.s3 != nil {
		return r.s3, nil
	}
	cfg := r.s3Config
	if cfg.Region == "" {
		cfg.Region = region
	}
	client, err := NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	r.s3 = client
	return client, nil
}

func readLimited(rd io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(rd, MaxDatasetBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	if len(data) > MaxDatasetBytes {
		return nil, fmt.Errorf("dataset exceeds %d bytes", MaxDatasetBytes)
	}
	return data, nil
}
