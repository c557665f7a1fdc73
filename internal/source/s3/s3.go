// Package s3 reads the records table from an S3 bucket.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	s3src "github.com/xitongsys/parquet-go-source/s3"

	"seguros/internal/core"
	"seguros/internal/source"
	"seguros/internal/source/codec"
)

// Config locates the object. Endpoint is only needed for S3-compatible
// stores.
type Config struct {
	Bucket   string
	Prefix   string
	Base     string
	Region   string
	Endpoint string
}

// Reader loads <prefix>/<base>.parquet, falling back to <prefix>/<base>.csv.
type Reader struct {
	cfg Config
}

// New returns a reader for the configured object.
func New(cfg Config) *Reader {
	return &Reader{cfg: cfg}
}

// Keys lists the object keys tried, in lookup order.
func (r *Reader) Keys() []string {
	base := r.cfg.Base
	prefix := strings.Trim(r.cfg.Prefix, "/")
	switch strings.ToLower(path.Ext(base)) {
	case ".parquet", ".csv":
		return []string{path.Join(prefix, base)}
	}
	return []string{
		path.Join(prefix, base+".parquet"),
		path.Join(prefix, base+".csv"),
	}
}

// String describes the source for logs.
func (r *Reader) String() string {
	return "s3://" + path.Join(r.cfg.Bucket, strings.Trim(r.cfg.Prefix, "/"), r.cfg.Base)
}

// ReadRecords fetches the first existing key and decodes it.
func (r *Reader) ReadRecords(ctx context.Context) (core.RawTable, error) {
	for _, key := range r.Keys() {
		pf, err := s3src.NewS3FileReader(ctx, r.cfg.Bucket, key, r.awsConfig())
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return core.RawTable{}, fmt.Errorf("open s3://%s/%s: %w", r.cfg.Bucket, key, err)
		}
		if strings.HasSuffix(strings.ToLower(key), ".parquet") {
			return codec.ReadParquet(pf)
		}
		data, err := io.ReadAll(pf)
		pf.Close()
		if err != nil {
			return core.RawTable{}, fmt.Errorf("download s3://%s/%s: %w", r.cfg.Bucket, key, err)
		}
		return codec.DecodeCSV(data)
	}
	return core.RawTable{}, fmt.Errorf("%w: %s", source.ErrNotFound, r)
}

func (r *Reader) awsConfig() *aws.Config {
	cfg := aws.NewConfig()
	if r.cfg.Region != "" {
		cfg = cfg.WithRegion(r.cfg.Region)
	}
	if r.cfg.Endpoint != "" {
		cfg = cfg.WithEndpoint(r.cfg.Endpoint).WithS3ForcePathStyle(true)
	}
	return cfg
}

func isNotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
