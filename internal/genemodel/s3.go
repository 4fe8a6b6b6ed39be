package genemodel

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"
	"github.com/sethvargo/go-retry"
)

// SaveTo writes a finalized store's snapshot to path, which may be a
// local filesystem path or an s3://bucket/key URL.
func SaveTo(ctx context.Context, store *Store, path string) error {
	if !isS3Path(path) {
		return Save(store, path)
	}
	var buf bytes.Buffer
	if err := writeSnapshot(&buf, store); err != nil {
		return err
	}
	bucket, key, err := splitS3Path(path)
	if err != nil {
		return err
	}
	sess, err := session.NewSession()
	if err != nil {
		return errors.Wrap(err, "genemodel: open s3 session")
	}
	client := s3.New(sess)

	backoff, err := newS3Backoff()
	if err != nil {
		return err
	}
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, err := client.PutObjectWithContext(ctx, &s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(buf.Bytes()),
		})
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// LoadFrom reads a snapshot from path, local or s3://, retrying
// transient S3 errors with bounded backoff.
func LoadFrom(ctx context.Context, path string) (*Store, error) {
	if !isS3Path(path) {
		return Load(path)
	}
	bucket, key, err := splitS3Path(path)
	if err != nil {
		return nil, err
	}
	sess, err := session.NewSession()
	if err != nil {
		return nil, errors.Wrap(err, "genemodel: open s3 session")
	}
	client := s3.New(sess)

	backoff, err := newS3Backoff()
	if err != nil {
		return nil, err
	}

	var body []byte
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		out, err := client.GetObjectWithContext(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return retry.RetryableError(err)
		}
		defer out.Body.Close()
		body, err = io.ReadAll(out.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "genemodel: download s3 snapshot")
	}
	return readSnapshot(bytes.NewReader(body))
}

// newS3Backoff builds a fibonacci backoff capped at 5 retries after
// the first attempt, for
// the transient network errors S3 calls hit under load.
func newS3Backoff() (retry.Backoff, error) {
	b, err := retry.NewFibonacci(500 * time.Millisecond)
	if err != nil {
		return nil, errors.Wrap(err, "genemodel: build s3 backoff")
	}
	return retry.WithMaxRetries(5, b), nil
}

func splitS3Path(path string) (bucket, key string, err error) {
	rest := path[len("s3://"):]
	idx := bytes.IndexByte([]byte(rest), '/')
	if idx < 0 {
		return "", "", errors.Errorf("genemodel: malformed s3 path %q", path)
	}
	return rest[:idx], rest[idx+1:], nil
}
