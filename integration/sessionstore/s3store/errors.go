package s3store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrymomot/cudatel/core/sessionstore"
)

var (
	ErrInvalidConfig      = errors.New("invalid s3 session store config")
	ErrBucketNotFound     = errors.New("bucket not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrServiceUnavailable = errors.New("s3 service unavailable")
	ErrOperationTimeout   = errors.New("s3 operation timeout")
	ErrOperationCanceled  = errors.New("s3 operation canceled")
)

// classifyS3Error maps SDK errors onto package and sessionstore sentinels.
func classifyS3Error(err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", ErrOperationTimeout, operation, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s: %w", ErrOperationCanceled, operation, err)
	}

	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return sessionstore.ErrNotFound
	}
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return fmt.Errorf("%w: %w", ErrBucketNotFound, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch code := apiErr.ErrorCode(); code {
		case "NoSuchKey", "NotFound":
			return sessionstore.ErrNotFound
		case "NoSuchBucket":
			return fmt.Errorf("%w: %w", ErrBucketNotFound, err)
		case "AccessDenied":
			return fmt.Errorf("%w: %s: %w", ErrAccessDenied, operation, err)
		case "SlowDown", "ServiceUnavailable", "RequestTimeout":
			return fmt.Errorf("%w: %s: %w", ErrServiceUnavailable, operation, err)
		default:
			return fmt.Errorf("%s failed (code: %s): %w", operation, code, err)
		}
	}

	return fmt.Errorf("%s failed: %w", operation, err)
}
