package storage

import (
	"errors"
	"fmt"
	"net"
)

// Sentinel errors for classified backend failures. Use errors.Is.
var (
	ErrBucketNotFound = errors.New("storage: bucket not found")
	ErrAccessDenied   = errors.New("storage: access denied")
	ErrThrottled      = errors.New("storage: request throttled")
	ErrUnavailable    = errors.New("storage: backend unavailable")
)

// Error is a failed storage operation with the bucket and key it targeted.
type Error struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	return fmt.Sprintf("storage.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newObjectError(op, bucket, key string, err error) *Error {
	return &Error{Op: op, Bucket: bucket, Key: key, Err: err}
}

// classifyCode maps an S3 error code to a sentinel, or nil when unknown.
// MinIO and AWS share the S3 error code vocabulary.
func classifyCode(code string) error {
	switch code {
	case "NoSuchBucket":
		return ErrBucketNotFound
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "AllAccessDisabled":
		return ErrAccessDenied
	case "SlowDown", "Throttling", "ThrottlingException", "TooManyRequests", "RequestLimitExceeded":
		return ErrThrottled
	case "ServiceUnavailable", "InternalError", "RequestTimeout":
		return ErrUnavailable
	}
	return nil
}

// classify wraps err with a sentinel when code or the error chain identifies one.
func classify(code string, err error) error {
	if kind := classifyCode(code); kind != nil {
		return fmt.Errorf("%w: %w", kind, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
