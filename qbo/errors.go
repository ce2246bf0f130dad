package qbo

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected means no active QuickBooks credential exists.
	ErrNotConnected = errors.New("quickbooks is not connected")

	// ErrRefreshFailed means the token refresh was rejected; the connection
	// must be re-authorized from scratch.
	ErrRefreshFailed = errors.New("quickbooks token refresh failed")

	// ErrRateLimited is returned after the bounded retry limit for 429
	// responses is exhausted.
	ErrRateLimited = errors.New("quickbooks rate limit exceeded")

	// ErrNotSynced means the order has no QuickBooks document reference.
	ErrNotSynced = errors.New("order is not synced to quickbooks")

	// ErrWrongDocType means the requested operation does not apply to the
	// document type the order was posted as.
	ErrWrongDocType = errors.New("operation not supported for this document type")

	// ErrSignatureInvalid means the webhook signature did not verify.
	ErrSignatureInvalid = errors.New("webhook signature verification failed")
)

// RemoteError is a non-2xx response from the QuickBooks API.
type RemoteError struct {
	Op      string
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("quickbooks %s failed: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("quickbooks %s failed: status %d: %s", e.Op, e.Status, e.Message)
}
