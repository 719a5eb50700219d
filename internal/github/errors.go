package github

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

const permissionHint = "Please make sure the workflow token has 'checks: write' and 'pull-requests: write' permissions."

// PublishError is the failure of one independent publishing surface.
type PublishError struct {
	Surface string
	Err     error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("failed to publish %s: %v", e.Surface, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// Hint returns advice for errors caused by missing token permissions, or an
// empty string.
func (e *PublishError) Hint() string {
	var apiErr *APIError
	if errors.As(e.Err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusForbidden, http.StatusNotFound, http.StatusUnauthorized:
			return permissionHint
		}
	}
	return ""
}
