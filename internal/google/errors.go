package google

import (
	"errors"
	"fmt"
)

// Error codes surfaced to API clients.
const (
	CodeTokenExchangeFailed = "TOKEN_EXCHANGE_FAILED"
	CodeUserInfoFailed      = "USERINFO_FAILED"
	CodeIDTokenInvalid      = "ID_TOKEN_INVALID"
	CodeOAuthRevoked        = "OAUTH_REVOKED"
	CodeDriveListFailed     = "DRIVE_LIST_FAILED"
	CodeDriveMetadataFailed = "DRIVE_METADATA_FAILED"
	CodeDriveDownloadFailed = "DRIVE_DOWNLOAD_FAILED"
)

// Error is a failed Google call with a stable code.
type Error struct {
	Code    string
	Message string
	// Status is the upstream HTTP status, 0 for transport failures.
	Status int
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of a *Error in err's chain, or "".
func CodeOf(err error) string {
	var gErr *Error
	if errors.As(err, &gErr) {
		return gErr.Code
	}
	return ""
}

// IsRevoked reports whether err means the user must reconnect Google.
func IsRevoked(err error) bool {
	return CodeOf(err) == CodeOAuthRevoked
}

// upstreamError is a non-2xx Google response.
type upstreamError struct {
	status int
	body   string
}

func (e *upstreamError) Error() string {
	return fmt.Sprintf("status %d: %s", e.status, e.body)
}

// isClientError reports 4xx responses other than 429; retrying them is pointless.
func isClientError(err error) bool {
	var up *upstreamError
	return errors.As(err, &up) && up.status >= 400 && up.status < 500 && up.status != 429
}

// wrap converts a transport or upstream failure into a coded Error.
func wrap(code, action string, err error) *Error {
	gErr := &Error{Code: code, Err: err}
	var up *upstreamError
	if errors.As(err, &up) {
		gErr.Status = up.status
		gErr.Message = fmt.Sprintf("%s: %s", action, up.body)
	} else {
		gErr.Message = fmt.Sprintf("%s: %v", action, err)
	}
	return gErr
}
