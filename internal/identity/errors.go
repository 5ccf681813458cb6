// File: internal/identity/errors.go
package identity

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"account_agent/internal/common"

	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/errorutils"
	"google.golang.org/api/googleapi"
)

// toolkitCodes maps Identity Toolkit error reasons onto provider-neutral codes.
var toolkitCodes = map[string]string{
	"EMAIL_EXISTS":                     common.CodeEmailAlreadyInUse,
	"EMAIL_NOT_FOUND":                  common.CodeUserNotFound,
	"USER_NOT_FOUND":                   common.CodeUserNotFound,
	"INVALID_PASSWORD":                 common.CodeWrongPassword,
	"INVALID_LOGIN_CREDENTIALS":        common.CodeInvalidCredential,
	"INVALID_ID_TOKEN":                 common.CodeInvalidCredential,
	"USER_DISABLED":                    common.CodeUserDisabled,
	"TOO_MANY_ATTEMPTS_TRY_LATER":      common.CodeTooManyRequests,
	"WEAK_PASSWORD":                    common.CodeWeakPassword,
	"INVALID_EMAIL":                    common.CodeInvalidEmail,
	"MISSING_EMAIL":                    common.CodeInvalidEmail,
	"CREDENTIAL_TOO_OLD_LOGIN_AGAIN":   common.CodeRequiresRecentLogin,
	"OPERATION_NOT_ALLOWED":            common.CodePermissionDenied,
	"FEDERATED_USER_ID_ALREADY_LINKED": common.CodeCredentialAlreadyInUse,
}

// translate turns any SDK, REST or transport error into a classified ServiceError.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := common.AsServiceError(err); ok {
		return err
	}

	if errors.Is(err, context.Canceled) {
		return common.NewPermanentError(common.CodeInternal, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return common.NewTransientError(common.CodeNetworkRequestFailed, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return translateToolkit(apiErr)
	}

	switch {
	case auth.IsUserNotFound(err):
		return common.NewPermanentError(common.CodeUserNotFound, err)
	case auth.IsEmailAlreadyExists(err):
		return common.NewPermanentError(common.CodeEmailAlreadyInUse, err)
	case auth.IsIDTokenRevoked(err), auth.IsIDTokenInvalid(err):
		return common.NewPermanentError(common.CodeInvalidCredential, err)
	case auth.IsInsufficientPermission(err):
		return common.NewPermanentError(common.CodePermissionDenied, err)
	case errorutils.IsUnavailable(err), errorutils.IsDeadlineExceeded(err):
		return common.NewTransientError(common.CodeUnavailable, err)
	case errorutils.IsResourceExhausted(err):
		return common.NewPermanentError(common.CodeTooManyRequests, err)
	case errorutils.IsPermissionDenied(err):
		return common.NewPermanentError(common.CodePermissionDenied, err)
	case errorutils.IsInvalidArgument(err):
		return common.NewPermanentError(common.CodeInvalidCredential, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return common.NewTransientError(common.CodeNetworkRequestFailed, err)
	}
	return common.NewPermanentError(common.CodeInternal, err)
}

// translateToolkit reads the reason out of messages like
// "WEAK_PASSWORD : Password should be at least 6 characters".
func translateToolkit(apiErr *googleapi.Error) error {
	if apiErr.Code >= http.StatusInternalServerError {
		return common.NewTransientError(common.CodeUnavailable, apiErr)
	}
	reason := apiErr.Message
	if i := strings.IndexAny(reason, " :"); i >= 0 {
		reason = reason[:i]
	}
	if code, ok := toolkitCodes[reason]; ok {
		return common.NewPermanentError(code, apiErr)
	}
	if apiErr.Code == http.StatusTooManyRequests {
		return common.NewPermanentError(common.CodeTooManyRequests, apiErr)
	}
	return common.NewPermanentError(common.CodeInternal, apiErr)
}

// ForcesSignOut reports whether err means the account behind the session is gone.
func ForcesSignOut(err error) bool {
	switch common.CodeOf(err) {
	case common.CodeUserNotFound, common.CodeUserDisabled, common.CodeInvalidCredential:
		return true
	}
	return false
}
