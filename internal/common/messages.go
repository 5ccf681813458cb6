// File: internal/common/messages.go
package common

const (
	MsgConnection = "Unable to connect. Please check your connection and try again."
	MsgGeneric    = "Something went wrong. Please try again."
)

var codeMessages = map[string]string{
	CodeEmailAlreadyInUse:          "This email is already registered. Try logging in instead.",
	CodeInvalidEmail:               "Please enter a valid email address.",
	CodeWrongPassword:              "Incorrect password. Please try again.",
	CodeUserNotFound:               "No account found with this email.",
	CodeWeakPassword:               "Password is too weak. Please choose a stronger password.",
	CodeUserDisabled:               "This account has been disabled. Please contact support.",
	CodeTooManyRequests:            "Too many attempts. Please wait a moment and try again.",
	CodeRequiresRecentLogin:        "For security reasons, please log in again to complete this action.",
	CodeInvalidCredential:          "Invalid email or password.",
	CodeCredentialAlreadyInUse:     "These credentials are already linked to another account.",
	CodeAccountExistsDifferentCred: "An account already exists with this email using a different sign-in method.",
	CodeNetworkRequestFailed:       MsgConnection,
	CodeUnavailable:                MsgConnection,
	CodePermissionDenied:           "You do not have permission to perform this action.",
	CodeNotFound:                   "The requested data could not be found.",
	CodeNotAuthenticated:           "You need to sign in first.",
}

// UserMessage translates err into the text shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	svcErr, ok := AsServiceError(err)
	if !ok {
		return MsgGeneric
	}
	switch svcErr.Kind {
	case KindValidation:
		if svcErr.Message != "" {
			return svcErr.Message
		}
	case KindTransient:
		return MsgConnection
	}
	if msg, ok := codeMessages[svcErr.Code]; ok {
		return msg
	}
	return MsgGeneric
}
