package k8s

import (
	"errors"
	"fmt"
	"net/http"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// Error labels identify the service that failed. They are surfaced to API
// callers as the "code" field.
const (
	LabelDevWorkspace   = "DEVWORKSPACE_API_ERROR"
	LabelTemplate       = "DEVWORKSPACE_TEMPLATE_API_ERROR"
	LabelSshKeys        = "SSH_KEYS_API_ERROR"
	LabelToken          = "PERSONAL_ACCESS_TOKEN_API_ERROR"
	LabelGitConfig      = "GITCONFIG_API_ERROR"
	LabelPreferences    = "DEVWORKSPACE_PREFERENCES_API_ERROR"
	LabelDockerConfig   = "DOCKER_CONFIG_API_ERROR"
	LabelPod            = "POD_API_ERROR"
	LabelEvent          = "EVENT_API_ERROR"
	LabelLogs           = "LOGS_API_ERROR"
	LabelNamespace      = "NAMESPACE_API_ERROR"
	LabelUserProfile    = "USER_PROFILE_API_ERROR"
	LabelInvalidRequest = "INVALID_REQUEST"
)

type Error struct {
	Label   string
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Label, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Label, e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// createError wraps err with a label and a human readable message. The HTTP
// status follows the Kubernetes API status carried by err, if any.
func createError(err error, label, message string) *Error {
	status := http.StatusInternalServerError
	var apiStatus apierrors.APIStatus
	if errors.As(err, &apiStatus) {
		if code := apiStatus.Status().Code; code != 0 {
			status = int(code)
		}
	}
	return &Error{Label: label, Message: message, Status: status, Err: err}
}

func invalid(label, format string, args ...any) *Error {
	return &Error{Label: label, Message: fmt.Sprintf(format, args...), Status: http.StatusBadRequest}
}

func notFound(label, format string, args ...any) *Error {
	return &Error{Label: label, Message: fmt.Sprintf(format, args...), Status: http.StatusNotFound}
}

func conflict(label, format string, args ...any) *Error {
	return &Error{Label: label, Message: fmt.Sprintf(format, args...), Status: http.StatusConflict}
}

// StatusOf returns the HTTP status carried by err, 500 for foreign errors.
func StatusOf(err error) int {
	var ke *Error
	if errors.As(err, &ke) {
		return ke.Status
	}
	return http.StatusInternalServerError
}

func IsNotFound(err error) bool { return StatusOf(err) == http.StatusNotFound }
