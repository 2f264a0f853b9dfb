package gotrue

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/the-holiday/member-portal-api/internal/ports/out/identity"
)

// errorBody covers both the current and the legacy OAuth-style error payloads.
type errorBody struct {
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func parseError(status int, raw []byte) *identity.AuthError {
	var body errorBody
	_ = json.Unmarshal(raw, &body)

	ae := &identity.AuthError{Status: status, Code: body.ErrorCode}
	if ae.Code == "" {
		ae.Code = body.Error
	}
	for _, m := range []string{body.Msg, body.ErrorDescription, body.Message, body.Error} {
		if strings.TrimSpace(m) != "" {
			ae.Message = m
			break
		}
	}
	if ae.Message == "" {
		ae.Message = http.StatusText(status)
	}

	switch {
	case ae.Code == "invalid_credentials" || ae.Code == "invalid_grant":
		ae.Err = identity.ErrInvalidCredentials
	case ae.Code == "user_already_exists" || ae.Code == "email_exists" || strings.EqualFold(ae.Message, "User already registered"):
		ae.Err = identity.ErrUserAlreadyRegistered
	case ae.Code == "weak_password":
		ae.Err = identity.ErrWeakPassword
	}
	return ae
}
