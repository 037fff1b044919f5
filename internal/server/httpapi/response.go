package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/volunteerhub/internal/common"
)

// Response messages fixed by the public API.
const (
	MsgInvalidCredentials = "Invalid credentials"
	MsgMissingToken       = "No token provided"
	MsgInvalidToken       = "Invalid or expired token"
	MsgUnauthorized       = "Unauthorized"
	MsgForbidden          = "Forbidden"
	MsgEmailTaken         = "Email already registered"
	MsgNotFound           = "Not found"
	MsgInternal           = "Internal server error"
	MsgLoginOK            = "Login successful"
	MsgLogoutOK           = "Logout successful"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// statusFor maps an error onto the status code and client-facing message.
// Internal errors never expose their text.
func statusFor(err error) (int, string) {
	switch common.Kind(err) {
	case common.KindInvalidCredentials:
		return http.StatusUnauthorized, MsgInvalidCredentials
	case common.KindMissingToken:
		return http.StatusBadRequest, MsgMissingToken
	case common.KindInvalidToken:
		return http.StatusUnauthorized, MsgInvalidToken
	case common.KindUnauthorized:
		return http.StatusUnauthorized, MsgUnauthorized
	case common.KindForbidden:
		return http.StatusForbidden, MsgForbidden
	case common.KindValidation:
		return http.StatusBadRequest, err.Error()
	case common.KindAlreadyExists:
		return http.StatusConflict, MsgEmailTaken
	case common.KindNotFound:
		return http.StatusNotFound, MsgNotFound
	default:
		return http.StatusInternalServerError, MsgInternal
	}
}

// parseJSON decodes a bounded request body into dest. Decode failures are
// validation errors.
func parseJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", common.ErrValidation)
		}
		return fmt.Errorf("%w: invalid JSON", common.ErrValidation)
	}
	return nil
}
