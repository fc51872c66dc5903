package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/theervu-kaanal/grievance-api/internal/errors"
)

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// WriteAuthError writes the 401 body shape the clients key their
// logout-and-retry behavior off: {"message": ..., "code": ...}.
func WriteAuthError(w http.ResponseWriter, code apperrors.AuthCode, message string) {
	WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"message": message,
		"code":    string(code),
	})
}

// WriteError maps an application error to a status code and JSON body.
// Auth errors keep their wire code; everything else collapses to the
// {"error": message} shape the login endpoints use.
func WriteError(w http.ResponseWriter, err error) {
	var authErr *apperrors.AuthError
	if errors.As(err, &authErr) {
		WriteAuthError(w, authErr.Code, authErr.Message)
		return
	}

	status := http.StatusInternalServerError
	message := "internal server error"

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
		switch appErr.Code {
		case apperrors.ErrCodeValidation:
			status = http.StatusBadRequest
		case apperrors.ErrCodeUnauthorized:
			status = http.StatusUnauthorized
		case apperrors.ErrCodeNotFound:
			status = http.StatusNotFound
		case apperrors.ErrCodeConflict:
			status = http.StatusConflict
		case apperrors.ErrCodeTimeout:
			status = http.StatusGatewayTimeout
		default:
			status = http.StatusInternalServerError
			message = "internal server error"
		}
	}

	WriteJSON(w, status, map[string]string{"error": message})
}
