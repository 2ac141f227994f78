package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// maxRequestBodySize caps request bodies at 64 KB.
const maxRequestBodySize = 64 << 10

// Error codes returned in the error envelope.
const (
	codeInvalidJSON  = "validation_invalid_json"
	codeInvalidInput = "validation_invalid_input"
	codeNotFound     = "not_found"
	codeUnexpected   = "internal_unexpected_error"
)

// envelope wraps successful responses.
type envelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// apiError is an error that carries its HTTP status and public message.
type apiError struct {
	status  int
	code    string
	message string
	err     error
}

func (e *apiError) Error() string {
	if e.err != nil {
		return e.message + ": " + e.err.Error()
	}
	return e.message
}

func (e *apiError) Unwrap() error { return e.err }

func badRequest(code, message string, err error) *apiError {
	return &apiError{status: http.StatusBadRequest, code: code, message: message, err: err}
}

// writeJSON writes data inside the success envelope.
func writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(envelope{Data: data})
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(errorEnvelope{Error: errorDetail{
			Code:    codeUnexpected,
			Message: "failed to marshal response",
		}})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError writes err in the error envelope. Errors that are not apiErrors
// become a 500 without leaking their message.
func writeError(w http.ResponseWriter, err error) {
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		apiErr = &apiError{
			status:  http.StatusInternalServerError,
			code:    codeUnexpected,
			message: "an unexpected error occurred",
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: errorDetail{
		Code:    apiErr.code,
		Message: apiErr.message,
	}})
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &maxBytesErr):
			return badRequest(codeInvalidJSON, "request body too large", err)
		case errors.As(err, &syntaxErr):
			return badRequest(codeInvalidJSON, "malformed JSON in request body", err)
		case errors.As(err, &typeErr):
			return badRequest(codeInvalidJSON, "invalid value for field "+typeErr.Field, err)
		case strings.HasPrefix(err.Error(), "json: unknown field"):
			return badRequest(codeInvalidJSON,
				"unknown field in request body: "+strings.TrimPrefix(err.Error(), "json: unknown field "), err)
		case errors.Is(err, io.EOF):
			return badRequest(codeInvalidJSON, "request body must not be empty", err)
		default:
			return badRequest(codeInvalidJSON, "invalid request body", err)
		}
	}

	if dec.More() {
		return badRequest(codeInvalidJSON, "request body must contain a single JSON object", nil)
	}
	return nil
}
