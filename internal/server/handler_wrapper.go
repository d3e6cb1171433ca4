package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"

	apierrors "github.com/maruel/dundie/internal/errors"
)

// maxBodySize bounds request bodies.
const maxBodySize = 1 << 20

// Wrap wraps a handler function to work as an http.Handler.
// The function must have signature: func(context.Context, In) (*Out, error)
// where In can be unmarshalled from JSON and Out is a struct.
// Struct fields tagged `path:"name"` are set from path parameters and fields
// tagged `query:"name"` from query parameters.
//
// Example:
//
//	type StatementRequest struct {
//	    Email string `path:"email"`
//	}
//
//	func (h *Handler) Statement(ctx context.Context, req StatementRequest) (*Response, error)
func Wrap[In any, Out any](fn func(context.Context, In) (*Out, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var input In
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err2 := r.Body.Close(); err == nil {
			err = err2
		}
		if err != nil {
			slog.ErrorContext(ctx, "Failed to read request body", "err", err)
			writeError(w, http.StatusBadRequest, apierrors.ErrValidationFailed, "Failed to read request body", nil)
			return
		}
		if len(body) > 0 {
			if err := decodeStrict(body, &input); err != nil {
				slog.ErrorContext(ctx, "Failed to decode request body", "err", err)
				writeError(w, http.StatusBadRequest, apierrors.ErrValidationFailed, "Invalid request body", nil)
				return
			}
		}
		populateParams(&input, "path", r.PathValue)
		populateParams(&input, "query", r.URL.Query().Get)

		output, err := fn(ctx, input)
		if err != nil {
			statusCode := http.StatusInternalServerError
			code := apierrors.ErrInternal
			var details map[string]any
			var ews apierrors.ErrorWithStatus
			if errors.As(err, &ews) {
				statusCode = ews.StatusCode()
				code = ews.Code()
				details = ews.Details()
			}
			slog.ErrorContext(ctx, "Handler error", "err", err, "statusCode", statusCode, "code", code)
			writeError(w, statusCode, code, err.Error(), details)
			return
		}
		writeJSON(ctx, w, http.StatusOK, output)
	})
}

func decodeStrict(body []byte, v any) error {
	d := json.NewDecoder(bytes.NewReader(body))
	d.DisallowUnknownFields()
	return d.Decode(v)
}

// populateParams sets the string and int fields of the struct pointed to by
// input whose tag named tagName is found by get.
func populateParams(input any, tagName string, get func(string) string) {
	val := reflect.ValueOf(input)
	if val.Kind() != reflect.Pointer || val.Elem().Kind() != reflect.Struct {
		return
	}
	elem := val.Elem()
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		name := field.Tag.Get(tagName)
		if name == "" {
			continue
		}
		v := get(name)
		if v == "" {
			continue
		}
		//nolint:exhaustive // Only string and int parameters are supported.
		switch field.Type.Kind() {
		case reflect.String:
			elem.Field(i).SetString(v)
		case reflect.Int:
			if n, err := strconv.Atoi(v); err == nil {
				elem.Field(i).SetInt(int64(n))
			}
		default:
		}
	}
}

func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(ctx, "Failed to encode response", "err", err)
	}
}

// writeError writes an error response as JSON with code and details.
func writeError(w http.ResponseWriter, statusCode int, code apierrors.ErrorCode, message string, details map[string]any) {
	response := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
	if len(details) > 0 {
		response["details"] = details
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}
