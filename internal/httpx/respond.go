package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ariefcatur/go-order-workflows/internal/apperr"
	"github.com/ariefcatur/go-order-workflows/internal/logger"
)

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeOK wraps fields in the {"success": true, ...} envelope.
func writeOK(w http.ResponseWriter, code int, fields map[string]any) {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["success"] = true
	writeJSON(w, code, body)
}

// WriteError maps err onto its HTTP status. Internal errors are logged with
// their cause and answered with a generic message.
func WriteError(ctx context.Context, log *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := apperr.As(err)
	if typed == nil {
		typed = apperr.Wrap(apperr.CodeInternal, err, "unexpected error")
	}
	meta := apperr.MetadataFor(typed.Code())

	body := errorBody{Error: string(typed.Code()), Message: meta.PublicMessage}
	if typed.Code() != apperr.CodeInternal && typed.Message() != "" {
		body.Message = typed.Message()
	}
	if meta.DetailsAllowed {
		body.Details = typed.Details()
	}

	if log != nil && meta.HTTPStatus >= http.StatusInternalServerError {
		log.Error(log.WithField(ctx, "error_code", string(typed.Code())), "request.error", err)
	}
	writeJSON(w, meta.HTTPStatus, body)
}
