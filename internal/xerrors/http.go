package xerrors

import (
	"context"
	"log/slog"
	"net/http"

	go_json "github.com/goccy/go-json"

	"github.com/garrettladley/payrelay/internal/xhttp"
	"github.com/garrettladley/payrelay/internal/xslog"
)

type errorResponse struct {
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// WriteError renders err as JSON. Anything that is not an *Error becomes an
// opaque 500 so internal causes never reach the caller.
func WriteError(ctx context.Context, w http.ResponseWriter, err error) {
	appErr := As(err)
	if appErr == nil {
		appErr = Internal(WithCause(err))
	}

	logError(ctx, appErr)

	xhttp.SetHeaderContentTypeApplicationJSON(w)
	if r := appErr.Retry; r != nil {
		if r.After > 0 {
			xhttp.SetHeaderRetryAfter(w, r.After)
		}
		if r.Reason != "" {
			w.Header().Set(xhttp.XRateLimitReason, r.Reason)
		}
	}
	w.WriteHeader(appErr.StatusCode)

	resp := errorResponse{Code: appErr.Code, Message: appErr.Message}
	if appErr.Validation != nil {
		resp.Fields = appErr.Validation.Fields
	}
	_ = go_json.NewEncoder(w).Encode(resp)
}

func logError(ctx context.Context, err *Error) {
	attrs := []any{
		xslog.HTTPStatus(err.StatusCode),
		slog.String("message", err.Message),
	}
	if err.Code != "" {
		attrs = append(attrs, slog.String("code", err.Code))
	}
	if err.Cause != nil {
		attrs = append(attrs, xslog.Error(err.Cause))
	}
	if err.Retry != nil {
		attrs = append(attrs, slog.Duration("retry_after", err.Retry.After))
	}
	if err.Validation != nil {
		attrs = append(attrs, slog.Any("fields", err.Validation.Fields))
	}

	logger := xslog.FromContext(ctx)
	switch {
	case err.StatusCode >= http.StatusInternalServerError:
		logger.ErrorContext(ctx, "server error", attrs...)
	case err.StatusCode >= http.StatusBadRequest:
		logger.WarnContext(ctx, "client error", attrs...)
	default:
		logger.InfoContext(ctx, "error response", attrs...)
	}
}
