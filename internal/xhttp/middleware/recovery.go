package middleware

import (
	"net/http"

	"github.com/garrettladley/payrelay/internal/xhttp"
	"github.com/garrettladley/payrelay/internal/xslog"
)

// Recovery turns a handler panic into a 500. For webhook deliveries that means
// the provider redelivers, and the ledger keeps a half-finished relay from
// publishing twice.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			if err == http.ErrAbortHandler {
				panic(err)
			}
			xslog.FromContext(r.Context()).ErrorContext(
				r.Context(),
				"panic recovered",
				xslog.RequestGroup(r),
				xslog.ErrorGroupWithStack(err),
			)
			xhttp.Error(w, http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, r)
	})
}
