package handler

import (
	"net/http"

	"github.com/garrettladley/payrelay/internal/xhttp"
)

// HandleSuccess is the landing page the provider redirects to after payment.
func HandleSuccess(w http.ResponseWriter, _ *http.Request) {
	xhttp.WriteText(w, http.StatusOK, "success")
}

// HandleCancel is the landing page the provider redirects to when checkout is abandoned.
func HandleCancel(w http.ResponseWriter, _ *http.Request) {
	xhttp.WriteText(w, http.StatusOK, "cancel")
}
