package xhttp

import (
	"net/http"
)

// Error writes a bare JSON error for paths that cannot reach xerrors, such as panic recovery.
func Error(w http.ResponseWriter, status int) {
	WriteJSON(w, status, map[string]string{"message": http.StatusText(status)})
}
