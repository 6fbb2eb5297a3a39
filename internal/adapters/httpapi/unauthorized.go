package httpapi

import (
	"encoding/json"
	"net/http"
)

const (
	CauseAuthenticationRequired = "Full authentication is required to access this resource"
	CauseBadCredentials         = "Bad credentials"
)

// UnauthorizedResponse is the body of every 401 produced by the authentication layer.
type UnauthorizedResponse struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Path    string `json:"path"`
}

// WriteUnauthorized writes a 401 describing cause for the request path.
func WriteUnauthorized(w http.ResponseWriter, r *http.Request, cause string) {
	path := ""
	if r != nil && r.URL != nil {
		path = r.URL.Path
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(UnauthorizedResponse{
		Status:  http.StatusUnauthorized,
		Error:   "Unauthorized",
		Message: cause,
		Path:    path,
	})
}
