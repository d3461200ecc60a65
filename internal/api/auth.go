package api

import (
	"crypto/subtle"
	"net/http"
)

// operatorAuthMiddleware requires the operator's basic-auth credentials when
// they are configured. Without them the operator endpoints are open, which
// suits a bench box on a private network.
func (s *Server) operatorAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			s.logger.Warn("rejected operator request", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
			requireAuth(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authenticate checks basic auth against the operator credentials.
func (s *Server) authenticate(r *http.Request) bool {
	if !s.secrets.OperatorAuthEnabled() {
		return true
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	// Evaluate both so a wrong user costs the same as a wrong password.
	userOK := secureCompare(user, s.secrets.OperatorUser)
	passOK := secureCompare(pass, s.secrets.OperatorPass)
	return userOK && passOK
}

// secureCompare performs constant-time string comparison.
func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// requireAuth returns 401 with a WWW-Authenticate challenge.
func requireAuth(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="QuestBox"`)
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "operator credentials required")
}
