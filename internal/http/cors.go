package http

import "net/http"

// corsPolicy applies an origin whitelist. An empty whitelist reflects any
// origin; with a whitelist, unknown origins get 403 on actual requests.
type corsPolicy struct {
	allowed map[string]bool
}

func newCORSPolicy(origins []string) *corsPolicy {
	p := &corsPolicy{}
	if len(origins) > 0 {
		p.allowed = make(map[string]bool, len(origins))
		for _, o := range origins {
			p.allowed[o] = true
		}
	}
	return p
}

// apply sets CORS headers and answers preflights. Returns true when the
// request has been fully handled and must not reach the handler.
func (p *corsPolicy) apply(w http.ResponseWriter, r *http.Request) bool {
	origin := r.Header.Get("Origin")

	allowOrigin := "*"
	if origin != "" && (p.allowed == nil || p.allowed[origin]) {
		allowOrigin = origin
	}
	w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	if allowOrigin != "*" {
		w.Header().Set("Vary", "Origin")
	}

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return true
	}
	if p.allowed != nil && origin != "" && !p.allowed[origin] {
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return true
	}
	return false
}
