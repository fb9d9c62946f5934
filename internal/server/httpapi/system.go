package httpapi

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/secure-doc/imagey-cloud/internal/filex"
)

// healthCheck is 200 when every dependency answers and 503 otherwise.
func (a *api) healthCheck(w http.ResponseWriter, r *http.Request) {
	for _, p := range a.health {
		if err := p.Ping(r.Context()); err != nil {
			a.logger.Warn(r.Context(), "health check failed", "error", err)
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
	}
	write(w, contentTypeText, []byte("OK"))
}

// acmeChallenge serves HTTP-01 challenge files from the configured
// directory. Names containing a dot are never served.
func (a *api) acmeChallenge(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["file"]
	if a.acmeDir == "" || name == "" || strings.ContainsAny(name, `./\`) {
		http.NotFound(w, r)
		return
	}
	data, ok, err := filex.ReadIfExists(filepath.Join(a.acmeDir, name))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	write(w, contentTypeText, data)
}
