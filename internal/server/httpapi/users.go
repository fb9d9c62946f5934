package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"github.com/secure-doc/imagey-cloud/internal/common"
	"github.com/secure-doc/imagey-cloud/internal/server/auth"
	"github.com/secure-doc/imagey-cloud/internal/server/models"
)

const (
	maxKeyBody     = 1 << 20
	maxContentBody = 64 << 20
)

const (
	contentTypeJSON   = "application/json"
	contentTypeText   = "text/plain; charset=utf-8"
	contentTypeBinary = "application/octet-stream"
)

// readBody reads at most limit bytes of the request body.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: body exceeds %d bytes", common.ErrorValidation, limit)
		}
		return nil, fmt.Errorf("%w: read body: %v", common.ErrorValidation, err)
	}
	return body, nil
}

func write(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *api) respondStarted(w http.ResponseWriter, status models.AuthenticationStatus) {
	if status == models.RegistrationStarted {
		w.WriteHeader(http.StatusCreated)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// startVerification mails a sign-in or registration link to the user in the
// path.
func (a *api) startVerification(w http.ResponseWriter, r *http.Request) {
	user := models.User{Email: mux.Vars(r)["email"]}
	status, err := a.auth.StartAuthentication(r.Context(), user)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respondStarted(w, status)
}

// createUser accepts either a bare {"email"} body, which starts the
// verification like startVerification, or a complete registration. The
// latter needs a token cookie whose subject is the user being registered.
func (a *api) createUser(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r, maxKeyBody)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var reg models.Registration
	if err := json.Unmarshal(body, &reg); err != nil {
		a.fail(w, r, fmt.Errorf("%w: %v", common.ErrorValidation, err))
		return
	}

	if reg.DeviceID == "" && reg.MainPublicKey == "" && reg.EncryptedPrivateKey == "" {
		status, err := a.auth.StartAuthentication(r.Context(), reg.User())
		if err != nil {
			a.fail(w, r, err)
			return
		}
		a.respondStarted(w, status)
		return
	}

	p, err := a.authorizer.Identify(auth.TokenFromRequest(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if p.Email != reg.Email {
		a.logger.Warn(r.Context(), "user tried to register another user", "subject", p.Email)
		a.fail(w, r, common.ErrForbidden)
		return
	}

	if err := a.auth.CompleteRegistration(r.Context(), reg); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// consumeLink exchanges the token of a mailed link for a session cookie and
// sends the browser back to the web app.
func (a *api) consumeLink(requireNamespace bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, session, err := a.auth.ConsumeLinkToken(r.Context(), mux.Vars(r)["token"], requireNamespace)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		http.SetCookie(w, auth.TokenCookie(session))
		http.Redirect(w, r, "/?"+url.Values{"email": {user.Email}}.Encode(), http.StatusFound)
	}
}
