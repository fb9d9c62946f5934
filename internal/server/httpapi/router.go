// Package httpapi exposes the services over HTTP. Routing is done with
// gorilla/mux; every route below /users passes through the request
// authorizer before reaching its handler.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/secure-doc/imagey-cloud/internal/logging"
	"github.com/secure-doc/imagey-cloud/internal/server/auth"
	"github.com/secure-doc/imagey-cloud/internal/server/models"
)

const usersPrefix = "/users"

// Authenticator runs the password-less sign-in and registration flow.
type Authenticator interface {
	StartAuthentication(ctx context.Context, user models.User) (models.AuthenticationStatus, error)
	CompleteRegistration(ctx context.Context, r models.Registration) error
	ConsumeLinkToken(ctx context.Context, token string, requireNamespace bool) (models.User, string, error)
}

// KeyManager reads and writes the key records of one user.
type KeyManager interface {
	PublicKey(ctx context.Context, user, kid string) ([]byte, error)
	StorePublicKey(ctx context.Context, user, kid string, payload []byte) error
	SymmetricKey(ctx context.Context, user, kid string) ([]byte, error)
	StoreSymmetricKey(ctx context.Context, user, kid string, payload []byte) error
	DevicePublicKey(ctx context.Context, user, device, kid string) ([]byte, error)
	StoreDevicePublicKey(ctx context.Context, user, device string, payload []byte) error
	DevicePrivateKey(ctx context.Context, user, device, kid string) ([]byte, error)
	StoreDevicePrivateKey(ctx context.Context, user, device, kid string, payload []byte) error
	DeviceKey(ctx context.Context, user, device, kid string) ([]byte, error)
	StoreDeviceKey(ctx context.Context, user, device, kid string, payload []byte) error
}

// DocumentManager reads and writes document metadata, content and shared keys.
type DocumentManager interface {
	List(ctx context.Context, user string) ([]models.DocumentMetadata, error)
	Metadata(ctx context.Context, user, document string) (models.DocumentMetadata, error)
	StoreMetadata(ctx context.Context, user, document string, m models.DocumentMetadata) error
	Content(ctx context.Context, user, document, content string) ([]byte, error)
	StoreContent(ctx context.Context, user, document, content string, data []byte) error
	SharedKey(ctx context.Context, user, document, recipient string) ([]byte, error)
	StoreSharedKey(ctx context.Context, user, document, recipient string, payload []byte) error
}

// Pinger is a dependency checked by the health route.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies bundles everything the router needs.
type Dependencies struct {
	Auth          Authenticator
	Keys          KeyManager
	Documents     DocumentManager
	Authorizer    *auth.Authorizer
	Health        []Pinger
	AcmeDir       string
	AllowedOrigin string
	Logger        logging.Logger
}

type api struct {
	auth       Authenticator
	keys       KeyManager
	docs       DocumentManager
	authorizer *auth.Authorizer
	health     []Pinger
	acmeDir    string
	logger     logging.Logger
}

// NewRouter builds the complete HTTP handler.
func NewRouter(d Dependencies) http.Handler {
	logger := d.Logger.With("module", "http")
	a := &api{
		auth:       d.Auth,
		keys:       d.Keys,
		docs:       d.Documents,
		authorizer: d.Authorizer,
		health:     d.Health,
		acmeDir:    d.AcmeDir,
		logger:     logger,
	}

	r := mux.NewRouter()
	r.Use(requestLogger(logger))

	r.HandleFunc("/health", a.healthCheck).Methods(http.MethodGet)
	r.HandleFunc("/.well-known/acme-challenge/{file}", a.acmeChallenge).Methods(http.MethodGet)
	r.HandleFunc("/registrations/{token}", a.consumeLink(false)).Methods(http.MethodGet)
	r.HandleFunc("/authentications/{token}", a.consumeLink(true)).Methods(http.MethodGet)

	users := r.PathPrefix(usersPrefix).Subrouter()
	users.Use(d.Authorizer.Middleware(usersPrefix))

	users.HandleFunc("", a.createUser).Methods(http.MethodPost)
	users.HandleFunc("/", a.createUser).Methods(http.MethodPost)
	users.HandleFunc("/{email}/verifications", a.startVerification).Methods(http.MethodPost)

	users.HandleFunc("/{email}/public-keys/{kid}", a.getPublicKey).Methods(http.MethodGet)
	users.HandleFunc("/{email}/public-keys/{kid}", a.putPublicKey).Methods(http.MethodPut)
	users.HandleFunc("/{email}/symmetric-keys/{kid}", a.getSymmetricKey).Methods(http.MethodGet)
	users.HandleFunc("/{email}/symmetric-keys/{kid}", a.putSymmetricKey).Methods(http.MethodPut)

	devices := users.PathPrefix("/{email}/devices/{deviceId}").Subrouter()
	devices.HandleFunc("/public-keys", a.postDevicePublicKey).Methods(http.MethodPost)
	devices.HandleFunc("/public-keys/{kid}", a.getDevicePublicKey).Methods(http.MethodGet)
	devices.HandleFunc("/private-keys/{kid}", a.getDevicePrivateKey).Methods(http.MethodGet)
	devices.HandleFunc("/private-keys/{kid}", a.putDevicePrivateKey).Methods(http.MethodPut)
	devices.HandleFunc("/keys/{kid}", a.getDeviceKey).Methods(http.MethodGet)
	devices.HandleFunc("/keys/{kid}", a.putDeviceKey).Methods(http.MethodPut)

	users.HandleFunc("/{email}/documents", a.listDocuments).Methods(http.MethodGet)
	docs := users.PathPrefix("/{email}/documents/{documentId}").Subrouter()
	docs.HandleFunc("/meta-data", a.getMetadata).Methods(http.MethodGet)
	docs.HandleFunc("/meta-data", a.putMetadata).Methods(http.MethodPut)
	docs.HandleFunc("/contents/{contentId}", a.getContent).Methods(http.MethodGet)
	docs.HandleFunc("/contents/{contentId}", a.putContent).Methods(http.MethodPut)
	docs.HandleFunc("/encrypted-shared-keys/{recipient}", a.getSharedKey).Methods(http.MethodGet)
	docs.HandleFunc("/encrypted-shared-keys/{recipient}", a.putSharedKey).Methods(http.MethodPut)

	return cors(d.AllowedOrigin)(r)
}
