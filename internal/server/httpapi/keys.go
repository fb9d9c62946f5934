package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/secure-doc/imagey-cloud/internal/common"
)

// loadKey writes the payload returned by load with the given content type.
func (a *api) loadKey(w http.ResponseWriter, r *http.Request, contentType string, load func() ([]byte, error)) {
	payload, err := load()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	write(w, contentType, payload)
}

// storeKey reads the body and hands it to store. JSON keys must be valid
// JSON; they are still stored byte for byte.
func (a *api) storeKey(w http.ResponseWriter, r *http.Request, requireJSON bool, store func([]byte) error) {
	body, err := readBody(w, r, maxKeyBody)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if requireJSON && !json.Valid(body) {
		a.fail(w, r, fmt.Errorf("%w: key is not valid json", common.ErrorValidation))
		return
	}
	if err := store(body); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *api) getPublicKey(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	a.loadKey(w, r, contentTypeJSON, func() ([]byte, error) {
		return a.keys.PublicKey(r.Context(), v["email"], v["kid"])
	})
}

func (a *api) putPublicKey(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	a.storeKey(w, r, true, func(p []byte) error {
		return a.keys.StorePublicKey(r.Context(), v["email"], v["kid"], p)
	})
}

func (a *api) getSymmetricKey(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	a.loadKey(w, r, contentTypeText, func() ([]byte, error) {
		return a.keys.SymmetricKey(r.Context(), v["email"], v["kid"])
	})
}

func (a *api) putSymmetricKey(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	a.storeKey(w, r, false, func(p []byte) error {
		return a.keys.StoreSymmetricKey(r.Context(), v["email"], v["kid"], p)
	})
}

func (a *api) postDevicePublicKey(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	a.storeKey(w, r, true, func(p []byte) error {
		return a.keys.StoreDevicePublicKey(r.Context(), v["email"], v["deviceId"], p)
	})
}

func (a *api) getDevicePublicKey(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	a.loadKey(w, r, contentTypeJSON, func() ([]byte, error) {
		return a.keys.DevicePublicKey(r.Context(), v["email"], v["deviceId"], v["kid"])
	})
}

func (a *api) getDevicePrivateKey(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	a.loadKey(w, r, contentTypeText, func() ([]byte, error) {
		return a.keys.DevicePrivateKey(r.Context(), v["email"], v["deviceId"], v["kid"])
	})
}

func (a *api) putDevicePrivateKey(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	a.storeKey(w, r, false, func(p []byte) error {
		return a.keys.StoreDevicePrivateKey(r.Context(), v["email"], v["deviceId"], v["kid"], p)
	})
}

func (a *api) getDeviceKey(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	a.loadKey(w, r, contentTypeText, func() ([]byte, error) {
		return a.keys.DeviceKey(r.Context(), v["email"], v["deviceId"], v["kid"])
	})
}

func (a *api) putDeviceKey(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	a.storeKey(w, r, false, func(p []byte) error {
		return a.keys.StoreDeviceKey(r.Context(), v["email"], v["deviceId"], v["kid"], p)
	})
}
