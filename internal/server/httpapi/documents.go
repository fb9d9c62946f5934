package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/secure-doc/imagey-cloud/internal/common"
	"github.com/secure-doc/imagey-cloud/internal/server/models"
)

func (a *api) listDocuments(w http.ResponseWriter, r *http.Request) {
	list, err := a.docs.List(r.Context(), mux.Vars(r)["email"])
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, list)
}

func (a *api) getMetadata(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	m, err := a.docs.Metadata(r.Context(), v["email"], v["documentId"])
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, m)
}

func (a *api) putMetadata(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	body, err := readBody(w, r, maxKeyBody)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var m models.DocumentMetadata
	if err := json.Unmarshal(body, &m); err != nil {
		a.fail(w, r, fmt.Errorf("%w: %v", common.ErrorValidation, err))
		return
	}
	if err := a.docs.StoreMetadata(r.Context(), v["email"], v["documentId"], m); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *api) getContent(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	data, err := a.docs.Content(r.Context(), v["email"], v["documentId"], v["contentId"])
	if err != nil {
		a.fail(w, r, err)
		return
	}
	write(w, contentTypeBinary, data)
}

func (a *api) putContent(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	body, err := readBody(w, r, maxContentBody)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.docs.StoreContent(r.Context(), v["email"], v["documentId"], v["contentId"], body); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *api) getSharedKey(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	a.loadKey(w, r, contentTypeText, func() ([]byte, error) {
		return a.docs.SharedKey(r.Context(), v["email"], v["documentId"], v["recipient"])
	})
}

func (a *api) putSharedKey(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	a.storeKey(w, r, false, func(p []byte) error {
		return a.docs.StoreSharedKey(r.Context(), v["email"], v["documentId"], v["recipient"], p)
	})
}
