package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/life-tracker/internal/auth"
	"github.com/sakif/life-tracker/internal/collection"
	"github.com/sakif/life-tracker/internal/model"
	"github.com/sakif/life-tracker/internal/service"
)

// CollectionHandler serves generic CRUD for every registered collection.
//
// ROUTES (mounted under the authenticated API group):
//
//	GET    /{collection}       → list the caller's records
//	GET    /{collection}/{id}  → one record
//	POST   /{collection}       → create, 201
//	PUT    /{collection}/{id}  → replace
//	DELETE /{collection}/{id}  → delete, {"success": true}
//
// An unknown {collection} is a 404 before any body is read.
type CollectionHandler struct {
	records *service.RecordService
	resp    *Responder
}

func NewCollectionHandler(records *service.RecordService, resp *Responder) *CollectionHandler {
	return &CollectionHandler{records: records, resp: resp}
}

func (h *CollectionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	kind, owner, ok := h.target(w, r)
	if !ok {
		return
	}

	recs, err := h.records.List(r.Context(), owner, kind)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	// A nil slice would encode as null.
	if recs == nil {
		recs = []model.Record{}
	}
	h.resp.JSON(w, http.StatusOK, recs)
}

func (h *CollectionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	kind, owner, ok := h.target(w, r)
	if !ok {
		return
	}

	rec, err := h.records.Get(r.Context(), owner, kind, chi.URLParam(r, "id"))
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, rec)
}

func (h *CollectionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	kind, owner, ok := h.target(w, r)
	if !ok {
		return
	}

	rec := kind.New()
	if err := decodeJSON(r, rec); err != nil {
		h.resp.Error(w, r, err)
		return
	}

	created, err := h.records.Create(r.Context(), owner, kind, rec)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusCreated, created)
}

func (h *CollectionHandler) HandleReplace(w http.ResponseWriter, r *http.Request) {
	kind, owner, ok := h.target(w, r)
	if !ok {
		return
	}

	rec := kind.New()
	if err := decodeJSON(r, rec); err != nil {
		h.resp.Error(w, r, err)
		return
	}

	replaced, err := h.records.Replace(r.Context(), owner, kind, chi.URLParam(r, "id"), rec)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, replaced)
}

func (h *CollectionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	kind, owner, ok := h.target(w, r)
	if !ok {
		return
	}

	if err := h.records.Delete(r.Context(), owner, kind, chi.URLParam(r, "id")); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// target resolves the collection and the caller, writing the error
// response itself when either is missing.
func (h *CollectionHandler) target(w http.ResponseWriter, r *http.Request) (collection.Kind, string, bool) {
	kind, err := collection.Lookup(chi.URLParam(r, "collection"))
	if err != nil {
		h.resp.Error(w, r, err)
		return 0, "", false
	}
	owner, _ := auth.UserIDFromContext(r.Context())
	return kind, owner, true
}
