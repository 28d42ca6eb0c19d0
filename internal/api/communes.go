package api

import (
	"net/http"
	"strings"

	"dvhc-api/internal/logger"
)

// listCommunes：支持 ?province= 过滤
func (h *handler) listCommunes(w http.ResponseWriter, r *http.Request) {
	var (
		cs  any
		err error
	)
	if p := strings.TrimSpace(r.URL.Query().Get("province")); p != "" {
		cs, err = h.Communes.ListCommunesByProvince(r.Context(), p)
	} else {
		cs, err = h.Communes.ListCommunes(r.Context())
	}
	if err != nil {
		storeFailure(w, "list_communes", err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *handler) getCommune(w http.ResponseWriter, r *http.Request) {
	c, err := h.Communes.GetCommune(r.Context(), pathCode(r))
	if err != nil {
		storeFailure(w, "get_commune", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handler) createCommune(w http.ResponseWriter, r *http.Request) {
	h.saveCommune(w, r, "", http.StatusCreated)
}

func (h *handler) putCommune(w http.ResponseWriter, r *http.Request) {
	h.saveCommune(w, r, pathCode(r), http.StatusOK)
}

func (h *handler) saveCommune(w http.ResponseWriter, r *http.Request, code string, status int) {
	var req communeRequest
	if !decodeRequest(w, r, &req, &req.Code, code) {
		return
	}
	c := req.commune()
	if err := h.Communes.UpsertCommune(r.Context(), c); err != nil {
		storeFailure(w, "upsert_commune", err)
		return
	}
	logger.L().Info("commune_saved", "code", c.Code, "province", c.ProvinceCode)
	writeJSON(w, status, c)
}

func (h *handler) deleteCommune(w http.ResponseWriter, r *http.Request) {
	code := pathCode(r)
	if err := h.Communes.DeleteCommune(r.Context(), code); err != nil {
		storeFailure(w, "delete_commune", err)
		return
	}
	logger.L().Info("commune_deleted", "code", code)
	w.WriteHeader(http.StatusNoContent)
}
