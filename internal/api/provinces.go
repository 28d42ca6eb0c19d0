package api

import (
	"net/http"

	"dvhc-api/internal/logger"
)

func (h *handler) listProvinces(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Provinces.ListProvinces(r.Context())
	if err != nil {
		storeFailure(w, "list_provinces", err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *handler) getProvince(w http.ResponseWriter, r *http.Request) {
	p, err := h.Provinces.GetProvince(r.Context(), pathCode(r))
	if err != nil {
		storeFailure(w, "get_province", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) provinceCommunes(w http.ResponseWriter, r *http.Request) {
	code := pathCode(r)
	if _, err := h.Provinces.GetProvince(r.Context(), code); err != nil {
		storeFailure(w, "get_province", err)
		return
	}
	cs, err := h.Communes.ListCommunesByProvince(r.Context(), code)
	if err != nil {
		storeFailure(w, "list_communes", err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *handler) createProvince(w http.ResponseWriter, r *http.Request) {
	h.saveProvince(w, r, "", http.StatusCreated)
}

func (h *handler) putProvince(w http.ResponseWriter, r *http.Request) {
	h.saveProvince(w, r, pathCode(r), http.StatusOK)
}

func (h *handler) saveProvince(w http.ResponseWriter, r *http.Request, code string, status int) {
	var req provinceRequest
	if !decodeRequest(w, r, &req, &req.Code, code) {
		return
	}
	p := req.province()
	if err := h.Provinces.UpsertProvince(r.Context(), p); err != nil {
		storeFailure(w, "upsert_province", err)
		return
	}
	logger.L().Info("province_saved", "code", p.Code)
	writeJSON(w, status, p)
}

func (h *handler) deleteProvince(w http.ResponseWriter, r *http.Request) {
	code := pathCode(r)
	if err := h.Provinces.DeleteProvince(r.Context(), code); err != nil {
		storeFailure(w, "delete_province", err)
		return
	}
	logger.L().Info("province_deleted", "code", code)
	w.WriteHeader(http.StatusNoContent)
}
