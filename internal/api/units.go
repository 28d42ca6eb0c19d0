package api

import (
	"net/http"
	"strings"

	"dvhc-api/internal/division"
	"dvhc-api/internal/logger"

	"github.com/gorilla/mux"
)

func pathCode(r *http.Request) string { return strings.TrimSpace(mux.Vars(r)["code"]) }

func (h *handler) listUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.Units.ListUnits(r.Context())
	if err != nil {
		storeFailure(w, "list_units", err)
		return
	}
	if lv := strings.TrimSpace(r.URL.Query().Get("level")); lv != "" {
		out := make([]division.Unit, 0, len(units))
		for _, u := range units {
			if string(u.Level) == lv {
				out = append(out, u)
			}
		}
		units = out
	}
	writeJSON(w, http.StatusOK, units)
}

func (h *handler) getUnit(w http.ResponseWriter, r *http.Request) {
	u, err := h.Units.GetUnit(r.Context(), pathCode(r))
	if err != nil {
		storeFailure(w, "get_unit", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// childUnits：直接下级；上级不存在时返回 404
func (h *handler) childUnits(w http.ResponseWriter, r *http.Request) {
	code := pathCode(r)
	if _, err := h.Units.GetUnit(r.Context(), code); err != nil {
		storeFailure(w, "get_unit", err)
		return
	}
	kids, err := h.Units.ListChildUnits(r.Context(), code)
	if err != nil {
		storeFailure(w, "list_child_units", err)
		return
	}
	writeJSON(w, http.StatusOK, kids)
}

func (h *handler) createUnit(w http.ResponseWriter, r *http.Request) {
	h.saveUnit(w, r, "", http.StatusCreated)
}

func (h *handler) putUnit(w http.ResponseWriter, r *http.Request) {
	h.saveUnit(w, r, pathCode(r), http.StatusOK)
}

// saveUnit：写入后使树缓存失效
func (h *handler) saveUnit(w http.ResponseWriter, r *http.Request, code string, status int) {
	var req unitRequest
	if !decodeRequest(w, r, &req, &req.Code, code) {
		return
	}
	u := req.unit()
	if err := h.Units.UpsertUnit(r.Context(), u); err != nil {
		storeFailure(w, "upsert_unit", err)
		return
	}
	h.Cache.Invalidate(r.Context())
	logger.L().Info("unit_saved", "code", u.Code, "level", u.Level)
	writeJSON(w, status, u)
}

func (h *handler) deleteUnit(w http.ResponseWriter, r *http.Request) {
	code := pathCode(r)
	if err := h.Units.DeleteUnit(r.Context(), code); err != nil {
		storeFailure(w, "delete_unit", err)
		return
	}
	h.Cache.Invalidate(r.Context())
	logger.L().Info("unit_deleted", "code", code)
	w.WriteHeader(http.StatusNoContent)
}
