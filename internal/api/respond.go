package api

import (
	"encoding/json"
	"net/http"

	"dvhc-api/internal/logger"
	"dvhc-api/internal/store"

	"github.com/pkg/errors"
)

// errorBody：统一错误响应结构
type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logger.L().Error("response_encode_error", "err", err)
		writeError(w, http.StatusInternalServerError, "serialization_failed", "response could not be encoded")
		return
	}
	writeRaw(w, status, b)
}

func writeRaw(w http.ResponseWriter, status int, b []byte) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	b, _ := json.Marshal(errorBody{Error: code, Message: msg})
	writeRaw(w, status, b)
}

// storeFailure：未找到映射为 404，其余一律视为存储不可用
func storeFailure(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "record not found")
		return
	}
	logger.L().Error("store_error", "op", op, "err", err)
	writeError(w, http.StatusInternalServerError, "store_unavailable", "record store unavailable")
}
