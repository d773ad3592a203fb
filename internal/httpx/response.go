package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-retail-orders/internal/lifecycle"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

var statusByCode = map[lifecycle.Code]int{
	lifecycle.CodeNotFound:          http.StatusNotFound,
	lifecycle.CodeInsufficientStock: http.StatusConflict,
	lifecycle.CodeAlreadyProcessed:  http.StatusConflict,
	lifecycle.CodeCartEmpty:         http.StatusConflict,
	lifecycle.CodeInvalidTransition: http.StatusUnprocessableEntity,
	lifecycle.CodeInvalidQuantity:   http.StatusUnprocessableEntity,
	lifecycle.CodeFailed:            http.StatusInternalServerError,
}

// writeResult answers with the tagged result of a failed operation.
func writeResult(w http.ResponseWriter, err error) {
	res := lifecycle.ResultOf(err)
	code, ok := statusByCode[res.Code]
	if !ok {
		code = http.StatusInternalServerError
	}
	writeJSON(w, code, res)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}
