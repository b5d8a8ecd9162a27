package httpx

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/pkg/errors"

	"github.com/tecnolua/ClubePharma/internal/apperr"
	"github.com/tecnolua/ClubePharma/internal/auth"
	"github.com/tecnolua/ClubePharma/internal/logger"
)

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func paginate(page, limit, total int) *Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return &Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

// envelope is the body of every API response.
type envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       any         `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func ok(w http.ResponseWriter, code int, msg string, data any) {
	writeJSON(w, code, envelope{Success: true, Message: msg, Data: data})
}

func okPage(w http.ResponseWriter, data any, p *Pagination) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data, Pagination: p})
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperr.Wrap(err, apperr.KindValidation, "VALIDATION_FAILED", "Validation failed")
}

// errorWriter renders failures. Causes of internal and upstream errors are
// logged and echoed only when expose is set.
type errorWriter struct{ expose bool }

func (e errorWriter) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	body := envelope{Success: false, Message: apperr.PublicMessage(err)}
	switch kind {
	case apperr.KindInternal, apperr.KindUpstream:
		logger.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		if e.expose {
			body.Error = err.Error()
		}
	default:
		body.Error = apperr.CodeOf(err)
	}
	writeJSON(w, apperr.HTTPStatus(kind), body)
}

func identity(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

// queryBool parses a tri-state filter: "true", "false", or unset/"all".
func queryBool(r *http.Request, key string, def *bool) *bool {
	switch r.URL.Query().Get(key) {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	case "all":
		return nil
	default:
		return def
	}
}
