package web

import (
	"encoding/base64"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pharmastock/internal/cases"
)

// createCase handles POST /api/cases. Attachments arrive base64-encoded in
// the JSON body.
func (h *Handler) createCase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Number      string `json:"number"`
		Description string `json:"description"`
		FileName    string `json:"file_name"`
		FileType    string `json:"file_type"`
		FileData    string `json:"file_data"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	in := cases.CreateInput{
		Name:        req.Name,
		Number:      req.Number,
		Description: req.Description,
		FileName:    req.FileName,
		FileType:    req.FileType,
	}
	if req.FileData != "" {
		data, err := base64.StdEncoding.DecodeString(req.FileData)
		if err != nil {
			writeError(w, r, "file_data is not valid base64", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		in.FileData = data
	}

	c, err := h.svc.CreateCase(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, c)
}

// searchCases handles GET /api/cases?q=term&field=name|number|description.
func (h *Handler) searchCases(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	field := r.URL.Query().Get("field")
	if field == "all" {
		field = ""
	}
	results, err := h.svc.SearchCases(r.Context(), term, field)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"cases": results})
}

// caseAttachment streams the decoded file of a case.
func (h *Handler) caseAttachment(w http.ResponseWriter, r *http.Request) {
	name, mimeType, data, err := h.svc.GetCaseAttachment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, _ = w.Write(data)
}
