package rest

import (
	"encoding/json"
	"io"
	"net/http"

	"ragstore/internal/domain"
	"ragstore/internal/observability"
)

func (h *Handler) handleAddTexts(w http.ResponseWriter, r *http.Request) {
	var req AddTextsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body")
		return
	}
	ids, err := h.engine.AddTexts(r.Context(), req.Identifier, req.Texts)
	observability.ObserveOperation("add_texts", err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, IngestResponse{Status: true, IDs: ids})
}

func (h *Handler) handleAddPDFs(w http.ResponseWriter, r *http.Request) {
	identifier := r.URL.Query().Get("identifier")
	if identifier == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Missing identifier")
		return
	}
	if err := r.ParseMultipartForm(UploadMaxBodySize); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid multipart body")
		return
	}
	files := r.MultipartForm.File["pdfs"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "No pdfs uploaded")
		return
	}
	uploads := make([]domain.PDFUpload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Unreadable upload "+fh.Filename)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Unreadable upload "+fh.Filename)
			return
		}
		uploads = append(uploads, domain.PDFUpload{Filename: fh.Filename, Data: data})
	}
	ids, err := h.engine.AddPDFs(r.Context(), identifier, uploads)
	observability.ObserveOperation("add_pdfs", err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, IngestResponse{Status: true, IDs: ids})
}

func (h *Handler) handleGetTexts(w http.ResponseWriter, r *http.Request) {
	var req GetTextsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body")
		return
	}
	var ids []string
	if len(req.IDs) > 0 {
		ids = req.IDs
	}
	docs, err := h.engine.GetTexts(r.Context(), req.Identifier, ids)
	observability.ObserveOperation("get_texts", err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GetTextsResponse{Documents: docs})
}

func (h *Handler) handleGetPDFs(w http.ResponseWriter, r *http.Request) {
	var req GetPDFsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body")
		return
	}
	names, err := h.engine.GetPDFNames(r.Context(), req.Identifier)
	observability.ObserveOperation("get_pdfs", err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, GetPDFsResponse{Documents: names})
}

func (h *Handler) handleGetDatabases(w http.ResponseWriter, r *http.Request) {
	names, err := h.engine.ListDatabases()
	observability.ObserveOperation("get_databases", err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, GetDatabasesResponse{Databases: names})
}

func (h *Handler) handleUpdateTexts(w http.ResponseWriter, r *http.Request) {
	var req UpdateTextsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body")
		return
	}
	err := h.engine.UpdateTexts(r.Context(), req.Identifier, req.Updates)
	observability.ObserveOperation("update_texts", err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: true})
}

func (h *Handler) handleDeleteTexts(w http.ResponseWriter, r *http.Request) {
	var req DeleteTextsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body")
		return
	}
	err := h.engine.DeleteTexts(r.Context(), req.Identifier, req.IDs)
	observability.ObserveOperation("delete_texts", err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: true})
}

func (h *Handler) handleDeletePDFs(w http.ResponseWriter, r *http.Request) {
	var req DeletePDFsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body")
		return
	}
	err := h.engine.DeletePDFs(r.Context(), req.Identifier, req.PDFNames)
	observability.ObserveOperation("delete_pdfs", err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: true})
}

func (h *Handler) handleDeleteDatabases(w http.ResponseWriter, r *http.Request) {
	var req DeleteDatabasesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body")
		return
	}
	err := h.engine.DeleteDatabases(req.Identifiers)
	observability.ObserveOperation("delete_databases", err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: true})
}
