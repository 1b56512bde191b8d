package rest

import (
	"encoding/json"
	"net/http"

	"ragstore/internal/observability"
)

func (h *Handler) handleAskQuestion(w http.ResponseWriter, r *http.Request) {
	var req AskQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body")
		return
	}
	if req.Info.Question == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Missing question")
		return
	}
	reply, err := h.engine.AskQuestion(r.Context(), req.Identifier, req.Info)
	observability.ObserveOperation("ask_question", err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AskQuestionResponse{Result: reply})
}

func (h *Handler) handleBuildContext(w http.ResponseWriter, r *http.Request) {
	var req BuildContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Missing question")
		return
	}
	contextBlock, err := h.engine.BuildContext(r.Context(), req.Question, req.Identifier, req.KSimilar)
	observability.ObserveOperation("build_context", err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BuildContextResponse{Context: contextBlock})
}
