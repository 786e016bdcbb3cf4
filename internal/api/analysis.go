package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tabula/internal/datasetservice"
)

const maxJSONBytes = 1 << 20

// decodeBody decodes a JSON body into v. An empty body leaves v unchanged
// when optional is true.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) && optional {
		return true
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// GenerateAnalysis handles POST /ai-analysis/{datasetId}/generate.
//
//	@Summary		Generate an analysis of a dataset
//	@Tags			analysis
//	@Accept			json
//	@Produce		json
//	@Param			datasetId	path		string					true	"Dataset id"
//	@Param			body		body		GenerateAnalysisRequest	false	"Audience and prompt"
//	@Success		200			{object}	AnalysisResponse
//	@Failure		404			{object}	errResponse
//	@Failure		501			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ai-analysis/{datasetId}/generate [post]
func (h *Handler) GenerateAnalysis(w http.ResponseWriter, r *http.Request) {
	var req GenerateAnalysisRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, "Invalid analysis request", err)
		return
	}
	a, err := h.svc.GenerateAnalysis(r.Context(), chi.URLParam(r, "datasetId"), datasetservice.AnalysisRequest{
		CustomPrompt: req.CustomPrompt,
		Context:      req.Context,
	})
	if err != nil {
		writeError(w, r, "Failed to generate analysis", err)
		return
	}
	writeJSON(w, http.StatusOK, AnalysisResponse{Message: msgAnalysis, Analysis: a})
}

// GetAnalysis handles GET /ai-analysis/{analysisId}.
//
//	@Summary		Get one analysis
//	@Tags			analysis
//	@Produce		json
//	@Param			analysisId	path		string	true	"Analysis id"
//	@Success		200			{object}	models.Analysis
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ai-analysis/{analysisId} [get]
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.GetAnalysis(r.Context(), chi.URLParam(r, "analysisId"))
	if err != nil {
		writeError(w, r, "Analysis not found", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ListAnalyses handles GET /ai-analysis/dataset/{datasetId}.
//
//	@Summary		List the analyses of a dataset, newest first
//	@Tags			analysis
//	@Produce		json
//	@Param			datasetId	path	string	true	"Dataset id"
//	@Success		200			{array}	models.Analysis
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ai-analysis/dataset/{datasetId} [get]
func (h *Handler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListAnalyses(r.Context(), chi.URLParam(r, "datasetId"))
	if err != nil {
		writeError(w, r, "Failed to fetch analyses", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// UpdateInsight handles PUT /ai-analysis/{analysisId}/insight/{insightId}.
//
//	@Summary		Regenerate one insight to answer a question
//	@Tags			analysis
//	@Accept			json
//	@Produce		json
//	@Param			analysisId	path		string					true	"Analysis id"
//	@Param			insightId	path		string					true	"Insight id"
//	@Param			body		body		UpdateInsightRequest	true	"Question"
//	@Success		200			{object}	ContentResponse
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ai-analysis/{analysisId}/insight/{insightId} [put]
func (h *Handler) UpdateInsight(w http.ResponseWriter, r *http.Request) {
	var req UpdateInsightRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, "Invalid insight update", err)
		return
	}
	content, err := h.svc.UpdateInsight(r.Context(),
		chi.URLParam(r, "analysisId"), chi.URLParam(r, "insightId"), req.Content)
	if err != nil {
		writeError(w, r, "Failed to update insight", err)
		return
	}
	writeJSON(w, http.StatusOK, ContentResponse{Message: msgInsightUpdated, Content: content})
}

// DeleteInsight handles DELETE /ai-analysis/{analysisId}/insight/{insightId}.
//
//	@Summary		Remove one insight
//	@Tags			analysis
//	@Produce		json
//	@Param			analysisId	path		string	true	"Analysis id"
//	@Param			insightId	path		string	true	"Insight id"
//	@Success		200			{object}	ContentResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ai-analysis/{analysisId}/insight/{insightId} [delete]
func (h *Handler) DeleteInsight(w http.ResponseWriter, r *http.Request) {
	content, err := h.svc.DeleteInsight(r.Context(),
		chi.URLParam(r, "analysisId"), chi.URLParam(r, "insightId"))
	if err != nil {
		writeError(w, r, "Failed to delete insight", err)
		return
	}
	writeJSON(w, http.StatusOK, ContentResponse{Message: msgInsightDeleted, Content: content})
}
