package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tabula/internal/datasetservice"
)

// Handler holds dataset and chart route handlers.
type Handler struct {
	svc *datasetservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *datasetservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListDatasets handles GET /data.
//
//	@Summary		List datasets, newest first
//	@Tags			data
//	@Produce		json
//	@Success		200	{array}	models.Dataset
//	@Security		BearerAuth
//	@Router			/data [get]
func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.GetAllDatasets(r.Context())
	if err != nil {
		writeError(w, r, "Failed to fetch datasets", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetDataset handles GET /data/{id}.
//
//	@Summary		Get a dataset with its columns
//	@Tags			data
//	@Produce		json
//	@Param			id	path		string	true	"Dataset id"
//	@Success		200	{object}	models.Dataset
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/data/{id} [get]
func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := h.svc.GetDatasetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "Dataset not found", err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

// GetDatasetData handles GET /data/{id}/data.
//
//	@Summary		Page through the rows of a dataset
//	@Tags			data
//	@Produce		json
//	@Param			id		path		string	true	"Dataset id"
//	@Param			page	query		int		false	"1-based page"
//	@Param			limit	query		int		false	"Page size"
//	@Success		200		{object}	datasetservice.Page
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/data/{id}/data [get]
func (h *Handler) GetDatasetData(w http.ResponseWriter, r *http.Request) {
	q, err := parsePageQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, "Invalid pagination", err)
		return
	}
	page, err := h.svc.GetDatasetPage(r.Context(), chi.URLParam(r, "id"), q.Page, q.Limit)
	if err != nil {
		writeError(w, r, "Dataset data not found", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// DeleteDataset handles DELETE /data/{id}.
//
//	@Summary		Delete a dataset with its rows, columns and analyses
//	@Tags			data
//	@Produce		json
//	@Param			id	path		string	true	"Dataset id"
//	@Success		200	{object}	MessageResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/data/{id} [delete]
func (h *Handler) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteDataset(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, "Failed to delete dataset", err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: msgDeleted})
}

// Chart handles GET /charts/{datasetId}/{chartType}.
//
//	@Summary		Aggregate a dataset into chart points
//	@Tags			charts
//	@Produce		json
//	@Param			datasetId	path		string	true	"Dataset id"
//	@Param			chartType	path		string	true	"Chart type"	Enums(bar, line, area, pie)
//	@Param			xAxis		query		string	false	"Category column"
//	@Param			yAxis		query		string	false	"Value column"
//	@Success		200			{object}	chart.Result
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/charts/{datasetId}/{chartType} [get]
func (h *Handler) Chart(w http.ResponseWriter, r *http.Request) {
	req, err := parseChartRequest(chi.URLParam(r, "chartType"), r.URL.Query())
	if err != nil {
		writeError(w, r, "Invalid chart request", err)
		return
	}
	res, err := h.svc.ChartData(r.Context(), chi.URLParam(r, "datasetId"), req)
	if err != nil {
		writeError(w, r, "Failed to generate chart data", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
