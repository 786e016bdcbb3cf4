package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tabula/internal/datasetservice"
	"github.com/starford/tabula/internal/storage"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// files keeps uploaded sources; maxUpload caps one upload in bytes.
func NewRouter(svc *datasetservice.Service, files storage.Provider, authEnabled bool, token string, sseHandler http.Handler, maxUpload int64) chi.Router {
	h := NewHandler(svc)
	uh := NewUploadHandler(svc, files, maxUpload)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Post("/upload", uh.Upload)

	r.Route("/data", func(r chi.Router) {
		r.Get("/", h.ListDatasets)
		r.Get("/{id}", h.GetDataset)
		r.Get("/{id}/data", h.GetDatasetData)
		r.Delete("/{id}", h.DeleteDataset)
	})

	r.Get("/charts/{datasetId}/{chartType}", h.Chart)

	r.Route("/ai-analysis", func(r chi.Router) {
		r.Post("/{datasetId}/generate", h.GenerateAnalysis)
		r.Get("/dataset/{datasetId}", h.ListAnalyses)
		r.Get("/{analysisId}", h.GetAnalysis)
		r.Put("/{analysisId}/insight/{insightId}", h.UpdateInsight)
		r.Delete("/{analysisId}/insight/{insightId}", h.DeleteInsight)
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
