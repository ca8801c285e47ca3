package handler

import (
	"github.com/ZertGraf/changelog-builder/internal/domain"
	"github.com/ZertGraf/changelog-builder/internal/pkg/logger"
	"github.com/go-chi/chi/v5"
	"net/http"
	"time"
)

const healthStatus = "Healthy"

type RepoListResponse struct {
	Repos                []domain.RepoRef `json:"repos"`
	DefaultReleaseBranch string           `json:"defaultReleaseBranch"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

type MetaHandler struct {
	repos         []domain.RepoRef
	defaultBranch string
	version       string
	logger        *logger.Logger
	now           func() time.Time
}

func NewMetaHandler(repos []domain.RepoRef, defaultBranch, version string, logger *logger.Logger) *MetaHandler {
	if repos == nil {
		repos = []domain.RepoRef{}
	}
	return &MetaHandler{
		repos:         repos,
		defaultBranch: defaultBranch,
		version:       version,
		logger:        logger.Component("api/meta"),
		now:           time.Now,
	}
}

func (h *MetaHandler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/repos", h.GetRepositories)
	r.Get("/health", h.Health)
	return r
}

func (h *MetaHandler) GetRepositories(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("returning repositories",
		"count", len(h.repos),
		"default_branch", h.defaultBranch,
	)

	writeJSON(w, http.StatusOK, RepoListResponse{
		Repos:                h.repos,
		DefaultReleaseBranch: h.defaultBranch,
	}, h.logger)
}

func (h *MetaHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    healthStatus,
		Timestamp: h.now().UTC(),
		Version:   h.version,
	}, h.logger)
}
