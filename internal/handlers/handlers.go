package handlers

import (
	"context"

	"github.com/kubev2v/restquery/internal/models"
)

// QueryService runs queries on catalog resources.
type QueryService interface {
	Resources() []string
	List(ctx context.Context, params models.QueryParams) (*models.Page, error)
	Explain(ctx context.Context, params models.QueryParams) (*models.Explain, error)
}

type Handler struct {
	querySrv QueryService
}

func New(querySrv QueryService) *Handler {
	return &Handler{
		querySrv: querySrv,
	}
}
