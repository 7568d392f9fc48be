package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "github.com/kubev2v/restquery/api/v1"
	"github.com/kubev2v/restquery/internal/export"
	"github.com/kubev2v/restquery/internal/models"
	srvErrors "github.com/kubev2v/restquery/pkg/errors"
	"github.com/kubev2v/restquery/pkg/filter"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ListResources returns the names of the queryable resources
// (GET /resources)
func (h *Handler) ListResources(c *gin.Context) {
	c.JSON(http.StatusOK, v1.ResourceList{Resources: h.querySrv.Resources()})
}

// ListResource runs a query on a resource
// (GET /resources/{resource})
func (h *Handler) ListResource(c *gin.Context, resource string, params v1.ListResourceParams) {
	format := v1.ListResourceParamsFormatJson
	if params.Format != nil {
		format = *params.Format
	}
	if format != v1.ListResourceParamsFormatJson && format != v1.ListResourceParamsFormatXlsx {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: fmt.Sprintf("invalid format %q, must be 'json' or 'xlsx'", format)})
		return
	}

	page, err := h.querySrv.List(c.Request.Context(), params.QueryParams(resource))
	if err != nil {
		writeError(c, "failed to query "+resource, err)
		return
	}

	if format == v1.ListResourceParamsFormatXlsx {
		writeXLSX(c, page)
		return
	}

	if page.IsObject() {
		c.JSON(http.StatusOK, v1.NewResourceObject(*page))
		return
	}
	c.JSON(http.StatusOK, v1.NewResourcePage(*page))
}

// ExplainResource returns the SQL a query compiles to
// (GET /resources/{resource}/explain)
func (h *Handler) ExplainResource(c *gin.Context, resource string, params v1.ListResourceParams) {
	explain, err := h.querySrv.Explain(c.Request.Context(), params.QueryParams(resource))
	if err != nil {
		writeError(c, "failed to explain "+resource, err)
		return
	}
	c.JSON(http.StatusOK, v1.NewExplainResponse(*explain))
}

func writeXLSX(c *gin.Context, page *models.Page) {
	rows := page.Rows
	if page.IsObject() {
		rows = []map[string]any{page.Object}
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, page.Resource, page.Columns, rows); err != nil {
		zap.S().Named("resource_handler").Errorw("failed to export", "resource", page.Resource, "error", err)
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: "failed to export " + page.Resource})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", page.Resource+".xlsx"))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// writeError maps service errors to status codes. Anything unexpected is logged and
// hidden behind msg.
func writeError(c *gin.Context, msg string, err error) {
	var pe filter.ParseError
	switch {
	case errors.As(err, &pe):
		details := v1.NewQueryError(pe)
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: pe.Error(), Details: &details})
	case srvErrors.IsColumnNotAllowedError(err):
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: err.Error()})
	case srvErrors.IsResourceNotFoundError(err):
		c.JSON(http.StatusNotFound, v1.ErrorResponse{Error: err.Error()})
	default:
		zap.S().Named("resource_handler").Errorw(msg, "error", err)
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: msg})
	}
}
