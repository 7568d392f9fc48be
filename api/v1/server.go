package v1

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (GET /health)
	GetHealth(c *gin.Context)
	// (GET /resources)
	ListResources(c *gin.Context)
	// (GET /resources/{resource})
	ListResource(c *gin.Context, resource string, params ListResourceParams)
	// (GET /resources/{resource}/explain)
	ExplainResource(c *gin.Context, resource string, params ListResourceParams)
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler      ServerInterface
	ErrorHandler func(*gin.Context, error, int)
}

func (siw *ServerInterfaceWrapper) GetHealth(c *gin.Context) {
	siw.Handler.GetHealth(c)
}

func (siw *ServerInterfaceWrapper) ListResources(c *gin.Context) {
	siw.Handler.ListResources(c)
}

func (siw *ServerInterfaceWrapper) ListResource(c *gin.Context) {
	params, ok := siw.bindParams(c)
	if !ok {
		return
	}
	siw.Handler.ListResource(c, c.Param("resource"), params)
}

func (siw *ServerInterfaceWrapper) ExplainResource(c *gin.Context) {
	params, ok := siw.bindParams(c)
	if !ok {
		return
	}
	siw.Handler.ExplainResource(c, c.Param("resource"), params)
}

func (siw *ServerInterfaceWrapper) bindParams(c *gin.Context) (ListResourceParams, bool) {
	var params ListResourceParams
	query := c.Request.URL.Query()

	bind := []struct {
		name string
		dest any
	}{
		{"filter", &params.Filter},
		{"select", &params.Select},
		{"order", &params.Order},
		{"limit", &params.Limit},
		{"offset", &params.Offset},
		{"format", &params.Format},
	}
	for _, b := range bind {
		if err := runtime.BindQueryParameter("form", true, false, b.name, query, b.dest); err != nil {
			siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter %s: %w", b.name, err), http.StatusBadRequest)
			return params, false
		}
	}
	return params, true
}

// RegisterHandlers creates http.Handler with routing matching the API.
func RegisterHandlers(router gin.IRouter, si ServerInterface) {
	wrapper := ServerInterfaceWrapper{
		Handler: si,
		ErrorHandler: func(c *gin.Context, err error, statusCode int) {
			c.JSON(statusCode, gin.H{"error": err.Error()})
		},
	}

	router.GET("/health", wrapper.GetHealth)
	router.GET("/resources", wrapper.ListResources)
	router.GET("/resources/:resource", wrapper.ListResource)
	router.GET("/resources/:resource/explain", wrapper.ExplainResource)
}
