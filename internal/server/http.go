package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kubev2v/restquery/internal/config"
	"github.com/kubev2v/restquery/internal/server/middlewares"
	"github.com/kubev2v/restquery/pkg/certificates"
)

const (
	ProductionServer string = "prod"
	DevServer        string = "dev"
	apiV1            string = "/api/v1"
)

type Server struct {
	srv *http.Server
}

func NewServer(cfg *config.Configuration, registerHandlerFn func(router *gin.RouterGroup)) (*Server, error) {
	gin.SetMode(gin.DebugMode)
	if cfg.Server.ServerMode == ProductionServer {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()

	srv := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", cfg.Server.HTTPPort),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "API endpoint not found",
		})
	})

	if cfg.Server.ServerMode == ProductionServer {
		cert, key, err := certificates.GenerateSelfSignedCertificate(certificates.Options{
			Hosts:    []string{"localhost", "127.0.0.1"},
			NotAfter: time.Now().AddDate(1, 0, 0),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to generate server's certificates: %w", err)
		}

		serverCert, err := certificates.TLSCertificate(cert, key)
		if err != nil {
			return nil, err
		}

		srv.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{serverCert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	router := engine.Group(apiV1)

	router.Use(
		middlewares.Logger(),
		ginzap.RecoveryWithZap(zap.S().Desugar(), true),
	)

	if cfg.Auth.Enabled {
		key, err := middlewares.LoadVerificationKey(cfg.Auth.JWTFilePath)
		if err != nil {
			return nil, err
		}
		router.Use(middlewares.Authenticator(key, apiV1+"/health"))
	}

	registerHandlerFn(router)

	return &Server{srv: srv}, nil
}

// Start starts the HTTP or HTTPS server based on TLS configuration.
func (r *Server) Start(ctx context.Context) error {
	if r.srv.TLSConfig != nil {
		return r.srv.ListenAndServeTLS("", "")
	}
	return r.srv.ListenAndServe()
}

func (r *Server) Stop(ctx context.Context) {
	if err := r.srv.Shutdown(ctx); err != nil {
		zap.S().Errorw("server shutdown", "error", err)
	}
}
