package httpx

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	r := s.R

	r.Use(RequestID(s.log), RequestLogger(), Metrics(), Recovery())
	if s.cfg.CORSOrigin != "" {
		r.Use(CORS(s.cfg.CORSOrigin))
	}

	r.GET("/health/live", s.handleLiveness)
	r.GET("/health/ready", s.handleReadiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/static/*filepath", s.static.Handle)
	r.HEAD("/static/*filepath", s.static.Handle)

	if s.Values == nil {
		return
	}

	db := r.Group("/db")
	if s.cfg.JWTSecret != "" {
		db.Use(AuthRequired(s.cfg.JWTSecret))
	}
	{
		db.GET("/read", s.readValues)
		db.POST("/insert/:number", s.insertValue)
	}
}
