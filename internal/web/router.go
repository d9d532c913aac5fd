// Package web serves the local signing form.
package web

import (
	"embed"
	"html/template"
	"log"

	"github.com/gin-gonic/gin"
)

const formTemplate = "form.html"

//go:embed templates/*.html
var templates embed.FS

// Setup configures the gin engine with all routes and middleware
func Setup(h *Handler, logger *log.Logger) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestID())
	if logger != nil {
		r.Use(Logger(logger))
	}

	r.SetHTMLTemplate(template.Must(template.ParseFS(templates, "templates/*.html")))

	r.GET("/", h.Form)
	r.POST("/detect", h.Detect)
	r.POST("/sign", h.Sign)
	r.GET("/healthz", h.Liveness)

	return r
}
