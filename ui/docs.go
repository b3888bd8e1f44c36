package ui

import (
	_ "embed"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

//go:embed docs/api.md
var apiDocs []byte

var (
	docsOnce sync.Once
	docsHTML []byte
)

// renderDocs converts the embedded API reference to a standalone HTML page.
func renderDocs() []byte {
	docsOnce.Do(func() {
		p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
		r := html.NewRenderer(html.RendererOptions{
			Flags: html.CommonFlags | html.CompletePage,
			Title: "NY assessment results API",
		})
		docsHTML = markdown.ToHTML(apiDocs, p, r)
	})
	return docsHTML
}

// HandleDocs serves GET /docs.
func (h *AssessmentHandler) HandleDocs(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", renderDocs())
}
