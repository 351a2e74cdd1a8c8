package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/library-catalog/internal/adapters/http/dto"
	"github.com/jsamuelsen/library-catalog/internal/app"
	"github.com/jsamuelsen/library-catalog/internal/platform/logging"
	"github.com/jsamuelsen/library-catalog/internal/platform/telemetry"
)

// CatalogHandler serves read access to the catalogue.
type CatalogHandler struct {
	service *app.CatalogService
	metrics *telemetry.CatalogMetrics
}

// NewCatalogHandler creates a catalog handler. metrics may be nil.
func NewCatalogHandler(service *app.CatalogService, metrics *telemetry.CatalogMetrics) *CatalogHandler {
	return &CatalogHandler{service: service, metrics: metrics}
}

// ListLibraries handles GET /api/v1/libraries.
func (h *CatalogHandler) ListLibraries(c *gin.Context) {
	names, err := h.service.LibraryNames(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.LibrariesResponse{Libraries: names})
}

// ListBooks handles GET /api/v1/libraries/:name/books?cursor=&limit=.
func (h *CatalogHandler) ListBooks(c *gin.Context) {
	var page dto.PaginationRequest
	if err := dto.BindQueryAndValidate(c, &page); err != nil {
		dto.RespondWithBindError(c, err)
		return
	}

	books, err := h.service.Books(h.libraryContext(c), c.Param("name"))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	resp, err := dto.Paginate(dto.NewBookResponses(books), page)
	if err != nil {
		dto.RespondWithCode(c, dto.ErrorCodeBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Report handles GET /api/v1/libraries/:name/report. The body is the
// plain-text library report.
func (h *CatalogHandler) Report(c *gin.Context) {
	report, err := h.service.Report(h.libraryContext(c), c.Param("name"))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.String(http.StatusOK, "%s", report)
}

// Count handles GET /api/v1/libraries/:name/count.
func (h *CatalogHandler) Count(c *gin.Context) {
	var q dto.CountQuery
	if err := dto.BindQueryAndValidate(c, &q); err != nil {
		dto.RespondWithBindError(c, err)
		return
	}

	ctx := h.libraryContext(c)
	name := c.Param("name")

	var (
		n   int
		err error
	)

	switch q.Kind() {
	case dto.QueryAuthor:
		n, err = h.service.BooksOfAuthor(ctx, name, *q.Author)
	case dto.QueryGenre:
		n, err = h.service.BooksOfGenre(ctx, name, *q.Genre)
	case dto.QueryPublished:
		n, err = h.service.BooksPublishedBetween(ctx, name, *q.From, *q.To)
	default:
		n, err = h.service.BookCount(ctx, name)
	}

	if err != nil {
		dto.HandleError(c, err)
		return
	}

	h.metrics.CountQuery(q.Kind(), "library")
	c.JSON(http.StatusOK, dto.CountResponse{Library: name, Query: q.Describe(), Count: n})
}

// Totals handles GET /api/v1/counts, summing a count over the libraries
// named by repeated library parameters, or over every library.
func (h *CatalogHandler) Totals(c *gin.Context) {
	var q dto.CountQuery
	if err := dto.BindQueryAndValidate(c, &q); err != nil {
		dto.RespondWithBindError(c, err)
		return
	}

	ctx := c.Request.Context()

	var (
		n   int
		err error
	)

	switch q.Kind() {
	case dto.QueryAuthor:
		n, err = h.service.TotalBooksOfAuthor(ctx, q.Libraries, *q.Author)
	case dto.QueryGenre:
		n, err = h.service.TotalBooksOfGenre(ctx, q.Libraries, *q.Genre)
	case dto.QueryPublished:
		n, err = h.service.TotalBooksPublishedBetween(ctx, q.Libraries, *q.From, *q.To)
	default:
		n, err = h.service.TotalBookCount(ctx, q.Libraries)
	}

	if err != nil {
		dto.HandleError(c, err)
		return
	}

	h.metrics.CountQuery(q.Kind(), "aggregate")
	c.JSON(http.StatusOK, dto.CountResponse{Libraries: q.Libraries, Query: q.Describe(), Count: n})
}

// libraryContext tags the request logger with the library being read.
func (h *CatalogHandler) libraryContext(c *gin.Context) context.Context {
	return logging.WithLibrary(c.Request.Context(), c.Param("name"))
}

// RegisterCatalogRoutes registers the read routes on rg.
func (h *CatalogHandler) RegisterCatalogRoutes(rg *gin.RouterGroup) {
	rg.GET("/libraries", h.ListLibraries)
	rg.GET("/counts", h.Totals)

	lib := rg.Group("/libraries/:name")
	lib.GET("/books", h.ListBooks)
	lib.GET("/report", h.Report)
	lib.GET("/count", h.Count)
}
