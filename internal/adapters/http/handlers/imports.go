package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/library-catalog/internal/adapters/http/dto"
	"github.com/jsamuelsen/library-catalog/internal/app"
	"github.com/jsamuelsen/library-catalog/internal/domain"
	"github.com/jsamuelsen/library-catalog/internal/platform/logging"
	"github.com/jsamuelsen/library-catalog/internal/platform/telemetry"
)

// ImportHandler adds books fetched from the external catalogue.
type ImportHandler struct {
	service        *app.ImportService
	defaultLibrary string
	metrics        *telemetry.CatalogMetrics
}

// NewImportHandler creates an import handler. defaultLibrary is the target
// of POST /imports; it may be empty, in which case that route rejects
// every request. metrics may be nil.
func NewImportHandler(service *app.ImportService, defaultLibrary string, metrics *telemetry.CatalogMetrics) *ImportHandler {
	return &ImportHandler{
		service:        service,
		defaultLibrary: strings.TrimSpace(defaultLibrary),
		metrics:        metrics,
	}
}

// ImportIntoLibrary handles POST /api/v1/libraries/:name/imports.
func (h *ImportHandler) ImportIntoLibrary(c *gin.Context) {
	h.importInto(c, c.Param("name"))
}

// ImportIntoDefault handles POST /api/v1/imports.
func (h *ImportHandler) ImportIntoDefault(c *gin.Context) {
	if h.defaultLibrary == "" {
		dto.RespondWithValidationErrors(c, map[string]string{
			"library": "no default library is configured",
		})

		return
	}

	h.importInto(c, h.defaultLibrary)
}

func (h *ImportHandler) importInto(c *gin.Context, library string) {
	var req dto.ImportRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		h.metrics.Import("invalid")
		dto.RespondWithBindError(c, err)

		return
	}

	ctx := logging.WithLibrary(c.Request.Context(), library)

	book, err := h.service.ImportByISBN(ctx, library, req.ISBN)
	h.metrics.Import(importOutcome(err))

	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewBookResponse(book))
}

func importOutcome(err error) string {
	switch {
	case err == nil:
		return "created"
	case domain.IsValidation(err), domain.IsNilArgument(err):
		return "invalid"
	case domain.IsForbidden(err):
		return "forbidden"
	case domain.IsNotFound(err):
		return "not_found"
	case domain.IsConflict(err):
		return "conflict"
	case domain.IsUnavailable(err):
		return "unavailable"
	default:
		return "error"
	}
}

// RegisterImportRoutes registers the import routes on rg behind guards.
func (h *ImportHandler) RegisterImportRoutes(rg *gin.RouterGroup, guards ...gin.HandlerFunc) {
	imports := rg.Group("", guards...)
	imports.POST("/imports", h.ImportIntoDefault)
	imports.POST("/libraries/:name/imports", h.ImportIntoLibrary)
}
