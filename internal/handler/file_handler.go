package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/icdev-br/pic-portal-api/internal/dto"
	"github.com/icdev-br/pic-portal-api/internal/service"
	appErrors "github.com/icdev-br/pic-portal-api/pkg/errors"
	"github.com/icdev-br/pic-portal-api/pkg/response"
)

type fileService interface {
	CertificateLink(ctx context.Context, projectID string) (*dto.DownloadLink, error)
	ResolveDownload(ctx context.Context, token string) (*service.FileDownload, error)
}

// FileHandler exposes signed artifact download endpoints.
type FileHandler struct {
	service fileService
}

// NewFileHandler constructs the handler.
func NewFileHandler(service fileService) *FileHandler {
	return &FileHandler{service: service}
}

// CertificateLink godoc
// @Summary Create a signed download link for a project certificate
// @Tags Files
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/certificate/link [post]
func (h *FileHandler) CertificateLink(c *gin.Context) {
	if claims := claimsFromContext(c); claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	link, err := h.service.CertificateLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Download godoc
// @Summary Download a stored artifact via signed token
// @Tags Files
// @Produce application/octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Router /files/{token} [get]
func (h *FileHandler) Download(c *gin.Context) {
	download, err := h.service.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat stored file"))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+download.Filename+`"`)
	c.DataFromReader(http.StatusOK, info.Size(), "application/pdf", download.File, nil)
}
