// Upload HTTP handlers.
//
// Endpoints:
//   - POST /uploads/property-image       (multipart field "image")
//   - POST /uploads/virtual-tour-video   (multipart field "video")
//
// Both return a stable storage key; clients pass that key back when creating
// or updating a listing. Size ceilings are enforced in the service before a
// single byte reaches object storage.
package handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hklets/go-rental-backend/internal/services"
)

// UploadService defines the upload-gate operations consumed by HTTP handlers.
// The ceiling accessors let the transport layer report the correct limit when
// the request body is rejected before multipart parsing even completes.
type UploadService interface {
	UploadImage(ctx context.Context, userID, filename string, size int64, body io.Reader) (*services.UploadResult, error)
	UploadVideo(ctx context.Context, userID, filename string, size int64, body io.Reader) (*services.UploadResult, error)
	ImageCeiling() int64
	VideoCeiling() int64
}

// UploadImage godoc
// @ID          uploadPropertyImage
// @Summary     Upload a property photo
// @Description Accepts a multipart file under field "image" and returns the stable key to reference it from a listing.
// @Tags        Uploads
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       image  formData  file  true  "Image file"
// @Success     201  {object}  services.UploadResult
// @Failure     400  {object}  handlers.ErrorResponse  "No file provided"
// @Failure     413  {object}  handlers.ErrorResponse  "File exceeds the image ceiling"
// @Router      /uploads/property-image [post]
func (h *Handlers) UploadImage(c *gin.Context) {
	h.upload(c, "image", h.uploadSvc.UploadImage, h.uploadSvc.ImageCeiling())
}

// UploadVideo godoc
// @ID          uploadVirtualTourVideo
// @Summary     Upload a virtual tour video
// @Description Accepts a multipart file under field "video" and returns the stable key to reference it from a listing.
// @Tags        Uploads
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       video  formData  file  true  "Video file"
// @Success     201  {object}  services.UploadResult
// @Failure     400  {object}  handlers.ErrorResponse  "No file provided"
// @Failure     413  {object}  handlers.ErrorResponse  "File exceeds the video ceiling"
// @Router      /uploads/virtual-tour-video [post]
func (h *Handlers) UploadVideo(c *gin.Context) {
	h.upload(c, "video", h.uploadSvc.UploadVideo, h.uploadSvc.VideoCeiling())
}

type uploadFn func(ctx context.Context, userID, filename string, size int64, body io.Reader) (*services.UploadResult, error)

func (h *Handlers) upload(c *gin.Context, field string, save uploadFn, ceiling int64) {
	fh, err := c.FormFile(field)
	if err != nil {
		// A body larger than the route cap aborts multipart parsing; that is
		// an oversized upload, not a missing file.
		if isBodyTooLarge(err) {
			failService(c, &services.FileTooLargeError{MaxBytes: ceiling})
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeNoFile, "no file provided in field '"+field+"'")
		return
	}

	f, err := fh.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unable to read uploaded file")
		return
	}
	defer closeFile(f)

	res, err := save(c.Request.Context(), userID(c), fh.Filename, fh.Size, f)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, res)
}

// isBodyTooLarge reports whether err originated from http.MaxBytesReader.
// The typed error is matched first; the message check covers wrappers that
// drop the error chain inside multipart parsing.
func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

func closeFile(f multipart.File) { _ = f.Close() }
