package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/formdesk/server/internal/storage"
	"github.com/formdesk/server/pkg/logger"
	"github.com/formdesk/server/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// MaxImageBytes caps a single question image.
const MaxImageBytes = 5 * 1024 * 1024

// allowedImageTypes maps the sniffed content types accepted for question
// images to the extension they are stored under. Raster formats only.
var allowedImageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// sniffContentType detects the type from the leading bytes and rewinds the
// file. The client's declared Content-Type is not trusted.
func sniffContentType(file io.ReadSeeker) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

type UploadsHandler struct {
	Store    ImageStore
	MaxBytes int64
}

func NewUploadsHandler(store ImageStore) *UploadsHandler {
	return &UploadsHandler{Store: store, MaxBytes: MaxImageBytes}
}

// UploadImage stores the multipart "image" field and returns its public URL.
// The URL is what clients put on a question's image_url.
func (h *UploadsHandler) UploadImage(c *fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "No image file provided")
	}
	if h.MaxBytes > 0 && fileHeader.Size > h.MaxBytes {
		return utils.Error(c, fiber.StatusBadRequest, fmt.Sprintf("Image must be less than %dMB", h.MaxBytes/(1024*1024)))
	}

	stream, err := fileHeader.Open()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed opening uploaded file")
	}
	defer stream.Close()

	contentType, err := sniffContentType(stream)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed reading uploaded file")
	}
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		logger.WarnWithUser(fmt.Sprint(userID), "image_upload_rejected", map[string]interface{}{
			"declared_type": fileHeader.Header.Get("Content-Type"),
			"detected_type": contentType,
		})
		return utils.Error(c, fiber.StatusBadRequest, "Only image files are allowed")
	}

	filename := uuid.New().String() + ext
	objectName := storage.ImagePrefix + filename
	if err := h.Store.Upload(c.UserContext(), objectName, stream, fileHeader.Size, contentType); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to upload image")
	}

	logger.InfoWithUser(fmt.Sprint(userID), "image_uploaded", map[string]interface{}{
		"object_name":  objectName,
		"size":         fileHeader.Size,
		"content_type": contentType,
	})

	return utils.Success(c, fiber.StatusCreated, fiber.Map{
		"url":      h.Store.PublicURL(objectName),
		"filename": filename,
	})
}
