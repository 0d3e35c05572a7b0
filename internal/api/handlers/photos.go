package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sgunnelsporter/VirtualTourist/internal/models"
	"github.com/sgunnelsporter/VirtualTourist/internal/projection"
	"github.com/sgunnelsporter/VirtualTourist/internal/storage"
	"github.com/sgunnelsporter/VirtualTourist/pkg/dto"
)

type PhotoHandler struct {
	store    storage.Store
	commands CommandPublisher
	registry *projection.Registry
}

func NewPhotoHandler(store storage.Store, commands CommandPublisher, registry *projection.Registry) *PhotoHandler {
	return &PhotoHandler{store: store, commands: commands, registry: registry}
}

// ListForPin returns the pin's album. Viewing an album is what triggers
// downloads for photos that only have a source URL so far.
func (h *PhotoHandler) ListForPin(c *gin.Context) {
	pinID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pin id"})
		return
	}

	if _, err := h.store.GetPin(c.Request.Context(), pinID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "pin not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	album, err := h.registry.Album(c.Request.Context(), pinID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	entries := album.Entries(c.Request.Context())
	resp := make([]dto.PhotoResponse, 0, len(entries))
	for _, e := range entries {
		pr := dto.PhotoResponse{
			ID:        e.PhotoID,
			PinID:     pinID,
			SourceURL: e.SourceURL,
			HasData:   e.HasData,
		}
		if e.HasData {
			pr.ImageURL = fmt.Sprintf("/v1/photos/%s/image", e.PhotoID)
		}
		resp = append(resp, pr)
	}
	c.JSON(http.StatusOK, dto.PhotoListResponse{PinID: pinID, Photos: resp, Total: len(resp)})
}

// Refresh discards the pin's album and asks the worker for a new page.
func (h *PhotoHandler) Refresh(c *gin.Context) {
	pinID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pin id"})
		return
	}

	if _, err := h.store.GetPin(c.Request.Context(), pinID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "pin not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.commands.PublishCommand(models.AlbumCommand{
		Action: models.AlbumActionRefresh,
		PinID:  pinID,
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "refresh requested", "pin_id": pinID})
}

func (h *PhotoHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo id"})
		return
	}

	photo, err := h.store.GetPhoto(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "photo not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.DeletePhoto(c.Request.Context(), id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if album, ok := h.registry.Lookup(photo.PinID); ok {
		album.ApplyRemove(id)
	}
	c.Status(http.StatusNoContent)
}

// Image streams the cached image bytes for a photo.
func (h *PhotoHandler) Image(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo id"})
		return
	}

	data, err := h.store.PhotoData(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "photo not found or not yet downloaded"})
			return
		}
		slog.Error("read photo data", "photo_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "image/jpeg", data)
}
