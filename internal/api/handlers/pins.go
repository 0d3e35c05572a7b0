package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sgunnelsporter/VirtualTourist/internal/models"
	"github.com/sgunnelsporter/VirtualTourist/internal/projection"
	"github.com/sgunnelsporter/VirtualTourist/internal/storage"
	"github.com/sgunnelsporter/VirtualTourist/pkg/dto"
)

// CommandPublisher sends album control commands to the worker.
type CommandPublisher interface {
	PublishCommand(cmd models.AlbumCommand) error
}

type PinHandler struct {
	store    storage.Store
	commands CommandPublisher
	registry *projection.Registry
}

func NewPinHandler(store storage.Store, commands CommandPublisher, registry *projection.Registry) *PinHandler {
	return &PinHandler{store: store, commands: commands, registry: registry}
}

func (h *PinHandler) Create(c *gin.Context) {
	var req dto.CreatePinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pin, err := h.store.CreatePin(c.Request.Context(), *req.Latitude, *req.Longitude, req.LocationName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Kick off the first photo search for the new pin.
	if err := h.commands.PublishCommand(models.AlbumCommand{
		Action: models.AlbumActionLoad,
		PinID:  pin.ID,
	}); err != nil {
		slog.Warn("publish load command", "pin_id", pin.ID, "error", err)
	}

	c.JSON(http.StatusCreated, pinToResponse(pin))
}

func (h *PinHandler) List(c *gin.Context) {
	pins, err := h.store.ListPins(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.PinResponse, 0, len(pins))
	for i := range pins {
		resp = append(resp, pinToResponse(&pins[i]))
	}
	c.JSON(http.StatusOK, dto.PinListResponse{Pins: resp, Total: len(resp)})
}

func (h *PinHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pin id"})
		return
	}

	pin, err := h.store.GetPin(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "pin not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, pinToResponse(pin))
}

func (h *PinHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pin id"})
		return
	}

	if err := h.store.DeletePin(c.Request.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "pin not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.registry.Drop(id)
	c.Status(http.StatusNoContent)
}

func pinToResponse(p *models.Pin) dto.PinResponse {
	return dto.PinResponse{
		ID:           p.ID,
		Latitude:     p.Latitude,
		Longitude:    p.Longitude,
		LocationName: p.LocationName,
		CreatedAt:    p.CreatedAt.Format(time.RFC3339),
	}
}
