package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/sgunnelsporter/VirtualTourist/internal/models"
)

// ParseCommand parses a NATS control message into an AlbumCommand.
func ParseCommand(data []byte) (models.AlbumCommand, error) {
	var cmd models.AlbumCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return cmd, fmt.Errorf("parse command: %w", err)
	}
	return cmd, nil
}
