package pipeline

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgunnelsporter/VirtualTourist/internal/models"
)

func TestParseCommand(t *testing.T) {
	pinID := uuid.New()
	photoID := uuid.New()

	cmd, err := ParseCommand([]byte(`{"action":"refresh","pin_id":"` + pinID.String() + `"}`))
	require.NoError(t, err)
	assert.Equal(t, models.AlbumActionRefresh, cmd.Action)
	assert.Equal(t, pinID, cmd.PinID)
	assert.Nil(t, cmd.PhotoID)

	cmd, err = ParseCommand([]byte(`{"action":"download","pin_id":"` + pinID.String() + `","photo_id":"` + photoID.String() + `"}`))
	require.NoError(t, err)
	require.NotNil(t, cmd.PhotoID)
	assert.Equal(t, photoID, *cmd.PhotoID)

	_, err = ParseCommand([]byte(`not json`))
	require.Error(t, err)
}
