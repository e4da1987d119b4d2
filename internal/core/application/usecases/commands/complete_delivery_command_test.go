package commands_test

import (
	"testing"

	"shiptrack/internal/core/application/usecases/commands"
	"shiptrack/internal/core/domain/model/identity"
	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCompleteDeliveryCommand(t *testing.T) {
	agent := newPrincipal(t, identity.RoleAgent)

	t.Run("should accept signature without photo", func(t *testing.T) {
		cmd, err := commands.NewCompleteDeliveryCommand(kernel.NewUUID(), agent, " J. Doe ", "")

		require.NoError(t, err)
		require.NoError(t, cmd.Validate())
		assert.Equal(t, "J. Doe", cmd.Signature())
		assert.Empty(t, cmd.Photo())
	})

	t.Run("should require signature", func(t *testing.T) {
		_, err := commands.NewCompleteDeliveryCommand(kernel.NewUUID(), agent, "   ", "photo.jpg")

		require.ErrorIs(t, err, errs.ErrValueIsRequired)
	})
}

func TestCompleteDeliveryCommand_Validate_ZeroValue(t *testing.T) {
	var cmd commands.CompleteDeliveryCommand

	require.ErrorIs(t, cmd.Validate(), commands.ErrCompleteDeliveryCommandIsNotConstructed)
}
