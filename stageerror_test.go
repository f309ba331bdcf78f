package conserver_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vcon-dev/conserver"
)

func TestStageError(t *testing.T) {
	cause := errors.New("timeout")
	err := fmt.Errorf("wrapped: %w", &conserver.StageError{
		VconID: "abc",
		Chain:  "main",
		Link:   "webhook",
		Err:    cause,
	})

	require.ErrorIs(t, err, cause)
	require.False(t, conserver.IsConfigError(err))
	require.Contains(t, err.Error(), "[chain=main] [link=webhook] [vcon_id=abc]: timeout")

	configErr := &conserver.StageError{Link: "ghost", Config: true, Err: conserver.ErrLinkNotFound}
	require.True(t, conserver.IsConfigError(configErr))
	require.Contains(t, configErr.Error(), "link configuration error")

	require.False(t, conserver.IsConfigError(cause))
	require.False(t, conserver.IsConfigError(nil))
}
