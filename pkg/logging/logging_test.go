package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitModes(t *testing.T) {
	prev := Logger
	defer func() { Logger = prev }()

	for _, mode := range []string{"release", "debug", ""} {
		require.NoError(t, Init(mode), "mode %q", mode)
		require.NotNil(t, Logger)
		Logger.Debug("logger ready")
	}
	Sync()
}
