package studio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fepozopo/promptcanvas/pkg/bgremove"
	"github.com/Fepozopo/promptcanvas/pkg/config"
	"github.com/Fepozopo/promptcanvas/pkg/engine"
)

func TestSetupFromDefaults(t *testing.T) {
	env, err := Setup(context.Background(), config.Default())
	require.NoError(t, err)
	defer env.Close()

	assert.Equal(t, engine.NativeName, env.Provider.Name())
	assert.Equal(t, bgremove.KeyingName, env.Background.EngineName())
	assert.Equal(t, int64(10*1024*1024), env.Intake.MaxSize)

	s, err := env.NewStudio()
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, 800, s.Canvas().Width())
	assert.Equal(t, 600, s.Canvas().Height())
}

func TestSetupRejectsBadSettings(t *testing.T) {
	cfg := config.Default()
	cfg.Canvas.Background = "chartreuse-ish"
	_, err := Setup(context.Background(), cfg)
	assert.Error(t, err)

	cfg = config.Default()
	cfg.Engine.Provider = "quantum"
	_, err = Setup(context.Background(), cfg)
	assert.ErrorIs(t, err, engine.ErrUnknownProvider)

	cfg = config.Default()
	cfg.Background.Engine = "magic"
	_, err = Setup(context.Background(), cfg)
	assert.Error(t, err)
}

func TestWarmupInitializesBackgroundEngine(t *testing.T) {
	env, err := Setup(context.Background(), config.Default())
	require.NoError(t, err)
	defer env.Close()
	env.Warmup(context.Background())
	<-env.Background.Ready()
	assert.Equal(t, bgremove.StateReady, env.Background.State())
}
