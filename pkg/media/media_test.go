package media

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewPlayer_RequiresResolver(t *testing.T) {
	_, err := NewPlayer(nil, zap.NewNop())
	assert.Error(t, err)
}

func TestPlayer_SlotsReplaceOnPlay(t *testing.T) {
	p, err := NewPlayer(PassthroughResolver(), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, p.PlaySound("click.ogg"))
	require.NoError(t, p.PlaySound("chime.ogg"))
	sound := p.CurrentSound()
	require.NotNil(t, sound)
	assert.Equal(t, "chime.ogg", sound.Src)
	assert.False(t, sound.Loop)

	require.NoError(t, p.PlayMusic("theme.ogg"))
	music := p.CurrentMusic()
	require.NotNil(t, music)
	assert.True(t, music.Loop, "background music loops")

	require.NoError(t, p.SetBackground("village.png", true))
	bg, forceFit := p.CurrentBackground()
	require.NotNil(t, bg)
	assert.Equal(t, "village.png", bg.Src)
	assert.True(t, forceFit)
}

func TestPlayer_StopClearsSlots(t *testing.T) {
	p, err := NewPlayer(PassthroughResolver(), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, p.PlaySound("a.ogg"))
	require.NoError(t, p.PlayMusic("b.ogg"))
	p.StopSound()
	p.StopMusic()
	assert.Nil(t, p.CurrentSound())
	assert.Nil(t, p.CurrentMusic())
}

func TestPlayer_ResolverErrorsPropagate(t *testing.T) {
	p, err := NewPlayer(ResolverFunc(func(src string) (string, error) {
		return "", fmt.Errorf("no asset %q", src)
	}), zap.NewNop())
	require.NoError(t, err)

	assert.Error(t, p.PlaySound("ghost.ogg"))
	assert.Error(t, p.PlayMusic("ghost.ogg"))
	assert.Error(t, p.SetBackground("ghost.png", false))
	assert.Nil(t, p.CurrentSound(), "a failed resolve leaves the slot untouched")
}

func TestPlayer_ResolverRewritesURL(t *testing.T) {
	p, err := NewPlayer(ResolverFunc(func(src string) (string, error) {
		return "https://cdn.example.com/" + src, nil
	}), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, p.PlayMusic("theme.ogg"))
	music := p.CurrentMusic()
	require.NotNil(t, music)
	assert.Equal(t, "theme.ogg", music.Src)
	assert.Equal(t, "https://cdn.example.com/theme.ogg", music.URL)
}
