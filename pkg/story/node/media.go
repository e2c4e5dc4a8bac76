package node

import (
	"go.uber.org/zap"

	"github.com/wehubfusion/Fabula/pkg/story/field"
)

// SoundNode plays a one-shot sound clip, replacing any clip currently
// occupying the sound slot, then falls through.
type SoundNode struct {
	BaseNode
	Src *field.Field
}

// NewSound creates a sound node.
func NewSound() *SoundNode {
	n := &SoundNode{Src: field.NewString("src", "sound asset")}
	n.init(TypeSound, colorMedia, 1, n.Src)
	return n
}

// Execute starts the clip and follows the first output. Playback failures
// are logged, never fatal to the story.
func (n *SoundNode) Execute(h Host) *Output {
	if err := h.Media().PlaySound(n.Src.String()); err != nil {
		h.Logger().Error("sound playback failed",
			zap.Int("nodeId", n.ID()), zap.String("src", n.Src.String()), zap.Error(err))
	}
	return n.FirstOut()
}

// MusicNode starts looping background music, replacing the current bgm slot,
// then falls through.
type MusicNode struct {
	BaseNode
	Src *field.Field
}

// NewMusic creates a music node.
func NewMusic() *MusicNode {
	n := &MusicNode{Src: field.NewString("src", "music asset")}
	n.init(TypeMusic, colorMedia, 1, n.Src)
	return n
}

// Execute starts the looping track and follows the first output.
func (n *MusicNode) Execute(h Host) *Output {
	if err := h.Media().PlayMusic(n.Src.String()); err != nil {
		h.Logger().Error("music playback failed",
			zap.Int("nodeId", n.ID()), zap.String("src", n.Src.String()), zap.Error(err))
	}
	return n.FirstOut()
}

// BackgroundNode swaps the current background image, then falls through.
type BackgroundNode struct {
	BaseNode
	Src      *field.Field
	ForceFit *field.Field
}

// NewBackground creates a background node.
func NewBackground() *BackgroundNode {
	n := &BackgroundNode{
		Src:      field.NewString("src", "image asset"),
		ForceFit: field.NewBool("forceFit"),
	}
	n.init(TypeBackground, colorMedia, 1, n.Src, n.ForceFit)
	return n
}

// Execute swaps the background and follows the first output.
func (n *BackgroundNode) Execute(h Host) *Output {
	if err := h.Media().SetBackground(n.Src.String(), n.ForceFit.Bool()); err != nil {
		h.Logger().Error("background swap failed",
			zap.Int("nodeId", n.ID()), zap.String("src", n.Src.String()), zap.Error(err))
	}
	return n.FirstOut()
}
