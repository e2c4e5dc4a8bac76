// Package media implements the media collaborator: resolution of asset
// paths to playable URLs and ownership of the single current-music and
// current-sound slots that sound and music nodes replace.
package media

import (
	"fmt"

	"go.uber.org/zap"
)

// Resolver turns an asset path into a playable or displayable URL.
type Resolver interface {
	Resolve(src string) (string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(src string) (string, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(src string) (string, error) { return f(src) }

// PassthroughResolver resolves every asset path to itself.
func PassthroughResolver() Resolver {
	return ResolverFunc(func(src string) (string, error) { return src, nil })
}

// Clip is one resolved, playing asset.
type Clip struct {
	Src  string
	URL  string
	Loop bool
}

// Player owns the playback slots: one looping background music track, one
// one-shot sound, and the current background image. Starting a new clip in a
// slot replaces whatever occupied it.
type Player struct {
	resolver Resolver
	logger   *zap.Logger

	sound      *Clip
	music      *Clip
	background *Clip
	forceFit   bool
}

// NewPlayer creates a media player over the given resolver.
func NewPlayer(resolver Resolver, logger *zap.Logger) (*Player, error) {
	if resolver == nil {
		return nil, fmt.Errorf("resolver cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Player{resolver: resolver, logger: logger}, nil
}

// PlaySound stops any currently playing one-shot sound and starts the new
// clip, non-looping.
func (p *Player) PlaySound(src string) error {
	url, err := p.resolver.Resolve(src)
	if err != nil {
		return fmt.Errorf("resolve sound %q: %w", src, err)
	}
	p.sound = &Clip{Src: src, URL: url}
	p.logger.Debug("sound started", zap.String("src", src))
	return nil
}

// PlayMusic stops the current background music and starts the new track,
// looping indefinitely.
func (p *Player) PlayMusic(src string) error {
	url, err := p.resolver.Resolve(src)
	if err != nil {
		return fmt.Errorf("resolve music %q: %w", src, err)
	}
	p.music = &Clip{Src: src, URL: url, Loop: true}
	p.logger.Debug("music started", zap.String("src", src))
	return nil
}

// SetBackground swaps the current background image. The view layer observes
// the change and crossfades.
func (p *Player) SetBackground(src string, forceFit bool) error {
	url, err := p.resolver.Resolve(src)
	if err != nil {
		return fmt.Errorf("resolve background %q: %w", src, err)
	}
	p.background = &Clip{Src: src, URL: url}
	p.forceFit = forceFit
	p.logger.Debug("background swapped", zap.String("src", src), zap.Bool("forceFit", forceFit))
	return nil
}

// StopSound clears the one-shot sound slot.
func (p *Player) StopSound() { p.sound = nil }

// StopMusic clears the background music slot.
func (p *Player) StopMusic() { p.music = nil }

// CurrentSound returns the clip in the one-shot sound slot, or nil.
func (p *Player) CurrentSound() *Clip { return p.sound }

// CurrentMusic returns the clip in the background music slot, or nil.
func (p *Player) CurrentMusic() *Clip { return p.music }

// CurrentBackground returns the current background image and its fit mode.
func (p *Player) CurrentBackground() (*Clip, bool) { return p.background, p.forceFit }
