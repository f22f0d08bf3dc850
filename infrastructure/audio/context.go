package audio

import (
	"io"

	"github.com/ebitengine/oto/v3"
)

// playbackContext abstrai o contexto de reprodução da plataforma para o
// gerenciador (e para os testes, que não têm dispositivo de áudio).
type playbackContext interface {
	Resume() error
	Suspend() error
	NewPlayer(r io.Reader) clipPlayer
}

type clipPlayer interface {
	Play()
	IsPlaying() bool
	Close() error
}

// otoContext é a implementação real sobre ebitengine/oto. O construtor só
// retorna depois que o dispositivo está pronto para receber players.
type otoContext struct {
	ctx *oto.Context
}

func newOtoContext(sampleRate int) (playbackContext, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	return &otoContext{ctx: ctx}, nil
}

func (c *otoContext) Resume() error {
	return c.ctx.Resume()
}

func (c *otoContext) Suspend() error {
	return c.ctx.Suspend()
}

func (c *otoContext) NewPlayer(r io.Reader) clipPlayer {
	return c.ctx.NewPlayer(r)
}
