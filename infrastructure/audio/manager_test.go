package audio

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/sales-celebration/internal/config"
	"github.com/vfg2006/sales-celebration/internal/domain"
)

type fakePlaybackContext struct {
	mu         sync.Mutex
	resumeErrs []error // consumidos em ordem; vazio = sucesso
	resumes    int
	suspends   int
	players    []*fakeClipPlayer
}

func (f *fakePlaybackContext) Resume() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.resumes++
	if len(f.resumeErrs) > 0 {
		err := f.resumeErrs[0]
		f.resumeErrs = f.resumeErrs[1:]
		return err
	}
	return nil
}

func (f *fakePlaybackContext) Suspend() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suspends++
	return nil
}

func (f *fakePlaybackContext) NewPlayer(_ io.Reader) clipPlayer {
	f.mu.Lock()
	defer f.mu.Unlock()

	player := &fakeClipPlayer{}
	f.players = append(f.players, player)
	return player
}

func (f *fakePlaybackContext) resumeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resumes
}

type fakeClipPlayer struct {
	mu      sync.Mutex
	playing bool
	closed  bool
}

func (p *fakeClipPlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = true
}

func (p *fakeClipPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *fakeClipPlayer) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
}

func (p *fakeClipPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func newTestManager(pc *fakePlaybackContext, newErr error) *ContextManager {
	manager := NewContextManager(config.Audio{SampleRate: 44100})
	manager.newContext = func(_ int) (playbackContext, error) {
		if newErr != nil {
			return nil, newErr
		}
		return pc, nil
	}
	return manager
}

func TestContextManager_EnsureReady(t *testing.T) {
	t.Run("Inicialização preguiçosa leva o contexto a Running", func(t *testing.T) {
		pc := &fakePlaybackContext{}
		manager := newTestManager(pc, nil)

		assert.Equal(t, domain.ReadyStateBlocked, manager.State())
		assert.Equal(t, domain.ReadyStateRunning, manager.EnsureReady(context.Background()))
		assert.Equal(t, domain.ReadyStateRunning, manager.State())
		assert.Equal(t, 1, pc.resumeCount())
	})

	t.Run("Bloqueio de permissão mantém o retry elegível", func(t *testing.T) {
		pc := &fakePlaybackContext{
			resumeErrs: []error{ErrPlaybackBlocked, ErrPlaybackBlocked},
		}
		manager := newTestManager(pc, nil)

		// Duas tentativas bloqueadas; a terceira (após o gesto) libera.
		assert.Equal(t, domain.ReadyStateBlocked, manager.EnsureReady(context.Background()))
		assert.Equal(t, domain.ReadyStateBlocked, manager.EnsureReady(context.Background()))
		assert.Equal(t, domain.ReadyStateRunning, manager.EnsureReady(context.Background()))
	})

	t.Run("Erro fatal derruba o contexto e a próxima chamada reconstrói", func(t *testing.T) {
		pc := &fakePlaybackContext{
			resumeErrs: []error{errors.New("dispositivo desapareceu")},
		}
		manager := newTestManager(pc, nil)

		assert.Equal(t, domain.ReadyStateBlocked, manager.EnsureReady(context.Background()))
		assert.Equal(t, domain.ReadyStateBlocked, manager.State())

		// Reconstrução do zero na chamada seguinte.
		assert.Equal(t, domain.ReadyStateRunning, manager.EnsureReady(context.Background()))
	})

	t.Run("Falha na construção do contexto retorna Blocked", func(t *testing.T) {
		manager := newTestManager(nil, errors.New("sem dispositivo de áudio"))

		assert.Equal(t, domain.ReadyStateBlocked, manager.EnsureReady(context.Background()))
	})
}

func TestContextManager_PlayClip(t *testing.T) {
	pc := &fakePlaybackContext{}
	manager := newTestManager(pc, nil)

	clip := &Clip{
		PCM:        make([]byte, 64),
		SampleRate: 44100,
		Duration:   200 * time.Millisecond,
	}

	done, err := manager.PlayClip(clip)
	require.NoError(t, err)
	require.Len(t, pc.players, 1)

	player := pc.players[0]
	assert.True(t, player.IsPlaying())

	// O canal fecha quando o player termina naturalmente.
	player.stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("canal de término não fechou após o fim da reprodução")
	}
}

func TestContextManager_PlayClip_Bloqueado(t *testing.T) {
	pc := &fakePlaybackContext{
		resumeErrs: []error{ErrPlaybackBlocked},
	}
	manager := newTestManager(pc, nil)

	clip := &Clip{PCM: make([]byte, 64), Duration: time.Second}

	done, err := manager.PlayClip(clip)
	assert.Nil(t, done)
	assert.ErrorIs(t, err, ErrPlaybackBlocked)
	assert.Empty(t, pc.players)
}

func TestContextManager_PlayClip_PlayerTravado(t *testing.T) {
	pc := &fakePlaybackContext{}
	manager := newTestManager(pc, nil)

	// Player que nunca termina: o prazo duração+1s encerra o monitoramento.
	clip := &Clip{PCM: make([]byte, 64), Duration: 50 * time.Millisecond}

	done, err := manager.PlayClip(clip)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("prazo máximo de reprodução não encerrou o player travado")
	}
}

func TestContextManager_Probe(t *testing.T) {
	pc := &fakePlaybackContext{}
	manager := newTestManager(pc, nil)

	// Antes da primeira reprodução a sonda não inicializa nada.
	manager.probe()
	assert.Equal(t, domain.ReadyStateBlocked, manager.State())
	assert.Equal(t, 0, pc.resumeCount())

	require.Equal(t, domain.ReadyStateRunning, manager.EnsureReady(context.Background()))

	// Suspensão silenciosa imposta pela plataforma: o Resume extra da sonda
	// detecta e rebaixa o estado; a sonda seguinte retoma.
	pc.mu.Lock()
	pc.resumeErrs = []error{errors.New("contexto suspenso")}
	pc.mu.Unlock()

	manager.probe()
	assert.Equal(t, domain.ReadyStateBlocked, manager.State())

	manager.probe()
	assert.Equal(t, domain.ReadyStateRunning, manager.State())
}

func TestContextManager_Close(t *testing.T) {
	pc := &fakePlaybackContext{}
	manager := newTestManager(pc, nil)

	require.Equal(t, domain.ReadyStateRunning, manager.EnsureReady(context.Background()))
	manager.Close()

	assert.Equal(t, domain.ReadyStateBlocked, manager.State())
	assert.Equal(t, 1, pc.suspends)
}
