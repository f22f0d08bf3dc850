package audio

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/sales-celebration/internal/config"
	"github.com/vfg2006/sales-celebration/internal/domain"
)

// ErrPlaybackBlocked é o erro de classe "permissão": a plataforma exige uma
// interação do usuário antes de liberar a reprodução. O gerenciador fica
// elegível para nova tentativa; qualquer outro erro é tratado como fatal.
var ErrPlaybackBlocked = errors.New("reprodução bloqueada: aguardando interação do usuário")

// contextState é o ciclo de vida do contexto de reprodução.
// Uninitialized -> (init preguiçoso) -> Suspended -> (resume) -> Running.
type contextState int

const (
	stateUninitialized contextState = iota
	stateSuspended
	stateRunning
)

func (s contextState) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateSuspended:
		return "suspended"
	case stateRunning:
		return "running"
	}
	return "unknown"
}

const playbackPollInterval = 50 * time.Millisecond

// ContextManager é o dono do único contexto de reprodução do processo e o
// único mutador do próprio estado; os demais componentes só enxergam o
// ReadyState devolvido por EnsureReady.
type ContextManager struct {
	cfg config.Audio

	mu    sync.Mutex
	state contextState
	pc    playbackContext

	// newContext é trocável nos testes (não há dispositivo de áudio no CI).
	newContext func(sampleRate int) (playbackContext, error)

	scheduler *gocron.Scheduler
}

func NewContextManager(cfg config.Audio) *ContextManager {
	return &ContextManager{
		cfg:        cfg,
		state:      stateUninitialized,
		newContext: newOtoContext,
	}
}

// EnsureReady garante (melhor esforço) que o contexto pode tocar agora.
// Blocked indica que o host precisa de um gesto do usuário e de uma nova
// chamada; nunca retorna erro — falha fatal derruba o contexto e a próxima
// chamada reconstrói do zero.
func (m *ContextManager) EnsureReady(_ context.Context) domain.ReadyState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureReadyLocked()
}

func (m *ContextManager) ensureReadyLocked() domain.ReadyState {
	if m.state == stateUninitialized {
		pc, err := m.newContext(m.cfg.SampleRate)
		if err != nil {
			if errors.Is(err, ErrPlaybackBlocked) {
				logrus.Info("Contexto de áudio bloqueado na inicialização, aguardando gesto do usuário")
				return domain.ReadyStateBlocked
			}
			logrus.WithError(err).Error("Falha ao construir o contexto de áudio")
			m.teardownLocked()
			return domain.ReadyStateBlocked
		}

		m.pc = pc
		m.state = stateSuspended
		logrus.WithField("sample_rate", m.cfg.SampleRate).Info("Contexto de áudio inicializado")
	}

	if m.state == stateSuspended {
		if err := m.pc.Resume(); err != nil {
			if errors.Is(err, ErrPlaybackBlocked) {
				// Permanece suspenso e elegível para retry após o gesto.
				logrus.Info("Resume do contexto de áudio bloqueado, aguardando gesto do usuário")
				return domain.ReadyStateBlocked
			}

			logrus.WithError(err).Error("Falha irrecuperável ao retomar o contexto de áudio")
			m.teardownLocked()
			return domain.ReadyStateBlocked
		}

		m.state = stateRunning
		logrus.Info("Contexto de áudio em execução")
	}

	return domain.ReadyStateRunning
}

// teardownLocked descarta o contexto por inteiro; nunca fica um contexto
// meio-inicializado pendurado.
func (m *ContextManager) teardownLocked() {
	if m.pc != nil {
		_ = m.pc.Suspend()
	}
	m.pc = nil
	m.state = stateUninitialized
}

// State informa o estado atual sem tentar inicializar nada (endpoint de status).
func (m *ContextManager) State() domain.ReadyState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == stateRunning {
		return domain.ReadyStateRunning
	}
	return domain.ReadyStateBlocked
}

// PlayClip inicia a reprodução e retorna um canal fechado quando o clipe
// termina naturalmente. O chamador mantém o próprio timer de término: um
// player travado nunca pode segurar a fila de celebrações.
func (m *ContextManager) PlayClip(clip *Clip) (<-chan struct{}, error) {
	m.mu.Lock()
	if m.ensureReadyLocked() != domain.ReadyStateRunning {
		m.mu.Unlock()
		return nil, ErrPlaybackBlocked
	}
	player := m.pc.NewPlayer(bytes.NewReader(clip.PCM))
	m.mu.Unlock()

	player.Play()

	done := make(chan struct{})
	deadline := time.Now().Add(clip.Duration + time.Second)

	go func() {
		defer close(done)
		defer player.Close()

		for player.IsPlaying() && time.Now().Before(deadline) {
			time.Sleep(playbackPollInterval)
		}
	}()

	return done, nil
}

// StartMaintenance agenda a sonda de vitalidade: em uma vitrine sempre ligada
// a plataforma pode suspender o contexto por inatividade, e a sonda retoma
// proativamente. É melhor esforço; o caminho de reprodução não depende dela.
func (m *ContextManager) StartMaintenance(ctx context.Context) error {
	interval := m.cfg.ProbeIntervalSeconds
	if interval <= 0 {
		logrus.Info("Sonda de vitalidade do áudio desabilitada por configuração")
		return nil
	}

	m.scheduler = gocron.NewScheduler(time.Local)

	_, err := m.scheduler.Every(interval).Seconds().Do(func() {
		m.probe()
	})
	if err != nil {
		return errors.Wrap(err, "erro ao agendar sonda de vitalidade do áudio")
	}

	m.scheduler.StartAsync()

	go func() {
		<-ctx.Done()
		logrus.Info("Parando sonda de vitalidade do áudio")
		m.scheduler.Stop()
	}()

	return nil
}

// probe nunca disputa com uma reprodução em foreground: se o mutex estiver
// ocupado, simplesmente pula esta rodada.
func (m *ContextManager) probe() {
	if !m.mu.TryLock() {
		return
	}
	defer m.mu.Unlock()

	if m.state == stateUninitialized {
		// Inicialização é responsabilidade do primeiro pedido de reprodução.
		return
	}

	if state := m.ensureReadyLocked(); state != domain.ReadyStateRunning {
		logrus.WithField("state", state.String()).Debug("Sonda de vitalidade: contexto ainda não disponível")
		return
	}

	// Com o contexto rodando, um Resume extra é inócuo e detecta suspensão
	// silenciosa imposta pela plataforma.
	if err := m.pc.Resume(); err != nil {
		logrus.WithError(err).Warn("Sonda de vitalidade: contexto suspenso pela plataforma")
		m.state = stateSuspended
	}
}

// Close derruba a sonda e o contexto.
func (m *ContextManager) Close() {
	if m.scheduler != nil {
		m.scheduler.Stop()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked()
}
