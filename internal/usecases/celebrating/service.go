// Package celebrating coordena a celebração multi-canal (confete + som +
// balão) disparada por cada venda nova.
package celebrating

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/sales-celebration/internal/config"
	"github.com/vfg2006/sales-celebration/internal/domain"
	"github.com/vfg2006/sales-celebration/pkg/utils"
)

// Orchestrator garante no máximo uma sessão visível por vez. Vendas que
// chegam durante uma sessão entram em fila FIFO e são celebradas na ordem de
// chegada, uma de cada vez.
type Orchestrator struct {
	assets    AssetCache
	playback  Playback
	presenter Presenter
	cfg       config.Celebration

	now func() time.Time

	mu      sync.Mutex
	current *session
	queue   []pendingCelebration
	stopped bool
}

type pendingCelebration struct {
	transaction domain.Transaction
	seller      *domain.Seller
}

// session é o estado de execução de uma celebração. A progressão é linear
// (Starting -> Playing -> Completing) e o estado terminal destrói a sessão.
type session struct {
	data domain.CelebrationSession

	confettiStop chan struct{}
	finish       sync.Once

	timerMu       sync.Mutex
	fallbackTimer *time.Timer
}

func NewOrchestrator(
	assets AssetCache,
	playback Playback,
	presenter Presenter,
	cfg config.Celebration,
) *Orchestrator {
	return &Orchestrator{
		assets:    assets,
		playback:  playback,
		presenter: presenter,
		cfg:       cfg,
		now:       time.Now,
	}
}

// OnTransaction recebe cada venda nova observada pelo agregador. Nunca
// bloqueia o chamador: o carregamento do áudio acontece na goroutine da
// sessão, deixando o loop de eventos livre.
func (o *Orchestrator) OnTransaction(transaction domain.Transaction, seller *domain.Seller) {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}

	if o.current != nil {
		o.queue = append(o.queue, pendingCelebration{transaction: transaction, seller: seller})
		logrus.WithFields(logrus.Fields{
			"transaction_id": transaction.ID,
			"queue_size":     len(o.queue),
		}).Debug("Celebração em andamento, venda enfileirada")
		o.mu.Unlock()
		return
	}

	o.beginLocked(transaction, seller)
	o.mu.Unlock()
}

// beginLocked cria a sessão e a marca como corrente antes de soltar o lock,
// para que a próxima venda já enxergue a sessão ativa e vá para a fila.
func (o *Orchestrator) beginLocked(transaction domain.Transaction, seller *domain.Seller) {
	id, err := utils.GenerateID()
	if err != nil {
		// Sem id não há rastreio, mas a celebração não pode deixar de ocorrer.
		id = transaction.ID
	}

	sess := &session{
		data: domain.CelebrationSession{
			ID:          id,
			Transaction: transaction,
			Seller:      seller,
			StartedAt:   o.now(),
			State:       domain.SessionStarting,
		},
		confettiStop: make(chan struct{}),
	}

	o.current = sess

	go o.run(sess)
}

// run executa a sessão: resolve o áudio, decide a duração planejada e arma
// os gatilhos de término.
func (o *Orchestrator) run(sess *session) {
	logger := logrus.WithFields(logrus.Fields{
		"session_id":     sess.data.ID,
		"transaction_id": sess.data.Transaction.ID,
		"seller_name":    sess.data.Transaction.SellerName,
	})

	planned := o.cfg.FallbackDuration()
	var audioDone <-chan struct{}

	if sess.data.Seller.HasSound() {
		asset, clip := o.assets.EnsureLoaded(context.Background(), sess.data.Seller)

		switch {
		case asset == nil || asset.State != domain.LoadStateReady:
			logger.Debug("Som indisponível, celebração com duração de fallback")
		case o.playback.EnsureReady(context.Background()) == domain.ReadyStateBlocked:
			// Celebração segue só no visual; o host exibe o aviso de gesto.
			logger.Info("Reprodução bloqueada, celebração sem áudio")
		default:
			done, err := o.playback.PlayClip(clip)
			if err != nil {
				logger.WithError(err).Warn("Falha ao iniciar reprodução, usando fallback")
			} else {
				planned = asset.Duration
				audioDone = done
				sess.data.AudioUsed = true
			}
		}
	}

	sess.data.PlannedDuration = planned
	sess.data.State = domain.SessionPlaying

	logger.WithFields(logrus.Fields{
		"planned_ms": planned.Milliseconds(),
		"audio_used": sess.data.AudioUsed,
		"amount":     utils.FormatBRL(sess.data.Transaction.Amount),
	}).Info("Celebração iniciada")

	o.presenter.ShowCelebration(o.viewFor(sess))

	go o.emitConfetti(sess)

	// Gatilho terminal garantido: com áudio, o fim natural chega primeiro e o
	// timer vira a folga contra players travados; sem áudio, o timer é o fim.
	deadline := planned
	if sess.data.AudioUsed {
		deadline = planned + o.cfg.CompletionSlack()
	}
	sess.timerMu.Lock()
	sess.fallbackTimer = time.AfterFunc(deadline, func() {
		o.complete(sess)
	})
	sess.timerMu.Unlock()

	if audioDone != nil {
		go func() {
			select {
			case <-audioDone:
				o.complete(sess)
			case <-sess.confettiStop:
			}
		}()
	}
}

// emitConfetti mantém o cronograma de emissão com taxa proporcional ao tempo
// restante, para o efeito terminar suave.
func (o *Orchestrator) emitConfetti(sess *session) {
	o.presenter.EmitConfetti(domain.ConfettiBurst{
		SessionID: sess.data.ID,
		Particles: o.cfg.ConfettiMaxParticles,
	})

	ticker := time.NewTicker(o.cfg.ConfettiTick())
	defer ticker.Stop()

	for {
		select {
		case <-sess.confettiStop:
			return
		case <-ticker.C:
			elapsed := o.now().Sub(sess.data.StartedAt)
			remaining := sess.data.PlannedDuration - elapsed
			if remaining <= 0 {
				return
			}

			particles := int(float64(o.cfg.ConfettiMaxParticles) *
				remaining.Seconds() / sess.data.PlannedDuration.Seconds())
			if particles < 1 {
				particles = 1
			}

			o.presenter.EmitConfetti(domain.ConfettiBurst{
				SessionID: sess.data.ID,
				Particles: particles,
				ElapsedMs: elapsed.Milliseconds(),
			})
		}
	}
}

// complete leva a sessão ao estado terminal exatamente uma vez — seja pelo
// fim natural do áudio, pelo timer de fallback ou pelo Stop do host — limpa
// os visuais e promove a próxima venda da fila.
func (o *Orchestrator) complete(sess *session) {
	sess.finish.Do(func() {
		sess.data.State = domain.SessionCompleting

		close(sess.confettiStop)

		sess.timerMu.Lock()
		if sess.fallbackTimer != nil {
			sess.fallbackTimer.Stop()
		}
		sess.timerMu.Unlock()

		o.presenter.ClearCelebration(sess.data.ID)

		logrus.WithFields(logrus.Fields{
			"session_id":  sess.data.ID,
			"duration_ms": o.now().Sub(sess.data.StartedAt).Milliseconds(),
		}).Info("Celebração concluída")

		o.mu.Lock()
		o.current = nil
		if !o.stopped && len(o.queue) > 0 {
			next := o.queue[0]
			o.queue = o.queue[1:]
			o.beginLocked(next.transaction, next.seller)
		}
		o.mu.Unlock()
	})
}

// Stop encerra a sessão ativa e descarta a fila (teardown do host).
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	o.stopped = true
	o.queue = nil
	current := o.current
	o.mu.Unlock()

	if current != nil {
		o.complete(current)
	}
}

func (o *Orchestrator) viewFor(sess *session) domain.CelebrationView {
	view := domain.CelebrationView{
		SessionID:         sess.data.ID,
		SellerName:        sess.data.Transaction.SellerName,
		Amount:            sess.data.Transaction.Amount,
		StartedAt:         sess.data.StartedAt,
		PlannedDurationMs: sess.data.PlannedDuration.Milliseconds(),
		AudioUsed:         sess.data.AudioUsed,
	}

	if sess.data.Seller != nil {
		view.SellerName = sess.data.Seller.Name
		view.ProfileImageURL = sess.data.Seller.ProfileImageURL
	}

	return view
}
