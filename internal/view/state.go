// Package view guarda o último estado pronto para exibição. A vitrine (ou
// qualquer cliente HTTP) só lê daqui; quem escreve são o agregador e o
// orquestrador de celebrações.
package view

import (
	"sync"
	"time"

	"github.com/vfg2006/sales-celebration/internal/domain"
)

// State é o ponto de encontro entre o núcleo e a camada de apresentação:
// implementa o Presenter do orquestrador e o sink de snapshots do agregador.
type State struct {
	mu sync.RWMutex

	snapshot    *domain.AggregateSnapshot
	celebration *domain.CelebrationView
	lastBurst   *domain.ConfettiBurst
	updatedAt   time.Time
}

func NewState() *State {
	return &State{}
}

// OnSnapshot substitui o snapshot exibido; casa com aggregating.SnapshotFunc.
func (s *State) OnSnapshot(snapshot domain.AggregateSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = &snapshot
	s.updatedAt = time.Now()
}

// Snapshot retorna o último snapshot calculado (nil antes da primeira carga).
func (s *State) Snapshot() *domain.AggregateSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot == nil {
		return nil
	}

	copied := *s.snapshot
	return &copied
}

func (s *State) ShowCelebration(view domain.CelebrationView) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.celebration = &view
	s.lastBurst = nil
}

func (s *State) EmitConfetti(burst domain.ConfettiBurst) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Emissão de sessão já limpa chega atrasada; ignorar evita ressuscitar o
	// confete depois do ClearCelebration.
	if s.celebration == nil || s.celebration.SessionID != burst.SessionID {
		return
	}

	s.lastBurst = &burst
}

// ClearCelebration limpa o balão apenas se a sessão informada ainda for a
// visível; uma sessão nova nunca é apagada pelo término da anterior.
func (s *State) ClearCelebration(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.celebration == nil || s.celebration.SessionID != sessionID {
		return
	}

	s.celebration = nil
	s.lastBurst = nil
}

// Celebration retorna a celebração visível e a última emissão de confete
// (ambos nil quando não há sessão ativa).
func (s *State) Celebration() (*domain.CelebrationView, *domain.ConfettiBurst) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var view *domain.CelebrationView
	if s.celebration != nil {
		copied := *s.celebration
		view = &copied
	}

	var burst *domain.ConfettiBurst
	if s.lastBurst != nil {
		copied := *s.lastBurst
		burst = &copied
	}

	return view, burst
}

// UpdatedAt informa quando o snapshot foi atualizado pela última vez.
func (s *State) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}
