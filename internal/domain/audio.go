package domain

import "time"

// LoadState é o ciclo de vida de um recurso de áudio no cache.
// Pending -> Ready (duração conhecida) ou Pending -> Failed (erro/timeout).
// Só volta a Pending quando a URL do vendedor muda (invalidação explícita).
type LoadState int

const (
	LoadStatePending LoadState = iota
	LoadStateReady
	LoadStateFailed
)

func (s LoadState) String() string {
	switch s {
	case LoadStatePending:
		return "pending"
	case LoadStateReady:
		return "ready"
	case LoadStateFailed:
		return "failed"
	}
	return "unknown"
}

// AudioAsset descreve o clipe de celebração de um vendedor.
type AudioAsset struct {
	SellerID  string        `json:"seller_id"`
	SourceURL string        `json:"source_url"`
	State     LoadState     `json:"state"`
	Duration  time.Duration `json:"duration_ms"`
	LoadedAt  time.Time     `json:"loaded_at"`
}

// ReadyState indica se o subsistema de áudio pode tocar agora.
// Blocked significa que a plataforma exige uma interação do usuário antes da
// reprodução; o host deve exibir um aviso e repetir EnsureReady após o gesto.
type ReadyState int

const (
	ReadyStateRunning ReadyState = iota
	ReadyStateBlocked
)

func (s ReadyState) String() string {
	if s == ReadyStateRunning {
		return "running"
	}
	return "blocked"
}
