package domain

import "time"

// SessionState é a progressão linear de uma sessão de celebração.
// Starting -> Playing -> Completing; o estado terminal destrói a sessão.
type SessionState int

const (
	SessionStarting SessionState = iota
	SessionPlaying
	SessionCompleting
)

func (s SessionState) String() string {
	switch s {
	case SessionStarting:
		return "starting"
	case SessionPlaying:
		return "playing"
	case SessionCompleting:
		return "completing"
	}
	return "unknown"
}

// CelebrationSession é o ciclo completo de celebração de uma transação.
// Existe no máximo uma sessão em Playing por vez; as demais aguardam em fila.
type CelebrationSession struct {
	ID              string
	Transaction     Transaction
	Seller          *Seller
	StartedAt       time.Time
	PlannedDuration time.Duration
	State           SessionState
	AudioUsed       bool
}

// CelebrationView é o estado entregue à camada de apresentação enquanto a
// sessão está visível (balão com foto/nome/valor + gatilho de confete).
type CelebrationView struct {
	SessionID         string    `json:"session_id"`
	SellerName        string    `json:"seller_name"`
	ProfileImageURL   *string   `json:"profile_image_url,omitempty"`
	Amount            float64   `json:"amount"`
	StartedAt         time.Time `json:"started_at"`
	PlannedDurationMs int64     `json:"planned_duration_ms"`
	AudioUsed         bool      `json:"audio_used"`
}

// ConfettiBurst é uma emissão de partículas; a quantidade decai conforme o
// tempo restante da sessão, para o efeito terminar suave em vez de cortar.
type ConfettiBurst struct {
	SessionID string `json:"session_id"`
	Particles int    `json:"particles"`
	ElapsedMs int64  `json:"elapsed_ms"`
}
