package celebrating

import (
	"context"

	"github.com/vfg2006/sales-celebration/infrastructure/audio"
	"github.com/vfg2006/sales-celebration/internal/domain"
)

// AssetCache resolve o clipe de celebração de um vendedor, carregando sob
// demanda com espera limitada. (nil, nil) quando não há som configurado.
type AssetCache interface {
	EnsureLoaded(ctx context.Context, seller *domain.Seller) (*domain.AudioAsset, *audio.Clip)
}

// Playback é o contrato mínimo com o gerenciador do contexto de áudio.
type Playback interface {
	EnsureReady(ctx context.Context) domain.ReadyState
	PlayClip(clip *audio.Clip) (<-chan struct{}, error)
}

// Presenter recebe o estado visual da celebração; este núcleo nunca
// renderiza pixels.
type Presenter interface {
	ShowCelebration(view domain.CelebrationView)
	EmitConfetti(burst domain.ConfettiBurst)
	ClearCelebration(sessionID string)
}
