package handler

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/sales-celebration/infrastructure/audio"
	"github.com/vfg2006/sales-celebration/internal/domain"
	"github.com/vfg2006/sales-celebration/pkg/apiErrors"
)

type audioStatusResponse struct {
	ContextState string              `json:"context_state"`
	Assets       []domain.AudioAsset `json:"assets"`
}

// GetAudioStatus expõe o estado do contexto de reprodução e dos clipes em
// cache, para diagnóstico da vitrine.
func GetAudioStatus(manager *audio.ContextManager, cache *audio.AssetCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, audioStatusResponse{
			ContextState: manager.State().String(),
			Assets:       cache.Snapshot(),
		})
	}
}

type audioUnlockResponse struct {
	ContextState string `json:"context_state"`
}

// UnlockAudio é o destino do gesto do usuário na vitrine: um toque na tela
// vira este POST, que tenta retomar o contexto bloqueado pela plataforma.
func UnlockAudio(manager *audio.ContextManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := manager.EnsureReady(r.Context())

		logrus.WithField("state", state.String()).Info("Pedido de desbloqueio de áudio processado")

		if state != domain.ReadyStateRunning {
			apiErrors.WriteError(w, apiErrors.ErrAudioUnavailable,
				"Contexto de áudio continua bloqueado", audioUnlockResponse{ContextState: state.String()})
			return
		}

		writeJSON(w, audioUnlockResponse{ContextState: state.String()})
	}
}
