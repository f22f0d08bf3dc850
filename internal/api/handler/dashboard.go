package handler

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/sales-celebration/internal/domain"
	"github.com/vfg2006/sales-celebration/internal/view"
	"github.com/vfg2006/sales-celebration/pkg/apiErrors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// GetDashboardSnapshot retorna os totais e rankings calculados por último.
func GetDashboardSnapshot(viewState *view.State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := viewState.Snapshot()
		if snapshot == nil {
			// Ainda sem a carga inicial; a vitrine tenta de novo em seguida.
			apiErrors.WriteError(w, apiErrors.ErrNotFound, "Snapshot ainda não calculado", nil)
			return
		}

		writeJSON(w, snapshot)
	}
}

type celebrationResponse struct {
	Active      bool                    `json:"active"`
	Celebration *domain.CelebrationView `json:"celebration,omitempty"`
	Confetti    *domain.ConfettiBurst   `json:"confetti,omitempty"`
}

// GetCelebration retorna a celebração visível no momento, se houver.
func GetCelebration(viewState *view.State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		celebration, burst := viewState.Celebration()

		writeJSON(w, celebrationResponse{
			Active:      celebration != nil,
			Celebration: celebration,
			Confetti:    burst,
		})
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithError(err).Error("Erro ao enviar resposta JSON")
	}
}
