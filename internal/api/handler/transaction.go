package handler

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/vfg2006/sales-celebration/infrastructure/repository"
	"github.com/vfg2006/sales-celebration/internal/domain"
	"github.com/vfg2006/sales-celebration/pkg/apiErrors"
	"github.com/vfg2006/sales-celebration/pkg/log"
	"github.com/vfg2006/sales-celebration/pkg/utils"
)

type createTransactionRequest struct {
	SellerID   *string   `json:"seller_id"`
	SellerName string    `json:"seller_name"`
	Amount     float64   `json:"amount"`
	Timestamp  time.Time `json:"timestamp"`
}

// CreateTransaction registra uma venda. A notificação para o agregador sai do
// trigger do banco, nunca daqui: quem escreve direto no banco gera o mesmo
// fluxo de eventos que esta rota.
func CreateTransaction(service repository.TransactionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		var payload createTransactionRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "Corpo da requisição inválido", nil)
			return
		}

		if payload.SellerName == "" {
			apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, "seller_name é obrigatório", nil)
			return
		}

		if payload.Amount <= 0 || !utils.IsFinite(payload.Amount) {
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "amount deve ser um valor positivo", nil)
			return
		}

		transaction := &domain.Transaction{
			SellerID:   payload.SellerID,
			SellerName: payload.SellerName,
			Amount:     utils.RoundWithTwoDecimalPlace(payload.Amount),
			Timestamp:  payload.Timestamp,
		}

		created, err := service.Insert(r.Context(), transaction)
		if err != nil {
			logger.WithError(err).Error("Erro ao registrar venda")
			apiErrors.WriteError(w, apiErrors.ErrDatabaseOperation, "Erro ao registrar venda", nil)
			return
		}

		logger.WithFields(log.Fields{
			"transaction_id": created.ID,
			"seller_name":    created.SellerName,
		}).Info("Venda registrada")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(created); err != nil {
			logger.WithError(err).Error("Erro ao enviar resposta da venda criada")
		}
	}
}

// DeleteTransaction remove uma venda lançada por engano. O trigger de DELETE
// notifica o agregador, que recalcula os totais sem celebrar nada.
func DeleteTransaction(service repository.TransactionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		id := httprouter.ParamsFromContext(r.Context()).ByName("id")
		if id == "" {
			apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, "ID da venda não fornecido", nil)
			return
		}

		err := service.Delete(r.Context(), id)
		if err == sql.ErrNoRows {
			apiErrors.WriteError(w, apiErrors.ErrNotFound, "Venda não encontrada", nil)
			return
		}
		if err != nil {
			logger.WithError(err).Error("Erro ao excluir venda")
			apiErrors.WriteError(w, apiErrors.ErrDatabaseOperation, "Erro ao excluir venda", nil)
			return
		}

		logger.WithField("transaction_id", id).Info("Venda excluída")
		w.WriteHeader(http.StatusNoContent)
	}
}
