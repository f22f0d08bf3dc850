package handler

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/sales-celebration/infrastructure/repository"
	"github.com/vfg2006/sales-celebration/pkg/apiErrors"
)

// ListSellers retorna o cadastro de vendedores (foto, meta e som configurado).
func ListSellers(service repository.SellerRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellers, err := service.List(r.Context())
		if err != nil {
			logrus.WithError(err).Error("Erro ao listar vendedores")
			apiErrors.WriteError(w, apiErrors.ErrDatabaseOperation, "Erro ao listar vendedores", nil)
			return
		}

		writeJSON(w, sellers)
	}
}
