package handler

import (
	"net/http"

	"github.com/vfg2006/sales-celebration/infrastructure/audio"
	"github.com/vfg2006/sales-celebration/infrastructure/repository"
	"github.com/vfg2006/sales-celebration/internal/api/handler/router"
	"github.com/vfg2006/sales-celebration/internal/view"
)

func Healthcheck() []router.Route {
	return []router.Route{
		{
			Path:    "/healthcheck",
			Method:  http.MethodGet,
			Handler: HealthcheckHandler(),
		},
	}
}

func Dashboard(viewState *view.State) []router.Route {
	return []router.Route{
		{
			Path:    "/v1/dashboard/snapshot",
			Method:  http.MethodGet,
			Handler: GetDashboardSnapshot(viewState),
		},
		{
			Path:    "/v1/dashboard/celebration",
			Method:  http.MethodGet,
			Handler: GetCelebration(viewState),
		},
	}
}

func Audio(manager *audio.ContextManager, cache *audio.AssetCache) []router.Route {
	return []router.Route{
		{
			Path:    "/v1/audio/status",
			Method:  http.MethodGet,
			Handler: GetAudioStatus(manager, cache),
		},
		{
			Path:    "/v1/audio/unlock",
			Method:  http.MethodPost,
			Handler: UnlockAudio(manager),
		},
	}
}

func Transactions(service repository.TransactionRepository) []router.Route {
	return []router.Route{
		{
			Path:    "/v1/transactions",
			Method:  http.MethodPost,
			Handler: CreateTransaction(service),
		},
		{
			Path:    "/v1/transactions/:id",
			Method:  http.MethodDelete,
			Handler: DeleteTransaction(service),
		},
	}
}

func Sellers(service repository.SellerRepository) []router.Route {
	return []router.Route{
		{
			Path:    "/v1/sellers",
			Method:  http.MethodGet,
			Handler: ListSellers(service),
		},
	}
}
