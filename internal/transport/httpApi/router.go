package httpApi

import (
	"net/http"

	customMW "github.com/KotFed0t/fondos_backoffice/internal/transport/httpApi/middleware"
	"github.com/go-chi/chi/v5"
	chiMW "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(ctrl *Controller) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMW.Recoverer, customMW.Logger)

	r.Get("/health", ctrl.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/imports", func(r chi.Router) {
			r.Post("/", ctrl.ImportHoldings)
			r.With(customMW.Session).Post("/preview", ctrl.PreviewImport)
		})

		r.Route("/ledger", func(r chi.Router) {
			r.Use(customMW.Session)
			r.Get("/", ctrl.GetLedger)
			r.Delete("/", ctrl.ResetLedger)
			r.Post("/allocate", ctrl.Allocate)
			r.Post("/allocate-all", ctrl.AllocateAll)
			r.Post("/deallocate", ctrl.Deallocate)
			r.Post("/commit", ctrl.Commit)
		})

		r.Post("/prices/import", ctrl.ImportPrices)
		r.Get("/exchange-rate", ctrl.ExchangeRate)

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", ctrl.Clients)
			r.Post("/", ctrl.CreateClient)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", ctrl.Client)
				r.Get("/funds", ctrl.Funds)
				r.Post("/funds", ctrl.CreateFund)
				r.Get("/liquidity", ctrl.LiquidityMovements)
				r.Post("/liquidity", ctrl.RecordLiquidityMovement)
			})
		})

		r.Route("/funds/{id}", func(r chi.Router) {
			r.Get("/snapshots", ctrl.Snapshots)
			r.Post("/snapshots", ctrl.GenerateSnapshot)
			r.Post("/cash", ctrl.AssignCash)
		})

		r.Get("/reports/funds", ctrl.FundsReport)
	})

	return r
}
