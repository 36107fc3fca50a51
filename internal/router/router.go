package router

import (
	"bidding/internal/controller"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(c *controller.Controller) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", c.Ping)

		r.Route("/bids", func(r chi.Router) {
			r.Get("/", c.ListBids)
			r.Post("/new", c.CreateBid)

			r.Route("/{bidId}", func(r chi.Router) {
				r.Get("/", c.GetBid)
				r.Delete("/", c.DeleteBid)
				r.Patch("/edit", c.EditBid)
				r.Post("/submit", c.SubmitBid)
				r.Put("/status", c.UpdateBidStatus)
				r.Get("/versions", c.BidVersions)
				r.Get("/versions/{version}", c.BidVersion)

				r.Post("/documents", c.AddDocument)
				r.Delete("/documents/{documentId}", c.RemoveDocument)

				r.Get("/clarifications", c.ListClarifications)
				r.Post("/clarifications", c.RequestClarification)
				r.Post("/clarifications/expire", c.ExpireClarifications)

				r.Post("/compliance-check", c.CheckCompliance)
			})
		})

		r.Post("/clarifications/{clarificationId}/respond", c.RespondToClarification)
		r.Post("/compliance-items/{itemId}/verify", c.VerifyComplianceItem)
		r.Get("/tenders/{tenderId}/compliance-requirements", c.ComplianceRequirements)
	})

	return r
}
