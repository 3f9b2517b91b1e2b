package orderapi

import (
	"context"
	"net/http"
	"time"

	"tailoring-bot/internal/catalog"
	"tailoring-bot/pkg/api"
)

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Tailoring order API",
		"status":  "active",
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "healthy", http.StatusOK
	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			s.logger.Warn("Health check failed")
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"service":   "tailoring-api",
	})
}

// products lists the single product with its fabrics. Prices are minor units.
func (s *Server) products(w http.ResponseWriter, r *http.Request) {
	fabrics := s.catalog.Fabrics()
	out := api.Product{
		ID:          catalog.ProductID,
		Name:        catalog.ProductName,
		Description: "Handcrafted luxury trousers made from the finest fabrics",
		Currency:    s.currency,
		Available:   true,
		Fabrics:     make([]api.Fabric, 0, len(fabrics)),
	}
	for _, f := range fabrics {
		out.Fabrics = append(out.Fabrics, api.Fabric{
			Name:        f.Name,
			Price:       catalog.ToMinorUnits(f.Price),
			Description: f.Description,
			Features:    f.Features,
		})
	}
	if def, ok := s.catalog.Lookup(catalog.DefaultFabric); ok {
		out.Price = catalog.ToMinorUnits(def.Price)
	}
	writeJSON(w, http.StatusOK, api.ProductsResponse{Products: []api.Product{out}})
}
