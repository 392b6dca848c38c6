package handlers

import (
	"field-route-service/internal/api/dto"
	"field-route-service/internal/ports"
	"net/http"
)

type CustomerHandler struct {
	Repo ports.CustomerRepository
}

// List returns every customer, located or not, for route planning clients.
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	customers, err := h.Repo.ListCustomers(r.Context())
	if err != nil {
		writeServiceError(w, r, "list customers", err)
		return
	}

	res := dto.ListCustomersResponse{Customers: make([]dto.CustomerResponse, 0, len(customers))}
	for _, c := range customers {
		cr := dto.CustomerResponse{
			CustomerID:         c.ID,
			Name:               c.Name,
			VisitMinutes:       c.VisitMinutes,
			Priority:           c.Priority,
			VisitFrequencyDays: c.VisitFrequencyDays,
			AvgOrderValue:      c.AvgOrderValue,
			LastVisitAt:        c.LastVisitAt,
		}
		if c.Coordinates != nil {
			lat, lng := c.Coordinates.Lat, c.Coordinates.Lng
			cr.Lat, cr.Lng = &lat, &lng
		}
		res.Customers = append(res.Customers, cr)
	}

	writeJSON(w, r, http.StatusOK, res)
}
