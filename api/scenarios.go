/*
scenarios.go - Demo hierarchy loaders for testing and demonstrations

PURPOSE:
  Ships a few canned promoter hierarchies that can be loaded through the
  API, so a fresh database can be explored without hand-creating rows.

SEE ALSO:
  - factory/hierarchy.go: The JSON loader the scenarios go through
*/
package api

import (
	"net/http"
)

type scenario struct {
	ID          string
	Name        string
	Description string
	JSON        string
}

var scenarios = []scenario{
	{
		ID:          "flat-team",
		Name:        "Flat team",
		Description: "One admin with three direct promoters, no sub-levels",
		JSON: `{
			"admin": "nightowl",
			"promoters": [
				{"handle": "mario", "percentage": 10},
				{"handle": "giulia", "percentage": 8},
				{"handle": "luca", "percentage": 12}
			]
		}`,
	},
	{
		ID:          "three-levels",
		Name:        "Three levels",
		Description: "A head promoter with a sub-team, one sub-promoter with a recruit",
		JSON: `{
			"admin": "nightowl",
			"promoters": [
				{"handle": "mario", "percentage": 20, "powers": true},
				{"handle": "giulia", "percentage": 10, "parent": "mario"},
				{"handle": "luca", "percentage": 10, "parent": "mario"},
				{"handle": "sara", "percentage": 5, "parent": "giulia"}
			]
		}`,
	},
	{
		ID:          "only-child",
		Name:        "Only child",
		Description: "A parent with a single recruit, exercising the payer skip rule",
		JSON: `{
			"admin": "nightowl",
			"promoters": [
				{"handle": "mario", "percentage": 15, "powers": true},
				{"handle": "sara", "percentage": 7, "parent": "mario"}
			]
		}`,
	},
}

// ListScenarios returns the available demo scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, 0, len(scenarios))
	for _, s := range scenarios {
		dtos = append(dtos, ScenarioDTO{ID: s.ID, Name: s.Name, Description: s.Description})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// LoadScenario loads one demo hierarchy into the store.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	for _, s := range scenarios {
		if s.ID != req.ID {
			continue
		}
		result, err := h.factory.Load(r.Context(), s.JSON)
		if err != nil {
			writeDomainError(w, "Failed to load scenario", err)
			return
		}
		dtos := make([]PromoterDTO, 0, len(result.Promoters))
		for _, p := range result.Promoters {
			dtos = append(dtos, toPromoterDTO(p))
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"scenario":  s.ID,
			"admin":     result.Admin.Handle,
			"promoters": dtos,
		})
		return
	}
	writeError(w, http.StatusNotFound, "Unknown scenario", nil)
}
