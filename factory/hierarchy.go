/*
Package factory provides JSON to Go hierarchy conversion.

PURPOSE:
  Converts JSON hierarchy definitions into stored admin and promoter rows.
  This enables seeding without code changes - an operator can describe a
  venue's promoter tree in JSON and load it at startup or through the
  scenarios endpoint.

JSON SCHEMA:
  {
    "admin": "nightowl",
    "promoters": [
      {"handle": "mario", "percentage": 10, "powers": true},
      {"handle": "luca", "percentage": 5, "parent": "mario"}
    ]
  }

  Promoters are created in order; a "parent" must reference the admin (by
  omission) or an earlier promoter's handle.

USAGE:
  f := factory.New(store)
  result, err := f.Load(ctx, jsonString)

SEE ALSO:
  - roster: The validated mutation path used for each row
  - api/scenarios.go: Demo hierarchies built through this factory
*/
package factory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/clubhaus/commission-engine/hierarchy"
	"github.com/clubhaus/commission-engine/roster"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// HierarchyJSON is the JSON representation of a seed hierarchy.
type HierarchyJSON struct {
	Admin     string         `json:"admin"`
	Promoters []PromoterJSON `json:"promoters"`
}

// PromoterJSON is one seed promoter.
type PromoterJSON struct {
	Handle     string  `json:"handle"`
	Percentage float64 `json:"percentage"`
	Parent     string  `json:"parent,omitempty"` // handle of an earlier promoter
	Powers     bool    `json:"powers,omitempty"`
}

// Result reports what a load created.
type Result struct {
	Admin     hierarchy.Admin
	Promoters []hierarchy.Promoter
}

// =============================================================================
// FACTORY
// =============================================================================

// Factory loads JSON hierarchies into a store.
type Factory struct {
	store  hierarchy.TxStore
	roster *roster.Roster
}

func New(store hierarchy.TxStore) *Factory {
	return &Factory{store: store, roster: roster.NewRoster(store)}
}

// Load parses and creates the hierarchy described by jsonStr. The admin is
// reused if the handle already exists; promoters go through the same
// validation as interactive creation.
func (f *Factory) Load(ctx context.Context, jsonStr string) (*Result, error) {
	var def HierarchyJSON
	if err := json.Unmarshal([]byte(jsonStr), &def); err != nil {
		return nil, fmt.Errorf("invalid hierarchy JSON: %w", err)
	}
	if def.Admin == "" {
		return nil, fmt.Errorf("hierarchy JSON missing admin handle")
	}

	admin, err := f.findOrCreateAdmin(ctx, def.Admin)
	if err != nil {
		return nil, err
	}

	result := &Result{Admin: *admin}
	byHandle := make(map[string]hierarchy.NodeID, len(def.Promoters))

	for i, pj := range def.Promoters {
		if pj.Handle == "" {
			return nil, fmt.Errorf("promoter %d: missing handle", i)
		}

		parentID := admin.ID
		if pj.Parent != "" {
			id, ok := byHandle[pj.Parent]
			if !ok {
				return nil, fmt.Errorf("promoter %q: parent %q not defined earlier", pj.Handle, pj.Parent)
			}
			parentID = id
		}

		p, err := f.roster.Create(ctx, roster.CreateInput{
			Handle:     pj.Handle,
			Percentage: decimal.NewFromFloat(pj.Percentage),
			ParentID:   &parentID,
			Powers:     pj.Powers,
		})
		if err != nil {
			return nil, fmt.Errorf("creating promoter %q: %w", pj.Handle, err)
		}
		byHandle[pj.Handle] = p.ID
		result.Promoters = append(result.Promoters, *p)
	}
	return result, nil
}

func (f *Factory) findOrCreateAdmin(ctx context.Context, handle string) (*hierarchy.Admin, error) {
	admins, err := f.store.ListAdmins(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range admins {
		if a.Handle == handle {
			out := a
			return &out, nil
		}
	}
	a := &hierarchy.Admin{Handle: handle}
	if err := f.store.CreateAdmin(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
