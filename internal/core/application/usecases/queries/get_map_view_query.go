// Package queries contains read operations over the dispatch state.
// Queries never change the store; they turn snapshots into read models for
// the control surface and the map shell.
package queries

import (
	"errors"

	"dispatch/internal/core/domain/services"
	"dispatch/internal/pkg/guard"
)

var (
	ErrGetMapViewQueryIsNotConstructed = errors.New(
		"GetMapViewQuery must be created via NewGetMapViewQuery constructor",
	)
)

// GetMapViewQuery renders the current map frame.
//
// Example:
//
//	query := NewGetMapViewQuery()
//	handler := NewGetMapViewQueryHandler(store)
//
//	view, err := handler.Handle(ctx, query)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("%d markers, route: %v\n", len(view.Markers), view.Route != nil)
type GetMapViewQuery struct {
	guard guard.ConstructorGuard
}

func NewGetMapViewQuery() GetMapViewQuery {
	return GetMapViewQuery{guard: guard.NewConstructorGuard()}
}

// Validate ensures the query was created through the constructor.
func (q GetMapViewQuery) Validate() error {
	return q.guard.Validate(ErrGetMapViewQueryIsNotConstructed)
}

// GetMapViewQueryResponse is one map frame tagged with the store version it was rendered from.
type GetMapViewQueryResponse struct {
	Version uint64 `json:"version"`
	services.MapView
}
