// Package http is the local control surface of the dispatch client. The
// courier UI reads state and the map from it, sends taps and claims to it and
// listens to toasts on a server-sent event stream.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"dispatch/internal/core/application/notification"
	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/model/claim"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"

	"github.com/labstack/echo/v4"
)

// claimTimeout bounds a claim detached from its request. Closing the page does
// not abort a claim the server may already have granted.
const claimTimeout = 15 * time.Second

type (
	// SessionController is the part of session.Session driven over HTTP.
	SessionController interface {
		GoOnline(ctx context.Context) error
		GoOffline(ctx context.Context) error
		RetryLocation(ctx context.Context) error
		SelectBusiness(ctx context.Context, businessID string) error
		ClearSelection()
		TapMarker(ctx context.Context, markerID string) (services.MarkerTarget, error)
	}

	ClaimOrderHandler interface {
		Handle(ctx context.Context, cmd commands.ClaimOrderCommand) (claim.Attempt, error)
	}

	AdvanceOrderHandler interface {
		Handle(ctx context.Context, cmd commands.AdvanceOrderCommand) (*order.Order, error)
	}

	GetStateHandler interface {
		Handle(ctx context.Context, q queries.GetStateQuery) (queries.GetStateQueryResponse, error)
	}

	GetMapViewHandler interface {
		Handle(ctx context.Context, q queries.GetMapViewQuery) (queries.GetMapViewQueryResponse, error)
	}

	// ToastSource feeds the toast event stream.
	ToastSource interface {
		Subscribe() chan ports.Toast
		Unsubscribe(ch chan ports.Toast)
		Recent() []ports.Toast
	}

	// PreferenceStore holds the courier's notification preferences.
	PreferenceStore interface {
		Preferences() notification.Preferences
		SetPreferences(p notification.Preferences)
	}
)

// Server handles control surface requests by delegating to the use cases.
type Server struct {
	session SessionController

	// Command handlers
	claimOrderHandler   ClaimOrderHandler
	advanceOrderHandler AdvanceOrderHandler

	// Query handlers
	getStateHandler   GetStateHandler
	getMapViewHandler GetMapViewHandler

	toasts      ToastSource
	preferences PreferenceStore
}

func NewServer(
	session SessionController,
	claimOrderHandler ClaimOrderHandler,
	advanceOrderHandler AdvanceOrderHandler,
	getStateHandler GetStateHandler,
	getMapViewHandler GetMapViewHandler,
	toasts ToastSource,
	preferences PreferenceStore,
) *Server {
	return &Server{
		session:             session,
		claimOrderHandler:   claimOrderHandler,
		advanceOrderHandler: advanceOrderHandler,
		getStateHandler:     getStateHandler,
		getMapViewHandler:   getMapViewHandler,
		toasts:              toasts,
		preferences:         preferences,
	}
}

// GetState handles GET /api/v1/state.
func (s *Server) GetState(c echo.Context) error {
	resp, err := s.getStateHandler.Handle(c.Request().Context(), queries.NewGetStateQuery())
	if err != nil {
		return writeError(c, err, http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetMapView handles GET /api/v1/map.
func (s *Server) GetMapView(c echo.Context) error {
	resp, err := s.getMapViewHandler.Handle(c.Request().Context(), queries.NewGetMapViewQuery())
	if err != nil {
		return writeError(c, err, http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, resp)
}

// GoOnline handles POST /api/v1/online.
func (s *Server) GoOnline(c echo.Context) error {
	if err := s.session.GoOnline(c.Request().Context()); err != nil {
		return writeError(c, err, http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusNoContent)
}

// GoOffline handles POST /api/v1/offline.
func (s *Server) GoOffline(c echo.Context) error {
	if err := s.session.GoOffline(c.Request().Context()); err != nil {
		return writeError(c, err, http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusNoContent)
}

// RetryLocation handles POST /api/v1/location/retry.
func (s *Server) RetryLocation(c echo.Context) error {
	if err := s.session.RetryLocation(c.Request().Context()); err != nil {
		return writeError(c, err, http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusAccepted)
}

// SelectBusiness handles POST /api/v1/businesses/:id/select.
func (s *Server) SelectBusiness(c echo.Context) error {
	if err := s.session.SelectBusiness(c.Request().Context(), c.Param("id")); err != nil {
		return writeError(c, err, http.StatusBadGateway)
	}
	return c.NoContent(http.StatusNoContent)
}

// ClearSelection handles DELETE /api/v1/businesses/selection.
func (s *Server) ClearSelection(c echo.Context) error {
	s.session.ClearSelection()
	return c.NoContent(http.StatusNoContent)
}

// TapMarker handles POST /api/v1/markers/tap.
func (s *Server) TapMarker(c echo.Context) error {
	var req TapMarkerRequest
	if err := c.Bind(&req); err != nil || req.MarkerID == "" {
		return badRequest(c, "markerId is required")
	}
	target, err := s.session.TapMarker(c.Request().Context(), req.MarkerID)
	if err != nil {
		return writeError(c, err, http.StatusBadGateway)
	}
	return c.JSON(http.StatusOK, target)
}

// ClaimOrder handles POST /api/v1/orders/:id/claim.
//
// Responses: 200 claimed, 409 another courier won, 429 a claim for this order
// is still in flight, 502 the server call failed and may be retried.
func (s *Server) ClaimOrder(c echo.Context) error {
	cmd, err := commands.NewClaimOrderCommand(c.Param("id"))
	if err != nil {
		return writeError(c, err, http.StatusBadRequest)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), claimTimeout)
	defer cancel()

	attempt, err := s.claimOrderHandler.Handle(ctx, cmd)
	if errors.Is(err, commands.ErrClaimInFlight) {
		return c.JSON(http.StatusTooManyRequests, newClaimResponse(attempt, err))
	}
	if err != nil && attempt.Validate() != nil {
		return writeError(c, err, http.StatusInternalServerError)
	}

	switch attempt.Outcome() {
	case claim.Success:
		return c.JSON(http.StatusOK, newClaimResponse(attempt, nil))
	case claim.Conflict:
		return c.JSON(http.StatusConflict, newClaimResponse(attempt, nil))
	default:
		return c.JSON(http.StatusBadGateway, newClaimResponse(attempt, err))
	}
}

// AcceptOrder handles POST /api/v1/orders/:id/accept.
func (s *Server) AcceptOrder(c echo.Context) error {
	cmd, err := commands.NewAcceptOrderCommand(c.Param("id"))
	if err != nil {
		return writeError(c, err, http.StatusBadRequest)
	}
	return s.advance(c, cmd)
}

// ConfirmPickup handles POST /api/v1/orders/:id/pickup.
func (s *Server) ConfirmPickup(c echo.Context) error {
	cmd, err := commands.NewConfirmPickupCommand(c.Param("id"))
	if err != nil {
		return writeError(c, err, http.StatusBadRequest)
	}
	return s.advance(c, cmd)
}

// UpdateOrderStatus handles POST /api/v1/orders/:id/status.
func (s *Server) UpdateOrderStatus(c echo.Context) error {
	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	target, err := order.ParseStatus(req.Status)
	if err != nil {
		return writeError(c, err, http.StatusBadRequest)
	}
	cmd, err := commands.NewUpdateOrderStatusCommand(c.Param("id"), target)
	if err != nil {
		return writeError(c, err, http.StatusBadRequest)
	}
	return s.advance(c, cmd)
}

func (s *Server) advance(c echo.Context, cmd commands.AdvanceOrderCommand) error {
	updated, err := s.advanceOrderHandler.Handle(c.Request().Context(), cmd)
	if err != nil {
		return writeError(c, err, http.StatusBadGateway)
	}
	return c.JSON(http.StatusOK, queries.NewOrderView(updated, nil))
}

// GetPreferences handles GET /api/v1/preferences.
func (s *Server) GetPreferences(c echo.Context) error {
	return c.JSON(http.StatusOK, s.preferences.Preferences())
}

// UpdatePreferences handles PUT /api/v1/preferences.
func (s *Server) UpdatePreferences(c echo.Context) error {
	var prefs notification.Preferences
	if err := c.Bind(&prefs); err != nil {
		return badRequest(c, "invalid request body")
	}
	s.preferences.SetPreferences(prefs)
	return c.JSON(http.StatusOK, s.preferences.Preferences())
}
