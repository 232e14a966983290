package http

import (
	"time"

	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/model/claim"
)

type TapMarkerRequest struct {
	MarkerID string `json:"markerId"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// ClaimResponse reports how a claim attempt ended.
type ClaimResponse struct {
	AttemptID   string             `json:"attemptId,omitempty"`
	OrderID     string             `json:"orderId"`
	Outcome     string             `json:"outcome"`
	RequestedAt time.Time          `json:"requestedAt"`
	Detail      string             `json:"detail,omitempty"`
	Error       string             `json:"error,omitempty"`
	Order       *queries.OrderView `json:"order,omitempty"`
}

func newClaimResponse(a claim.Attempt, err error) ClaimResponse {
	resp := ClaimResponse{
		AttemptID:   a.ID().String(),
		OrderID:     a.OrderID(),
		Outcome:     a.Outcome().String(),
		RequestedAt: a.RequestedAt(),
		Detail:      a.Detail(),
	}
	if err != nil {
		resp.Error = err.Error()
	}
	if o := a.Order(); o != nil {
		v := queries.NewOrderView(o, nil)
		resp.Order = &v
	}
	return resp
}
