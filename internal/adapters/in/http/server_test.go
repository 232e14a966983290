package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpadapter "dispatch/internal/adapters/in/http"
	"dispatch/internal/adapters/out/alert/toast"
	"dispatch/internal/core/application/notification"
	"dispatch/internal/core/application/session"
	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/model/claim"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/metrics"
	"dispatch/internal/pkg/errs"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type ServerSuite struct {
	suite.Suite

	session *MockSession
	claim   *MockClaimHandler
	advance *MockAdvanceHandler
	state   *MockStateHandler
	mapView *MockMapHandler
	toasts  *toast.Broker
	prefs   *prefsStub

	router *echo.Echo
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	s.session = &MockSession{}
	s.claim = &MockClaimHandler{}
	s.advance = &MockAdvanceHandler{}
	s.state = &MockStateHandler{}
	s.mapView = &MockMapHandler{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.toasts = toast.NewBroker(logger)
	s.prefs = &prefsStub{prefs: notification.Preferences{Push: true, Sound: true}}

	server := httpadapter.NewServer(s.session, s.claim, s.advance, s.state, s.mapView, s.toasts, s.prefs)
	s.router = httpadapter.NewRouter(server, logger)
}

func (s *ServerSuite) TearDownTest() {
	s.session.AssertExpectations(s.T())
	s.claim.AssertExpectations(s.T())
	s.advance.AssertExpectations(s.T())
}

func (s *ServerSuite) do(method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *ServerSuite) decode(rec *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), v))
}

func (s *ServerSuite) attempt() claim.Attempt {
	a, err := claim.NewAttempt("1042", time.Now())
	s.Require().NoError(err)
	return a
}

func (s *ServerSuite) assigned() *order.Order {
	o, err := order.RestoreOrder(order.Details{
		ID:             "1042",
		Code:           "A-1042",
		BusinessID:     "7",
		PickupLocation: kernel.MustGeoPoint(41.009, 28.979),
		Status:         order.Assigned,
	})
	s.Require().NoError(err)
	return o
}

func (s *ServerSuite) Test_Health() {
	rec := s.do(http.MethodGet, "/health", "")

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("Healthy", rec.Body.String())
}

func (s *ServerSuite) Test_Metrics() {
	metrics.RegisterDefault()
	s.do(http.MethodGet, "/health", "")

	rec := s.do(http.MethodGet, "/metrics", "")

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `http_requests_total{method="GET",path="/health",status="200"}`)
}

func (s *ServerSuite) Test_GetState() {
	s.state.On("Handle", mock.Anything, queries.NewGetStateQuery()).
		Return(queries.GetStateQueryResponse{Version: 7, Online: true}, nil).Once()

	rec := s.do(http.MethodGet, "/api/v1/state", "")

	s.Equal(http.StatusOK, rec.Code)
	var body map[string]any
	s.decode(rec, &body)
	s.Equal(float64(7), body["version"])
	s.Equal(true, body["online"])
}

func (s *ServerSuite) Test_GetMapView() {
	s.mapView.On("Handle", mock.Anything, queries.NewGetMapViewQuery()).
		Return(queries.GetMapViewQueryResponse{Version: 3}, nil).Once()

	rec := s.do(http.MethodGet, "/api/v1/map", "")

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"version":3`)
}

func (s *ServerSuite) Test_OnlineOffline() {
	s.session.On("GoOnline", mock.Anything).Return(nil).Once()
	s.session.On("GoOffline", mock.Anything).Return(nil).Once()

	s.Equal(http.StatusNoContent, s.do(http.MethodPost, "/api/v1/online", "").Code)
	s.Equal(http.StatusNoContent, s.do(http.MethodPost, "/api/v1/offline", "").Code)
}

func (s *ServerSuite) Test_RetryLocation() {
	s.session.On("RetryLocation", mock.Anything).Return(nil).Once()
	s.Equal(http.StatusAccepted, s.do(http.MethodPost, "/api/v1/location/retry", "").Code)

	s.session.On("RetryLocation", mock.Anything).Return(commands.ErrOffline).Once()
	rec := s.do(http.MethodPost, "/api/v1/location/retry", "")
	s.Equal(http.StatusConflict, rec.Code)
	var body httpadapter.Error
	s.decode(rec, &body)
	s.Equal(http.StatusConflict, body.Code)
	s.Contains(body.Message, "offline")
}

func (s *ServerSuite) Test_ClosedSession() {
	s.session.On("GoOnline", mock.Anything).Return(session.ErrSessionClosed).Once()

	s.Equal(http.StatusServiceUnavailable, s.do(http.MethodPost, "/api/v1/online", "").Code)
}

func (s *ServerSuite) Test_SelectBusiness() {
	s.session.On("SelectBusiness", mock.Anything, "7").Return(nil).Once()
	s.session.On("SelectBusiness", mock.Anything, "404").
		Return(errs.NewObjectNotFoundError("business", "404")).Once()
	s.session.On("ClearSelection").Return().Once()

	s.Equal(http.StatusNoContent, s.do(http.MethodPost, "/api/v1/businesses/7/select", "").Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodPost, "/api/v1/businesses/404/select", "").Code)
	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, "/api/v1/businesses/selection", "").Code)
}

func (s *ServerSuite) Test_TapMarker() {
	target := services.MarkerTarget{Kind: services.TargetOrder, ID: "1042"}
	s.session.On("TapMarker", mock.Anything, "pickup:1042").Return(target, nil).Once()
	s.session.On("TapMarker", mock.Anything, "nope").
		Return(services.MarkerTarget{}, errs.NewObjectNotFoundError("marker", "nope")).Once()

	rec := s.do(http.MethodPost, "/api/v1/markers/tap", `{"markerId":"pickup:1042"}`)
	s.Equal(http.StatusOK, rec.Code)
	var got services.MarkerTarget
	s.decode(rec, &got)
	s.Equal(target, got)

	s.Equal(http.StatusNotFound, s.do(http.MethodPost, "/api/v1/markers/tap", `{"markerId":"nope"}`).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/markers/tap", `{}`).Code)
}

func (s *ServerSuite) Test_ClaimOrder_Outcomes() {
	cmd, err := commands.NewClaimOrderCommand("1042")
	s.Require().NoError(err)

	won, err := s.attempt().Succeed(s.assigned())
	s.Require().NoError(err)
	lost, err := s.attempt().Lose("Order already claimed", nil)
	s.Require().NoError(err)
	cause := errors.New("dispatch server returned 503")
	failed, err := s.attempt().Fail(cause)
	s.Require().NoError(err)

	tests := []struct {
		name     string
		attempt  claim.Attempt
		err      error
		status   int
		outcome  string
		hasOrder bool
	}{
		{"success", won, nil, http.StatusOK, "success", true},
		{"conflict", lost, nil, http.StatusConflict, "conflict", false},
		{"in flight", s.attempt(), commands.ErrClaimInFlight, http.StatusTooManyRequests, "pending", false},
		{"error", failed, fmt.Errorf("claim order 1042: %w", cause), http.StatusBadGateway, "error", false},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.claim.On("Handle", mock.Anything, cmd).Return(tt.attempt, tt.err).Once()

			rec := s.do(http.MethodPost, "/api/v1/orders/1042/claim", "")

			s.Equal(tt.status, rec.Code)
			var body httpadapter.ClaimResponse
			s.decode(rec, &body)
			s.Equal("1042", body.OrderID)
			s.Equal(tt.outcome, body.Outcome)
			s.Equal(tt.hasOrder, body.Order != nil)
			s.Equal(tt.err != nil, body.Error != "")
		})
	}
}

func (s *ServerSuite) Test_ClaimOrder_ConflictCarriesDetail() {
	lost, err := s.attempt().Lose("Order already claimed", nil)
	s.Require().NoError(err)
	s.claim.On("Handle", mock.Anything, mock.Anything).Return(lost, nil).Once()

	rec := s.do(http.MethodPost, "/api/v1/orders/1042/claim", "")

	var body httpadapter.ClaimResponse
	s.decode(rec, &body)
	s.Equal("Order already claimed", body.Detail)
}

func (s *ServerSuite) Test_ClaimOrder_OutlivesClosedRequest() {
	won, err := s.attempt().Succeed(s.assigned())
	s.Require().NoError(err)

	var (
		claimErr error
		bounded  bool
	)
	s.claim.On("Handle", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			claimErr = ctx.Err()
			_, bounded = ctx.Deadline()
		}).
		Return(won, nil).Once()

	reqCtx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/1042/claim", nil).WithContext(reqCtx)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusOK, rec.Code)
	s.NoError(claimErr, "closing the page must not cancel the claim")
	s.True(bounded)
}

func (s *ServerSuite) Test_AdvanceOrder() {
	accept, err := commands.NewAcceptOrderCommand("1042")
	s.Require().NoError(err)
	pickup, err := commands.NewConfirmPickupCommand("1042")
	s.Require().NoError(err)
	onWay, err := commands.NewUpdateOrderStatusCommand("1042", order.OnWay)
	s.Require().NoError(err)

	s.advance.On("Handle", mock.Anything, accept).Return(s.assigned(), nil).Once()
	s.advance.On("Handle", mock.Anything, pickup).Return(s.assigned(), nil).Once()
	s.advance.On("Handle", mock.Anything, onWay).Return(s.assigned(), nil).Once()

	rec := s.do(http.MethodPost, "/api/v1/orders/1042/accept", "")
	s.Equal(http.StatusOK, rec.Code)
	var view queries.OrderView
	s.decode(rec, &view)
	s.Equal("1042", view.ID)
	s.Equal("assigned", view.Status)

	s.Equal(http.StatusOK, s.do(http.MethodPost, "/api/v1/orders/1042/pickup", "").Code)
	s.Equal(http.StatusOK, s.do(http.MethodPost, "/api/v1/orders/1042/status", `{"status":"on_way"}`).Code)
}

func (s *ServerSuite) Test_AdvanceOrder_Errors() {
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/orders/1042/status", `{"status":"teleported"}`).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/orders/1042/status", `{"status":"assigned"}`).Code)

	s.advance.On("Handle", mock.Anything, mock.Anything).
		Return(nil, errs.NewObjectNotFoundError("active order", "1042")).Once()
	s.Equal(http.StatusNotFound, s.do(http.MethodPost, "/api/v1/orders/1042/accept", "").Code)

	s.advance.On("Handle", mock.Anything, mock.Anything).
		Return(nil, errors.New("dispatch server returned 500")).Once()
	s.Equal(http.StatusBadGateway, s.do(http.MethodPost, "/api/v1/orders/1042/pickup", "").Code)
}

func (s *ServerSuite) Test_Preferences() {
	rec := s.do(http.MethodGet, "/api/v1/preferences", "")
	s.JSONEq(`{"push":true,"sound":true}`, rec.Body.String())

	rec = s.do(http.MethodPut, "/api/v1/preferences", `{"push":false,"sound":true}`)

	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"push":false,"sound":true}`, rec.Body.String())
	s.Equal(notification.Preferences{Push: false, Sound: true}, s.prefs.prefs)
}

func (s *ServerSuite) Test_StreamToasts() {
	srv := httptest.NewServer(s.router)
	defer srv.Close()
	s.toasts.Publish(ports.Toast{ID: "old", Level: ports.ToastInfo, Title: "Earlier"})

	resp, err := http.Get(srv.URL + "/api/v1/toasts/stream?replay=true")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal("text/event-stream", resp.Header.Get(echo.HeaderContentType))

	lines := make(chan string, 32)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	s.Equal("id: old", s.nextLine(lines, "id: "))
	s.nextLine(lines, ": connected")

	s.toasts.Publish(ports.Toast{ID: "t-1", Level: ports.ToastInfo, Title: "Orders nearby", Message: "2 orders nearby worth 245.50"})

	s.Equal("id: t-1", s.nextLine(lines, "id: "))
	s.Equal("event: toast", s.nextLine(lines, "event: "))
	data := strings.TrimPrefix(s.nextLine(lines, "data: "), "data: ")
	var got ports.Toast
	s.Require().NoError(json.Unmarshal([]byte(data), &got))
	s.Equal("2 orders nearby worth 245.50", got.Message)

	s.toasts.Close()
	s.Eventually(func() bool {
		select {
		case _, open := <-lines:
			return !open
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

// nextLine returns the next stream line starting with prefix.
func (s *ServerSuite) nextLine(lines <-chan string, prefix string) string {
	deadline := time.After(2 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			s.Require().True(ok, "stream ended while waiting for %q", prefix)
			if strings.HasPrefix(line, prefix) {
				return line
			}
		case <-deadline:
			s.FailNow("timed out waiting for " + prefix)
			return ""
		}
	}
}
