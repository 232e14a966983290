// Package courierapi talks to the dispatch server over its JSON API. The
// courier is authenticated by a session cookie; every call shares one request
// budget so background polling never floods the server.
package courierapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dispatch/internal/core/domain/model/business"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/ports"
	"dispatch/internal/metrics"

	"golang.org/x/time/rate"
)

const (
	DefaultSessionCookieName = "sessionid"
	DefaultTimeout           = 10 * time.Second
	DefaultRateLimit         = 10.0
	DefaultRateBurst         = 20

	maxErrorBody = 4096
)

var _ ports.DispatchAPI = (*Client)(nil)

// Config describes how to reach the dispatch server.
type Config struct {
	BaseURL           string
	SessionCookieName string
	SessionCookie     string
	Timeout           time.Duration
	RateLimit         float64 // requests per second
	RateBurst         int
}

// Client implements ports.DispatchAPI.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient validates cfg and prepares a cookie-authenticated HTTP client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse dispatch base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("dispatch base url %q must be http or https", cfg.BaseURL)
	}
	if cfg.SessionCookieName == "" {
		cfg.SessionCookieName = DefaultSessionCookieName
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = DefaultRateBurst
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	if cfg.SessionCookie != "" {
		jar.SetCookies(base, []*http.Cookie{{
			Name:  cfg.SessionCookieName,
			Value: cfg.SessionCookie,
			Path:  "/",
		}})
	}

	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: cfg.Timeout, Jar: jar},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		logger:  logger.With("component", "courierapi"),
	}, nil
}

func (c *Client) PushLocation(ctx context.Context, position kernel.Position) error {
	return c.do(ctx, call{
		operation: "push_location",
		method:    http.MethodPost,
		path:      "/courier/location",
		body:      newLocationDTO(position),
	})
}

func (c *Client) ListNearbyBusinesses(
	ctx context.Context,
	position kernel.Position,
	radiusMeters int,
) ([]*business.Business, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(position.Lat(), 'f', -1, 64))
	query.Set("lng", strconv.FormatFloat(position.Lng(), 'f', -1, 64))
	query.Set("radius_m", strconv.Itoa(radiusMeters))

	var dtos []businessDTO
	if err := c.do(ctx, call{
		operation: "nearby_businesses",
		method:    http.MethodGet,
		path:      "/courier/tasks/nearby-businesses",
		query:     query,
		out:       &dtos,
	}); err != nil {
		return nil, err
	}

	out := make([]*business.Business, 0, len(dtos))
	for _, dto := range dtos {
		b, err := dto.toDomain()
		if err != nil {
			c.logger.WarnContext(ctx, "skipping malformed business", "error", err)
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (c *Client) ListAvailableOrders(ctx context.Context, businessID string) ([]*order.Order, error) {
	var dtos []orderDTO
	if err := c.do(ctx, call{
		operation: "available_orders",
		method:    http.MethodGet,
		path:      "/courier/tasks/businesses/" + url.PathEscape(businessID) + "/available-orders",
		out:       &dtos,
	}); err != nil {
		return nil, err
	}
	return c.toOrders(ctx, dtos, func(d *orderDTO) {
		if d.BusinessID == "" {
			d.BusinessID = flexID(businessID)
		}
		if d.Status == "" {
			d.Status = order.Available.String()
		}
	}), nil
}

func (c *Client) ListMyOrders(ctx context.Context) ([]*order.Order, error) {
	var dtos []orderDTO
	if err := c.do(ctx, call{
		operation: "my_orders",
		method:    http.MethodGet,
		path:      "/courier/tasks/my-orders",
		out:       &dtos,
	}); err != nil {
		return nil, err
	}
	return c.toOrders(ctx, dtos, nil), nil
}

// ClaimOrder returns the granted order, or nil when the server confirmed the
// claim without a usable body.
func (c *Client) ClaimOrder(ctx context.Context, orderID string, requestID kernel.UUID) (*order.Order, error) {
	var resp claimResponseDTO
	err := c.do(ctx, call{
		operation: "claim_order",
		method:    http.MethodPost,
		path:      "/courier/tasks/orders/" + url.PathEscape(orderID) + "/claim",
		requestID: requestID.String(),
		out:       &resp,
	})
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
		return nil, &ports.ClaimConflictError{OrderID: orderID, Detail: apiErr.Detail}
	}
	if err != nil {
		return nil, err
	}

	dto := resp.granted()
	if dto == nil {
		return nil, nil
	}
	if dto.ID == "" {
		dto.ID = flexID(orderID)
	}
	if dto.Status == "" {
		dto.Status = order.Assigned.String()
	}
	o, err := dto.toDomain()
	if err != nil {
		c.logger.WarnContext(ctx, "claim granted with malformed order", "orderID", orderID, "error", err)
		return nil, nil
	}
	return o, nil
}

func (c *Client) AcceptOrder(ctx context.Context, orderID string) error {
	return c.do(ctx, call{
		operation: "accept_order",
		method:    http.MethodPost,
		path:      "/courier/" + url.PathEscape(orderID) + "/accept",
	})
}

func (c *Client) ConfirmPickup(ctx context.Context, orderID string) error {
	return c.do(ctx, call{
		operation: "confirm_pickup",
		method:    http.MethodPatch,
		path:      "/courier/orders/" + url.PathEscape(orderID) + "/pickup",
	})
}

func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status order.Status) error {
	if err := status.Validate(); err != nil {
		return err
	}
	return c.do(ctx, call{
		operation: "update_status",
		method:    http.MethodPost,
		path:      "/orders/" + url.PathEscape(orderID) + "/status",
		body:      statusDTO{Status: status.String()},
	})
}

func (c *Client) toOrders(ctx context.Context, dtos []orderDTO, fill func(*orderDTO)) []*order.Order {
	out := make([]*order.Order, 0, len(dtos))
	for i := range dtos {
		if fill != nil {
			fill(&dtos[i])
		}
		o, err := dtos[i].toDomain()
		if err != nil {
			c.logger.WarnContext(ctx, "skipping malformed order", "error", err)
			continue
		}
		out = append(out, o)
	}
	return out
}

type call struct {
	operation string
	method    string
	path      string
	query     url.Values
	body      any
	requestID string
	out       any
}

func (c *Client) do(ctx context.Context, cl call) (err error) {
	status := "transport_error"
	start := time.Now()
	defer func() {
		metrics.APIDuration.WithLabelValues(cl.operation).Observe(time.Since(start).Seconds())
		metrics.APIRequests.WithLabelValues(cl.operation, status).Inc()
	}()

	if err = c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", cl.operation, err)
	}

	req, err := c.newRequest(ctx, cl)
	if err != nil {
		return fmt.Errorf("%s: %w", cl.operation, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", cl.operation, err)
	}
	defer resp.Body.Close()
	status = strconv.Itoa(resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.readError(cl.operation, resp)
	}
	if cl.out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(cl.out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: decode response: %w", cl.operation, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, cl call) (*http.Request, error) {
	target := c.baseURL.String() + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := cl.requestID
	if requestID == "" {
		requestID = kernel.NewUUID().String()
	}
	req.Header.Set("X-Request-ID", requestID)
	return req, nil
}

func (c *Client) readError(operation string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{Operation: operation, StatusCode: resp.StatusCode}

	var dto errorDTO
	if json.Unmarshal(raw, &dto) == nil && dto.text() != "" {
		apiErr.Detail = dto.text()
	} else {
		apiErr.Detail = strings.TrimSpace(string(raw))
	}
	return apiErr
}
