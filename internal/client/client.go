// Package client talks to the owner REST API over fiber's fasthttp agent.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oficialjosecandido/pickeat-restaurant/internal/apperr"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

const defaultTimeout = 15 * time.Second

// ErrNoToken is returned by authenticated calls made before a login.
var ErrNoToken = apperr.NewAuth("", "no session token")

// Client is a typed wrapper around the owner endpoints. It is safe for
// concurrent use; the bearer token can be swapped at any time.
type Client struct {
	baseURL  string
	timeout  time.Duration
	validate *validator.Validate

	mu    sync.RWMutex
	token string
}

// New creates a Client for the API rooted at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		timeout:  timeout,
		validate: validator.New(),
	}
}

// SetToken replaces the bearer token used by authenticated calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token, empty before login.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   interface{}
	auth   bool
}

// do runs one request and decodes a 2xx body into out when out is non-nil.
func (c *Client) do(ctx context.Context, r request, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return apperr.NewTransport(r.op, err)
	}
	token := c.Token()
	if r.auth && token == "" {
		return fmt.Errorf("%s: %w", r.op, ErrNoToken)
	}

	var a *fiber.Agent
	switch r.method {
	case fiber.MethodPost:
		a = fiber.Post(c.baseURL + r.path)
	default:
		a = fiber.Get(c.baseURL + r.path)
	}
	a.Timeout(c.timeout)
	a.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if r.auth {
		a.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	if len(r.query) > 0 {
		a.QueryString(r.query.Encode())
	}
	if r.body != nil {
		a.JSON(r.body)
	}

	logger := log.WithFields(log.Fields{"op": r.op, "method": r.method, "path": r.path})
	started := time.Now()
	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		err := errors.Join(errs...)
		logger.WithError(err).Warn("Request failed")
		if errors.Is(err, fasthttp.ErrTimeout) {
			return apperr.NewTransport(r.op, fmt.Errorf("request timed out after %s: %w", c.timeout, err))
		}
		return apperr.NewTransport(r.op, err)
	}
	logger.WithFields(log.Fields{"status": code, "took": time.Since(started)}).Debug("Request done")

	if err := ctx.Err(); err != nil {
		return apperr.NewTransport(r.op, err)
	}

	switch {
	case code == fiber.StatusUnauthorized || code == fiber.StatusForbidden:
		e := apperr.NewAuth(r.op, serverMessage(body, "credentials rejected"))
		e.Status = code
		return e
	case code < 200 || code > 299:
		e := apperr.NewProtocol(r.op, serverMessage(body, "unexpected status "+strconv.Itoa(code)), nil)
		e.Status = code
		return e
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperr.NewProtocol(r.op, "malformed response body", err)
	}
	return nil
}

// serverMessage pulls the "message" field out of an error body.
func serverMessage(body []byte, fallback string) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return fallback
}

// Login exchanges credentials for a bearer token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := c.validate.Struct(req); err != nil {
		return nil, &apperr.Error{Kind: apperr.Validation, Op: "login", Message: "email and password are required", Err: err}
	}

	var resp models.LoginResponse
	if err := c.do(ctx, request{op: "login", method: fiber.MethodPost, path: "/owner/login", body: req}, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" || resp.User == nil {
		return nil, apperr.NewProtocol("login", "response is missing token or user", nil)
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

// Verify checks the current token and returns the owner it belongs to.
func (c *Client) Verify(ctx context.Context) (*models.Owner, error) {
	var owner models.Owner
	if err := c.do(ctx, request{op: "verify", method: fiber.MethodGet, path: "/owner/verify", auth: true}, &owner); err != nil {
		return nil, err
	}
	if owner.ID == "" {
		return nil, apperr.NewProtocol("verify", "response is missing userID", nil)
	}
	return &owner, nil
}

// RegisterPushToken stores the device push token for userID.
func (c *Client) RegisterPushToken(ctx context.Context, userID, token string) error {
	req := models.PushTokenRequest{Token: token, UserID: userID}
	if err := c.validate.Struct(req); err != nil {
		return &apperr.Error{Kind: apperr.Validation, Op: "register push token", Message: "token and userID are required", Err: err}
	}
	return c.do(ctx, request{op: "register push token", method: fiber.MethodPost, path: "/auth/push-token", body: req, auth: true}, nil)
}

// FetchActiveOrders returns the owner's orders as the backend sees them.
func (c *Client) FetchActiveOrders(ctx context.Context) ([]models.Order, error) {
	orders := []models.Order{}
	if err := c.do(ctx, request{op: "fetch active orders", method: fiber.MethodGet, path: "/owner/orders", auth: true}, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// SetOrderStatus asks the backend to move orderID to status.
func (c *Client) SetOrderStatus(ctx context.Context, orderID string, status models.Status) error {
	body := models.StatusChangeRequest{OrderID: orderID, Status: status}
	return c.do(ctx, request{op: "set order status", method: fiber.MethodPost, path: "/owner/order/status", body: body, auth: true}, nil)
}

// FetchOrderHistory returns past orders matching q.
func (c *Client) FetchOrderHistory(ctx context.Context, q models.HistoryQuery) ([]models.Order, error) {
	values := url.Values{}
	switch {
	case q.From != "":
		values.Set("from", q.From)
	case q.Date != "":
		values.Set("date", q.Date)
	case q.Last > 0:
		values.Set("last", strconv.Itoa(q.Last))
	case q.Range != "":
		values.Set("range", q.Range)
	}

	orders := []models.Order{}
	if err := c.do(ctx, request{op: "fetch order history", method: fiber.MethodGet, path: "/owner/orders/history", query: values, auth: true}, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// MarkDelivered confirms pickup of the order behind a scanned token.
func (c *Client) MarkDelivered(ctx context.Context, scanToken string) error {
	body := models.DeliveredRequest{OrderID: scanToken}
	return c.do(ctx, request{op: "mark delivered", method: fiber.MethodPost, path: "/owner/order/delivered", body: body, auth: true}, nil)
}

// GenerateTimeSlots saves a set of pickup slots for one date.
func (c *Client) GenerateTimeSlots(ctx context.Context, req models.TimeSlotRequest) (*models.TimeSlotResponse, error) {
	var resp models.TimeSlotResponse
	if err := c.do(ctx, request{op: "save time slots", method: fiber.MethodPost, path: "/owner/settings/generate-time-slot", body: req, auth: true}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
