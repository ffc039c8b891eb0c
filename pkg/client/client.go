// Package client is a typed HTTP client for the marketplace API, used by
// front-ends and integration tools.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"local-services/internal/dto/request"
	"local-services/internal/dto/response"

	"github.com/google/go-querystring/query"
)

// Session is the only state the client keeps between calls
type Session struct {
	Token     string                `json:"token"`
	ExpiresAt time.Time             `json:"expires_at"`
	User      response.UserResponse `json:"user"`
}

// APIError is any non-2xx answer from the API
type APIError struct {
	StatusCode int
	Message    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// UnverifiedError is returned by Login when the account still needs its email
// verified. A new code has been sent; continue with VerifyOTP(UserID, code).
type UnverifiedError struct {
	UserID string
}

func (e *UnverifiedError) Error() string {
	return "account not verified: " + e.UserID
}

// ErrNoSession is returned by calls that need a session before one was set
var ErrNoSession = errors.New("client: not logged in")

type Client struct {
	baseURL string
	http    *http.Client

	mu      sync.RWMutex
	session *Session
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSession restores a session persisted by the caller
func WithSession(s Session) Option {
	return func(c *Client) { c.session = &s }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Session() (Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

func (c *Client) Logout() {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
}

func (c *Client) setSession(auth *response.AuthResponse) Session {
	s := Session{Token: auth.Token, ExpiresAt: auth.ExpiresAt, User: auth.User}
	c.mu.Lock()
	c.session = &s
	c.mu.Unlock()
	return s
}

// ==================== AUTH ====================

func (c *Client) Register(ctx context.Context, req request.RegisterRequest) (*response.RegisterResponse, error) {
	var out response.RegisterResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) VerifyOTP(ctx context.Context, userID, code string) (Session, error) {
	var out response.AuthResponse
	body := request.VerifyOTPRequest{UserID: userID, Code: code}
	if err := c.do(ctx, http.MethodPost, "/api/auth/verify", body, &out, false); err != nil {
		return Session{}, err
	}
	return c.setSession(&out), nil
}

func (c *Client) ResendOTP(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/resend-otp", request.ResendOTPRequest{UserID: userID}, nil, false)
}

func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var out response.AuthResponse
	body := request.LoginRequest{Email: email, Password: password}
	err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out, false)

	var apiErr *unverifiedAPIError
	if errors.As(err, &apiErr) {
		return Session{}, &UnverifiedError{UserID: apiErr.userID}
	}
	if err != nil {
		return Session{}, err
	}
	return c.setSession(&out), nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/forgot", request.ForgotPasswordRequest{Email: email}, nil, false)
}

func (c *Client) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	body := request.ResetPasswordRequest{Email: email, Code: code, NewPassword: newPassword}
	return c.do(ctx, http.MethodPost, "/api/auth/reset", body, nil, false)
}

// ==================== PROFILE ====================

func (c *Client) Profile(ctx context.Context) (*response.UserResponse, error) {
	var out response.UserResponse
	if err := c.do(ctx, http.MethodGet, "/api/users/me", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, req request.UpdateProfileRequest) (*response.UserResponse, error) {
	var out response.UserResponse
	if err := c.do(ctx, http.MethodPatch, "/api/users/me", req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// ==================== SERVICES ====================

// ServiceQuery filters the public catalog. Lat and Lng go together.
type ServiceQuery struct {
	Category string   `url:"category,omitempty"`
	Lat      *float64 `url:"lat,omitempty"`
	Lng      *float64 `url:"lng,omitempty"`
	RadiusKm *float64 `url:"radius,omitempty"`
}

func (c *Client) ListServices(ctx context.Context, q ServiceQuery) ([]*response.ServiceResponse, error) {
	path, err := withQuery("/api/services", q)
	if err != nil {
		return nil, err
	}

	var out []*response.ServiceResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetService(ctx context.Context, id string) (*response.ServiceResponse, error) {
	var out response.ServiceResponse
	if err := c.do(ctx, http.MethodGet, "/api/services/"+id, nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// ==================== BOOKINGS ====================

func (c *Client) CreateBooking(ctx context.Context, req request.CreateBookingRequest) (*response.BookingResponse, error) {
	var out response.BookingResponse
	if err := c.do(ctx, http.MethodPost, "/api/bookings", req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MyBookings(ctx context.Context) ([]*response.BookingResponse, error) {
	var out []*response.BookingResponse
	if err := c.do(ctx, http.MethodGet, "/api/bookings/me", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ProviderBookings(ctx context.Context) ([]*response.BookingResponse, error) {
	var out []*response.BookingResponse
	if err := c.do(ctx, http.MethodGet, "/api/bookings/provider", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateBookingStatus(ctx context.Context, bookingID, status string) (*response.BookingResponse, error) {
	var out response.BookingResponse
	body := request.UpdateBookingStatusRequest{Status: status}
	if err := c.do(ctx, http.MethodPatch, "/api/bookings/"+bookingID+"/status", body, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RateBooking(ctx context.Context, bookingID string, rating int, review string) (*response.RateBookingResponse, error) {
	var out response.RateBookingResponse
	body := request.RateBookingRequest{Rating: rating, Review: review}
	if err := c.do(ctx, http.MethodPost, "/api/bookings/"+bookingID+"/rate", body, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// ==================== ADMIN ====================

type PageQuery struct {
	Page    int `url:"page,omitempty"`
	PerPage int `url:"per_page,omitempty"`
}

func (c *Client) AdminUsers(ctx context.Context, q PageQuery) (*response.PaginatedResponse[response.UserResponse], error) {
	path, err := withQuery("/api/admin/users", q)
	if err != nil {
		return nil, err
	}

	var out response.PaginatedResponse[response.UserResponse]
	if err := c.do(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// ==================== HELPER METHODS ====================

type envelope struct {
	Status  bool              `json:"status"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

// unverifiedAPIError is the 403 a login gets for an unverified account
type unverifiedAPIError struct {
	*APIError
	userID string
}

func (e *unverifiedAPIError) Unwrap() error {
	return e.APIError
}

func withQuery(path string, q any) (string, error) {
	values, err := query.Values(q)
	if err != nil {
		return "", fmt.Errorf("encode query: %w", err)
	}
	if encoded := values.Encode(); encoded != "" {
		path += "?" + encoded
	}
	return path, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if authed {
		session, ok := c.Session()
		if !ok {
			return ErrNoSession
		}
		req.Header.Set("Authorization", "Bearer "+session.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: decode response (status %d): %w", method, path, resp.StatusCode, err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: env.Message, Fields: env.Errors}
		if resp.StatusCode == http.StatusForbidden && len(env.Data) > 0 {
			var unverified response.UnverifiedResponse
			if json.Unmarshal(env.Data, &unverified) == nil && unverified.UserID != "" {
				return &unverifiedAPIError{APIError: apiErr, userID: unverified.UserID}
			}
		}
		return apiErr
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s %s: decode data: %w", method, path, err)
		}
	}
	return nil
}
