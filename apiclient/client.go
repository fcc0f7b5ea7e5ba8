// Package apiclient talks to the public booking REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stylo/models"
	"stylo/utils"

	"go.uber.org/zap"
)

const apiPrefix = "/api/v1"

// APIError is a non-2xx answer of the booking API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("HTTP error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("HTTP error %d (%s): %s", e.Status, e.Code, e.Message)
}

// Photo is the optional client picture sent with send-otp.
type Photo struct {
	Filename string
	Content  io.Reader
}

// Client calls the booking endpoints of one backend. It never retries.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func New(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		Logger:     logger,
	}
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.BaseURL + apiPrefix + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var errBody utils.ErrorResponse
		if json.Unmarshal(body, &errBody) == nil && errBody.Error != "" {
			apiErr.Code = errBody.Code
			apiErr.Message = errBody.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		c.Logger.Debug("Booking API returned an error",
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.String("code", apiErr.Code))
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, query), nil)
	if err != nil {
		return fmt.Errorf("cannot build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("cannot build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) Availability(ctx context.Context, branchID, serviceID string, staffID *string, date string) (*models.AvailabilityResponse, error) {
	q := url.Values{"date": {date}}
	if staffID != nil {
		q.Set("staff_id", *staffID)
	}
	var out models.AvailabilityResponse
	path := fmt.Sprintf("/services/%s/%s/availability", url.PathEscape(branchID), url.PathEscape(serviceID))
	if err := c.get(ctx, path, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MonthAvailability(ctx context.Context, branchID, serviceID string, staffID *string, month string) (*models.MonthAvailabilityResponse, error) {
	q := url.Values{"month": {month}}
	if staffID != nil {
		q.Set("staff_id", *staffID)
	}
	var out models.MonthAvailabilityResponse
	path := fmt.Sprintf("/services/%s/%s/availability/month", url.PathEscape(branchID), url.PathEscape(serviceID))
	if err := c.get(ctx, path, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StartBooking(ctx context.Context, in models.StartBookingRequest) (*models.StartBookingResponse, error) {
	var out models.StartBookingResponse
	if err := c.postJSON(ctx, "/appointments/booking/start", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LookupClient(ctx context.Context, in models.LookupClientRequest) (*models.ClientLookupResponse, error) {
	var out models.ClientLookupResponse
	if err := c.postJSON(ctx, "/appointments/booking/lookup-client", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LookupReniec(ctx context.Context, dni string) (*models.RegistryPerson, error) {
	var out models.RegistryPerson
	if err := c.postJSON(ctx, "/appointments/booking/lookup-reniec", models.LookupReniecRequest{DNI: dni}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendOTP posts JSON, or multipart form data when a photo is attached.
func (c *Client) SendOTP(ctx context.Context, in models.SendOTPRequest, photo *Photo) (*models.OTPSentResponse, error) {
	var out models.OTPSentResponse
	if photo == nil {
		if err := c.postJSON(ctx, "/appointments/booking/send-otp", in, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := []struct{ name, value string }{
		{"session_token", in.SessionToken},
		{"phone_number", in.PhoneNumber},
		{"document_type", in.DocumentType},
		{"document_number", in.DocumentNumber},
		{"first_name", in.FirstName},
		{"last_name_paterno", in.LastNamePaterno},
		{"last_name_materno", in.LastNameMaterno},
		{"email", in.Email},
		{"gender", in.Gender},
		{"birth_date", in.BirthDate},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", f.name, err)
		}
	}
	part, err := w.CreateFormFile("photo", photo.Filename)
	if err != nil {
		return nil, fmt.Errorf("failed to attach photo: %w", err)
	}
	if _, err := io.Copy(part, photo.Content); err != nil {
		return nil, fmt.Errorf("failed to attach photo: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/appointments/booking/send-otp", nil), &buf)
	if err != nil {
		return nil, fmt.Errorf("cannot build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ResendOTP(ctx context.Context, sessionToken string) (*models.OTPSentResponse, error) {
	var out models.OTPSentResponse
	if err := c.postJSON(ctx, "/appointments/booking/resend-otp", models.ResendOTPRequest{SessionToken: sessionToken}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) VerifyOTP(ctx context.Context, sessionToken, code string) (*models.VerifyOTPResponse, error) {
	var out models.VerifyOTPResponse
	req := models.VerifyOTPRequest{SessionToken: sessionToken, OTPCode: code}
	if err := c.postJSON(ctx, "/appointments/booking/verify-otp", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
