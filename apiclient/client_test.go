package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"stylo/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", nil)
}

func TestAvailabilityQuery(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/services/b1/s1/availability", r.URL.Path)
		assert.Equal(t, "2024-06-10", r.URL.Query().Get("date"))
		assert.Equal(t, "st1", r.URL.Query().Get("staff_id"))
		json.NewEncoder(w).Encode(models.AvailabilityResponse{
			Date:           "2024-06-10",
			Slots:          []models.AvailableSlot{{Datetime: "2024-06-10T15:00:00-05:00", StaffID: "st1", StaffName: "Ana"}},
			AvailableCount: 1,
		})
	})

	staff := "st1"
	resp, err := c.Availability(context.Background(), "b1", "s1", &staff, "2024-06-10")
	require.NoError(t, err)
	require.Len(t, resp.Slots, 1)
	assert.Equal(t, "Ana", resp.Slots[0].StaffName)
}

func TestAvailabilityWithoutStaff(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.URL.Query()["staff_id"]
		assert.False(t, ok)
		w.Write([]byte(`{"slots":[]}`))
	})
	_, err := c.Availability(context.Background(), "b1", "s1", nil, "2024-06-10")
	assert.NoError(t, err)
}

func TestMonthAvailability(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/services/b1/s1/availability/month", r.URL.Path)
		assert.Equal(t, "2024-06", r.URL.Query().Get("month"))
		w.Write([]byte(`{"start_date":"2024-06-01","end_date":"2024-06-30","days":[{"date":"2024-06-10","available":true,"slots_count":4}]}`))
	})
	resp, err := c.MonthAvailability(context.Background(), "b1", "s1", nil, "2024-06")
	require.NoError(t, err)
	require.Len(t, resp.Days, 1)
	assert.Equal(t, 4, resp.Days[0].SlotsCount)
}

func TestStartBookingSendsNullStaff(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/appointments/booking/start", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		v, ok := body["staff_id"]
		assert.True(t, ok)
		assert.Nil(t, v)
		w.Write([]byte(`{"session_token":"abc123","expires_in":900,"booking_summary":{"service_id":"s1","price":"35.00"}}`))
	})

	resp, err := c.StartBooking(context.Background(), models.StartBookingRequest{
		BranchID: "b1", ServiceID: "s1", StartDatetime: "2024-06-10T15:00:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", resp.SessionToken)
	assert.Equal(t, "35.00", resp.BookingSummary.Price)
}

func TestErrorBodyBecomesAPIError(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"El horario ya no está disponible","code":"slot_unavailable"}`))
	})

	_, err := c.StartBooking(context.Background(), models.StartBookingRequest{BranchID: "b1"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "slot_unavailable", apiErr.Code)
	assert.Equal(t, "El horario ya no está disponible", apiErr.Message)
}

func TestNonJSONErrorBody(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	_, err := c.ResendOTP(context.Background(), "tok")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Empty(t, apiErr.Code)
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestSendOTPJSON(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req models.SendOTPRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tok", req.SessionToken)
		assert.Equal(t, "+51987654321", req.PhoneNumber)
		w.Write([]byte(`{"message":"Código enviado","expires_in":300,"debug_otp":"482913"}`))
	})

	resp, err := c.SendOTP(context.Background(), models.SendOTPRequest{SessionToken: "tok", PhoneNumber: "+51987654321"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "482913", resp.DebugOTP)
}

func TestSendOTPMultipartWithPhoto(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "tok", r.FormValue("session_token"))
		assert.Equal(t, "Maria", r.FormValue("first_name"))
		_, hasEmail := r.MultipartForm.Value["email"]
		assert.False(t, hasEmail)

		f, hdr, err := r.FormFile("photo")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "me.jpg", hdr.Filename)
		data, _ := io.ReadAll(f)
		assert.Equal(t, "jpegdata", string(data))
		w.Write([]byte(`{"message":"ok","expires_in":300}`))
	})

	resp, err := c.SendOTP(context.Background(),
		models.SendOTPRequest{SessionToken: "tok", FirstName: "Maria"},
		&Photo{Filename: "me.jpg", Content: strings.NewReader("jpegdata")})
	require.NoError(t, err)
	assert.Empty(t, resp.DebugOTP)
}

func TestVerifyOTP(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req models.VerifyOTPRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "482913", req.OTPCode)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"success":true,"message":"¡Reserva confirmada!","appointment":{"id":"a1","price":"35.00","start_datetime":"2024-06-10T15:00:00"}}`))
	})

	resp, err := c.VerifyOTP(context.Background(), "abc123", "482913")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "35.00", resp.Appointment.Price)
}

func TestLookups(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/appointments/booking/lookup-client":
			w.Write([]byte(`{"found":true,"client":{"first_name":"Maria","phone_number":"+51987654321"}}`))
		case "/api/v1/appointments/booking/lookup-reniec":
			var req models.LookupReniecRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "12345678", req.DNI)
			w.Write([]byte(`{"found":true,"first_name":"JUAN","gender":"M"}`))
		default:
			http.NotFound(w, r)
		}
	})

	found, err := c.LookupClient(context.Background(), models.LookupClientRequest{DocumentType: "dni", DocumentNumber: "12345678"})
	require.NoError(t, err)
	require.True(t, found.Found)
	assert.Equal(t, "Maria", found.Client.FirstName)

	person, err := c.LookupReniec(context.Background(), "12345678")
	require.NoError(t, err)
	assert.Equal(t, "JUAN", person.FirstName)
}

func TestContextCancel(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ResendOTP(ctx, "tok")
	assert.ErrorIs(t, err, context.Canceled)
}
