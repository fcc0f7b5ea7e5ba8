package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stylo/handlers"
	"stylo/models"
	"stylo/routes"
	"stylo/services/booking"
	"stylo/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBooking struct {
	startReq  models.StartBookingRequest
	sendReq   models.SendOTPRequest
	photo     []byte
	photoName string
	verifyErr error
}

func (f *fakeBooking) StartBooking(_ context.Context, req models.StartBookingRequest) (*models.StartBookingResponse, error) {
	f.startReq = req
	if req.StaffID != nil && *req.StaffID == "busy" {
		return nil, utils.NewServiceError(utils.CodeSlotUnavailable, "El horario seleccionado no está disponible")
	}
	return &models.StartBookingResponse{SessionToken: "tok", ExpiresIn: 900}, nil
}

func (f *fakeBooking) LookupClient(_ context.Context, docType, docNumber string) (*models.ClientLookupResponse, error) {
	if docType == "" {
		return nil, utils.NewServiceError(utils.CodeValidation, "document_type y document_number son requeridos")
	}
	return &models.ClientLookupResponse{Found: false}, nil
}

func (f *fakeBooking) LookupReniec(_ context.Context, dni string) (*models.RegistryPerson, error) {
	return &models.RegistryPerson{Found: true, FirstName: "María"}, nil
}

func (f *fakeBooking) SendOTP(_ context.Context, req models.SendOTPRequest, photo *booking.Photo) (*models.OTPSentResponse, error) {
	f.sendReq = req
	if photo != nil {
		f.photo, _ = io.ReadAll(photo.Content)
		f.photoName = photo.Filename
	}
	return &models.OTPSentResponse{Message: "Código de verificación enviado a " + req.PhoneNumber, ExpiresIn: 300}, nil
}

func (f *fakeBooking) ResendOTP(_ context.Context, token string) (*models.OTPSentResponse, error) {
	return nil, utils.NewServiceError(utils.CodeOTPLocked, "Demasiados intentos fallidos. Inicie una nueva reserva.")
}

func (f *fakeBooking) VerifyOTP(_ context.Context, token, code string) (*models.VerifyOTPResponse, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &models.VerifyOTPResponse{Success: true, Message: "¡Reserva confirmada!", Appointment: models.AppointmentConfirmation{ID: "a1", Price: "35.00"}}, nil
}

type fakeAvailability struct {
	staffID *string
	date    string
}

func (f *fakeAvailability) GetAvailableSlots(_ context.Context, branchID, serviceID string, staffID *string, date string) (*models.AvailabilityResponse, error) {
	f.staffID, f.date = staffID, date
	if branchID == "missing" {
		return nil, utils.NewServiceError(utils.CodeNotFound, "Sucursal no encontrada")
	}
	return &models.AvailabilityResponse{Date: date, Slots: []models.AvailableSlot{{Datetime: date + "T10:00:00Z", StaffID: "ana"}}, AvailableCount: 1}, nil
}

func (f *fakeAvailability) GetMonthAvailability(_ context.Context, branchID, serviceID string, staffID *string, month string) (*models.MonthAvailabilityResponse, error) {
	return &models.MonthAvailabilityResponse{ServiceID: serviceID, Days: []models.DayAvailability{{Date: month + "-01"}}}, nil
}

func (f *fakeAvailability) FirstAvailableStaff(context.Context, models.Branch, models.Service, time.Time) (*models.StaffMember, error) {
	return nil, nil
}

func newRouter(b *fakeBooking, a *fakeAvailability) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(utils.ErrorHandler())
	hb := handlers.NewHandlerBundle(handlers.NewBookingHandler(b), handlers.NewAvailabilityHandler(a), utils.HealthHandler)
	routes.RegisterRoutes(r, hb, "*")
	return r
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) utils.ErrorResponse {
	t.Helper()
	var e utils.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e
}

func TestStartBookingHandler(t *testing.T) {
	b := &fakeBooking{}
	r := newRouter(b, &fakeAvailability{})

	w := doJSON(r, http.MethodPost, "/api/v1/appointments/booking/start", map[string]any{
		"branch_id": "br", "service_id": "cut", "staff_id": nil, "start_datetime": "2030-01-08T10:00:00Z",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, b.startReq.StaffID)
	assert.Contains(t, w.Body.String(), `"session_token":"tok"`)

	w = doJSON(r, http.MethodPost, "/api/v1/appointments/booking/start", map[string]any{
		"branch_id": "br", "service_id": "cut", "staff_id": "busy", "start_datetime": "2030-01-08T10:00:00Z",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, utils.CodeSlotUnavailable, decodeError(t, w).Code)

	w = doJSON(r, http.MethodPost, "/api/v1/appointments/booking/start", map[string]any{"branch_id": "br"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, utils.CodeValidation, decodeError(t, w).Code)
}

func TestLookupHandlers(t *testing.T) {
	r := newRouter(&fakeBooking{}, &fakeAvailability{})

	w := doJSON(r, http.MethodPost, "/api/v1/appointments/booking/lookup-client", map[string]string{"document_number": "123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "document_type y document_number son requeridos", decodeError(t, w).Error)

	w = doJSON(r, http.MethodPost, "/api/v1/appointments/booking/lookup-client", map[string]string{"document_type": "dni", "document_number": "123"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"found":false}`, w.Body.String())

	w = doJSON(r, http.MethodPost, "/api/v1/appointments/booking/lookup-reniec", map[string]string{"dni": "76543210"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"first_name":"María"`)
}

func TestSendOTPHandlerJSON(t *testing.T) {
	b := &fakeBooking{}
	r := newRouter(b, &fakeAvailability{})

	w := doJSON(r, http.MethodPost, "/api/v1/appointments/booking/send-otp", map[string]string{
		"session_token": "tok", "phone_number": "+51987654321", "document_type": "dni",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "+51987654321", b.sendReq.PhoneNumber)
	assert.Nil(t, b.photo)
	assert.NotContains(t, w.Body.String(), "debug_otp")
}

func TestSendOTPHandlerMultipartPhoto(t *testing.T) {
	b := &fakeBooking{}
	r := newRouter(b, &fakeAvailability{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("session_token", "tok")
	mw.WriteField("phone_number", "+51987654321")
	fw, err := mw.CreateFormFile("photo", "me.JPG")
	require.NoError(t, err)
	fw.Write([]byte("jpeg-bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments/booking/send-otp", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tok", b.sendReq.SessionToken)
	assert.Equal(t, "jpeg-bytes", string(b.photo))
	assert.Equal(t, "me.JPG", b.photoName)
}

func TestResendAndVerifyHandlers(t *testing.T) {
	b := &fakeBooking{}
	r := newRouter(b, &fakeAvailability{})

	w := doJSON(r, http.MethodPost, "/api/v1/appointments/booking/resend-otp", map[string]string{"session_token": "tok"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, utils.CodeOTPLocked, decodeError(t, w).Code)

	w = doJSON(r, http.MethodPost, "/api/v1/appointments/booking/verify-otp", map[string]string{"session_token": "tok", "otp_code": "123456"})
	require.Equal(t, http.StatusCreated, w.Code)
	var resp models.VerifyOTPResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "35.00", resp.Appointment.Price)

	b.verifyErr = utils.NewServiceError(utils.CodeOTPInvalid, "Código incorrecto. 2 intentos restantes.")
	w = doJSON(r, http.MethodPost, "/api/v1/appointments/booking/verify-otp", map[string]string{"session_token": "tok", "otp_code": "000000"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Código incorrecto. 2 intentos restantes.", decodeError(t, w).Error)
}

func TestAvailabilityHandlers(t *testing.T) {
	a := &fakeAvailability{}
	r := newRouter(&fakeBooking{}, a)

	w := doJSON(r, http.MethodGet, "/api/v1/services/br/cut/availability?date=2030-01-08&staff_id=ana", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, a.staffID)
	assert.Equal(t, "ana", *a.staffID)
	assert.Equal(t, "2030-01-08", a.date)

	w = doJSON(r, http.MethodGet, "/api/v1/services/br/cut/availability?date=2030-01-08", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, a.staffID)

	w = doJSON(r, http.MethodGet, "/api/v1/services/missing/cut/availability", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/services/br/cut/availability/month?month=2030-02", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "2030-02-01")
}

func TestHealthRoute(t *testing.T) {
	r := newRouter(&fakeBooking{}, &fakeAvailability{})
	utils.RunHealthChecks(context.Background(), map[string]utils.HealthCheck{
		"redis": func(context.Context) error { return nil },
	})
	w := doJSON(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
