package bookingflow

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"testing"
	"time"

	"stylo/apiclient"
	"stylo/models"
	"stylo/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI is an in-memory booking backend. Gates, when set, hold a call until
// they are closed or the request context ends.
type fakeAPI struct {
	t *testing.T

	mu                sync.Mutex
	slots             []models.AvailableSlot
	availabilityCalls int
	startCalls        int
	startErr          error
	startGate         chan struct{}
	tokens            []string
	lookup            models.ClientLookupResponse
	reniec            *models.RegistryPerson
	reniecErr         error
	reniecGate        chan struct{}
	reniecCalls       int
	sendCalls         int
	sendReqs          []models.SendOTPRequest
	sendPhoto         *apiclient.Photo
	issued            int
	code              string
	verifyGate        chan struct{}
	verifyCalls       int
	summary           models.BookingSummary
}

func newFakeAPI(t *testing.T) *fakeAPI {
	return &fakeAPI{
		t: t,
		slots: []models.AvailableSlot{
			{Datetime: "2024-06-10T15:00:00", StaffID: "ana", StaffName: "Ana"},
			{Datetime: "2024-06-10T15:30:00", StaffID: "luis", StaffName: "Luis"},
		},
		summary: models.BookingSummary{ServiceName: "Corte de cabello", ServiceDuration: 30, Price: "35.00"},
	}
}

func wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeAPI) Availability(ctx context.Context, branchID, serviceID string, staffID *string, date string) (*models.AvailabilityResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.availabilityCalls++
	var slots []models.AvailableSlot
	for _, s := range f.slots {
		if staffID == nil || s.StaffID == *staffID {
			slots = append(slots, s)
		}
	}
	return &models.AvailabilityResponse{Date: date, Slots: slots, AvailableCount: len(slots)}, nil
}

func (f *fakeAPI) StartBooking(ctx context.Context, in models.StartBookingRequest) (*models.StartBookingResponse, error) {
	f.mu.Lock()
	gate := f.startGate
	f.mu.Unlock()
	if err := wait(ctx, gate); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	if f.startErr != nil {
		return nil, f.startErr
	}
	token := "abc123"
	if len(f.tokens) > 0 {
		token = fmt.Sprintf("tok-%d", len(f.tokens))
	}
	f.tokens = append(f.tokens, token)
	summary := f.summary
	summary.ServiceID = in.ServiceID
	summary.StartDatetime = in.StartDatetime
	if in.StaffID != nil {
		summary.StaffID = *in.StaffID
	} else {
		summary.StaffID = "ana"
	}
	return &models.StartBookingResponse{SessionToken: token, ExpiresIn: 900, BookingSummary: summary}, nil
}

func (f *fakeAPI) LookupClient(ctx context.Context, in models.LookupClientRequest) (*models.ClientLookupResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	resp := f.lookup
	return &resp, nil
}

func (f *fakeAPI) LookupReniec(ctx context.Context, dni string) (*models.RegistryPerson, error) {
	f.mu.Lock()
	gate := f.reniecGate
	f.reniecCalls++
	f.mu.Unlock()
	if err := wait(ctx, gate); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reniecErr != nil {
		return nil, f.reniecErr
	}
	if f.reniec == nil {
		return &models.RegistryPerson{Found: false}, nil
	}
	p := *f.reniec
	return &p, nil
}

func (f *fakeAPI) issue() string {
	f.code = fmt.Sprintf("%06d", 482913+f.issued)
	f.issued++
	return f.code
}

func (f *fakeAPI) liveToken(token string) bool {
	return len(f.tokens) > 0 && f.tokens[len(f.tokens)-1] == token
}

func (f *fakeAPI) SendOTP(ctx context.Context, in models.SendOTPRequest, photo *apiclient.Photo) (*models.OTPSentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	f.sendReqs = append(f.sendReqs, in)
	f.sendPhoto = photo
	if !f.liveToken(in.SessionToken) {
		f.t.Errorf("send-otp with a token that was never started: %q", in.SessionToken)
		return nil, &apiclient.APIError{Status: http.StatusBadRequest, Code: utils.CodeSessionInvalid, Message: "Sesión inválida"}
	}
	return &models.OTPSentResponse{Message: "Código enviado", ExpiresIn: 300, DebugOTP: f.issue()}, nil
}

func (f *fakeAPI) ResendOTP(ctx context.Context, sessionToken string) (*models.OTPSentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &models.OTPSentResponse{Message: "Código reenviado", ExpiresIn: 300, DebugOTP: f.issue()}, nil
}

func (f *fakeAPI) VerifyOTP(ctx context.Context, sessionToken, code string) (*models.VerifyOTPResponse, error) {
	f.mu.Lock()
	gate := f.verifyGate
	f.mu.Unlock()
	if err := wait(ctx, gate); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++
	if code != f.code {
		return nil, &apiclient.APIError{Status: http.StatusBadRequest, Code: utils.CodeOTPInvalid, Message: "Código incorrecto. Te quedan 2 intentos."}
	}
	f.code = ""
	return &models.VerifyOTPResponse{
		Success: true,
		Message: "¡Reserva confirmada!",
		Appointment: models.AppointmentConfirmation{
			ID:              "appt-1",
			ServiceName:     f.summary.ServiceName,
			StartDatetime:   "2024-06-10T15:00:00",
			DurationMinutes: 30,
			Status:          "confirmed",
			Price:           f.summary.Price,
		},
	}, nil
}

func (f *fakeAPI) calls() (availability, start, send, verify int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.availabilityCalls, f.startCalls, f.sendCalls, f.verifyCalls
}

func strPtr(s string) *string { return &s }

func fillNewClient(d *ClientDraft) {
	d.PhoneNumber = "+51987654321"
	d.FirstName = "Juan"
	d.LastNamePaterno = "Perez"
	d.LastNameMaterno = "Diaz"
	d.Gender = "M"
}

// toClient drives a controller up to the client step with the given staff choice.
func toClient(t *testing.T, c *Controller, staffID *string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, c.SelectService("corte"))
	require.NoError(t, c.SelectStaff(staffID))
	slots, err := c.LoadSlots(ctx, "2024-06-10")
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	require.NoError(t, c.SelectSlot(slots[0]))
	require.NoError(t, c.StartBooking(ctx))
	require.Equal(t, StepClient, c.Step())
}

func toOTP(t *testing.T, c *Controller) {
	t.Helper()
	toClient(t, c, nil)
	require.NoError(t, c.LookupClient(context.Background(), "pasaporte", "AB123456"))
	require.NoError(t, c.EditDraft(fillNewClient))
	require.NoError(t, c.SendOTP(context.Background()))
	require.Equal(t, StepOTP, c.Step())
}

func TestBookingGraph(t *testing.T) {
	g := BookingGraph
	assert.True(t, g.Allows(StepService, StepStaff))
	assert.True(t, g.Allows(StepOTP, StepSuccess))
	assert.False(t, g.Allows(StepService, StepClient))
	assert.False(t, g.Allows(StepDatetime, StepOTP))
	assert.False(t, g.Allows(StepClient, StepSuccess))
	assert.True(t, g.Terminal(StepSuccess))
	assert.False(t, g.Terminal(StepOTP))
	assert.True(t, g.Before(StepDatetime, StepClient))
	assert.False(t, g.Before(StepClient, StepClient))

	// Every forward edge is to the next step of the order.
	for from, tos := range g.Edges {
		for _, to := range tos {
			if g.Before(from, to) {
				assert.Equal(t, g.index(from)+1, g.index(to), "%s -> %s skips a step", from, to)
			}
		}
	}
}

func TestActionsOutOfStepAreIllegal(t *testing.T) {
	api := newFakeAPI(t)
	c := New(api, "b1", nil)
	ctx := context.Background()

	assert.ErrorIs(t, c.SelectStaff(nil), ErrIllegalTransition)
	assert.ErrorIs(t, c.StartBooking(ctx), ErrIllegalTransition)
	assert.ErrorIs(t, c.LookupClient(ctx, "dni", "12345678"), ErrIllegalTransition)
	assert.ErrorIs(t, c.SendOTP(ctx), ErrIllegalTransition)
	assert.ErrorIs(t, c.VerifyOTP(ctx), ErrIllegalTransition)
	assert.ErrorIs(t, c.Back(StepService), ErrIllegalTransition)
	assert.Equal(t, StepService, c.Step())
	assert.Empty(t, c.Err())

	_, start, send, verify := api.calls()
	assert.Zero(t, start+send+verify)
}

// Random action sequences never reach the otp step without a started booking.
func TestGuardsHoldForRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	steps := BookingGraph.Order

	for run := 0; run < 200; run++ {
		api := newFakeAPI(t)
		c := New(api, "b1", nil)
		ctx := context.Background()
		for i := 0; i < 30; i++ {
			switch rng.Intn(11) {
			case 0:
				c.SelectService("corte")
			case 1:
				c.SelectStaff(nil)
			case 2:
				c.SelectStaff(strPtr("luis"))
			case 3:
				c.LoadSlots(ctx, "2024-06-10")
			case 4:
				c.SelectSlot(models.AvailableSlot{Datetime: "2024-06-10T15:30:00"})
			case 5:
				c.StartBooking(ctx)
			case 6:
				c.LookupClient(ctx, "ce", "CE998877")
			case 7:
				c.EditDraft(fillNewClient)
			case 8:
				c.SendOTP(ctx)
			case 9:
				c.Back(steps[rng.Intn(len(steps))])
			case 10:
				c.Leave()
			}

			switch c.Step() {
			case StepClient, StepOTP:
				require.NotEmpty(t, c.SessionToken())
				require.NotNil(t, c.Summary())
			}
			if c.Step() == StepOTP {
				require.True(t, c.ClientLookupDone())
			}
		}
	}
}

func TestSummaryEchoesSelection(t *testing.T) {
	api := newFakeAPI(t)
	c := New(api, "b1", nil)
	toClient(t, c, strPtr("luis"))

	sel := c.Selection()
	summary := c.Summary()
	require.NotNil(t, summary)
	assert.Equal(t, sel.ServiceID, summary.ServiceID)
	assert.Equal(t, *sel.StaffID, summary.StaffID)
	assert.Equal(t, sel.Slot.Datetime, summary.StartDatetime)
}

func TestReselectingServiceClearsStaffAndSlot(t *testing.T) {
	api := newFakeAPI(t)
	c := New(api, "b1", nil)
	toClient(t, c, strPtr("ana"))

	require.NoError(t, c.Back(StepService))
	assert.Empty(t, c.SessionToken())
	assert.False(t, c.ClientLookupDone())

	require.NoError(t, c.SelectService("tinte"))
	sel := c.Selection()
	assert.Equal(t, "tinte", sel.ServiceID)
	assert.Nil(t, sel.StaffID)
	assert.Nil(t, sel.Slot)
	assert.Equal(t, StepStaff, c.Step())
}

func TestSelectServiceRequiresID(t *testing.T) {
	c := New(newFakeAPI(t), "b1", nil)
	err := c.SelectService("  ")
	assert.True(t, IsKind(err, Validation))
	assert.Equal(t, StepService, c.Step())
	assert.NotEmpty(t, c.Err())

	require.NoError(t, c.SelectService("corte"))
	assert.Empty(t, c.Err())
}

func TestSanitizeOTP(t *testing.T) {
	cases := map[string]string{
		"":            "",
		"abc":         "",
		"4829":        "4829",
		"482913":      "482913",
		"4829137":     "482913",
		"48 29-13":    "482913",
		"x4y8z2913!9": "482913",
		"٤٨٢٩١٣":      "",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeOTP(in), "input %q", in)
	}
}

func TestVerifyRequiresSixDigits(t *testing.T) {
	api := newFakeAPI(t)
	c := New(api, "b1", nil)
	toOTP(t, c)

	code, err := c.SetOTPCode("12-34a")
	require.NoError(t, err)
	assert.Equal(t, "1234", code)
	assert.True(t, IsKind(c.VerifyOTP(context.Background()), Validation))

	_, _, _, verify := api.calls()
	assert.Zero(t, verify)
	assert.Equal(t, StepOTP, c.Step())
}

func TestOnlyLatestCodeVerifies(t *testing.T) {
	api := newFakeAPI(t)
	c := New(api, "b1", nil)
	toOTP(t, c)
	ctx := context.Background()

	first := c.DebugOTP()
	for i := 0; i < 3; i++ {
		require.NoError(t, c.ResendOTP(ctx))
	}
	latest := c.DebugOTP()
	require.NotEqual(t, first, latest)

	_, err := c.SetOTPCode(first)
	require.NoError(t, err)
	assert.True(t, IsKind(c.VerifyOTP(ctx), Challenge))

	_, err = c.SetOTPCode(latest)
	require.NoError(t, err)
	require.NoError(t, c.VerifyOTP(ctx))
	assert.Equal(t, StepSuccess, c.Step())
}

func TestSendOTPValidatesLocally(t *testing.T) {
	api := newFakeAPI(t)
	c := New(api, "b1", nil)
	toClient(t, c, nil)
	ctx := context.Background()

	assert.True(t, IsKind(c.SendOTP(ctx), Validation), "lookup must come first")

	require.NoError(t, c.LookupClient(ctx, "pasaporte", "ab-123456"))
	assert.Equal(t, "AB123456", c.Draft().DocumentNumber)
	require.NoError(t, c.EditDraft(func(d *ClientDraft) {
		fillNewClient(d)
		d.PhoneNumber = "987654321"
	}))
	assert.True(t, IsKind(c.SendOTP(ctx), Validation))

	_, _, send, _ := api.calls()
	assert.Zero(t, send)
	assert.Equal(t, StepClient, c.Step())
	assert.Equal(t, "987654321", c.Draft().PhoneNumber, "input is preserved")
}

func TestExistingClientIdentityIsReadOnly(t *testing.T) {
	api := newFakeAPI(t)
	birth := "1990-05-01"
	api.lookup = models.ClientLookupResponse{Found: true, Client: &models.ClientPublic{
		FirstName: "Maria", LastNamePaterno: "Lopez", PhoneNumber: "+51911111111", Gender: "F", BirthDate: &birth,
	}}
	c := New(api, "b1", nil)
	toClient(t, c, nil)
	ctx := context.Background()

	require.NoError(t, c.LookupClient(ctx, "dni", "87654321"))
	assert.True(t, c.ClientFound())
	assert.Equal(t, "1990-05-01", c.Draft().BirthDate)

	err := c.EditDraft(func(d *ClientDraft) { d.FirstName = "Mariana" })
	assert.True(t, IsKind(err, Validation))
	assert.Equal(t, "Maria", c.Draft().FirstName)

	require.NoError(t, c.EditDraft(func(d *ClientDraft) {
		d.PhoneNumber = "+51922222222"
		d.Email = "maria@example.com"
	}))
	require.NoError(t, c.SendOTP(ctx))
	assert.Equal(t, "+51922222222", api.sendReqs[0].PhoneNumber)

	assert.Zero(t, api.reniecCalls, "registered clients are not enriched")
}

func TestChangingDocumentRequiresNewLookup(t *testing.T) {
	api := newFakeAPI(t)
	c := New(api, "b1", nil)
	toClient(t, c, nil)
	require.NoError(t, c.LookupClient(context.Background(), "ce", "CE123456"))

	require.NoError(t, c.EditDraft(func(d *ClientDraft) { d.DocumentNumber = "CE654321" }))
	assert.False(t, c.ClientLookupDone())
}

func TestRegistryEnrichmentFillsEmptyFields(t *testing.T) {
	api := newFakeAPI(t)
	api.reniec = &models.RegistryPerson{Found: true, FirstName: "JUAN CARLOS", LastNamePaterno: "PEREZ", LastNameMaterno: "DIAZ", Gender: "M", BirthDate: "1985-02-03"}
	api.reniecGate = make(chan struct{})
	c := New(api, "b1", nil)
	toClient(t, c, nil)

	require.NoError(t, c.LookupClient(context.Background(), "dni", "12345678"))
	require.NoError(t, c.EditDraft(func(d *ClientDraft) { d.FirstName = "Juan" }))
	close(api.reniecGate)

	assert.Eventually(t, func() bool { return c.Draft().LastNamePaterno == "PEREZ" }, time.Second, 5*time.Millisecond)
	d := c.Draft()
	assert.Equal(t, "Juan", d.FirstName, "typed fields win")
	assert.Equal(t, "1985-02-03", d.BirthDate)
}

func TestRegistryEnrichmentIgnoredForOtherDocument(t *testing.T) {
	api := newFakeAPI(t)
	api.reniec = &models.RegistryPerson{Found: true, FirstName: "JUAN", LastNamePaterno: "PEREZ"}
	api.reniecGate = make(chan struct{})
	c := New(api, "b1", nil)
	toClient(t, c, nil)

	require.NoError(t, c.LookupClient(context.Background(), "dni", "12345678"))
	require.NoError(t, c.EditDraft(func(d *ClientDraft) { d.DocumentNumber = "87654321" }))
	close(api.reniecGate)

	assert.Never(t, func() bool { return c.Draft().LastNamePaterno != "" }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestRegistryFailureIsSilent(t *testing.T) {
	api := newFakeAPI(t)
	api.reniecErr = errors.New("registry down")
	c := New(api, "b1", nil)
	toClient(t, c, nil)

	require.NoError(t, c.LookupClient(context.Background(), "dni", "12345678"))
	assert.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return api.reniecCalls == 1
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, c.Err())
	assert.True(t, c.ClientLookupDone())

	require.NoError(t, c.EditDraft(fillNewClient))
	require.NoError(t, c.SendOTP(context.Background()))
}

func TestSecondSubmitWhileInFlight(t *testing.T) {
	api := newFakeAPI(t)
	api.startGate = make(chan struct{})
	c := New(api, "b1", nil)
	ctx := context.Background()
	require.NoError(t, c.SelectService("corte"))
	require.NoError(t, c.SelectStaff(nil))
	slots, err := c.LoadSlots(ctx, "2024-06-10")
	require.NoError(t, err)
	require.NoError(t, c.SelectSlot(slots[0]))

	done := make(chan error, 1)
	go func() { done <- c.StartBooking(ctx) }()
	require.Eventually(t, func() bool { return c.Pending(ActionStart) }, time.Second, time.Millisecond)

	assert.ErrorIs(t, c.StartBooking(ctx), ErrInFlight)
	close(api.startGate)
	require.NoError(t, <-done)

	_, start, _, _ := api.calls()
	assert.Equal(t, 1, start)
	assert.False(t, c.Pending(ActionStart))
}

func TestLeaveDropsLateResponse(t *testing.T) {
	api := newFakeAPI(t)
	c := New(api, "b1", nil)
	toOTP(t, c)
	api.mu.Lock()
	api.verifyGate = make(chan struct{})
	code := api.code
	api.mu.Unlock()

	_, err := c.SetOTPCode(code)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- c.VerifyOTP(context.Background()) }()
	require.Eventually(t, func() bool { return c.Pending(ActionVerifyOTP) }, time.Second, time.Millisecond)

	c.Leave()
	assert.ErrorIs(t, <-done, ErrDiscarded)
	assert.Equal(t, StepService, c.Step())
	assert.Empty(t, c.SessionToken())
	assert.Nil(t, c.Confirmation())
	assert.False(t, c.Pending(ActionVerifyOTP))
}

func TestBackToClientKeepsSession(t *testing.T) {
	api := newFakeAPI(t)
	c := New(api, "b1", nil)
	toOTP(t, c)
	token := c.SessionToken()

	require.NoError(t, c.Back(StepClient))
	assert.Equal(t, token, c.SessionToken())
	assert.True(t, c.ClientLookupDone())

	require.NoError(t, c.Back(StepDatetime))
	assert.Empty(t, c.SessionToken())
	assert.False(t, c.ClientLookupDone())
	assert.NotNil(t, c.Selection().Slot, "slot choice survives")
}

func TestSuccessIsTerminal(t *testing.T) {
	api := newFakeAPI(t)
	c := New(api, "b1", nil)
	toOTP(t, c)
	_, err := c.SetOTPCode(c.DebugOTP())
	require.NoError(t, err)
	require.NoError(t, c.VerifyOTP(context.Background()))

	assert.ErrorIs(t, c.Back(StepOTP), ErrIllegalTransition)
	assert.ErrorIs(t, c.ResendOTP(context.Background()), ErrIllegalTransition)

	c.Leave()
	assert.Equal(t, StepService, c.Step())
	assert.Nil(t, c.Confirmation())
	assert.Equal(t, Selection{}, c.Selection())
}

func TestSelectSlotMustComeFromAvailability(t *testing.T) {
	api := newFakeAPI(t)
	c := New(api, "b1", nil)
	require.NoError(t, c.SelectService("corte"))
	require.NoError(t, c.SelectStaff(strPtr("ana")))

	err := c.SelectSlot(models.AvailableSlot{Datetime: "2024-06-10T15:00:00"})
	assert.True(t, IsKind(err, Validation), "nothing loaded yet")

	_, err = c.LoadSlots(context.Background(), "2024-06-10")
	require.NoError(t, err)
	assert.True(t, IsKind(c.SelectSlot(models.AvailableSlot{Datetime: "2024-06-10T15:30:00"}), Validation), "luis' slot")
	assert.NoError(t, c.SelectSlot(models.AvailableSlot{Datetime: "2024-06-10T15:00:00"}))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		code string
		kind Kind
	}{
		{utils.CodeSlotUnavailable, Conflict},
		{utils.CodeOTPInvalid, Challenge},
		{utils.CodeOTPExpired, Challenge},
		{utils.CodeOTPLocked, Challenge},
		{utils.CodeValidation, Validation},
		{utils.CodeSessionExpired, Transient},
		{utils.CodeBusinessUnavailable, Transient},
		{"", Transient},
	}
	for _, tc := range cases {
		fe := classify(&apiclient.APIError{Status: 400, Code: tc.code, Message: "msg"})
		assert.Equal(t, tc.kind, fe.Kind, "code %q", tc.code)
	}

	fe := classify(errors.New("dial tcp: connection refused"))
	assert.Equal(t, Transient, fe.Kind)
	assert.Equal(t, genericMessage, fe.Message)
}

func TestScenarioA(t *testing.T) {
	api := newFakeAPI(t)
	c := New(api, "b1", nil)
	ctx := context.Background()

	require.NoError(t, c.SelectService("corte"))
	require.NoError(t, c.SelectStaff(nil))
	_, err := c.LoadSlots(ctx, "2024-06-10")
	require.NoError(t, err)
	require.NoError(t, c.SelectSlot(models.AvailableSlot{Datetime: "2024-06-10T15:00:00"}))
	require.NoError(t, c.StartBooking(ctx))
	assert.Equal(t, "abc123", c.SessionToken())

	require.NoError(t, c.LookupClient(ctx, "dni", "12345678"))
	assert.False(t, c.ClientFound())
	require.NoError(t, c.EditDraft(fillNewClient))
	require.NoError(t, c.SendOTP(ctx))
	assert.Equal(t, "482913", c.DebugOTP())

	_, err = c.SetOTPCode("482913")
	require.NoError(t, err)
	require.NoError(t, c.VerifyOTP(ctx))

	assert.Equal(t, StepSuccess, c.Step())
	conf := c.Confirmation()
	require.NotNil(t, conf)
	assert.Equal(t, "35.00", conf.Price)
	assert.Equal(t, "2024-06-10T15:00:00", conf.StartDatetime)
}

func TestScenarioB(t *testing.T) {
	api := newFakeAPI(t)
	c := New(api, "b1", nil)
	toOTP(t, c)

	_, err := c.SetOTPCode("000000")
	require.NoError(t, err)
	err = c.VerifyOTP(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, Challenge))

	assert.Equal(t, StepOTP, c.Step())
	assert.Equal(t, "Código incorrecto. Te quedan 2 intentos.", c.Err())
	assert.Equal(t, "000000", c.OTPCode())
	assert.Equal(t, 1, c.Attempts())
	assert.NotEmpty(t, c.SessionToken())
	assert.True(t, c.ClientLookupDone())
}

func TestRejectedCodeNeedsReEntry(t *testing.T) {
	api := newFakeAPI(t)
	c := New(api, "b1", nil)
	ctx := context.Background()
	toOTP(t, c)

	_, err := c.SetOTPCode("000000")
	require.NoError(t, err)
	require.True(t, IsKind(c.VerifyOTP(ctx), Challenge))

	err = c.VerifyOTP(ctx)
	assert.True(t, IsKind(err, Validation))
	assert.Equal(t, 1, api.verifyCalls)
	assert.Equal(t, 1, c.Attempts())
	assert.Equal(t, "000000", c.OTPCode())

	// Typing the same digits again is not a new entry either.
	_, err = c.SetOTPCode("000-000")
	require.NoError(t, err)
	assert.True(t, IsKind(c.VerifyOTP(ctx), Validation))
	assert.Equal(t, 1, api.verifyCalls)

	_, err = c.SetOTPCode(c.DebugOTP())
	require.NoError(t, err)
	require.NoError(t, c.VerifyOTP(ctx))
	assert.Equal(t, 2, api.verifyCalls)
	assert.Equal(t, StepSuccess, c.Step())
}

func TestResendAllowsPreviouslyRejectedCode(t *testing.T) {
	api := newFakeAPI(t)
	c := New(api, "b1", nil)
	ctx := context.Background()
	toOTP(t, c)

	_, err := c.SetOTPCode("000000")
	require.NoError(t, err)
	require.Error(t, c.VerifyOTP(ctx))

	require.NoError(t, c.ResendOTP(ctx))
	assert.Error(t, c.VerifyOTP(ctx))
	assert.Equal(t, 2, api.verifyCalls)
}

func TestScenarioC(t *testing.T) {
	api := newFakeAPI(t)
	api.startErr = &apiclient.APIError{Status: http.StatusConflict, Code: utils.CodeSlotUnavailable, Message: "El horario seleccionado ya no está disponible"}
	c := New(api, "b1", nil)
	ctx := context.Background()

	require.NoError(t, c.SelectService("corte"))
	require.NoError(t, c.SelectStaff(nil))
	slots, err := c.LoadSlots(ctx, "2024-06-10")
	require.NoError(t, err)
	require.NoError(t, c.SelectSlot(slots[0]))

	err = c.StartBooking(ctx)
	assert.True(t, IsKind(err, Conflict))
	assert.Equal(t, StepDatetime, c.Step())
	assert.Empty(t, c.SessionToken())
	assert.Equal(t, "2024-06-10", c.Selection().Date)
	assert.Nil(t, c.Selection().Slot)
	assert.NotEmpty(t, c.Err())

	// The date's slots are fetched again instead of served from cache.
	_, err = c.LoadSlots(ctx, "2024-06-10")
	require.NoError(t, err)
	availability, _, _, _ := api.calls()
	assert.Equal(t, 2, availability)
	assert.Empty(t, c.Err())
}
