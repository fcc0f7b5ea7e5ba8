package bookingflow

import (
	"context"
	"strings"
	"sync"
	"time"

	"stylo/apiclient"
	"stylo/models"
	"stylo/utils"

	"go.uber.org/zap"
)

// API is the part of the booking backend the flow calls. *apiclient.Client implements it.
type API interface {
	Availability(ctx context.Context, branchID, serviceID string, staffID *string, date string) (*models.AvailabilityResponse, error)
	StartBooking(ctx context.Context, in models.StartBookingRequest) (*models.StartBookingResponse, error)
	LookupClient(ctx context.Context, in models.LookupClientRequest) (*models.ClientLookupResponse, error)
	LookupReniec(ctx context.Context, dni string) (*models.RegistryPerson, error)
	SendOTP(ctx context.Context, in models.SendOTPRequest, photo *apiclient.Photo) (*models.OTPSentResponse, error)
	ResendOTP(ctx context.Context, sessionToken string) (*models.OTPSentResponse, error)
	VerifyOTP(ctx context.Context, sessionToken, code string) (*models.VerifyOTPResponse, error)
}

// Action names a network-backed operation of the flow.
type Action string

const (
	ActionAvailability Action = "availability"
	ActionStart        Action = "start"
	ActionLookup       Action = "lookup-client"
	ActionSendOTP      Action = "send-otp"
	ActionResendOTP    Action = "resend-otp"
	ActionVerifyOTP    Action = "verify-otp"
)

// Selection is what the client picked so far. StaffID nil means no preference.
type Selection struct {
	ServiceID string
	StaffID   *string
	Date      string
	Slot      *models.AvailableSlot
	Notes     string
}

type slotKey struct {
	serviceID string
	staffID   string
	date      string
}

// Controller is the state of one booking attempt. It is safe for concurrent use;
// every mutating backend call happens only when the caller invokes a method.
type Controller struct {
	api      API
	graph    Graph
	branchID string
	logger   *zap.Logger

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	gen      uint64
	inFlight map[Action]bool

	step      Step
	selection Selection
	slots     map[slotKey][]models.AvailableSlot

	sessionToken string
	summary      *models.BookingSummary

	draft            ClientDraft
	photo            *apiclient.Photo
	clientLookupDone bool
	clientFound      bool

	otpCode string
	// rejectedCode is the last code the backend refused. It is not sent again
	// until the user types a different one.
	rejectedCode string
	attempts     int
	debugOTP     string

	confirmation *models.AppointmentConfirmation
	lastErr      *Error
}

func New(api API, branchID string, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{api: api, graph: BookingGraph, branchID: branchID, logger: logger}
	c.reset()
	return c
}

// reset starts a fresh attempt. Called with mu held.
func (c *Controller) reset() {
	c.newGeneration()
	c.step = StepService
	c.selection = Selection{}
	c.slots = make(map[slotKey][]models.AvailableSlot)
	c.discardSession()
	c.draft = ClientDraft{}
	c.photo = nil
	c.confirmation = nil
	c.lastErr = nil
}

// newGeneration cancels outstanding requests; their responses are dropped.
func (c *Controller) newGeneration() {
	if c.cancel != nil {
		c.cancel()
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.gen++
	c.inFlight = make(map[Action]bool)
}

func (c *Controller) discardSession() {
	c.sessionToken = ""
	c.summary = nil
	c.clientLookupDone = false
	c.clientFound = false
	c.otpCode = ""
	c.rejectedCode = ""
	c.attempts = 0
	c.debugOTP = ""
}

func (c *Controller) transition(to Step) error {
	if !c.graph.Allows(c.step, to) {
		return ErrIllegalTransition
	}
	c.step = to
	return nil
}

func (c *Controller) fail(fe *Error) error {
	c.lastErr = fe
	return fe
}

func (c *Controller) succeed() {
	c.lastErr = nil
}

// begin marks a as in flight and derives its request context from both the
// caller's context and the attempt's. finish must be called with mu held and
// reports whether the response still belongs to the current attempt.
func (c *Controller) begin(ctx context.Context, a Action) (context.Context, func() bool, error) {
	if c.inFlight[a] {
		return nil, nil, ErrInFlight
	}
	c.inFlight[a] = true
	gen := c.gen
	rctx, cancel := context.WithCancel(c.ctx)
	stop := context.AfterFunc(ctx, cancel)
	finish := func() bool {
		stop()
		cancel()
		if gen != c.gen {
			return false
		}
		delete(c.inFlight, a)
		return true
	}
	return rctx, finish, nil
}

// Leave discards the whole attempt and cancels its requests.
func (c *Controller) Leave() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// Back navigates to an already completed step. Going back to datetime or
// earlier discards the session token and the identity lookup.
func (c *Controller) Back(to Step) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.graph.Terminal(c.step) || !c.graph.Before(to, c.step) || !c.graph.Allows(c.step, to) {
		return ErrIllegalTransition
	}
	if c.graph.Before(to, StepClient) {
		c.newGeneration()
		c.discardSession()
	}
	c.step = to
	c.succeed()
	return nil
}

func (c *Controller) SelectService(serviceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepService {
		return ErrIllegalTransition
	}
	serviceID = strings.TrimSpace(serviceID)
	if serviceID == "" {
		return c.fail(validation("Selecciona un servicio"))
	}
	c.selection.ServiceID = serviceID
	c.selection.StaffID = nil
	c.selection.Slot = nil
	if err := c.transition(StepStaff); err != nil {
		return err
	}
	c.succeed()
	return nil
}

// SelectStaff picks a staff member; nil means first available.
func (c *Controller) SelectStaff(staffID *string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepStaff {
		return ErrIllegalTransition
	}
	if staffID != nil {
		id := strings.TrimSpace(*staffID)
		if id == "" {
			return c.fail(validation("Selecciona un profesional"))
		}
		staffID = &id
	}
	c.selection.StaffID = staffID
	c.selection.Slot = nil
	if err := c.transition(StepDatetime); err != nil {
		return err
	}
	c.succeed()
	return nil
}

func (c *Controller) key(date string) slotKey {
	k := slotKey{serviceID: c.selection.ServiceID, date: date}
	if c.selection.StaffID != nil {
		k.staffID = *c.selection.StaffID
	}
	return k
}

// LoadSlots returns the free slots of date for the current service and staff,
// fetching them unless they are cached.
func (c *Controller) LoadSlots(ctx context.Context, date string) ([]models.AvailableSlot, error) {
	c.mu.Lock()
	if c.step != StepDatetime {
		c.mu.Unlock()
		return nil, ErrIllegalTransition
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		err := c.fail(validation("Fecha inválida"))
		c.mu.Unlock()
		return nil, err
	}
	k := c.key(date)
	if date != c.selection.Date {
		c.selection.Date = date
		c.selection.Slot = nil
	}
	if slots, ok := c.slots[k]; ok {
		c.succeed()
		c.mu.Unlock()
		return append([]models.AvailableSlot(nil), slots...), nil
	}
	rctx, finish, err := c.begin(ctx, ActionAvailability)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	staffID := c.selection.StaffID
	c.mu.Unlock()

	resp, err := c.api.Availability(rctx, c.branchID, k.serviceID, staffID, date)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !finish() {
		return nil, ErrDiscarded
	}
	if err != nil {
		return nil, c.fail(classify(err))
	}
	c.slots[k] = resp.Slots
	c.succeed()
	return append([]models.AvailableSlot(nil), resp.Slots...), nil
}

// SelectSlot picks one slot of the slot list loaded for the current date.
func (c *Controller) SelectSlot(slot models.AvailableSlot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepDatetime {
		return ErrIllegalTransition
	}
	for _, s := range c.slots[c.key(c.selection.Date)] {
		if s.Datetime == slot.Datetime && (slot.StaffID == "" || s.StaffID == slot.StaffID) {
			picked := s
			c.selection.Slot = &picked
			c.succeed()
			return nil
		}
	}
	return c.fail(validation("El horario seleccionado no está disponible"))
}

func (c *Controller) SetNotes(notes string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepDatetime {
		return ErrIllegalTransition
	}
	c.selection.Notes = strings.TrimSpace(notes)
	return nil
}

// StartBooking holds the selected slot on the backend. A conflict drops the
// cached slots of the date so the next LoadSlots refetches them.
func (c *Controller) StartBooking(ctx context.Context) error {
	c.mu.Lock()
	if c.step != StepDatetime {
		c.mu.Unlock()
		return ErrIllegalTransition
	}
	if c.selection.Slot == nil {
		err := c.fail(validation("Selecciona un horario"))
		c.mu.Unlock()
		return err
	}
	rctx, finish, err := c.begin(ctx, ActionStart)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	// A new start abandons the previous token; the backend lets it expire.
	c.discardSession()
	req := models.StartBookingRequest{
		BranchID:      c.branchID,
		ServiceID:     c.selection.ServiceID,
		StaffID:       c.selection.StaffID,
		StartDatetime: c.selection.Slot.Datetime,
		Notes:         c.selection.Notes,
	}
	date := c.selection.Date
	c.mu.Unlock()

	resp, err := c.api.StartBooking(rctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !finish() {
		return ErrDiscarded
	}
	if err != nil {
		fe := classify(err)
		if fe.Kind == Conflict {
			delete(c.slots, c.key(date))
			c.selection.Slot = nil
		}
		return c.fail(fe)
	}
	c.sessionToken = resp.SessionToken
	summary := resp.BookingSummary
	c.summary = &summary
	if err := c.transition(StepClient); err != nil {
		return err
	}
	c.succeed()
	return nil
}

// LookupClient resolves the client by document. An unknown DNI triggers a
// background registry lookup that only fills fields still empty.
func (c *Controller) LookupClient(ctx context.Context, documentType, documentNumber string) error {
	c.mu.Lock()
	if c.step != StepClient {
		c.mu.Unlock()
		return ErrIllegalTransition
	}
	documentNumber = utils.NormalizeDocument(documentNumber)
	if !models.ValidDocumentType(documentType) {
		err := c.fail(validation("Tipo de documento inválido"))
		c.mu.Unlock()
		return err
	}
	if documentNumber == "" {
		err := c.fail(validation("Ingresa tu número de documento"))
		c.mu.Unlock()
		return err
	}
	rctx, finish, err := c.begin(ctx, ActionLookup)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	resp, err := c.api.LookupClient(rctx, models.LookupClientRequest{DocumentType: documentType, DocumentNumber: documentNumber})

	c.mu.Lock()
	defer c.mu.Unlock()
	if !finish() {
		return ErrDiscarded
	}
	if err != nil {
		return c.fail(classify(err))
	}

	c.clientLookupDone = true
	if resp.Found && resp.Client != nil {
		c.clientFound = true
		c.draft = draftFromClient(documentType, documentNumber, resp.Client)
		c.succeed()
		return nil
	}

	c.clientFound = false
	c.draft = ClientDraft{
		DocumentType:   documentType,
		DocumentNumber: documentNumber,
		PhoneNumber:    c.draft.PhoneNumber,
		Email:          c.draft.Email,
	}
	if documentType == models.DocumentDNI {
		go c.enrich(c.ctx, c.gen, documentNumber)
	}
	c.succeed()
	return nil
}

func (c *Controller) enrich(ctx context.Context, gen uint64, dni string) {
	person, err := c.api.LookupReniec(ctx, dni)
	if err != nil || person == nil || !person.Found {
		c.logger.Debug("Registry enrichment skipped", zap.Error(err))
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.clientFound || c.draft.DocumentType != models.DocumentDNI || c.draft.DocumentNumber != dni {
		return
	}
	c.draft.patchEmpty(*person)
}

// EditDraft applies fn to the client form. Registered clients may only change
// their phone and e-mail. Changing the document requires a new lookup.
func (c *Controller) EditDraft(fn func(*ClientDraft)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepClient {
		return ErrIllegalTransition
	}
	next := c.draft
	fn(&next)
	next.DocumentNumber = utils.NormalizeDocument(next.DocumentNumber)
	if c.clientFound && !next.sameIdentity(c.draft) {
		return c.fail(validation("Los datos de un cliente registrado no se pueden modificar"))
	}
	if next.DocumentType != c.draft.DocumentType || next.DocumentNumber != c.draft.DocumentNumber {
		c.clientLookupDone = false
	}
	c.draft = next
	return nil
}

// SetPhoto attaches an optional client photo to the next SendOTP.
func (c *Controller) SetPhoto(photo *apiclient.Photo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepClient {
		return ErrIllegalTransition
	}
	c.photo = photo
	return nil
}

// SendOTP submits the client form and asks the backend for a code.
func (c *Controller) SendOTP(ctx context.Context) error {
	c.mu.Lock()
	if c.step != StepClient || c.sessionToken == "" {
		c.mu.Unlock()
		return ErrIllegalTransition
	}
	if !c.clientLookupDone {
		err := c.fail(validation("Primero busca tu documento de identidad"))
		c.mu.Unlock()
		return err
	}
	if fe := c.draft.validate(); fe != nil {
		err := c.fail(fe)
		c.mu.Unlock()
		return err
	}
	rctx, finish, err := c.begin(ctx, ActionSendOTP)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	req := c.draft.request(c.sessionToken)
	photo := c.photo
	c.mu.Unlock()

	resp, err := c.api.SendOTP(rctx, req, photo)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !finish() {
		return ErrDiscarded
	}
	if err != nil {
		return c.fail(classify(err))
	}
	c.debugOTP = resp.DebugOTP
	c.otpCode = ""
	c.rejectedCode = ""
	c.attempts = 0
	if err := c.transition(StepOTP); err != nil {
		return err
	}
	c.succeed()
	return nil
}

// SetOTPCode stores the typed code keeping only its first six digits.
func (c *Controller) SetOTPCode(raw string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepOTP {
		return "", ErrIllegalTransition
	}
	c.otpCode = SanitizeOTP(raw)
	return c.otpCode, nil
}

func (c *Controller) ResendOTP(ctx context.Context) error {
	c.mu.Lock()
	if c.step != StepOTP {
		c.mu.Unlock()
		return ErrIllegalTransition
	}
	rctx, finish, err := c.begin(ctx, ActionResendOTP)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	token := c.sessionToken
	c.mu.Unlock()

	resp, err := c.api.ResendOTP(rctx, token)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !finish() {
		return ErrDiscarded
	}
	if err != nil {
		return c.fail(classify(err))
	}
	c.debugOTP = resp.DebugOTP
	c.rejectedCode = ""
	c.succeed()
	return nil
}

// VerifyOTP confirms the booking with the typed code. A rejected code keeps
// the flow on the otp step with the code as typed.
func (c *Controller) VerifyOTP(ctx context.Context) error {
	c.mu.Lock()
	if c.step != StepOTP {
		c.mu.Unlock()
		return ErrIllegalTransition
	}
	if len(c.otpCode) != OTPLength {
		err := c.fail(validation("Ingresa el código de 6 dígitos"))
		c.mu.Unlock()
		return err
	}
	if c.otpCode == c.rejectedCode {
		err := c.fail(validation("Ese código ya fue rechazado. Ingresa otro código"))
		c.mu.Unlock()
		return err
	}
	rctx, finish, err := c.begin(ctx, ActionVerifyOTP)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	token, code := c.sessionToken, c.otpCode
	c.mu.Unlock()

	resp, err := c.api.VerifyOTP(rctx, token, code)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !finish() {
		return ErrDiscarded
	}
	if err != nil {
		fe := classify(err)
		if fe.Kind == Challenge {
			c.attempts++
			c.rejectedCode = code
		}
		return c.fail(fe)
	}
	confirmation := resp.Appointment
	c.confirmation = &confirmation
	if err := c.transition(StepSuccess); err != nil {
		return err
	}
	c.succeed()
	return nil
}

func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

func (c *Controller) Selection() Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.selection
	if s.StaffID != nil {
		id := *s.StaffID
		s.StaffID = &id
	}
	if s.Slot != nil {
		slot := *s.Slot
		s.Slot = &slot
	}
	return s
}

func (c *Controller) SessionToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionToken
}

func (c *Controller) Summary() *models.BookingSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.summary == nil {
		return nil
	}
	s := *c.summary
	return &s
}

func (c *Controller) Draft() ClientDraft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

func (c *Controller) ClientLookupDone() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientLookupDone
}

// ClientFound reports whether the looked-up document belongs to a registered client.
func (c *Controller) ClientFound() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientFound
}

func (c *Controller) OTPCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.otpCode
}

// Attempts counts codes rejected by the backend since the last SendOTP.
func (c *Controller) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// DebugOTP is the code echoed by a non-production backend, if any.
func (c *Controller) DebugOTP() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.debugOTP
}

func (c *Controller) Confirmation() *models.AppointmentConfirmation {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.confirmation == nil {
		return nil
	}
	conf := *c.confirmation
	return &conf
}

// Err is the message of the last failure, or "" after a successful action.
func (c *Controller) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastErr == nil {
		return ""
	}
	return c.lastErr.Message
}

func (c *Controller) LastError() *Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) Pending(a Action) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight[a]
}
