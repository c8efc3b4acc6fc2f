package order

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/metimat/metimat/internal/domain/location"
	"github.com/metimat/metimat/internal/domain/medication"
	"github.com/metimat/metimat/internal/domain/prescription"
	"github.com/metimat/metimat/internal/platform/auth"
	"github.com/metimat/metimat/internal/platform/notification"
)

// TxRunner executes fn atomically. Production wiring uses db.RunInTx on the
// connection pool; tests substitute a pass-through.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// tokenMintAttempts bounds re-minting when an access token collides with the
// unique constraint. With 256-bit tokens the retry path is effectively dead
// code, but the loop keeps a collision from surfacing as a 500.
const tokenMintAttempts = 3

type Deps struct {
	Orders        Repository
	Medications   medication.Repository
	Prescriptions prescription.Repository
	Locations     location.Repository
	RunTx         TxRunner
	Emails        notification.EmailSender
	Templates     *notification.TemplateEngine
	Logger        zerolog.Logger

	ProjectName     string
	PrescriptionFee float64
}

type Service struct {
	deps Deps
}

func NewService(deps Deps) *Service {
	return &Service{deps: deps}
}

// CreateRequest is the payload for placing an order. LocationID may be
// omitted; the order is then created without a pickup site and one is
// assigned later. MedicationIDs may repeat; duplicates are coalesced into a
// single line item with the summed quantity.
type CreateRequest struct {
	LocationID      *uuid.UUID  `json:"location_id"`
	MedicationIDs   []uuid.UUID `json:"medication_ids"`
	PrescriptionIDs []uuid.UUID `json:"prescription_ids"`
}

// Create places an order. Catalog checks, prescription consumption, token
// minting and the inserts all happen in one transaction; the confirmation
// email goes out only after commit.
func (s *Service) Create(ctx context.Context, user auth.Identity, req CreateRequest) (*Order, error) {
	if len(req.MedicationIDs) == 0 && len(req.PrescriptionIDs) == 0 {
		return nil, ErrEmptyOrder
	}

	var loc *location.Location
	if req.LocationID != nil {
		l, err := s.deps.Locations.GetByID(ctx, *req.LocationID)
		if err != nil || !l.IsActive {
			return nil, ErrLocationNotFound
		}
		loc = l
	}

	var created *Order
	var err error
	for attempt := 0; attempt < tokenMintAttempts; attempt++ {
		created = nil
		err = s.deps.RunTx(ctx, func(txCtx context.Context) error {
			o, err := s.createInTx(txCtx, user, req)
			if err != nil {
				return err
			}
			created = o
			return nil
		})
		if err == nil {
			break
		}
		if !isUniqueViolation(err) {
			return nil, err
		}
	}
	if err != nil {
		return nil, err
	}

	outbox := notification.NewOutbox()
	s.enqueueOrderConfirmation(outbox, created, loc)
	outbox.Dispatch(ctx, s.deps.Logger)

	return created, nil
}

func (s *Service) createInTx(ctx context.Context, user auth.Identity, req CreateRequest) (*Order, error) {
	items, total, err := s.buildLineItems(ctx, req.MedicationIDs)
	if err != nil {
		return nil, err
	}

	prescriptions, err := s.claimPrescriptions(ctx, user, req.PrescriptionIDs)
	if err != nil {
		return nil, err
	}
	total += s.deps.PrescriptionFee * float64(len(prescriptions))

	token, err := NewAccessToken()
	if err != nil {
		return nil, err
	}
	code, err := NewPickupCode()
	if err != nil {
		return nil, err
	}

	o := &Order{
		ID:          uuid.New(),
		UserID:      user.UserID,
		UserEmail:   user.Email,
		LocationID:  req.LocationID,
		Status:      StatusPending,
		AccessToken: token,
		PickupCode:  code,
		TotalAmount: total,
		Items:       items,
	}
	if err := s.deps.Orders.Create(ctx, o); err != nil {
		return nil, err
	}

	for _, p := range prescriptions {
		if err := s.deps.Prescriptions.LinkToOrder(ctx, p.ID, o.ID); err != nil {
			return nil, err
		}
		p.FHIRData.MarkConsumed()
		if err := s.deps.Prescriptions.UpdateFHIR(ctx, p); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// buildLineItems coalesces repeated medication ids, verifies every medication
// exists, is active and is purchasable without a prescription, and prices the
// lines at the current catalog price.
func (s *Service) buildLineItems(ctx context.Context, medicationIDs []uuid.UUID) ([]*LineItem, float64, error) {
	if len(medicationIDs) == 0 {
		return nil, 0, nil
	}

	quantities := make(map[uuid.UUID]int)
	var ordered []uuid.UUID
	for _, id := range medicationIDs {
		if quantities[id] == 0 {
			ordered = append(ordered, id)
		}
		quantities[id]++
	}

	meds, err := s.deps.Medications.GetByIDs(ctx, ordered)
	if err != nil {
		return nil, 0, err
	}
	byID := make(map[uuid.UUID]*medication.Medication, len(meds))
	for _, m := range meds {
		if m.IsActive {
			byID[m.ID] = m
		}
	}

	var missing []uuid.UUID
	var needRx []string
	for _, id := range ordered {
		m, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		if m.PrescriptionRequired {
			needRx = append(needRx, m.Name)
		}
	}
	if len(missing) > 0 {
		return nil, 0, &MedicationNotFoundError{IDs: missing}
	}
	if len(needRx) > 0 {
		return nil, 0, &PrescriptionRequiredError{Medications: needRx}
	}

	var items []*LineItem
	var total float64
	for _, id := range ordered {
		m := byID[id]
		qty := quantities[id]
		items = append(items, &LineItem{
			MedicationID:   m.ID,
			MedicationName: m.Name,
			Quantity:       qty,
			UnitPrice:      m.Price,
		})
		total += float64(qty) * m.Price
	}
	return items, total, nil
}

// claimPrescriptions verifies ownership and freshness of every referenced
// prescription. Linking happens later under the order_id IS NULL guard, so a
// concurrent order racing for the same prescription loses cleanly.
func (s *Service) claimPrescriptions(ctx context.Context, user auth.Identity, ids []uuid.UUID) ([]*prescription.Prescription, error) {
	seen := make(map[uuid.UUID]bool)
	var out []*prescription.Prescription
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		p, err := s.deps.Prescriptions.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if p.UserID != user.UserID && !user.IsSuperuser {
			return nil, ErrForbidden
		}
		if p.OrderID != nil {
			return nil, prescription.ErrAlreadyLinked
		}
		if p.FHIRData.Consumed() {
			return nil, prescription.ErrConsumed
		}
		out = append(out, p)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// List returns the caller's orders, or every order for superusers.
func (s *Service) List(ctx context.Context, user auth.Identity, limit, offset int) ([]*Order, int, error) {
	if user.IsSuperuser {
		return s.deps.Orders.ListAll(ctx, limit, offset)
	}
	return s.deps.Orders.ListByUser(ctx, user.UserID, limit, offset)
}

// Get returns an order the caller owns or may administer. A missing order is
// reported before ownership is considered, so 404 and permission failures
// stay distinguishable.
func (s *Service) Get(ctx context.Context, user auth.Identity, id uuid.UUID) (*Order, error) {
	o, err := s.deps.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != user.UserID && !user.IsSuperuser {
		return nil, ErrForbidden
	}
	return o, nil
}

// UpdateStatus moves an order along its lifecycle. The caller must own the
// order or be a superuser. Writing the current status again is a no-op.
// Entering "available for pickup" sends the pickup-ready email; the
// transition graph guarantees that happens at most once.
func (s *Service) UpdateStatus(ctx context.Context, user auth.Identity, id uuid.UUID, next Status) (*Order, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("unknown order status %q", next)
	}
	o, err := s.deps.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != user.UserID && !user.IsSuperuser {
		return nil, ErrForbidden
	}
	if o.Status == next {
		// Same-value write refreshes updated_at but fires nothing.
		if err := s.deps.Orders.UpdateStatus(ctx, id, next); err != nil {
			return nil, err
		}
		return o, nil
	}
	if !CanTransition(o.Status, next) {
		return nil, &InvalidTransitionError{From: o.Status, To: next}
	}
	if err := s.deps.Orders.UpdateStatus(ctx, id, next); err != nil {
		return nil, err
	}
	o.Status = next

	if next == StatusAvailableForPickup {
		outbox := notification.NewOutbox()
		s.enqueuePickupReady(ctx, outbox, o)
		outbox.Dispatch(ctx, s.deps.Logger)
	}
	return o, nil
}

// Delete removes an order. Attached prescriptions are detached so the patient
// keeps them in their list, but their consumed status is not reset.
func (s *Service) Delete(ctx context.Context, user auth.Identity, id uuid.UUID) error {
	o, err := s.deps.Orders.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if o.UserID != user.UserID && !user.IsSuperuser {
		return ErrForbidden
	}
	return s.deps.RunTx(ctx, func(txCtx context.Context) error {
		if err := s.deps.Prescriptions.DetachFromOrder(txCtx, id); err != nil {
			return err
		}
		return s.deps.Orders.Delete(txCtx, id)
	})
}

// ValidationResult is the machine-facing answer to a QR scan. Invalid
// outcomes share one message so the endpoint leaks nothing about whether a
// token exists, is not ready yet, or was already redeemed.
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
	Order   *Order `json:"order,omitempty"`
}

const invalidTokenMessage = "Order not found or invalid token"

// ValidateQR checks a scanned access token for a vending machine. The machine
// must authenticate with the validation key of the order's location; a wrong
// key is a hard authorization failure, never a soft invalid.
func (s *Service) ValidateQR(ctx context.Context, machineToken, accessToken string) (*ValidationResult, error) {
	o, err := s.deps.Orders.GetByAccessToken(ctx, accessToken)
	if errors.Is(err, ErrNotFound) {
		return &ValidationResult{Valid: false, Message: invalidTokenMessage}, nil
	}
	if err != nil {
		return nil, err
	}
	// An order that is not ready answers exactly like an unknown token, so
	// the machine key is only ever checked against a dispensable order.
	if o.Status != StatusAvailableForPickup {
		return &ValidationResult{Valid: false, Message: invalidTokenMessage}, nil
	}

	if err := s.authorizeMachine(ctx, o.LocationID, machineToken); err != nil {
		return nil, err
	}
	return &ValidationResult{Valid: true, Order: o}, nil
}

// Complete marks an order as picked up. Completing an already completed order
// is accepted without effect, so a machine retrying after a network timeout
// cannot fail its customer; the confirmation email goes out only on the first
// transition.
func (s *Service) Complete(ctx context.Context, machineToken string, id uuid.UUID) (*Order, error) {
	o, err := s.deps.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeMachine(ctx, o.LocationID, machineToken); err != nil {
		return nil, err
	}

	if o.Status == StatusCompleted {
		return o, nil
	}
	if !CanTransition(o.Status, StatusCompleted) {
		return nil, &InvalidTransitionError{From: o.Status, To: StatusCompleted}
	}
	if err := s.deps.Orders.UpdateStatus(ctx, id, StatusCompleted); err != nil {
		return nil, err
	}
	o.Status = StatusCompleted

	outbox := notification.NewOutbox()
	s.enqueuePickupConfirmation(outbox, o)
	outbox.Dispatch(ctx, s.deps.Logger)

	return o, nil
}

// authorizeMachine fails closed: an order whose location was deleted, a
// location without a key and a key mismatch all look the same to the machine.
func (s *Service) authorizeMachine(ctx context.Context, locationID *uuid.UUID, machineToken string) error {
	if locationID == nil {
		return ErrMachineUnauthorized
	}
	loc, err := s.deps.Locations.GetByID(ctx, *locationID)
	if err != nil {
		return ErrMachineUnauthorized
	}
	if loc.ValidationKey == nil || *loc.ValidationKey == "" || machineToken == "" {
		return ErrMachineUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(*loc.ValidationKey), []byte(machineToken)) != 1 {
		return ErrMachineUnauthorized
	}
	return nil
}

func (s *Service) enqueueOrderConfirmation(outbox *notification.Outbox, o *Order, loc *location.Location) {
	if o.UserEmail == "" {
		return
	}
	locationName := ""
	if loc != nil {
		locationName = loc.Name
	}
	data := map[string]string{
		"project":  s.deps.ProjectName,
		"order_id": o.ID.String(),
		"items":    formatItems(o),
		"total":    fmt.Sprintf("%.2f", o.TotalAmount),
		"location": locationName,
	}
	outbox.Enqueue(func(ctx context.Context) error {
		subject, body, err := s.deps.Templates.Render(notification.TemplateOrderConfirmation, data)
		if err != nil {
			return err
		}
		return s.deps.Emails.SendEmail(ctx, o.UserEmail, subject, body)
	})
}

func (s *Service) enqueuePickupReady(ctx context.Context, outbox *notification.Outbox, o *Order) {
	if o.UserEmail == "" {
		return
	}
	locationName := ""
	if o.LocationID != nil {
		if loc, err := s.deps.Locations.GetByID(ctx, *o.LocationID); err == nil {
			locationName = loc.Name
		}
	}
	data := map[string]string{
		"project":     s.deps.ProjectName,
		"order_id":    o.ID.String(),
		"location":    locationName,
		"pickup_code": o.AccessToken,
		"short_code":  o.PickupCode,
	}
	outbox.Enqueue(func(ctx context.Context) error {
		subject, body, err := s.deps.Templates.Render(notification.TemplatePickupReady, data)
		if err != nil {
			return err
		}
		return s.deps.Emails.SendEmail(ctx, o.UserEmail, subject, body)
	})
}

func (s *Service) enqueuePickupConfirmation(outbox *notification.Outbox, o *Order) {
	if o.UserEmail == "" {
		return
	}
	data := map[string]string{
		"project":  s.deps.ProjectName,
		"order_id": o.ID.String(),
		"items":    formatItems(o),
	}
	outbox.Enqueue(func(ctx context.Context) error {
		subject, body, err := s.deps.Templates.Render(notification.TemplatePickupConfirmation, data)
		if err != nil {
			return err
		}
		return s.deps.Emails.SendEmail(ctx, o.UserEmail, subject, body)
	})
}

func formatItems(o *Order) string {
	var b strings.Builder
	for _, item := range o.Items {
		fmt.Fprintf(&b, "%dx %s - %.2f €\n", item.Quantity, item.MedicationName, item.UnitPrice)
	}
	return b.String()
}
