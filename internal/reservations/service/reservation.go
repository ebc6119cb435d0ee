package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	reservationserrors "communa/internal/reservations/errors"
	"communa/internal/reservations/notify"
	"communa/internal/reservations/repository"
	"communa/internal/reservations/validator"
	"communa/pkg/config"
	apperrors "communa/pkg/errors"
	"communa/pkg/model"
	"communa/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

type ReservationService interface {
	Create(ctx context.Context, actor model.Actor, reservation *model.Reservation) error
	GetByID(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error)
	GetAll(ctx context.Context, actor model.Actor, limit int, offset int64) ([]*model.Reservation, int64, error)
	HasConflict(ctx context.Context, actor model.Actor, amenityID, date string, start, end time.Time) (bool, error)

	Approve(ctx context.Context, actor model.Actor, id string, cleaning *CleaningInterval) (*model.Reservation, error)
	Reject(ctx context.Context, actor model.Actor, id string, reason string) (*model.Reservation, error)
	Cancel(ctx context.Context, actor model.Actor, id string) (*CancellationOutcome, error)
	Complete(ctx context.Context, actor model.Actor, id string, damagesFound bool) (*model.Reservation, error)

	AssessDamage(ctx context.Context, actor model.Actor, id string, assessment DamageAssessment) (*model.Reservation, error)
	ReviewDamage(ctx context.Context, actor model.Actor, id string, review DamageReview) (*model.Reservation, error)

	ProposeModification(ctx context.Context, actor model.Actor, id string, proposal ModificationProposal) (*model.Reservation, error)
	AcceptModification(ctx context.Context, actor model.Actor, id string) (*ModificationOutcome, error)
	RejectModification(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error)
	WithdrawModification(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error)
}

// CleaningInterval is the janitorial cleaning window attached on approval.
type CleaningInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// CancellationOutcome reports the financial result of a cancellation.
type CancellationOutcome struct {
	Reservation *model.Reservation `json:"reservation"`
	Fee         float64            `json:"fee"`
	Refund      float64            `json:"refund"`
	Reason      string             `json:"reason"`
}

// DamageAssessment is a staff-reported damage charge.
type DamageAssessment struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Notes       string  `json:"notes,omitempty"`
}

// Damage review actions.
const (
	ReviewApprove = "approve"
	ReviewAdjust  = "adjust"
	ReviewDeny    = "deny"
)

// DamageReview is an admin verdict on a pending damage assessment.
// Amount is required for adjust and ignored otherwise.
type DamageReview struct {
	Action string   `json:"action"`
	Amount *float64 `json:"amount,omitempty"`
	Notes  string   `json:"notes,omitempty"`
}

// ModificationProposal is a staff-proposed replacement slot.
type ModificationProposal struct {
	Date       string    `json:"date"`
	PartyStart time.Time `json:"party_start"`
	PartyEnd   time.Time `json:"party_end"`
	Reason     string    `json:"reason,omitempty"`
}

// ModificationOutcome reports the result of accepting a proposed change.
type ModificationOutcome struct {
	Reservation *model.Reservation `json:"reservation"`
	Fee         float64            `json:"fee"`
	Reason      string             `json:"reason"`
}

type reservationService struct {
	repo        repository.ReservationRepository
	lockRepo    repository.SlotLockRepository
	amenityRepo repository.AmenityRepository
	validator   *validator.ReservationValidator
	dispatcher  notify.Dispatcher
	cfg         *config.Config
}

func NewReservationService(
	repo repository.ReservationRepository,
	lockRepo repository.SlotLockRepository,
	amenityRepo repository.AmenityRepository,
	validator *validator.ReservationValidator,
	dispatcher notify.Dispatcher,
	cfg *config.Config,
) ReservationService {
	return &reservationService{
		repo:        repo,
		lockRepo:    lockRepo,
		amenityRepo: amenityRepo,
		validator:   validator,
		dispatcher:  dispatcher,
		cfg:         cfg,
	}
}

func (s *reservationService) Create(ctx context.Context, actor model.Actor, reservation *model.Reservation) error {
	reservation.CommunityID = actor.CommunityID
	if reservation.UserID == "" {
		reservation.UserID = actor.UserID
	}
	if !actor.Staff() && reservation.UserID != actor.UserID {
		return apperrors.Forbidden("Residents can only create reservations for themselves")
	}

	amenity, err := s.loadAmenity(ctx, actor.CommunityID, reservation.AmenityID)
	if err != nil {
		return err
	}

	s.applyDefaults(reservation, amenity)
	s.sanitize(reservation)
	if err := s.validate(reservation); err != nil {
		return err
	}
	if reservation.GuestCount > amenity.Capacity {
		return apperrors.Validation("Guest count exceeds amenity capacity", map[string]any{
			"guest_count": reservation.GuestCount,
			"capacity":    amenity.Capacity,
		})
	}

	// Acquire advisory lock to prevent race conditions
	lockID, err := s.acquireSlotLock(ctx, reservation.AmenityID, reservation.Date, reservation.SetupStart)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := s.releaseSlotLock(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release slot lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifyAvailability(sessCtx, reservation, ""); err != nil {
			return err
		}
		if err := s.repo.Create(sessCtx, reservation); err != nil {
			return apperrors.Internal("Failed to create reservation", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create reservation", "error", err)
		return err
	}

	s.cfg.Log.Info("Reservation created successfully",
		"id", reservation.ID,
		"community_id", reservation.CommunityID,
		"amenity_id", reservation.AmenityID,
		"status", reservation.Status,
	)

	s.dispatchCreationEvents(ctx, reservation, amenity)
	return nil
}

func (s *reservationService) GetByID(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error) {
	reservation, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	return redactPrivate(reservation, actor), nil
}

func (s *reservationService) GetAll(ctx context.Context, actor model.Actor, limit int, offset int64) ([]*model.Reservation, int64, error) {
	var count int64
	var reservations []*model.Reservation
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByCommunity(ctx, actor.CommunityID)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count reservations", "community_id", actor.CommunityID, "error", errCount)
			errCount = apperrors.Internal("Failed to count reservations", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		reservations, errFind = s.repo.FindByCommunity(ctx, actor.CommunityID, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list reservations", "community_id", actor.CommunityID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve reservations", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	for i, r := range reservations {
		reservations[i] = redactPrivate(r, actor)
	}

	return reservations, count, nil
}

// HasConflict reports whether any active reservation occupies part of
// [start, end) on the amenity. Used by the availability endpoint; the
// authoritative check happens again inside the create transaction.
func (s *reservationService) HasConflict(ctx context.Context, actor model.Actor, amenityID, date string, start, end time.Time) (bool, error) {
	if _, err := s.loadAmenity(ctx, actor.CommunityID, amenityID); err != nil {
		return false, err
	}
	if !end.After(start) {
		return false, apperrors.InvalidInput("end must be after start")
	}

	overlapping, err := s.repo.FindActiveOverlapping(ctx, actor.CommunityID, amenityID, date, start, end, "")
	if err != nil {
		return false, apperrors.Internal("Failed to check availability", err)
	}

	return len(overlapping) > 0, nil
}

// --- Helpers ---

func (s *reservationService) load(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Reservation", id)
		}
		if errors.Is(err, reservationserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid reservation ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve reservation", err)
	}

	// Cross-community lookups are indistinguishable from missing documents.
	if reservation.CommunityID != actor.CommunityID {
		return nil, apperrors.NotFoundWithID("Reservation", id)
	}

	return reservation, nil
}

func (s *reservationService) loadAmenity(ctx context.Context, communityID, amenityID string) (*model.Amenity, error) {
	if amenityID == "" {
		return nil, apperrors.InvalidInput("Amenity ID cannot be empty")
	}

	amenity, err := s.amenityRepo.FindByID(ctx, communityID, amenityID)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrAmenityNotFound) {
			return nil, apperrors.NotFoundWithID("Amenity", amenityID)
		}
		if errors.Is(err, reservationserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid amenity ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve amenity", err)
	}

	return amenity, nil
}

// liveAmenity fetches the amenity for policy reads on an existing
// reservation. A deleted amenity degrades to defaults (nil, nil); an
// infrastructure failure must surface instead, or a transient outage
// would bill worst-case fees on an irreversible transition.
func (s *reservationService) liveAmenity(ctx context.Context, communityID, amenityID string) (*model.Amenity, error) {
	amenity, err := s.amenityRepo.FindByID(ctx, communityID, amenityID)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrAmenityNotFound) {
			return nil, nil
		}
		return nil, apperrors.Internal("Failed to retrieve amenity", err)
	}
	return amenity, nil
}

// applyDefaults snapshots the amenity's fees onto the reservation and
// derives the initial status from the amenity's approval policy.
func (s *reservationService) applyDefaults(r *model.Reservation, amenity *model.Amenity) {
	r.TotalFee = amenity.Fee
	r.TotalDeposit = amenity.Deposit
	r.Status = initialStatus(amenity)
	r.Damage = nil
	r.Modification = nil
	r.CleaningStart = nil
	r.CleaningEnd = nil
}

// initialStatus places the reservation at the first approval stage the
// amenity actually requires.
func initialStatus(amenity *model.Amenity) string {
	switch {
	case amenity.JanitorialRequired:
		return model.StatusNew
	case amenity.ApprovalRequired:
		return model.StatusJanitorialApproved
	default:
		return model.StatusFullyApproved
	}
}

func (s *reservationService) sanitize(r *model.Reservation) {
	r.EventName = sanitizer.NormalizeEventName(r.EventName)
	r.SpecialRequirements = sanitizer.NormalizeFreeText(r.SpecialRequirements)
	r.Notes = sanitizer.NormalizeFreeText(r.Notes)
}

func (s *reservationService) validate(reservation *model.Reservation) error {
	if err := s.validator.Validate(reservation); err != nil {
		s.cfg.Log.Warn("Reservation validation failed", "error", err)
		return apperrors.Validation("Reservation validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

// verifyAvailability re-checks slot occupancy inside the transaction so
// the advisory lock's TTL expiry cannot let two writers through.
func (s *reservationService) verifyAvailability(ctx context.Context, reservation *model.Reservation, excludeID string) error {
	overlapping, err := s.repo.FindActiveOverlapping(
		ctx,
		reservation.CommunityID,
		reservation.AmenityID,
		reservation.Date,
		reservation.SetupStart,
		reservation.PartyEnd,
		excludeID,
	)
	if err != nil {
		return apperrors.Internal("Failed to check existing reservations", err)
	}

	if len(overlapping) > 0 {
		first := overlapping[0]
		return apperrors.Conflict(fmt.Sprintf(
			"Requested slot overlaps an existing reservation (%s - %s)",
			first.SetupStart.Format(time.RFC3339),
			first.PartyEnd.Format(time.RFC3339),
		))
	}
	return nil
}

// acquireSlotLock creates an advisory lock to prevent concurrent writes
// for the same slot. Returns the lock ID if successful, or a conflict
// error if the lock already exists.
func (s *reservationService) acquireSlotLock(ctx context.Context, amenityID, date string, start time.Time) (string, error) {
	lockID := fmt.Sprintf("slot_lock_%s_%s_%d", amenityID, date, start.Unix())

	lock := &model.SlotLock{
		ID:        lockID,
		ExpiresAt: time.Now().Add(s.cfg.SlotLockTTL),
	}

	_, err := s.lockRepo.Create(ctx, lock)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrSlotConflict) {
			return "", apperrors.Conflict("This slot is currently being reserved by another request. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire slot lock", err)
	}

	return lockID, nil
}

// releaseSlotLock removes the advisory lock
func (s *reservationService) releaseSlotLock(ctx context.Context, lockID string) error {
	return s.lockRepo.Delete(ctx, lockID)
}

func (s *reservationService) dispatchCreationEvents(ctx context.Context, r *model.Reservation, amenity *model.Amenity) {
	created := notify.BaseEvent(notify.EventReservationCreated, notify.AudienceResident, r)
	created.AmenityName = amenity.Name
	s.dispatcher.Dispatch(ctx, created)

	switch r.Status {
	case model.StatusNew:
		staff := notify.BaseEvent(notify.EventNewReservationRequiresApproval, notify.AudienceJanitorial, r)
		staff.AmenityName = amenity.Name
		s.dispatcher.Dispatch(ctx, staff)

	case model.StatusJanitorialApproved:
		admin := notify.BaseEvent(notify.EventReservationPendingAdminApproval, notify.AudienceAdmin, r)
		admin.AmenityName = amenity.Name
		s.dispatcher.Dispatch(ctx, admin)

	case model.StatusFullyApproved:
		approved := notify.BaseEvent(notify.EventReservationApproved, notify.AudienceResident, r)
		approved.AmenityName = amenity.Name
		s.dispatcher.Dispatch(ctx, approved)
	}
}

// redactPrivate hides the details of private reservations from other
// residents. The slot itself stays visible so the calendar shows it as
// occupied.
func redactPrivate(r *model.Reservation, actor model.Actor) *model.Reservation {
	if !r.Private || actor.Staff() || actor.UserID == r.UserID {
		return r
	}

	redacted := *r
	redacted.EventName = "Private event"
	redacted.SpecialRequirements = ""
	redacted.Notes = ""
	redacted.Damage = nil
	redacted.Modification = nil
	return &redacted
}

// casError maps a lost compare-and-set race to an invalid transition so
// the caller sees the same 409 a stale client would get.
func casError(err error, action string) error {
	if errors.Is(err, reservationserrors.ErrStatusChanged) {
		return apperrors.InvalidTransition(fmt.Sprintf("Reservation changed while processing %s, please retry", action))
	}
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.Internal(fmt.Sprintf("Failed to %s reservation", action), err)
}

// appendNote adds an audit line to the reservation's notes.
func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}
