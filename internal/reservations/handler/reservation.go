package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"communa/internal/reservations/service"
	apperrors "communa/pkg/errors"
	httputil "communa/pkg/http"
	"communa/pkg/logger"
	"communa/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// Identity headers injected by the community gateway after
// authentication. The service trusts them as-is.
const (
	HeaderUserID      = "X-User-ID"
	HeaderCommunityID = "X-Community-ID"
	HeaderRole        = "X-Role"
)

type ReservationHandler struct {
	service service.ReservationService
	log     *logger.Logger
}

func NewReservationHandler(service service.ReservationService, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		service: service,
		log:     log,
	}
}

type approveRequest struct {
	CleaningStart *time.Time `json:"cleaning_start,omitempty"`
	CleaningEnd   *time.Time `json:"cleaning_end,omitempty"`
}

type rejectRequest struct {
	Reason string `json:"reason,omitempty"`
}

type completeRequest struct {
	DamagesFound bool `json:"damages_found"`
}

type availabilityResponse struct {
	Available bool `json:"available"`
}

func actorFromRequest(r *http.Request) (model.Actor, error) {
	actor := model.Actor{
		UserID:      r.Header.Get(HeaderUserID),
		CommunityID: r.Header.Get(HeaderCommunityID),
		Role:        r.Header.Get(HeaderRole),
	}

	if actor.UserID == "" || actor.CommunityID == "" || actor.Role == "" {
		return model.Actor{}, apperrors.Forbidden("Missing identity headers")
	}

	switch actor.Role {
	case model.RoleResident, model.RoleJanitorial, model.RoleAdmin:
	default:
		return model.Actor{}, apperrors.InvalidInput("Unknown role: " + actor.Role)
	}

	return actor, nil
}

func (h *ReservationHandler) writeError(w http.ResponseWriter, operation string, err error) {
	if writeErr := httputil.WriteError(w, apperrors.AsAppError(err)); writeErr != nil {
		h.log.Error("failed to write error response", "operation", operation, "error", writeErr)
	}
}

func (h *ReservationHandler) writeSuccess(w http.ResponseWriter, operation string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "operation", operation, "error", err)
	}
}

func (h *ReservationHandler) decode(w http.ResponseWriter, r *http.Request, operation string, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, operation, apperrors.InvalidInput("Invalid request body"))
		return false
	}
	return true
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := actorFromRequest(r)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	var reservation model.Reservation
	if !h.decode(w, r, "Create", &reservation) {
		return
	}

	if err := h.service.Create(r.Context(), actor, &reservation); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, reservation); err != nil {
		h.log.Error("failed to write created response", "operation", "Create", "error", err)
	}
}

func (h *ReservationHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := actorFromRequest(r)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	reservation, err := h.service.GetByID(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	h.writeSuccess(w, "GetByID", reservation)
}

func (h *ReservationHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := actorFromRequest(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	reservations, total, err := h.service.GetAll(r.Context(), actor, limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, reservations, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "operation", "GetAll", "error", err)
	}
}

func (h *ReservationHandler) Availability(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := actorFromRequest(r)
	if err != nil {
		h.writeError(w, "Availability", err)
		return
	}

	query := r.URL.Query()
	amenityID := query.Get("amenity_id")
	date := query.Get("date")
	if amenityID == "" || date == "" {
		h.writeError(w, "Availability", apperrors.InvalidInput("Both 'amenity_id' and 'date' query parameters are required"))
		return
	}

	start, err := time.Parse(time.RFC3339, query.Get("start"))
	if err != nil {
		h.writeError(w, "Availability", apperrors.InvalidInput("invalid start format, must be RFC3339"))
		return
	}
	end, err := time.Parse(time.RFC3339, query.Get("end"))
	if err != nil {
		h.writeError(w, "Availability", apperrors.InvalidInput("invalid end format, must be RFC3339"))
		return
	}

	busy, err := h.service.HasConflict(r.Context(), actor, amenityID, date, start, end)
	if err != nil {
		h.writeError(w, "Availability", err)
		return
	}

	h.writeSuccess(w, "Availability", availabilityResponse{Available: !busy})
}

func (h *ReservationHandler) Approve(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := actorFromRequest(r)
	if err != nil {
		h.writeError(w, "Approve", err)
		return
	}

	var req approveRequest
	if r.ContentLength > 0 && !h.decode(w, r, "Approve", &req) {
		return
	}

	var cleaning *service.CleaningInterval
	if req.CleaningStart != nil || req.CleaningEnd != nil {
		if req.CleaningStart == nil || req.CleaningEnd == nil {
			h.writeError(w, "Approve", apperrors.InvalidInput("cleaning_start and cleaning_end must be provided together"))
			return
		}
		cleaning = &service.CleaningInterval{Start: *req.CleaningStart, End: *req.CleaningEnd}
	}

	reservation, err := h.service.Approve(r.Context(), actor, ps.ByName("id"), cleaning)
	if err != nil {
		h.writeError(w, "Approve", err)
		return
	}

	h.writeSuccess(w, "Approve", reservation)
}

func (h *ReservationHandler) Reject(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := actorFromRequest(r)
	if err != nil {
		h.writeError(w, "Reject", err)
		return
	}

	var req rejectRequest
	if r.ContentLength > 0 && !h.decode(w, r, "Reject", &req) {
		return
	}

	reservation, err := h.service.Reject(r.Context(), actor, ps.ByName("id"), req.Reason)
	if err != nil {
		h.writeError(w, "Reject", err)
		return
	}

	h.writeSuccess(w, "Reject", reservation)
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := actorFromRequest(r)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	outcome, err := h.service.Cancel(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	h.writeSuccess(w, "Cancel", outcome)
}

func (h *ReservationHandler) Complete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := actorFromRequest(r)
	if err != nil {
		h.writeError(w, "Complete", err)
		return
	}

	var req completeRequest
	if r.ContentLength > 0 && !h.decode(w, r, "Complete", &req) {
		return
	}

	reservation, err := h.service.Complete(r.Context(), actor, ps.ByName("id"), req.DamagesFound)
	if err != nil {
		h.writeError(w, "Complete", err)
		return
	}

	h.writeSuccess(w, "Complete", reservation)
}

func (h *ReservationHandler) AssessDamage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := actorFromRequest(r)
	if err != nil {
		h.writeError(w, "AssessDamage", err)
		return
	}

	var assessment service.DamageAssessment
	if !h.decode(w, r, "AssessDamage", &assessment) {
		return
	}

	reservation, err := h.service.AssessDamage(r.Context(), actor, ps.ByName("id"), assessment)
	if err != nil {
		h.writeError(w, "AssessDamage", err)
		return
	}

	h.writeSuccess(w, "AssessDamage", reservation)
}

func (h *ReservationHandler) ReviewDamage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := actorFromRequest(r)
	if err != nil {
		h.writeError(w, "ReviewDamage", err)
		return
	}

	var review service.DamageReview
	if !h.decode(w, r, "ReviewDamage", &review) {
		return
	}

	reservation, err := h.service.ReviewDamage(r.Context(), actor, ps.ByName("id"), review)
	if err != nil {
		h.writeError(w, "ReviewDamage", err)
		return
	}

	h.writeSuccess(w, "ReviewDamage", reservation)
}

func (h *ReservationHandler) ProposeModification(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := actorFromRequest(r)
	if err != nil {
		h.writeError(w, "ProposeModification", err)
		return
	}

	var proposal service.ModificationProposal
	if !h.decode(w, r, "ProposeModification", &proposal) {
		return
	}

	reservation, err := h.service.ProposeModification(r.Context(), actor, ps.ByName("id"), proposal)
	if err != nil {
		h.writeError(w, "ProposeModification", err)
		return
	}

	h.writeSuccess(w, "ProposeModification", reservation)
}

func (h *ReservationHandler) AcceptModification(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := actorFromRequest(r)
	if err != nil {
		h.writeError(w, "AcceptModification", err)
		return
	}

	outcome, err := h.service.AcceptModification(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "AcceptModification", err)
		return
	}

	h.writeSuccess(w, "AcceptModification", outcome)
}

func (h *ReservationHandler) RejectModification(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := actorFromRequest(r)
	if err != nil {
		h.writeError(w, "RejectModification", err)
		return
	}

	reservation, err := h.service.RejectModification(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "RejectModification", err)
		return
	}

	h.writeSuccess(w, "RejectModification", reservation)
}

func (h *ReservationHandler) WithdrawModification(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := actorFromRequest(r)
	if err != nil {
		h.writeError(w, "WithdrawModification", err)
		return
	}

	reservation, err := h.service.WithdrawModification(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "WithdrawModification", err)
		return
	}

	h.writeSuccess(w, "WithdrawModification", reservation)
}

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/reservations", h.Create)
	router.GET("/api/v1/reservations", h.GetAll)
	router.GET("/api/v1/reservations/:id", h.GetByID)
	router.GET("/api/v1/availability", h.Availability)

	router.POST("/api/v1/reservations/:id/approve", h.Approve)
	router.POST("/api/v1/reservations/:id/reject", h.Reject)
	router.POST("/api/v1/reservations/:id/cancel", h.Cancel)
	router.POST("/api/v1/reservations/:id/complete", h.Complete)

	router.POST("/api/v1/reservations/:id/damage", h.AssessDamage)
	router.POST("/api/v1/reservations/:id/damage/review", h.ReviewDamage)

	router.POST("/api/v1/reservations/:id/modification", h.ProposeModification)
	router.POST("/api/v1/reservations/:id/modification/accept", h.AcceptModification)
	router.POST("/api/v1/reservations/:id/modification/reject", h.RejectModification)
	router.DELETE("/api/v1/reservations/:id/modification", h.WithdrawModification)
}
