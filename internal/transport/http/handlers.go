package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"carebook/scheduler/internal/domain"
	"carebook/scheduler/internal/service/scheduling"
)

type bookingRequest struct {
	PractitionerID string           `json:"practitioner_id"`
	PatientID      string           `json:"patient_id"`
	Date           domain.Date      `json:"date"`
	StartTime      domain.TimeOfDay `json:"start_time"`
	EndTime        domain.TimeOfDay `json:"end_time"`
}

type rescheduleRequest struct {
	Date      domain.Date      `json:"date"`
	StartTime domain.TimeOfDay `json:"start_time"`
	EndTime   domain.TimeOfDay `json:"end_time"`
	Reason    string           `json:"reason"`
}

type transitionRequest struct {
	Reason string `json:"reason"`
}

type weeklyRuleRequest struct {
	DayOfWeek domain.Weekday   `json:"day_of_week"`
	StartTime domain.TimeOfDay `json:"start_time"`
	EndTime   domain.TimeOfDay `json:"end_time"`
	Active    *bool            `json:"active"`
}

type blackoutRequest struct {
	Date      domain.Date       `json:"date"`
	StartTime *domain.TimeOfDay `json:"start_time"`
	EndTime   *domain.TimeOfDay `json:"end_time"`
	Reason    string            `json:"reason"`
}

type settingsRequest struct {
	SlotDurationMinutes *int    `json:"slot_duration_minutes"`
	BufferMinutes       *int    `json:"buffer_minutes"`
	Timezone            *string `json:"timezone"`
}

// dateRange reads ?from=&to=; to defaults to from when optionalTo is set.
func dateRange(c *gin.Context, optionalTo bool) (domain.DateRange, bool) {
	from, err := domain.ParseDate(c.Query("from"))
	if err != nil {
		badRequest(c, "from must be a YYYY-MM-DD date")
		return domain.DateRange{}, false
	}
	rawTo := c.Query("to")
	if rawTo == "" && optionalTo {
		return domain.SingleDay(from), true
	}
	to, err := domain.ParseDate(rawTo)
	if err != nil {
		badRequest(c, "to must be a YYYY-MM-DD date")
		return domain.DateRange{}, false
	}
	return domain.DateRange{From: from, To: to}, true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, name+" must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (h *Handler) listSlots(c *gin.Context) {
	practitionerID := c.Param("id")
	dates, ok := dateRange(c, true)
	if !ok {
		return
	}

	days, err := h.svc.ListSlots(c.Request.Context(), practitionerID, dates)
	if err != nil {
		h.writeError(c, "slots list failed", err, slog.String("practitioner_id", practitionerID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"practitioner_id": practitionerID, "days": days})
}

func (h *Handler) getCalendar(c *gin.Context) {
	practitionerID := c.Param("id")
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		badRequest(c, "year must be an integer")
		return
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil {
		badRequest(c, "month must be an integer")
		return
	}

	cal, err := h.svc.GetCalendar(c.Request.Context(), practitionerID, year, month)
	if err != nil {
		h.writeError(c, "calendar build failed", err, slog.String("practitioner_id", practitionerID))
		return
	}
	c.JSON(http.StatusOK, cal)
}

func (h *Handler) listBookings(c *gin.Context) {
	practitionerID := c.Param("id")
	dates, ok := dateRange(c, true)
	if !ok {
		return
	}

	bookings, err := h.svc.ListBookings(c.Request.Context(), practitionerID, dates)
	if err != nil {
		h.writeError(c, "bookings list failed", err, slog.String("practitioner_id", practitionerID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

func (h *Handler) getSettings(c *gin.Context) {
	practitionerID := c.Param("id")
	settings, err := h.svc.GetSettings(c.Request.Context(), practitionerID)
	if err != nil {
		h.writeError(c, "settings get failed", err, slog.String("practitioner_id", practitionerID))
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *Handler) updateSettings(c *gin.Context) {
	practitionerID := c.Param("id")
	var req settingsRequest
	if !bindJSON(c, &req) {
		return
	}

	settings, err := h.svc.UpdateSettings(c.Request.Context(), scheduling.SettingsInput{
		PractitionerID:      practitionerID,
		SlotDurationMinutes: req.SlotDurationMinutes,
		BufferMinutes:       req.BufferMinutes,
		Timezone:            req.Timezone,
	})
	if err != nil {
		h.writeError(c, "settings update failed", err, slog.String("practitioner_id", practitionerID))
		return
	}
	h.log.Info("settings updated", slog.String("practitioner_id", practitionerID))
	c.JSON(http.StatusOK, settings)
}

func (h *Handler) listWeeklyRules(c *gin.Context) {
	practitionerID := c.Param("id")
	rules, err := h.svc.ListWeeklyRules(c.Request.Context(), practitionerID)
	if err != nil {
		h.writeError(c, "weekly rules list failed", err, slog.String("practitioner_id", practitionerID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

func (r weeklyRuleRequest) input(practitionerID string) scheduling.WeeklyRuleInput {
	return scheduling.WeeklyRuleInput{
		PractitionerID: practitionerID,
		DayOfWeek:      r.DayOfWeek,
		Window:         domain.TimeWindow{Start: r.StartTime, End: r.EndTime},
		Active:         r.Active,
	}
}

func (h *Handler) createWeeklyRule(c *gin.Context) {
	practitionerID := c.Param("id")
	var req weeklyRuleRequest
	if !bindJSON(c, &req) {
		return
	}

	rule, err := h.svc.CreateWeeklyRule(c.Request.Context(), req.input(practitionerID))
	if err != nil {
		h.writeError(c, "weekly rule create failed", err, slog.String("practitioner_id", practitionerID))
		return
	}
	h.log.Info("weekly rule created", slog.String("practitioner_id", practitionerID), slog.String("rule_id", rule.ID.String()))
	c.JSON(http.StatusCreated, rule)
}

func (h *Handler) updateWeeklyRule(c *gin.Context) {
	practitionerID := c.Param("id")
	ruleID, ok := uuidParam(c, "ruleID")
	if !ok {
		return
	}
	var req weeklyRuleRequest
	if !bindJSON(c, &req) {
		return
	}

	rule, err := h.svc.UpdateWeeklyRule(c.Request.Context(), ruleID, req.input(practitionerID))
	if err != nil {
		h.writeError(c, "weekly rule update failed", err, slog.String("practitioner_id", practitionerID), slog.String("rule_id", ruleID.String()))
		return
	}
	h.log.Info("weekly rule updated", slog.String("practitioner_id", practitionerID), slog.String("rule_id", ruleID.String()))
	c.JSON(http.StatusOK, rule)
}

func (h *Handler) deleteWeeklyRule(c *gin.Context) {
	practitionerID := c.Param("id")
	ruleID, ok := uuidParam(c, "ruleID")
	if !ok {
		return
	}

	if err := h.svc.DeleteWeeklyRule(c.Request.Context(), practitionerID, ruleID); err != nil {
		h.writeError(c, "weekly rule delete failed", err, slog.String("practitioner_id", practitionerID), slog.String("rule_id", ruleID.String()))
		return
	}
	h.log.Info("weekly rule deleted", slog.String("practitioner_id", practitionerID), slog.String("rule_id", ruleID.String()))
	c.Status(http.StatusNoContent)
}

func (h *Handler) listBlackouts(c *gin.Context) {
	practitionerID := c.Param("id")
	dates, ok := dateRange(c, false)
	if !ok {
		return
	}

	blackouts, err := h.svc.ListBlackouts(c.Request.Context(), practitionerID, dates)
	if err != nil {
		h.writeError(c, "blackouts list failed", err, slog.String("practitioner_id", practitionerID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"blackouts": blackouts})
}

func (h *Handler) createBlackout(c *gin.Context) {
	practitionerID := c.Param("id")
	var req blackoutRequest
	if !bindJSON(c, &req) {
		return
	}

	b, err := h.svc.CreateBlackout(c.Request.Context(), scheduling.BlackoutInput{
		PractitionerID: practitionerID,
		Date:           req.Date,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Reason:         req.Reason,
	})
	if err != nil {
		h.writeError(c, "blackout create failed", err, slog.String("practitioner_id", practitionerID))
		return
	}
	h.log.Info("blackout created", slog.String("practitioner_id", practitionerID), slog.String("blackout_id", b.ID.String()), slog.String("date", b.Date.String()))
	c.JSON(http.StatusCreated, b)
}

func (h *Handler) deleteBlackout(c *gin.Context) {
	practitionerID := c.Param("id")
	blackoutID, ok := uuidParam(c, "blackoutID")
	if !ok {
		return
	}

	if err := h.svc.DeleteBlackout(c.Request.Context(), practitionerID, blackoutID); err != nil {
		h.writeError(c, "blackout delete failed", err, slog.String("practitioner_id", practitionerID), slog.String("blackout_id", blackoutID.String()))
		return
	}
	h.log.Info("blackout deleted", slog.String("practitioner_id", practitionerID), slog.String("blackout_id", blackoutID.String()))
	c.Status(http.StatusNoContent)
}

func idempotencyKey(c *gin.Context) string {
	key := c.GetHeader("Idempotency-Key")
	if key == "" {
		key = c.GetHeader("X-Idempotency-Key")
	}
	return strings.TrimSpace(key)
}

func (h *Handler) createBooking(c *gin.Context) {
	var req bookingRequest
	if !bindJSON(c, &req) {
		return
	}
	window := domain.TimeWindow{Start: req.StartTime, End: req.EndTime}

	booking, err := h.svc.CommitBooking(c.Request.Context(), scheduling.CommitBookingInput{
		PractitionerID: req.PractitionerID,
		PatientID:      req.PatientID,
		Date:           req.Date,
		Window:         window,
		IdempotencyKey: idempotencyKey(c),
	})
	if err != nil {
		h.writeError(c, "booking create failed", err,
			slog.String("practitioner_id", req.PractitionerID),
			slog.String("date", req.Date.String()),
			slog.String("window", window.String()),
		)
		return
	}

	h.log.Info(
		"booking created",
		slog.String("booking_id", booking.ID.String()),
		slog.String("practitioner_id", booking.PractitionerID),
		slog.String("date", booking.Date.String()),
		slog.String("window", booking.Window().String()),
	)
	c.JSON(http.StatusCreated, booking)
}

func (h *Handler) getBooking(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	booking, err := h.svc.GetBooking(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "booking get failed", err, slog.String("booking_id", id.String()))
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *Handler) getBookingHistory(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	entries, err := h.svc.ListBookingHistory(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "booking history failed", err, slog.String("booking_id", id.String()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

func (h *Handler) rescheduleBooking(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req rescheduleRequest
	if !bindJSON(c, &req) {
		return
	}

	booking, err := h.svc.Reschedule(c.Request.Context(), scheduling.RescheduleInput{
		BookingID: id,
		Date:      req.Date,
		Window:    domain.TimeWindow{Start: req.StartTime, End: req.EndTime},
		Reason:    req.Reason,
	})
	if err != nil {
		h.writeError(c, "booking reschedule failed", err, slog.String("booking_id", id.String()))
		return
	}
	h.log.Info("booking rescheduled", slog.String("booking_id", id.String()), slog.String("date", booking.Date.String()), slog.String("window", booking.Window().String()))
	c.JSON(http.StatusOK, booking)
}

func (h *Handler) transitionBooking(action domain.BookingAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uuidParam(c, "id")
		if !ok {
			return
		}
		var req transitionRequest
		if c.Request.Body != nil && c.Request.Body != http.NoBody {
			if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
				badRequest(c, "invalid request body: "+err.Error())
				return
			}
		}

		booking, err := h.svc.TransitionStatus(c.Request.Context(), id, action, req.Reason)
		if err != nil {
			h.writeError(c, "booking status update failed", err, slog.String("booking_id", id.String()), slog.String("action", string(action)))
			return
		}
		h.log.Info("booking status updated", slog.String("booking_id", id.String()), slog.String("status", string(booking.Status)))
		c.JSON(http.StatusOK, booking)
	}
}
