/*
handlers.go - HTTP API handlers for the commission engine

PURPOSE:
  Exposes the promoter hierarchy, booking workflow, attribution reports,
  and payment ledger via REST API. Handles HTTP concerns (parsing,
  status codes, DTO mapping); all business rules live in the domain
  packages.

ERROR MAPPING:
  Domain errors map to status codes through their error class:
    IsNotFound      -> 404
    IsValidation    -> 400
    IsAuthorization -> 403
    ErrApprovalTimeout -> 504
    everything else -> 500

ACTING ADMIN:
  Endpoints that act on behalf of an admin read the admin id from the
  admin_id query parameter, defaulting to the bootstrap admin. There is
  no authentication layer; see the deployment notes.

SEE ALSO:
  - server.go: Route definitions
  - dto.go: Request/response types
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/clubhaus/commission-engine/booking"
	"github.com/clubhaus/commission-engine/factory"
	"github.com/clubhaus/commission-engine/hierarchy"
	"github.com/clubhaus/commission-engine/payments"
	"github.com/clubhaus/commission-engine/roster"
)

// Handler wires the domain packages to HTTP.
type Handler struct {
	store      hierarchy.TxStore
	workflow   *booking.Workflow
	ledger     *payments.Ledger
	roster     *roster.Roster
	calculator *hierarchy.Calculator
	factory    *factory.Factory
	log        logrus.FieldLogger
}

// NewHandler creates a handler over a transactional store.
func NewHandler(store hierarchy.TxStore, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	wf := booking.NewWorkflow(store)
	wf.Log = log
	lg := payments.NewLedger(store)
	lg.Log = log
	rs := roster.NewRoster(store)
	rs.Log = log
	return &Handler{
		store:      store,
		workflow:   wf,
		ledger:     lg,
		roster:     rs,
		calculator: hierarchy.NewCalculator(store),
		factory:    factory.New(store),
		log:        log,
	}
}

// =============================================================================
// PROMOTER ENDPOINTS
// =============================================================================

// ListPromoters returns every promoter.
// GET /api/promoters
func (h *Handler) ListPromoters(w http.ResponseWriter, r *http.Request) {
	promoters, err := h.store.ListPromoters(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list promoters", err)
		return
	}
	dtos := make([]PromoterDTO, 0, len(promoters))
	for _, p := range promoters {
		dtos = append(dtos, toPromoterDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPromoter returns one promoter.
// GET /api/promoters/{id}
func (h *Handler) GetPromoter(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.store.GetPromoter(r.Context(), hierarchy.NodeID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get promoter", err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Promoter not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toPromoterDTO(*p))
}

// CreatePromoter creates a promoter.
// POST /api/promoters
func (h *Handler) CreatePromoter(w http.ResponseWriter, r *http.Request) {
	var req CreatePromoterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	p, err := h.roster.Create(r.Context(), roster.CreateInput{
		Handle:     req.Handle,
		Percentage: decimal.NewFromFloat(req.Percentage),
		ParentID:   toNodeID(req.ParentID),
		Powers:     req.Powers,
	})
	if err != nil {
		writeDomainError(w, "Failed to create promoter", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPromoterDTO(*p))
}

// UpdatePromoter amends a promoter.
// PUT /api/promoters/{id}
func (h *Handler) UpdatePromoter(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdatePromoterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := roster.UpdateInput{ID: hierarchy.NodeID(id), Handle: req.Handle, Powers: req.Powers}
	if req.Percentage != nil {
		pct := decimal.NewFromFloat(*req.Percentage)
		in.Percentage = &pct
	}
	if req.ParentID != nil {
		in.SetParent = true
		if *req.ParentID != 0 {
			pid := hierarchy.NodeID(*req.ParentID)
			in.ParentID = &pid
		}
	}

	p, err := h.roster.Update(r.Context(), in)
	if err != nil {
		writeDomainError(w, "Failed to update promoter", err)
		return
	}
	writeJSON(w, http.StatusOK, toPromoterDTO(*p))
}

// DeactivatePromoter soft-deletes a promoter.
// DELETE /api/promoters/{id}
func (h *Handler) DeactivatePromoter(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.roster.Deactivate(r.Context(), hierarchy.NodeID(id)); err != nil {
		writeDomainError(w, "Failed to deactivate promoter", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deactivated": id})
}

// GetDashboard returns a promoter's personal view.
// GET /api/promoters/{id}/dashboard
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	d, err := h.calculator.DashboardFor(r.Context(), hierarchy.NodeID(id))
	if err != nil {
		writeDomainError(w, "Failed to build dashboard", err)
		return
	}

	dto := DashboardDTO{
		Promoter: toPromoterDTO(d.Promoter),
		Personal: StatsDTO{Revenue: d.Personal.Revenue, Bookings: d.Personal.Bookings, People: d.Personal.People},
		Subtree:  StatsDTO{Revenue: d.Subtree.Revenue, Bookings: d.Subtree.Bookings, People: d.Subtree.People},
		Rollups:  make([]RollupDTO, 0, len(d.Rollups)),
		Children: make([]ChildSummaryDTO, 0, len(d.Children)),
	}
	for _, roll := range d.Rollups {
		dto.Rollups = append(dto.Rollups, RollupDTO{Month: roll.Month.String(), Total: roll.Total})
	}
	for _, c := range d.Children {
		dto.Children = append(dto.Children, ChildSummaryDTO{
			PromoterID: int64(c.PromoterID),
			Handle:     c.Handle,
			Bookings:   c.Bookings,
			Revenue:    c.Revenue,
			Accrued:    c.Accrued,
			People:     c.People,
		})
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetMonthlyStats returns a promoter's monthly performance rows, newest first.
// GET /api/promoters/{id}/stats
func (h *Handler) GetMonthlyStats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	rows, err := h.store.MonthlyStats(r.Context(), hierarchy.NodeID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get stats", err)
		return
	}
	dtos := make([]MonthlyStatsDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, MonthlyStatsDTO{
			Year:       row.Year,
			Month:      int(row.Month),
			People:     row.People,
			Bookings:   row.Bookings,
			Commission: row.Commission,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetMonthlyRollups returns a promoter's per-month spend totals, oldest first.
// GET /api/promoters/{id}/rollups
func (h *Handler) GetMonthlyRollups(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	rows, err := h.store.MonthlyRollups(r.Context(), hierarchy.NodeID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get rollups", err)
		return
	}
	dtos := make([]RollupDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, RollupDTO{Month: row.Month.String(), Total: row.Total})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetHistory returns a promoter's approved bookings.
// GET /api/promoters/{id}/history
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	history, err := h.store.HistoryByPromoter(r.Context(), hierarchy.NodeID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get history", err)
		return
	}
	dtos := make([]HistoryDTO, 0, len(history))
	for _, rec := range history {
		dtos = append(dtos, HistoryDTO{
			ID:            rec.ID,
			PromoterID:    int64(rec.PromoterID),
			Date:          rec.Date.Format("2006-01-02"),
			PartySize:     rec.PartySize,
			TableName:     rec.TableName,
			ExpectedSpend: rec.ExpectedSpend,
			Gifts:         rec.Gifts,
			Notes:         rec.Notes,
			Confirmation:  rec.Confirmation,
			ApprovedAt:    rec.ApprovedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// BOOKING ENDPOINTS
// =============================================================================

// SubmitBooking records a new pending table request.
// POST /api/bookings
func (h *Handler) SubmitBooking(w http.ResponseWriter, r *http.Request) {
	var req SubmitBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	b, err := h.workflow.Submit(r.Context(), booking.SubmitInput{
		PromoterID:    hierarchy.NodeID(req.PromoterID),
		Date:          date,
		PartySize:     req.PartySize,
		TableName:     req.TableName,
		ExpectedSpend: decimal.NewFromFloat(req.ExpectedSpend),
		Gifts:         req.Gifts,
		Notes:         req.Notes,
	})
	if err != nil {
		writeDomainError(w, "Failed to submit booking", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingDTO(*b))
}

// ListPendingBookings returns bookings awaiting a decision.
// GET /api/bookings/pending
func (h *Handler) ListPendingBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.store.ListPendingBookings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bookings", err)
		return
	}
	dtos := make([]BookingDTO, 0, len(bookings))
	for _, b := range bookings {
		dtos = append(dtos, toBookingDTO(b))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// EditBooking amends a pending booking.
// PUT /api/bookings/{id}
func (h *Handler) EditBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req EditBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	in := booking.EditInput{
		BookingID:     id,
		PartySize:     req.PartySize,
		TableName:     req.TableName,
		ExpectedSpend: decimal.NewFromFloat(req.ExpectedSpend),
		Gifts:         req.Gifts,
		Notes:         req.Notes,
		EditNotes:     req.EditNotes,
		EditedBy:      req.EditedBy,
	}
	if req.Date != "" {
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
		in.Date = date
	}
	b, err := h.workflow.Edit(r.Context(), in)
	if err != nil {
		writeDomainError(w, "Failed to edit booking", err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(*b))
}

// ApproveBooking runs the approval sequence.
// POST /api/bookings/{id}/approve
func (h *Handler) ApproveBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	adminID, err := h.actingAdmin(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid admin_id", err)
		return
	}

	hist, err := h.workflow.Approve(r.Context(), id, adminID)
	if err != nil {
		writeDomainError(w, "Failed to approve booking", err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryDTO{
		ID:            hist.ID,
		PromoterID:    int64(hist.PromoterID),
		Date:          hist.Date.Format("2006-01-02"),
		PartySize:     hist.PartySize,
		TableName:     hist.TableName,
		ExpectedSpend: hist.ExpectedSpend,
		Gifts:         hist.Gifts,
		Notes:         hist.Notes,
		Confirmation:  hist.Confirmation,
		ApprovedAt:    hist.ApprovedAt.Format(time.RFC3339),
	})
}

// RejectBooking discards a pending booking.
// POST /api/bookings/{id}/reject
func (h *Handler) RejectBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	adminID, err := h.actingAdmin(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid admin_id", err)
		return
	}
	if err := h.workflow.Reject(r.Context(), id, adminID); err != nil {
		writeDomainError(w, "Failed to reject booking", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rejected": id})
}

// =============================================================================
// REPORT ENDPOINTS
// =============================================================================

// GetAttributionReport returns the full hierarchy report.
// GET /api/reports/attribution
func (h *Handler) GetAttributionReport(w http.ResponseWriter, r *http.Request) {
	adminID, err := h.actingAdmin(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid admin_id", err)
		return
	}

	rows, totals, err := h.calculator.Report(r.Context(), adminID)
	if err != nil {
		writeDomainError(w, "Failed to build report", err)
		return
	}

	dto := AttributionReportDTO{
		Rows: make([]AttributionRowDTO, 0, len(rows)),
		Totals: AttributionTotalsDTO{
			DirectPromoters:  totals.DirectPromoters,
			TotalPromoters:   totals.TotalPromoters,
			People:           totals.People,
			Bookings:         totals.Bookings,
			SubtreeRevenue:   totals.SubtreeRevenue,
			GrossEntitlement: totals.GrossEntitlement,
			NetRetained:      totals.NetRetained,
		},
	}
	for _, row := range rows {
		dto.Rows = append(dto.Rows, AttributionRowDTO{
			PromoterID:       int64(row.PromoterID),
			Handle:           row.Handle,
			ParentHandle:     row.ParentHandle,
			Percentage:       row.Percentage,
			Level:            row.Level,
			CanPay:           row.CanPay,
			DirectRevenue:    row.DirectRevenue,
			DirectBookings:   row.DirectBookings,
			DirectPeople:     row.DirectPeople,
			SubtreeRevenue:   row.SubtreeRevenue,
			GrossEntitlement: row.GrossEntitlement,
			OwedToChildren:   row.OwedToChildren,
			NetRetained:      row.NetRetained,
		})
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// PAYMENT ENDPOINTS
// =============================================================================

// GetOutstanding returns a recipient's unpaid balance and resolved payer.
// GET /api/payments/outstanding/{id}
func (h *Handler) GetOutstanding(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	adminID, err := h.actingAdmin(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid admin_id", err)
		return
	}

	outstanding, err := h.ledger.Outstanding(r.Context(), hierarchy.NodeID(id))
	if err != nil {
		writeDomainError(w, "Failed to compute outstanding balance", err)
		return
	}
	payer, err := h.ledger.ResolvePayer(r.Context(), hierarchy.NodeID(id), adminID)
	if err != nil {
		writeDomainError(w, "Failed to resolve payer", err)
		return
	}
	writeJSON(w, http.StatusOK, OutstandingDTO{
		RecipientID: id,
		Outstanding: outstanding,
		Payer:       PayerDTO{Kind: string(payer.Kind), ID: int64(payer.ID), Handle: payer.Handle},
	})
}

// RecordPayment records one payout.
// POST /api/payments
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	adminID, err := h.actingAdmin(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid admin_id", err)
		return
	}

	payment, err := h.ledger.Record(r.Context(), payments.RecordInput{
		RecipientID: hierarchy.NodeID(req.RecipientID),
		AdminID:     adminID,
		ActorID:     toNodeID(req.PayerID),
		Amount:      decimal.NewFromFloat(req.Amount),
		Note:        req.Note,
	})
	if err != nil {
		writeDomainError(w, "Failed to record payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(*payment))
}

// ListPayments returns a recipient's payout history.
// GET /api/payments/history/{id}
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	history, err := h.ledger.History(r.Context(), hierarchy.NodeID(id))
	if err != nil {
		writeDomainError(w, "Failed to list payments", err)
		return
	}
	dtos := make([]PaymentDTO, 0, len(history))
	for _, p := range history {
		dtos = append(dtos, toPaymentDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// SIGNUP ENDPOINTS
// =============================================================================

// SubmitSignup records a powered promoter's proposal.
// POST /api/signups
func (h *Handler) SubmitSignup(w http.ResponseWriter, r *http.Request) {
	var req SubmitSignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	signup, err := h.roster.SubmitSignup(r.Context(), roster.SignupInput{
		RequesterID:      hierarchy.NodeID(req.RequesterID),
		Handle:           req.Handle,
		Percentage:       decimal.NewFromFloat(req.Percentage),
		ProposedParentID: toNodeID(req.ParentID),
		Note:             req.Note,
	})
	if err != nil {
		writeDomainError(w, "Failed to submit signup request", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSignupDTO(*signup))
}

// ListPendingSignups returns unresolved proposals.
// GET /api/signups/pending
func (h *Handler) ListPendingSignups(w http.ResponseWriter, r *http.Request) {
	signups, err := h.store.ListPendingSignupRequests(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list signups", err)
		return
	}
	dtos := make([]SignupDTO, 0, len(signups))
	for _, s := range signups {
		dtos = append(dtos, toSignupDTO(s))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApproveSignup creates the proposed promoter.
// POST /api/signups/{id}/approve
func (h *Handler) ApproveSignup(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ResolveSignupRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	p, err := h.roster.ApproveSignup(r.Context(), id, req.AdminNote)
	if err != nil {
		writeDomainError(w, "Failed to approve signup", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPromoterDTO(*p))
}

// RejectSignup declines a proposal.
// POST /api/signups/{id}/reject
func (h *Handler) RejectSignup(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ResolveSignupRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.roster.RejectSignup(r.Context(), id, req.AdminNote); err != nil {
		writeDomainError(w, "Failed to reject signup", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rejected": id})
}

// =============================================================================
// HELPERS
// =============================================================================

// actingAdmin resolves the admin the request acts for, defaulting to the
// first (bootstrap) admin when admin_id is absent.
func (h *Handler) actingAdmin(r *http.Request) (hierarchy.NodeID, error) {
	raw := r.URL.Query().Get("admin_id")
	if raw == "" {
		admins, err := h.store.ListAdmins(r.Context())
		if err != nil {
			return 0, err
		}
		if len(admins) == 0 {
			return 0, hierarchy.ErrAdminNotFound
		}
		return admins[0].ID, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return hierarchy.NodeID(id), nil
}

// decodeBody decodes a JSON request body; an empty body leaves dst zeroed.
func decodeBody(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return 0, false
	}
	return id, true
}

func toNodeID(id *int64) *hierarchy.NodeID {
	if id == nil {
		return nil
	}
	v := hierarchy.NodeID(*id)
	return &v
}

func toPromoterDTO(p hierarchy.Promoter) PromoterDTO {
	dto := PromoterDTO{
		ID:             int64(p.ID),
		Handle:         p.Handle,
		Percentage:     p.Percentage,
		Powers:         p.Powers,
		LifetimeSpend:  p.LifetimeSpend,
		LifetimePeople: p.LifetimePeople,
		Accrued:        p.AccruedCommission,
		LifetimePaid:   p.LifetimePaid,
		Active:         p.Active,
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
	}
	if p.ParentID != nil {
		id := int64(*p.ParentID)
		dto.ParentID = &id
	}
	return dto
}

func toBookingDTO(b hierarchy.Booking) BookingDTO {
	return BookingDTO{
		ID:            b.ID,
		PromoterID:    int64(b.PromoterID),
		Date:          b.Date.Format("2006-01-02"),
		PartySize:     b.PartySize,
		TableName:     b.TableName,
		ExpectedSpend: b.ExpectedSpend,
		Gifts:         b.Gifts,
		Notes:         b.Notes,
		Status:        string(b.Status),
		Edited:        b.Edited,
		EditNotes:     b.EditNotes,
		EditedBy:      b.EditedBy,
		CreatedAt:     b.CreatedAt.Format(time.RFC3339),
	}
}

func toPaymentDTO(p hierarchy.Payment) PaymentDTO {
	dto := PaymentDTO{
		ID:          p.ID,
		RecipientID: int64(p.RecipientID),
		Amount:      p.Amount,
		Note:        p.Note,
		PaidAt:      p.PaidAt.Format(time.RFC3339),
	}
	if p.PayerID != nil {
		id := int64(*p.PayerID)
		dto.PayerID = &id
	}
	return dto
}

func toSignupDTO(s hierarchy.SignupRequest) SignupDTO {
	dto := SignupDTO{
		ID:          s.ID,
		Handle:      s.Handle,
		Percentage:  s.Percentage,
		RequesterID: int64(s.RequesterID),
		Note:        s.Note,
		Status:      string(s.Status),
		AdminNote:   s.AdminNote,
		RequestedAt: s.RequestedAt.Format(time.RFC3339),
	}
	if s.ProposedParentID != nil {
		id := int64(*s.ProposedParentID)
		dto.ParentID = &id
	}
	return dto
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps a domain error to the right status code.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case hierarchy.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case hierarchy.IsValidation(err):
		writeError(w, http.StatusBadRequest, message, err)
	case hierarchy.IsAuthorization(err):
		writeError(w, http.StatusForbidden, message, err)
	case errors.Is(err, hierarchy.ErrApprovalTimeout):
		writeError(w, http.StatusGatewayTimeout, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
