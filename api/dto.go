/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY FIELDS:
  Serialized as JSON strings ("1234.50") through shopspring/decimal's
  MarshalJSON, so clients never see float artifacts.

VALIDATION:
  Validation is done in handlers and domain packages, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/hierarchy.go: HierarchyJSON seed type
*/
package api

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// PROMOTERS
// =============================================================================

// PromoterDTO represents a promoter in API responses.
type PromoterDTO struct {
	ID             int64           `json:"id"`
	Handle         string          `json:"handle"`
	ParentID       *int64          `json:"parent_id,omitempty"`
	Percentage     decimal.Decimal `json:"percentage"`
	Powers         bool            `json:"powers"`
	LifetimeSpend  decimal.Decimal `json:"lifetime_spend"`
	LifetimePeople int64           `json:"lifetime_people"`
	Accrued        decimal.Decimal `json:"accrued_commission"`
	LifetimePaid   decimal.Decimal `json:"lifetime_paid"`
	Active         bool            `json:"active"`
	CreatedAt      string          `json:"created_at,omitempty"`
}

// CreatePromoterRequest is the request to create a promoter.
type CreatePromoterRequest struct {
	Handle     string  `json:"handle"`
	Percentage float64 `json:"percentage"`
	ParentID   *int64  `json:"parent_id,omitempty"`
	Powers     bool    `json:"powers,omitempty"`
}

// UpdatePromoterRequest carries optional promoter changes. A present
// parent_id of 0 clears the parent.
type UpdatePromoterRequest struct {
	Handle     *string  `json:"handle,omitempty"`
	Percentage *float64 `json:"percentage,omitempty"`
	Powers     *bool    `json:"powers,omitempty"`
	ParentID   *int64   `json:"parent_id,omitempty"`
}

// =============================================================================
// BOOKINGS
// =============================================================================

// SubmitBookingRequest is a promoter's table request.
type SubmitBookingRequest struct {
	PromoterID    int64   `json:"promoter_id"`
	Date          string  `json:"date"` // YYYY-MM-DD
	PartySize     int     `json:"party_size"`
	TableName     string  `json:"table_name,omitempty"`
	ExpectedSpend float64 `json:"expected_spend"`
	Gifts         string  `json:"gifts,omitempty"`
	Notes         string  `json:"notes,omitempty"`
}

// EditBookingRequest amends a pending booking.
type EditBookingRequest struct {
	Date          string  `json:"date,omitempty"` // YYYY-MM-DD
	PartySize     int     `json:"party_size,omitempty"`
	TableName     string  `json:"table_name,omitempty"`
	ExpectedSpend float64 `json:"expected_spend,omitempty"`
	Gifts         string  `json:"gifts,omitempty"`
	Notes         string  `json:"notes,omitempty"`
	EditNotes     string  `json:"edit_notes,omitempty"`
	EditedBy      string  `json:"edited_by,omitempty"`
}

// BookingDTO represents a pending booking.
type BookingDTO struct {
	ID            int64           `json:"id"`
	PromoterID    int64           `json:"promoter_id"`
	Date          string          `json:"date"`
	PartySize     int             `json:"party_size"`
	TableName     string          `json:"table_name,omitempty"`
	ExpectedSpend decimal.Decimal `json:"expected_spend"`
	Gifts         string          `json:"gifts,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Status        string          `json:"status"`
	Edited        bool            `json:"edited,omitempty"`
	EditNotes     string          `json:"edit_notes,omitempty"`
	EditedBy      string          `json:"edited_by,omitempty"`
	CreatedAt     string          `json:"created_at"`
}

// HistoryDTO represents an approved booking record.
type HistoryDTO struct {
	ID            int64           `json:"id"`
	PromoterID    int64           `json:"promoter_id"`
	Date          string          `json:"date"`
	PartySize     int             `json:"party_size"`
	TableName     string          `json:"table_name,omitempty"`
	ExpectedSpend decimal.Decimal `json:"expected_spend"`
	Gifts         string          `json:"gifts,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Confirmation  string          `json:"confirmation"`
	ApprovedAt    string          `json:"approved_at"`
}

// =============================================================================
// REPORTS
// =============================================================================

// AttributionRowDTO is one line of the hierarchy report.
type AttributionRowDTO struct {
	PromoterID       int64           `json:"promoter_id"`
	Handle           string          `json:"handle"`
	ParentHandle     string          `json:"parent_handle,omitempty"`
	Percentage       decimal.Decimal `json:"percentage"`
	Level            int             `json:"level"`
	CanPay           bool            `json:"can_pay"`
	DirectRevenue    decimal.Decimal `json:"direct_revenue"`
	DirectBookings   int64           `json:"direct_bookings"`
	DirectPeople     int64           `json:"direct_people"`
	SubtreeRevenue   decimal.Decimal `json:"subtree_revenue"`
	GrossEntitlement decimal.Decimal `json:"gross_entitlement"`
	OwedToChildren   decimal.Decimal `json:"owed_to_children"`
	NetRetained      decimal.Decimal `json:"net_retained"`
}

// AttributionReportDTO wraps the rows with payable totals.
type AttributionReportDTO struct {
	Rows   []AttributionRowDTO  `json:"rows"`
	Totals AttributionTotalsDTO `json:"totals"`
}

// AttributionTotalsDTO aggregates the reporting admin's payable rows.
type AttributionTotalsDTO struct {
	DirectPromoters  int             `json:"direct_promoters"`
	TotalPromoters   int             `json:"total_promoters"`
	People           int64           `json:"people"`
	Bookings         int64           `json:"bookings"`
	SubtreeRevenue   decimal.Decimal `json:"subtree_revenue"`
	GrossEntitlement decimal.Decimal `json:"gross_entitlement"`
	NetRetained      decimal.Decimal `json:"net_retained"`
}

// DashboardDTO is a promoter's personal view.
type DashboardDTO struct {
	Promoter PromoterDTO       `json:"promoter"`
	Personal StatsDTO          `json:"personal"`
	Subtree  StatsDTO          `json:"subtree"`
	Rollups  []RollupDTO       `json:"rollups"`
	Children []ChildSummaryDTO `json:"children"`
}

// StatsDTO is a revenue/bookings/people triple.
type StatsDTO struct {
	Revenue  decimal.Decimal `json:"revenue"`
	Bookings int64           `json:"bookings"`
	People   int64           `json:"people"`
}

// RollupDTO is one month's spend total.
type RollupDTO struct {
	Month string          `json:"month"`
	Total decimal.Decimal `json:"total"`
}

// ChildSummaryDTO is one direct child on a dashboard.
type ChildSummaryDTO struct {
	PromoterID int64           `json:"promoter_id"`
	Handle     string          `json:"handle"`
	Bookings   int64           `json:"bookings"`
	Revenue    decimal.Decimal `json:"revenue"`
	Accrued    decimal.Decimal `json:"accrued_commission"`
	People     int64           `json:"people"`
}

// =============================================================================
// PAYMENTS
// =============================================================================

// PayerDTO names who settles a recipient's commission.
type PayerDTO struct {
	Kind   string `json:"kind"` // "admin" or "promoter"
	ID     int64  `json:"id"`
	Handle string `json:"handle"`
}

// OutstandingDTO is a recipient's unpaid balance plus its payer.
type OutstandingDTO struct {
	RecipientID int64           `json:"recipient_id"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Payer       PayerDTO        `json:"payer"`
}

// RecordPaymentRequest records one payout.
type RecordPaymentRequest struct {
	RecipientID int64   `json:"recipient_id"`
	PayerID     *int64  `json:"payer_id,omitempty"` // nil when the admin pays
	Amount      float64 `json:"amount"`
	Note        string  `json:"note,omitempty"`
}

// PaymentDTO represents one recorded payout.
type PaymentDTO struct {
	ID          string          `json:"id"`
	RecipientID int64           `json:"recipient_id"`
	PayerID     *int64          `json:"payer_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Note        string          `json:"note,omitempty"`
	PaidAt      string          `json:"paid_at"`
}

// =============================================================================
// SIGNUP REQUESTS
// =============================================================================

// SubmitSignupRequest proposes a new promoter.
type SubmitSignupRequest struct {
	RequesterID int64   `json:"requester_id"`
	Handle      string  `json:"handle"`
	Percentage  float64 `json:"percentage"`
	ParentID    *int64  `json:"parent_id,omitempty"`
	Note        string  `json:"note,omitempty"`
}

// SignupDTO represents a signup request.
type SignupDTO struct {
	ID          int64           `json:"id"`
	Handle      string          `json:"handle"`
	Percentage  decimal.Decimal `json:"percentage"`
	RequesterID int64           `json:"requester_id"`
	ParentID    *int64          `json:"parent_id,omitempty"`
	Note        string          `json:"note,omitempty"`
	Status      string          `json:"status"`
	AdminNote   string          `json:"admin_note,omitempty"`
	RequestedAt string          `json:"requested_at"`
}

// ResolveSignupRequest carries the admin's note for approve/reject.
type ResolveSignupRequest struct {
	AdminNote string `json:"admin_note,omitempty"`
}

// =============================================================================
// STATS
// =============================================================================

// MonthlyStatsDTO is one month of a promoter's performance.
type MonthlyStatsDTO struct {
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	People     int64           `json:"people"`
	Bookings   int64           `json:"bookings"`
	Commission decimal.Decimal `json:"commission"`
}

// =============================================================================
// SCENARIOS / ERRORS
// =============================================================================

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ID string `json:"id"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
