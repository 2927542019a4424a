package model

import (
	"time"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// IsValidStatus reports whether s is one of the enumerated payment statuses.
func IsValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

const (
	// FallbackResponseCode marks a payment confirmed without a real gateway
	// approval.
	FallbackResponseCode = "DEMO_MODE"
	FallbackResponseMsg  = "Demo payment - WaafiPay service unavailable"
)

// ============================================================================
// DATABASE ENTITIES (Internal - GORM only, no JSON tags)
// ============================================================================

// GatewayResponse is the stored outcome of a gateway interaction, real or
// synthesized by the fallback policy.
type GatewayResponse struct {
	ReferenceID         string  `gorm:"type:text"`
	TransactionID       string  `gorm:"type:text"`
	IssuerTransactionID string  `gorm:"type:text"`
	State               string  `gorm:"type:varchar(50)"`
	ResponseCode        string  `gorm:"type:varchar(50)"`
	ResponseMsg         string  `gorm:"type:text"`
	MerchantCharges     float64 `gorm:"type:decimal(10,2)"`
	TxAmount            float64 `gorm:"type:decimal(10,2)"`
	Fallback            bool    `gorm:"not null;default:false;index"`
	RespondedAt         *time.Time
}

// Payment represents the database model for a booking payment
type Payment struct {
	ID               string          `gorm:"type:text;primary_key"`
	UserID           string          `gorm:"type:text;not null;index"`
	UserFullName     string          `gorm:"type:varchar(100);not null"`
	UserAccountNo    string          `gorm:"type:varchar(20);not null"`
	PlaceID          string          `gorm:"type:text;not null;index"`
	PlaceName        string          `gorm:"type:varchar(200);not null"`
	BookingDate      time.Time       `gorm:"type:date;not null"`
	TimeSlot         string          `gorm:"type:varchar(50);not null"`
	VisitorCount     int             `gorm:"not null"`
	PricePerPerson   float64         `gorm:"type:decimal(10,2);not null"`
	TotalAmount      float64         `gorm:"type:decimal(10,2);not null"`
	ActualPaidAmount float64         `gorm:"type:decimal(10,2);not null"`
	Currency         string          `gorm:"type:varchar(3);not null;default:'USD'"`
	PaymentMethod    string          `gorm:"type:varchar(30);not null;default:'mwallet_account'"`
	ContactEmail     string          `gorm:"type:varchar(255)"`
	ContactPhone     string          `gorm:"type:varchar(30)"`
	Status           string          `gorm:"type:varchar(20);not null;default:'pending';index"`
	Gateway          GatewayResponse `gorm:"embedded;embeddedPrefix:gateway_"`
	PaidAt           *time.Time
	ChargeClaimedAt  *time.Time
	CreatedAt        time.Time `gorm:"index"`
	UpdatedAt        time.Time
}

// TableName sets the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// HasGatewayResponse is true once a gateway interaction completed.
func (p *Payment) HasGatewayResponse() bool {
	return p.Gateway.RespondedAt != nil
}

// IsFallback is true when the payment was confirmed under the fallback
// policy and still needs reconciliation.
func (p *Payment) IsFallback() bool {
	return p.Gateway.Fallback
}

// ============================================================================
// REPOSITORY DATA TRANSFER OBJECTS (Internal - no JSON tags)
// ============================================================================

// TransitionRequest moves a payment from one status to another. The update
// only applies while the stored status still equals From.
type TransitionRequest struct {
	PaymentID string
	From      string
	To        string
	Gateway   *GatewayResponse
	PaidAt    *time.Time
}

// PaymentFilter represents pagination options for payment history
type PaymentFilter struct {
	UserID string
	Limit  int
	Offset int
}

// ============================================================================
// API DATA TRANSFER OBJECTS (External - JSON tags for HTTP)
// ============================================================================

// CreatePaymentAPIRequest is the body of POST /api/payments. The user id
// comes from the token.
type CreatePaymentAPIRequest struct {
	UserFullName  string       `json:"user_full_name"`
	UserAccountNo string       `json:"user_account_no"`
	PlaceID       string       `json:"place_id"`
	BookingDate   string       `json:"booking_date"`
	TimeSlot      string       `json:"time_slot"`
	VisitorCount  int          `json:"visitor_count"`
	ContactInfo   *ContactInfo `json:"contact_info,omitempty"`
}

type ContactInfo struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// UpdateStatusAPIRequest is the body of PUT /api/payments/:paymentId/status
type UpdateStatusAPIRequest struct {
	Status string `json:"status" binding:"required"`
}

// GatewayResponseDTO represents the gateway outcome in API responses
type GatewayResponseDTO struct {
	ReferenceID         string     `json:"reference_id,omitempty"`
	TransactionID       string     `json:"transaction_id,omitempty"`
	IssuerTransactionID string     `json:"issuer_transaction_id,omitempty"`
	State               string     `json:"state,omitempty"`
	ResponseCode        string     `json:"response_code"`
	ResponseMsg         string     `json:"response_msg,omitempty"`
	MerchantCharges     float64    `json:"merchant_charges,omitempty"`
	TxAmount            float64    `json:"tx_amount,omitempty"`
	Fallback            bool       `json:"fallback"`
	RespondedAt         *time.Time `json:"responded_at,omitempty"`
}

// CreatePaymentResponse represents the API response after payment creation
type CreatePaymentResponse struct {
	PaymentID        string              `json:"payment_id"`
	TotalAmount      float64             `json:"total_amount"`
	ActualPaidAmount float64             `json:"actual_paid_amount"`
	Status           string              `json:"status"`
	GatewayResponse  *GatewayResponseDTO `json:"gateway_response,omitempty"`
	FallbackMode     bool                `json:"fallback_mode"`
	Message          string              `json:"message"`
}

// PaymentResponse represents a full payment record
type PaymentResponse struct {
	PaymentID        string              `json:"payment_id"`
	UserID           string              `json:"user_id"`
	UserFullName     string              `json:"user_full_name"`
	UserAccountNo    string              `json:"user_account_no"`
	PlaceID          string              `json:"place_id"`
	PlaceName        string              `json:"place_name"`
	BookingDate      string              `json:"booking_date"`
	TimeSlot         string              `json:"time_slot"`
	VisitorCount     int                 `json:"visitor_count"`
	PricePerPerson   float64             `json:"price_per_person"`
	TotalAmount      float64             `json:"total_amount"`
	ActualPaidAmount float64             `json:"actual_paid_amount"`
	Currency         string              `json:"currency"`
	PaymentMethod    string              `json:"payment_method"`
	ContactInfo      *ContactInfo        `json:"contact_info,omitempty"`
	Status           string              `json:"status"`
	GatewayResponse  *GatewayResponseDTO `json:"gateway_response,omitempty"`
	PaidAt           *time.Time          `json:"paid_at,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// PaymentHistoryResponse represents one page of a user's payments
type PaymentHistoryResponse struct {
	Payments    []PaymentResponse `json:"payments"`
	Total       int               `json:"total"`
	TotalPages  int               `json:"total_pages"`
	CurrentPage int               `json:"current_page"`
	PageSize    int               `json:"page_size"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ============================================================================
// KAFKA MESSAGE STRUCTURES
// ============================================================================

const (
	EventPaymentConfirmed         = "payment_confirmed"
	EventPaymentFallbackConfirmed = "payment_fallback_confirmed"
	EventPaymentCancelled         = "payment_cancelled"
	EventPaymentStatusUpdated     = "payment_status_updated"
)

// PaymentEvent represents the message sent to the payment events topic
type PaymentEvent struct {
	Type             string    `json:"type"`
	PaymentID        string    `json:"payment_id"`
	UserID           string    `json:"user_id"`
	UserFullName     string    `json:"user_full_name"`
	RecipientEmail   string    `json:"recipient_email,omitempty"`
	RecipientPhone   string    `json:"recipient_phone,omitempty"`
	PlaceID          string    `json:"place_id"`
	PlaceName        string    `json:"place_name"`
	BookingDate      string    `json:"booking_date"`
	TimeSlot         string    `json:"time_slot"`
	VisitorCount     int       `json:"visitor_count"`
	TotalAmount      float64   `json:"total_amount"`
	ActualPaidAmount float64   `json:"actual_paid_amount"`
	Currency         string    `json:"currency"`
	Status           string    `json:"status"`
	PreviousStatus   string    `json:"previous_status,omitempty"`
	TransactionID    string    `json:"transaction_id,omitempty"`
	ResponseCode     string    `json:"response_code,omitempty"`
	ResponseMsg      string    `json:"response_msg,omitempty"`
	Fallback         bool      `json:"fallback"`
	Timestamp        time.Time `json:"timestamp"`
}

// ============================================================================
// CONVERSION METHODS
// ============================================================================

const bookingDateLayout = "2006-01-02"

func (g *GatewayResponse) ToDTO() *GatewayResponseDTO {
	return &GatewayResponseDTO{
		ReferenceID:         g.ReferenceID,
		TransactionID:       g.TransactionID,
		IssuerTransactionID: g.IssuerTransactionID,
		State:               g.State,
		ResponseCode:        g.ResponseCode,
		ResponseMsg:         g.ResponseMsg,
		MerchantCharges:     g.MerchantCharges,
		TxAmount:            g.TxAmount,
		Fallback:            g.Fallback,
		RespondedAt:         g.RespondedAt,
	}
}

// ToPaymentResponse converts a Payment entity to its API form
func (p *Payment) ToPaymentResponse() PaymentResponse {
	resp := PaymentResponse{
		PaymentID:        p.ID,
		UserID:           p.UserID,
		UserFullName:     p.UserFullName,
		UserAccountNo:    p.UserAccountNo,
		PlaceID:          p.PlaceID,
		PlaceName:        p.PlaceName,
		BookingDate:      p.BookingDate.Format(bookingDateLayout),
		TimeSlot:         p.TimeSlot,
		VisitorCount:     p.VisitorCount,
		PricePerPerson:   p.PricePerPerson,
		TotalAmount:      p.TotalAmount,
		ActualPaidAmount: p.ActualPaidAmount,
		Currency:         p.Currency,
		PaymentMethod:    p.PaymentMethod,
		Status:           p.Status,
		PaidAt:           p.PaidAt,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	if p.ContactEmail != "" || p.ContactPhone != "" {
		resp.ContactInfo = &ContactInfo{Email: p.ContactEmail, Phone: p.ContactPhone}
	}
	if p.HasGatewayResponse() {
		resp.GatewayResponse = p.Gateway.ToDTO()
	}
	return resp
}

// ToPaymentEvent builds the event published after a state change
func (p *Payment) ToPaymentEvent(eventType, previousStatus string, at time.Time) PaymentEvent {
	return PaymentEvent{
		Type:             eventType,
		PaymentID:        p.ID,
		UserID:           p.UserID,
		UserFullName:     p.UserFullName,
		RecipientEmail:   p.ContactEmail,
		RecipientPhone:   p.ContactPhone,
		PlaceID:          p.PlaceID,
		PlaceName:        p.PlaceName,
		BookingDate:      p.BookingDate.Format(bookingDateLayout),
		TimeSlot:         p.TimeSlot,
		VisitorCount:     p.VisitorCount,
		TotalAmount:      p.TotalAmount,
		ActualPaidAmount: p.ActualPaidAmount,
		Currency:         p.Currency,
		Status:           p.Status,
		PreviousStatus:   previousStatus,
		TransactionID:    p.Gateway.TransactionID,
		ResponseCode:     p.Gateway.ResponseCode,
		ResponseMsg:      p.Gateway.ResponseMsg,
		Fallback:         p.Gateway.Fallback,
		Timestamp:        at,
	}
}
