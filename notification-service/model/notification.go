package model

import (
	"fmt"
	"strings"
	"time"
)

// ============================================================================
// KAFKA MESSAGE STRUCTURES (From Payment Service)
// ============================================================================

const (
	EventPaymentConfirmed         = "payment_confirmed"
	EventPaymentFallbackConfirmed = "payment_fallback_confirmed"
	EventPaymentCancelled         = "payment_cancelled"
	EventPaymentStatusUpdated     = "payment_status_updated"
)

// PaymentEvent represents the message consumed from the payment events topic
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
// RECEIPT TEMPLATES
// ============================================================================

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Receipt represents a message to be delivered (logged by the mock sender)
type Receipt struct {
	Channel string
	To      string
	Subject string
	Body    string
}

// Sender identifies who the receipt comes from
type Sender struct {
	Name         string
	SupportEmail string
}

// Recipient picks email over phone. ok is false when the event carries no
// contact at all.
func (e *PaymentEvent) Recipient() (channel, to string, ok bool) {
	switch {
	case e.RecipientEmail != "":
		return ChannelEmail, e.RecipientEmail, true
	case e.RecipientPhone != "":
		return ChannelSMS, e.RecipientPhone, true
	}
	return "", "", false
}

// GenerateReceipt renders the receipt for the event type. ok is false for
// unknown types or events without a recipient.
func (e *PaymentEvent) GenerateReceipt(from Sender) (*Receipt, bool) {
	channel, to, ok := e.Recipient()
	if !ok {
		return nil, false
	}

	var subject, body string
	switch e.Type {
	case EventPaymentConfirmed:
		subject = "Booking Confirmed - " + e.PlaceName
		body = "Your payment was received and your visit is booked.\n\n" +
			e.bookingLines() +
			"Amount paid: " + e.money(e.ActualPaidAmount) + "\n" +
			"Transaction: " + e.TransactionID + "\n"
	case EventPaymentFallbackConfirmed:
		subject = "Booking Reserved - " + e.PlaceName
		body = "Your visit is reserved. The payment provider was unavailable, so your\n" +
			"payment is pending reconciliation and no charge has been confirmed yet.\n\n" +
			e.bookingLines() +
			"Amount due: " + e.money(e.ActualPaidAmount) + "\n"
	case EventPaymentCancelled:
		subject = "Payment Failed - " + e.PlaceName
		body = "We're sorry, your payment could not be completed and the booking was cancelled.\n\n" +
			e.bookingLines() +
			"Reason: " + e.rejectionReason() + "\n\n" +
			"Please check your wallet balance and try again.\n"
	case EventPaymentStatusUpdated:
		subject = "Booking Update - " + e.PlaceName
		body = fmt.Sprintf("The status of your booking changed from %s to %s.\n\n", e.PreviousStatus, e.Status) +
			e.bookingLines()
	default:
		return nil, false
	}

	greeting := "Dear " + e.UserFullName + ",\n\n"
	footer := "\nPayment ID: " + e.PaymentID + "\n\n" +
		"Questions? Contact " + from.SupportEmail + "\n\n" +
		from.Name

	return &Receipt{
		Channel: channel,
		To:      to,
		Subject: subject,
		Body:    greeting + body + footer,
	}, true
}

func (e *PaymentEvent) bookingLines() string {
	var b strings.Builder
	b.WriteString("Place: " + e.PlaceName + "\n")
	b.WriteString("Date: " + e.BookingDate + " (" + e.TimeSlot + ")\n")
	fmt.Fprintf(&b, "Visitors: %d\n", e.VisitorCount)
	b.WriteString("Total: " + e.money(e.TotalAmount) + "\n")
	return b.String()
}

func (e *PaymentEvent) money(v float64) string {
	currency := e.Currency
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("%.2f %s", v, currency)
}

func (e *PaymentEvent) rejectionReason() string {
	msg := e.ResponseMsg
	if msg == "" {
		msg = "Payment failed"
	}
	if e.ResponseCode != "" {
		return fmt.Sprintf("%s (code %s)", msg, e.ResponseCode)
	}
	return msg
}

// ============================================================================
// API DATA TRANSFER OBJECTS (External - JSON tags for HTTP)
// ============================================================================

// HealthResponse represents the health check response
type HealthResponse struct {
	Status            string    `json:"status"`
	Service           string    `json:"service"`
	Timestamp         time.Time `json:"timestamp"`
	MessagesProcessed int64     `json:"messages_processed"`
	MessagesFailed    int64     `json:"messages_failed"`
}

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
