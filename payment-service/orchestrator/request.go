package orchestrator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/arunvm123/tourismbooking/payment-service/gateway"
	"github.com/arunvm123/tourismbooking/payment-service/model"
	"github.com/go-playground/validator/v10"
)

// CreatePaymentRequest is the validated input of Create. UserID comes from
// the caller's token, the rest from the request body.
type CreatePaymentRequest struct {
	UserID        string `json:"user_id" validate:"required"`
	UserFullName  string `json:"user_full_name" validate:"required,min=3,max=100"`
	UserAccountNo string `json:"user_account_no" validate:"required,wallet_account"`
	PlaceID       string `json:"place_id" validate:"required"`
	BookingDate   string `json:"booking_date" validate:"required,datetime=2006-01-02"`
	TimeSlot      string `json:"time_slot" validate:"required,max=50"`
	VisitorCount  int    `json:"visitor_count" validate:"min=1"`
	ContactEmail  string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone  string `json:"contact_phone" validate:"omitempty,max=30"`
}

// NewCreatePaymentRequest combines the authenticated user with the API body.
func NewCreatePaymentRequest(userID string, body model.CreatePaymentAPIRequest) CreatePaymentRequest {
	req := CreatePaymentRequest{
		UserID:        userID,
		UserFullName:  strings.TrimSpace(body.UserFullName),
		UserAccountNo: strings.TrimSpace(body.UserAccountNo),
		PlaceID:       strings.TrimSpace(body.PlaceID),
		BookingDate:   strings.TrimSpace(body.BookingDate),
		TimeSlot:      strings.TrimSpace(body.TimeSlot),
		VisitorCount:  body.VisitorCount,
	}
	if body.ContactInfo != nil {
		req.ContactEmail = strings.TrimSpace(body.ContactInfo.Email)
		req.ContactPhone = strings.TrimSpace(body.ContactInfo.Phone)
	}
	return req
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("wallet_account", func(fl validator.FieldLevel) bool {
		return gateway.IsWalletAccount(fl.Field().String())
	})
	return v
}

// toValidationError reports the first failing field.
func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &model.ValidationError{Field: "request", Reason: err.Error()}
	}
	fe := verrs[0]
	return &model.ValidationError{Field: fe.Field(), Reason: validationReason(fe)}
}

func validationReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email address"
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "wallet_account":
		return "must be a wallet number of 7 to 15 digits"
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}
