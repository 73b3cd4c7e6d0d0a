package checkout

import (
	"regexp"
	"strings"
	"time"
)

// FieldErrors maps a form field name to a human-readable message. It stays in
// the form-handling layer; callers render it as a 422 payload.
type FieldErrors map[string]string

var (
	emailRe  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	digitsRe = regexp.MustCompile(`^[0-9]+$`)
)

type ShippingForm struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `json:"zip_code"`
	Country  string `json:"country"`
}

func (f *ShippingForm) Validate() FieldErrors {
	errs := FieldErrors{}

	if strings.TrimSpace(f.FullName) == "" {
		errs["full_name"] = "Full name is required"
	}
	switch {
	case strings.TrimSpace(f.Email) == "":
		errs["email"] = "Email is required"
	case !emailRe.MatchString(f.Email):
		errs["email"] = "Email is invalid"
	}
	if strings.TrimSpace(f.Phone) == "" {
		errs["phone"] = "Phone number is required"
	}
	if strings.TrimSpace(f.Address) == "" {
		errs["address"] = "Address is required"
	}
	if strings.TrimSpace(f.City) == "" {
		errs["city"] = "City is required"
	}
	if strings.TrimSpace(f.State) == "" {
		errs["state"] = "State is required"
	}
	if strings.TrimSpace(f.ZipCode) == "" {
		errs["zip_code"] = "ZIP code is required"
	}
	if strings.TrimSpace(f.Country) == "" {
		errs["country"] = "Country is required"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// PaymentForm carries the raw card input. It is validated and masked in one
// step; the raw form is never written anywhere.
type PaymentForm struct {
	CardholderName string `json:"cardholder_name"`
	CardNumber     string `json:"card_number"`
	ExpiryMonth    int    `json:"expiry_month"`
	ExpiryYear     int    `json:"expiry_year"`
	CVV            string `json:"cvv"`
}

// PaymentData is what survives validation: last 4 digits, brand and expiry.
type PaymentData struct {
	CardholderName string `json:"cardholder_name"`
	CardLast4      string `json:"card_last4"`
	CardType       string `json:"card_type"`
	ExpiryMonth    int    `json:"expiry_month"`
	ExpiryYear     int    `json:"expiry_year"`
}

func cardDigits(number string) string {
	return strings.ReplaceAll(strings.TrimSpace(number), " ", "")
}

func cardType(digits string) string {
	switch {
	case strings.HasPrefix(digits, "4"):
		return "Visa"
	case strings.HasPrefix(digits, "5"):
		return "Mastercard"
	case strings.HasPrefix(digits, "6"):
		return "Discover"
	}
	return ""
}

// Validate checks the card fields against the reference time: the card number
// must be exactly 16 digits (spaces tolerated), the CVV exactly 3, and the
// expiry (two-digit year, month 1-12) must not be in the past.
func (f *PaymentForm) Validate(now time.Time) FieldErrors {
	errs := FieldErrors{}

	if strings.TrimSpace(f.CardholderName) == "" {
		errs["cardholder_name"] = "Cardholder name is required"
	}

	digits := cardDigits(f.CardNumber)
	switch {
	case digits == "":
		errs["card_number"] = "Card number is required"
	case len(digits) != 16 || !digitsRe.MatchString(digits):
		errs["card_number"] = "Card number must be 16 digits"
	}

	curYear := now.Year() % 100
	curMonth := int(now.Month())
	switch {
	case f.ExpiryMonth < 1 || f.ExpiryMonth > 12:
		errs["expiry_month"] = "Expiry month is required"
	case f.ExpiryYear < curYear:
		errs["expiry_year"] = "Card has expired"
	case f.ExpiryYear == curYear && f.ExpiryMonth < curMonth:
		errs["expiry_year"] = "Card has expired"
	}

	switch {
	case strings.TrimSpace(f.CVV) == "":
		errs["cvv"] = "CVV is required"
	case len(f.CVV) != 3 || !digitsRe.MatchString(f.CVV):
		errs["cvv"] = "CVV must be 3 digits"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Masked reduces a validated form to its storable remnants.
func (f *PaymentForm) Masked() *PaymentData {
	digits := cardDigits(f.CardNumber)
	last4 := digits
	if len(digits) > 4 {
		last4 = digits[len(digits)-4:]
	}
	return &PaymentData{
		CardholderName: f.CardholderName,
		CardLast4:      last4,
		CardType:       cardType(digits),
		ExpiryMonth:    f.ExpiryMonth,
		ExpiryYear:     f.ExpiryYear,
	}
}
