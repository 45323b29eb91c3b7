package models

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// PaymentRequest is the body of POST /create-payment. Amount accepts a JSON
// number or a numeric string; userId accepts a string or a number.
type PaymentRequest struct {
	Amount      Amount `json:"amount"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	UserID      string `json:"userId"`
	PaymentType string `json:"paymentType"`
}

// UnmarshalJSON implements json.Unmarshaler. A numeric userId keeps its JSON
// text (42 becomes "42"); non-scalar values decode to an empty userId.
func (r *PaymentRequest) UnmarshalJSON(data []byte) error {
	type plain PaymentRequest
	aux := struct {
		*plain
		UserID json.RawMessage `json:"userId"`
	}{plain: (*plain)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.UserID = scalarString(aux.UserID)
	return nil
}

func scalarString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			return n.String()
		}
	}
	return ""
}

// PaymentResponse is returned to the mobile client on a successful initiation.
type PaymentResponse struct {
	Success     bool   `json:"success"`
	CheckoutURL string `json:"checkout_url"`
	TxRef       string `json:"tx_ref"`
}

// VerificationResponse is returned by GET /verify-payment/:txRef.
type VerificationResponse struct {
	Success  bool   `json:"success"`
	Status   string `json:"status"`
	TxRef    string `json:"tx_ref"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// InitializeRequest is the body sent to the gateway's transaction/initialize endpoint.
type InitializeRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Description string `json:"description"`
	ReturnURL   string `json:"return_url"`
	TxRef       string `json:"tx_ref"`
	Reference   string `json:"reference,omitempty"`
}

// InitializeResponse is the gateway's reply to transaction/initialize.
type InitializeResponse struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Data    *CheckoutData `json:"data"`
}

// CheckoutData is the data object of a successful initialize reply.
type CheckoutData struct {
	CheckoutURL string `json:"checkout_url"`
}

// VerifyResponse is the gateway's reply to transaction/verify.
type VerifyResponse struct {
	Status  string           `json:"status"`
	Message string           `json:"message"`
	Data    *TransactionData `json:"data"`
}

// TransactionData is the data object of a verify reply.
type TransactionData struct {
	Status   string          `json:"status"`
	TxRef    string          `json:"tx_ref"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}
