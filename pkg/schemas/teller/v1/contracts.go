package teller

import "encoding/json"

// Customer is the canonical customer schema. Backends disagree on field
// naming, so all known variants are folded into this shape at decode time
// (see UnmarshalJSON below); nothing past this boundary repeats the
// fallback chains.
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type customerWire struct {
	ID           string `json:"id"`
	CustomerID   string `json:"customer_id"`
	CustomerNo   string `json:"customerNo"`
	Name         string `json:"name"`
	NameUpper    string `json:"Name"`
	CustomerName string `json:"customer_name"`
	Phone        string `json:"phone"`
	PhoneNumber  string `json:"phone_number"`
	Mobile       string `json:"mobile"`
	Email        string `json:"email"`
	EmailAddr    string `json:"email_address"`
}

func (c *Customer) UnmarshalJSON(b []byte) error {
	var w customerWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	c.ID = firstNonEmpty(w.ID, w.CustomerID, w.CustomerNo)
	c.Name = firstNonEmpty(w.Name, w.NameUpper, w.CustomerName)
	c.Phone = firstNonEmpty(w.Phone, w.PhoneNumber, w.Mobile)
	c.Email = firstNonEmpty(w.Email, w.EmailAddr)
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

type Product struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Rate as annual percentage, e.g. 3.25
	Rate        float64 `json:"rate,omitempty"`
	Description string  `json:"description,omitempty"`
}

type FormDescriptor struct {
	Name   string            `json:"name"`
	Fields []FieldDescriptor `json:"fields,omitempty"`
}

type FieldDescriptor struct {
	// FieldID is stable across form templates: the same id always means
	// the same logical datum, which is what makes cross-form auto-fill work.
	FieldID    string `json:"field_id"`
	FieldLabel string `json:"field_label,omitempty"`
	FieldType  string `json:"field_type,omitempty"` // "text","number","date","signature",...
}

const FieldTypeSignature = "signature"
