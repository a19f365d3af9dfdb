package models

// Customer field names. These are the only keys a client may write.
const (
	FieldName       = "name"
	FieldAddress    = "address"
	FieldCity       = "city"
	FieldPostalCode = "postal_code"
	FieldCountry    = "country"
	FieldEmail      = "email"
)

// AllowedFields lists the mutable customer fields in storage column order.
var AllowedFields = []string{FieldName, FieldAddress, FieldCity, FieldPostalCode, FieldCountry, FieldEmail}

// IsAllowedField reports whether name is part of the mutable field allow-list.
func IsAllowedField(name string) bool {
	for _, f := range AllowedFields {
		if f == name {
			return true
		}
	}
	return false
}

// Customer represents a customer record.
type Customer struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
	Email      string `json:"email,omitempty" example:"jane@example.com"`
}

// Fields is a validated set of customer field values keyed by field name.
// It never contains the id.
type Fields map[string]string

// Apply copies the fields onto c, leaving fields absent from f untouched.
func (f Fields) Apply(c *Customer) {
	for name, value := range f {
		switch name {
		case FieldName:
			c.Name = value
		case FieldAddress:
			c.Address = value
		case FieldCity:
			c.City = value
		case FieldPostalCode:
			c.PostalCode = value
		case FieldCountry:
			c.Country = value
		case FieldEmail:
			c.Email = value
		}
	}
}
