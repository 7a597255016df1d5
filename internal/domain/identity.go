package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Role is the kind of principal signed in.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleClient     Role = "CLIENTE"
	RoleAccountant Role = "CONTADOR"
)

// ParseRole maps the backend role vocabulary onto Role. Unknown or empty
// values map to RoleClient, the least privileged role.
func ParseRole(raw string) Role {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "ADMIN", "MASTER", "SUPORTE":
		return RoleAdmin
	case "CONTADOR", "ACCOUNTANT":
		return RoleAccountant
	default:
		return RoleClient
	}
}

// UnmarshalJSON never fails on an unknown role.
func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		// null or a non-string value
		*r = RoleClient
		return nil
	}
	*r = ParseRole(raw)
	return nil
}

// Label returns the Portuguese name of the role.
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Administrador"
	case RoleAccountant:
		return "Contador"
	default:
		return "Cliente"
	}
}

// ID is an opaque identifier. The backend sends either strings or numbers.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Identity is the signed-in principal.
type Identity struct {
	ID        ID     `json:"id"`
	Name      string `json:"nome"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	CompanyID *ID    `json:"empresaId,omitempty"`
}

// IsAccountant reports whether the principal must pick a company before
// reaching the main application area.
func (i *Identity) IsAccountant() bool {
	return i != nil && i.Role == RoleAccountant
}

// FirstName returns the first word of the display name.
func (i *Identity) FirstName() string {
	if i == nil {
		return ""
	}
	if fields := strings.Fields(i.Name); len(fields) > 0 {
		return fields[0]
	}
	return i.Email
}

// Amount is a monetary value. The backend sends it as a number or as a
// numeric string, sometimes with a decimal comma.
type Amount float64

// UnmarshalJSON accepts a JSON number, a numeric string or null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = 0
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		f, err := n.Float64()
		if err != nil {
			return err
		}
		*a = Amount(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*a = 0
		return nil
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*a = Amount(f)
	return nil
}
