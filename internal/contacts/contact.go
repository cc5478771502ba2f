package contacts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ErrNotFound is returned by stores when no contact matches an ID
var ErrNotFound = errors.New("contact not found")

// ID identifies a persisted contact. The service owns it; the client never assigns one.
type ID string

// UnmarshalJSON accepts both string and numeric identifiers
func (id *ID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decoding id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decoding id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Contact represents a person in the agenda
type Contact struct {
	ID             ID       `json:"id,omitempty"`
	Nome           string   `json:"nome"`
	DataNascimento *Date    `json:"dataNascimento"`
	Telefones      []string `json:"telefones"`
	Emails         []string `json:"emails"`
	Endereco       *Address `json:"endereco"`
}

// Address is the structured address of a contact. Every field is optional.
type Address struct {
	Estado     string `json:"estado"`
	Cidade     string `json:"cidade"`
	Bairro     string `json:"bairro"`
	Logradouro string `json:"logradouro"`
	Numero     string `json:"numero"`
	CEP        string `json:"cep"`
}

// IsPersisted reports whether the service has assigned an ID
func (c Contact) IsPersisted() bool {
	return c.ID != ""
}

// Clone returns a deep copy so callers can hand contacts across components safely
func (c Contact) Clone() Contact {
	out := c
	if c.DataNascimento != nil {
		d := *c.DataNascimento
		out.DataNascimento = &d
	}
	out.Telefones = slices.Clone(c.Telefones)
	out.Emails = slices.Clone(c.Emails)
	if c.Endereco != nil {
		a := *c.Endereco
		out.Endereco = &a
	}
	return out
}

// CloneAll deep-copies a collection
func CloneAll(in []Contact) []Contact {
	out := make([]Contact, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

// CleanEntries trims every entry and drops the empty ones. Never returns nil.
func CleanEntries(entries []string) []string {
	cleaned := make([]string, 0, len(entries))
	for _, e := range entries {
		if e = strings.TrimSpace(e); e != "" {
			cleaned = append(cleaned, e)
		}
	}
	return cleaned
}

// HasLocation reports whether the address carries enough to be worth displaying
func (a *Address) HasLocation() bool {
	return a != nil && (a.Logradouro != "" || a.Cidade != "" || a.Estado != "")
}

// Format renders the address as "logradouro, numero, bairro, cidade, estado, CEP: cep"
func (a *Address) Format() string {
	if a == nil {
		return ""
	}
	var parts []string
	for _, p := range []string{a.Logradouro, a.Numero, a.Bairro, a.Cidade, a.Estado} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if a.CEP != "" {
		parts = append(parts, "CEP: "+a.CEP)
	}
	return strings.Join(parts, ", ")
}

// Date is a calendar date without time of day or zone
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a YYYY-MM-DD string
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in t's location
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// String formats the date as YYYY-MM-DD
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Display formats the date the way Brazilian users read it (DD/MM/YYYY)
func (d Date) Display() string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, int(d.Month), d.Year)
}

// MarshalJSON encodes the date as "YYYY-MM-DD"
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a "YYYY-MM-DD" string
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding date: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MatchesName reports whether nome contains term, ignoring case. Spaces in term are significant.
func MatchesName(nome, term string) bool {
	return strings.Contains(strings.ToLower(nome), strings.ToLower(term))
}
