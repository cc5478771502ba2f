// Package birthday finds the contacts whose birthday is today.
package birthday

import (
	"time"

	"github.com/pdxmph/agenda-contatos/internal/contacts"
)

// Match is a contact celebrating today
type Match struct {
	Contact contacts.Contact
	Age     int
}

// Scan returns, in input order, the contacts born on today's month and day.
// Age is today's year minus the birth year, which is only correct on the birthday itself.
func Scan(list []contacts.Contact, today time.Time) []Match {
	_, month, day := today.Date()

	var matches []Match
	for _, c := range list {
		d := c.DataNascimento
		if d == nil || d.Month != month || d.Day != day {
			continue
		}
		matches = append(matches, Match{
			Contact: c.Clone(),
			Age:     today.Year() - d.Year,
		})
	}
	return matches
}
