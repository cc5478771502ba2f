package tui

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/pdxmph/agenda-contatos/internal/birthday"
	"github.com/pdxmph/agenda-contatos/internal/contacts"
)

// phoneRegion is assumed for numbers typed without a country code
const phoneRegion = "BR"

// formatPhone renders a stored phone entry in national format. Entries that
// do not parse as a valid number are shown as typed.
func formatPhone(raw string) string {
	raw = strings.TrimSpace(raw)
	num, err := phonenumbers.Parse(raw, phoneRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return raw
	}
	if phonenumbers.GetRegionCodeForNumber(num) != phoneRegion {
		return phonenumbers.Format(num, phonenumbers.INTERNATIONAL)
	}
	return phonenumbers.Format(num, phonenumbers.NATIONAL)
}

// cardLines renders the detail card of a contact
func cardLines(c contacts.Contact, width int) []string {
	var lines []string

	lines = append(lines, c.Nome)
	lines = append(lines, strings.Repeat("─", max(width-2, 1)))
	lines = append(lines, "")

	nascimento := "Não informada"
	if c.DataNascimento != nil {
		nascimento = c.DataNascimento.Display()
	}
	lines = append(lines, "Data de Nascimento: "+nascimento)
	lines = append(lines, "")

	lines = append(lines, "Telefones:")
	if phones := contacts.CleanEntries(c.Telefones); len(phones) > 0 {
		for _, p := range phones {
			lines = append(lines, "  "+formatPhone(p))
		}
	} else {
		lines = append(lines, "  Sem telefone")
	}
	lines = append(lines, "")

	lines = append(lines, "Emails:")
	if emails := contacts.CleanEntries(c.Emails); len(emails) > 0 {
		for _, e := range emails {
			lines = append(lines, "  "+e)
		}
	} else {
		lines = append(lines, "  Sem email")
	}
	lines = append(lines, "")

	lines = append(lines, "Endereço:")
	if c.Endereco.HasLocation() {
		for _, l := range wrapText(c.Endereco.Format(), width-4) {
			lines = append(lines, "  "+l)
		}
	} else {
		lines = append(lines, "  Sem endereço")
	}

	return lines
}

// birthdayLine renders one entry of the birthday banner
func birthdayLine(m birthday.Match) string {
	return fmt.Sprintf("🎂 %s: Fazendo %d anos hoje!", m.Contact.Nome, m.Age)
}

// wrapText wraps text to fit within the specified width
func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{}
	}

	currentLine := words[0]
	for _, word := range words[1:] {
		if len(currentLine)+1+len(word) <= width {
			currentLine += " " + word
		} else {
			lines = append(lines, currentLine)
			currentLine = word
		}
	}
	if currentLine != "" {
		lines = append(lines, currentLine)
	}

	return lines
}
