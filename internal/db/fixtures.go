package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pdxmph/agenda-contatos/internal/contacts"
)

// Fixtures returns realistic sample contacts. One of them has a birthday on today's date.
func Fixtures(today time.Time) []contacts.Contact {
	date := func(y int, m time.Month, d int) *contacts.Date {
		return &contacts.Date{Year: y, Month: m, Day: d}
	}

	return []contacts.Contact{
		{
			Nome:           "Ana Paula Ribeiro",
			DataNascimento: date(1990, time.May, 12),
			Telefones:      []string{"11987654321", "1133224455"},
			Emails:         []string{"ana.ribeiro@email.com.br"},
			Endereco: &contacts.Address{
				Estado:     "SP",
				Cidade:     "São Paulo",
				Bairro:     "Sé",
				Logradouro: "Praça da Sé",
				Numero:     "100",
				CEP:        "01001-000",
			},
		},
		{
			Nome:           "Bruno Carvalho",
			DataNascimento: date(1985, today.Month(), today.Day()),
			Telefones:      []string{"21998765432"},
			Emails:         []string{"bruno.carvalho@empresa.com", "bruno@pessoal.net"},
			Endereco: &contacts.Address{
				Estado:     "RJ",
				Cidade:     "Rio de Janeiro",
				Bairro:     "Copacabana",
				Logradouro: "Avenida Atlântica",
				Numero:     "1702",
				CEP:        "22021-001",
			},
		},
		{
			Nome:      "Carla Menezes",
			Telefones: []string{"31991234567"},
			Emails:    []string{},
		},
		{
			Nome:           "Daniel Souza",
			DataNascimento: date(2001, time.February, 28),
			Telefones:      []string{},
			Emails:         []string{"daniel.souza@universidade.edu.br"},
			Endereco: &contacts.Address{
				Estado: "MG",
				Cidade: "Belo Horizonte",
			},
		},
		{
			Nome:           "Fernanda Lima",
			DataNascimento: date(1978, time.October, 3),
			Telefones:      []string{"71988887777"},
			Emails:         []string{"fernanda.lima@email.com.br"},
			Endereco: &contacts.Address{
				Estado:     "BA",
				Cidade:     "Salvador",
				Bairro:     "Pelourinho",
				Logradouro: "Largo do Pelourinho",
				Numero:     "12",
				CEP:        "40026-280",
			},
		},
		{
			Nome:      "João Pedro Alves",
			Telefones: []string{"51999990000"},
			Emails:    []string{"joao.alves@email.com"},
		},
		{
			Nome:           "Joana Martins",
			DataNascimento: date(1995, time.December, 25),
			Telefones:      []string{"81977776666"},
			Emails:         []string{},
		},
	}
}

// CreateFixturesDatabase creates a database filled with sample contacts
func CreateFixturesDatabase(dbPath string) error {
	if err := Initialize(dbPath); err != nil {
		return fmt.Errorf("initializing fixtures database: %w", err)
	}

	database, err := Open(dbPath, nil)
	if err != nil {
		return fmt.Errorf("opening fixtures database: %w", err)
	}
	defer database.Close()

	ctx := context.Background()
	for _, c := range Fixtures(time.Now()) {
		c.ID = contacts.ID(uuid.NewString())
		if _, err := database.Create(ctx, c); err != nil {
			return fmt.Errorf("adding fixture contact %s: %w", c.Nome, err)
		}
	}

	return nil
}
