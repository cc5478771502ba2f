package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pdxmph/agenda-contatos/internal/cep"
	"github.com/pdxmph/agenda-contatos/internal/ui"
)

const (
	msgPostalNotFound = "CEP não encontrado!"
	msgPostalNetwork  = "Erro ao buscar CEP. Verifique sua conexão com a internet."
)

// Delays the host shell applies after a successful lookup
const (
	FocusDelay  = 100 * time.Millisecond
	SettleDelay = 2 * time.Second
)

// PostalMark is the visual state of the postal code field
type PostalMark int

const (
	MarkNone PostalMark = iota
	MarkPending
	MarkValid
	MarkInvalid
)

// PostalOutcome tells the host shell what a lookup did
type PostalOutcome int

const (
	PostalSkipped PostalOutcome = iota
	PostalFilled
	PostalNotFound
	PostalFailed
)

// PostalResult is returned by LookupPostalCode
type PostalResult struct {
	Outcome PostalOutcome
	// FocusDelay and SettleDelay are set when Outcome is PostalFilled: move
	// focus to the number field after FocusDelay and call SettlePostalCode
	// after SettleDelay.
	FocusDelay  time.Duration
	SettleDelay time.Duration
}

// LookupPostalCode fills the location fields from the draft's postal code.
// Codes without exactly 8 digits, or a lookup already running, are skipped.
func (s *Session) LookupPostalCode(ctx context.Context) (PostalResult, error) {
	s.mu.Lock()
	if s.state == Idle {
		s.mu.Unlock()
		return PostalResult{}, ErrIdle
	}
	digits := cep.Digits(s.draft.Endereco.CEP)
	if s.postal == nil || len(digits) != cep.Length || s.postalBusy {
		s.mu.Unlock()
		return PostalResult{Outcome: PostalSkipped}, nil
	}
	s.postalBusy = true
	s.postalMark = MarkPending
	epoch := s.epoch
	s.mu.Unlock()

	addr, err := s.postal.Lookup(ctx, digits)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		s.logger.Debug("discarding postal lookup", zap.String("cep", digits))
		return PostalResult{Outcome: PostalSkipped}, nil
	}

	switch {
	case err == nil:
		s.draft.Endereco.Estado = addr.Estado
		s.draft.Endereco.Cidade = addr.Cidade
		s.draft.Endereco.Bairro = addr.Bairro
		s.draft.Endereco.Logradouro = addr.Logradouro
		s.draft.Endereco.CEP = cep.Format(digits)
		s.postalMark = MarkValid
		s.mu.Unlock()
		return PostalResult{Outcome: PostalFilled, FocusDelay: FocusDelay, SettleDelay: SettleDelay}, nil

	case errors.Is(err, cep.ErrDisabled):
		s.postalMark = MarkNone
		s.postalBusy = false
		s.mu.Unlock()
		return PostalResult{Outcome: PostalSkipped}, nil

	case errors.Is(err, cep.ErrNotFound), errors.Is(err, cep.ErrInvalid):
		s.postalMark = MarkInvalid
		s.postalBusy = false
		s.mu.Unlock()
		s.notifier.Notify(ui.Error(msgPostalNotFound))
		return PostalResult{Outcome: PostalNotFound}, nil

	default:
		s.postalMark = MarkInvalid
		s.postalBusy = false
		s.mu.Unlock()
		s.logger.Warn("postal lookup failed", zap.String("cep", digits), zap.Error(err))
		s.notifier.Notify(ui.Error(msgPostalNetwork))
		return PostalResult{Outcome: PostalFailed}, fmt.Errorf("looking up cep %s: %w", digits, err)
	}
}

// SettlePostalCode clears the success marker and re-enables the field
func (s *Session) SettlePostalCode() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.postalMark == MarkValid {
		s.postalMark = MarkNone
		s.postalBusy = false
	}
}
