// CryptoClash - Multiplayer Crypto Trading Party Game
// Copyright 2026 boldnotbasic
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/boldnotbasic/cryptoclash-app-sub001

// Package validation checks and canonicalizes untrusted partial player
// records before they reach the room ledger.
//
// Validation uses go-playground/validator v10 via a thread-safe singleton
// instance. Canonicalization is performed by a Sanitizer, which carries an
// injectable clock so that the stamped LastUpdate is testable.
//
// Example usage:
//
//	s := validation.NewSanitizer(clockwork.NewRealClock())
//	record, err := s.Sanitize(update)
//	if err != nil {
//	    // update dropped, prior state untouched
//	}
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"

	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/models"
)

// ErrInvalidUpdate is returned (wrapped with field detail) when a partial
// player record fails validation. Callers drop the update and keep prior
// state; nothing here is fatal.
var ErrInvalidUpdate = errors.New("invalid player update")

// PlayerUpdate is an untrusted partial player record as delivered by the
// transport. Missing fields arrive as zero values; ID and Avatar are
// defaulted during sanitization.
type PlayerUpdate struct {
	ID     string `json:"id"`
	Name   string `json:"name" validate:"required"`
	Avatar string `json:"avatar"`
	// Portfolio quantities must each be numeric and non-negative. No upper
	// bounds are enforced.
	Portfolio      map[string]float64 `json:"portfolio" validate:"omitempty,dive,gte=0"`
	CashBalance    float64            `json:"cash_balance" validate:"gte=0"`
	PortfolioValue float64            `json:"portfolio_value" validate:"gte=0"`
	TotalValue     float64            `json:"total_value" validate:"gte=0"`
}

// singleton validator instance
var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator returns the singleton validator instance. The validator is
// thread-safe and caches struct metadata.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateUpdate checks a partial player record: name must be non-empty,
// all money fields and portfolio quantities must be non-negative. Returns
// nil on success or an error wrapping ErrInvalidUpdate.
func ValidateUpdate(u PlayerUpdate) error {
	if err := getValidator().Struct(u); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return fmt.Errorf("%w: %s", ErrInvalidUpdate, translate(fieldErrs))
		}
		return fmt.Errorf("%w: %v", ErrInvalidUpdate, err)
	}

	// Symbol keys are caller-controlled; a blank symbol would collide with
	// the implicit-zero comparison in the reconciler.
	for sym := range u.Portfolio {
		if strings.TrimSpace(sym) == "" {
			return fmt.Errorf("%w: portfolio contains a blank asset symbol", ErrInvalidUpdate)
		}
	}

	return nil
}

// translate converts validator field errors to a compact human-readable
// message.
func translate(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// Sanitizer canonicalizes validated player updates. It is pure over its
// argument plus the injected clock.
type Sanitizer struct {
	clock clockwork.Clock
}

// NewSanitizer creates a Sanitizer stamping records with the given clock.
func NewSanitizer(clock clockwork.Clock) *Sanitizer {
	return &Sanitizer{clock: clock}
}

// Sanitize validates the update and, on success, produces a canonical
// PlayerRecord:
//
//   - missing avatar defaults to models.DefaultAvatar
//   - money fields are rounded to 2 decimal places
//   - portfolio quantities are copied verbatim (fractional quantities are
//     meaningful, so no rounding)
//   - LastUpdate is stamped from the clock; any caller-supplied timestamp
//     is discarded at this stage
//
// The argument is never mutated.
func (s *Sanitizer) Sanitize(u PlayerUpdate) (models.PlayerRecord, error) {
	if err := ValidateUpdate(u); err != nil {
		return models.PlayerRecord{}, err
	}

	avatar := u.Avatar
	if avatar == "" {
		avatar = models.DefaultAvatar
	}

	portfolio := make(map[string]float64, len(u.Portfolio))
	for sym, qty := range u.Portfolio {
		portfolio[sym] = qty
	}

	return models.PlayerRecord{
		ID:             u.ID,
		Name:           u.Name,
		Avatar:         avatar,
		Portfolio:      portfolio,
		CashBalance:    models.RoundMoney(u.CashBalance),
		PortfolioValue: models.RoundMoney(u.PortfolioValue),
		TotalValue:     models.RoundMoney(u.TotalValue),
		LastUpdate:     s.clock.Now(),
	}, nil
}
