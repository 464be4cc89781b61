// Package schema validates inbound block payloads before they reach the
// document model.
package schema

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"

	"ai-script-editor-service/internal/models"
	"ai-script-editor-service/internal/service/patch"
)

// ValidationError describes one invalid field.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got %v)", e.Field, e.Reason, e.Value)
}

// IsValidationError reports whether err contains a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Errors splits a combined validation error into its parts.
func Errors(err error) []error {
	return multierr.Errors(err)
}

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate checks a block, block list, attribute update or patch operation
// list. All problems are reported together.
func (v *Validator) Validate(payload any) error {
	var err error
	switch p := payload.(type) {
	case models.Block:
		err = validateAttributes("", p.Attributes)
	case []models.Block:
		for i, b := range p {
			err = multierr.Append(err, validateAttributes(fmt.Sprintf("blocks[%d].", i), b.Attributes))
		}
	case models.AttributeUpdate:
		err = validateUpdate(p)
	case []patch.Operation:
		for i, op := range p {
			if opErr := op.Validate(); opErr != nil {
				err = multierr.Append(err, &ValidationError{Field: fmt.Sprintf("operations[%d]", i), Value: op.Operation, Reason: opErr.Error()})
			}
		}
	default:
		err = &ValidationError{Field: "payload", Value: fmt.Sprintf("%T", payload), Reason: "unsupported type"}
	}
	if err != nil {
		log.Debug().Err(err).Msg("Payload rejected")
	}
	return err
}

func validateUpdate(u models.AttributeUpdate) error {
	var a models.Attributes
	if u.Break.IsSet() {
		b := u.Break.Value()
		a.Break = &b
	}
	if u.Emphasis.IsSet() {
		e := u.Emphasis.Value()
		a.Emphasis = &e
	}
	if u.Prosody.IsSet() {
		p := u.Prosody.Value()
		a.Prosody = &p
	}
	if u.Phoneme.IsSet() {
		p := u.Phoneme.Value()
		a.Phoneme = &p
	}
	if u.Voice.IsSet() {
		vv := u.Voice.Value()
		a.Voice = &vv
	}
	return validateAttributes("", a)
}

func validateAttributes(prefix string, a models.Attributes) error {
	var err error
	if a.Break != nil && a.Break.TimeMs < 0 {
		err = multierr.Append(err, &ValidationError{Field: prefix + "break.timeMs", Value: a.Break.TimeMs, Reason: "must not be negative"})
	}
	if a.Emphasis != nil {
		switch a.Emphasis.Level {
		case models.EmphasisStrong, models.EmphasisModerate, models.EmphasisReduced:
		default:
			err = multierr.Append(err, &ValidationError{Field: prefix + "emphasis.level", Value: a.Emphasis.Level, Reason: "unknown emphasis level"})
		}
	}
	if a.Prosody != nil {
		err = multierr.Append(err, validateProsody(prefix, *a.Prosody))
	}
	if a.Phoneme != nil {
		switch a.Phoneme.Alphabet {
		case models.AlphabetIPA, models.AlphabetXSampa:
		default:
			err = multierr.Append(err, &ValidationError{Field: prefix + "phoneme.alphabet", Value: a.Phoneme.Alphabet, Reason: "unknown alphabet"})
		}
		if a.Phoneme.Pronunciation == "" {
			err = multierr.Append(err, &ValidationError{Field: prefix + "phoneme.ph", Value: "", Reason: "required"})
		}
	}
	if a.Voice != nil && a.Voice.VoiceID == "" {
		err = multierr.Append(err, &ValidationError{Field: prefix + "voice.voiceId", Value: "", Reason: "required"})
	}
	return err
}

func validateProsody(prefix string, p models.Prosody) error {
	var err error
	switch p.Rate {
	case "", models.RateXSlow, models.RateSlow, models.RateMedium, models.RateFast, models.RateXFast:
	default:
		err = multierr.Append(err, &ValidationError{Field: prefix + "prosody.rate", Value: p.Rate, Reason: "unknown rate"})
	}
	switch p.Pitch {
	case "", models.PitchXLow, models.PitchLow, models.PitchMedium, models.PitchHigh, models.PitchXHigh:
	default:
		err = multierr.Append(err, &ValidationError{Field: prefix + "prosody.pitch", Value: p.Pitch, Reason: "unknown pitch"})
	}
	switch p.Volume {
	case "", models.VolumeSilent, models.VolumeXSoft, models.VolumeSoft, models.VolumeMedium, models.VolumeLoud, models.VolumeXLoud:
	default:
		err = multierr.Append(err, &ValidationError{Field: prefix + "prosody.volume", Value: p.Volume, Reason: "unknown volume"})
	}
	return err
}
