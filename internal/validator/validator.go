package validator

import "github.com/garrettladley/payrelay/internal/xerrors"

type Validator interface {
	// Validate validates the fields of the struct and returns a map of errors.
	// returns nil if no errors are found
	Validate() map[string]string
}

func Validate(v Validator) *xerrors.Error {
	if errs := v.Validate(); len(errs) > 0 {
		return xerrors.Validation(errs, xerrors.WithMessage("validation failed"))
	}
	return nil
}
