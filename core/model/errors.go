package model

import "errors"

var (
	// ErrInputShape reports series whose lengths or indices do not line up.
	ErrInputShape = errors.New("input shape mismatch")
	// ErrDomain reports a parameter outside the range where the model is defined,
	// typically a zero or negative efficiency or timestep used as a divisor.
	ErrDomain = errors.New("parameter out of domain")
	// ErrInvariant reports a violated physical balance in a computed flow set.
	ErrInvariant = errors.New("energy balance violated")
)
