package engine

import "errors"

var (
	ErrInvalidDefinition  = errors.New("engine: invalid simulation definition")
	ErrInvalidDescription = errors.New("engine: invalid model description")
	ErrUnknownPath        = errors.New("engine: path not found in catalogue")
	ErrNotVariable        = errors.New("engine: path not marked variable")
	ErrFinalized          = errors.New("engine: simulation already finalized")
	ErrNotFinalized       = errors.New("engine: simulation not finalized")
)
