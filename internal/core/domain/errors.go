package domain

import "errors"

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrHabitConflict      = errors.New("habit version conflict")
	ErrHabitAlreadyExists = errors.New("habit already exists")
	ErrInvalidRange       = errors.New("invalid date range")
)
