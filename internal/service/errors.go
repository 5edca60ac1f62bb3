package service

import "errors"

var (
	ErrExpired      = errors.New("record has expired")
	ErrWrongSession = errors.New("record belongs to a different session")
	ErrInvalidState = errors.New("sync record is not in conflict state")
	ErrValidation   = errors.New("invalid sync payload")
)
