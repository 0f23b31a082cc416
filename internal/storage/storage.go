package storage

import "errors"

var (
	ErrSourceExists   = errors.New("source exists")
	ErrSourceNotFound = errors.New("source not found")
)
