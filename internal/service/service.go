package service

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrCutNotFound     = errors.New("cut not found")
	ErrSegmentNotFound = errors.New("segment not found")
	ErrEntityNotFound  = errors.New("entity not found")

	ErrInvalidTime     = errors.New("cut time must be a finite number")
	ErrInvalidDuration = errors.New("source duration must be a finite non-negative number")
	ErrInvalidParams   = errors.New("volumes must be finite numbers")
	ErrInvalidGap      = errors.New("minimum gap duration must be positive")
	ErrEmptyFile       = errors.New("file is empty")

	// Precondition violations.
	ErrNotAnalyzed      = errors.New("segment has no gap analysis: analyze it first")
	ErrNoGaps           = errors.New("analysis found no gaps to remove")
	ErrNothingSelected  = errors.New("no segments selected for export")
	ErrNothingToApply   = errors.New("nothing to apply: separate audio or upload custom audio first")
	ErrNothingToRevert  = errors.New("nothing to revert")
	ErrAlreadySeparated = errors.New("audio is already separated")
	ErrBusy             = errors.New("entity is being processed, try again later")
	ErrAudioApplied     = errors.New("entity has applied audio: revert it first")
)
