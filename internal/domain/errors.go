package domain

import "errors"

var (
	ErrFileUnreadable     = errors.New("file unreadable")
	ErrPathNotWatched     = errors.New("path not found")
	ErrPathAlreadyWatched = errors.New("path is already added")
	ErrRecordNotFound     = errors.New("upload record not found")
	ErrRecordNotFailed    = errors.New("upload record is not in failed state")
)
