package utils

import "errors"

var (
	ErrorRecordNotFound   = errors.New("record not found")
	ErrorInsufficientData = errors.New("insufficient data")
	ErrorModelUnavailable = errors.New("no trained model available")
)
