package apperror

import (
	"net/http"
)

const (
	InternalServerCode    = "500000"
	InferenceCode         = "500011"
	EngineUnavailableCode = "503012"
	TimeoutCode           = "503014"
)

// 500 Internal Server Error
func ErrInternalServer(err error) Error {
	return NewError(err, http.StatusInternalServerError, InternalServerCode, "Internal Server Error")
}

func ErrInference(err error) Error {
	return NewError(err, http.StatusInternalServerError, InferenceCode, "Detection failed")
}

// 503 Service Unavailable
func ErrEngineUnavailable(err error) Error {
	return NewError(err, http.StatusServiceUnavailable, EngineUnavailableCode, "Detection engine is not available")
}

func ErrTimeout(err error) Error {
	return NewError(err, http.StatusServiceUnavailable, TimeoutCode, "Detection took too long, please try again")
}
