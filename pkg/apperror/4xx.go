package apperror

import (
	"net/http"
)

const (
	BindingCode          = "400001"
	ValidationCode       = "400002"
	EmptyFileCode        = "400008"
	FileTooLargeCode     = "413007"
	UnsupportedImageCode = "415009"
	NoDetectionsCode     = "422010"
	TooManyPixelsCode    = "413013"
)

// 400 Bad Request
func ErrInvalidRequest(err error) Error {
	return NewError(err, http.StatusBadRequest, BindingCode, "Invalid request")
}

func ErrInvalidParam(err error) Error {
	return NewError(err, http.StatusBadRequest, ValidationCode, "Invalid param")
}

func ErrEmptyFile(err error) Error {
	return NewError(err, http.StatusBadRequest, EmptyFileCode, "No image uploaded")
}

// 413 Request Entity Too Large
func ErrFileTooLarge(err error) Error {
	return NewError(err, http.StatusRequestEntityTooLarge, FileTooLargeCode, "Image is too large")
}

func ErrTooManyPixels(err error) Error {
	return NewError(err, http.StatusRequestEntityTooLarge, TooManyPixelsCode, "Image dimensions are too large")
}

// 415 Unsupported Media Type
func ErrUnsupportedImage(err error) Error {
	return NewError(err, http.StatusUnsupportedMediaType, UnsupportedImageCode, "Cannot read the uploaded file as an image")
}

// 422 Unprocessable Entity
func ErrNoDetections(err error) Error {
	return NewError(err, http.StatusUnprocessableEntity, NoDetectionsCode, "Nothing was detected in the image")
}
