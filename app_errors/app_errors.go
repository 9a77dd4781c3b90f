package app_errors

import (
	"fmt"
	"net/http"
)

type AppError struct {
	Code    int
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

func BadRequest(message string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: message}
}

func Unauthorized() *AppError {
	return &AppError{Code: http.StatusUnauthorized, Message: "authentication required"}
}

func NotFound(message string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: message}
}

func Internal(err error) *AppError {
	return &AppError{Code: http.StatusInternalServerError, Message: err.Error()}
}
