package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JavaZeroo/gitee-monitor/internal/domain"
	"github.com/JavaZeroo/gitee-monitor/internal/pkg/logger"
)

type ErrorCode string

const (
	CodeValidation    ErrorCode = "VALIDATION_ERROR"
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeAuth          ErrorCode = "AUTH_ERROR"
	CodeRateLimited   ErrorCode = "RATE_LIMITED"
	CodeUpstream      ErrorCode = "UPSTREAM_ERROR"
	CodeInternalError ErrorCode = "INTERNAL_ERROR"
)

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func WriteError(w http.ResponseWriter, err error, logger *logger.Logger) {
	status, response := mapError(err)

	if status < http.StatusInternalServerError {
		logger.Warn("request rejected",
			"error", err.Error(),
			"code", response.Error.Code,
		)
	} else {
		logger.Error("request failed",
			"error", err.Error(),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

func mapError(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, errorResponse(CodeValidation, err)

	case errors.Is(err, domain.ErrPRNotFound):
		return http.StatusNotFound, errorResponse(CodeNotFound, err)

	case errors.Is(err, domain.ErrAuth):
		return http.StatusBadGateway, errorResponse(CodeAuth, err)

	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusBadGateway, errorResponse(CodeRateLimited, err)

	case errors.Is(err, domain.ErrTransient):
		return http.StatusBadGateway, errorResponse(CodeUpstream, err)

	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    CodeInternalError,
				Message: "internal server error",
			},
		}
	}
}

func errorResponse(code ErrorCode, err error) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: err.Error(),
		},
	}
}
