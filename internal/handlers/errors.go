package handlers

import (
	"context"
	"errors"

	"github.com/ethosradar/backend/internal/ethos"
	"github.com/ethosradar/backend/internal/r4r"
	"github.com/ethosradar/backend/pkg/logger"
	"github.com/ethosradar/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

// toAppError maps domain errors onto HTTP statuses.
func toAppError(err error) *response.AppError {
	var appErr *response.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, r4r.ErrUserNotFound):
		return response.NewNotFound("user not found")
	case errors.Is(err, ethos.ErrInvalidUserkey):
		return response.NewBadRequest("invalid userkey")
	case errors.Is(err, r4r.ErrNoData), errors.Is(err, ethos.ErrUpstream):
		return response.NewBadGateway("ethos api unavailable, please retry later")
	case errors.Is(err, context.DeadlineExceeded):
		return response.NewBadGateway("ethos api timed out")
	}
	return response.NewServerError("internal server error")
}

func respondError(c *gin.Context, err error) {
	appErr := toAppError(err)
	if appErr.HTTPStatus >= 500 {
		logger.Error().Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("path", c.Request.URL.Path).
			Msg("[API] Request failed")
	}
	response.Error(c, appErr)
}

// userkeyParam normalizes the :userkey path parameter.
func userkeyParam(c *gin.Context) (string, bool) {
	key, err := ethos.NormalizeUserkey(c.Param("userkey"))
	if err != nil {
		respondError(c, err)
		return "", false
	}
	return key, true
}
