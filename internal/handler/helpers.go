package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/chitedze/agroadvisor/internal/pkg/errcode"
	appErr "github.com/chitedze/agroadvisor/internal/pkg/errors"
	"github.com/chitedze/agroadvisor/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrTooMany), errors.Is(err, appErr.ErrRateLimited):
		response.Error(c, errcode.ErrTooMany, "too many requests")
	case errors.Is(err, appErr.ErrNotConfigured), errors.Is(err, appErr.ErrUnavailable):
		response.Error(c, errcode.ErrSearchUnavailable, "service unavailable")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
