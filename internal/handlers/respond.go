package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mattyz777/matt-conduit/internal/apperr"
	"github.com/mattyz777/matt-conduit/internal/dto"
	"github.com/mattyz777/matt-conduit/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const internalErrorMessage = "internal server error"

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindMalformedRequest:
		return http.StatusBadRequest
	case apperr.KindInvalidCredential:
		return http.StatusUnauthorized
	case apperr.KindAccountNotFound:
		return http.StatusNotFound
	case apperr.KindDuplicateUsername:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.Response{Code: 0, Message: "success", Data: data})
}

// fail writes the envelope for err. 5xx details stay in the logs.
func fail(c *gin.Context, err error) {
	status := statusFor(apperr.KindOf(err))
	msg := apperr.DetailOf(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context(), nil).Error("request failed",
			zap.String("kind", apperr.KindOf(err).String()),
			zap.Error(err),
		)
		msg = internalErrorMessage
	}
	c.AbortWithStatusJSON(status, dto.Response{Code: status, Message: msg, Data: nil})
}

// bindFailure turns a JSON decode or binding error into a MalformedRequest.
func bindFailure(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, fieldMessage(fe))
		}
		return apperr.MalformedRequest(strings.Join(parts, "; "))
	}
	return apperr.MalformedRequest("malformed request body: " + err.Error())
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " is not a valid address"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed on %s", field, fe.Tag())
	}
}

func parseID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.MalformedRequest("invalid id")
	}
	return id, nil
}
