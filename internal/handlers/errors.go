package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/example/licenseportal/internal/apperr"
)

var kindStatus = map[apperr.Kind]int{
	apperr.KindValidation:         fiber.StatusBadRequest,
	apperr.KindProfileIncomplete:  fiber.StatusBadRequest,
	apperr.KindAlreadyVerified:    fiber.StatusBadRequest,
	apperr.KindInvalidCode:        fiber.StatusBadRequest,
	apperr.KindDuplicate:          fiber.StatusConflict,
	apperr.KindNotFound:           fiber.StatusNotFound,
	apperr.KindInvalidCredentials: fiber.StatusUnauthorized,
	apperr.KindRoleMismatch:       fiber.StatusUnauthorized,
	apperr.KindRateLimited:        fiber.StatusTooManyRequests,
	apperr.KindDelivery:           fiber.StatusBadGateway,
	apperr.KindConfiguration:      fiber.StatusInternalServerError,
}

// StatusFor maps an error kind onto its HTTP status.
func StatusFor(kind apperr.Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders every error as {success:false, type, message}. Duplicate
// errors add the colliding field and code errors add the rejection reason.
// Causes of server faults are logged, never returned.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if e, ok := apperr.As(err); ok {
			status := StatusFor(e.Kind)
			body := fiber.Map{
				"success": false,
				"type":    e.Kind,
				"message": e.Message,
			}
			if e.Field != "" {
				body["field"] = e.Field
			}
			if e.Reason != "" {
				body["reason"] = e.Reason
			}
			if status >= fiber.StatusInternalServerError || e.Kind == apperr.KindDelivery {
				log.Error("request failed", zap.String("path", c.Path()), zap.String("type", string(e.Kind)), zap.Error(err))
			}
			return c.Status(status).JSON(body)
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{
				"success": false,
				"type":    fiberErrorType(fe.Code),
				"message": fe.Message,
			})
		}

		log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"type":    apperr.KindInternal,
			"message": "internal server error",
		})
	}
}

func fiberErrorType(code int) string {
	switch code {
	case fiber.StatusBadRequest:
		return string(apperr.KindValidation)
	case fiber.StatusUnauthorized:
		return "UnauthorizedError"
	case fiber.StatusForbidden:
		return "ForbiddenError"
	case fiber.StatusNotFound:
		return string(apperr.KindNotFound)
	}
	if code >= fiber.StatusInternalServerError {
		return string(apperr.KindInternal)
	}
	return "RequestError"
}
