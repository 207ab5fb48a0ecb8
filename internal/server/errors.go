package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	accountingdomain "github.com/smallbiznis/staypoint/internal/accounting/domain"
	apikeydomain "github.com/smallbiznis/staypoint/internal/apikey/domain"
	"github.com/smallbiznis/staypoint/internal/authorization"
	bookingdomain "github.com/smallbiznis/staypoint/internal/booking/domain"
	businessdomain "github.com/smallbiznis/staypoint/internal/business/domain"
	foliodomain "github.com/smallbiznis/staypoint/internal/folio/domain"
	revenuedomain "github.com/smallbiznis/staypoint/internal/revenue/domain"
	roomdomain "github.com/smallbiznis/staypoint/internal/room/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrBusinessRequired   = errors.New("business_required")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isForbiddenError(err):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "rate limited",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger: the payload type doubles as
// the error family, the first field code as the specific cause.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 && payload.Errors[0].Code != "" {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrBusinessRequired):
		return true
	case isRoomValidationError(err),
		isBookingValidationError(err),
		isFolioValidationError(err),
		isRevenueValidationError(err),
		isAccountingValidationError(err),
		isAPIKeyValidationError(err),
		isAuditValidationError(err):
		return true
	default:
		return false
	}
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, bookingdomain.ErrRateOverrideDenied),
		errors.Is(err, bookingdomain.ErrStatusOverrideDenied),
		errors.Is(err, accountingdomain.ErrPermissionDenied),
		errors.Is(err, apikeydomain.ErrPermissionDenied):
		return true
	default:
		return false
	}
}

// isConflictError groups the state conflicts: the request was well-formed
// but the entity is not in a state that permits it.
func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, bookingdomain.ErrInvalidTransition),
		errors.Is(err, foliodomain.ErrPaymentExceedsTotal),
		errors.Is(err, roomdomain.ErrRoomNotVacant),
		errors.Is(err, roomdomain.ErrRoomNotInMaintenance),
		errors.Is(err, roomdomain.ErrDuplicateRoomNumber),
		errors.Is(err, roomdomain.ErrDuplicateCategoryCode),
		errors.Is(err, bookingdomain.ErrSameRoom),
		errors.Is(err, accountingdomain.ErrAlreadyConnected):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, roomdomain.ErrRoomNotFound),
		errors.Is(err, roomdomain.ErrCategoryNotFound),
		errors.Is(err, bookingdomain.ErrBookingNotFound),
		errors.Is(err, revenuedomain.ErrBarSaleNotFound),
		errors.Is(err, revenuedomain.ErrExpenseNotFound),
		errors.Is(err, revenuedomain.ErrOtherRevenueNotFound),
		errors.Is(err, accountingdomain.ErrNotConnected),
		errors.Is(err, accountingdomain.ErrEntityNotFound),
		errors.Is(err, apikeydomain.ErrKeyNotFound),
		errors.Is(err, businessdomain.ErrBusinessNotFound),
		errors.Is(err, businessdomain.ErrMemberNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrBusinessRequired):
		return "business_required"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if code == "business_required" {
		return "business_id"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "business_required":
		return "business identity header is required"
	default:
		return "invalid value"
	}
}
