package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smartcontab/fiscalcore/internal/catalog/domain"
	docdomain "github.com/smartcontab/fiscalcore/internal/fiscaldoc/domain"
	ruledomain "github.com/smartcontab/fiscalcore/internal/fiscalrule/domain"
	saledomain "github.com/smartcontab/fiscalcore/internal/sale/domain"
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

var ErrInvalidRequest = errors.New("invalid_request")

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

	var parseErr *docdomain.ParseError
	if errors.As(err, &parseErr) {
		field := parseErr.Field
		if field == "" {
			field = "document"
		}
		return http.StatusBadRequest, errorPayload{
			Type:    "parse_error",
			Message: parseErr.Error(),
			Errors: []ValidationError{
				{
					Field:   field,
					Code:    "parse_error",
					Message: "malformed document field",
				},
			},
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case errors.Is(err, saledomain.ErrUnbalanced):
		// The document stays in draft; the caller corrects payments and
		// resubmits.
		return http.StatusConflict, errorPayload{
			Type:    "unbalanced",
			Message: "payments do not cover the grand total",
		}
	case errors.Is(err, saledomain.ErrNotDraft):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "sale is no longer editable",
		}
	case errors.Is(err, catalogdomain.ErrStockConflict):
		return http.StatusConflict, errorPayload{
			Type:    "stock_conflict",
			Message: "stock changed, please review and retry",
		}
	case errors.Is(err, ruledomain.ErrDuplicateRule),
		errors.Is(err, catalogdomain.ErrDuplicateItemCode):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
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
		errors.Is(err, ruledomain.ErrInvalidID),
		errors.Is(err, ruledomain.ErrInvalidJurisdiction),
		errors.Is(err, ruledomain.ErrInvalidOperationCode),
		errors.Is(err, ruledomain.ErrInvalidExitCode),
		errors.Is(err, ruledomain.ErrInvalidRate),
		errors.Is(err, catalogdomain.ErrInvalidID),
		errors.Is(err, catalogdomain.ErrInvalidCode),
		errors.Is(err, catalogdomain.ErrInvalidQuantity),
		errors.Is(err, catalogdomain.ErrInvalidPrice),
		errors.Is(err, docdomain.ErrInvalidID),
		errors.Is(err, docdomain.ErrEmptyDocument),
		errors.Is(err, saledomain.ErrInvalidID),
		errors.Is(err, saledomain.ErrInvalidInput),
		errors.Is(err, saledomain.ErrInvalidMethod):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ruledomain.ErrNotFound),
		errors.Is(err, catalogdomain.ErrNotFound),
		errors.Is(err, docdomain.ErrNotFound),
		errors.Is(err, saledomain.ErrNotFound),
		errors.Is(err, saledomain.ErrLineNotFound),
		errors.Is(err, saledomain.ErrItemNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

// classifyErrorForLog keeps expected business outcomes at a lower log
// level than real failures.
func classifyErrorForLog(err error) (string, string) {
	switch {
	case err == nil:
		return "", ""
	case docdomain.IsParseError(err):
		return "client", "parse_error"
	case isValidationError(err):
		return "client", err.Error()
	case errors.Is(err, saledomain.ErrUnbalanced),
		errors.Is(err, saledomain.ErrNotDraft),
		errors.Is(err, catalogdomain.ErrStockConflict),
		isNotFoundError(err):
		return "client", err.Error()
	default:
		return "server", "internal_error"
	}
}
