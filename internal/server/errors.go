package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	authdomain "github.com/railzwaylabs/waterline/internal/auth/domain"
	"github.com/railzwaylabs/waterline/internal/authz"
	customerdomain "github.com/railzwaylabs/waterline/internal/customer/domain"
	deliverydomain "github.com/railzwaylabs/waterline/internal/delivery/domain"
	invoicedomain "github.com/railzwaylabs/waterline/internal/invoice/domain"
	productdomain "github.com/railzwaylabs/waterline/internal/product/domain"
	"github.com/railzwaylabs/waterline/pkg/db"
	"go.uber.org/zap"
)

var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalidRequest        = errors.New("invalid_request")
	ErrIdempotencyConflict   = errors.New("idempotency_key_reused")
	ErrIdempotencyInProgress = errors.New("idempotency_request_in_progress")
	ErrInternal              = errors.New("internal_error")
)

// ValidationError reports a single rejected request field.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func newValidationError(field, code, message string) error {
	return &ValidationError{Field: field, Code: code, Message: message}
}

func invalidRequestError() error {
	return ErrInvalidRequest
}

type errorDetail struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorBody struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []errorDetail `json:"details,omitempty"`
}

type statusMapping struct {
	target  error
	status  int
	message string
}

var errorStatuses = []statusMapping{
	{target: ErrUnauthorized, status: http.StatusUnauthorized},
	{target: authdomain.ErrInvalidCredentials, status: http.StatusUnauthorized},
	{target: authdomain.ErrInvalidToken, status: http.StatusUnauthorized},
	{target: authz.ErrForbidden, status: http.StatusForbidden},

	{target: deliverydomain.ErrNotFound, status: http.StatusNotFound, message: "delivery not found"},
	{target: deliverydomain.ErrCustomerNotFound, status: http.StatusNotFound, message: "customer not found"},
	{target: customerdomain.ErrNotFound, status: http.StatusNotFound, message: "customer not found"},
	{target: productdomain.ErrNotFound, status: http.StatusNotFound, message: "product not found"},
	{target: invoicedomain.ErrNotFound, status: http.StatusNotFound, message: "invoice not found"},
	{target: authdomain.ErrNotFound, status: http.StatusNotFound, message: "user not found"},

	{target: deliverydomain.ErrDuplicateDelivery, status: http.StatusBadRequest, message: "a delivery already exists for this customer on that day"},
	{target: customerdomain.ErrEmailExists, status: http.StatusBadRequest, message: "a customer with this email already exists"},
	{target: productdomain.ErrCodeExists, status: http.StatusBadRequest, message: "a product with this code already exists"},
	{target: authdomain.ErrEmailExists, status: http.StatusBadRequest, message: "a user with this email already exists"},
	{target: db.ErrConstraintViolation, status: http.StatusBadRequest, message: "already exists"},

	{target: deliverydomain.ErrInvalidReference, status: http.StatusBadRequest, message: "invalid customer or user reference"},
	{target: customerdomain.ErrInvalidUser, status: http.StatusBadRequest, message: "invalid user reference"},
	{target: db.ErrInvalidReference, status: http.StatusBadRequest, message: "invalid reference"},

	{target: deliverydomain.ErrDeliveryCancelled, status: http.StatusConflict, message: "delivery is cancelled"},
	{target: customerdomain.ErrHasDeliveries, status: http.StatusConflict, message: "customer still has deliveries"},
	{target: ErrIdempotencyInProgress, status: http.StatusConflict, message: "a request with this idempotency key is in progress"},
	{target: ErrIdempotencyConflict, status: http.StatusUnprocessableEntity, message: "idempotency key was used with a different request body"},

	{target: ErrInvalidRequest, status: http.StatusBadRequest, message: "invalid request"},
	{target: deliverydomain.ErrNoEntries, status: http.StatusBadRequest},
	{target: deliverydomain.ErrEntryDateRequired, status: http.StatusBadRequest},
	{target: deliverydomain.ErrInvalidStatus, status: http.StatusBadRequest},
	{target: deliverydomain.ErrInvalidPayment, status: http.StatusBadRequest},
	{target: deliverydomain.ErrInvalidRange, status: http.StatusBadRequest},
	{target: deliverydomain.ErrNegativeAmount, status: http.StatusBadRequest},
	{target: customerdomain.ErrInvalidName, status: http.StatusBadRequest},
	{target: customerdomain.ErrInvalidDay, status: http.StatusBadRequest},
	{target: productdomain.ErrInvalidCode, status: http.StatusBadRequest},
	{target: productdomain.ErrInvalidName, status: http.StatusBadRequest},
	{target: productdomain.ErrInvalidPrice, status: http.StatusBadRequest},
	{target: productdomain.ErrInvalidQuantity, status: http.StatusBadRequest},
	{target: authdomain.ErrInvalidRole, status: http.StatusBadRequest},
	{target: authdomain.ErrInvalidName, status: http.StatusBadRequest},
	{target: authdomain.ErrWeakPassword, status: http.StatusBadRequest},
}

// AbortWithError writes the JSON error envelope for err and stops the chain.
// Unmapped errors are logged and surface as a generic 500.
func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		err = ErrInternal
	}
	_ = c.Error(err)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]errorDetail, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, errorDetail{
				Field:   fieldPath(fe.Namespace()),
				Code:    fe.Tag(),
				Message: fe.Error(),
			})
		}
		abort(c, http.StatusBadRequest, errorBody{Code: ErrInvalidRequest.Error(), Message: "validation failed", Details: details})
		return
	}

	var fieldErr *deliverydomain.FieldError
	if errors.As(err, &fieldErr) {
		abort(c, http.StatusBadRequest, errorBody{
			Code:    ErrInvalidRequest.Error(),
			Message: "validation failed",
			Details: []errorDetail{{Field: fieldErr.Field, Code: fieldErr.Err.Error(), Message: humanize(fieldErr.Err.Error())}},
		})
		return
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		abort(c, http.StatusBadRequest, errorBody{
			Code:    ErrInvalidRequest.Error(),
			Message: valErr.Message,
			Details: []errorDetail{{Field: valErr.Field, Code: valErr.Code, Message: valErr.Message}},
		})
		return
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		abort(c, http.StatusBadRequest, errorBody{Code: ErrInvalidRequest.Error(), Message: "malformed request body"})
		return
	}

	for _, m := range errorStatuses {
		if errors.Is(err, m.target) {
			message := m.message
			if message == "" {
				message = humanize(m.target.Error())
			}
			abort(c, m.status, errorBody{Code: m.target.Error(), Message: message})
			return
		}
	}

	loggerFrom(c).Error("request failed",
		zap.String("route", c.FullPath()),
		zap.Any("params", c.Params),
		zap.Error(err),
	)
	abort(c, http.StatusInternalServerError, errorBody{Code: ErrInternal.Error(), Message: "internal server error"})
}

func abort(c *gin.Context, status int, body errorBody) {
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

// fieldPath drops the root struct name validator puts in front of the path.
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func humanize(code string) string {
	return strings.ReplaceAll(code, "_", " ")
}
