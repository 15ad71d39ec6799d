package httputil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/talkbase/scheduling-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

// RespondWithCreated sends a success response for a newly created resource
func RespondWithCreated(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

// RespondWithError maps an application error onto its HTTP status. Slot
// conflicts carry the fresh alternative-slot list in the data payload so a
// caller can retry with a corrected time immediately.
func RespondWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"
	var data interface{}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
		switch appErr.Code {
		case apperrors.ErrInvalidArgument:
			status = http.StatusBadRequest
		case apperrors.ErrScheduleNotFound, apperrors.ErrServiceNotFound, apperrors.ErrAppointmentNotFound:
			status = http.StatusNotFound
		case apperrors.ErrSlotUnavailable, apperrors.ErrNoProviderAvailable:
			status = http.StatusConflict
			if appErr.Slots != nil {
				data = gin.H{"slots": appErr.Slots}
			}
		case apperrors.ErrRepository:
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, Response{
		Status:  "error",
		Message: message,
		Data:    data,
	})
}
