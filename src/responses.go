package main

import (
	"errors"
	"log"
	"net/http"
	"rentals/src/booking"
	"rentals/src/payment"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func failure(ctx *gin.Context, status int, message string) {
	ctx.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// bindingFailure reports request binding errors, naming the offending fields.
func bindingFailure(ctx *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fields := make(gin.H, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request", "fields": fields})
		return
	}
	failure(ctx, http.StatusBadRequest, "invalid request")
}

// errorStatus maps domain errors to HTTP statuses. Invalid transitions are a
// conflict unless the caller treats them as bad input.
func errorStatus(err error, invalidTransition int) int {
	var verr *booking.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, booking.ErrBookingNotFound), errors.Is(err, booking.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, booking.ErrInvalidTransition):
		return invalidTransition
	case errors.Is(err, booking.ErrInventoryConflict), errors.Is(err, booking.ErrOverlappingBooking):
		return http.StatusConflict
	case errors.Is(err, booking.ErrRefundFailed), errors.Is(err, payment.ErrProvider):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func abortWithError(ctx *gin.Context, op string, err error, invalidTransition int) {
	status := errorStatus(err, invalidTransition)
	if status == http.StatusInternalServerError {
		log.Printf("[%s] Error: %s\n", op, err.Error())
		failure(ctx, status, "internal error")
		return
	}
	failure(ctx, status, err.Error())
}
