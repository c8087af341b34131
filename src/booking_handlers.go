package main

import (
	"net/http"
	"rentals/src/boot"
	"rentals/src/middlewares"
	"rentals/src/models"
	"rentals/src/types"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func bookingID(ctx *gin.Context) (uuid.UUID, bool) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		bindingFailure(ctx, err)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(params.ID)
	if err != nil {
		failure(ctx, http.StatusBadRequest, "invalid booking id")
		return uuid.Nil, false
	}
	return id, true
}

func bookingHandlers(g *gin.RouterGroup, app *boot.App) *gin.RouterGroup {
	g.
		GET("/bookings", func(ctx *gin.Context) {
			actor := middlewares.CurrentActor(ctx)
			bookings, err := app.Bookings.ListForRenter(ctx.Request.Context(), actor.ID)
			if err != nil {
				abortWithError(ctx, "Bookings", err, http.StatusConflict)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "data": bookings, "count": len(bookings)})
		}).
		GET("/bookings/:id", func(ctx *gin.Context) {
			id, ok := bookingID(ctx)
			if !ok {
				return
			}
			b, err := app.Bookings.Get(ctx.Request.Context(), id, middlewares.CurrentActor(ctx))
			if err != nil {
				abortWithError(ctx, "Bookings", err, http.StatusConflict)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "data": b})
		}).
		POST("/bookings/:id/cancel", func(ctx *gin.Context) {
			id, ok := bookingID(ctx)
			if !ok {
				return
			}
			outcome, err := app.Bookings.Cancel(ctx.Request.Context(), id, middlewares.CurrentActor(ctx))
			if err != nil {
				abortWithError(ctx, "CancelBooking", err, http.StatusBadRequest)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"success":          true,
				"booking":          outcome.Booking,
				"refundAmount":     outcome.RefundAmount,
				"refundPercentage": outcome.RefundPercentage,
				"refundReference":  outcome.RefundReference,
			})
		}).
		PATCH("/bookings/:id/dates", func(ctx *gin.Context) {
			id, ok := bookingID(ctx)
			if !ok {
				return
			}
			var body types.UpdateBookingDatesRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				bindingFailure(ctx, err)
				return
			}
			if body.StartDate == nil && body.EndDate == nil {
				failure(ctx, http.StatusBadRequest, "startDate or endDate is required")
				return
			}
			var start, end *time.Time
			if body.StartDate != nil {
				d, _ := models.ParseDate(*body.StartDate)
				start = &d
			}
			if body.EndDate != nil {
				d, _ := models.ParseDate(*body.EndDate)
				end = &d
			}
			b, err := app.Bookings.UpdateDates(ctx.Request.Context(), id, middlewares.CurrentActor(ctx), start, end)
			if err != nil {
				abortWithError(ctx, "UpdateBookingDates", err, http.StatusConflict)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "data": b})
		})

	return g
}
