package main

import (
	"errors"
	"log"
	"net/http"
	"rentals/src/booking"
	"rentals/src/boot"
	"rentals/src/common"
	"rentals/src/middlewares"
	"rentals/src/models"
	"rentals/src/payment"
	"rentals/src/types"

	"github.com/gin-gonic/gin"
)

func checkoutHandlers(g *gin.RouterGroup, app *boot.App) *gin.RouterGroup {
	g.
		POST("/checkout", func(ctx *gin.Context) {
			var body types.CheckoutRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				log.Printf("[Checkout] invalid request: %s\n", err.Error())
				bindingFailure(ctx, err)
				return
			}
			start, _ := models.ParseDate(body.StartDate)
			end, _ := models.ParseDate(body.EndDate)
			actor := middlewares.CurrentActor(ctx)

			b, item, err := app.Bookings.CreatePending(ctx.Request.Context(), booking.CreateInput{
				RenterID:   actor.ID,
				RentalType: types.RentalType(body.RentalType),
				RentalID:   body.RentalID,
				StartDate:  start,
				EndDate:    end,
				Guests:     body.Guests,
			})
			if err != nil {
				abortWithError(ctx, "Checkout", err, http.StatusConflict)
				return
			}

			session, err := app.Payments.CreateSession(ctx.Request.Context(), b, item.Snapshot())
			if err != nil {
				// nothing was paid, the booking cannot be checked out anymore
				if _, xerr := app.Bookings.Expire(ctx.Request.Context(), b.ID); xerr != nil {
					log.Printf("[Checkout] could not expire %s: %s\n", b.ID, xerr.Error())
				}
				abortWithError(ctx, "Checkout", err, http.StatusConflict)
				return
			}

			ctx.JSON(http.StatusOK, gin.H{
				"success":     true,
				"redirectUrl": session.RedirectURL,
				"sessionId":   session.SessionID,
				"bookingId":   b.ID,
			})
		}).
		GET("/checkout/:sessionId", func(ctx *gin.Context) {
			var params types.SessionRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				bindingFailure(ctx, err)
				return
			}
			actor := middlewares.CurrentActor(ctx)
			found, err := app.Bookings.FindBySession(ctx.Request.Context(), params.SessionID)
			if err != nil {
				abortWithError(ctx, "CheckoutStatus", err, http.StatusConflict)
				return
			}
			b, err := app.Bookings.Get(ctx.Request.Context(), found.ID, actor)
			if err != nil {
				abortWithError(ctx, "CheckoutStatus", err, http.StatusConflict)
				return
			}

			status, err := app.Payments.RetrieveSessionStatus(ctx.Request.Context(), params.SessionID)
			if err != nil {
				abortWithError(ctx, "CheckoutStatus", err, http.StatusConflict)
				return
			}
			// the provider may have settled before its webhook reached us
			synced, err := common.ApplySessionStatus(ctx.Request.Context(), app.Bookings, b, status)
			if err != nil {
				if !errors.Is(err, booking.ErrInventoryConflict) && !errors.Is(err, booking.ErrInvalidTransition) {
					abortWithError(ctx, "CheckoutStatus", err, http.StatusConflict)
					return
				}
				if synced == nil {
					synced = b
				}
			}

			ctx.JSON(http.StatusOK, gin.H{
				"success":       true,
				"booking":       synced,
				"paymentStatus": status,
			})
		})

	return g
}

// localCheckoutRoutes stand in for the provider's hosted checkout page when
// no payment provider is configured.
func localCheckoutRoutes(g *gin.Engine, app *boot.App) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.
		GET("/local-checkout/:sessionId", func(ctx *gin.Context) {
			var params types.SessionRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				bindingFailure(ctx, err)
				return
			}
			status, err := app.Local.RetrieveSession(ctx.Request.Context(), params.SessionID)
			if err != nil {
				failure(ctx, http.StatusNotFound, err.Error())
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "session": status})
		}).
		POST("/local-checkout/:sessionId", func(ctx *gin.Context) {
			var params types.SessionRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				bindingFailure(ctx, err)
				return
			}
			var body struct {
				Outcome string `json:"outcome" binding:"required,oneof=paid expired"`
			}
			if err := ctx.ShouldBindJSON(&body); err != nil {
				bindingFailure(ctx, err)
				return
			}
			var status *payment.SessionStatus
			var err error
			if body.Outcome == "paid" {
				status, err = app.Local.Complete(params.SessionID)
			} else {
				status, err = app.Local.Expire(params.SessionID)
			}
			if err != nil {
				failure(ctx, http.StatusNotFound, err.Error())
				return
			}
			log.Printf("[LocalCheckout] session %s %s\n", status.SessionID, body.Outcome)

			b, err := app.Bookings.FindBySession(ctx.Request.Context(), params.SessionID)
			if err != nil {
				abortWithError(ctx, "LocalCheckout", err, http.StatusConflict)
				return
			}
			synced, err := common.ApplySessionStatus(ctx.Request.Context(), app.Bookings, b, status)
			if err != nil {
				abortWithError(ctx, "LocalCheckout", err, http.StatusConflict)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "booking": synced, "paymentStatus": status})
		})
	return apiv1
}
