package main

import (
	"errors"
	"io"
	"log"
	"net/http"
	"rentals/src/boot"
	"rentals/src/webhook"

	"github.com/gin-gonic/gin"
)

const maxWebhookBodyBytes = int64(65536)

func paymentWebhookRoute(g *gin.Engine, app *boot.App) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/payment-webhook", func(ctx *gin.Context) {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxWebhookBodyBytes)
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				failure(ctx, http.StatusRequestEntityTooLarge, "payload too large")
				return
			}
			failure(ctx, http.StatusBadRequest, "could not read body")
			return
		}
		err = app.Webhooks.Ingest(ctx.Request.Context(), payload, ctx.GetHeader("Stripe-Signature"))
		switch {
		case err == nil:
			ctx.JSON(http.StatusOK, gin.H{"received": true})
		case errors.Is(err, webhook.ErrSignatureInvalid):
			failure(ctx, http.StatusBadRequest, "invalid signature")
		case errors.Is(err, webhook.ErrMalformedPayload):
			failure(ctx, http.StatusBadRequest, "malformed payload")
		default:
			log.Printf("[StripeEvent] Error processing event: %s\n", err.Error())
			failure(ctx, http.StatusInternalServerError, "event could not be processed")
		}
	})
	return apiv1
}
