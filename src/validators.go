package main

import (
	"rentals/src/models"
	"rentals/src/types"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var rentalTypeValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	return types.RentalType(fl.Field().String()).Valid()
}

var isoDateValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	_, err := models.ParseDate(fl.Field().String())
	return err == nil
}

// afterdate=Field passes when the date is strictly after the named sibling date.
var afterDateValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	date, err := models.ParseDate(fl.Field().String())
	if err != nil {
		return false
	}
	field := fl.Parent().FieldByName(fl.Param())
	if !field.IsValid() {
		return false
	}
	other, err := models.ParseDate(field.String())
	if err != nil {
		// reported by the other field's own rules
		return true
	}
	return date.After(other)
}

func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("rentaltype", rentalTypeValidatorFunc)
		v.RegisterValidation("isodate", isoDateValidatorFunc)
		v.RegisterValidation("afterdate", afterDateValidatorFunc)
	}
}
