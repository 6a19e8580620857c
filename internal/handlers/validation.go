package handlers

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/barberhq/barberhq/pkg/errors"
	"github.com/barberhq/barberhq/pkg/response"
	"github.com/barberhq/barberhq/pkg/validator"
)

// bindAndValidate binds the JSON body into target and runs struct validation.
// On failure it writes the error response and reports false.
func bindAndValidate(c *gin.Context, target any) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		response.Error(c, apperrors.NewValidation("Invalid request payload"))
		return false
	}
	if err := validator.ValidateStruct(target); err != nil {
		response.Error(c, apperrors.NewValidation(err.Error()))
		return false
	}
	return true
}
