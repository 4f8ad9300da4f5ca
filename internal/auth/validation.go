package auth

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	commonerrors "github.com/devsanjithm/accountd/internal/common/errors"
)

type RegisterInput struct {
	Email       string `validate:"required,email,max=254"`
	DisplayName string `validate:"max=100"`
	Password    string `validate:"required,min=8,max=72"`
}

type LoginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type ResetPasswordInput struct {
	Token       string `validate:"required"`
	NewPassword string `validate:"required,min=8,max=72"`
}

var ErrValidation = commonerrors.NewDomainError(
	"VALIDATION_FAILED",
	commonerrors.CategoryValidation,
	http.StatusBadRequest,
	"request validation failed",
)

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func (s *Service) validateInput(input any) error {
	if err := s.validate.Struct(input); err != nil {
		return ErrValidation.WithCause(err)
	}
	return nil
}
