package auth

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("nospace", func(fl validator.FieldLevel) bool {
		return !strings.ContainsFunc(fl.Field().String(), unicode.IsSpace)
	})
	return v
}

// RegisterRequest carries the constraints checked before any hashing happens.
type RegisterRequest struct {
	Username string  `validate:"required,min=1,max=32,nospace"`
	Password string  `validate:"required,min=1,max=72"`
	Email    *string `validate:"omitempty,email"`
}

func ValidateRegister(cmd domain.RegisterCommand) error {
	req := RegisterRequest{
		Username: cmd.Username,
		Password: cmd.Password,
		Email:    cmd.Email,
	}
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidRegistration, err)
	}
	return nil
}

type CreateRoomRequest struct {
	Name        string  `validate:"required,min=1,max=64"`
	Description *string `validate:"omitempty,max=256"`
}

func ValidateCreateRoom(cmd domain.CreateRoomCommand) error {
	if err := validate.Struct(CreateRoomRequest{Name: cmd.Name, Description: cmd.Description}); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidRoom, err)
	}
	return nil
}
