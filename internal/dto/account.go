package dto

import (
	"fmt"
	"time"

	dom "github.com/mattyz777/matt-conduit/internal/domain"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// CreateAccountRequest is the JSON body for POST /accounts.
type CreateAccountRequest struct {
	Username string     `json:"username" binding:"required,min=1,max=120"`
	Password string     `json:"password" binding:"required,min=1"`
	Age      *int32     `json:"age" binding:"omitempty,gte=0,lte=200"`
	Gender   dom.Gender `json:"gender" binding:"required"`
	Email    *string    `json:"email" binding:"omitempty,email,max=254"`
}

// UpdateAccountRequest is the JSON body for PATCH /accounts/:id.
// Age and email distinguish a missing key (keep) from null (clear).
type UpdateAccountRequest struct {
	Username *string              `json:"username" binding:"omitempty,min=1,max=120"`
	Password *string              `json:"password" binding:"omitempty,min=1"`
	Age      dom.Nullable[int32]  `json:"age" swaggertype:"integer"`
	Gender   *dom.Gender          `json:"gender"`
	Email    dom.Nullable[string] `json:"email" swaggertype:"string"`
}

// Validate checks the three-state fields that binding tags cannot reach.
func (r UpdateAccountRequest) Validate() error {
	if r.Age.Valid {
		if err := validate.Var(r.Age.Value, "gte=0,lte=200"); err != nil {
			return fmt.Errorf("age must be between 0 and 200")
		}
	}
	if r.Email.Valid {
		if err := validate.Var(r.Email.Value, "email,max=254"); err != nil {
			return fmt.Errorf("email is not a valid address")
		}
	}
	return nil
}

// LoginRequest is the JSON body for POST /accounts/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AccountResponse is the only outward shape of an account. It has no password field.
type AccountResponse struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Age       *int32     `json:"age"`
	Gender    dom.Gender `json:"gender" swaggertype:"string" enums:"Male,Female"`
	Email     *string    `json:"email"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewAccountResponse maps the entity to its public view.
func NewAccountResponse(a dom.Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID,
		Username:  a.Username,
		Age:       a.Age,
		Gender:    a.Gender,
		Email:     a.Email,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// Response is the envelope of every API reply. Code is 0 on success and the HTTP status otherwise.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// AccountEnvelope documents Response with an account payload.
type AccountEnvelope struct {
	Code    int             `json:"code" example:"0"`
	Message string          `json:"message" example:"success"`
	Data    AccountResponse `json:"data"`
}

// EmptyEnvelope documents Response with data: null.
type EmptyEnvelope struct {
	Code    int    `json:"code" example:"404"`
	Message string `json:"message" example:"account 7 not found"`
	Data    any    `json:"data"`
}
