package handlers

import (
	"context"
	"net/http"

	"github.com/mattyz777/matt-conduit/internal/apperr"
	dom "github.com/mattyz777/matt-conduit/internal/domain"
	"github.com/mattyz777/matt-conduit/internal/dto"
	"github.com/mattyz777/matt-conduit/internal/service"

	"github.com/gin-gonic/gin"
)

// AccountService is what the HTTP layer needs from the account service.
type AccountService interface {
	Create(ctx context.Context, username, password string, age *int32, gender dom.Gender, email *string) (dom.Account, error)
	FindByID(ctx context.Context, id int64) (*dom.Account, error)
	Update(ctx context.Context, id int64, in service.UpdateInput) (dom.Account, error)
	Delete(ctx context.Context, id int64) error
	Authenticate(ctx context.Context, username, password string) (dom.Account, error)
}

type AccountHandler struct {
	svc AccountService
}

func NewAccountHandler(svc AccountService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// Create godoc
// @Summary      Register an account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateAccountRequest  true  "Account"
// @Success      200   {object}  dto.AccountEnvelope
// @Failure      400   {object}  dto.EmptyEnvelope
// @Failure      409   {object}  dto.EmptyEnvelope
// @Failure      500   {object}  dto.EmptyEnvelope
// @Router       /accounts [post]
func (h *AccountHandler) Create(c *gin.Context) {
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindFailure(err))
		return
	}

	a, err := h.svc.Create(c.Request.Context(), req.Username, req.Password, req.Age, req.Gender, req.Email)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, dto.NewAccountResponse(a))
}

// GetByID godoc
// @Summary      Get an account by ID
// @Tags         accounts
// @Produce      json
// @Param        id   path      int  true  "Account ID"
// @Success      200  {object}  dto.AccountEnvelope
// @Failure      400  {object}  dto.EmptyEnvelope
// @Failure      404  {object}  dto.EmptyEnvelope
// @Failure      500  {object}  dto.EmptyEnvelope
// @Router       /accounts/{id} [get]
func (h *AccountHandler) GetByID(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	a, err := h.svc.FindByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if a == nil {
		fail(c, apperr.AccountNotFound(id))
		return
	}
	ok(c, dto.NewAccountResponse(*a))
}

// Update godoc
// @Summary      Update an account
// @Description  Only present fields change. age and email accept null to clear them.
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        id    path      int  true  "Account ID"
// @Param        body  body      dto.UpdateAccountRequest  true  "Partial update"
// @Success      200   {object}  dto.AccountEnvelope
// @Failure      400   {object}  dto.EmptyEnvelope
// @Failure      404   {object}  dto.EmptyEnvelope
// @Failure      409   {object}  dto.EmptyEnvelope
// @Failure      500   {object}  dto.EmptyEnvelope
// @Router       /accounts/{id} [patch]
// @Router       /accounts/{id} [put]
func (h *AccountHandler) Update(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req dto.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindFailure(err))
		return
	}
	if err := req.Validate(); err != nil {
		fail(c, apperr.MalformedRequest(err.Error()))
		return
	}

	a, err := h.svc.Update(c.Request.Context(), id, service.UpdateInput{
		Username: req.Username,
		Password: req.Password,
		Age:      req.Age,
		Gender:   req.Gender,
		Email:    req.Email,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, dto.NewAccountResponse(a))
}

// Delete godoc
// @Summary      Soft-delete an account
// @Tags         accounts
// @Produce      json
// @Param        id   path      int  true  "Account ID"
// @Success      200  {object}  dto.EmptyEnvelope
// @Failure      400  {object}  dto.EmptyEnvelope
// @Failure      404  {object}  dto.EmptyEnvelope
// @Failure      500  {object}  dto.EmptyEnvelope
// @Router       /accounts/{id} [delete]
func (h *AccountHandler) Delete(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Response{Code: 0, Message: "deleted", Data: nil})
}

// Login godoc
// @Summary      Check a username and password
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        body  body      dto.LoginRequest  true  "Credentials"
// @Success      200   {object}  dto.AccountEnvelope
// @Failure      400   {object}  dto.EmptyEnvelope
// @Failure      401   {object}  dto.EmptyEnvelope
// @Failure      500   {object}  dto.EmptyEnvelope
// @Router       /accounts/login [post]
func (h *AccountHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindFailure(err))
		return
	}
	a, err := h.svc.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, dto.NewAccountResponse(a))
}

// RegisterAccountRoutes mounts the account endpoints on api.
func RegisterAccountRoutes(api *gin.RouterGroup, h *AccountHandler) {
	api.POST("/accounts", h.Create)
	api.POST("/accounts/login", h.Login)
	api.GET("/accounts/:id", h.GetByID)
	api.PATCH("/accounts/:id", h.Update)
	api.PUT("/accounts/:id", h.Update)
	api.DELETE("/accounts/:id", h.Delete)
}
