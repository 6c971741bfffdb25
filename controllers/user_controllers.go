package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/qrmenu/middlewares"
	"github.com/yeremiapane/qrmenu/models"
	"github.com/yeremiapane/qrmenu/services"
	"github.com/yeremiapane/qrmenu/utils"
)

const accessTokenCookie = "access_token"

type UserController struct {
	Auth *services.AuthService
}

func NewUserController(auth *services.AuthService) *UserController {
	return &UserController{Auth: auth}
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register -> sign up as an establishment owner
func (uc *UserController) Register(c *gin.Context) {
	var input services.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	user, err := uc.Auth.Register(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err, "register")
		return
	}
	utils.InfoLogger.Printf("New owner registered: %s", user.Email)
	utils.RespondJSON(c, http.StatusCreated, "Registration successful, check your email to confirm", user)
}

func (uc *UserController) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	token, user, err := uc.Auth.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		respondServiceError(c, err, "log in")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Login successful", authResponse{Token: token, User: user})
}

// LoginLink always answers the same way so it cannot be used to probe for
// accounts.
func (uc *UserController) LoginLink(c *gin.Context) {
	var input struct {
		Email string `json:"email" binding:"required"`
		Next  string `json:"next"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if _, err := uc.Auth.IssueLoginLink(c.Request.Context(), input.Email, safeNext(input.Next)); err != nil {
		respondServiceError(c, err, "issue login link")
		return
	}
	utils.RespondJSON(c, http.StatusAccepted, "If the address is registered, a sign-in link is on its way", nil)
}

// ConfirmEmail -> GET /auth/confirm?token=&next=
func (uc *UserController) ConfirmEmail(c *gin.Context) {
	user, err := uc.Auth.ConfirmEmail(c.Request.Context(), c.Query("token"))
	if err != nil {
		respondServiceError(c, err, "confirm email")
		return
	}

	if next := safeNext(c.Query("next")); next != "" {
		c.Redirect(http.StatusSeeOther, next)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Email confirmed", user)
}

// AuthCallback -> GET /auth/callback?code=&next=
// With next the token is handed over as a cookie before redirecting.
func (uc *UserController) AuthCallback(c *gin.Context) {
	token, user, err := uc.Auth.ExchangeLoginCode(c.Request.Context(), c.Query("code"))
	if err != nil {
		respondServiceError(c, err, "sign in")
		return
	}

	if next := safeNext(c.Query("next")); next != "" {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(accessTokenCookie, token, int(utils.AccessTTL().Seconds()), "/", "", c.Request.TLS != nil, true)
		c.Redirect(http.StatusSeeOther, next)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Login successful", authResponse{Token: token, User: user})
}

func (uc *UserController) Profile(c *gin.Context) {
	user, err := uc.Auth.Profile(c.Request.Context(), middlewares.CurrentUser(c).ID)
	if err != nil {
		respondServiceError(c, err, "load profile")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Profile", user)
}

func (uc *UserController) ListStaff(c *gin.Context) {
	est := middlewares.CurrentEstablishment(c)
	staff, err := uc.Auth.ListStaff(c.Request.Context(), est.ID)
	if err != nil {
		respondServiceError(c, err, "list staff")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of staff", staff)
}

func (uc *UserController) CreateStaff(c *gin.Context) {
	var input services.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	est := middlewares.CurrentEstablishment(c)
	staff, err := uc.Auth.CreateStaff(c.Request.Context(), est.ID, input)
	if err != nil {
		respondServiceError(c, err, "create staff")
		return
	}

	utils.InfoLogger.Printf("Staff %s added to establishment %d", staff.Email, est.ID)
	utils.RespondJSON(c, http.StatusCreated, "Staff created", staff)
}
