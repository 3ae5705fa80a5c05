package controllers

import (
	"net/http"

	"urbanconnect-be/middlewares"
	"urbanconnect-be/models"
	"urbanconnect-be/services"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	auth       *services.AuthService
	production bool
	domain     string
}

func NewAuthController(auth *services.AuthService, production bool, domain string) *AuthController {
	// For production, don't set domain to allow cross-origin cookies
	if production {
		domain = ""
	}
	return &AuthController{auth: auth, production: production, domain: domain}
}

func userBody(u *models.User) gin.H {
	body := gin.H{
		"id":        u.ID,
		"name":      u.Name,
		"email":     u.Email,
		"role":      u.Role,
		"createdAt": u.CreatedAt,
	}
	if u.Department != "" {
		body["department"] = u.Department
	}
	return body
}

// RegisterUser handles citizen registration
func (a *AuthController) RegisterUser(c *gin.Context) {
	var input struct {
		Name     string `json:"name" binding:"required,max=50"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := a.auth.Register(c.Request.Context(), input.Name, input.Email, input.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, userBody(user))
}

// LoginUser returns a token and sets it as an HttpOnly cookie
func (a *AuthController) LoginUser(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}

	token, user, err := a.auth.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middlewares.AuthCookie,
		Value:    token,
		MaxAge:   int(a.auth.TokenTTL().Seconds()),
		Path:     "/",
		Domain:   a.domain,
		Secure:   a.production,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})

	body := userBody(user)
	body["token"] = token
	c.JSON(http.StatusOK, body)
}

// GetMe retrieves the authenticated user's information
func (a *AuthController) GetMe(c *gin.Context) {
	user, err := a.auth.Me(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, userBody(user))
}

// LogoutUser clears the auth cookie
func (a *AuthController) LogoutUser(c *gin.Context) {
	c.SetCookie(middlewares.AuthCookie, "", -1, "/", a.domain, a.production, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
