package controllers

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"file-approval-api/middleware"
	"file-approval-api/models"
	"file-approval-api/services"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token   string          `json:"token"`
	User    models.Identity `json:"user"`
	Message string          `json:"message"`
}

// Login handles user authentication against the identity source.
func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	verifier, ok := identity.(services.CredentialVerifier)
	if !ok {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Identity source does not support password login"})
		return
	}

	actor, passwordHash, err := verifier.VerifyCredentials(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, err := generateToken(actor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:   token,
		User:    actor,
		Message: "Login successful",
	})
}

// GetProfile returns the current actor's role and team assignment.
func GetProfile(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}
	actor, err := identity.GetIdentity(c.Request.Context(), username)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": actor})
}

func generateToken(actor models.Identity) (string, error) {
	claims := middleware.Claims{
		Username: actor.Username,
		Role:     actor.Role,
		Teams:    actor.Teams,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   actor.Username,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}
