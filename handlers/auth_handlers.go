// handlers/auth_handlers.go
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"portfolio/analytics/middleware"
	"portfolio/analytics/models"
	"portfolio/analytics/store"
	"portfolio/analytics/utils"
)

const tokenTTL = 24 * time.Hour

// OperatorRepository stores dashboard accounts.
type OperatorRepository interface {
	CreateOperator(ctx context.Context, email string, hashedPassword []byte) (*models.Operator, error)
	GetOperatorByEmail(ctx context.Context, email string) (*models.Operator, error)
}

type AuthHandlers struct {
	Operators OperatorRepository
	secret    []byte
}

func NewAuthHandlers(operators OperatorRepository, jwtSecret string) *AuthHandlers {
	return &AuthHandlers{Operators: operators, secret: []byte(jwtSecret)}
}

const minPasswordLen = 8

// SeedOperator creates the configured bootstrap operator unless it already exists. It
// reports whether a new account was created.
func SeedOperator(ctx context.Context, operators OperatorRepository, email, password string) (bool, error) {
	if len(password) < minPasswordLen {
		return false, fmt.Errorf("operator password must be at least %d characters", minPasswordLen)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hashing operator password: %w", err)
	}

	if _, err := operators.CreateOperator(ctx, email, hashedPassword); err != nil {
		if errors.Is(err, store.ErrOperatorExists) {
			return false, nil
		}
		return false, fmt.Errorf("creating operator %s: %w", email, err)
	}
	return true, nil
}

// CreateOperator registers a new dashboard account. The route sits behind DashboardAuth.
func (h *AuthHandlers) CreateOperator(c *gin.Context) {
	var req models.CreateOperatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("ERROR: Failed to hash password for %s: %v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	op, err := h.Operators.CreateOperator(c.Request.Context(), req.Email, hashedPassword)
	if err != nil {
		if errors.Is(err, store.ErrOperatorExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "Operator with this email already exists"})
			return
		}
		log.Printf("ERROR: Failed to create operator %s: %v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register operator"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Operator registered successfully", "email": op.Email})
}

// Login checks operator credentials and issues a JWT both as a cookie and in the body,
// so the CLI can reuse it as a bearer token.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	op, err := h.Operators.GetOperatorByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, store.ErrOperatorNotFound) {
			log.Printf("ERROR: Operator lookup failed for %s: %v", req.Email, err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword(op.HashedPassword, []byte(req.Password)); err != nil {
		log.Printf("Login failed for %s: password mismatch", req.Email)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := utils.GenerateJWT(h.secret, op, tokenTTL)
	if err != nil {
		log.Printf("ERROR: Failed to generate JWT for operator %d: %v", op.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate authentication token"})
		return
	}

	c.SetCookie(middleware.TokenCookie, token, int(tokenTTL/time.Second), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "email": op.Email, "token": token})
}

func (h *AuthHandlers) Logout(c *gin.Context) {
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
