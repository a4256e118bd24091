package services

import (
	"context"
	cryptorand "crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/payquick/backend/internal/models"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"
)

type AuthService struct {
	db        *sql.DB
	redis     *redis.Client
	validator *validator.Validate
}

// RegisterRequest represents the registration request payload
// @Description Registration request structure
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email" example:"merchant@example.com"`
	Password string `json:"password" validate:"required,min=6" example:"password123"`
	Segment  string `json:"segment" validate:"required,oneof=ECOMMERCE MARKETPLACE SAAS MARKETING FINANCE EDUCATION HEALTH ENTERTAINMENT IGAMING OTHER"`
	Phone    string `json:"phone" validate:"required,min=10" example:"+5511987654321"`
	CNPJ     string `json:"cnpj" validate:"required,min=14" example:"12345678000190"`
	Username string `json:"username" validate:"required,min=3" example:"acme"`
	Name     string `json:"name" validate:"required,min=3" example:"Acme Ltda"`
	Address  string `json:"address" validate:"required,min=5"`
	City     string `json:"city" validate:"required,min=2"`
	State    string `json:"state" validate:"required,len=2"`
	Zip      string `json:"zip" validate:"required,min=8"`
}

// LoginRequest represents the login request payload
// @Description Login request structure
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required" example:"merchant@example.com"` // Email or username
	Password   string `json:"password" validate:"required,min=6" example:"password123"`
}

// AuthResponse represents the authentication response
// @Description Authentication response structure
type AuthResponse struct {
	Token string   `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	User  AuthUser `json:"user"`
}

// AuthUser is the user snapshot returned on register/login.
type AuthUser struct {
	ID       int            `json:"id" example:"1"`
	Email    string         `json:"email" example:"merchant@example.com"`
	Name     string         `json:"name" example:"Acme Ltda"`
	Username string         `json:"username" example:"acme"`
	Wallet   *models.Wallet `json:"wallet,omitempty"`
}

func NewAuthService(db *sql.DB, redisClient *redis.Client) *AuthService {
	return &AuthService{
		db:        db,
		redis:     redisClient,
		validator: validator.New(),
	}
}

func (s *AuthService) sendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	SendErrorResponse(w, message, statusCode, validationErr)
}

// Register handles user registration
// @Summary Register a new merchant
// @Description Register a new merchant account; a zeroed wallet is created in the same transaction
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration request"
// @Success 200 {object} AuthResponse "Registration successful"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 409 {object} ErrorResponse "User already exists"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /auth/register [post]
func (s *AuthService) Register(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Registration attempt from IP: %s", r.RemoteAddr)

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req RegisterRequest
	if err := dec.Decode(&req); err != nil {
		log.Printf("[AUTH] Registration failed - invalid request: %v", err)
		s.sendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		log.Printf("[AUTH] Multiple JSON objects detected")
		s.sendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		log.Printf("[AUTH] Registration validation failed: %v", err)
		s.sendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	log.Printf("[AUTH] Registration request for email: %s", req.Email)

	// Uniqueness across email, phone, cnpj and username
	var exists bool
	err := s.db.QueryRow(`
		SELECT EXISTS(
			SELECT 1 FROM users
			WHERE email = $1 OR phone = $2 OR cnpj = $3 OR username = $4
		)`, strings.ToLower(req.Email), req.Phone, req.CNPJ, req.Username).Scan(&exists)
	if err != nil {
		log.Printf("[AUTH] Uniqueness check failed for %s: %v", req.Email, err)
		s.sendErrorResponse(w, "Failed to create user", http.StatusInternalServerError, nil)
		return
	}
	if exists {
		s.sendErrorResponse(w, "User already exists with this email, phone, CNPJ or username", http.StatusConflict, nil)
		return
	}

	hashedPassword, err := hashPassword(req.Password)
	if err != nil {
		log.Printf("[AUTH] Password hashing failed for %s: %v", req.Email, err)
		s.sendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}

	// Start transaction
	tx, err := s.db.Begin()
	if err != nil {
		log.Printf("[AUTH] Transaction start failed for %s: %v", req.Email, err)
		s.sendErrorResponse(w, "Failed to create user", http.StatusInternalServerError, nil)
		return
	}
	defer tx.Rollback()

	var userID int
	err = tx.QueryRow(`
		INSERT INTO users (email, password, username, name, phone, cnpj, segment, address, city, state, zip, role, status, level)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'USER', 'INACTIVE', 'BRONZE')
		RETURNING id`,
		strings.ToLower(req.Email), hashedPassword, req.Username, req.Name, req.Phone,
		req.CNPJ, req.Segment, req.Address, req.City, req.State, req.Zip).Scan(&userID)
	if err != nil {
		log.Printf("[AUTH] User creation failed for %s: %v", req.Email, err)
		s.sendErrorResponse(w, "Failed to create user", http.StatusInternalServerError, nil)
		return
	}

	// New accounts start with a zeroed wallet in the same transaction
	_, err = tx.Exec(`
		INSERT INTO wallets (user_id, balance, available_balance, blocked_balance, version, updated_at)
		VALUES ($1, 0, 0, 0, 1, NOW())`, userID)
	if err != nil {
		log.Printf("[AUTH] Wallet creation failed for %s: %v", req.Email, err)
		s.sendErrorResponse(w, "Failed to create wallet", http.StatusInternalServerError, nil)
		return
	}

	if err = tx.Commit(); err != nil {
		log.Printf("[AUTH] Transaction commit failed for %s: %v", req.Email, err)
		s.sendErrorResponse(w, "Failed to create user", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] User created successfully - ID: %d, Email: %s", userID, req.Email)

	token, err := generateJWT(userID)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for user %d: %v", userID, err)
		s.sendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	response := AuthResponse{
		Token: token,
		User:  AuthUser{ID: userID, Email: strings.ToLower(req.Email), Name: req.Name, Username: req.Username},
	}

	log.Printf("[AUTH] Registration successful for user %d", userID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// Login handles user authentication
// @Summary Login user
// @Description Authenticate user with email or username and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} AuthResponse "Login successful"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Failure 403 {object} ErrorResponse "Account inactive or blocked"
// @Router /auth/login [post]
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Login attempt from IP: %s", r.RemoteAddr)

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req LoginRequest
	if err := dec.Decode(&req); err != nil {
		log.Printf("[AUTH] Login failed - invalid request: %v", err)
		s.sendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		log.Printf("[AUTH] Multiple JSON objects detected")
		s.sendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		log.Printf("[AUTH] Login validation failed: %v", err)
		s.sendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	var user AuthUser
	var hashedPassword, status string
	err := s.db.QueryRow(`
		SELECT id, email, name, username, password, status FROM users
		WHERE email = $1 OR username = $1`,
		strings.ToLower(req.Identifier)).Scan(
		&user.ID, &user.Email, &user.Name, &user.Username, &hashedPassword, &status)
	if err != nil {
		log.Printf("[AUTH] User not found for identifier: %s", req.Identifier)
		s.sendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	if status != models.UserActive {
		log.Printf("[AUTH] Inactive account login attempt: %s", req.Identifier)
		s.sendErrorResponse(w, "Account inactive or blocked", http.StatusForbidden, nil)
		return
	}

	if !verifyPassword(req.Password, hashedPassword) {
		log.Printf("[AUTH] Invalid password for user: %s", req.Identifier)
		s.sendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	var wallet models.Wallet
	err = s.db.QueryRow(`
		SELECT user_id, balance, available_balance, blocked_balance, version, updated_at
		FROM wallets WHERE user_id = $1`, user.ID).Scan(
		&wallet.UserID, &wallet.Balance, &wallet.AvailableBalance,
		&wallet.BlockedBalance, &wallet.Version, &wallet.UpdatedAt)
	if err == nil {
		user.Wallet = &wallet
	}

	token, err := generateJWT(user.ID)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for user %d: %v", user.ID, err)
		s.sendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] Login successful for user %d", user.ID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AuthResponse{Token: token, User: user})
}

// Logout handles user logout
// @Summary Logout user
// @Description Logout user and blacklist token
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string "Logout successful"
// @Router /auth/logout [post]
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("Authorization")
	if token != "" && len(token) > 7 {
		token = token[7:] // Remove "Bearer " prefix

		if s.redis != nil {
			ctx := context.Background()
			key := fmt.Sprintf("blacklist:%s", token)
			// Blacklist token until its expiration
			expiry := time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
			if err := s.redis.Set(ctx, key, "1", expiry).Err(); err != nil {
				log.Printf("[AUTH] Failed to blacklist token: %v", err)
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Logout successful"})
}

// Me retrieves the authenticated user's profile
// @Summary Get current user
// @Description Get the authenticated user's profile, wallet and level
// @Tags auth
// @Produce json
// @Success 200 {object} models.User "User profile"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "User not found"
// @Router /auth/me [get]
func (s *AuthService) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int)
	if !ok {
		s.sendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var user models.User
	err := s.db.QueryRow(`
		SELECT id, email, username, name, phone, cnpj, segment, role, status, level,
		       monthly_revenue, total_revenue, transaction_count, created_at, updated_at
		FROM users WHERE id = $1`, userID).Scan(
		&user.ID, &user.Email, &user.Username, &user.Name, &user.Phone, &user.CNPJ,
		&user.Segment, &user.Role, &user.Status, &user.Level,
		&user.MonthlyRevenue, &user.TotalRevenue, &user.TransactionCount,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			s.sendErrorResponse(w, "User not found", http.StatusNotFound, nil)
		} else {
			log.Printf("[AUTH] Failed to fetch user %d: %v", userID, err)
			s.sendErrorResponse(w, "Failed to fetch user", http.StatusInternalServerError, nil)
		}
		return
	}

	var wallet models.Wallet
	err = s.db.QueryRow(`
		SELECT user_id, balance, available_balance, blocked_balance, version, updated_at
		FROM wallets WHERE user_id = $1`, userID).Scan(
		&wallet.UserID, &wallet.Balance, &wallet.AvailableBalance,
		&wallet.BlockedBalance, &wallet.Version, &wallet.UpdatedAt)

	response := struct {
		models.User
		Wallet *models.Wallet `json:"wallet,omitempty"`
	}{User: user}
	if err == nil {
		response.Wallet = &wallet
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func generateJWT(userID int) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour).Unix(),
	})

	return token.SignedString([]byte(viper.GetString("jwt.secret_key")))
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, viper.GetInt("argon2.salt_length"))
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func verifyPassword(password, hashedPassword string) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return string(hash) == string(computedHash)
}
