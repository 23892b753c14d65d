package handlers

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/blockclash/blockclash-backend/logger"
	"github.com/blockclash/blockclash-backend/models"
	"github.com/blockclash/blockclash-backend/repository"
	"github.com/blockclash/blockclash-backend/responses"
	"github.com/blockclash/blockclash-backend/utils"
)

const sessionTokenTTL = 72 * time.Hour

type loginRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	ExperienceID string `json:"experienceId"`
}

func Register(w http.ResponseWriter, r *http.Request) {
	db := repository.PostgreSQLDB

	var user models.User
	err := json.NewDecoder(r.Body).Decode(&user)
	if err != nil {
		utils.HandleError(w, responses.BadRequestError{Msg: "Invalid request."})
		return
	}

	if len(user.Username) < 3 || len(user.Username) > 50 {
		utils.HandleError(w, responses.BadRequestError{Msg: "Username must be between 3 and 50 characters."})
		return
	}

	if len(user.Password) < 3 || len(user.Password) > 50 {
		utils.HandleError(w, responses.BadRequestError{Msg: "Password must be between 3 and 50 characters."})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.HandleError(w, responses.InternalServerError{Msg: "Failed to hash password."})
		return
	}
	user.Password = string(hashedPassword)

	_, err = db.Exec("INSERT INTO users (username, password) VALUES ($1, $2)", user.Username, user.Password)
	if err != nil {
		logger.Log.Errorw("create user failed", "username", user.Username, "error", err)
		utils.HandleError(w, responses.InternalServerError{Msg: "Failed to create user."})
		return
	}

	utils.HandleSuccess(w, models.SuccessResponse(map[string]string{"message": "User created successfully."}))
}

func Login(w http.ResponseWriter, r *http.Request) {
	db := repository.PostgreSQLDB

	var loginInfo loginRequest
	err := json.NewDecoder(r.Body).Decode(&loginInfo)
	if err != nil {
		utils.HandleError(w, responses.BadRequestError{Msg: "Invalid request."})
		return
	}

	var user models.User
	err = db.QueryRow("SELECT id, username, password FROM users WHERE username = $1", loginInfo.Username).Scan(&user.ID, &user.Username, &user.Password)
	if err != nil {
		if err == sql.ErrNoRows {
			utils.HandleError(w, responses.UnauthorizedError{Msg: "Invalid username or password."})
			return
		}
		logger.Log.Errorw("login query failed", "username", loginInfo.Username, "error", err)
		utils.HandleError(w, responses.InternalServerError{Msg: "An error occurred while processing your request."})
		return
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(loginInfo.Password))
	if err != nil {
		utils.HandleError(w, responses.UnauthorizedError{Msg: "Invalid username or password."})
		return
	}

	tokenString, err := issueSessionToken(user, loginInfo.ExperienceID)
	if err != nil {
		utils.HandleError(w, responses.InternalServerError{Msg: "Failed to generate token."})
		return
	}

	refreshToken, err := generateRefreshToken()
	if err != nil {
		utils.HandleError(w, responses.InternalServerError{Msg: "Failed to generate refresh token."})
		return
	}

	expiresAt := time.Now().Add(24 * time.Hour * 180)
	_, err = db.Exec("INSERT INTO refresh_tokens (user_id, token, expires_at) VALUES ($1, $2, $3)",
		user.ID, refreshToken, expiresAt)
	if err != nil {
		logger.Log.Errorw("store refresh token failed", "userId", user.ID, "error", err)
		utils.HandleError(w, responses.InternalServerError{Msg: "Failed to store refresh token."})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	utils.HandleSuccess(w, models.SuccessResponse(map[string]string{"session_token": tokenString}))
}

func issueSessionToken(user models.User, experienceID string) (string, error) {
	claims := models.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionTokenTTL)),
		},
		UserID:       strconv.FormatInt(user.ID, 10),
		Username:     user.Username,
		ExperienceID: experienceID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}

func generateRefreshToken() (string, error) {
	tokenBytes := make([]byte, 64)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(tokenBytes), nil
}

func Logout(w http.ResponseWriter, r *http.Request) {
	refreshTokenCookie, err := r.Cookie("refresh_token")
	db := repository.PostgreSQLDB

	if err == nil {
		_, dbErr := db.Exec("DELETE FROM refresh_tokens WHERE token = $1", refreshTokenCookie.Value)
		if dbErr != nil {
			logger.Log.Errorw("delete refresh token failed", "error", dbErr)
			utils.HandleError(w, responses.InternalServerError{Msg: "Failed to delete refresh token."})
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    "",
		Path:     "/",
		Expires:  time.Now().AddDate(0, 0, -1),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
	})

	utils.HandleSuccess(w, models.SuccessResponse(map[string]string{"message": "Logged out successfully."}))
}

func RefreshToken(w http.ResponseWriter, r *http.Request) {
	refreshTokenCookie, err := r.Cookie("refresh_token")
	if err != nil {
		utils.HandleError(w, responses.UnauthorizedError{Msg: "No refresh token found."})
		return
	}
	db := repository.PostgreSQLDB

	var userID int64
	var expiresAt time.Time
	err = db.QueryRow("SELECT user_id, expires_at FROM refresh_tokens WHERE token = $1", refreshTokenCookie.Value).Scan(&userID, &expiresAt)
	if err != nil {
		utils.HandleError(w, responses.UnauthorizedError{Msg: "Invalid refresh token."})
		return
	}

	if time.Now().After(expiresAt) {
		utils.HandleError(w, responses.UnauthorizedError{Msg: "Refresh token has expired."})
		return
	}

	var user models.User
	user.ID = userID
	err = db.QueryRow("SELECT username FROM users WHERE id = $1", userID).Scan(&user.Username)
	if err != nil {
		logger.Log.Errorw("refresh lookup failed", "userId", userID, "error", err)
		utils.HandleError(w, responses.InternalServerError{Msg: "An error occurred while processing your request."})
		return
	}

	tokenString, err := issueSessionToken(user, r.URL.Query().Get("experienceId"))
	if err != nil {
		utils.HandleError(w, responses.InternalServerError{Msg: "Failed to generate token."})
		return
	}

	utils.HandleSuccess(w, models.SuccessResponse(map[string]string{"session_token": tokenString}))
}

// ValidateToken parses and verifies a session token.
func ValidateToken(tokenStr string) (*models.SessionClaims, error) {
	secretKey := os.Getenv("JWT_SECRET")
	if secretKey == "" {
		return nil, fmt.Errorf("JWT_SECRET not set")
	}

	claims := &models.SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
