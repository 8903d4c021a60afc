package services

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/ethosradar/backend/internal/config"
	"github.com/ethosradar/backend/internal/utils"
	"github.com/ethosradar/backend/pkg/logger"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

const RoleAdmin = "admin"

// AuthService authenticates the single configured operator account.
type AuthService struct {
	admin     *config.AdminConfig
	jwtConfig *config.JWTConfig
}

func NewAuthService(admin *config.AdminConfig, jwtCfg *config.JWTConfig) *AuthService {
	if admin.PasswordHash == "" {
		logger.Warnf("[Auth] No admin password hash configured, admin login is disabled")
	}
	return &AuthService{admin: admin, jwtConfig: jwtCfg}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token    string    `json:"token"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
	ExpireAt time.Time `json:"expire_at"`
}

// Login checks the credentials and issues an admin JWT.
func (s *AuthService) Login(req *LoginRequest) (*LoginResponse, error) {
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.admin.Username)) == 1
	// always run bcrypt so timing does not reveal the username
	passOK := utils.CheckPassword(req.Password, s.admin.PasswordHash)
	if !userOK || !passOK {
		return nil, ErrInvalidCredentials
	}

	hours := s.jwtConfig.ExpireHour
	if hours <= 0 {
		hours = 24
	}
	token, err := utils.GenerateToken(s.admin.Username, RoleAdmin, hours)
	if err != nil {
		return nil, err
	}

	logger.Infof("[Auth] Admin %s logged in", s.admin.Username)
	return &LoginResponse{
		Token:    token,
		Username: s.admin.Username,
		Role:     RoleAdmin,
		ExpireAt: time.Now().Add(time.Duration(hours) * time.Hour),
	}, nil
}
