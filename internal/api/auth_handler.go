package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"resumeBuilder/internal/auth"
	"resumeBuilder/internal/database"
)

const (
	refreshTokenCookieName         = "refresh_token"
	refreshTokenBlacklistKeyPrefix = "auth:refresh:blacklist:"
	// 请求体只能读取一次，解析出的刷新令牌缓存在 gin 上下文中。
	refreshTokenBodyKey = "refreshTokenBody"

	loginRateLimitPerHour = 10
)

// AuthHandler 处理注册、登录、刷新与退出。
type AuthHandler struct {
	db                 *gorm.DB
	authService        *auth.AuthService
	redis              redis.UniversalClient
	logger             *slog.Logger
	loginLockThreshold int
	loginLockTTL       time.Duration
	cookieSecure       bool
}

// NewAuthHandler 构造认证处理器。
func NewAuthHandler(db *gorm.DB, authService *auth.AuthService, redisClient redis.UniversalClient, logger *slog.Logger, loginLockThreshold int, loginLockTTL time.Duration, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		db:                 db,
		authService:        authService,
		redis:              redisClient,
		logger:             logger,
		loginLockThreshold: loginLockThreshold,
		loginLockTTL:       loginLockTTL,
		cookieSecure:       cookieSecure,
	}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,max=128"`
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type userResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Register 创建新用户账号。
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	email := normalizeEmail(req.Email)
	logger := loggerFromContext(c, h.logger).With(slog.String("email", email))

	var existing database.User
	if err := h.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		logger.Info("register conflict: user already exists")
		Conflict(c, "User already exists")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("register lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	hashed, err := h.authService.HashPassword(req.Password)
	if err != nil {
		logger.Error("hash password failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	user := database.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hashed,
	}

	if err := h.db.WithContext(ctx).Create(&user).Error; err != nil {
		logger.Error("create user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("user registered", slog.Uint64("user_id", uint64(user.ID)))
	c.JSON(http.StatusCreated, userResponse{ID: user.ID, Name: user.Name, Email: user.Email})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresIn   int           `json:"expires_in"`
	User        *userResponse `json:"user,omitempty"`
}

// Login 校验口令并返回 Token。
// 同一 IP+邮箱 每小时最多尝试 loginRateLimitPerHour 次，连续失败达到阈值后临时锁定邮箱。
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	email := normalizeEmail(req.Email)
	logger := loggerFromContext(c, h.logger).With(slog.String("email", email))

	// redis 不可用时放行。
	if count, err := h.bumpCounter(ctx, loginRateKey(c.ClientIP(), email, time.Now()), time.Hour); err == nil && count > loginRateLimitPerHour {
		Error(c, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}
	if ttl, _ := h.redis.TTL(ctx, loginLockKey(email)).Result(); ttl > 0 {
		Error(c, http.StatusTooManyRequests, "account temporarily locked")
		return
	}

	var user database.User
	err := h.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		logger.Info("login failed: unknown email")
		h.recordLoginFailure(ctx, email)
		Unauthorized(c)
		return
	case err != nil:
		logger.Error("login query failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if !h.authService.CheckPasswordHash(req.Password, user.PasswordHash) {
		logger.Info("login failed: password mismatch", slog.Uint64("user_id", uint64(user.ID)))
		h.recordLoginFailure(ctx, email)
		Unauthorized(c)
		return
	}
	_ = h.redis.Del(ctx, loginFailKey(email)).Err()

	tokenPair, err := h.authService.GenerateTokenPair(user.ID)
	if err != nil {
		logger.Error("generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("user logged in", slog.Uint64("user_id", uint64(user.ID)))
	h.replyWithTokenPair(c, tokenPair, &userResponse{ID: user.ID, Name: user.Name, Email: user.Email})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh 校验刷新令牌并颁发新的 TokenPair，旧令牌随即作废。
func (h *AuthHandler) Refresh(c *gin.Context) {
	ctx := c.Request.Context()
	logger := loggerFromContext(c, h.logger)

	claims, ok := h.refreshClaims(c, logger)
	if !ok {
		Unauthorized(c)
		return
	}

	key := refreshBlacklistKey(claims.ID)
	switch err := h.redis.Get(ctx, key).Err(); {
	case err == nil:
		logger.Info("refresh token revoked", slog.String("jti", claims.ID))
		Unauthorized(c)
		return
	case !errors.Is(err, redis.Nil):
		logger.Error("refresh token blacklist lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
		logger.Info("refresh user not found", slog.Any("error", err))
		Unauthorized(c)
		return
	}

	tokenPair, err := h.authService.GenerateTokenPair(user.ID)
	if err != nil {
		logger.Error("refresh generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	if err := h.revokeRefreshToken(ctx, claims); err != nil {
		logger.Error("refresh revoke old token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.replyWithTokenPair(c, tokenPair, nil)
}

func (h *AuthHandler) replyWithTokenPair(c *gin.Context, tokenPair auth.TokenPair, user *userResponse) {
	ttl := h.authService.RefreshTokenTTL()
	if ttl <= 0 {
		ttl = time.Hour
	}
	h.writeRefreshCookie(c, tokenPair.RefreshToken, ttl)
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken: tokenPair.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.authService.AccessTokenTTL().Seconds()),
		User:        user,
	})
}

// Logout 将刷新令牌加入黑名单并清除 Cookie。
func (h *AuthHandler) Logout(c *gin.Context) {
	logger := loggerFromContext(c, h.logger)
	if h.extractRefreshToken(c) == "" {
		BadRequest(c, "refresh token missing")
		return
	}

	claims, ok := h.refreshClaims(c, logger)
	if !ok {
		Unauthorized(c)
		return
	}
	if err := h.revokeRefreshToken(c.Request.Context(), claims); err != nil {
		logger.Error("logout revoke token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.writeRefreshCookie(c, "", 0)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// refreshClaims 解析请求携带的刷新令牌，要求类型为 refresh 且带 jti。
func (h *AuthHandler) refreshClaims(c *gin.Context, logger *slog.Logger) (*auth.TokenClaims, bool) {
	token := h.extractRefreshToken(c)
	if token == "" {
		return nil, false
	}
	claims, err := h.authService.ValidateToken(token)
	switch {
	case err != nil:
		logger.Info("refresh token invalid", slog.Any("error", err))
		return nil, false
	case claims.TokenType != auth.TokenTypeRefresh:
		logger.Info("refresh token wrong type", slog.String("token_type", claims.TokenType))
		return nil, false
	case claims.ID == "":
		logger.Info("refresh token missing jti")
		return nil, false
	}
	return claims, true
}

func (h *AuthHandler) extractRefreshToken(c *gin.Context) string {
	if token, err := c.Cookie(refreshTokenCookieName); err == nil && token != "" {
		return token
	}
	if v, ok := c.Get(refreshTokenBodyKey); ok {
		return v.(string)
	}

	var req refreshRequest
	_ = c.ShouldBindJSON(&req)
	c.Set(refreshTokenBodyKey, req.RefreshToken)
	return req.RefreshToken
}

// writeRefreshCookie 写入刷新令牌 Cookie；ttl 为 0 时删除。
func (h *AuthHandler) writeRefreshCookie(c *gin.Context, value string, ttl time.Duration) {
	cookie := &http.Cookie{
		Name:     refreshTokenCookieName,
		Value:    value,
		MaxAge:   -1,
		Path:     "/",
		Secure:   h.isHTTPSRequest(c),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl > 0 {
		cookie.MaxAge = int(ttl.Seconds())
		cookie.Expires = time.Now().Add(ttl)
	}
	http.SetCookie(c.Writer, cookie)
}

func (h *AuthHandler) revokeRefreshToken(ctx context.Context, claims *auth.TokenClaims) error {
	ttl := h.authService.RefreshTokenTTL()
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return h.redis.Set(ctx, refreshBlacklistKey(claims.ID), "revoked", ttl).Err()
}

func (h *AuthHandler) isHTTPSRequest(c *gin.Context) bool {
	if h.cookieSecure || c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(c.Request.Header.Get("X-Forwarded-Proto"), "https")
}

// recordLoginFailure 累计失败次数，达到阈值后锁定邮箱 loginLockTTL。
func (h *AuthHandler) recordLoginFailure(ctx context.Context, email string) {
	count, err := h.bumpCounter(ctx, loginFailKey(email), h.loginLockTTL)
	if err != nil || count < int64(h.loginLockThreshold) {
		return
	}
	_ = h.redis.Set(ctx, loginLockKey(email), "1", h.loginLockTTL).Err()
}

// bumpCounter 自增计数键，首次创建时设置窗口期。
func (h *AuthHandler) bumpCounter(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := h.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = h.redis.Expire(ctx, key, window).Err()
	}
	return count, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func loginRateKey(ip, email string, now time.Time) string {
	return "rate:login:" + ip + ":" + email + ":" + now.UTC().Format("2006010215")
}

func loginFailKey(email string) string { return "lock:login:fail:" + email }

func loginLockKey(email string) string { return "lock:login:" + email }

func refreshBlacklistKey(jti string) string { return refreshTokenBlacklistKeyPrefix + jti }
