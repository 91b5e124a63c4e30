package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/neurowell/neurowell/config"
	"github.com/neurowell/neurowell/middleware"
	"github.com/neurowell/neurowell/models"
	"github.com/neurowell/neurowell/utils"
)

const providerLocal = "local"

// AuthController handles authentication related endpoints including local and third-party providers.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required,max=255"`
	Password string `json:"password" binding:"required"`
}

func normalizeEmail(s string) (string, bool) {
	addr, err := mail.ParseAddress(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return strings.ToLower(addr.Address), true
}

// SignUp creates an email/password account and starts a session.
func (a *AuthController) SignUp(ctx *gin.Context) {
	var req credentialsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	email, ok := normalizeEmail(req.Email)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid email address")
		return
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, err.Error())
		return
	}

	var existing int64
	if err := a.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ? AND provider = ?", email, providerLocal).
		Count(&existing).Error; err != nil {
		utils.Sugar.Errorw("signup lookup failed", "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to create user")
		return
	}
	if existing > 0 {
		utils.Error(ctx, http.StatusConflict, 40901, "email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}
	user := models.User{Email: email, PasswordHash: hash, Provider: providerLocal}
	if err := a.db.WithContext(ctx).Create(&user).Error; err != nil {
		// a concurrent signup for the same email won the unique index
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusConflict, 40901, "email already registered")
			return
		}
		utils.Sugar.Errorw("signup create failed", "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create user")
		return
	}

	a.startSession(ctx, user, http.StatusCreated)
}

// SignIn verifies credentials and starts a session.
func (a *AuthController) SignIn(ctx *gin.Context) {
	var req credentialsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}
	email, _ := normalizeEmail(req.Email)
	ip := ctx.ClientIP()
	if utils.SignInLocked(ip, email) {
		ctx.Header("Retry-After", strconv.Itoa(int(utils.SignInLockout.Seconds())))
		utils.Error(ctx, http.StatusTooManyRequests, 42902, "too many failed attempts, try again later")
		return
	}

	var user models.User
	err := a.db.WithContext(ctx).Where("email = ? AND provider = ?", email, providerLocal).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Sugar.Errorw("signin lookup failed", "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to sign in")
		return
	}
	if err != nil || !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.SignInFailed(ip, email)
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid email or password")
		return
	}

	a.startSession(ctx, user, http.StatusOK)
}

func (a *AuthController) startSession(ctx *gin.Context, user models.User, status int) {
	token, expires, err := utils.GenerateToken(user.ID, user.Email, 0)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	setSessionCookie(ctx, token, expires)
	utils.Respond(ctx, status, 0, "success", gin.H{
		"token":      token,
		"expires_at": utils.FormatTime(&expires),
		"user":       userResponse(user),
	})
}

// SignOut revokes the session token until its expiry and clears the cookie.
func (a *AuthController) SignOut(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	expiresAt := time.Now().Add(config.Get().TokenTTL)
	if claims, ok := ctx.Get(middleware.ContextClaimsKey); ok {
		if c, ok := claims.(*utils.Claims); ok && c.ExpiresAt != nil {
			expiresAt = c.ExpiresAt.Time
		}
	}
	if token != "" {
		utils.BlacklistToken(token, expiresAt)
	}
	clearSessionCookie(ctx)
	utils.Success(ctx, gin.H{"message": "signed out"})
}

// Me returns the current authenticated user's profile.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var user models.User
	err := a.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to load user")
		return
	}
	utils.Success(ctx, userResponse(user))
}

// OAuthRedirect generates a provider-specific authorization URL.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	cfg, err := oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	state := uuid.NewString()
	utils.SaveState(state, provider, 10*time.Minute)

	url := cfg.AuthCodeURL(state)
	if ctx.Query("redirect") == "1" {
		ctx.Redirect(http.StatusFound, url)
		return
	}
	utils.Success(ctx, gin.H{"authorization_url": url, "state": state})
}

// OAuthCallback exchanges the authorization code, finds or creates the user and starts a session.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	code := ctx.Query("code")
	state := ctx.Query("state")

	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "missing code or state")
		return
	}
	if !utils.ConsumeState(state, provider) {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid or expired state")
		return
	}

	cfg, err := oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	exchangeCtx, cancel := context.WithTimeout(ctx.Request.Context(), 10*time.Second)
	defer cancel()
	token, err := cfg.Exchange(exchangeCtx, code)
	if err != nil {
		utils.Sugar.Warnw("oauth exchange failed", "provider", provider, "err", err)
		utils.Error(ctx, http.StatusBadRequest, 40007, "failed to exchange code")
		return
	}

	info, err := fetchOAuthUser(exchangeCtx, provider, cfg.Client(exchangeCtx, token))
	if err != nil {
		utils.Sugar.Warnw("oauth user info failed", "provider", provider, "err", err)
		utils.Error(ctx, http.StatusBadGateway, 50205, "failed to load identity")
		return
	}

	user, err := a.findOrCreateOAuthUser(ctx, provider, info)
	if err != nil {
		utils.Sugar.Errorw("oauth persist user failed", "provider", provider, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50006, "failed to persist user")
		return
	}

	jwtToken, expires, err := utils.GenerateToken(user.ID, user.Email, 0)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	setSessionCookie(ctx, jwtToken, expires)

	next := "/home"
	if !user.OnboardingDone {
		next = "/auth/onboard"
	}
	ctx.Redirect(http.StatusFound, next)
}

func oauthConfig(provider string) (*oauth2.Config, error) {
	cfg := config.Get()
	switch provider {
	case "github":
		if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
			return nil, fmt.Errorf("github oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  cfg.OAuthRedirectBase + "/api/v1/auth/oauth/github/callback",
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}, nil
	case "google":
		if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
			return nil, fmt.Errorf("google oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.OAuthRedirectBase + "/api/v1/auth/oauth/google/callback",
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

type oauthUser struct {
	ID    string
	Name  string
	Email string
}

var oauthUserInfoURLs = map[string]string{
	"github": "https://api.github.com/user",
	"google": "https://www.googleapis.com/oauth2/v2/userinfo",
}

// fetchOAuthUser loads the identity through an oauth2-authenticated client.
func fetchOAuthUser(ctx context.Context, provider string, client *http.Client) (*oauthUser, error) {
	var payload struct {
		ID    json.Number `json:"id"`
		Login string      `json:"login"`
		Name  string      `json:"name"`
		Email string      `json:"email"`
	}
	if err := getJSON(ctx, client, oauthUserInfoURLs[provider], &payload); err != nil {
		return nil, err
	}
	u := &oauthUser{ID: payload.ID.String(), Name: fallback(payload.Name, payload.Login), Email: payload.Email}
	if provider == "github" && u.Email == "" {
		u.Email, _ = fetchGitHubEmail(ctx, client)
	}
	if u.ID == "" {
		return nil, fmt.Errorf("%s returned no user id", provider)
	}
	return u, nil
}

func fetchGitHubEmail(ctx context.Context, client *http.Client) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, client, "https://api.github.com/user/emails", &emails); err != nil {
		return "", err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	if len(emails) > 0 {
		return emails[0].Email, nil
	}
	return "", nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(out)
}

func (a *AuthController) findOrCreateOAuthUser(ctx context.Context, provider string, data *oauthUser) (*models.User, error) {
	db := a.db.WithContext(ctx)
	var user models.User
	err := db.Where("provider = ? AND provider_id = ?", provider, data.ID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		email, _ := normalizeEmail(data.Email)
		user = models.User{
			Email:      email,
			Provider:   provider,
			ProviderID: data.ID,
			Name:       utils.SanitizeString(data.Name, 128),
		}
		err := db.Create(&user).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// the same identity was created by a concurrent callback
			user = models.User{}
			err = db.Where("provider = ? AND provider_id = ?", provider, data.ID).First(&user).Error
		}
		if err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}
	if email, ok := normalizeEmail(data.Email); ok && email != user.Email {
		if err := db.Model(&user).Update("email", email).Error; err != nil {
			return nil, err
		}
	}
	return &user, nil
}

func fallback(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
