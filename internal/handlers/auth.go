package handlers

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"studyarchive/internal/apperr"
	"studyarchive/internal/middleware"
	"studyarchive/internal/services"
)

const captchaKey = "captcha_answer"

type AuthHandler struct {
	accounts       *services.AccountService
	captchaService *services.CaptchaService
	captchaEnabled bool
}

func NewAuthHandler(accounts *services.AccountService, captchaEnabled bool) *AuthHandler {
	return &AuthHandler{
		accounts:       accounts,
		captchaService: services.NewCaptchaService(),
		captchaEnabled: captchaEnabled,
	}
}

// Captcha 生成新的算术验证码，答案存在 session 里
func (h *AuthHandler) Captcha(c *gin.Context) {
	if !h.captchaEnabled {
		ok(c, gin.H{"enabled": false})
		return
	}
	question, answer := h.captchaService.GenerateMathProblem()
	session := sessions.Default(c)
	session.Set(captchaKey, answer)
	session.Save()
	ok(c, gin.H{"enabled": true, "question": question})
}

type registerRequest struct {
	services.RegisterInput
	Captcha string `json:"captcha"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}

	session := sessions.Default(c)
	if h.captchaEnabled {
		expected := session.Get(captchaKey)
		// Clear captcha after use
		session.Delete(captchaKey)
		session.Save()
		if !h.captchaService.Check(expected, req.Captcha) {
			fail(c, apperr.New(apperr.ValidationError, "wrong captcha"))
			return
		}
	}

	user, err := h.accounts.Register(c.Request.Context(), req.RegisterInput)
	if err != nil {
		fail(c, err)
		return
	}

	session.Set(middleware.SessionUserKey, user.ID)
	session.Save()
	created(c, user)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(middleware.SessionUserKey, user.ID)
	session.Save()
	ok(c, user)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	ok(c, nil)
}

// Me returns the identity of the caller; guests get the guest identity.
func (h *AuthHandler) Me(c *gin.Context) {
	ok(c, identity(c))
}
