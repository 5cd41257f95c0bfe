package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/utils"
)

// AuthController serves the account pages under /auth/.
type AuthController struct {
	accounts *services.AccountService
	mailer   utils.MailSender
}

// NewAuthController creates an AuthController.
func NewAuthController(accounts *services.AccountService, mailer utils.MailSender) *AuthController {
	return &AuthController{accounts: accounts, mailer: mailer}
}

// Signup shows and handles the registration form with the anti-abuse checks.
func (a *AuthController) Signup(ctx *gin.Context) {
	if ctx.Request.Method != http.MethodPost {
		a.renderSignup(ctx, signupForm{}, services.ValidationErrors{})
		return
	}

	var form signupForm
	errs := bindForm(ctx, &form)
	cfg := config.Get()
	ip := ctx.ClientIP()

	if utils.RegistrationIsBanned(ip) {
		errs.Add("", "Too many failed registrations from your address. Try again later.")
		a.renderSignup(ctx, form, errs)
		return
	}
	if cfg.RegisterCaptchaEnabled && !utils.VerifyCaptcha(strings.TrimSpace(form.CaptchaID), strings.TrimSpace(form.CaptchaAnswer)) {
		errs.Add("captcha", "The captcha answer is wrong.")
	}
	if len(errs) > 0 {
		a.renderSignup(ctx, form, errs)
		return
	}
	if !utils.RegistrationCooldownTry(ip) {
		errs.Add("", "Too many requests. Please wait a moment and try again.")
		a.renderSignup(ctx, form, errs)
		return
	}
	if !utils.RegistrationDailyLimitCheck(ip) {
		errs.Add("", "The daily registration limit for your address has been reached.")
		a.renderSignup(ctx, form, errs)
		return
	}

	_, err := a.accounts.Register(ctx.Request.Context(), services.SignupInput{
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Username:  form.Username,
		Email:     form.Email,
		Password1: form.Password1,
		Password2: form.Password2,
	}, ip)
	var verrs services.ValidationErrors
	if errors.As(err, &verrs) {
		utils.RegistrationFailRecord(ip)
		a.renderSignup(ctx, form, verrs)
		return
	}
	if err != nil {
		serverError(ctx, err)
		return
	}
	utils.RegistrationDailyIncrement(ip)
	ctx.Redirect(http.StatusFound, "/")
}

// Login shows and handles the login form and follows a local ?next= target.
func (a *AuthController) Login(ctx *gin.Context) {
	next := ctx.Query("next")
	if ctx.Request.Method != http.MethodPost {
		a.renderLogin(ctx, loginForm{}, services.ValidationErrors{}, next)
		return
	}

	next = ctx.DefaultPostForm("next", next)
	var form loginForm
	errs := bindForm(ctx, &form)
	if len(errs) > 0 {
		a.renderLogin(ctx, form, errs, next)
		return
	}
	user, err := a.accounts.Authenticate(ctx.Request.Context(), form.Username, form.Password)
	if errors.Is(err, services.ErrBadLogin) {
		errs.Add("", services.ErrBadLogin.Error())
		a.renderLogin(ctx, form, errs, next)
		return
	}
	if err != nil {
		serverError(ctx, err)
		return
	}
	if _, err := middleware.StartSession(ctx, user); err != nil {
		serverError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, safeNext(next))
}

// Logout revokes the session token and shows the logged out page.
func (a *AuthController) Logout(ctx *gin.Context) {
	middleware.EndSession(ctx)
	page(ctx, http.StatusOK, "users/logged_out.html", nil)
}

// PasswordChange shows and handles the password change form.
func (a *AuthController) PasswordChange(ctx *gin.Context) {
	if ctx.Request.Method != http.MethodPost {
		page(ctx, http.StatusOK, "users/password_change_form.html", gin.H{"errors": services.ValidationErrors{}})
		return
	}
	var form passwordChangeForm
	errs := bindForm(ctx, &form)
	if len(errs) == 0 {
		viewer := middleware.Viewer(ctx)
		err := a.accounts.ChangePassword(ctx.Request.Context(), viewer, form.OldPassword, form.NewPassword1, form.NewPassword2)
		if !errors.As(err, &errs) {
			if err != nil {
				serverError(ctx, err)
				return
			}
			// The version bump logged out every session, this one included.
			if _, err := middleware.StartSession(ctx, viewer); err != nil {
				serverError(ctx, err)
				return
			}
			ctx.Redirect(http.StatusFound, "/auth/password_change/done/")
			return
		}
	}
	page(ctx, http.StatusOK, "users/password_change_form.html", gin.H{"errors": errs})
}

func (a *AuthController) PasswordChangeDone(ctx *gin.Context) {
	page(ctx, http.StatusOK, "users/password_change_done.html", nil)
}

// PasswordReset mails a reset link. The done page is shown whether or not the address is known.
func (a *AuthController) PasswordReset(ctx *gin.Context) {
	if ctx.Request.Method != http.MethodPost {
		page(ctx, http.StatusOK, "users/password_reset_form.html", gin.H{"form": passwordResetForm{}, "errors": services.ValidationErrors{}})
		return
	}
	var form passwordResetForm
	errs := bindForm(ctx, &form)
	if len(errs) == 0 {
		err := a.accounts.StartPasswordReset(ctx.Request.Context(), form.Email, siteURL(ctx), a.mailer)
		if !errors.As(err, &errs) {
			if err != nil {
				serverError(ctx, err)
				return
			}
			ctx.Redirect(http.StatusFound, "/auth/password_reset/done/")
			return
		}
	}
	page(ctx, http.StatusOK, "users/password_reset_form.html", gin.H{"form": form, "errors": errs})
}

func (a *AuthController) PasswordResetDone(ctx *gin.Context) {
	page(ctx, http.StatusOK, "users/password_reset_done.html", nil)
}

// PasswordResetConfirm sets a new password through a mailed link.
func (a *AuthController) PasswordResetConfirm(ctx *gin.Context) {
	uidb64, token := ctx.Param("uidb64"), ctx.Param("token")
	rctx := ctx.Request.Context()
	if _, err := a.accounts.CheckResetToken(rctx, uidb64, token); err != nil {
		if !errors.Is(err, services.ErrNotFound) {
			serverError(ctx, err)
			return
		}
		page(ctx, http.StatusOK, "users/password_reset_confirm.html", gin.H{"validlink": false, "errors": services.ValidationErrors{}})
		return
	}
	if ctx.Request.Method != http.MethodPost {
		page(ctx, http.StatusOK, "users/password_reset_confirm.html", gin.H{"validlink": true, "errors": services.ValidationErrors{}})
		return
	}

	var form setPasswordForm
	errs := bindForm(ctx, &form)
	if len(errs) == 0 {
		err := a.accounts.CompleteReset(rctx, uidb64, token, form.NewPassword1, form.NewPassword2)
		switch {
		case errors.As(err, &errs):
		case errors.Is(err, services.ErrNotFound):
			page(ctx, http.StatusOK, "users/password_reset_confirm.html", gin.H{"validlink": false, "errors": services.ValidationErrors{}})
			return
		case err != nil:
			serverError(ctx, err)
			return
		default:
			ctx.Redirect(http.StatusFound, "/auth/reset/done/")
			return
		}
	}
	page(ctx, http.StatusOK, "users/password_reset_confirm.html", gin.H{"validlink": true, "errors": errs})
}

func (a *AuthController) PasswordResetComplete(ctx *gin.Context) {
	page(ctx, http.StatusOK, "users/password_reset_complete.html", nil)
}

func (a *AuthController) renderSignup(ctx *gin.Context, form signupForm, errs services.ValidationErrors) {
	data := gin.H{"form": form, "errors": errs, "oauth_providers": oauthProviders()}
	if config.Get().RegisterCaptchaEnabled {
		id, b64, err := utils.GenerateCaptcha()
		if err != nil {
			serverError(ctx, err)
			return
		}
		data["captcha_id"] = id
		data["captcha_image"] = b64
	}
	page(ctx, http.StatusOK, "users/signup.html", data)
}

func (a *AuthController) renderLogin(ctx *gin.Context, form loginForm, errs services.ValidationErrors, next string) {
	page(ctx, http.StatusOK, "users/login.html", gin.H{
		"form":            form,
		"errors":          errs,
		"next":            next,
		"oauth_providers": oauthProviders(),
	})
}

// safeNext only allows redirects to local paths.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

// siteURL prefers the configured public URL and falls back to the request host.
func siteURL(ctx *gin.Context) string {
	if u := config.Get().SiteURL; u != "" {
		return u
	}
	scheme := "http"
	if ctx.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + ctx.Request.Host
}
