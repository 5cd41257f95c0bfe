package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

const passwordResetTTL = time.Hour

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// AccountService covers registration, credentials and external sign-in.
type AccountService struct {
	db *gorm.DB
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{db: db}
}

// SignupInput is the registration form.
type SignupInput struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password1 string
	Password2 string
}

// OAuthIdentity is the profile returned by an external provider.
type OAuthIdentity struct {
	ID          string
	Username    string
	DisplayName string
	Email       string
}

// Register validates the form and creates the account.
func (s *AccountService) Register(ctx context.Context, in SignupInput, ip string) (*models.User, error) {
	errs := ValidationErrors{}
	username := strings.TrimSpace(in.Username)
	switch {
	case username == "":
		errs.Add("username", "This field is required.")
	case len([]rune(username)) > 150:
		errs.Add("username", "Ensure this value has at most 150 characters.")
	case !usernamePattern.MatchString(username):
		errs.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	default:
		if _, err := FindUser(ctx, s.db, username); err == nil {
			errs.Add("username", "A user with that username already exists.")
		}
	}
	if in.Password1 == "" {
		errs.Add("password1", "This field is required.")
	}
	if in.Password2 == "" {
		errs.Add("password2", "This field is required.")
	}
	if in.Password1 != "" && in.Password2 != "" {
		if in.Password1 != in.Password2 {
			errs.Add("password2", "The two password fields didn't match.")
		} else {
			for _, p := range utils.ValidatePassword(in.Password1, username) {
				errs.Add("password2", p)
			}
		}
	}
	if err := errs.OrNil(); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(in.Password1)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		Username:     username,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
		RegisterIP:   ip,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate checks a username and password.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := FindUser(ctx, s.db, strings.TrimSpace(username))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrBadLogin
	}
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == "" || !utils.CheckPassword(user.PasswordHash, password) {
		return nil, ErrBadLogin
	}
	return user, nil
}

// UserByID loads an active user.
func (s *AccountService) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	return &u, nil
}

// ChangePassword replaces the password after checking the old one.
func (s *AccountService) ChangePassword(ctx context.Context, user *models.User, oldPassword, new1, new2 string) error {
	errs := ValidationErrors{}
	if user.PasswordHash != "" && !utils.CheckPassword(user.PasswordHash, oldPassword) {
		errs.Add("old_password", "Your old password was entered incorrectly. Please enter it again.")
	}
	validateNewPassword(errs, new1, new2, user.Username)
	if err := errs.OrNil(); err != nil {
		return err
	}
	return s.setPassword(ctx, user, new1)
}

// StartPasswordReset mails a single-use reset link to every account registered with email.
// Unknown addresses are silently ignored.
func (s *AccountService) StartPasswordReset(ctx context.Context, email, siteURL string, mailer utils.MailSender) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationErrors{"email": {"This field is required."}}
	}
	var users []models.User
	if err := s.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).Find(&users).Error; err != nil {
		return fmt.Errorf("find users by email: %w", err)
	}
	for _, u := range users {
		if !utils.CooldownTrySet("pwreset:"+strconv.FormatUint(uint64(u.ID), 10), time.Minute) {
			continue
		}
		token := uuid.NewString()
		utils.SaveToken(utils.TokenPasswordReset, token, strconv.FormatUint(uint64(u.ID), 10), passwordResetTTL)
		link := fmt.Sprintf("%s/auth/reset/%s/%s/", strings.TrimRight(siteURL, "/"), EncodeUID(u.ID), token)
		body := fmt.Sprintf("You're receiving this email because you requested a password reset for your user account %s.\n\n"+
			"Please go to the following page and choose a new password:\n\n%s\n\nThe link is valid for one hour.\n", u.Username, link)
		if err := mailer.Send(u.Email, "Password reset", body); err != nil {
			utils.Sugar.Errorw("send password reset mail", "user", u.ID, "err", err)
		}
	}
	return nil
}

// CheckResetToken returns the user a reset link belongs to without consuming it.
func (s *AccountService) CheckResetToken(ctx context.Context, uidb64, token string) (*models.User, error) {
	id, ok := DecodeUID(uidb64)
	if !ok {
		return nil, ErrNotFound
	}
	stored, ok := utils.PeekToken(utils.TokenPasswordReset, token)
	if !ok || stored != strconv.FormatUint(uint64(id), 10) {
		return nil, ErrNotFound
	}
	return s.UserByID(ctx, id)
}

// CompleteReset sets a new password through a reset link and invalidates the link.
func (s *AccountService) CompleteReset(ctx context.Context, uidb64, token, new1, new2 string) error {
	user, err := s.CheckResetToken(ctx, uidb64, token)
	if err != nil {
		return err
	}
	errs := ValidationErrors{}
	validateNewPassword(errs, new1, new2, user.Username)
	if err := errs.OrNil(); err != nil {
		return err
	}
	if _, ok := utils.ConsumeToken(utils.TokenPasswordReset, token); !ok {
		return ErrNotFound
	}
	return s.setPassword(ctx, user, new1)
}

// UpsertOAuthUser finds the account linked to an external identity or creates one.
func (s *AccountService) UpsertOAuthUser(ctx context.Context, provider string, id *OAuthIdentity) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("provider = ? AND provider_id = ?", provider, id.ID).First(&user).Error
	if err == nil {
		if email := strings.TrimSpace(id.Email); email != "" && email != user.Email {
			s.db.WithContext(ctx).Model(&user).Update("email", email)
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	first, last, _ := strings.Cut(strings.TrimSpace(id.DisplayName), " ")
	user = models.User{
		Username:   s.ensureUniqueUsername(ctx, id.Username, provider, id.ID),
		FirstName:  first,
		LastName:   last,
		Email:      strings.TrimSpace(id.Email),
		Provider:   provider,
		ProviderID: id.ID,
		RegisterIP: "oauth",
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create oauth user: %w", err)
	}
	return &user, nil
}

func (s *AccountService) setPassword(ctx context.Context, user *models.User, password string) error {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	err = s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"password_hash":   hash,
		"session_version": gorm.Expr("session_version + ?", 1),
	}).Error
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	user.PasswordHash = hash
	user.SessionVersion++
	return nil
}

func (s *AccountService) ensureUniqueUsername(ctx context.Context, base, provider, id string) string {
	base = sanitizeUsername(base)
	if base == "" {
		base = sanitizeUsername(fmt.Sprintf("%s_%s", provider, id))
		if base == "" {
			base = fmt.Sprintf("user_%s", id)
		}
	}

	candidate := base
	suffix := 1
	for {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.User{}).Unscoped().Where("username = ?", candidate).Count(&count).Error; err != nil {
			return candidate
		}
		if count == 0 {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", base, suffix)
		suffix++
	}
}

func validateNewPassword(errs ValidationErrors, new1, new2, username string) {
	if new1 == "" {
		errs.Add("new_password1", "This field is required.")
	}
	if new2 == "" {
		errs.Add("new_password2", "This field is required.")
	}
	if new1 == "" || new2 == "" {
		return
	}
	if new1 != new2 {
		errs.Add("new_password2", "The two password fields didn't match.")
		return
	}
	for _, p := range utils.ValidatePassword(new1, username) {
		errs.Add("new_password2", p)
	}
}

func sanitizeUsername(input string) string {
	input = strings.ToLower(strings.TrimSpace(input))
	var builder strings.Builder
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == '_' || r == '-' || r == '.' || r == '@' || r == '+':
			builder.WriteRune('_')
		}
	}
	return strings.Trim(builder.String(), "_")
}

// EncodeUID renders a user id the way reset links carry it.
func EncodeUID(id uint) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatUint(uint64(id), 10)))
}

// DecodeUID reverses EncodeUID.
func DecodeUID(s string) (uint, bool) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return 0, false
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
