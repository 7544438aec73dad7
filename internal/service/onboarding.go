package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/pathlab-auth/internal/apperror"
	"github.com/iliyamo/pathlab-auth/internal/config"
	"github.com/iliyamo/pathlab-auth/internal/model"
	"github.com/iliyamo/pathlab-auth/internal/observability"
	"github.com/iliyamo/pathlab-auth/internal/repository"
	"github.com/iliyamo/pathlab-auth/internal/utils"
)

// Notifier delivers the verification code to the lab owner.
type Notifier interface {
	SendVerification(ctx context.Context, name, email, otp string) error
}

// AdminStore is the durable admin table.
type AdminStore interface {
	ExistsByEmailOrContact(ctx context.Context, email, contact string) (bool, error)
	FindByEmail(ctx context.Context, email string) (*model.Admin, error)
	Create(ctx context.Context, a *model.Admin) error
}

// PendingStore holds the OTP and the staged registration until
// verification.  Implemented by repository.OnboardingCache.
type PendingStore interface {
	Stage(ctx context.Context, p model.PendingAdmin, otp string, otpTTL, pendingTTL time.Duration) error
	OTP(ctx context.Context, email string) (string, error)
	Pending(ctx context.Context, email string) (model.PendingAdmin, error)
	Clear(ctx context.Context, email string) error
}

// OnboardRequest is the lab owner signup form.
type OnboardRequest struct {
	LabName          string `json:"labName"`
	OwnerName        string `json:"ownerName"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	ContactNumber    string `json:"contactNumber"`
	PreviousSoftware string `json:"previousSoftware"`
}

// OnboardingService runs the OTP-gated admin signup:
// request -> OTP sent -> verified -> admin created.
type OnboardingService struct {
	admins   AdminStore
	pending  PendingStore
	notifier Notifier
	limiter  Limiter
	hasher   utils.Hasher
	cfg      config.OnboardingConfig
	otpRe    *regexp.Regexp
	log      *logrus.Logger
	metrics  *observability.Metrics
}

func NewOnboardingService(cfg config.OnboardingConfig, bcryptCost int, admins AdminStore, pending PendingStore, notifier Notifier, limiter Limiter, log *logrus.Logger, m *observability.Metrics) *OnboardingService {
	cfg.OTPDigits = config.ClampOTPDigits(cfg.OTPDigits)
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = cfg.PendingTTL
	}
	return &OnboardingService{
		admins:   admins,
		pending:  pending,
		notifier: notifier,
		limiter:  limiter,
		hasher:   utils.NewHasher(bcryptCost),
		cfg:      cfg,
		otpRe:    otpFormat(cfg.OTPDigits),
		log:      log,
		metrics:  m,
	}
}

func (s *OnboardingService) validate(req *OnboardRequest) fieldErrors {
	req.LabName = strings.TrimSpace(req.LabName)
	req.OwnerName = strings.TrimSpace(req.OwnerName)
	req.Email = NormalizeEmail(req.Email)
	req.ContactNumber = strings.TrimSpace(req.ContactNumber)
	req.PreviousSoftware = strings.TrimSpace(req.PreviousSoftware)

	var errs fieldErrors
	if req.LabName == "" || len(req.LabName) > 191 {
		errs.add("labName", "must be between 1 and 191 characters")
	}
	if req.OwnerName == "" || len(req.OwnerName) > 120 {
		errs.add("ownerName", "must be between 1 and 120 characters")
	}
	switch {
	case !validEmailFormat(req.Email):
		errs.add("email", "invalid email format")
	case !allowedDomain(req.Email, s.cfg.AllowedEmailDomains):
		errs.add("email", "email domain must be one of: "+strings.Join(s.cfg.AllowedEmailDomains, ", "))
	}
	if len(req.Password) < 6 || len(req.Password) > 255 {
		errs.add("password", "must be between 6 and 255 characters")
	}
	if !contactPattern.MatchString(req.ContactNumber) {
		errs.add("contactNumber", "must be 7 to 15 digits")
	}
	if len(req.PreviousSoftware) > 120 {
		errs.add("previousSoftware", "must not exceed 120 characters")
	}
	return errs
}

// Request starts onboarding for req.  The code is dispatched before any
// state is staged, so a failed dispatch leaves nothing behind.  A repeat
// request replaces the previous code and payload.
func (s *OnboardingService) Request(ctx context.Context, req OnboardRequest, ip string) error {
	if errs := s.validate(&req); len(errs) > 0 {
		s.metrics.Onboarding("request", "invalid")
		return apperror.NewValidation("Validation Error").WithDetail(errs.String())
	}

	ok, err := s.limiter.Signup(ctx, req.Email, ip)
	if err != nil {
		return apperror.NewInternal(err)
	}
	if !ok {
		s.metrics.Onboarding("request", "rate_limited")
		return apperror.NewRateLimited()
	}

	exists, err := s.admins.ExistsByEmailOrContact(ctx, req.Email, req.ContactNumber)
	if err != nil {
		return apperror.NewInternal(err)
	}
	if exists {
		s.metrics.Onboarding("request", "conflict")
		return apperror.NewConflict("Admin with this email or contact number already exists.")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("hash password: %w", err))
	}
	otp, err := utils.GenerateOTP(s.cfg.OTPDigits)
	if err != nil {
		return apperror.NewInternal(err)
	}

	if err := s.notifier.SendVerification(ctx, req.OwnerName, req.Email, otp); err != nil {
		s.metrics.Onboarding("request", "notify_failed")
		return apperror.NewInternal(fmt.Errorf("send verification: %w", err)).
			WithDetail("Failed to send verification email")
	}

	pending := model.PendingAdmin{
		LabName:          req.LabName,
		OwnerName:        req.OwnerName,
		Email:            req.Email,
		Password:         hash,
		ContactNumber:    req.ContactNumber,
		PreviousSoftware: req.PreviousSoftware,
	}
	if err := s.pending.Stage(ctx, pending, otp, s.cfg.OTPTTL, s.cfg.PendingTTL); err != nil {
		return apperror.NewInternal(err)
	}

	s.metrics.Onboarding("request", "otp_sent")
	s.log.WithFields(logrus.Fields{
		"event": "OTP_SENT",
		"ip":    ip,
		"email": observability.MaskEmail(req.Email),
	}).Info("verification code dispatched")
	return nil
}

// Verify checks otp for email and promotes the staged registration to an
// admin.  Concurrent verifications for one email cannot both create an
// admin: the unique email key rejects the second insert.
func (s *OnboardingService) Verify(ctx context.Context, email, otp, ip string) (*model.Admin, error) {
	email = NormalizeEmail(email)
	otp = strings.TrimSpace(otp)
	fields := logrus.Fields{"ip": ip, "email": observability.MaskEmail(email)}

	if !validEmailFormat(email) || !allowedDomain(email, s.cfg.AllowedEmailDomains) {
		s.log.WithFields(fields).WithField("event", "INVALID_EMAIL_FORMAT").Warn("rejected verification")
		s.metrics.Onboarding("verify", "invalid")
		return nil, apperror.NewValidation("Invalid email format").
			WithDetail("Please provide a valid email address")
	}
	if !s.otpRe.MatchString(otp) {
		s.log.WithFields(fields).WithField("event", "INVALID_OTP_FORMAT").Warn("rejected verification")
		s.metrics.Onboarding("verify", "invalid")
		return nil, apperror.NewValidation("Invalid OTP format").
			WithDetail(fmt.Sprintf("OTP must be %d digits", s.cfg.OTPDigits))
	}

	ok, err := s.limiter.VerifyOTP(ctx, email, ip)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	if !ok {
		s.metrics.Onboarding("verify", "rate_limited")
		return nil, apperror.NewRateLimited()
	}

	existing, err := s.admins.FindByEmail(ctx, email)
	switch {
	case err == nil && existing.IsVerified:
		s.metrics.Onboarding("verify", "already_verified")
		return nil, apperror.NewBadRequest("already_verified", "Email already verified")
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return nil, apperror.NewInternal(err)
	}

	stored, err := s.pending.OTP(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NewInternal(err)
	}
	if err != nil || subtle.ConstantTimeCompare([]byte(stored), []byte(otp)) != 1 {
		reason := "Invalid OTP"
		if err != nil {
			reason = "OTP expired or not found"
		}
		s.log.WithFields(fields).WithFields(logrus.Fields{
			"event":  "OTP_VERIFICATION_FAILED",
			"reason": reason,
		}).Warn("otp verification failed")
		s.metrics.Onboarding("verify", "otp_mismatch")
		return nil, apperror.NewUnauthorized(reason).WithDetail("OTP verification failed")
	}
	s.log.WithFields(fields).WithField("event", "OTP_VERIFICATION_SUCCESS").Info("otp verified")

	p, err := s.pending.Pending(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		s.metrics.Onboarding("verify", "no_pending_data")
		return nil, apperror.NewBadRequest("no_pending_data", "No pending admin data found")
	}
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	if !p.Complete() {
		s.metrics.Onboarding("verify", "incomplete")
		return nil, apperror.NewBadRequest("incomplete_data", "Incomplete admin data")
	}

	admin := &model.Admin{
		LabName:          p.LabName,
		OwnerName:        p.OwnerName,
		Email:            email,
		Password:         p.Password,
		ContactNumber:    p.ContactNumber,
		PreviousSoftware: p.PreviousSoftware,
		Role:             string(model.RoleAdmin),
		IsVerified:       true,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.metrics.Onboarding("verify", "conflict")
			return nil, apperror.NewConflict("Admin with this email or contact number already exists.")
		}
		return nil, apperror.NewInternal(err)
	}
	s.log.WithFields(fields).WithFields(logrus.Fields{
		"event":   "ADMIN_CREATED_SUCCESSFULLY",
		"labName": admin.LabName,
	}).Info("admin created")

	if err := s.pending.Clear(ctx, email); err != nil {
		// both keys still expire on their own
		s.log.WithFields(fields).WithError(err).Warn("clear onboarding state failed")
	}
	s.metrics.Onboarding("verify", "promoted")
	return admin, nil
}
