package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/recruitment-portal/internal/config"
	"github.com/stemsi/recruitment-portal/internal/metrics"
	"github.com/stemsi/recruitment-portal/internal/model"
	"github.com/stemsi/recruitment-portal/internal/repository"
	"github.com/stemsi/recruitment-portal/internal/validator"
)

// IdentityService is the identity gate: signup, login, logout and current user.
type IdentityService struct {
	cfg      *config.Config
	auth     *AuthService
	accounts AccountStore
	profiles ProfileStore
	events   EventPublisher
	log      zerolog.Logger
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(
	cfg *config.Config,
	auth *AuthService,
	accounts AccountStore,
	profiles ProfileStore,
	events EventPublisher,
	log zerolog.Logger,
) *IdentityService {
	return &IdentityService{
		cfg:      cfg,
		auth:     auth,
		accounts: accounts,
		profiles: profiles,
		events:   events,
		log:      log.With().Str("component", "identity_service").Logger(),
	}
}

// Signup registers a candidate. Admission number and phone uniqueness is
// checked before the account is created; if the profile insert still loses a
// race the new account is deleted again.
func (s *IdentityService) Signup(ctx context.Context, req model.SignupRequest) (*model.AuthResult, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	if fields := validator.Struct(&req); fields != nil {
		metrics.Signups.WithLabelValues("invalid").Inc()
		return nil, &ValidationError{Fields: fields}
	}

	if err := s.checkUnique(ctx, req.AdmissionNumber, req.Phone); err != nil {
		metrics.Signups.WithLabelValues("rejected").Inc()
		return nil, err
	}

	account, err := s.createAccount(ctx, req.Email, req.Password)
	if err != nil {
		metrics.Signups.WithLabelValues("rejected").Inc()
		return nil, err
	}

	profile := &model.CandidateProfile{
		ID:              account.ID,
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		AdmissionNumber: req.AdmissionNumber,
		Branch:          req.Branch,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		s.compensate(ctx, account.ID)
		metrics.Signups.WithLabelValues("rejected").Inc()
		switch {
		case errors.Is(err, repository.ErrDuplicateAdmissionNumber):
			return nil, &DuplicateIdentifierError{Field: FieldAdmissionNumber}
		case errors.Is(err, repository.ErrDuplicatePhone):
			return nil, &DuplicateIdentifierError{Field: FieldPhone}
		}
		return nil, persistence("create profile", err)
	}

	principal := model.Principal{ID: account.ID, Email: account.Email, Admin: s.cfg.IsAdminEmail(account.Email)}
	token, err := s.auth.IssueToken(ctx, principal)
	if err != nil {
		return nil, persistence("issue token", err)
	}

	metrics.Signups.WithLabelValues("created").Inc()
	s.log.Info().Str("candidate_id", account.ID).Str("branch", profile.Branch).Msg("Candidate registered")
	s.publish(ctx, model.MonitorEvent{Type: model.MonitorSignup, CandidateID: account.ID, At: time.Now().UTC()})

	return &model.AuthResult{Token: token, Principal: principal, Profile: profile}, nil
}

func (s *IdentityService) checkUnique(ctx context.Context, admissionNumber, phone string) error {
	taken, err := s.profiles.ExistsByAdmissionNumber(ctx, admissionNumber)
	if err != nil {
		return persistence("check admission number", err)
	}
	if taken {
		return &DuplicateIdentifierError{Field: FieldAdmissionNumber}
	}

	taken, err = s.profiles.ExistsByPhone(ctx, phone)
	if err != nil {
		return persistence("check phone", err)
	}
	if taken {
		return &DuplicateIdentifierError{Field: FieldPhone}
	}
	return nil
}

func (s *IdentityService) createAccount(ctx context.Context, email, password string) (*model.Account, error) {
	if !validator.IsEmail(email) {
		return nil, ErrInvalidEmail
	}
	if len(password) < s.cfg.MinPasswordLength {
		return nil, ErrWeakCredential
	}

	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return nil, ErrWeakCredential
	}

	account := &model.Account{ID: uuid.New().String(), Email: email, PasswordHash: hash}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrAccountExists
		}
		return nil, persistence("create account", err)
	}
	return account, nil
}

func (s *IdentityService) compensate(ctx context.Context, accountID string) {
	if err := s.accounts.Delete(ctx, accountID); err != nil {
		s.log.Error().Err(err).Str("account_id", accountID).Msg("Failed to remove account after profile rejection")
	}
}

// Login authenticates and loads the candidate profile. Administrators do not need a profile.
func (s *IdentityService) Login(ctx context.Context, req model.LoginRequest) (*model.AuthResult, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if fields := validator.Struct(&req); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}

	if err := s.auth.CheckLoginAllowed(ctx, req.Email); err != nil {
		metrics.Logins.WithLabelValues("rate_limited").Inc()
		if errors.Is(err, ErrRateLimited) {
			return nil, err
		}
		return nil, persistence("check login attempts", err)
	}

	account, err := s.accounts.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.loginFailed(ctx, req.Email)
		}
		return nil, persistence("load account", err)
	}
	if err := s.auth.CheckPassword(account.PasswordHash, req.Password); err != nil {
		return nil, s.loginFailed(ctx, req.Email)
	}

	principal := model.Principal{ID: account.ID, Email: account.Email, Admin: s.cfg.IsAdminEmail(account.Email)}

	var profile *model.CandidateProfile
	if !principal.Admin {
		profile, err = s.profiles.GetByID(ctx, account.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.log.Warn().Str("candidate_id", account.ID).Msg("Account has no profile")
				return nil, ErrProfileNotFound
			}
			return nil, persistence("load profile", err)
		}
	}

	if err := s.auth.ResetLoginFailures(ctx, req.Email); err != nil {
		s.log.Warn().Err(err).Msg("Failed to reset login attempts")
	}

	token, err := s.auth.IssueToken(ctx, principal)
	if err != nil {
		return nil, persistence("issue token", err)
	}

	metrics.Logins.WithLabelValues("success").Inc()
	return &model.AuthResult{Token: token, Principal: principal, Profile: profile}, nil
}

func (s *IdentityService) loginFailed(ctx context.Context, email string) error {
	metrics.Logins.WithLabelValues("invalid").Inc()
	if err := s.auth.RecordLoginFailure(ctx, email); err != nil {
		s.log.Warn().Err(err).Msg("Failed to record login attempt")
	}
	return ErrInvalidCredential
}

// Logout invalidates the session behind token. Missing, expired or already
// revoked tokens succeed.
func (s *IdentityService) Logout(ctx context.Context, token string) error {
	claims, err := s.auth.ValidateToken(token)
	if err != nil {
		return nil
	}
	if err := s.auth.ValidateSession(ctx, claims); err != nil {
		if errors.Is(err, ErrNoActiveSession) || errors.Is(err, ErrSessionInvalidated) {
			return nil
		}
		return persistence("check session", err)
	}
	if err := s.auth.RevokeSession(ctx, claims.UserID); err != nil {
		return persistence("revoke session", err)
	}
	return nil
}

// CurrentUser resolves token to the principal and profile. It returns nil,
// not an error, when the token is absent, expired or revoked.
func (s *IdentityService) CurrentUser(ctx context.Context, token string) (*model.AuthResult, error) {
	if token == "" {
		return nil, nil
	}
	claims, err := s.auth.ValidateToken(token)
	if err != nil {
		return nil, nil
	}
	if err := s.auth.ValidateSession(ctx, claims); err != nil {
		if errors.Is(err, ErrNoActiveSession) || errors.Is(err, ErrSessionInvalidated) {
			return nil, nil
		}
		return nil, persistence("check session", err)
	}

	result := &model.AuthResult{Principal: claims.Principal()}
	if result.Principal.Admin {
		return result, nil
	}

	profile, err := s.profiles.GetByID(ctx, claims.UserID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, persistence("load profile", err)
	}
	result.Profile = profile
	return result, nil
}

// Profile loads a candidate profile.
func (s *IdentityService) Profile(ctx context.Context, candidateID string) (*model.CandidateProfile, error) {
	p, err := s.profiles.GetByID(ctx, candidateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, persistence("load profile", err)
	}
	return p, nil
}

func (s *IdentityService) publish(ctx context.Context, ev model.MonitorEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("type", string(ev.Type)).Msg("Failed to publish monitor event")
	}
}
