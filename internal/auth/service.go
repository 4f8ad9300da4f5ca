package auth

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"

	commoncrypto "github.com/devsanjithm/accountd/internal/common/crypto"
	commonerrors "github.com/devsanjithm/accountd/internal/common/errors"
	"github.com/devsanjithm/accountd/internal/common/logger"
	"github.com/devsanjithm/accountd/internal/session"
	"github.com/devsanjithm/accountd/internal/token"
	"github.com/devsanjithm/accountd/internal/user"
)

// Service owns the credential and token flows: login, logout, refresh
// rotation, password reset and email verification. Token validity for
// requests is signature plus a live session entry; killing the session
// kills every outstanding access token for the subject.
type Service struct {
	users     *user.Service
	authority *token.Authority
	sessions  session.Cache
	hasher    commoncrypto.PasswordHasher
	mailer    Mailer
	validate  *validator.Validate
	log       *logger.Logger
}

func NewService(
	users *user.Service,
	authority *token.Authority,
	sessions session.Cache,
	hasher commoncrypto.PasswordHasher,
	mailer Mailer,
	log *logger.Logger,
) *Service {
	return &Service{
		users:     users,
		authority: authority,
		sessions:  sessions,
		hasher:    hasher,
		mailer:    mailer,
		validate:  newValidator(),
		log:       log,
	}
}

type AuthResult struct {
	AccessToken  string
	RefreshToken string
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (user.User, AuthResult, error) {
	if err := s.validateInput(input); err != nil {
		return user.User{}, AuthResult{}, err
	}

	u, err := s.users.Create(ctx, input.Email, input.DisplayName, input.Password)
	if err != nil {
		return user.User{}, AuthResult{}, err
	}

	result, err := s.startSession(ctx, u)
	if err != nil {
		return user.User{}, AuthResult{}, err
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": u.ID,
		"action":  "register_success",
	}).Info("register success")
	return u, result, nil
}

func (s *Service) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	if err := s.validateInput(input); err != nil {
		return AuthResult{}, err
	}

	u, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, commonerrors.ErrUserNotFound) {
			s.log.WithFields(ctx, logger.Fields{
				"action": "login_unknown_email",
			}).Warn("login failed: unknown email")
			return AuthResult{}, commonerrors.ErrUnauthenticated
		}
		return AuthResult{}, err
	}

	if err := s.hasher.Compare(u.PasswordHash, input.Password); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": u.ID,
			"action":  "login_invalid_password",
		}).Warn("login failed: invalid password")
		return AuthResult{}, commonerrors.ErrUnauthenticated
	}

	result, err := s.startSession(ctx, u)
	if err != nil {
		return AuthResult{}, err
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": u.ID,
		"action":  "login_success",
	}).Info("login success")
	return result, nil
}

// Authenticate validates an access token for a request: signature,
// kind and expiry first, then session liveness. A token whose subject
// has no session entry is rejected even when the signature is valid.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (session.Descriptor, error) {
	claims, err := s.authority.Parse(accessToken, token.KindAccess)
	if err != nil {
		return session.Descriptor{}, err
	}

	descriptor, found, err := s.sessions.Get(ctx, claims.SubjectID)
	if err != nil {
		return session.Descriptor{}, err
	}
	if !found {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": claims.SubjectID,
			"action":  "authenticate_no_session",
		}).Warn("authenticate failed: no live session")
		return session.Descriptor{}, commonerrors.ErrUnauthenticated
	}
	return descriptor, nil
}

// Refresh rotates the presented refresh token and re-populates the
// session entry so the new access token is immediately usable.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	pair, subjectID, err := s.authority.Rotate(ctx, refreshToken)
	if err != nil {
		return AuthResult{}, err
	}

	u, err := s.users.GetByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, commonerrors.ErrUserNotFound) {
			return AuthResult{}, commonerrors.ErrUnauthenticated
		}
		return AuthResult{}, err
	}
	s.putSession(ctx, u)

	s.log.WithFields(ctx, logger.Fields{
		"user_id": subjectID,
		"action":  "refresh_success",
	}).Info("refresh success")
	return AuthResult{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

// Logout revokes the refresh token row and removes the session entry,
// so outstanding access tokens for the subject stop validating.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	subjectID, err := s.authority.Revoke(ctx, refreshToken)
	if err != nil {
		return err
	}

	if err := s.sessions.Delete(ctx, subjectID); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": subjectID,
			"action":  "logout_session_delete_failed",
		}).Errorf("logout failed to clear session: %v", err)
		return err
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": subjectID,
		"action":  "logout_success",
	}).Info("logout success")
	return nil
}

// ForgotPassword issues a reset token for a known email. An unknown
// email is reported as not-found to the caller of this internal API;
// the HTTP boundary decides how much of that to disclose.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	resetToken, err := s.authority.Issue(ctx, u.ID, token.KindResetPassword)
	if err != nil {
		return err
	}

	return s.mailer.SendPasswordReset(ctx, u.Email, resetToken)
}

// ResetPassword consumes a reset token, which invalidates every other
// outstanding reset token for the subject, then forces re-login by
// clearing the session.
func (s *Service) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	if err := s.validateInput(input); err != nil {
		return err
	}

	subjectID, err := s.authority.Consume(ctx, input.Token, token.KindResetPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, subjectID, input.NewPassword); err != nil {
		return err
	}

	if err := s.sessions.Delete(ctx, subjectID); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": subjectID,
			"action":  "reset_session_delete_failed",
		}).Warnf("failed to clear session after password reset: %v", err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": subjectID,
		"action":  "password_reset_success",
	}).Info("password reset success")
	return nil
}

func (s *Service) SendVerificationEmail(ctx context.Context, userID string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	verifyToken, err := s.authority.Issue(ctx, u.ID, token.KindVerifyEmail)
	if err != nil {
		return err
	}

	return s.mailer.SendEmailVerification(ctx, u.Email, verifyToken)
}

// VerifyEmail consumes a verification token and marks the subject's
// email verified. Consumption deletes every outstanding verification
// token for the subject.
func (s *Service) VerifyEmail(ctx context.Context, verifyToken string) error {
	subjectID, err := s.authority.Consume(ctx, verifyToken, token.KindVerifyEmail)
	if err != nil {
		return err
	}

	if err := s.users.MarkEmailVerified(ctx, subjectID); err != nil {
		return err
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": subjectID,
		"action":  "email_verified",
	}).Info("email verified")
	return nil
}

func (s *Service) startSession(ctx context.Context, u user.User) (AuthResult, error) {
	pair, err := s.authority.IssuePair(ctx, u.ID)
	if err != nil {
		return AuthResult{}, err
	}
	s.putSession(ctx, u)
	return AuthResult{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

// putSession is best-effort: a cache outage must not fail login, the
// next refresh re-populates the entry once the cache recovers.
func (s *Service) putSession(ctx context.Context, u user.User) {
	err := s.sessions.Set(ctx, u.ID, session.Descriptor{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Roles:       u.Roles,
	})
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": u.ID,
			"action":  "session_populate_failed",
		}).Warnf("failed to populate session cache: %v", err)
	}
}
