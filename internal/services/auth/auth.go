// Package auth реализует сервис аутентификации: вход, выход,
// регистрацию и проверку токена доступа.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/insight-console/internal/lib/jwt"
	"github.com/magabrotheeeer/insight-console/internal/lib/password"
	"github.com/magabrotheeeer/insight-console/internal/metrics"
	"github.com/magabrotheeeer/insight-console/internal/models"
	"github.com/magabrotheeeer/insight-console/internal/sessions"
	"github.com/magabrotheeeer/insight-console/internal/storage/repository"
)

// Ошибки сервиса аутентификации.
var (
	// ErrInvalidCredentials возвращается при неверной паре email/пароль.
	// Неизвестный email и неверный пароль неразличимы для вызывающего.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized возвращается, когда токен или сессия недействительны.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUserExists возвращается при регистрации на занятый email.
	ErrUserExists = errors.New("user already exists")
)

// dummyHash — валидный bcrypt-хэш, против которого выполняется
// сравнение при неизвестном email, чтобы время ответа не выдавало,
// существует ли учетная запись.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// UserRepository описывает операции хранилища учетных записей,
// необходимые сервису аутентификации.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (string, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUID(ctx context.Context, userUID string) (*models.User, error)
}

// Service — сервис аутентификации.
type Service struct {
	repo     UserRepository
	sessions *sessions.Store
	maker    jwt.Maker
	log      *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo UserRepository, sessionStore *sessions.Store, maker jwt.Maker, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		sessions: sessionStore,
		maker:    maker,
		log:      log,
	}
}

// Login проверяет учетные данные, создает сессию и возвращает
// подписанный токен доступа вместе с пользователем.
func (s *Service) Login(ctx context.Context, email, pass string) (string, *models.User, error) {
	const op = "auth.Login"

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Холостое сравнение выравнивает время ответа
			// для несуществующих учетных записей.
			_ = password.Compare(dummyHash, pass)
			metrics.LoginAttempts.WithLabelValues("failure").Inc()
			return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = password.Compare(user.PasswordHash, pass); err != nil {
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if user.Status != models.StatusActive {
		s.log.Warn("login rejected for non-active account",
			slog.String("uid", user.UID),
			slog.String("status", user.Status))
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	session, err := s.sessions.Create(ctx, user.UID)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.maker.GenerateToken(session.ID, user.UID, user.Email, user.Role)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	s.log.Info("user logged in",
		slog.String("uid", user.UID),
		slog.String("session_id", session.ID))
	return token, user, nil
}

// Logout отзывает сессию, зашитую в токен. Возвращает false, если
// сессия не найдена или уже отозвана: повторный выход не ошибка,
// но различим для вызывающего.
func (s *Service) Logout(ctx context.Context, token string) (bool, error) {
	const op = "auth.Logout"

	claims, err := s.maker.ParseToken(token)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	revoked, err := s.sessions.Revoke(ctx, claims.SessionID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if revoked {
		s.log.Info("session revoked",
			slog.String("uid", claims.UserUID),
			slog.String("session_id", claims.SessionID))
	}
	return revoked, nil
}

// Register создает нового пользователя. Доступ контролируется выше,
// на уровне middleware: регистрировать может только администратор.
func (s *Service) Register(ctx context.Context, email, name, pass, role string) (*models.User, error) {
	const op = "auth.Register"

	hash, err := password.Hash(pass)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := models.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
		Status:       models.StatusActive,
	}
	uid, err := s.repo.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserExists)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	created, err := s.repo.GetUserByUID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("user registered",
		slog.String("uid", created.UID),
		slog.String("role", created.Role))
	return created, nil
}

// Me возвращает актуальные данные пользователя по его идентификатору.
func (s *Service) Me(ctx context.Context, userUID string) (*models.User, error) {
	const op = "auth.Me"
	user, err := s.repo.GetUserByUID(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// Verify проверяет токен доступа целиком: подпись и срок действия,
// затем сессию в хранилище на отзыв и истечение, затем актуальный
// статус учетной записи. Возвращает пользователя, если все проверки
// пройдены.
func (s *Service) Verify(ctx context.Context, token string) (*models.User, error) {
	const op = "auth.Verify"

	claims, err := s.maker.ParseToken(token)
	if err != nil {
		metrics.TokenVerifications.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	session, err := s.sessions.Find(ctx, claims.SessionID)
	if err != nil {
		metrics.TokenVerifications.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if session == nil || !session.Valid(s.sessions.Now()) {
		metrics.TokenVerifications.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	// Роль и статус берутся из хранилища, а не из claims: понижение
	// роли или блокировка учетной записи действуют немедленно,
	// не дожидаясь истечения токена.
	user, err := s.repo.GetUserByUID(ctx, session.UserUID)
	if err != nil {
		metrics.TokenVerifications.WithLabelValues("failure").Inc()
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user.Status != models.StatusActive {
		metrics.TokenVerifications.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	metrics.TokenVerifications.WithLabelValues("success").Inc()
	return user, nil
}
