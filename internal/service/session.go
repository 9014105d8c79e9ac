package service

import (
	"context"
	"sync"
	"time"

	"fotobot/internal/domain"
	"fotobot/internal/models"

	"github.com/rs/zerolog"
)

// SessionService — владелец сессий: отдает готовую Idle-сессию вместо
// отсутствующей и сериализует обработку событий одного пользователя.
// Два одновременных события одного пользователя не могут затереть
// изменения друг друга.
type SessionService struct {
	repo   domain.SessionRepository
	logger *zerolog.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewSessionService(repo domain.SessionRepository, logger *zerolog.Logger) *SessionService {
	return &SessionService{
		repo:   repo,
		logger: logger,
		locks:  make(map[int64]*sync.Mutex),
	}
}

// Acquire берет блокировку пользователя на время обработки события.
// Замки живут по одному на пользователя; при типичной аудитории бота
// реестр остается небольшим.
func (s *SessionService) Acquire(userID int64) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Session возвращает сессию пользователя, создавая Idle-сессию при
// отсутствии. Никогда не возвращает nil без ошибки.
func (s *SessionService) Session(ctx context.Context, userID, chatID int64) (*models.Session, error) {
	session, err := s.repo.GetSession(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to get session")
		return nil, err
	}

	if session == nil {
		session = &models.Session{
			UserID: userID,
			ChatID: chatID,
			State:  models.StateIdle,
		}
	}
	if chatID != 0 {
		session.ChatID = chatID
	}
	return session, nil
}

func (s *SessionService) Save(ctx context.Context, session *models.Session) error {
	session.UpdatedAt = time.Now()
	return s.repo.SetSession(ctx, session)
}

func (s *SessionService) Clear(ctx context.Context, userID int64) error {
	return s.repo.ClearSession(ctx, userID)
}

func (s *SessionService) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	return s.repo.CheckRateLimit(ctx, userID, limit, window)
}
