package rewards

import (
	"context"
	"fmt"

	"github.com/parizob/Peardox-2.0-sub001/logger"
	"github.com/parizob/Peardox-2.0-sub001/types"
)

// AnswerFetcher retrieves a user's correct quiz answers
type AnswerFetcher interface {
	GetUserCorrectAnswers(ctx context.Context, userID string) ([]types.Answer, error)
}

// Service exposes the token balance. One correct quiz answer earns one
// token; the balance is simply the answer count.
type Service struct {
	fetcher AnswerFetcher
	log     *logger.Logger
}

// NewService creates a rewards service
func NewService(fetcher AnswerFetcher, log *logger.Logger) *Service {
	return &Service{fetcher: fetcher, log: log}
}

// Balance returns the user's token balance. Signed-out users have a
// zero balance without a backend call.
func (s *Service) Balance(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, nil
	}

	answers, err := s.fetcher.GetUserCorrectAnswers(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("fetching token balance: %w", err)
	}

	s.log.Debug("token balance computed", map[string]interface{}{
		"user_id": userID,
		"balance": len(answers),
	})
	return len(answers), nil
}
