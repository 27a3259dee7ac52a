package application

import (
	"github.com/huangshi/genealogy-api/config"
	"github.com/huangshi/genealogy-api/internal/application/services"
	"github.com/huangshi/genealogy-api/internal/domain/session"
	"github.com/huangshi/genealogy-api/pkg/logger"
)

// Services holds all application services.
type Services struct {
	Sessions *services.SessionService
	Chat     *services.ChatService
}

// NewServices creates all application services. primary may be nil when
// Redis is unavailable.
func NewServices(
	cfg *config.Config,
	primary, fallback session.Repository,
	completer services.Completer,
	log logger.Logger,
) *Services {
	sessionService := services.NewSessionService(primary, fallback, cfg.Session.TTL, log)
	chatService := services.NewChatService(completer, sessionService, cfg.Upstream.Model, log)

	return &Services{
		Sessions: sessionService,
		Chat:     chatService,
	}
}
