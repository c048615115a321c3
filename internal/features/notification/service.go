package notification

import (
	"context"

	"go-regula/internal/common/models"
	"go-regula/internal/features/user"

	"go.uber.org/zap"
)

// NotificationService resolves recipients from the user directory and hands
// the email off to the dispatcher. None of its methods block or fail.
type NotificationService interface {
	NotifyRole(role models.Role, subject, body string)
	NotifyUser(userID string, subject, body string)
}

type NotificationServiceImpl struct {
	Dispatcher  *Dispatcher
	Notifier    Notifier
	UserService user.UserService
	Logger      *zap.Logger
}

func NewNotificationService(dispatcher *Dispatcher, notifier Notifier, userService user.UserService, logger *zap.Logger) NotificationService {
	return &NotificationServiceImpl{
		Dispatcher:  dispatcher,
		Notifier:    notifier,
		UserService: userService,
		Logger:      logger,
	}
}

func (s *NotificationServiceImpl) NotifyRole(role models.Role, subject, body string) {
	s.Dispatcher.Dispatch(Task{
		Name: "notify-role:" + string(role),
		Run: func(ctx context.Context) error {
			emails, err := s.UserService.EmailsByRole(ctx, role)
			if err != nil {
				return err
			}
			if len(emails) == 0 {
				s.Logger.Debug("No recipients for role", zap.String("role", string(role)))
				return nil
			}
			return s.Notifier.Send(ctx, Message{To: emails, Subject: subject, Body: body})
		},
	})
}

func (s *NotificationServiceImpl) NotifyUser(userID string, subject, body string) {
	s.Dispatcher.Dispatch(Task{
		Name: "notify-user:" + userID,
		Run: func(ctx context.Context) error {
			u, err := s.UserService.GetUserByID(ctx, userID)
			if err != nil {
				s.Logger.Debug("Recipient not in directory", zap.String("userId", userID), zap.Error(err))
				return nil
			}
			return s.Notifier.Send(ctx, Message{To: []string{u.Email}, Subject: subject, Body: body})
		},
	})
}
