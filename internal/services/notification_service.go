package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"studyarchive/internal/apperr"
	"studyarchive/internal/logging"
	"studyarchive/internal/models"
	"studyarchive/internal/rbac"
	"studyarchive/internal/utils"
)

type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID uint, offset, limit int) ([]models.Notification, int64, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	// MarkRead, DeleteNotification return gorm.ErrRecordNotFound when the notification
	// does not exist or belongs to someone else.
	MarkRead(ctx context.Context, userID, id uint) error
	MarkAllRead(ctx context.Context, userID uint) error
	DeleteNotification(ctx context.Context, userID, id uint) error
}

type UserFinder interface {
	FindUser(ctx context.Context, id uint) (*models.User, error)
}

type NotificationService struct {
	store   NotificationStore
	users   UserFinder
	mail    Mailer
	siteURL string
	log     zerolog.Logger
}

func NewNotificationService(store NotificationStore, users UserFinder, mail Mailer, siteURL string) *NotificationService {
	return &NotificationService{
		store:   store,
		users:   users,
		mail:    mail,
		siteURL: siteURL,
		log:     logging.With("notifications"),
	}
}

// CommentCreated notifies the parent's author of a reply, or the document owner of a
// new top-level comment. Nobody is notified about their own activity.
func (s *NotificationService) CommentCreated(ctx context.Context, ev CommentEvent) {
	actorID := ev.Actor.UserID
	documentID := ev.Document.ID
	commentID := ev.Comment.ID

	n := &models.Notification{
		ActorID:    &actorID,
		DocumentID: &documentID,
		CommentID:  &commentID,
		Reason:     utils.PlainText(string(utils.RenderMarkdown(ev.Comment.Content)), 140),
	}
	if ev.Parent != nil {
		n.UserID = ev.Parent.UserID
		n.Type = models.NotificationTypeReplyComment
	} else {
		n.UserID = ev.Document.UserID
		n.Type = models.NotificationTypeCommentDocument
	}
	if n.UserID == actorID || n.UserID == 0 {
		return
	}

	if err := s.store.CreateNotification(ctx, n); err != nil {
		s.log.Error().Err(err).Uint("user", n.UserID).Msg("create notification failed")
		return
	}

	if ev.Parent == nil || s.mail == nil {
		return
	}
	receiver, err := s.users.FindUser(ctx, ev.Parent.UserID)
	if err != nil || receiver.Email == "" {
		// 作者可能已被删除
		return
	}
	err = s.mail.SendReplyNotification(receiver.Email, ReplyMail{
		ActiveUser:      ev.Actor.Username,
		DocumentTitle:   ev.Document.Title,
		ReplyContent:    utils.Truncate(ev.Comment.Content, 500),
		OriginalContent: utils.Truncate(ev.Parent.Content, 200),
		Link:            fmt.Sprintf("%s/documents/%d#comment-%d", s.siteURL, documentID, commentID),
	})
	if err != nil {
		s.log.Warn().Err(err).Uint("user", receiver.ID).Msg("reply mail failed")
	}
}

type NotificationPage struct {
	Items  []models.Notification `json:"items"`
	Total  int64                 `json:"total"`
	Unread int64                 `json:"unread"`
	Page   int                   `json:"page"`
}

func (s *NotificationService) List(ctx context.Context, id *rbac.Identity, page, perPage int) (*NotificationPage, error) {
	if id.IsAnonymous() {
		return nil, apperr.New(apperr.Unauthorized, "login required")
	}
	page, perPage = normalizePage(page, perPage)

	items, total, err := s.store.ListNotifications(ctx, id.UserID, (page-1)*perPage, perPage)
	if err != nil {
		return nil, storeErr(err, "notifications")
	}
	unread, err := s.store.CountUnread(ctx, id.UserID)
	if err != nil {
		return nil, storeErr(err, "notifications")
	}
	return &NotificationPage{Items: items, Total: total, Unread: unread, Page: page}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, id *rbac.Identity, notificationID uint) error {
	if id.IsAnonymous() {
		return apperr.New(apperr.Unauthorized, "login required")
	}
	return storeWriteErr(s.store.MarkRead(ctx, id.UserID, notificationID), "notification")
}

func (s *NotificationService) MarkAllRead(ctx context.Context, id *rbac.Identity) error {
	if id.IsAnonymous() {
		return apperr.New(apperr.Unauthorized, "login required")
	}
	return storeWriteErr(s.store.MarkAllRead(ctx, id.UserID), "notifications")
}

func (s *NotificationService) Delete(ctx context.Context, id *rbac.Identity, notificationID uint) error {
	if id.IsAnonymous() {
		return apperr.New(apperr.Unauthorized, "login required")
	}
	return storeWriteErr(s.store.DeleteNotification(ctx, id.UserID, notificationID), "notification")
}
