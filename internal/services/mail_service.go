package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"

	"studyarchive/internal/config"
	"studyarchive/internal/logging"
)

// Mailer sends notification mail. MailService is the SMTP implementation.
type Mailer interface {
	SendReplyNotification(to string, data ReplyMail) error
}

type ReplyMail struct {
	ActiveUser      string
	DocumentTitle   string
	ReplyContent    string
	OriginalContent string
	Link            string
}

var replyTemplate = template.Must(template.New("reply").Parse(`<p>{{.ActiveUser}} replied to your comment on <strong>{{.DocumentTitle}}</strong>:</p>
<blockquote>{{.ReplyContent}}</blockquote>
<p style="color:#888">Your comment: {{.OriginalContent}}</p>
<p><a href="{{.Link}}">View the discussion</a></p>`))

type MailService struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	Enabled  bool

	log  zerolog.Logger
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailService(cfg config.Config) *MailService {
	s := &MailService{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.SMTPFrom,
		log:      logging.With("mail"),
		send:     smtp.SendMail,
	}
	s.Enabled = s.Host != "" && s.Port != "" && s.Username != "" && s.Password != "" && s.From != ""
	if !s.Enabled {
		s.log.Warn().Msg("mail disabled: missing SMTP settings")
	}
	return s
}

func (s *MailService) sendHTML(to []string, subject, body string) error {
	if !s.Enabled {
		return nil
	}
	auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
	addr := fmt.Sprintf("%s:%s", s.Host, s.Port)

	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	msg := []byte(fmt.Sprintf("To: %s\r\n"+
		"From: StudyArchive <%s>\r\n"+
		"Subject: %s\r\n"+
		"%s\r\n%s", strings.Join(to, ","), s.From, subject, mime, body))

	if err := s.send(addr, auth, s.From, to, msg); err != nil {
		return fmt.Errorf("send mail to %v: %w", to, err)
	}
	s.log.Info().Strs("to", to).Str("subject", subject).Msg("mail sent")
	return nil
}

func (s *MailService) SendReplyNotification(to string, data ReplyMail) error {
	var buf bytes.Buffer
	if err := replyTemplate.Execute(&buf, data); err != nil {
		return fmt.Errorf("render reply mail: %w", err)
	}
	subject := fmt.Sprintf("%s replied to your comment on %q", data.ActiveUser, data.DocumentTitle)
	return s.sendHTML([]string{to}, subject, buf.String())
}
