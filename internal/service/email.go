package service

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pageza/mealplanner/backend/config"
	"github.com/pageza/mealplanner/backend/internal/apperrors"
	"github.com/pageza/mealplanner/backend/internal/models"
)

const recipesEmailSubject = "Your requested recipes"

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailService sends recipe summaries over SMTP.
type EmailService struct {
	smtp        config.SMTPConfig
	frontendURL string
	logger      *zap.Logger
	send        sendMailFunc
}

func NewEmailService(cfg config.SMTPConfig, frontendURL string, logger *zap.Logger) *EmailService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailService{
		smtp:        cfg,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger.With(zap.String("service", "email")),
		send:        smtp.SendMail,
	}
}

// SendRecipesEmail mails a card list of recipes to address.
func (s *EmailService) SendRecipesEmail(ctx context.Context, address string, recipes []*models.Recipe) error {
	address = strings.TrimSpace(address)
	if address == "" || !strings.Contains(address, "@") {
		return apperrors.NewValidationError("a valid email address is required")
	}
	if len(recipes) == 0 {
		return apperrors.NewValidationError("at least one recipe is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.SendEmail(address, recipesEmailSubject, s.buildRecipesEmailBody(recipes))
}

// SendEmail delivers an HTML message. Without an SMTP host the message is
// logged instead.
func (s *EmailService) SendEmail(to, subject, body string) error {
	if s.smtp.Host == "" || s.smtp.Port == "" {
		s.logger.Info("SMTP not configured, logging email",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Int("body_bytes", len(body)))
		return nil
	}

	auth := smtp.PlainAuth("", s.smtp.Username, s.smtp.Password, s.smtp.Host)
	from := fmt.Sprintf("%s <%s>", s.smtp.FromName, s.smtp.From)
	msg := []byte(fmt.Sprintf("To: %s\r\n"+
		"From: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/html; charset=UTF-8\r\n"+
		"\r\n"+
		"%s\r\n", to, from, subject, body))

	addr := fmt.Sprintf("%s:%s", s.smtp.Host, s.smtp.Port)
	if err := s.send(addr, auth, s.smtp.From, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	s.logger.Info("Email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

func (s *EmailService) buildRecipesEmailBody(recipes []*models.Recipe) string {
	caser := cases.Title(language.English)

	var cards strings.Builder
	for _, r := range recipes {
		fmt.Fprintf(&cards, `
		<div style="background-color: #fff; border-radius: 10px; margin-bottom: 20px; overflow: hidden; border: 1px solid #eee;">
			<img src="%s" alt="%s" style="width: 100%%; max-height: 240px; object-fit: cover;">
			<div style="padding: 15px 20px;">
				<h3 style="margin: 0 0 5px 0; color: #4CAF50;">%s</h3>
				<p style="margin: 0 0 10px 0; color: #666;">%s</p>
				<p style="margin: 0 0 15px 0; font-size: 14px;">%s · %d min · %d servings</p>
				<a href="%s/recipes/%s" style="background-color: #4CAF50; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">View recipe</a>
			</div>
		</div>`,
			html.EscapeString(r.URLImage),
			html.EscapeString(r.Name),
			html.EscapeString(r.Name),
			html.EscapeString(r.Phrase),
			caser.String(r.Type),
			r.PreparationTime,
			r.People,
			s.frontendURL,
			r.ID.String(),
		)
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<title>%s</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background-color: #4CAF50; color: white; padding: 20px; text-align: center; border-radius: 10px 10px 0 0;">
		<h1 style="margin: 0; font-size: 26px;">%s</h1>
	</div>
	<div style="background-color: #f9f9f9; padding: 30px; border-radius: 0 0 10px 10px;">
		%s
	</div>
</body>
</html>
	`, recipesEmailSubject, recipesEmailSubject, cards.String())
}
