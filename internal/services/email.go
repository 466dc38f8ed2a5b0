package services

import (
	"context"
	"fmt"
	"log"

	"airstream/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer}
}

// SendApprovalRequest sends the sign-off request to every member of a
// reviewing group using the "approval_request" template.
func (s *emailService) SendApprovalRequest(ctx context.Context, data *domain.ApprovalRequestEmailData) error {
	if data == nil {
		return fmt.Errorf("approval request data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("approval_request", data)
	if err != nil {
		return fmt.Errorf("failed to render approval_request template: %w", err)
	}
	if err := s.mailer.Send(data.Recipients, subject, htmlBody, textBody, domain.MailOptions{}); err != nil {
		return fmt.Errorf("failed to send approval request email: %w", err)
	}
	log.Printf("[EMAIL] Approval request for %q sent to group %q (%d recipients)",
		data.EventTitle, data.GroupName, len(data.Recipients))
	return nil
}

// SendParticipantProfile sends the clear-token profile link using the
// "participant_profile" template.
func (s *emailService) SendParticipantProfile(ctx context.Context, data *domain.ParticipantProfileEmailData) error {
	if data == nil {
		return fmt.Errorf("participant profile data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("participant_profile", data)
	if err != nil {
		return fmt.Errorf("failed to render participant_profile template: %w", err)
	}
	opts := domain.MailOptions{CC: data.CC, ReplyTo: data.ReplyTo}
	if err := s.mailer.Send([]string{data.Email}, subject, htmlBody, textBody, opts); err != nil {
		return fmt.Errorf("failed to send participant profile email: %w", err)
	}
	log.Printf("[EMAIL] Participant profile email sent to %s", data.Email)
	return nil
}
