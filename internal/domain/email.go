package domain

import (
	"context"
	"time"
)

// MailOptions carries the optional envelope fields of an outgoing message.
type MailOptions struct {
	CC      []string
	ReplyTo string
}

// Mailer sends a rendered message. Fire-and-forget from the caller's
// perspective: a send failure must never roll back storage writes.
type Mailer interface {
	Send(to []string, subject, htmlBody, textBody string, opts MailOptions) error
}

// EmailTemplateRenderer renders a named template into subject, html, and
// text bodies.
type EmailTemplateRenderer interface {
	Render(templateName string, data interface{}) (subject, htmlBody, textBody string, err error)
}

// ApprovalRequestEmailData is the data for the approval-request message
// sent to every member of a newly added reviewing group.
type ApprovalRequestEmailData struct {
	Recipients   []string
	GroupName    string
	EventTitle   string
	CreatorEmail string
	StartTime    time.Time
	Description  string
	ReviewURL    string
}

// ParticipantProfileEmailData is the data for the self-service profile
// message sent to a participant, containing their clear-token link.
type ParticipantProfileEmailData struct {
	Email           string
	ParticipantName string
	TokenURL        string
	ReplyTo         string
	CC              []string
}

// EmailService renders and sends the application's messages.
type EmailService interface {
	SendApprovalRequest(ctx context.Context, data *ApprovalRequestEmailData) error
	SendParticipantProfile(ctx context.Context, data *ParticipantProfileEmailData) error
}
