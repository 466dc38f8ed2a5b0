package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"airstream/internal/domain"
)

const recentDecisionsLimit = 25

type approvalService struct {
	approvalRepo   domain.ApprovalRepository
	groupRepo      domain.GroupRepository
	userRepo       domain.UserRepository
	emailService   domain.EmailService
	baseURL        string
	logger         *slog.Logger
	contextTimeout time.Duration
	now            func() time.Time
}

func NewApprovalService(approvalRepo domain.ApprovalRepository,
	groupRepo domain.GroupRepository,
	userRepo domain.UserRepository,
	emailService domain.EmailService,
	baseURL string,
	logger *slog.Logger,
	timeout time.Duration,
) domain.ApprovalService {
	return &approvalService{
		approvalRepo:   approvalRepo,
		groupRepo:      groupRepo,
		userRepo:       userRepo,
		emailService:   emailService,
		baseURL:        baseURL,
		logger:         logger,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *approvalService) Reconcile(ctx context.Context, event *domain.Event, desiredGroups []string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	current, err := s.approvalRepo.ListByEventID(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("list approvals: %w", err)
	}

	desired := make(map[string]*domain.Group, len(desiredGroups))
	for _, name := range desiredGroups {
		if name == "" {
			continue
		}
		group, err := s.groupRepo.GetByName(ctx, name)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: unknown approval group %q", domain.ErrInvalidInput, name)
			}
			return fmt.Errorf("get group %q: %w", name, err)
		}
		desired[group.ID] = group
	}

	currentByGroup := make(map[string]*domain.Approval, len(current))
	var removeIDs []string
	for _, app := range current {
		if app.GroupID == nil {
			// The group was deleted; the approval can never be acted on
			// and drops out of the desired set by definition.
			removeIDs = append(removeIDs, app.ID)
			continue
		}
		currentByGroup[*app.GroupID] = app
		if _, ok := desired[*app.GroupID]; !ok {
			removeIDs = append(removeIDs, app.ID)
		}
	}
	var addGroupIDs []string
	for groupID := range desired {
		if _, ok := currentByGroup[groupID]; !ok {
			addGroupIDs = append(addGroupIDs, groupID)
		}
	}

	if len(addGroupIDs) == 0 && len(removeIDs) == 0 {
		return nil
	}

	added, removed, err := s.approvalRepo.Reconcile(ctx, event.ID, addGroupIDs, removeIDs)
	if err != nil {
		return fmt.Errorf("reconcile approvals: %w", err)
	}
	for _, app := range removed {
		if app.Processed {
			// Removing a group after its decision discards that piece of
			// the audit trail. Deliberate, but worth a trace.
			s.logger.Warn("deleted processed approval",
				"event_id", event.ID, "approval_id", app.ID,
				"group", app.GroupName, "approved", app.Approved)
		}
	}

	// Notifications happen after commit and are allowed to fail without
	// touching the stored state.
	for _, app := range added {
		if app.GroupID == nil {
			continue
		}
		s.notifyGroup(ctx, event, desired[*app.GroupID])
	}
	return nil
}

func (s *approvalService) notifyGroup(ctx context.Context, event *domain.Event, group *domain.Group) {
	members, err := s.groupRepo.ListMembers(ctx, group.ID)
	if err != nil {
		s.logger.Error("list group members for notification", "group", group.Name, "err", err)
		return
	}
	recipients := make([]string, 0, len(members))
	for _, m := range members {
		if m.Email != "" {
			recipients = append(recipients, m.Email)
		}
	}
	if len(recipients) == 0 {
		// A group with no members is a valid target; there is simply
		// nobody to mail.
		return
	}
	creatorEmail := ""
	if event.CreatorID != nil {
		if creator, err := s.userRepo.GetByID(ctx, *event.CreatorID); err == nil {
			creatorEmail = creator.Email
		}
	}
	data := &domain.ApprovalRequestEmailData{
		Recipients:   recipients,
		GroupName:    group.Name,
		EventTitle:   event.Title,
		CreatorEmail: creatorEmail,
		StartTime:    event.StartTime,
		Description:  event.Description,
		ReviewURL:    s.baseURL + "/manage/approvals",
	}
	if err := s.emailService.SendApprovalRequest(ctx, data); err != nil {
		s.logger.Error("send approval request email",
			"event_id", event.ID, "group", group.Name, "err", err)
	}
}

func (s *approvalService) RecordDecision(ctx context.Context, reviewer *domain.User, approvalID string, approved bool, comment string) (*domain.Approval, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	approval, err := s.approvalRepo.GetByID(ctx, approvalID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get approval: %w", err)
	}
	if approval.GroupID == nil || !reviewer.InGroup(*approval.GroupID) {
		return nil, domain.ErrForbidden
	}
	updated, err := s.approvalRepo.MarkProcessed(ctx, approvalID, approved, reviewer.ID, comment, s.now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("mark approval processed: %w", err)
	}
	return updated, nil
}

func (s *approvalService) PendingForReviewer(ctx context.Context, reviewer *domain.User) ([]*domain.Approval, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if len(reviewer.GroupIDs) == 0 {
		return []*domain.Approval{}, nil
	}
	approvals, err := s.approvalRepo.ListPendingByGroupIDs(ctx, reviewer.GroupIDs)
	if err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}
	if approvals == nil {
		approvals = []*domain.Approval{}
	}
	return approvals, nil
}

func (s *approvalService) RecentForReviewer(ctx context.Context, reviewer *domain.User) ([]*domain.Approval, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if len(reviewer.GroupIDs) == 0 {
		return []*domain.Approval{}, nil
	}
	approvals, err := s.approvalRepo.ListProcessedByGroupIDs(ctx, reviewer.GroupIDs, recentDecisionsLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent approvals: %w", err)
	}
	if approvals == nil {
		approvals = []*domain.Approval{}
	}
	return approvals, nil
}
