package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"airstream/internal/domain"
)

type participantService struct {
	participantRepo domain.ParticipantRepository
	eventRepo       domain.EventRepository
	userRepo        domain.UserRepository
	emailService    domain.EmailService
	baseURL         string
	contextTimeout  time.Duration
}

func NewParticipantService(participantRepo domain.ParticipantRepository,
	eventRepo domain.EventRepository,
	userRepo domain.UserRepository,
	emailService domain.EmailService,
	baseURL string,
	timeout time.Duration,
) domain.ParticipantService {
	return &participantService{
		participantRepo: participantRepo,
		eventRepo:       eventRepo,
		userRepo:        userRepo,
		emailService:    emailService,
		baseURL:         baseURL,
		contextTimeout:  timeout,
	}
}

func (s *participantService) CreateParticipant(ctx context.Context, actor *domain.User, p *domain.Participant) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !actor.Can(domain.CapManageParticipants) {
		return domain.ErrForbidden
	}
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if p.Cleared == "" {
		p.Cleared = domain.ClearedNo
	}
	p.CreatorID = &actor.ID

	checkers := []domain.SlugChecker{domain.SlugCheckerFunc(s.participantRepo.SlugExists)}
	for attempt := 0; attempt < maxSlugCommitRetries; attempt++ {
		slug, err := UniqueSlug(ctx, p.Name, checkers, "")
		if err != nil {
			return err
		}
		p.Slug = slug
		err = s.participantRepo.Create(ctx, p)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrSlugExists) {
			return fmt.Errorf("create participant: %w", err)
		}
	}
	return fmt.Errorf("create participant: %w after %d attempts", domain.ErrSlugExists, maxSlugCommitRetries)
}

func (s *participantService) canEdit(actor *domain.User, p *domain.Participant) bool {
	if actor.Can(domain.CapEditParticipantOthers) {
		return true
	}
	return p.CreatorID != nil && *p.CreatorID == actor.ID && actor.Can(domain.CapManageParticipants)
}

func (s *participantService) UpdateParticipant(ctx context.Context, actor *domain.User, p *domain.Participant) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	existing, err := s.participantRepo.GetByID(ctx, p.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get participant: %w", err)
	}
	if !s.canEdit(actor, existing) {
		return domain.ErrForbidden
	}
	p.Slug = existing.Slug
	p.ClearToken = existing.ClearToken
	p.CreatorID = existing.CreatorID
	if err := s.participantRepo.Update(ctx, p); err != nil {
		return fmt.Errorf("update participant: %w", err)
	}
	return nil
}

func (s *participantService) DeleteParticipant(ctx context.Context, actor *domain.User, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	existing, err := s.participantRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get participant: %w", err)
	}
	if !s.canEdit(actor, existing) {
		return domain.ErrForbidden
	}
	if err := s.participantRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete participant: %w", err)
	}
	return nil
}

func (s *participantService) GetParticipantByID(ctx context.Context, id string) (*domain.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.participantRepo.GetByID(ctx, id)
}

func (s *participantService) GetParticipantBySlug(ctx context.Context, slug string) (*domain.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.participantRepo.GetBySlug(ctx, slug)
}

func (s *participantService) SearchParticipants(ctx context.Context, nameContains string, params domain.PaginationParams) ([]*domain.Participant, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	participants, total, err := s.participantRepo.Search(ctx, nameContains, params)
	if err != nil {
		return nil, 0, fmt.Errorf("search participants: %w", err)
	}
	if participants == nil {
		participants = []*domain.Participant{}
	}
	return participants, total, nil
}

func (s *participantService) ListNotCleared(ctx context.Context) ([]*domain.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	participants, err := s.participantRepo.ListByCleared(ctx, domain.ClearedNo)
	if err != nil {
		return nil, fmt.Errorf("list not-cleared participants: %w", err)
	}
	if participants == nil {
		participants = []*domain.Participant{}
	}
	return participants, nil
}

func (s *participantService) Autocomplete(ctx context.Context, query string, limit int) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	query = strings.TrimSpace(query)
	if query == "" {
		return []string{}, nil
	}
	candidates, _, err := s.participantRepo.Search(ctx, query, domain.PaginationParams{Page: 1, PageSize: 100})
	if err != nil {
		return nil, fmt.Errorf("search participants: %w", err)
	}
	// Only match names with a component starting with the query's first
	// word.
	firstWord := strings.Fields(query)[0]
	wordStart, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(firstWord))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, limit)
	for _, p := range candidates {
		if !wordStart.MatchString(p.Name) {
			continue
		}
		names = append(names, p.Name)
		if limit > 0 && len(names) >= limit {
			break
		}
	}
	return names, nil
}

func (s *participantService) SendProfileEmail(ctx context.Context, actor *domain.User, participantID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	p, err := s.participantRepo.GetByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get participant: %w", err)
	}
	if !s.canEdit(actor, p) {
		return domain.ErrForbidden
	}
	if p.Email == "" {
		return fmt.Errorf("%w: participant has no email address", domain.ErrInvalidInput)
	}
	if p.ClearToken == "" {
		p.ClearToken = uuid.NewString()
		if err := s.participantRepo.Update(ctx, p); err != nil {
			return fmt.Errorf("store clear token: %w", err)
		}
	}

	replyTo := actor.Email

	// CC the creator of the participant's most recent event, when known.
	var cc []string
	if eventIDs, err := s.participantRepo.ListEventIDsByParticipant(ctx, p.ID); err == nil && len(eventIDs) > 0 {
		if event, err := s.eventRepo.GetByID(ctx, eventIDs[0]); err == nil && event.CreatorID != nil {
			if creator, err := s.userRepo.GetByID(ctx, *event.CreatorID); err == nil && creator.Email != "" {
				cc = []string{creator.Email}
			}
		}
	}

	data := &domain.ParticipantProfileEmailData{
		Email:           p.Email,
		ParticipantName: p.Name,
		TokenURL:        s.baseURL + "/participants/clear/" + p.ClearToken,
		ReplyTo:         replyTo,
		CC:              cc,
	}
	if err := s.emailService.SendParticipantProfile(ctx, data); err != nil {
		return fmt.Errorf("send participant profile email: %w", err)
	}
	return nil
}

func (s *participantService) ClearByToken(ctx context.Context, token string, cleared domain.ClearedStatus) (*domain.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if cleared != domain.ClearedYes && cleared != domain.ClearedNo {
		return nil, fmt.Errorf("%w: cleared must be yes or no", domain.ErrInvalidInput)
	}
	p, err := s.participantRepo.GetByClearToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("resolve clear token: %w", err)
	}
	p.Cleared = cleared
	// The token is single-use; a new email issues a fresh one.
	p.ClearToken = ""
	if err := s.participantRepo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update participant: %w", err)
	}
	return p, nil
}
