package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"airstream/internal/domain"
	"airstream/pkg/tz"
)

type referenceService struct {
	categoryRepo   domain.CategoryRepository
	templateRepo   domain.TemplateRepository
	locationRepo   domain.LocationRepository
	tagRepo        domain.TagRepository
	contextTimeout time.Duration
}

func NewReferenceService(categoryRepo domain.CategoryRepository,
	templateRepo domain.TemplateRepository,
	locationRepo domain.LocationRepository,
	tagRepo domain.TagRepository,
	timeout time.Duration,
) domain.ReferenceService {
	return &referenceService{
		categoryRepo:   categoryRepo,
		templateRepo:   templateRepo,
		locationRepo:   locationRepo,
		tagRepo:        tagRepo,
		contextTimeout: timeout,
	}
}

func (s *referenceService) CreateCategory(ctx context.Context, actor *domain.User, c *domain.Category) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !actor.Can(domain.CapManageReferences) {
		return domain.ErrForbidden
	}
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	return s.categoryRepo.Create(ctx, c)
}

func (s *referenceService) UpdateCategory(ctx context.Context, actor *domain.User, c *domain.Category) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !actor.Can(domain.CapManageReferences) {
		return domain.ErrForbidden
	}
	return s.categoryRepo.Update(ctx, c)
}

func (s *referenceService) DeleteCategory(ctx context.Context, actor *domain.User, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !actor.Can(domain.CapManageReferences) {
		return domain.ErrForbidden
	}
	// Events referencing the category keep existing; their reference
	// goes null in storage.
	return s.categoryRepo.Delete(ctx, id)
}

func (s *referenceService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.categoryRepo.List(ctx)
}

func (s *referenceService) CreateTemplate(ctx context.Context, actor *domain.User, t *domain.Template) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !actor.Can(domain.CapManageReferences) {
		return domain.ErrForbidden
	}
	if t.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	return s.templateRepo.Create(ctx, t)
}

func (s *referenceService) UpdateTemplate(ctx context.Context, actor *domain.User, t *domain.Template) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !actor.Can(domain.CapManageReferences) {
		return domain.ErrForbidden
	}
	return s.templateRepo.Update(ctx, t)
}

func (s *referenceService) DeleteTemplate(ctx context.Context, actor *domain.User, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !actor.Can(domain.CapManageReferences) {
		return domain.ErrForbidden
	}
	return s.templateRepo.Delete(ctx, id)
}

func (s *referenceService) ListTemplates(ctx context.Context) ([]*domain.Template, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.templateRepo.List(ctx)
}

func (s *referenceService) CreateLocation(ctx context.Context, actor *domain.User, l *domain.Location) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !actor.Can(domain.CapManageReferences) {
		return domain.ErrForbidden
	}
	if l.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if !tz.Valid(l.Timezone) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidTimezone, l.Timezone)
	}
	return s.locationRepo.Create(ctx, l)
}

func (s *referenceService) UpdateLocation(ctx context.Context, actor *domain.User, l *domain.Location) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !actor.Can(domain.CapManageReferences) {
		return domain.ErrForbidden
	}
	if !tz.Valid(l.Timezone) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidTimezone, l.Timezone)
	}
	return s.locationRepo.Update(ctx, l)
}

func (s *referenceService) DeleteLocation(ctx context.Context, actor *domain.User, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !actor.Can(domain.CapManageReferences) {
		return domain.ErrForbidden
	}
	return s.locationRepo.Delete(ctx, id)
}

func (s *referenceService) ListLocations(ctx context.Context) ([]*domain.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.locationRepo.List(ctx)
}

func (s *referenceService) LookupTimezone(ctx context.Context, locationID string) (*domain.TimezoneLookup, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	location, err := s.locationRepo.GetByID(ctx, locationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get location: %w", err)
	}
	return &domain.TimezoneLookup{Timezone: location.Timezone}, nil
}

func (s *referenceService) AutocompleteTags(ctx context.Context, query string, limit int) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	query = strings.TrimSpace(query)
	if query == "" {
		return []string{}, nil
	}
	tags, err := s.tagRepo.SearchByPrefix(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search tags: %w", err)
	}
	// The query itself comes first so a new tag can be created straight
	// from the form.
	names := []string{query}
	for _, t := range tags {
		if strings.EqualFold(t.Name, query) {
			continue
		}
		names = append(names, t.Name)
	}
	return names, nil
}
