package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"airstream/internal/domain"
)

type userService struct {
	userRepo       domain.UserRepository
	groupRepo      domain.GroupRepository
	hasher         domain.PasswordHasher
	tokenIssuer    domain.TokenIssuer
	tokenExpiry    time.Duration
	contextTimeout time.Duration
}

func NewUserService(userRepo domain.UserRepository,
	groupRepo domain.GroupRepository,
	hasher domain.PasswordHasher,
	tokenIssuer domain.TokenIssuer,
	tokenExpiry time.Duration,
	timeout time.Duration,
) domain.UserService {
	return &userService{
		userRepo:       userRepo,
		groupRepo:      groupRepo,
		hasher:         hasher,
		tokenIssuer:    tokenIssuer,
		tokenExpiry:    tokenExpiry,
		contextTimeout: timeout,
	}
}

func (s *userService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	email = strings.TrimSpace(strings.ToLower(email))
	userID, hash, salt, err := s.userRepo.GetCredentials(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrNotFound) {
			return "", nil, domain.ErrForbidden
		}
		return "", nil, fmt.Errorf("get credentials: %w", err)
	}
	if err := s.hasher.Compare(hash, salt, password); err != nil {
		return "", nil, domain.ErrForbidden
	}
	user, err := s.GetActor(ctx, userID)
	if err != nil {
		return "", nil, err
	}
	if !user.IsActive {
		return "", nil, domain.ErrForbidden
	}
	token, err := s.tokenIssuer.Issue(user.ID, user.Email, user.Roles, s.tokenExpiry)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, user, nil
}

func (s *userService) GetActor(ctx context.Context, userID string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	groupIDs, err := s.groupRepo.ListGroupIDsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user groups: %w", err)
	}
	user.GroupIDs = groupIDs
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, actor *domain.User, params domain.PaginationParams) ([]*domain.User, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !actor.Can(domain.CapManageUsers) {
		return nil, 0, domain.ErrForbidden
	}
	users, total, err := s.userRepo.List(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []*domain.User{}
	}
	return users, total, nil
}

func (s *userService) UpdateUser(ctx context.Context, actor *domain.User, user *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !actor.Can(domain.CapManageUsers) {
		return domain.ErrForbidden
	}
	if user.IsSuperuser && !user.IsActive {
		return fmt.Errorf("%w: superusers must be active", domain.ErrInvalidInput)
	}
	user.UpdatedAt = time.Now().UTC()
	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("update user: %w", err)
	}
	if user.GroupIDs != nil {
		if err := s.groupRepo.SetUserGroups(ctx, user.ID, user.GroupIDs); err != nil {
			return fmt.Errorf("set user groups: %w", err)
		}
	}
	return nil
}

func (s *userService) CreateGroup(ctx context.Context, actor *domain.User, group *domain.Group) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !actor.Can(domain.CapManageUsers) {
		return domain.ErrForbidden
	}
	if group.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	return s.groupRepo.Create(ctx, group)
}

func (s *userService) UpdateGroup(ctx context.Context, actor *domain.User, group *domain.Group) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !actor.Can(domain.CapManageUsers) {
		return domain.ErrForbidden
	}
	if group.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	return s.groupRepo.Update(ctx, group)
}

func (s *userService) DeleteGroup(ctx context.Context, actor *domain.User, groupID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !actor.Can(domain.CapManageUsers) {
		return domain.ErrForbidden
	}
	// Approvals referencing the group survive with a null group.
	return s.groupRepo.Delete(ctx, groupID)
}

func (s *userService) ListGroups(ctx context.Context) ([]*domain.Group, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	groups, err := s.groupRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	if groups == nil {
		groups = []*domain.Group{}
	}
	return groups, nil
}
