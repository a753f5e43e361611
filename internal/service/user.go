package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/inventory/internal/apperr"
	"github.com/Skotchmaster/inventory/internal/events"
	"github.com/Skotchmaster/inventory/internal/hash"
	"github.com/Skotchmaster/inventory/internal/logging"
	"github.com/Skotchmaster/inventory/internal/models"
	"github.com/Skotchmaster/inventory/internal/tokens"
	"github.com/Skotchmaster/inventory/internal/uniqueness"
)

type UserRepo interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	FindUserByLogin(ctx context.Context, identifier string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	SaveUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id uint) error
	UserFieldTaken(ctx context.Context, field, value string, excludeID uint) (bool, error)

	GetRole(ctx context.Context, id uint) (*models.Role, error)
	RoleNames(ctx context.Context, ids []uint) (map[uint]string, error)
}

type UserService struct {
	Repo      UserRepo
	Publisher events.Publisher
	Tokens    *tokens.Issuer

	unique *uniqueness.Validator
}

func NewUserService(r UserRepo, pub events.Publisher, issuer *tokens.Issuer) *UserService {
	if pub == nil {
		pub = events.Nop{}
	}
	// the first failed login must not pay for building the decoy hash
	hash.WarmUp()
	return &UserService{
		Repo:      r,
		Publisher: pub,
		Tokens:    issuer,
		unique:    uniqueness.New(uniqueness.ProberFunc(r.UserFieldTaken)),
	}
}

type SignupInput struct {
	Username string
	Email    string
	Password string
	RoleID   uint
}

// UserUpdate carries the fields a partial update supplied. Nil leaves the
// stored value unchanged.
type UserUpdate struct {
	Username *string
	Email    *string
	Password *string
}

type UserView struct {
	ID       uint
	Username string
	Email    string
	RoleName string
}

type LoginResult struct {
	UserID      uint
	Role        string
	AccessToken string
	AccessExp   time.Time
}

func (s *UserService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "users.signup")

	if err := s.unique.Check(ctx, 0,
		uniqueness.Field("username", in.Username),
		uniqueness.Field("email", in.Email),
	); err != nil {
		return nil, err
	}

	if _, err := s.Repo.GetRole(ctx, in.RoleID); err != nil {
		return nil, notFound(err, "role", "Role not found")
	}

	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		l.Error("signup_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: pwHash,
		RoleID:       in.RoleID,
	}
	if err := s.Repo.CreateUser(ctx, &user); err != nil {
		return nil, asDuplicate(err, map[string]string{"username": in.Username, "email": in.Email})
	}

	l.Info("user_created", "user_id", user.ID)
	publish(ctx, s.Publisher, events.UserTopic, events.Event{
		Type:     "user_created",
		EntityID: user.ID,
		Payload:  map[string]any{"username": user.Username, "email": user.Email, "roleId": user.RoleID},
	})
	return &user, nil
}

// Login accepts a username or an email as identifier. Unknown identifiers and
// wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "users.login")

	user, err := s.Repo.FindUserByLogin(ctx, identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			hash.BurnCompare(password)
			l.Warn("login_failed", "status", 400, "reason", "unknown identifier")
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, err
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "status", 400, "reason", "password mismatch", "user_id", user.ID)
		return nil, apperr.ErrInvalidCredentials
	}

	var roleName string
	if role, err := s.Repo.GetRole(ctx, user.RoleID); err == nil {
		roleName = role.Name
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	token, exp, err := s.Tokens.Issue(user.ID, roleName)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot sign token", "error", err)
		return nil, fmt.Errorf("issue token: %w", err)
	}

	l.Info("login_successful", "user_id", user.ID)
	return &LoginResult{
		UserID:      user.ID,
		Role:        roleName,
		AccessToken: token,
		AccessExp:   exp,
	}, nil
}

func (s *UserService) GetUser(ctx context.Context, id uint) (*UserView, error) {
	user, err := s.Repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user", "User not found")
	}

	names, err := s.Repo.RoleNames(ctx, []uint{user.RoleID})
	if err != nil {
		return nil, err
	}

	v := view(*user, names)
	return &v, nil
}

// ListUsers returns every user ordered by id.
func (s *UserService) ListUsers(ctx context.Context) ([]UserView, error) {
	users, err := s.Repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.RoleID)
	}
	names, err := s.Repo.RoleNames(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]UserView, 0, len(users))
	for _, u := range users {
		out = append(out, view(u, names))
	}
	return out, nil
}

func view(u models.User, roleNames map[uint]string) UserView {
	return UserView{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		RoleName: roleNames[u.RoleID],
	}
}

func (s *UserService) UpdateUser(ctx context.Context, id uint, upd UserUpdate) error {
	l := logging.FromContext(ctx).With("svc", "users.update", "user_id", id)

	user, err := s.Repo.GetUserByID(ctx, id)
	if err != nil {
		return notFound(err, "user", "User not found")
	}

	var (
		candidates []uniqueness.Candidate
		written    = map[string]string{}
		changed    []string
	)
	if upd.Username != nil {
		candidates = append(candidates, uniqueness.Field("username", *upd.Username))
		written["username"] = *upd.Username
		changed = append(changed, "username")
	}
	if upd.Email != nil {
		candidates = append(candidates, uniqueness.Field("email", *upd.Email))
		written["email"] = *upd.Email
		changed = append(changed, "email")
	}
	if len(candidates) > 0 {
		if err := s.unique.Check(ctx, id, candidates...); err != nil {
			return err
		}
	}

	if upd.Username != nil {
		user.Username = *upd.Username
	}
	if upd.Email != nil {
		user.Email = *upd.Email
	}
	if upd.Password != nil {
		pwHash, err := hash.HashPassword(*upd.Password)
		if err != nil {
			l.Error("update_error", "status", 500, "reason", "cannot hash the password", "error", err)
			return fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = pwHash
		changed = append(changed, "password")
	}

	if err := s.Repo.SaveUser(ctx, user); err != nil {
		return notFound(asDuplicate(err, written), "user", "User not found")
	}

	l.Info("user_updated", "fields", changed)
	publish(ctx, s.Publisher, events.UserTopic, events.Event{
		Type:     "user_updated",
		EntityID: user.ID,
		Payload:  map[string]any{"fields": changed},
	})
	return nil
}

func (s *UserService) DeleteUser(ctx context.Context, id uint) error {
	if _, err := s.Repo.GetUserByID(ctx, id); err != nil {
		return notFound(err, "user", "User not found")
	}
	if err := s.Repo.DeleteUser(ctx, id); err != nil {
		return notFound(err, "user", "User not found")
	}

	logging.FromContext(ctx).Info("user_deleted", "svc", "users.delete", "user_id", id)
	publish(ctx, s.Publisher, events.UserTopic, events.Event{Type: "user_deleted", EntityID: id})
	return nil
}
