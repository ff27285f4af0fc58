package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"screamlink/internal/apperr"
	"screamlink/internal/models"
	"screamlink/internal/store"
	"screamlink/internal/utils"

	"github.com/google/uuid"
)

const latestNotifications = 10

type SignupInput struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Handle          string `json:"handle"`
}

type DetailsInput struct {
	Bio      string `json:"bio"`
	Website  string `json:"website"`
	Location string `json:"location"`
}

// AuthenticatedUser is what a signed-in user sees about themselves.
type AuthenticatedUser struct {
	Credentials   models.User           `json:"credentials"`
	Likes         []models.Like         `json:"likes"`
	Notifications []models.Notification `json:"notifications"`
}

type UserProfile struct {
	User    models.User     `json:"user"`
	Screams []models.Scream `json:"screams"`
}

type UserService struct {
	store        Store
	defaultImage string
}

func NewUserService(s Store, defaultImage string) *UserService {
	return &UserService{store: s, defaultImage: defaultImage}
}

func (s *UserService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Handle = strings.TrimSpace(in.Handle)

	fields := map[string]string{}
	if utils.IsEmpty(in.Email) {
		fields["email"] = "Must not be empty"
	} else if !utils.IsEmail(in.Email) {
		fields["email"] = "Must be a valid email address"
	}
	if utils.IsEmpty(in.Password) {
		fields["password"] = "Must not be empty"
	}
	if in.Password != in.ConfirmPassword {
		fields["confirmPassword"] = "Passwords must match"
	}
	if utils.IsEmpty(in.Handle) {
		fields["handle"] = "Must not be empty"
	}
	if len(fields) > 0 {
		return nil, &apperr.ValidationError{Fields: fields}
	}

	var existing models.User
	err := s.store.Get(ctx, &existing, in.Handle)
	if err == nil {
		return nil, apperr.Invalid("handle", "this handle is already taken")
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	err = s.store.First(ctx, &existing, store.Eq("email", in.Email))
	if err == nil {
		return nil, apperr.Invalid("email", "Email is already in use")
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &models.User{
		Handle:       in.Handle,
		UserID:       uuid.NewString(),
		Email:        in.Email,
		PasswordHash: hash,
		ImageURL:     s.defaultImage,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.Create(ctx, u); err != nil {
		// lost a race on handle or email
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Invalid("handle", "this handle is already taken")
		}
		return nil, err
	}
	return u, nil
}

// Login checks email and password. Unknown emails and wrong passwords fail
// the same way.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, error) {
	fields := map[string]string{}
	if utils.IsEmpty(email) {
		fields["email"] = "Must not be empty"
	}
	if utils.IsEmpty(password) {
		fields["password"] = "Must not be empty"
	}
	if len(fields) > 0 {
		return nil, &apperr.ValidationError{Fields: fields}
	}

	var u models.User
	err := s.store.First(ctx, &u, store.Eq("email", strings.TrimSpace(email)))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Unauthorized("Wrong credentials, please try again")
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPasswordHash(password, u.PasswordHash) {
		return nil, apperr.Unauthorized("Wrong credentials, please try again")
	}
	return &u, nil
}

func (s *UserService) Get(ctx context.Context, handle string) (*models.User, error) {
	var u models.User
	if err := s.store.Get(ctx, &u, handle); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, err
	}
	return &u, nil
}

// AddDetails writes the non-empty profile fields. Website gets an http://
// prefix when it has no scheme.
func (s *UserService) AddDetails(ctx context.Context, handle string, in DetailsInput) (*models.User, error) {
	fields := map[string]any{}
	if bio := strings.TrimSpace(in.Bio); bio != "" {
		fields["bio"] = utils.CleanText(bio)
	}
	if site := utils.NormalizeWebsite(in.Website); site != "" {
		fields["website"] = site
	}
	if loc := strings.TrimSpace(in.Location); loc != "" {
		fields["location"] = utils.CleanText(loc)
	}
	if len(fields) > 0 {
		if err := s.store.Update(ctx, models.CollectionUsers, handle, fields); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, handle)
}

// SetImage changes the profile image. The user's screams pick up the new
// image through the change feed.
func (s *UserService) SetImage(ctx context.Context, handle, imageURL string) (*models.User, error) {
	if utils.IsEmpty(imageURL) {
		return nil, apperr.Invalid("imageUrl", "Must not be empty")
	}
	fields := map[string]any{models.FieldImageURL: strings.TrimSpace(imageURL)}
	if err := s.store.Update(ctx, models.CollectionUsers, handle, fields); err != nil {
		return nil, err
	}
	return s.Get(ctx, handle)
}

func (s *UserService) Authenticated(ctx context.Context, handle string) (*AuthenticatedUser, error) {
	u, err := s.Get(ctx, handle)
	if err != nil {
		return nil, err
	}

	out := &AuthenticatedUser{
		Credentials:   *u,
		Likes:         []models.Like{},
		Notifications: []models.Notification{},
	}
	if err := s.store.Find(ctx, &out.Likes, store.Eq(models.FieldUserHandle, handle)); err != nil {
		return nil, err
	}
	q := store.Eq(models.FieldRecipient, handle).OrderBy("created_at desc").Take(latestNotifications)
	if err := s.store.Find(ctx, &out.Notifications, q); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *UserService) Profile(ctx context.Context, handle string) (*UserProfile, error) {
	u, err := s.Get(ctx, handle)
	if err != nil {
		return nil, err
	}
	out := &UserProfile{User: *u, Screams: []models.Scream{}}
	q := store.Eq(models.FieldUserHandle, handle).OrderBy("created_at desc")
	if err := s.store.Find(ctx, &out.Screams, q); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkNotificationsRead flags the listed notifications as read. Ids that
// don't exist or belong to someone else are ignored.
func (s *UserService) MarkNotificationsRead(ctx context.Context, handle string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	var owned []models.Notification
	q := store.Query{Where: map[string]any{
		models.FieldID:        ids,
		models.FieldRecipient: handle,
	}}
	if err := s.store.Find(ctx, &owned, q); err != nil {
		return err
	}

	b := store.NewBatch()
	for _, n := range owned {
		if !n.Read {
			b.Update(models.CollectionNotifications, n.ID, map[string]any{models.FieldRead: true})
		}
	}
	return s.store.Commit(ctx, b)
}
