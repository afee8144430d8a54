package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"project-planner/logging"
	"project-planner/models"
	"project-planner/repositories"
	"project-planner/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const invalidCredentials = "Invalid credentials"

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserService struktura
type UserService struct {
	users      repositories.UserRepository
	jwt        *JWTService
	bcryptCost int
	// dummyHash is compared against on unknown emails so both login
	// failures cost one bcrypt round.
	dummyHash string
	now       func() time.Time
}

func NewUserService(store *repositories.Store, jwt *JWTService, bcryptCost int) *UserService {
	dummy, err := utils.HashPassword("planner-unknown-user", bcryptCost)
	if err != nil {
		logging.Logger.Errorf("Event ID: DUMMY_HASH_FAILED, Description: %v", err)
	}
	return &UserService{users: store.Users, jwt: jwt, bcryptCost: bcryptCost, dummyHash: dummy, now: time.Now}
}

// RegisterUser creates the account and returns it with a fresh token.
func (s *UserService) RegisterUser(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	if in.Email == "" || in.Password == "" || in.FullName == "" {
		return nil, "", utils.BadRequest("All fields are required")
	}
	email, ok := utils.NormalizeEmail(in.Email)
	if !ok {
		return nil, "", utils.BadRequest("Invalid email address")
	}
	if len(in.Password) < 6 {
		return nil, "", utils.BadRequest("Password must be at least 6 characters long")
	}
	fullName := strings.TrimSpace(in.FullName)
	if len([]rune(fullName)) < 2 {
		return nil, "", utils.BadRequest("Full name must be at least 2 characters long")
	}

	// Provera da li korisnik vec postoji
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		logging.Logger.Warnf("Event ID: REGISTER_DUPLICATE_EMAIL, Description: Registration rejected, email already registered")
		return nil, "", utils.BadRequest("Email already registered")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, "", utils.Internal("Failed to register user", err)
	}

	hashed, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, "", utils.Internal("Failed to register user", err)
	}

	ts := s.now().UTC()
	user := &models.User{
		ID:        primitive.NewObjectID(),
		Email:     email,
		Password:  hashed,
		FullName:  fullName,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, "", utils.BadRequest("Email already registered")
		}
		return nil, "", utils.Internal("Failed to register user", err)
	}

	token, err := s.jwt.GenerateAuthToken(user.ID)
	if err != nil {
		return nil, "", utils.Internal("Failed to register user", err)
	}

	logging.Logger.Infof("Event ID: USER_REGISTERED, Description: User %s registered", user.ID.Hex())
	return user, token, nil
}

// LoginUser never reveals whether the email exists.
func (s *UserService) LoginUser(ctx context.Context, in LoginInput) (*models.User, string, error) {
	if in.Email == "" || in.Password == "" {
		return nil, "", utils.BadRequest("Email and password are required")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// ista cena kao pogresna lozinka
			utils.CheckPassword(s.dummyHash, in.Password)
			logging.Logger.Warnf("Event ID: LOGIN_UNKNOWN_EMAIL, Description: Login attempt for unknown email")
			return nil, "", utils.Unauthorized(invalidCredentials)
		}
		return nil, "", utils.Internal("Failed to login", err)
	}

	if !utils.CheckPassword(user.Password, in.Password) {
		logging.Logger.Warnf("Event ID: LOGIN_BAD_PASSWORD, Description: Invalid password for user %s", user.ID.Hex())
		return nil, "", utils.Unauthorized(invalidCredentials)
	}

	token, err := s.jwt.GenerateAuthToken(user.ID)
	if err != nil {
		return nil, "", utils.Internal("Failed to login", err)
	}

	logging.Logger.Infof("Event ID: USER_LOGGED_IN, Description: User %s logged in", user.ID.Hex())
	return user, token, nil
}
