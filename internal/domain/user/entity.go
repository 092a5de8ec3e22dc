// Package user defines the user domain entity
package user

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// User represents a user in the system
type User struct {
	id           uuid.UUID
	email        string
	name         string
	passwordHash string
	isActive     bool
	role         Role
	profile      *Profile
	preferences  Preferences
	createdAt    time.Time
	updatedAt    time.Time
	lastLoginAt  *time.Time

	events []shared.DomainEvent
}

// Role represents the role of a user
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is known
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// NewUser creates a new user with validation
func NewUser(email, name, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	if err := validateName(name); err != nil {
		return nil, err
	}

	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	now := time.Now().UTC()
	u := &User{
		id:           uuid.New(),
		email:        email,
		name:         name,
		passwordHash: string(hashedPassword),
		isActive:     true,
		role:         RoleUser,
		preferences:  DefaultPreferences(),
		createdAt:    now,
		updatedAt:    now,
	}
	u.addEvent(UserRegisteredEvent{UserID: u.id, Email: email, RegisteredAt: now})
	return u, nil
}

// Snapshot carries the persisted state of a user
type Snapshot struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	Role         Role
	Profile      *Profile
	Preferences  Preferences
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
}

// ReconstructUser rebuilds a user from storage without raising events
func ReconstructUser(s Snapshot) *User {
	prefs := s.Preferences
	if len(prefs.MealTypes) == 0 {
		prefs.MealTypes = DefaultPreferences().MealTypes
	}
	role := s.Role
	if !role.Valid() {
		role = RoleUser
	}
	return &User{
		id:           s.ID,
		email:        s.Email,
		name:         s.Name,
		passwordHash: s.PasswordHash,
		isActive:     s.IsActive,
		role:         role,
		profile:      s.Profile,
		preferences:  prefs,
		createdAt:    s.CreatedAt,
		updatedAt:    s.UpdatedAt,
		lastLoginAt:  s.LastLoginAt,
	}
}

// ID returns the user's ID
func (u *User) ID() uuid.UUID {
	return u.id
}

// Email returns the user's email
func (u *User) Email() string {
	return u.email
}

// Name returns the user's name
func (u *User) Name() string {
	return u.name
}

// PasswordHash returns the bcrypt hash for persistence
func (u *User) PasswordHash() string {
	return u.passwordHash
}

// IsActive returns whether the user is active
func (u *User) IsActive() bool {
	return u.isActive
}

// Role returns the user's role
func (u *User) Role() Role {
	return u.role
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.role == RoleAdmin
}

// Profile returns the user's profile, nil when never filled in
func (u *User) Profile() *Profile {
	return u.profile
}

// Preferences returns the user's planning preferences
func (u *User) Preferences() Preferences {
	return u.preferences
}

// CaloricNeeds returns the profile's daily target or 0 when unknown
func (u *User) CaloricNeeds() int {
	if u.profile == nil {
		return 0
	}
	return u.profile.CaloricNeeds()
}

// CreatedAt returns when the user was created
func (u *User) CreatedAt() time.Time {
	return u.createdAt
}

// UpdatedAt returns when the user was last updated
func (u *User) UpdatedAt() time.Time {
	return u.updatedAt
}

// LastLoginAt returns when the user last logged in
func (u *User) LastLoginAt() *time.Time {
	return u.lastLoginAt
}

// CheckPassword verifies if the provided password matches
func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(password))
}

// ChangePassword verifies the current password and replaces it
func (u *User) ChangePassword(current, next string) error {
	if err := u.CheckPassword(current); err != nil {
		return ErrWrongPassword
	}
	if err := validatePassword(next); err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return errors.New("failed to hash password")
	}

	u.passwordHash = string(hashedPassword)
	u.updatedAt = time.Now().UTC()
	return nil
}

// UpdateProfile validates and replaces the user's profile
func (u *User) UpdateProfile(profile Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	u.profile = &profile
	u.updatedAt = time.Now().UTC()
	u.addEvent(ProfileUpdatedEvent{UserID: u.id, CaloricNeeds: profile.CaloricNeeds(), UpdatedAt: u.updatedAt})
	return nil
}

// UpdatePreferences validates and replaces the user's preferences
func (u *User) UpdatePreferences(preferences Preferences) error {
	if err := preferences.Validate(); err != nil {
		return err
	}
	u.preferences = preferences
	u.updatedAt = time.Now().UTC()
	return nil
}

// SetRole changes the user's role
func (u *User) SetRole(role Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	u.role = role
	u.updatedAt = time.Now().UTC()
	return nil
}

// PromoteToAdmin grants the admin role
func (u *User) PromoteToAdmin() {
	u.role = RoleAdmin
	u.updatedAt = time.Now().UTC()
}

// Deactivate deactivates the user
func (u *User) Deactivate() {
	u.isActive = false
	u.updatedAt = time.Now().UTC()
}

// Activate activates the user
func (u *User) Activate() {
	u.isActive = true
	u.updatedAt = time.Now().UTC()
}

// RecordLogin records a login timestamp
func (u *User) RecordLogin() {
	now := time.Now().UTC()
	u.lastLoginAt = &now
	u.updatedAt = now
}

func (u *User) addEvent(event shared.DomainEvent) {
	u.events = append(u.events, event)
}

// Events returns and clears pending domain events
func (u *User) Events() []shared.DomainEvent {
	events := u.events
	u.events = []shared.DomainEvent{}
	return events
}

// Validation functions
func validateEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}

	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return ErrInvalidEmail
	}

	if len(email) > 255 {
		return ErrInvalidEmail
	}

	return nil
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return ErrInvalidName
	}

	if len(name) > 100 {
		return ErrInvalidName
	}

	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return ErrPasswordTooShort
	}

	if len(password) > 72 {
		return ErrPasswordTooLong
	}

	return nil
}
