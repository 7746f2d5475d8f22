package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Role determines what a user can reach in the HTTP surface
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleDriver Role = "driver"
)

// IsValid returns true for a known role
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleDriver
}

// UserStatus represents the status of a user account
type UserStatus string

const (
	UserStatusActive      UserStatus = "active"
	UserStatusDeactivated UserStatus = "deactivated"
)

// Password cost for bcrypt
const bcryptCost = 12

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-.]+$`)
)

// User is an account in the fleet system. Drivers carry the vehicle they
// currently rent; admins do not.
type User struct {
	shared.BaseAggregateRoot
	Username          string     `gorm:"type:varchar(100);not null;uniqueIndex"`
	PasswordHash      string     `gorm:"type:varchar(255);not null"`
	DisplayName       string     `gorm:"type:varchar(200)"`
	Phone             string     `gorm:"type:varchar(50)"`
	Role              Role       `gorm:"type:varchar(20);not null;index"`
	Status            UserStatus `gorm:"type:varchar(20);not null;default:'active'"`
	AssignedVehicleID *uuid.UUID `gorm:"type:uuid;index"`
	LastLoginAt       *time.Time
}

// TableName returns the table name for GORM
func (User) TableName() string {
	return "users"
}

// NewUser creates an active user with a hashed password
func NewUser(username, password string, role Role) (*User, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Unknown role")
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL", "Failed to hash password")
	}

	return &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Username:          strings.ToLower(strings.TrimSpace(username)),
		PasswordHash:      passwordHash,
		Role:              role,
		Status:            UserStatusActive,
	}, nil
}

// VerifyPassword verifies if the provided password matches
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// SetPassword replaces the password hash (admin reset)
func (u *User) SetPassword(newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	passwordHash, err := hashPassword(newPassword)
	if err != nil {
		return shared.NewDomainError("INTERNAL", "Failed to hash password")
	}
	u.PasswordHash = passwordHash
	u.touch()
	return nil
}

// SetDisplayName sets the user's display name
func (u *User) SetDisplayName(displayName string) error {
	if len(displayName) > 200 {
		return shared.NewDomainError("VALIDATION_ERROR", "Display name cannot exceed 200 characters")
	}
	u.DisplayName = strings.TrimSpace(displayName)
	u.touch()
	return nil
}

// SetPhone sets the user's phone number
func (u *User) SetPhone(phone string) error {
	if len(phone) > 50 {
		return shared.NewDomainError("VALIDATION_ERROR", "Phone cannot exceed 50 characters")
	}
	u.Phone = strings.TrimSpace(phone)
	u.touch()
	return nil
}

// AssignVehicle binds a driver to the vehicle they rent. Only drivers carry
// an assignment.
func (u *User) AssignVehicle(vehicleID uuid.UUID) error {
	if u.Role != RoleDriver {
		return shared.NewDomainError("CONFLICT", "Only drivers can be assigned a vehicle")
	}
	if vehicleID == uuid.Nil {
		return shared.NewDomainError("VALIDATION_ERROR", "Vehicle ID cannot be empty")
	}
	u.AssignedVehicleID = &vehicleID
	u.touch()
	return nil
}

// UnassignVehicle releases the driver's current vehicle
func (u *User) UnassignVehicle() {
	u.AssignedVehicleID = nil
	u.touch()
}

// Deactivate disables the account. Deactivated drivers are skipped by debt
// generation and cannot log in.
func (u *User) Deactivate() error {
	if u.Status == UserStatusDeactivated {
		return shared.NewDomainError("CONFLICT", "User is already deactivated")
	}
	u.Status = UserStatusDeactivated
	u.touch()
	return nil
}

// Activate re-enables the account
func (u *User) Activate() error {
	if u.Status == UserStatusActive {
		return shared.NewDomainError("CONFLICT", "User is already active")
	}
	u.Status = UserStatusActive
	u.touch()
	return nil
}

// RecordLoginSuccess stamps the last successful login
func (u *User) RecordLoginSuccess() {
	now := time.Now()
	u.LastLoginAt = &now
	u.touch()
}

// IsActive returns true if the user can log in
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// IsDriver returns true for driver accounts
func (u *User) IsDriver() bool {
	return u.Role == RoleDriver
}

// GetDisplayNameOrUsername returns display name if set, otherwise username
func (u *User) GetDisplayNameOrUsername() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

func (u *User) touch() {
	u.UpdatedAt = time.Now()
	u.IncrementVersion()
}

func validateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Username cannot be empty")
	}
	if len(username) < 3 {
		return shared.NewDomainError("VALIDATION_ERROR", "Username must be at least 3 characters")
	}
	if len(username) > 100 {
		return shared.NewDomainError("VALIDATION_ERROR", "Username cannot exceed 100 characters")
	}
	if !usernameRegex.MatchString(username) {
		return shared.NewDomainError("VALIDATION_ERROR", "Username can only contain letters, numbers, underscores, hyphens, and dots")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewDomainError("VALIDATION_ERROR", "Password must be at least 8 characters")
	}
	if len(password) > 128 {
		return shared.NewDomainError("VALIDATION_ERROR", "Password cannot exceed 128 characters")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
