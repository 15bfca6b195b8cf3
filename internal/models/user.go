package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Attribute names as they appear in user records and grant tables.
const (
	AttrID              = "id"
	AttrUsername        = "username"
	AttrEmail           = "email"
	AttrPassword        = "password"
	AttrPhoneNumber     = "phoneNumber"
	AttrFirstName       = "firstName"
	AttrLastName        = "lastName"
	AttrLanguage        = "language"
	AttrGender          = "gender"
	AttrBirthday        = "birthday"
	AttrAddress         = "address"
	AttrIsVerified      = "isVerified"
	AttrPoint           = "point"
	AttrFavors          = "favors"
	AttrInterestedIn    = "interestedIn"
	AttrProfilePhotoURI = "profilePhotoUri"
	AttrLastLogin       = "lastLogin"
	AttrRole            = "role"
	AttrUserStatus      = "userStatus"
	AttrCreatedAt       = "createdAt"
	AttrUpdatedAt       = "updatedAt"
)

const (
	MinUsernameLength = 4
	MaxUsernameLength = 30
	MinPasswordLength = 8
	// bcrypt ignores input past 72 bytes and x/crypto rejects it.
	MaxPasswordLength = 72
	birthdayLayout    = "2006-01-02"
)

// Column widths of the users table.
const (
	MaxNameLength     = 100
	MaxPhoneLength    = 32
	MaxLanguageLength = 16
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.]+$`)
	genders       = map[string]struct{}{"Male": {}, "Female": {}, "Other": {}}
)

// Province of an address.
type Province struct {
	Name string `json:"name,omitempty"`
	Code string `json:"code,omitempty"`
}

// Address is stored as JSONB.
type Address struct {
	Province Province `json:"province"`
	City     string   `json:"city,omitempty"`
	Area     string   `json:"area,omitempty"`
	Street   string   `json:"street,omitempty"`
}

// LoginEntry is one element of a user's login history.
type LoginEntry struct {
	Agent string    `json:"agent"`
	IP    string    `json:"ip"`
	Time  time.Time `json:"time"`
}

// User is the account record.
type User struct {
	ID              uuid.UUID
	Username        string
	Email           string
	PasswordHash    string
	PhoneNumber     string
	FirstName       string
	LastName        string
	Language        string
	Gender          string
	Birthday        *time.Time
	Address         *Address
	IsVerified      bool
	Point           int
	Favors          []string
	InterestedIn    []string
	ProfilePhotoURI string
	LastLogin       []LoginEntry
	Role            string
	UserStatus      string
	CreatedAt       time.Time
	UpdatedAt       time.Time

	pendingPassword string
	passwordDirty   bool
}

// UserListItem is the projection returned by admin listings.
type UserListItem struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Email      string    `db:"email" json:"email"`
	Username   string    `db:"username" json:"username"`
	FirstName  string    `db:"first_name" json:"firstName"`
	LastName   string    `db:"last_name" json:"lastName"`
	Role       string    `db:"role" json:"role"`
	UserStatus string    `db:"user_status" json:"userStatus"`
}

// Record keys the list item by attribute name.
func (i UserListItem) Record() map[string]any {
	return map[string]any{
		AttrID:         i.ID.String(),
		AttrEmail:      i.Email,
		AttrUsername:   i.Username,
		AttrFirstName:  i.FirstName,
		AttrLastName:   i.LastName,
		AttrRole:       i.Role,
		AttrUserStatus: i.UserStatus,
	}
}

// UserFilter narrows admin listings. Empty fields match everything.
type UserFilter struct {
	Role   string
	Status string
	Search string
}

// SetPassword stages a plaintext password. It is hashed on the next preparation for persistence.
func (u *User) SetPassword(plain string) {
	u.pendingPassword = plain
	u.passwordDirty = true
}

// PendingPassword returns the staged plaintext password, if any.
func (u *User) PendingPassword() (string, bool) {
	return u.pendingPassword, u.passwordDirty
}

// ApplyPasswordHash stores hash and clears the staged password.
func (u *User) ApplyPasswordHash(hash string) {
	u.PasswordHash = hash
	u.pendingPassword = ""
	u.passwordDirty = false
}

// AppendLogin records a login and keeps at most limit most recent entries.
func (u *User) AppendLogin(entry LoginEntry, limit int) {
	u.LastLogin = append(u.LastLogin, entry)
	if limit > 0 && len(u.LastLogin) > limit {
		u.LastLogin = append([]LoginEntry(nil), u.LastLogin[len(u.LastLogin)-limit:]...)
	}
}

// IsSuspended reports whether the account is suspended.
func (u *User) IsSuspended() bool {
	return u.UserStatus == StatusSuspended
}

// Record returns every attribute of the user keyed by its attribute name,
// ready to be projected by an RBAC permission.
func (u *User) Record() map[string]any {
	var birthday any
	if u.Birthday != nil {
		birthday = u.Birthday.Format(birthdayLayout)
	}
	var address any
	if u.Address != nil {
		address = *u.Address
	}
	return map[string]any{
		AttrID:              u.ID.String(),
		AttrUsername:        u.Username,
		AttrEmail:           u.Email,
		AttrPassword:        u.PasswordHash,
		AttrPhoneNumber:     u.PhoneNumber,
		AttrFirstName:       u.FirstName,
		AttrLastName:        u.LastName,
		AttrLanguage:        u.Language,
		AttrGender:          u.Gender,
		AttrBirthday:        birthday,
		AttrAddress:         address,
		AttrIsVerified:      u.IsVerified,
		AttrPoint:           u.Point,
		AttrFavors:          nonNil(u.Favors),
		AttrInterestedIn:    nonNil(u.InterestedIn),
		AttrProfilePhotoURI: u.ProfilePhotoURI,
		AttrLastLogin:       u.LastLogin,
		AttrRole:            u.Role,
		AttrUserStatus:      u.UserStatus,
		AttrCreatedAt:       u.CreatedAt,
		AttrUpdatedAt:       u.UpdatedAt,
	}
}

// ApplyAttributes decodes each attribute and assigns it to the user.
// Callers pass only attributes already permitted for the acting principal.
func (u *User) ApplyAttributes(attrs map[string]json.RawMessage) error {
	for name, raw := range attrs {
		if err := u.applyAttribute(name, raw); err != nil {
			return err
		}
	}
	return nil
}

func (u *User) applyAttribute(name string, raw json.RawMessage) error {
	switch name {
	case AttrUsername:
		var v string
		if err := decodeAttr(name, raw, &v); err != nil {
			return err
		}
		if err := ValidateUsername(v); err != nil {
			return err
		}
		u.Username = v
	case AttrEmail:
		var v string
		if err := decodeAttr(name, raw, &v); err != nil {
			return err
		}
		if !strings.Contains(v, "@") {
			return fmt.Errorf("%w: email is malformed", ErrValidation)
		}
		u.Email = strings.ToLower(strings.TrimSpace(v))
	case AttrPassword:
		var v string
		if err := decodeAttr(name, raw, &v); err != nil {
			return err
		}
		if err := ValidatePassword(v); err != nil {
			return err
		}
		u.SetPassword(v)
	case AttrPhoneNumber:
		return decodeBoundedAttr(name, raw, MaxPhoneLength, &u.PhoneNumber)
	case AttrFirstName:
		return decodeBoundedAttr(name, raw, MaxNameLength, &u.FirstName)
	case AttrLastName:
		return decodeBoundedAttr(name, raw, MaxNameLength, &u.LastName)
	case AttrLanguage:
		return decodeBoundedAttr(name, raw, MaxLanguageLength, &u.Language)
	case AttrGender:
		var v string
		if err := decodeAttr(name, raw, &v); err != nil {
			return err
		}
		if _, ok := genders[v]; !ok && v != "" {
			return fmt.Errorf("%w: gender must be one of Male, Female, Other", ErrValidation)
		}
		u.Gender = v
	case AttrBirthday:
		var v *string
		if err := decodeAttr(name, raw, &v); err != nil {
			return err
		}
		if v == nil || *v == "" {
			u.Birthday = nil
			return nil
		}
		t, err := parseBirthday(*v)
		if err != nil {
			return err
		}
		u.Birthday = &t
	case AttrAddress:
		var v *Address
		if err := decodeAttr(name, raw, &v); err != nil {
			return err
		}
		u.Address = v
	case AttrIsVerified:
		return decodeAttr(name, raw, &u.IsVerified)
	case AttrPoint:
		return decodeAttr(name, raw, &u.Point)
	case AttrFavors:
		return decodeAttr(name, raw, &u.Favors)
	case AttrInterestedIn:
		return decodeAttr(name, raw, &u.InterestedIn)
	case AttrProfilePhotoURI:
		return decodeAttr(name, raw, &u.ProfilePhotoURI)
	case AttrRole:
		var v string
		if err := decodeAttr(name, raw, &v); err != nil {
			return err
		}
		if !IsValidRole(v) {
			return fmt.Errorf("%w: unknown role %q", ErrValidation, v)
		}
		u.Role = v
	case AttrUserStatus:
		var v string
		if err := decodeAttr(name, raw, &v); err != nil {
			return err
		}
		if !IsValidStatus(v) {
			return fmt.Errorf("%w: unknown user status %q", ErrValidation, v)
		}
		u.UserStatus = v
	case AttrID, AttrCreatedAt, AttrUpdatedAt, AttrLastLogin:
		// server-managed
	default:
		return fmt.Errorf("%w: unknown attribute %q", ErrValidation, name)
	}
	return nil
}

// ValidateUsername checks length and allowed characters.
func ValidateUsername(username string) error {
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return fmt.Errorf("%w: username must be between %d and %d characters", ErrValidation, MinUsernameLength, MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("%w: username may contain only letters, digits, '_' and '.'", ErrValidation)
	}
	return nil
}

// ValidatePassword checks the password length bounds.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, MaxPasswordLength)
	}
	return nil
}

// ValidatePhoneNumber checks that phone is set and fits the phone_number column.
func ValidatePhoneNumber(phone string) error {
	if phone == "" {
		return fmt.Errorf("%w: phone number is required", ErrValidation)
	}
	if utf8.RuneCountInString(phone) > MaxPhoneLength {
		return fmt.Errorf("%w: phone number must be at most %d characters", ErrValidation, MaxPhoneLength)
	}
	return nil
}

func decodeAttr(name string, raw json.RawMessage, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: attribute %q: %v", ErrValidation, name, err)
	}
	return nil
}

// decodeBoundedAttr decodes a string attribute no longer than limit characters.
func decodeBoundedAttr(name string, raw json.RawMessage, limit int, dst *string) error {
	var v string
	if err := decodeAttr(name, raw, &v); err != nil {
		return err
	}
	if utf8.RuneCountInString(v) > limit {
		return fmt.Errorf("%w: attribute %q must be at most %d characters", ErrValidation, name, limit)
	}
	*dst = v
	return nil
}

func parseBirthday(s string) (time.Time, error) {
	if t, err := time.Parse(birthdayLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: birthday must be YYYY-MM-DD", ErrValidation)
	}
	return t, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
