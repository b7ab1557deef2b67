package form

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sakif/snippetbin/internal/apperror"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 150
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bytes; bcrypt's limit
)

// usernamePattern allows letters and digits in any script plus @ . + - _
var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}@.+\-_]+$`)

// RegisterInput is the registration form as submitted.
// Passwords are never re-rendered, so templates only read Username and Email.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
}

func ParseRegister(v url.Values) RegisterInput {
	return RegisterInput{
		Username:        v.Get("username"),
		Email:           v.Get("email"),
		Password:        v.Get("password1"),
		PasswordConfirm: v.Get("password2"),
	}
}

// ValidRegistration is a registration that passed ValidateRegister.
// Username uniqueness is not checked here; the users table enforces it.
type ValidRegistration struct {
	username string
	email    string
	password string
}

func (r ValidRegistration) Username() string { return r.username }
func (r ValidRegistration) Email() string    { return r.email }
func (r ValidRegistration) Password() string { return r.password }

// ValidateRegister checks a submitted registration.
func ValidateRegister(in RegisterInput) (ValidRegistration, error) {
	errs := apperror.FieldErrors{}

	username := strings.TrimSpace(in.Username)
	n := utf8.RuneCountInString(username)
	switch {
	case username == "":
		errs.Add("username", "This field is required.")
	case n < MinUsernameLength || n > MaxUsernameLength:
		errs.Add("username", fmt.Sprintf("Username must be between %d and %d characters.",
			MinUsernameLength, MaxUsernameLength))
	case !usernamePattern.MatchString(username):
		errs.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}

	email := strings.TrimSpace(in.Email)
	if email != "" {
		addr, err := mail.ParseAddress(email)
		// ParseAddress also accepts "Name <addr>"; only a bare address is wanted
		if err != nil || addr.Address != email {
			errs.Add("email", "Enter a valid email address.")
		}
	}

	switch {
	case in.Password == "":
		errs.Add("password1", "This field is required.")
	case len(in.Password) < MinPasswordLength:
		errs.Add("password1", fmt.Sprintf("This password is too short. It must contain at least %d characters.",
			MinPasswordLength))
	case len(in.Password) > MaxPasswordLength:
		errs.Add("password1", fmt.Sprintf("This password is too long. It must be at most %d bytes.",
			MaxPasswordLength))
	case strings.EqualFold(in.Password, username):
		errs.Add("password1", "The password is too similar to the username.")
	}

	if in.PasswordConfirm == "" {
		errs.Add("password2", "This field is required.")
	} else if in.Password != in.PasswordConfirm {
		errs.Add("password2", "The two password fields didn't match.")
	}

	if err := errs.Err(); err != nil {
		return ValidRegistration{}, err
	}

	return ValidRegistration{username: username, email: email, password: in.Password}, nil
}
