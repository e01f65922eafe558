package service

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/pribylovaa/go-cookie-auth/internal/password"
)

// Допустимые символы пароля: латиница, цифры и @$!%*#?&, не менее 8.
var passwordAlphabet = regexp.MustCompile(`^[A-Za-z\d@$!%*#?&]{8,}$`)

const passwordSpecials = "@$!%*#?&"

const (
	msgEmailRequired    = "Email is required to create an account"
	msgEmailInvalid     = "Please provide a valid email address"
	msgNameRequired     = "Name is required to create an account"
	msgPasswordRequired = "Password is required to create an account"
	msgPasswordWeak     = "Password must be 8 characters long with at least 1 letter, 1 number, and 1 special character"
	msgPasswordLong     = "Password must be at most 72 characters long"
	msgRequired         = "is required"
	msgPasswordShort    = "must be at least 8 characters"
)

// SignupInput — данные регистрации.
type SignupInput struct {
	Email    string
	Name     string
	Password string
}

// SigninInput — данные входа.
type SigninInput struct {
	Email    string
	Password string
}

// ValidateSignup проверяет все поля регистрации и возвращает нормализованный ввод
// (email в нижнем регистре без пробелов, имя без пробелов по краям).
func ValidateSignup(in SignupInput) (SignupInput, error) {
	verr := &ValidationError{}

	email, emailMsg := normalizeEmail(in.Email)
	switch emailMsg {
	case "":
	case msgRequired:
		verr.add("email", msgEmailRequired)
	default:
		verr.add("email", emailMsg)
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		verr.add("name", msgNameRequired)
	}

	switch {
	case in.Password == "":
		verr.add("password", msgPasswordRequired)
	case len(in.Password) > password.MaxLength:
		verr.add("password", msgPasswordLong)
	case !strongPassword(in.Password):
		verr.add("password", msgPasswordWeak)
	}

	if err := verr.orNil(); err != nil {
		return SignupInput{}, err
	}

	return SignupInput{Email: email, Name: name, Password: in.Password}, nil
}

// ValidateSignin проверяет форму данных входа. Сервис сводит любую ошибку
// к ErrInvalidCredentials, поэтому подробности наружу не уходят.
func ValidateSignin(in SigninInput) (SigninInput, error) {
	verr := &ValidationError{}

	email, emailMsg := normalizeEmail(in.Email)
	if emailMsg != "" {
		verr.add("email", emailMsg)
	}

	switch {
	case in.Password == "":
		verr.add("password", msgRequired)
	case len(in.Password) < 8:
		verr.add("password", msgPasswordShort)
	}

	if err := verr.orNil(); err != nil {
		return SigninInput{}, err
	}

	return SigninInput{Email: email, Password: in.Password}, nil
}

// normalizeEmail возвращает email в нижнем регистре или текст ошибки.
func normalizeEmail(raw string) (string, string) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", msgRequired
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", msgEmailInvalid
	}

	local, domain, _ := strings.Cut(email, "@")
	if local == "" || !strings.Contains(domain, ".") {
		return "", msgEmailInvalid
	}

	return strings.ToLower(email), ""
}

func strongPassword(pw string) bool {
	if !passwordAlphabet.MatchString(pw) {
		return false
	}

	var hasLetter, hasDigit, hasSpecial bool
	for _, r := range pw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(passwordSpecials, r):
			hasSpecial = true
		}
	}

	return hasLetter && hasDigit && hasSpecial
}
