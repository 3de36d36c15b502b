package validation

import "strings"

// RegisterInput is the body of POST /auth/register.
type RegisterInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Register validates a registration and normalizes name and email.
func Register(in *RegisterInput) error {
	var errs Errors
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)

	if in.Name == "" {
		errs.add("name", "Name is required")
	} else {
		checkName(&errs, in.Name)
	}
	checkEmail(&errs, in.Email)
	checkNewPassword(&errs, "password", "Password", in.Password,
		"confirmPassword", in.ConfirmPassword, "Please confirm your password")
	return errs.err()
}

// LoginInput is the body of POST /auth/login.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login validates login input.
func Login(in *LoginInput) error {
	var errs Errors
	in.Email = normalizeEmail(in.Email)
	checkEmail(&errs, in.Email)
	if in.Password == "" {
		errs.add("password", "Password is required")
	}
	return errs.err()
}

func checkEmail(errs *Errors, email string) {
	switch {
	case email == "":
		errs.add("email", "Email is required")
	case !validEmail(email):
		errs.add("email", "Please provide a valid email")
	}
}

// ProfileInput updates name and/or email; absent keys keep their value.
type ProfileInput struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// UpdateProfile validates and normalizes the keys that are present.
func UpdateProfile(in *ProfileInput) error {
	var errs Errors
	if in.Name != nil {
		v := strings.TrimSpace(*in.Name)
		in.Name = &v
		checkName(&errs, v)
	}
	if in.Email != nil {
		v := normalizeEmail(*in.Email)
		in.Email = &v
		if !validEmail(v) {
			errs.add("email", "Please provide a valid email")
		}
	}
	return errs.err()
}

// PasswordInput is the body of PUT /auth/password.
type PasswordInput struct {
	CurrentPassword    string `json:"currentPassword"`
	NewPassword        string `json:"newPassword"`
	ConfirmNewPassword string `json:"confirmNewPassword"`
}

// UpdatePassword validates a password change.
func UpdatePassword(in *PasswordInput) error {
	var errs Errors
	if in.CurrentPassword == "" {
		errs.add("currentPassword", "Current password is required")
	}
	checkNewPassword(&errs, "newPassword", "New password", in.NewPassword,
		"confirmNewPassword", in.ConfirmNewPassword, "Please confirm your new password")
	return errs.err()
}
