package client

import (
	"regexp"

	"github.com/habedi/petcli/pkg/validation"
)

const (
	minUsernameLength         = 3
	minLoginPasswordLength    = 6
	minRegisterPasswordLength = 8
	minAnimalNameLength       = 2
	maxAnimalAge              = 100
)

var (
	hasLetter = regexp.MustCompile(`[a-zA-Z]`)
	hasDigit  = regexp.MustCompile(`[0-9]`)
)

// ValidateLogin checks credentials before they are sent.
func ValidateLogin(creds LoginCredentials) error {
	var errs validation.Errors
	errs.Add(validation.ValidateMinLength("username", creds.Username, minUsernameLength))
	errs.Add(validation.ValidateMinLength("password", creds.Password, minLoginPasswordLength))
	return errs.Err()
}

// ValidateRegistration checks a sign-up form, including the password
// confirmation which is never sent to the server.
func ValidateRegistration(data RegisterData, confirmPassword string) error {
	var errs validation.Errors
	errs.Add(validation.ValidateMinLength("username", data.Username, minUsernameLength))
	errs.Add(validation.ValidateEmail("email", data.Email))
	if err := validation.ValidateMinLength("password", data.Password, minRegisterPasswordLength); err != nil {
		errs.Add(err)
	} else {
		errs.Add(validation.ValidatePattern("password", data.Password, hasLetter, "must contain letters"))
		errs.Add(validation.ValidatePattern("password", data.Password, hasDigit, "must contain numbers"))
	}
	if err := validation.ValidateNonEmptyString("confirm_password", confirmPassword); err != nil {
		errs.Add(err)
	} else {
		errs.Add(validation.ValidateEqual("confirm_password", confirmPassword, data.Password, "passwords must match"))
	}
	return errs.Err()
}

// ValidateAnimal checks a new animal.
func ValidateAnimal(in AnimalInput) error {
	var errs validation.Errors
	errs.Add(validation.ValidateMinLength("name", in.Name, minAnimalNameLength))
	errs.Add(validateSpecies(in.Species))
	if in.Age != nil {
		errs.Add(validation.ValidateIntRange("age", *in.Age, 0, maxAnimalAge))
	}
	return errs.Err()
}

// ValidateAnimalPatch checks only the fields being changed.
func ValidateAnimalPatch(p AnimalPatch) error {
	var errs validation.Errors
	if p.Name != nil {
		errs.Add(validation.ValidateMinLength("name", *p.Name, minAnimalNameLength))
	}
	if p.Species != nil {
		errs.Add(validateSpecies(*p.Species))
	}
	if p.Age != nil {
		errs.Add(validation.ValidateIntRange("age", *p.Age, 0, maxAnimalAge))
	}
	return errs.Err()
}

func validateSpecies(s Species) error {
	if err := validation.ValidateNonEmptyString("species", string(s)); err != nil {
		return err
	}
	return validation.ValidateOneOf("species", string(s), SpeciesStrings())
}
