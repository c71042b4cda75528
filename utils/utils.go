package utils

import (
	"html"
	"net/mail"
	"strings"

	"github.com/Dosada05/competition-system/models"
	"golang.org/x/crypto/bcrypt"
)

const BcryptCost = 12

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func IsValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == strings.TrimSpace(email)
}

// EscapeMetadata HTML-escapes every free-text field.
func EscapeMetadata(m models.SubmissionMetadata) models.SubmissionMetadata {
	return models.SubmissionMetadata{
		Description:               html.EscapeString(m.Description),
		TeamName:                  html.EscapeString(m.TeamName),
		OrganizationOrAffiliation: html.EscapeString(m.OrganizationOrAffiliation),
		MethodName:                html.EscapeString(m.MethodName),
		MethodDescription:         html.EscapeString(m.MethodDescription),
		ProjectURL:                html.EscapeString(m.ProjectURL),
		PublicationURL:            html.EscapeString(m.PublicationURL),
		Bibtex:                    html.EscapeString(m.Bibtex),
	}
}
