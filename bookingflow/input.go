package bookingflow

import (
	"strings"

	"stylo/models"
	"stylo/utils"
)

// OTPLength is the number of digits of a verification code.
const OTPLength = 6

// SanitizeOTP keeps the digits of raw and truncates them to OTPLength.
func SanitizeOTP(raw string) string {
	code := utils.DigitsOnly(raw)
	if len(code) > OTPLength {
		code = code[:OTPLength]
	}
	return code
}

// ClientDraft is the client form of the booking flow.
type ClientDraft struct {
	DocumentType    string
	DocumentNumber  string
	PhoneNumber     string
	FirstName       string
	LastNamePaterno string
	LastNameMaterno string
	Email           string
	Gender          string
	BirthDate       string
}

func (d ClientDraft) sameIdentity(o ClientDraft) bool {
	return d.DocumentType == o.DocumentType &&
		d.DocumentNumber == o.DocumentNumber &&
		d.FirstName == o.FirstName &&
		d.LastNamePaterno == o.LastNamePaterno &&
		d.LastNameMaterno == o.LastNameMaterno &&
		d.Gender == o.Gender &&
		d.BirthDate == o.BirthDate
}

// validate mirrors the backend checks so obvious mistakes never reach the network.
func (d ClientDraft) validate() *Error {
	switch {
	case !utils.ValidPhone(d.PhoneNumber):
		return validation("Ingresa un teléfono válido con código de país, por ejemplo +51987654321")
	case !models.ValidDocumentType(d.DocumentType):
		return validation("Tipo de documento inválido")
	case len(d.DocumentNumber) < 6 || len(d.DocumentNumber) > 20:
		return validation("Número de documento inválido")
	case len(strings.TrimSpace(d.FirstName)) < 2:
		return validation("Ingresa tu nombre")
	case len(strings.TrimSpace(d.LastNamePaterno)) < 2:
		return validation("Ingresa tu apellido paterno")
	}
	return nil
}

// patchEmpty copies registry data into fields the user has not filled yet.
func (d *ClientDraft) patchEmpty(p models.RegistryPerson) {
	fill := func(dst *string, v string) {
		if *dst == "" && v != "" {
			*dst = v
		}
	}
	fill(&d.FirstName, p.FirstName)
	fill(&d.LastNamePaterno, p.LastNamePaterno)
	fill(&d.LastNameMaterno, p.LastNameMaterno)
	fill(&d.Gender, p.Gender)
	fill(&d.BirthDate, p.BirthDate)
}

func (d ClientDraft) request(token string) models.SendOTPRequest {
	return models.SendOTPRequest{
		SessionToken:    token,
		PhoneNumber:     d.PhoneNumber,
		DocumentType:    d.DocumentType,
		DocumentNumber:  d.DocumentNumber,
		FirstName:       strings.TrimSpace(d.FirstName),
		LastNamePaterno: strings.TrimSpace(d.LastNamePaterno),
		LastNameMaterno: strings.TrimSpace(d.LastNameMaterno),
		Email:           strings.TrimSpace(d.Email),
		Gender:          d.Gender,
		BirthDate:       d.BirthDate,
	}
}

func draftFromClient(docType, docNumber string, c *models.ClientPublic) ClientDraft {
	d := ClientDraft{
		DocumentType:    docType,
		DocumentNumber:  docNumber,
		PhoneNumber:     c.PhoneNumber,
		FirstName:       c.FirstName,
		LastNamePaterno: c.LastNamePaterno,
		LastNameMaterno: c.LastNameMaterno,
		Email:           c.Email,
		Gender:          c.Gender,
	}
	if c.BirthDate != nil {
		d.BirthDate = *c.BirthDate
	}
	return d
}
