package models

import "time"

// Supported identity document types.
const (
	DocumentDNI       = "dni"
	DocumentPasaporte = "pasaporte"
	DocumentCE        = "ce"
)

func ValidDocumentType(t string) bool {
	switch t {
	case DocumentDNI, DocumentPasaporte, DocumentCE:
		return true
	}
	return false
}

// Client is an end customer, identified by (document type, document number).
type Client struct {
	ID              string    `bson:"id" json:"id"`
	DocumentType    string    `bson:"document_type" json:"document_type"`
	DocumentNumber  string    `bson:"document_number" json:"document_number"`
	FirstName       string    `bson:"first_name" json:"first_name"`
	LastNamePaterno string    `bson:"last_name_paterno" json:"last_name_paterno"`
	LastNameMaterno string    `bson:"last_name_materno,omitempty" json:"last_name_materno"`
	PhoneNumber     string    `bson:"phone_number" json:"phone_number"`
	Email           string    `bson:"email,omitempty" json:"email"`
	Gender          string    `bson:"gender" json:"gender"`
	BirthDate       string    `bson:"birth_date,omitempty" json:"birth_date,omitempty"` // YYYY-MM-DD
	PhotoURL        string    `bson:"photo_url,omitempty" json:"photo_url,omitempty"`
	WhatsAppOptIn   bool      `bson:"whatsapp_opt_in" json:"-"`
	CreatedAt       time.Time `bson:"created_at" json:"-"`
	UpdatedAt       time.Time `bson:"updated_at" json:"-"`
}

func (c Client) FullName() string {
	name := c.FirstName + " " + c.LastNamePaterno
	if c.LastNameMaterno != "" {
		name += " " + c.LastNameMaterno
	}
	return name
}

// ClientLookupResponse is the answer of the lookup-client endpoint.
type ClientLookupResponse struct {
	Found  bool          `json:"found"`
	Client *ClientPublic `json:"client,omitempty"`
}

// ClientPublic is the subset of a client record exposed to the booking flow.
type ClientPublic struct {
	FirstName       string  `json:"first_name"`
	LastNamePaterno string  `json:"last_name_paterno"`
	LastNameMaterno string  `json:"last_name_materno"`
	PhoneNumber     string  `json:"phone_number"`
	Email           string  `json:"email"`
	Gender          string  `json:"gender"`
	BirthDate       *string `json:"birth_date"`
}

func (c Client) Public() *ClientPublic {
	p := &ClientPublic{
		FirstName:       c.FirstName,
		LastNamePaterno: c.LastNamePaterno,
		LastNameMaterno: c.LastNameMaterno,
		PhoneNumber:     c.PhoneNumber,
		Email:           c.Email,
		Gender:          c.Gender,
	}
	if c.BirthDate != "" {
		bd := c.BirthDate
		p.BirthDate = &bd
	}
	return p
}

// RegistryPerson is the national registry (RENIEC) record of a DNI holder.
type RegistryPerson struct {
	Found           bool   `json:"found"`
	FirstName       string `json:"first_name,omitempty"`
	LastNamePaterno string `json:"last_name_paterno,omitempty"`
	LastNameMaterno string `json:"last_name_materno,omitempty"`
	Gender          string `json:"gender,omitempty"`
	BirthDate       string `json:"birth_date,omitempty"`
	Error           string `json:"error,omitempty"`
}
