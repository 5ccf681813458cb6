// File: internal/profile/model.go
package profile

import (
	"account_agent/internal/identity"
	"account_agent/internal/validation"
)

// Document is the extension profile stored remotely under the user's UID.
// Timestamps are ISO-8601 strings. Nil fields were never written.
type Document struct {
	ID          string  `json:"id" firestore:"id" bson:"_id"`
	PhoneNumber *string `json:"phoneNumber,omitempty" firestore:"phoneNumber,omitempty" bson:"phoneNumber,omitempty"`
	Bio         *string `json:"bio,omitempty" firestore:"bio,omitempty" bson:"bio,omitempty"`
	FirstName   *string `json:"firstName,omitempty" firestore:"firstName,omitempty" bson:"firstName,omitempty"`
	LastName    *string `json:"lastName,omitempty" firestore:"lastName,omitempty" bson:"lastName,omitempty"`
	DateOfBirth *string `json:"dateOfBirth,omitempty" firestore:"dateOfBirth,omitempty" bson:"dateOfBirth,omitempty"`
	CreatedAt   string  `json:"createdAt,omitempty" firestore:"createdAt,omitempty" bson:"createdAt,omitempty"`
	UpdatedAt   string  `json:"updatedAt,omitempty" firestore:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
	Deleted     bool    `json:"deleted,omitempty" firestore:"deleted,omitempty" bson:"deleted,omitempty"`
	DeletedAt   string  `json:"deletedAt,omitempty" firestore:"deletedAt,omitempty" bson:"deletedAt,omitempty"`
}

// Document field names as stored remotely.
const (
	FieldID          = "id"
	FieldPhoneNumber = "phoneNumber"
	FieldBio         = "bio"
	FieldFirstName   = "firstName"
	FieldLastName    = "lastName"
	FieldDateOfBirth = "dateOfBirth"
	FieldCreatedAt   = "createdAt"
	FieldUpdatedAt   = "updatedAt"
	FieldDeleted     = "deleted"
	FieldDeletedAt   = "deletedAt"
)

// Fields is a sparse set of extension fields. Nil means "leave as is".
type Fields struct {
	PhoneNumber *string `json:"phoneNumber,omitempty" binding:"omitempty,phone"`
	Bio         *string `json:"bio,omitempty" binding:"omitempty,max=500"`
	FirstName   *string `json:"firstName,omitempty" binding:"omitempty,personname"`
	LastName    *string `json:"lastName,omitempty" binding:"omitempty,personname"`
	DateOfBirth *string `json:"dateOfBirth,omitempty" binding:"omitempty,birthdate"`
}

// Sanitize cleans every provided field, normalizes the phone number and
// returns the first rule a value breaks. An empty value clears the field, so
// only non-empty values are format-checked.
func (f Fields) Sanitize() (Fields, *validation.Result) {
	clean := func(p *string) *string {
		if p == nil {
			return nil
		}
		s := validation.Sanitize(*p)
		return &s
	}
	out := Fields{
		PhoneNumber: clean(f.PhoneNumber),
		Bio:         clean(f.Bio),
		FirstName:   clean(f.FirstName),
		LastName:    clean(f.LastName),
		DateOfBirth: clean(f.DateOfBirth),
	}

	var checks []validation.Result
	if p := out.PhoneNumber; p != nil && *p != "" {
		checks = append(checks, validation.ValidatePhoneNumber(*p))
		normalized := validation.NormalizePhoneNumber(*p)
		out.PhoneNumber = &normalized
	}
	if b := out.Bio; b != nil {
		checks = append(checks, validation.ValidateMaxLength(*b, validation.MaxBioLength, "Bio"))
	}
	if n := out.FirstName; n != nil && *n != "" {
		checks = append(checks, validation.ValidateNameField(*n, "First name"))
	}
	if n := out.LastName; n != nil && *n != "" {
		checks = append(checks, validation.ValidateNameField(*n, "Last name"))
	}
	if d := out.DateOfBirth; d != nil && *d != "" {
		checks = append(checks, validation.ValidateDate(*d))
	}
	for i := range checks {
		if !checks[i].Valid {
			return out, &checks[i]
		}
	}
	return out, nil
}

func (f Fields) IsEmpty() bool {
	return len(f.ToMap()) == 0
}

// ToMap returns only the fields that were provided.
func (f Fields) ToMap() map[string]interface{} {
	m := make(map[string]interface{})
	put := func(name string, v *string) {
		if v != nil {
			m[name] = *v
		}
	}
	put(FieldPhoneNumber, f.PhoneNumber)
	put(FieldBio, f.Bio)
	put(FieldFirstName, f.FirstName)
	put(FieldLastName, f.LastName)
	put(FieldDateOfBirth, f.DateOfBirth)
	return m
}

// applyTo layers a write payload over doc, mirroring the remote merge.
func applyTo(doc *Document, data map[string]interface{}) {
	str := func(v interface{}) *string {
		s, ok := v.(string)
		if !ok {
			return nil
		}
		return &s
	}
	for k, v := range data {
		switch k {
		case FieldID:
			if s := str(v); s != nil {
				doc.ID = *s
			}
		case FieldPhoneNumber:
			doc.PhoneNumber = str(v)
		case FieldBio:
			doc.Bio = str(v)
		case FieldFirstName:
			doc.FirstName = str(v)
		case FieldLastName:
			doc.LastName = str(v)
		case FieldDateOfBirth:
			doc.DateOfBirth = str(v)
		case FieldCreatedAt:
			if s := str(v); s != nil {
				doc.CreatedAt = *s
			}
		case FieldUpdatedAt:
			if s := str(v); s != nil {
				doc.UpdatedAt = *s
			}
		case FieldDeleted:
			b, _ := v.(bool)
			doc.Deleted = b
		case FieldDeletedAt:
			if s := str(v); s != nil {
				doc.DeletedAt = *s
			}
		}
	}
}

// Merged is what a UI shows: the identity account overlaid with extension fields.
type Merged struct {
	ID            string  `json:"id"`
	Email         *string `json:"email"`
	EmailVerified bool    `json:"emailVerified"`
	DisplayName   *string `json:"displayName"`
	PhotoURL      *string `json:"photoURL"`
	PhoneNumber   *string `json:"phoneNumber"`
	Bio           *string `json:"bio,omitempty"`
	FirstName     *string `json:"firstName,omitempty"`
	LastName      *string `json:"lastName,omitempty"`
	DateOfBirth   *string `json:"dateOfBirth,omitempty"`
	CreatedAt     string  `json:"createdAt,omitempty"`
	UpdatedAt     string  `json:"updatedAt,omitempty"`
}

// Merge builds the merged profile. Email and EmailVerified always come from the
// account; extension fields, including a document-level phone number, come from doc.
func Merge(account identity.Account, doc *Document) Merged {
	m := Merged{
		ID:            account.UID,
		Email:         account.Email,
		EmailVerified: account.EmailVerified,
		DisplayName:   account.DisplayName,
		PhotoURL:      account.PhotoURL,
		PhoneNumber:   account.PhoneNumber,
	}
	if doc == nil || doc.Deleted {
		return m
	}
	if doc.PhoneNumber != nil {
		m.PhoneNumber = doc.PhoneNumber
	}
	m.Bio = doc.Bio
	m.FirstName = doc.FirstName
	m.LastName = doc.LastName
	m.DateOfBirth = doc.DateOfBirth
	m.CreatedAt = doc.CreatedAt
	m.UpdatedAt = doc.UpdatedAt
	return m
}
