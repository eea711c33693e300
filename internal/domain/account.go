package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Gender is stored as SMALLINT: 1 = Male, 2 = Female.
type Gender int16

const (
	GenderMale   Gender = 1
	GenderFemale Gender = 2
)

func (g Gender) String() string {
	switch g {
	case GenderMale:
		return "Male"
	case GenderFemale:
		return "Female"
	default:
		return fmt.Sprintf("Gender(%d)", int16(g))
	}
}

// Valid reports whether g is one of the known genders.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// ParseGender accepts "Male" / "Female" in any case.
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male":
		return GenderMale, nil
	case "female":
		return GenderFemale, nil
	}
	return 0, fmt.Errorf("unknown gender %q", s)
}

func (g Gender) MarshalJSON() ([]byte, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("marshal gender: invalid value %d", int16(g))
	}
	return json.Marshal(g.String())
}

func (g *Gender) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("gender must be a string: %w", err)
	}
	v, err := ParseGender(s)
	if err != nil {
		return err
	}
	*g = v
	return nil
}

// Account is the domain entity for a user account.
// PasswordHash never leaves the process: String, GoString and MarshalJSON all omit it.
type Account struct {
	ID           int64
	Username     string
	PasswordHash string
	Age          *int32
	Gender       Gender
	Email        *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	IsDeleted    bool
}

const redacted = "[REDACTED]"

func (a Account) String() string {
	return fmt.Sprintf("Account{ID:%d Username:%q Password:%s Age:%s Gender:%s Email:%s CreatedAt:%s UpdatedAt:%s IsDeleted:%t}",
		a.ID, a.Username, redacted, fmtPtr(a.Age), a.Gender, fmtPtr(a.Email),
		a.CreatedAt.Format(time.RFC3339Nano), a.UpdatedAt.Format(time.RFC3339Nano), a.IsDeleted)
}

func (a Account) GoString() string {
	return "domain." + a.String()
}

// MarshalJSON writes the public view of the account.
func (a Account) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID        int64     `json:"id"`
		Username  string    `json:"username"`
		Age       *int32    `json:"age"`
		Gender    Gender    `json:"gender"`
		Email     *string   `json:"email"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}{a.ID, a.Username, a.Age, a.Gender, a.Email, a.CreatedAt, a.UpdatedAt})
}

func fmtPtr[T any](p *T) string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%v", *p)
}

// NewAccount holds the fields needed to insert an account row.
type NewAccount struct {
	Username     string
	PasswordHash string
	Age          *int32
	Gender       Gender
	Email        *string
}

// AccountPatch is a partial update. Nil pointers and unset Nullables leave the column unchanged.
type AccountPatch struct {
	Username     *string
	PasswordHash *string
	Age          Nullable[int32]
	Gender       *Gender
	Email        Nullable[string]
}

// Empty reports whether the patch touches no column.
func (p AccountPatch) Empty() bool {
	return p.Username == nil && p.PasswordHash == nil && !p.Age.Set && p.Gender == nil && !p.Email.Set
}
