package domain

import "strings"

// StaffUser is a directory identity, looked up by national id before a
// distribution. The role mapping is opaque to this service; it is consumed
// only by the authorization layer.
type StaffUser struct {
	ID         string  `db:"id" json:"id"`
	Username   string  `db:"username" json:"username"`
	Email      *string `db:"email" json:"email,omitempty"`
	FirstName  *string `db:"first_name" json:"firstName,omitempty"`
	LastName   *string `db:"last_name" json:"lastName,omitempty"`
	NationalID string  `db:"national_id" json:"nationalId"`
	Role       string  `db:"role" json:"roleMappings,omitempty"`
}

// FullName joins the first and last name, returning "" when neither is set.
func (u StaffUser) FullName() string {
	var parts []string
	if u.FirstName != nil && *u.FirstName != "" {
		parts = append(parts, *u.FirstName)
	}
	if u.LastName != nil && *u.LastName != "" {
		parts = append(parts, *u.LastName)
	}
	return strings.Join(parts, " ")
}
