package domain

import "time"

// Role is the access tier of a user.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleDealer   Role = "dealer"
	RoleAdmin    Role = "admin"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleDealer, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role acts on behalf of the business.
func (r Role) IsStaff() bool {
	return r == RoleDealer || r == RoleAdmin
}

// Address is a postal address.
type Address struct {
	Street  string `json:"street,omitempty" bson:"street,omitempty"`
	City    string `json:"city,omitempty" bson:"city,omitempty"`
	State   string `json:"state,omitempty" bson:"state,omitempty"`
	Country string `json:"country,omitempty" bson:"country,omitempty"`
	ZipCode string `json:"zipCode,omitempty" bson:"zipCode,omitempty"`
}

// User is a customer, dealer or admin account.
type User struct {
	ID              string     `json:"id" bson:"_id"`
	Name            string     `json:"name" bson:"name"`
	Email           string     `json:"email" bson:"email"`
	Phone           string     `json:"phone,omitempty" bson:"phone,omitempty"`
	WhatsAppNumber  string     `json:"whatsappNumber,omitempty" bson:"whatsappNumber,omitempty"`
	PasswordHash    string     `json:"-" bson:"passwordHash"`
	Role            Role       `json:"role" bson:"role"`
	BusinessName    string     `json:"businessName,omitempty" bson:"businessName,omitempty"`
	Address         *Address   `json:"address,omitempty" bson:"address,omitempty"`
	IsEmailVerified bool       `json:"isEmailVerified" bson:"isEmailVerified"`
	IsActive        bool       `json:"isActive" bson:"isActive"`
	LastLogin       *time.Time `json:"lastLogin,omitempty" bson:"lastLogin,omitempty"`
	CreatedAt       time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// WhatsAppAddress is the number WhatsApp messages go to.
func (u *User) WhatsAppAddress() string {
	if u.WhatsAppNumber != "" {
		return u.WhatsAppNumber
	}
	return u.Phone
}
