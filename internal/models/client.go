package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// ClientKind distinguishes private individuals from organizations.
type ClientKind string

const (
	ClientIndividual   ClientKind = "individual"
	ClientOrganization ClientKind = "organization"
)

// Client represents a customer/client in the billing system.
// Clients with documents are never deleted, only deactivated.
type Client struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Kind ClientKind `gorm:"size:20;not null;default:'individual'" json:"kind"`

	// Identity
	LastName    string `gorm:"size:100;not null" json:"last_name"`
	FirstName   string `gorm:"size:100" json:"first_name,omitempty"`
	CompanyName string `gorm:"size:200" json:"company_name,omitempty"`

	// Contact
	Email string `gorm:"size:255" json:"email,omitempty"`
	Phone string `gorm:"size:50" json:"phone,omitempty"`

	// Address
	Address    string `gorm:"size:500" json:"address,omitempty"`
	City       string `gorm:"size:100" json:"city,omitempty"`
	PostalCode string `gorm:"size:20" json:"postal_code,omitempty"`
	Country    string `gorm:"size:100" json:"country,omitempty"`

	Notes  string `gorm:"type:text" json:"notes,omitempty"`
	Active bool   `gorm:"default:true" json:"active"`

	Documents []Document `gorm:"foreignKey:ClientID" json:"-"`
}

// DisplayName returns the name printed on documents: the company name for
// organizations, "first last" otherwise.
func (c *Client) DisplayName() string {
	if c.Kind == ClientOrganization && c.CompanyName != "" {
		return c.CompanyName
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// FullAddress returns the formatted full address.
func (c *Client) FullAddress() string {
	addr := c.Address
	if c.PostalCode != "" || c.City != "" {
		if addr != "" {
			addr += "\n"
		}
		addr += strings.TrimSpace(c.PostalCode + " " + c.City)
	}
	if c.Country != "" {
		if addr != "" {
			addr += "\n"
		}
		addr += c.Country
	}
	return addr
}
