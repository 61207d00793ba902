package directory

import "github.com/google/uuid"

type Address struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Street     string    `json:"street"`
	Number     string    `json:"number"`
	Complement string    `json:"complement"`
	District   string    `json:"district"`
	City       string    `json:"city"`
	State      string    `gorm:"type:varchar(2)" json:"state"`
	CEP        string    `gorm:"column:cep;type:varchar(9)" json:"cep"`
}

func (Address) TableName() string { return "directory.addresses" }

type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string     `gorm:"not null" json:"name"`
	Email     string     `gorm:"index" json:"email"`
	AddressID *uuid.UUID `gorm:"type:uuid" json:"address_id,omitempty"`
	Address   *Address   `gorm:"foreignKey:AddressID" json:"address,omitempty"`
}

func (User) TableName() string { return "directory.users" }

type Shelter struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string     `gorm:"not null" json:"name"`
	Capacity  int        `gorm:"not null;default:0" json:"capacity"`
	Occupancy int        `gorm:"not null;default:0" json:"occupancy"`
	AddressID *uuid.UUID `gorm:"type:uuid" json:"address_id,omitempty"`
	Address   *Address   `gorm:"foreignKey:AddressID" json:"address,omitempty"`
}

func (Shelter) TableName() string { return "directory.shelters" }
