package model

import "time"

// Category represents a spending category transactions can be assigned to.
type Category struct {
	CreatedAt   time.Time
	Name        string
	Description string
	ID          int
	IsActive    bool
}

// Account represents the account a transaction was imported under.
type Account struct {
	CreatedAt   time.Time
	ID          string
	Name        string
	Institution string
}
