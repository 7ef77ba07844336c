package domain

import "context"

// User is the slim projection the booking core needs. Account management
// lives in a separate service; this repository only resolves customer info
// for payments and notifications.
type User struct {
	ID    int
	Name  string
	Email string
	Phone string
}

type UserRepository interface {
	GetById(ctx context.Context, id int) (*User, error)
}
