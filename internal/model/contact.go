// internal/model/contact.go
package model

import "time"

type Contact struct {
	ID        int       `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Status    string    `db:"status" json:"status"` // subscribed, unsubscribed
	ListID    int       `db:"list_id" json:"list_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
