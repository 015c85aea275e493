package model

import "time"

type User struct {
	ID           int64        `db:"id" json:"id"`
	FirstName    string       `db:"first_name" json:"first_name"`
	LastName     string       `db:"last_name" json:"last_name"`
	Email        string       `db:"email" json:"email"`
	Phone        *string      `db:"phone" json:"phone,omitempty"`
	HashPassword string       `db:"hash_password" json:"-"`
	OrgID        *int64       `db:"org_id" json:"org_id,omitempty"`
	Status       RecordStatus `db:"status" json:"status"`
	AccLimit     int          `db:"acc_limit" json:"acc_limit"`
	CreatedByID  *int64       `db:"created_by_id" json:"created_by_id,omitempty"`
	UpdatedByID  *int64       `db:"updated_by_id" json:"updated_by_id,omitempty"`
	DeletedByID  *int64       `db:"deleted_by_id" json:"deleted_by_id,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
	DeletedAt    *time.Time   `db:"deleted_at" json:"deleted_at,omitempty"`

	Roles []Role `db:"-" json:"roles,omitempty"`
}

// UserSummary is the slim projection embedded in organisation listings.
type UserSummary struct {
	ID        int64  `db:"id" json:"id"`
	OrgID     int64  `db:"org_id" json:"-"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	Email     string `db:"email" json:"email"`
}

type CreateUserParams struct {
	FirstName    string
	LastName     string
	Email        string
	Phone        *string
	HashPassword string
	OrgID        *int64
	AccLimit     int
	CreatedByID  *int64
}

type UpdateUserParams struct {
	FirstName   *string
	LastName    *string
	Email       *string
	Phone       *string
	Status      *RecordStatus
	OrgID       *int64
	AccLimit    *int
	UpdatedByID *int64
}
