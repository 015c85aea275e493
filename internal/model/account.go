package model

import (
	"time"
)

// Account is a messaging account linked to an organisation through the QR pairing flow.
type Account struct {
	ID          int64         `db:"id" json:"id"`
	OrgID       int64         `db:"org_id" json:"org_id"`
	QRSession   *string       `db:"qr_session" json:"qr_session,omitempty"`
	Status      AccountStatus `db:"status" json:"status"`
	IPAddress   *string       `db:"ip_address" json:"ip_address,omitempty"`
	Location    *string       `db:"location" json:"location,omitempty"`
	CreatedByID *int64        `db:"created_by_id" json:"created_by_id,omitempty"`
	UpdatedByID *int64        `db:"updated_by_id" json:"updated_by_id,omitempty"`
	DeletedByID *int64        `db:"deleted_by_id" json:"deleted_by_id,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
	DeletedAt   *time.Time    `db:"deleted_at" json:"deleted_at,omitempty"`
}

type CreateAccountParams struct {
	OrgID       int64
	QRSession   *string
	Status      AccountStatus
	IPAddress   *string
	Location    *string
	CreatedByID *int64
}

// UpdateAccountParams leaves nil fields untouched.
type UpdateAccountParams struct {
	OrgID       *int64
	QRSession   *string
	Status      *AccountStatus
	IPAddress   *string
	Location    *string
	UpdatedByID *int64
}

type AccountFilter struct {
	OrgID  *int64
	Status *AccountStatus
}

type AccountStatusSummary struct {
	Active       int `json:"active"`
	Inactive     int `json:"inactive"`
	Pending      int `json:"pending"`
	Disconnected int `json:"disconnected"`
	Total        int `json:"total"`
}
