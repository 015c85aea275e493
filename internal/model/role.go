package model

import "time"

type Role struct {
	ID          int64        `db:"id" json:"id"`
	Name        string       `db:"name" json:"name"`
	Status      RecordStatus `db:"status" json:"status"`
	CreatedByID *int64       `db:"created_by_id" json:"created_by_id,omitempty"`
	UpdatedByID *int64       `db:"updated_by_id" json:"updated_by_id,omitempty"`
	DeletedByID *int64       `db:"deleted_by_id" json:"deleted_by_id,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
	DeletedAt   *time.Time   `db:"deleted_at" json:"deleted_at,omitempty"`
}

type CreateRoleParams struct {
	Name        string
	Status      RecordStatus
	CreatedByID *int64
}

type UpdateRoleParams struct {
	Name        *string
	Status      *RecordStatus
	UpdatedByID *int64
}
