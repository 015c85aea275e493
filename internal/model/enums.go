package model

type AccountStatus string

const (
	AccountStatusPending      AccountStatus = "pending"
	AccountStatusActive       AccountStatus = "active"
	AccountStatusDisconnected AccountStatus = "disconnected"
	AccountStatusInactive     AccountStatus = "inactive"
)

func (s AccountStatus) Valid() bool {
	switch s {
	case AccountStatusPending, AccountStatusActive, AccountStatusDisconnected, AccountStatusInactive:
		return true
	}
	return false
}

// RecordStatus is the active/inactive flag shared by organisations, users and roles.
type RecordStatus string

const (
	RecordStatusActive   RecordStatus = "active"
	RecordStatusInactive RecordStatus = "inactive"
)

func (s RecordStatus) Valid() bool {
	return s == RecordStatusActive || s == RecordStatusInactive
}

// AdminRoleID is the seeded Admin role. It cannot be modified, deleted or self-assigned.
const AdminRoleID int64 = 1
