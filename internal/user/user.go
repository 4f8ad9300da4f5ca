package user

import (
	"time"

	"github.com/devsanjithm/accountd/internal/softdelete"
)

// EntityTag is the audit-ledger tag under which user rows are
// soft-deleted and purged.
const EntityTag = "user"

func Entity() softdelete.Entity {
	return softdelete.Entity{Tag: EntityTag, Table: "users", IDColumn: "id"}
}

const DefaultRole = "USER"

type User struct {
	ID              string
	Email           string
	DisplayName     string
	PasswordHash    string
	Roles           []string
	IsEmailVerified bool
	IsActive        bool
	DeletedAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
