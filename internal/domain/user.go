package domain

import (
	"database/sql"
	"time"
)

// Role names used for participant resolution. The wider application has
// more roles; the chat subsystem only distinguishes these.
const (
	RoleContratista = "contratista"
	RoleSST         = "sst"
	RoleInterventor = "interventor"
	RoleSoporte     = "soporte"
)

// User is the narrow read model of the users table consumed by the chat
// subsystem: identity, display name and role only.
type User struct {
	ID       int64
	Username string
	Role     string
	LastSeen sql.NullTime
}

// Solicitud is the narrow read model of a contractor access request. The
// chat subsystem reads it only to resolve chat participants.
type Solicitud struct {
	ID            int64
	ContratistaID int64
	InterventorID sql.NullInt64
	CreatedAt     time.Time
}
