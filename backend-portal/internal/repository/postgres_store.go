package repository

import (
	"github.com/prohmpiriya/community-portal/pkg/database"
)

// NewPostgresStore wires every repository onto one pool
func NewPostgresStore(db *database.PostgresDB) *Store {
	pool := db.Pool()
	return &Store{
		Tx:            NewPostgresTransactor(pool),
		Events:        NewPostgresEventRepository(pool),
		Registrations: NewPostgresRegistrationRepository(pool),
		Users:         NewPostgresUserRepository(pool),
		Audit:         NewPostgresAuditRepository(pool),
		Ping:          db.HealthCheck,
	}
}
