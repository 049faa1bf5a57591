// Package database provides connection management, migrations, foreign key
// constraints for the library schema, SQL seeding, configuration types,
// logging, health checks and SQL error classification built on Bun.
package database
