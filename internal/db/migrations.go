package db

// Migration is a single schema migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations run in order against stores created before the current schema
// version. Version 1 is the initial schema; nothing to migrate yet.
var Migrations = []Migration{}
