// Package db embeds the SQL schema applied on startup.
package db

import _ "embed"

// Schema holds the full DDL for the services, carts, discount_slot, and
// orders tables. All statements are idempotent.
//
//go:embed migrations/001_schema.sql
var Schema string
