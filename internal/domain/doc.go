// Package domain holds the core types shared across the sync pipeline:
// content types, raw vendor records, canonical items, and run reports.
package domain
