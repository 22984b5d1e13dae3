// Package directory resolves per-subject emergency contacts and alert
// preferences. It defines the domain models, defaulting rules, and the Store
// interface with in-memory and PostgreSQL implementations in subpackages.
package directory
