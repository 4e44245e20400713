// Package notify delivers transactional email: team invites and address
// verification links. Delivery failures are reported to the caller but are
// never allowed to roll back the operation that triggered them.
package notify
