// Package storage reads and writes the slice of the CRM database the
// alerting side needs:
//
//   - operator settings (alert chat, report time/zone, due horizon)
//   - active subscriptions and their next due dates
//   - income/expense movements for the daily summary
//   - the persisted alert log (per-subscription per-day idempotence)
//
// The CRM application owns everything else in the file.
package storage
