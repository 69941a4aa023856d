// Package notify is the notification domain service: it decides what to
// send and whether a specific record still needs a send. The scheduler
// only decides when to ask.
//
// Configuration (target chat, report time and zone, due horizon) lives in
// the settings store and is fetched fresh on every invocation; nothing here
// or above caches it.
//
// Idempotence: subscription alerts are suppressed per subscription per
// calendar day through a persisted alert log, so overlapping ticks and
// process restarts cannot double-send an alert. The daily report's
// once-per-day guard lives in the scheduler.
package notify
