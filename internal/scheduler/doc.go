// Package scheduler drives the periodic alert and report checks.
//
// A single repeating timer fires on a fixed cadence (default 5 minutes).
// Every tick runs two evaluators in sequence:
//
//   - the alert evaluator fires the subscription-due check when the local
//     time of day falls inside a tolerance window after the configured
//     alert time;
//   - the report evaluator asks the notification service to check and send
//     the daily summary, at most once per calendar day (in-memory guard).
//
// Both evaluators run inside the same containment wrapper: a failure in one
// is logged and swallowed, and never prevents the other from running on the
// same tick or on later ticks. What to send, and per-record duplicate
// suppression, belong to the Delegate; this package only decides when to ask.
package scheduler
