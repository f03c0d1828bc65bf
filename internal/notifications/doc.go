// Package notifications delivers daemon events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set.
// Enumerated event types cover monitor, capture, and clip milestones so other
// components can emit consistent, user-friendly messages without duplicating
// HTTP glue. Session and clip events can be muted independently through the
// [notifications] config section.
//
// Extend this package if you need alternative transports; all daemon code
// depends only on the simple Service interface.
package notifications
