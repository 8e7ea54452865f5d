// Package notifications delivers job lifecycle events via ntfy.
//
// The default implementation publishes to the topic URL configured in the
// [notifications] section and degrades to a no-op when no topic is set. The
// pipeline depends only on the Service interface, so alternative transports
// can be dropped in without touching generation code.
package notifications
