// Package messaging publishes domain events to a broker.
//
// Use-case code depends on the Publisher interface only. Kafka, NATS, NSQ and
// Google Pub/Sub drivers are selected by name at startup; the "none" driver
// discards events for deployments without a broker.
package messaging
