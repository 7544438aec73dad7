// Package queue defines message payloads exchanged over the message broker.
package queue

// OTPQueueName is the durable queue carrying verification mail requests.
const OTPQueueName = "onboarding.otp"

// OTPRequestedEvent is published when a lab owner asks to be onboarded.
// It carries everything the mailer needs so it never touches the
// database or the cache.
type OTPRequestedEvent struct {
    Name        string `json:"name"`
    Email       string `json:"email"`
    OTP         string `json:"otp"`
    ExpiresIn   int    `json:"expires_in_seconds"`
    RequestedAt string `json:"requested_at"`
}
