// Package timeouts defines shared timeout constants used across the
// assistant. Centralizing these values prevents drift between external
// call sites and makes the durations discoverable.
package timeouts

import "time"

// GeneratorRequest caps a single text-generation HTTP request.
const GeneratorRequest = 60 * time.Second

// ChatRequest caps a single chat-gateway HTTP request.
const ChatRequest = 10 * time.Second

// StoreOp caps a single persistent-store read or write.
const StoreOp = 5 * time.Second

// Shutdown limits how long the process waits for in-flight work during
// graceful shutdown.
const Shutdown = 5 * time.Second
