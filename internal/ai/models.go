package ai

import "time"

// Provider and model constants
const (
	ProviderGroq   = "groq"
	DefaultModel   = "llama-3.3-70b-versatile"
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	RequestTimeout = 60 * time.Second
)
