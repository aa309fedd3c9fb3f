package engine

import "time"

// AgentConfig holds configuration for an agent instance.
type AgentConfig struct {
	Model       string
	Repo        string        // repository reference reported with analytics events
	User        string        // user reported with analytics events
	ThreadID    string        // conversation thread; generated when empty
	MaxSteps    int           // step limit for Run (0 = DefaultMaxSteps)
	StepTimeout time.Duration // per-step deadline for Run (0 = no deadline)
}

// DefaultMaxSteps bounds how many actions Run will take for one query.
const DefaultMaxSteps = 12

// DefaultAgentConfig returns a default agent configuration.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		Model:       "gpt-4-0613",
		MaxSteps:    DefaultMaxSteps,
		StepTimeout: 2 * time.Minute,
	}
}
