package engine

import "strings"

// defaultContextWindow applies to models we do not recognise.
const defaultContextWindow = 8192

// ContextWindow returns the maximum number of tokens (prompt plus reply)
// the given model accepts.
func ContextWindow(model string) int {
	modelLower := strings.ToLower(model)

	switch {
	case strings.Contains(modelLower, "gpt-4o"),
		strings.Contains(modelLower, "gpt-4-turbo"),
		strings.Contains(modelLower, "gpt-4-1106"),
		strings.Contains(modelLower, "gpt-4-0125"):
		return 128000

	case strings.Contains(modelLower, "gpt-4-32k"):
		return 32768

	case strings.Contains(modelLower, "gpt-4"):
		return 8192

	case strings.Contains(modelLower, "gpt-3.5-turbo-16k"):
		return 16384

	case strings.Contains(modelLower, "gpt-3.5"):
		return 4096

	// Claude 3.x and later (200k context)
	case strings.Contains(modelLower, "claude"),
		strings.Contains(modelLower, "sonnet"),
		strings.Contains(modelLower, "opus"),
		strings.Contains(modelLower, "haiku"):
		return 200000

	case strings.Contains(modelLower, "kimi"):
		return 200000

	case strings.Contains(modelLower, "deepseek"):
		return 64000
	}

	return defaultContextWindow
}
