package analytics

import "go.uber.org/zap"

// LogTracker writes events to a structured logger.
type LogTracker struct {
	L *zap.SugaredLogger
	// Verbose includes payloads; they can hold whole transcripts.
	Verbose bool
}

func (t LogTracker) TrackQuery(ev QueryEvent) {
	kv := []any{
		"query_id", ev.QueryID,
		"thread_id", ev.ThreadID,
		"kind", ev.Data.Kind,
		"stage", ev.Data.Name,
	}
	if ev.RepoRef != "" {
		kv = append(kv, "repo", ev.RepoRef)
	}
	if t.Verbose {
		for _, f := range ev.Data.Payload {
			kv = append(kv, f.Key, f.Value)
		}
	}
	t.L.Infow("query event", kv...)
}
