package detection

import "time"

type DetectionCompletedEvent struct {
	ID       string         `json:"id"`
	Filename string         `json:"filename"`
	Engine   string         `json:"engine"`
	Count    int            `json:"count"`
	Labels   map[string]int `json:"labels"`
	Elapsed  time.Duration  `json:"elapsed"`
}

func NewDetectionCompletedEvent(outcome *Outcome, elapsed time.Duration) DetectionCompletedEvent {
	return DetectionCompletedEvent{
		ID:       outcome.ID,
		Filename: outcome.Filename,
		Engine:   outcome.Engine,
		Count:    outcome.Result.Count(),
		Labels:   outcome.Result.Labels(),
		Elapsed:  elapsed,
	}
}

func (e DetectionCompletedEvent) EventName() string {
	return "DetectionCompleted"
}
