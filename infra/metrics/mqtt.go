package metrics

import (
	"time"

	coremetrics "github.com/kilianp07/timetabler/core/metrics"
	"github.com/kilianp07/timetabler/infra/mqtt"
)

type sessionMessage struct {
	RunID     string    `json:"run_id"`
	Services  int       `json:"services"`
	Visits    int       `json:"visits"`
	Segments  int       `json:"segments"`
	Objective float64   `json:"objective"`
	Time      time.Time `json:"time"`
}

type iterationMessage struct {
	RunID         string    `json:"run_id"`
	Iteration     int       `json:"iteration"`
	Objective     float64   `json:"objective"`
	Adjusted      float64   `json:"adjusted"`
	Best          float64   `json:"best"`
	Cohesion      float64   `json:"cohesion"`
	Candidates    int       `json:"candidates"`
	TabuSize      int       `json:"tabu_size"`
	Service       string    `json:"service"`
	Target        string    `json:"target"`
	Changed       int       `json:"changed"`
	ChangeMinutes float64   `json:"change_minutes"`
	Time          time.Time `json:"time"`
}

type exhaustionMessage struct {
	RunID     string    `json:"run_id"`
	Iteration int       `json:"iteration"`
	TabuSize  int       `json:"tabu_size"`
	FreedUp   bool      `json:"freed_up"`
	Time      time.Time `json:"time"`
}

// MQTTSink publishes search progress as JSON on
// <prefix>/<primary>/{session,iteration,exhausted}.
type MQTTSink struct {
	pub mqtt.Publisher
}

// NewMQTTSink wraps a connected publisher.
func NewMQTTSink(pub mqtt.Publisher) *MQTTSink {
	return &MQTTSink{pub: pub}
}

// RecordSession publishes the start of a run.
func (s *MQTTSink) RecordSession(ev coremetrics.SessionEvent) error {
	return s.pub.Publish(ev.Primary+"/session", sessionMessage{
		RunID: ev.RunID, Services: ev.Services, Visits: ev.Visits, Segments: ev.Segments,
		Objective: round3(ev.Objective), Time: ev.Time,
	})
}

// RecordIteration publishes an accepted move.
func (s *MQTTSink) RecordIteration(ev coremetrics.IterationEvent) error {
	return s.pub.Publish(ev.Primary+"/iteration", iterationMessage{
		RunID: ev.RunID, Iteration: ev.Iteration,
		Objective: round3(ev.Objective), Adjusted: round3(ev.Adjusted), Best: round3(ev.Best),
		Cohesion: round3(ev.Cohesion), Candidates: ev.Candidates, TabuSize: ev.TabuSize,
		Service: ev.Service, Target: ev.Target, Changed: ev.Changed,
		ChangeMinutes: round3(ev.ChangeMinutes), Time: ev.Time,
	})
}

// RecordExhaustion publishes an iteration without a legal move.
func (s *MQTTSink) RecordExhaustion(ev coremetrics.ExhaustionEvent) error {
	return s.pub.Publish(ev.Primary+"/exhausted", exhaustionMessage{
		RunID: ev.RunID, Iteration: ev.Iteration, TabuSize: ev.TabuSize, FreedUp: ev.FreedUp, Time: ev.Time,
	})
}

// Close disconnects the publisher.
func (s *MQTTSink) Close() { s.pub.Disconnect() }
