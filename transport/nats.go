package transport

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/cizektom/spots/nimber"
)

// JobSubject and ResultSubject are the per-worker subjects a
// spots-worker process listens on and replies over; NimberSubject is
// the shared subject for exchanging newly tracked nimbers.
func JobSubject(workerID string) string    { return "spots.jobs." + workerID }
func ResultSubject(workerID string) string { return "spots.jobs." + workerID + ".result" }
func NimberSubject(groupID string) string  { return "spots.nimbers." + groupID }

// Transport wraps a NATS connection with the couple codec a particular
// game adapter needs to decode incoming wire payloads.
type Transport struct {
	Conn  *nats.Conn
	Parse nimber.PositionParser
}

// Connect dials url (e.g. nats.DefaultURL or a cluster address from
// the CLI's --address flag).
func Connect(url string, parse nimber.PositionParser) (*Transport, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats at %q: %w", url, err)
	}
	return &Transport{Conn: nc, Parse: parse}, nil
}

// Close closes the underlying connection without draining it.
func (t *Transport) Close() {
	t.Conn.Close()
}

// PublishJob sends a job assignment to workerID.
func (t *Transport) PublishJob(workerID string, j JobAssignment) error {
	return t.Conn.Publish(JobSubject(workerID), EncodeJobAssignment(j))
}

// SubscribeJobs registers handler for every job assignment addressed
// to workerID.
func (t *Transport) SubscribeJobs(workerID string, handler func(JobAssignment)) (*nats.Subscription, error) {
	return t.Conn.Subscribe(JobSubject(workerID), func(m *nats.Msg) {
		j, err := DecodeJobAssignment(m.Data, t.Parse)
		if err != nil {
			log.Warn().Err(err).Str("worker", workerID).Msg("dropping malformed job assignment")
			return
		}
		handler(j)
	})
}

// PublishResult sends a completed job back from workerID.
func (t *Transport) PublishResult(workerID string, cj CompletedJob) error {
	return t.Conn.Publish(ResultSubject(workerID), EncodeCompletedJob(cj))
}

// SubscribeResults registers handler for every completion reported by
// workerID.
func (t *Transport) SubscribeResults(workerID string, handler func(CompletedJob)) (*nats.Subscription, error) {
	return t.Conn.Subscribe(ResultSubject(workerID), func(m *nats.Msg) {
		cj, err := DecodeCompletedJob(m.Data, t.Parse)
		if err != nil {
			log.Warn().Err(err).Str("worker", workerID).Msg("dropping malformed completed job")
			return
		}
		handler(cj)
	})
}

// PublishNimbers broadcasts newly tracked nimbers on groupID's subject.
func (t *Transport) PublishNimbers(groupID string, report map[string]nimber.Nimber) error {
	if len(report) == 0 {
		return nil
	}
	return t.Conn.Publish(NimberSubject(groupID), EncodeNimberReport(report))
}

// SubscribeNimbers registers handler for every nimber report broadcast
// on groupID's subject.
func (t *Transport) SubscribeNimbers(groupID string, handler func(map[string]nimber.Nimber)) (*nats.Subscription, error) {
	return t.Conn.Subscribe(NimberSubject(groupID), func(m *nats.Msg) {
		report, err := DecodeNimberReport(m.Data)
		if err != nil {
			log.Warn().Err(err).Str("group", groupID).Msg("dropping malformed nimber report")
			return
		}
		handler(report)
	})
}
