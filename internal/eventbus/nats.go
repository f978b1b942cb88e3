package eventbus

import (
	"encoding/json"
	"expvar"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"holdem-tables/internal/game/viewmodel"
)

const subjectPrefix = "holdem.tables."

var (
	metricPublishedTotal = expvar.NewInt("bus_snapshots_published_total")
	metricPublishErrors  = expvar.NewInt("bus_publish_errors_total")
)

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Publisher mirrors public table snapshots onto NATS. Publishing is
// fire-and-forget; a broker outage never slows a table down.
type Publisher struct {
	conn Conn
	nc   *nats.Conn
}

func Connect(url, name string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: nc, nc: nc}, nil
}

func NewPublisher(conn Conn) *Publisher {
	return &Publisher{conn: conn}
}

func Subject(tableID string) string {
	return subjectPrefix + tableID + ".snapshot"
}

func (p *Publisher) PublishSnapshot(tableID string, view viewmodel.TableStateView) {
	data, err := json.Marshal(view)
	if err != nil {
		metricPublishErrors.Add(1)
		log.Error().Err(err).Str("table_id", tableID).Msg("encode snapshot")
		return
	}
	if err := p.conn.Publish(Subject(tableID), data); err != nil {
		metricPublishErrors.Add(1)
		log.Warn().Err(err).Str("table_id", tableID).Msg("publish snapshot")
		return
	}
	metricPublishedTotal.Add(1)
}

// Close flushes pending messages when the publisher owns the connection.
func (p *Publisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		log.Warn().Err(err).Msg("nats drain")
		p.nc.Close()
	}
}
