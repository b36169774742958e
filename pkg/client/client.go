// Package client publishes item change events to a pulsar topic.
package client

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/timada-org/todo/pkg/topic"
)

const (
	Created = "Created"
	Updated = "Updated"
	Deleted = "Deleted"
)

var ErrNoProducer = errors.New("producer not initialized")

type Event struct {
	Student  string      `json:"student,omitempty"`
	Topic    *topic.Name `json:"topic"`
	Name     string      `json:"name"`
	Data     any         `json:"data"`
	Metadata any         `json:"metadata,omitempty"`
}

type ClientOptions struct {
	URL   string
	Topic string
	Name  string
}

type Client struct {
	Client   pulsar.Client
	producer pulsar.Producer
}

func New(options ClientOptions) (*Client, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{
		URL: options.URL,
	})
	if err != nil {
		return nil, err
	}

	producer, err := client.CreateProducer(pulsar.ProducerOptions{
		Topic: options.Topic,
		Name:  options.Name,
	})
	if err != nil {
		client.Close()
		return nil, err
	}

	return &Client{
		Client:   client,
		producer: producer,
	}, nil
}

// Encode is the payload written for event. The message key is the topic
// value so events of one item keep their order within a partition.
func Encode(event *Event) (*pulsar.ProducerMessage, error) {
	if event == nil || event.Topic == nil {
		return nil, errors.New("event without topic")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &pulsar.ProducerMessage{
		Key:     event.Topic.Value,
		Payload: payload,
		Properties: map[string]string{
			"name": event.Name,
		},
	}, nil
}

func (c *Client) Send(ctx context.Context, event *Event) error {
	if c == nil || c.producer == nil {
		return ErrNoProducer
	}

	msg, err := Encode(event)
	if err != nil {
		return err
	}

	if _, err := c.producer.Send(ctx, msg); err != nil {
		return err
	}

	return nil
}

func (c *Client) Close() {
	if c.producer != nil {
		c.producer.Flush()
		c.producer.Close()
	}

	c.Client.Close()
}
