// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package transport reaches the distribution authority over an authenticated
// NATS request/reply channel. Payload encryption and authentication are the
// concern of the NATS context the channel is built from.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/synadia-io/orbit.go/natscontext"

	"github.com/choria-io/filedist/internal/backoff"
	"github.com/choria-io/filedist/model"
)

const (
	// DefaultRetries is how often a request is attempted before giving up
	DefaultRetries = 3

	// DefaultTimeout bounds each request attempt
	DefaultTimeout = 60 * time.Second
)

// NatsChannel is a model.SecureChannel over a NATS request/reply subject
type NatsChannel struct {
	natsContext string
	subject     string
	opts        []nats.Option
	log         model.Logger

	nc requester
	mu sync.Mutex
}

// requester is the subset of nats.Conn the channel uses, tests substitute it
type requester interface {
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
}

var _ model.SecureChannel = (*NatsChannel)(nil)

// NewNatsChannel creates a channel that will connect using the named NATS
// context on first use and direct requests at subject
func NewNatsChannel(natsContext string, subject string, log model.Logger, opts ...nats.Option) *NatsChannel {
	return &NatsChannel{
		natsContext: natsContext,
		subject:     subject,
		opts:        opts,
		log:         log.With("component", "transport", "subject", subject),
	}
}

// connection returns the cached NATS connection, connecting on first use
func (c *NatsChannel) connection() (requester, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.nc != nil {
		return c.nc, nil
	}

	nc, _, err := natscontext.Connect(c.natsContext, c.opts...)
	if err != nil {
		return nil, err
	}

	c.nc = nc

	return c.nc, nil
}

// Request sends payload and returns the reply, each attempt is bounded by
// timeout and up to retries attempts are made with a short backoff between
// them. An exhausted budget is reported as model.ErrRequestTimeout.
func (c *NatsChannel) Request(ctx context.Context, payload []byte, retries int, timeout time.Duration) ([]byte, error) {
	if retries < 1 {
		retries = 1
	}

	nc, err := c.connection()
	if err != nil {
		return nil, err
	}

	var lastErr error

	for try := 0; try < retries; try++ {
		if try > 0 {
			c.log.Debug("Retrying request", "try", try+1, "retries", retries)
			err = backoff.Quick.Sleep(ctx, backoff.Quick.Duration(try-1))
			if err != nil {
				return nil, fmt.Errorf("%w: %v", model.ErrRequestTimeout, err)
			}
		}

		tctx, cancel := context.WithTimeout(ctx, timeout)
		msg, err := nc.RequestWithContext(tctx, c.subject, payload)
		cancel()
		if err == nil {
			return msg.Data, nil
		}

		lastErr = err

		switch {
		case errors.Is(err, nats.ErrTimeout), errors.Is(err, context.DeadlineExceeded), errors.Is(err, nats.ErrNoResponders):
			continue
		case errors.Is(err, context.Canceled):
			return nil, fmt.Errorf("%w: %v", model.ErrRequestTimeout, err)
		default:
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w after %d tries: %v", model.ErrRequestTimeout, retries, lastErr)
}
