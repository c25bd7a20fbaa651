package testing

import (
	"context"
	"sync"

	"github.com/rileyhilliard/nekowatch/pkg/sshutil"
)

// Dialer hands out mock clients and counts dials. It satisfies
// sshutil.Dialer through its Dial method.
type Dialer struct {
	mu      sync.Mutex
	dials   int
	clients []*MockClient

	// Setup, if set, configures each new client before it is returned.
	Setup func(*MockClient)

	// Err, if set, fails every dial.
	Err error

	// Gate, if set, blocks every dial until it is closed.
	Gate chan struct{}
}

// Dial returns a new MockClient for cred.
func (d *Dialer) Dial(ctx context.Context, cred sshutil.Credential) (sshutil.SSHClient, error) {
	d.mu.Lock()
	d.dials++
	gate := d.Gate
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if d.Err != nil {
		return nil, d.Err
	}

	client := NewMockClient(cred.Host)
	if d.Setup != nil {
		d.Setup(client)
	}

	d.mu.Lock()
	d.clients = append(d.clients, client)
	d.mu.Unlock()
	return client, nil
}

// Dials returns how many dials were attempted.
func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// Clients returns the clients handed out so far.
func (d *Dialer) Clients() []*MockClient {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*MockClient, len(d.clients))
	copy(out, d.clients)
	return out
}
