package ws

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zoq/relay/internal/auth"
	"github.com/zoq/relay/internal/models"
	"github.com/zoq/relay/internal/store"
)

// echoVerifier treats the credential itself as the user id; "bad" fails.
type echoVerifier struct{}

func (echoVerifier) Verify(credential string) (string, error) {
	if credential == "bad" {
		return "", auth.ErrInvalidToken
	}
	return credential, nil
}

// mapDirectory serves users from a map.
type mapDirectory map[string]models.User

func (d mapDirectory) GetUser(_ context.Context, id string) (*models.User, error) {
	u, ok := d[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return &u, nil
}

func newTestRegistry() *Registry {
	return NewRegistry(echoVerifier{}, NewMetrics(prometheus.NewRegistry()))
}

func newTestClient() *Client {
	return newClient(nil)
}

// drain empties a client's queue and returns the payloads received so far.
func drain(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case payload := <-c.send:
			out = append(out, payload)
		default:
			return out
		}
	}
}
