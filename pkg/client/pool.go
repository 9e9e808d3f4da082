package client

import (
	"context"
	"sync"
	"time"
)

var ManagerClientGlobal = NewManagerClient(0)

// InitManagerClient replace the global pool with one using timeout
func InitManagerClient(timeout time.Duration) *ManagerClient {
	ManagerClientGlobal = NewManagerClient(timeout)
	return ManagerClientGlobal
}

// ManagerClient cache one Client per endpoint
type ManagerClient struct {
	timeout time.Duration
	clients *sync.Map
}

func NewManagerClient(timeout time.Duration) *ManagerClient {
	return &ManagerClient{
		timeout: timeout,
		clients: new(sync.Map),
	}
}

func (c *ManagerClient) GetClient(endPoint string) (*Client, error) {
	val, existed := c.clients.Load(endPoint)
	if existed {
		return val.(*Client), nil
	}
	client, err := NewClient(endPoint, c.timeout)
	if err != nil {
		return nil, err
	}
	val, _ = c.clients.LoadOrStore(endPoint, client)
	return val.(*Client), nil
}

// Predict send file to endPoint with the cached client
func (c *ManagerClient) Predict(ctx context.Context, endPoint string, file *File) (*Prediction, error) {
	client, err := c.GetClient(endPoint)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return client.Predict(ctx, file)
}
