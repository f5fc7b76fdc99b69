// Package modbuspool keeps at most one live Modbus-TCP client per gateway
// endpoint, with a bounded-retry reconnect policy. Callers are responsible
// for serializing reads on a given client (see the sensorread package) since
// the underlying handler holds mutable slave-id state.
package modbuspool

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"github.com/ptindo/fleet-worker/models"
)

// ErrGatewayUnreachable is returned when connect retries are exhausted.
var ErrGatewayUnreachable = errors.New("modbuspool: gateway unreachable")

const (
	requestTimeout  = 5 * time.Second
	connectRetries  = 5
	connectBackoff  = 2 * time.Second
)

// Client is a connected Modbus-TCP client plus the bookkeeping the pool needs.
type Client struct {
	mu          sync.Mutex
	handler     *modbus.TCPClientHandler
	client      modbus.Client
	endpoint    models.GatewayEndpoint
	connected   bool
}

// Modbus returns the underlying modbus.Client for issuing reads. Callers
// must hold no assumption of thread safety beyond what Pool documents: at
// most one goroutine may use a given Client at a time.
func (c *Client) Modbus() modbus.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}

// ReadHoldingRegisters issues function-code-03 against the pooled client.
// It satisfies sensorread.RegisterClient so the reader package never needs
// to import goburrow/modbus directly.
func (c *Client) ReadHoldingRegisters(address, quantity uint16) ([]byte, error) {
	c.mu.Lock()
	mb := c.client
	c.mu.Unlock()
	return mb.ReadHoldingRegisters(address, quantity)
}

// SetSlaveID sets the unit identifier for the next request on this client.
func (c *Client) SetSlaveID(id byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler.SlaveId = id
}

// Pool owns at most one TCP client per gateway endpoint.
type Pool struct {
	mu      sync.Mutex
	clients map[string]*Client
}

// New creates an empty connection pool.
func New() *Pool {
	return &Pool{clients: make(map[string]*Client)}
}

// Acquire returns a connected client for endpoint, reconnecting if none
// exists yet or the cached one was marked disconnected.
func (p *Pool) Acquire(endpoint models.GatewayEndpoint) (*Client, error) {
	key := endpoint.Key()

	p.mu.Lock()
	c, ok := p.clients[key]
	if !ok {
		c = &Client{endpoint: endpoint}
		p.clients[key] = c
	}
	p.mu.Unlock()

	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()

	if connected {
		return c, nil
	}

	if err := p.connect(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *Pool) connect(c *Client) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	addr := fmt.Sprintf("%s:%d", c.endpoint.IP, c.endpoint.Port)

	var lastErr error
	for attempt := 1; attempt <= connectRetries; attempt++ {
		handler := modbus.NewTCPClientHandler(addr)
		handler.Timeout = requestTimeout

		if err := handler.Connect(); err != nil {
			lastErr = err
			log.Printf("WARNING: gateway %s connect attempt %d/%d failed: %v", addr, attempt, connectRetries, err)
			if attempt < connectRetries {
				time.Sleep(connectBackoff)
			}
			continue
		}

		c.handler = handler
		c.client = modbus.NewClient(handler)
		c.connected = true
		log.Printf("SUCCESS: connected to gateway %s", addr)
		return nil
	}

	log.Printf("ERROR: gateway %s unreachable after %d attempts: %v", addr, connectRetries, lastErr)
	return fmt.Errorf("%w: %s: %v", ErrGatewayUnreachable, addr, lastErr)
}

// MarkDisconnected records a fault so the next Acquire reconnects.
func (p *Pool) MarkDisconnected(endpoint models.GatewayEndpoint) {
	p.mu.Lock()
	c, ok := p.clients[endpoint.Key()]
	p.mu.Unlock()
	if !ok {
		return
	}
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}

// CloseAll gracefully tears down every pooled connection, for shutdown.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, c := range p.clients {
		c.mu.Lock()
		if c.handler != nil {
			c.handler.Close()
		}
		c.connected = false
		c.mu.Unlock()
		log.Printf("INFO: closed gateway connection %s", key)
	}
}
