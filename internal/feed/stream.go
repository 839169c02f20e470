package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/LeJamon/xrplstate/internal/core/ledger/entry"
	"github.com/LeJamon/xrplstate/internal/core/tx/effect"
	"github.com/LeJamon/xrplstate/internal/log"
)

var (
	ErrRequestFailed    = errors.New("request failed")
	ErrIncompleteLedger = errors.New("ledger closed with transactions missing")
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 54 * time.Second
)

// StreamClient follows a server's ledger and transactions streams and
// assembles each validated ledger once all of its transactions arrived.
type StreamClient struct {
	url    string
	dialer *websocket.Dialer
	info   *ServerInfo
	logger *log.Logger

	conn    *websocket.Conn
	writeMu sync.Mutex

	nextID    atomic.Uint64
	pendingMu sync.Mutex
	pending   map[uint64]chan map[string]any

	events  chan map[string]any
	headers chan ledgerHeader
	ledgers chan *Ledger

	group  *errgroup.Group
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// StreamOption configures a StreamClient.
type StreamOption func(*StreamClient)

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) StreamOption {
	return func(c *StreamClient) { c.dialer = d }
}

// WithStreamLogger sets the client's logger.
func WithStreamLogger(l *log.Logger) StreamOption {
	return func(c *StreamClient) { c.logger = l }
}

// NewStreamClient creates a client for the websocket endpoint at url.
func NewStreamClient(url string, opts ...StreamOption) *StreamClient {
	c := &StreamClient{
		url:     url,
		dialer:  websocket.DefaultDialer,
		logger:  log.Root(),
		pending: make(map[uint64]chan map[string]any),
		events:  make(chan map[string]any, 256),
		headers: make(chan ledgerHeader),
		ledgers: make(chan *Ledger, 16),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.info = NewServerInfo(c.logger)
	return c
}

// ServerInfo returns the fee and ledger figures seen on the stream.
func (c *StreamClient) ServerInfo() *ServerInfo {
	return c.info
}

// Connect dials the server and subscribes to the ledger and transactions
// streams.
func (c *StreamClient) Connect(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", c.url, err)
	}
	c.conn = conn

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	g, gctx := errgroup.WithContext(runCtx)
	c.group = g
	g.Go(func() error { return c.readLoop(gctx) })
	g.Go(func() error { return c.assemble(gctx) })
	g.Go(func() error { return c.pingLoop(gctx) })
	go func() {
		c.err = g.Wait()
		close(c.done)
	}()

	result, err := c.Request(ctx, map[string]any{
		"command": "subscribe",
		"streams": []string{"ledger", "transactions"},
	})
	if err != nil {
		c.Close()
		return fmt.Errorf("subscribing: %w", err)
	}
	c.info.Update(result)
	c.logger.Info("Subscribed to ledger stream", "url", c.url)
	return nil
}

// Next returns the next complete validated ledger.
func (c *StreamClient) Next(ctx context.Context) (*Ledger, error) {
	select {
	case l := <-c.ledgers:
		return l, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		if c.err != nil {
			return nil, c.err
		}
		return nil, ErrClosed
	}
}

// Close stops the client and closes the connection.
func (c *StreamClient) Close() error {
	if c.cancel == nil {
		return nil
	}
	c.cancel()
	c.writeMu.Lock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	err := c.conn.Close()
	<-c.done
	return err
}

// Request sends a command and waits for its response, returning the
// response's result object.
func (c *StreamClient) Request(ctx context.Context, req map[string]any) (map[string]any, error) {
	id := c.nextID.Add(1)
	req["id"] = id
	ch := make(chan map[string]any, 1)

	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	if err := c.write(req); err != nil {
		return nil, err
	}

	var resp map[string]any
	select {
	case resp = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	}

	if status, _ := resp["status"].(string); status != "success" {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, resp["error"])
	}
	result, _ := resp["result"].(map[string]any)
	return result, nil
}

func (c *StreamClient) write(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("writing request: %w", err)
	}
	return nil
}

func (c *StreamClient) pingLoop(ctx context.Context) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			c.writeMu.Unlock()
			if err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		}
	}
}

func (c *StreamClient) readLoop(ctx context.Context) error {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading stream: %w", err)
		}
		msg, err := decodeMessage(data)
		if err != nil {
			c.logger.Warn("Dropping undecodable message", "err", err)
			continue
		}
		if rawID, ok := msg["id"]; ok {
			c.deliver(rawID, msg)
			continue
		}
		select {
		case c.events <- msg:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *StreamClient) deliver(rawID any, msg map[string]any) {
	id, err := entry.AsUint64(rawID)
	if err != nil {
		return
	}
	c.pendingMu.Lock()
	ch, ok := c.pending[id]
	c.pendingMu.Unlock()
	if ok {
		ch <- msg
	}
}

// decodeMessage keeps numbers as json.Number so large values survive.
func decodeMessage(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var msg map[string]any
	if err := dec.Decode(&msg); err != nil {
		return nil, err
	}
	return msg, nil
}

type ledgerHeader struct {
	index       uint32
	hash        [32]byte
	parentHash  [32]byte
	accountHash [32]byte
}

type pendingLedger struct {
	closed   bool
	txnCount int
	header   *ledgerHeader
	txs      []*effect.Batch
}

func (p *pendingLedger) complete() bool {
	return p.closed && p.header != nil && len(p.txs) == p.txnCount
}

func (c *StreamClient) assemble(ctx context.Context) error {
	building := make(map[uint32]*pendingLedger)
	get := func(idx uint32) *pendingLedger {
		p, ok := building[idx]
		if !ok {
			p = &pendingLedger{}
			building[idx] = p
		}
		return p
	}

	for {
		var err error
		select {
		case <-ctx.Done():
			return nil
		case h := <-c.headers:
			get(h.index).header = &h
		case msg := <-c.events:
			switch msg["type"] {
			case "ledgerClosed":
				c.info.Update(msg)
				err = c.onLedgerClosed(ctx, building, get, msg)
			case "transaction":
				err = c.onTransaction(get, msg)
			case "serverStatus":
				c.info.Update(msg)
			}
		}
		if err != nil {
			return err
		}
		if err := c.emit(ctx, building); err != nil {
			return err
		}
	}
}

func (c *StreamClient) onLedgerClosed(ctx context.Context, building map[uint32]*pendingLedger,
	get func(uint32) *pendingLedger, msg map[string]any) error {
	idx, err := entry.AsUint64(msg["ledger_index"])
	if err != nil {
		return fmt.Errorf("ledgerClosed ledger_index: %w", err)
	}
	count, err := entry.AsUint64(msg["txn_count"])
	if err != nil {
		return fmt.Errorf("ledgerClosed txn_count: %w", err)
	}
	index := uint32(idx)

	for k, p := range building {
		if k >= index {
			continue
		}
		if !p.closed {
			// Transactions from before the subscription started.
			c.logger.Debug("Dropping partial ledger", "ledger", k, "transactions", len(p.txs))
			delete(building, k)
			continue
		}
		if len(p.txs) < p.txnCount {
			return fmt.Errorf("%w: ledger %d has %d of %d", ErrIncompleteLedger, k, len(p.txs), p.txnCount)
		}
	}

	p := get(index)
	p.closed = true
	p.txnCount = int(count)

	c.group.Go(func() error { return c.fetchHeader(ctx, index) })
	return nil
}

func (c *StreamClient) fetchHeader(ctx context.Context, index uint32) error {
	result, err := c.Request(ctx, map[string]any{
		"command":      "ledger",
		"ledger_index": index,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("fetching ledger %d: %w", index, err)
	}
	hdr, ok := result["ledger"].(map[string]any)
	if !ok {
		return fmt.Errorf("ledger %d: response without ledger object", index)
	}

	h := ledgerHeader{index: index}
	for name, dst := range map[string]*[32]byte{
		"ledger_hash":  &h.hash,
		"parent_hash":  &h.parentHash,
		"account_hash": &h.accountHash,
	} {
		s, _ := hdr[name].(string)
		if *dst, err = entry.ParseHash(s); err != nil {
			return fmt.Errorf("ledger %d %s: %w", index, name, err)
		}
	}

	select {
	case c.headers <- h:
	case <-ctx.Done():
	}
	return nil
}

func (c *StreamClient) onTransaction(get func(uint32) *pendingLedger, msg map[string]any) error {
	if validated, _ := msg["validated"].(bool); !validated {
		return nil
	}
	idx, err := entry.AsUint64(msg["ledger_index"])
	if err != nil {
		return fmt.Errorf("transaction ledger_index: %w", err)
	}
	hashStr, _ := msg["hash"].(string)
	if hashStr == "" {
		if tx, ok := msg["transaction"].(map[string]any); ok {
			hashStr, _ = tx["hash"].(string)
		}
	}
	hash, err := entry.ParseHash(hashStr)
	if err != nil {
		return fmt.Errorf("transaction hash: %w", err)
	}
	rawMeta, ok := msg["meta"].(map[string]any)
	if !ok {
		return fmt.Errorf("transaction %s: %w", hashStr, effect.ErrMalformedMeta)
	}
	meta, err := effect.ParseMeta(rawMeta)
	if err != nil {
		return fmt.Errorf("transaction %s: %w", hashStr, err)
	}

	p := get(uint32(idx))
	p.txs = append(p.txs, effect.NewBatch(hash, uint32(idx), meta))
	return nil
}

// emit sends complete ledgers in ascending order, stopping at the first
// ledger still waiting on its header or transactions.
func (c *StreamClient) emit(ctx context.Context, building map[uint32]*pendingLedger) error {
	for len(building) > 0 {
		first := uint32(0)
		found := false
		for k, p := range building {
			if p.closed && (!found || k < first) {
				first, found = k, true
			}
		}
		if !found {
			return nil
		}
		p := building[first]
		if !p.complete() {
			return nil
		}
		delete(building, first)

		sort.SliceStable(p.txs, func(i, j int) bool { return p.txs[i].Position < p.txs[j].Position })
		l := &Ledger{
			Index:        first,
			Hash:         p.header.hash,
			ParentHash:   p.header.parentHash,
			AccountHash:  p.header.accountHash,
			Transactions: p.txs,
		}
		select {
		case c.ledgers <- l:
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}
