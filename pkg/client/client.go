// Package client is a small TCP client for cansrv's line-oriented command
// protocol, used by the integration tests.
package client

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"
)

// Client holds one open connection to a cansrv control port.
type Client struct {
	conn net.Conn
	r    *bufio.Reader
	opts *options
}

// Dial connects to addr (host:port) and returns a ready Client.
func Dial(addr string, opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	conn, err := net.DialTimeout("tcp", addr, o.dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	return &Client{conn: conn, r: bufio.NewReader(conn), opts: o}, nil
}

// Close closes the underlying connection without sending SHUTDOWN.
func (c *Client) Close() error {
	return c.conn.Close()
}

// send writes line (with a trailing newline) and returns the single-line
// reply, with its trailing newline stripped.
func (c *Client) send(line string) (string, error) {
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		return "", fmt.Errorf("write command: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(c.opts.readTimeout))
	reply, err := c.r.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read reply: %w", err)
	}
	return strings.TrimRight(reply, "\r\n"), nil
}

// sendBurst writes line and reads every line the server sends back until
// the connection goes idle for opts.readTimeout, for replies like
// LIST_TASKS whose line count isn't known up front.
func (c *Client) sendBurst(line string) ([]string, error) {
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		return nil, fmt.Errorf("write command: %w", err)
	}

	var out []string
	for {
		c.conn.SetReadDeadline(time.Now().Add(c.opts.readTimeout))
		reply, err := c.r.ReadString('\n')
		if reply != "" {
			out = append(out, strings.TrimRight(reply, "\r\n"))
		}
		if err != nil {
			break
		}
	}
	return out, nil
}

// CANSend schedules a recurring transmission and returns its task ID.
func (c *Client) CANSend(id, payload string, intervalMs int64, iface string, priority int) (string, error) {
	cmd := fmt.Sprintf("CANSEND#%s#%s#%dms#%s#%d", id, payload, intervalMs, iface, priority)
	reply, err := c.send(cmd)
	if err != nil {
		return "", err
	}
	return parseScheduledReply(reply, "OK: CANSEND scheduled with task ID: ")
}

// SendTask schedules a single-shot transmission and returns its task ID.
func (c *Client) SendTask(id, payload string, delayMs int64, iface string, priority int) (string, error) {
	cmd := fmt.Sprintf("SEND_TASK#%s#%s#%dms#%s#%d", id, payload, delayMs, iface, priority)
	reply, err := c.send(cmd)
	if err != nil {
		return "", err
	}
	return parseScheduledReply(reply, "OK: SEND_TASK scheduled with task ID: ")
}

func parseScheduledReply(reply, prefix string) (string, error) {
	if !strings.HasPrefix(reply, prefix) {
		return "", fmt.Errorf("unexpected reply: %s", reply)
	}
	return strings.TrimPrefix(reply, prefix), nil
}

func (c *Client) Pause(taskID string) (string, error)  { return c.send("PAUSE " + taskID) }
func (c *Client) Resume(taskID string) (string, error) { return c.send("RESUME " + taskID) }
func (c *Client) KillTask(taskID string) (string, error) {
	return c.send("KILL_TASK " + taskID)
}
func (c *Client) KillAllTasks() (string, error)    { return c.send("KILL_ALL_TASKS") }
func (c *Client) KillAll() (string, error)         { return c.send("KILL_ALL") }
func (c *Client) SetLogLevel(level string) (string, error) {
	return c.send("SET_LOG_LEVEL " + level)
}
func (c *Client) KillThread(tid string) (string, error) { return c.send("KILL_THREAD " + tid) }

// ListTasks returns each "Active tasks:" line after the header.
func (c *Client) ListTasks() ([]string, error) {
	lines, err := c.sendBurst("LIST_TASKS")
	if err != nil {
		return nil, err
	}
	return stripHeader(lines, "Active tasks:"), nil
}

// ListCANInterfaces returns the discovered interface names.
func (c *Client) ListCANInterfaces() ([]string, error) {
	lines, err := c.sendBurst("LIST_CAN_INTERFACES")
	if err != nil {
		return nil, err
	}
	if len(lines) == 1 && lines[0] == "No CAN interfaces available" {
		return nil, nil
	}

	var out []string
	for _, line := range stripHeaderPrefix(lines) {
		out = append(out, strings.TrimSpace(line))
	}
	return out, nil
}

// ListThreads returns each "Active threads:" line after the header.
func (c *Client) ListThreads() ([]string, error) {
	lines, err := c.sendBurst("LIST_THREADS")
	if err != nil {
		return nil, err
	}
	return stripHeader(lines, "Active threads:"), nil
}

// Shutdown sends SHUTDOWN and closes the connection; the server does not
// reply to this command.
func (c *Client) Shutdown() error {
	if _, err := c.conn.Write([]byte("SHUTDOWN\n")); err != nil {
		return err
	}
	return c.conn.Close()
}

func stripHeader(lines []string, header string) []string {
	if len(lines) > 0 && lines[0] == header {
		return lines[1:]
	}
	return lines
}

// stripHeaderPrefix drops the first line of a "... (<n>):" style header.
func stripHeaderPrefix(lines []string) []string {
	if len(lines) > 0 && strings.HasPrefix(lines[0], "Available CAN interfaces") {
		return lines[1:]
	}
	return lines
}
