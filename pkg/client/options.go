package client

import "time"

// Option configures a Client.
type Option func(*options)

type options struct {
	dialTimeout time.Duration
	readTimeout time.Duration
}

func defaultOptions() *options {
	return &options{
		dialTimeout: 5 * time.Second,
		readTimeout: 2 * time.Second,
	}
}

// WithDialTimeout bounds how long Dial waits for the TCP handshake.
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) { o.dialTimeout = d }
}

// WithReadTimeout bounds how long a single reply read waits, and how
// long a multi-line reply read waits for the stream to go idle between
// lines.
func WithReadTimeout(d time.Duration) Option {
	return func(o *options) { o.readTimeout = d }
}
