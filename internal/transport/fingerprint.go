package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	utls "github.com/bogdanfinn/utls"
)

func fingerprintDialer(dialer *net.Dialer) func(ctx context.Context, network, address string) (net.Conn, error) {
	return func(ctx context.Context, network, address string) (net.Conn, error) {
		host, _, err := net.SplitHostPort(address)
		if err != nil {
			return nil, err
		}
		raw, err := dialer.DialContext(ctx, network, address)
		if err != nil {
			return nil, err
		}
		if deadline, ok := ctx.Deadline(); ok {
			_ = raw.SetDeadline(deadline)
		}
		conf := &utls.Config{
			ServerName: host,
			MinVersion: utls.VersionTLS12,
			MaxVersion: utls.VersionTLS13,
		}
		conn := utls.UClient(raw, conf, utls.HelloChrome_120, false, true)
		if err := conn.Handshake(); err != nil {
			raw.Close()
			return nil, fmt.Errorf("tls handshake with %s: %w", host, err)
		}
		_ = raw.SetDeadline(time.Time{})
		return conn, nil
	}
}
