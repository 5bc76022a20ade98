// Command statusprobe sends one request line to a statusd instance and
// prints the raw response. With -trickle it writes the line one byte at
// a time to exercise request reassembly.
package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	socket "github.com/Brownie44l1/socket-wrapper"
	"github.com/sirupsen/logrus"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8088", "statusd IPv4 address or localhost, with port")
	path := flag.String("path", "/index.html", "path to request")
	trickle := flag.Duration("trickle", 0, "delay between single-byte writes; zero sends the line at once")
	timeout := flag.Duration("timeout", 5*time.Second, "overall deadline")
	verbose := flag.Bool("v", false, "log progress")
	flag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stderr)
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	n, err := probe(os.Stdout, *addr, *path, *trickle, *timeout, log)
	if err != nil {
		log.WithError(err).WithField("addr", *addr).Error("probe failed")
		os.Exit(1)
	}
	log.WithField("bytes", n).Debug("response complete")
}

func probe(out io.Writer, addr, path string, trickle, timeout time.Duration, log logrus.FieldLogger) (int64, error) {
	host, port, err := splitAddr(addr)
	if err != nil {
		return 0, err
	}
	if timeout <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %s", timeout)
	}

	conn, err := socket.DialTimeout("tcp", host, port, timeout)
	if err != nil {
		return 0, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return 0, err
	}

	line := []byte(fmt.Sprintf("GET %s HTTP/1.0\r\n\r\n", path))
	log.WithFields(logrus.Fields{"addr": addr, "path": path, "trickle": trickle}).Debug("sending request")

	if trickle <= 0 {
		if _, err := conn.Write(line); err != nil {
			return 0, fmt.Errorf("write request: %w", err)
		}
	} else {
		for i, b := range line {
			if _, err := conn.Write([]byte{b}); err != nil {
				// The server answers as soon as it has the path and then
				// closes, so late bytes may be refused.
				log.WithError(err).WithField("sent", i).Debug("server stopped reading")
				break
			}
			time.Sleep(trickle)
		}
	}

	n, err := io.Copy(out, conn)
	if err != nil {
		return n, fmt.Errorf("read response: %w", err)
	}
	return n, nil
}

// splitAddr turns "host:port" into the form the dialer takes. An empty
// host means loopback.
func splitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("address %q: invalid port %q", addr, portStr)
	}
	if host == "" {
		host = "127.0.0.1"
	}
	return host, port, nil
}
