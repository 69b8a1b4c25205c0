package livereload

import (
	"net"
	"strconv"
)

// SocketURL builds the websocket URL an extension context dials.
func SocketURL(host string, port int, secure bool) string {
	if host == "" {
		host = "localhost"
	}
	scheme := "ws"
	if secure {
		scheme = "wss"
	}
	return scheme + "://" + net.JoinHostPort(host, strconv.Itoa(port))
}
