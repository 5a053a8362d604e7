package udping

import (
	"net"
	"strconv"
)

// FormatAddr renders addr as the ('host', port) tuple printed in ping reports.
func FormatAddr(addr net.Addr) string {
	switch a := addr.(type) {
	case *net.UDPAddr:
		if a == nil {
			return "()"
		}
		return "('" + a.IP.String() + "', " + strconv.Itoa(a.Port) + ")"
	case nil:
		return "()"
	}
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "('" + addr.String() + "')"
	}
	return "('" + host + "', " + port + ")"
}
