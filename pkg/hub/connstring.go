package hub

import (
	"errors"
	"fmt"
	"strings"
)

// Connection string parse errors.
var (
	ErrEmptyConnectionString = errors.New("connection string is empty")
	ErrMissingHostName       = errors.New("connection string missing HostName")
	ErrMissingDeviceID       = errors.New("connection string missing DeviceId")
)

// ConnectionString holds the parsed parts of a hub device connection string
// of the form "HostName=host;DeviceId=dev1;SharedAccessKey=base64key".
// The key is carried but never verified; real authentication is out of
// scope.
type ConnectionString struct {
	HostName        string
	DeviceID        string
	SharedAccessKey string
	GatewayHostName string
}

// ParseConnectionString parses a semicolon-delimited key=value connection
// string. Unknown keys are ignored.
func ParseConnectionString(s string) (*ConnectionString, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptyConnectionString
	}

	cs := &ConnectionString{}
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		if !found {
			return nil, fmt.Errorf("invalid connection string segment %q", part)
		}

		switch key {
		case "HostName":
			cs.HostName = value
		case "DeviceId":
			cs.DeviceID = value
		case "SharedAccessKey":
			cs.SharedAccessKey = value
		case "GatewayHostName":
			cs.GatewayHostName = value
		}
	}

	if cs.HostName == "" {
		return nil, ErrMissingHostName
	}
	if cs.DeviceID == "" {
		return nil, ErrMissingDeviceID
	}
	return cs, nil
}

// BrokerURL returns the MQTT broker address for the connection, preferring
// the gateway host when present.
func (cs *ConnectionString) BrokerURL() string {
	host := cs.HostName
	if cs.GatewayHostName != "" {
		host = cs.GatewayHostName
	}
	if strings.Contains(host, "://") {
		return host
	}
	if !strings.Contains(host, ":") {
		host += ":1883"
	}
	return "tcp://" + host
}
