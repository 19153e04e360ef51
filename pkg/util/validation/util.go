package validation

import (
	"fmt"
	"net"
	"unicode/utf8"
)

func ValidHostPort(hostAndPort string) error {
	_, _, err := net.SplitHostPort(hostAndPort)
	return err
}

// 2.4 GHz band channels.
const (
	MinChannel = 1
	MaxChannel = 14
)

// SSIDMaxLength is the IEEE 802.11 limit in octets.
const SSIDMaxLength = 32

func ValidChannel(ch int) error {
	if ch < MinChannel || ch > MaxChannel {
		return fmt.Errorf("must be between %d and %d", MinChannel, MaxChannel)
	}
	return nil
}

func ValidSSID(ssid string) error {
	switch {
	case ssid == "":
		return fmt.Errorf("must not be empty")
	case len(ssid) > SSIDMaxLength:
		return fmt.Errorf("must be at most %d bytes, got %d", SSIDMaxLength, len(ssid))
	case !utf8.ValidString(ssid):
		return fmt.Errorf("must be valid utf-8")
	}
	return nil
}

// ValidMAC parses a colon separated EUI-48 station address.
func ValidMAC(s string) (net.HardwareAddr, error) {
	addr, err := net.ParseMAC(s)
	if err != nil {
		return nil, err
	}
	if len(addr) != 6 {
		return nil, fmt.Errorf("expected 6 octets, got %d", len(addr))
	}
	return addr, nil
}
