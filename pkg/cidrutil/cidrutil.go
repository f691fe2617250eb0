package cidrutil

import (
	"net"
	"strings"

	"github.com/pkg/errors"
)

// ValidateNetwork parses an IPv4 CIDR such as 10.0.0.0/24 and returns its canonical form.
// Addresses with host bits set are rejected since the provider refuses them as address prefixes.
func ValidateNetwork(cidr string) (string, error) {
	cidr = strings.TrimSpace(cidr)
	ip, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return "", errors.Errorf("invalid CIDR %q: expected dotted-quad/prefix-length", cidr)
	}
	if ip.To4() == nil {
		return "", errors.Errorf("invalid CIDR %q: only IPv4 is supported", cidr)
	}
	if !ip.Equal(network.IP) {
		return "", errors.Errorf("invalid CIDR %q: host bits set, did you mean %s", cidr, network.String())
	}
	return network.String(), nil
}

// ValidateIPRange accepts a single IPv4 address or an IPv4 CIDR range, the forms a storage firewall IP rule takes.
// Storage firewalls reject /31 and /32 ranges: a /32 is returned as the bare address, a /31 is an error.
func ValidateIPRange(value string) (string, error) {
	value = strings.TrimSpace(value)
	if strings.Contains(value, "/") {
		canonical, err := ValidateNetwork(value)
		if err != nil {
			return "", err
		}
		_, network, _ := net.ParseCIDR(canonical)
		switch ones, _ := network.Mask.Size(); ones {
		case 32:
			return network.IP.String(), nil
		case 31:
			return "", errors.Errorf("invalid IP range %q: /31 is not allowed in storage firewalls, list both addresses instead", value)
		}
		return canonical, nil
	}
	ip := net.ParseIP(value)
	if ip == nil || ip.To4() == nil {
		return "", errors.Errorf("invalid IP address %q", value)
	}
	return ip.String(), nil
}

// Overlaps reports whether two valid CIDRs share any address.
func Overlaps(a, b string) bool {
	_, na, err := net.ParseCIDR(a)
	if err != nil {
		return false
	}
	_, nb, err := net.ParseCIDR(b)
	if err != nil {
		return false
	}
	return na.Contains(nb.IP) || nb.Contains(na.IP)
}
