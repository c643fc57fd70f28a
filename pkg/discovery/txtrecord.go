package discovery

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeTXT creates the TXT records for info.
func EncodeTXT(info ServerInfo) TXTRecordMap {
	txt := TXTRecordMap{TXTKeyScheme: info.Scheme}
	if info.Path != "" && info.Scheme != "tcp" {
		txt[TXTKeyPath] = info.Path
	}
	if info.Restaurant != "" {
		txt[TXTKeyRestaurant] = info.Restaurant
	}
	if info.Version != "" {
		txt[TXTKeyVersion] = info.Version
	}
	return txt
}

// DecodeTXT parses TXT records into the advertised fields of a ServerInfo.
func DecodeTXT(txt TXTRecordMap) (ServerInfo, error) {
	scheme, ok := txt[TXTKeyScheme]
	if !ok {
		return ServerInfo{}, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyScheme)
	}
	if err := validScheme(scheme); err != nil {
		return ServerInfo{}, err
	}
	return ServerInfo{
		Scheme:     scheme,
		Path:       txt[TXTKeyPath],
		Restaurant: txt[TXTKeyRestaurant],
		Version:    txt[TXTKeyVersion],
	}, nil
}

func validScheme(scheme string) error {
	switch scheme {
	case "ws", "wss", "tcp":
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidScheme, scheme)
	}
}

// TXTRecordsToStrings converts a TXTRecordMap to a slice of "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: instance name", ErrMissingRequired)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}

// URL returns a dialable URL for the service. The first address is
// preferred over the host name.
func (s *Service) URL() string {
	host := strings.TrimSuffix(s.Host, ".")
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	addr := net.JoinHostPort(host, strconv.Itoa(int(s.Port)))
	if s.Scheme == "tcp" {
		return "tcp://" + addr
	}
	path := s.Path
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return s.Scheme + "://" + addr + path
}
