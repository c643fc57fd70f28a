package discovery

import (
	"errors"
	"strings"
	"testing"
)

func TestTXTRoundTrip(t *testing.T) {
	info := ServerInfo{Scheme: "ws", Path: "/ws", Restaurant: "r-17", Version: "1.4.0"}

	got, err := DecodeTXT(StringsToTXTRecords(TXTRecordsToStrings(EncodeTXT(info))))
	if err != nil {
		t.Fatalf("DecodeTXT: %v", err)
	}
	if got != info {
		t.Errorf("got %+v, want %+v", got, info)
	}
}

func TestEncodeTXTOmitsPathForTCP(t *testing.T) {
	txt := EncodeTXT(ServerInfo{Scheme: "tcp", Path: "/ignored"})
	if _, ok := txt[TXTKeyPath]; ok {
		t.Errorf("tcp advertisement carries a path: %v", txt)
	}
	if len(txt) != 1 {
		t.Errorf("expected only the scheme key, got %v", txt)
	}
}

func TestDecodeTXTErrors(t *testing.T) {
	tests := []struct {
		name string
		txt  TXTRecordMap
		want error
	}{
		{"missing scheme", TXTRecordMap{TXTKeyPath: "/ws"}, ErrMissingRequired},
		{"unknown scheme", TXTRecordMap{TXTKeyScheme: "http"}, ErrInvalidScheme},
		{"empty scheme", TXTRecordMap{TXTKeyScheme: ""}, ErrInvalidScheme},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTXT(tt.txt)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStringsToTXTRecords(t *testing.T) {
	txt := StringsToTXTRecords([]string{"sch=ws", "path=/a=b", "flag", ""})
	if txt["sch"] != "ws" {
		t.Errorf("sch = %q", txt["sch"])
	}
	if txt["path"] != "/a=b" {
		t.Errorf("path = %q", txt["path"])
	}
	if v, ok := txt["flag"]; !ok || v != "" {
		t.Errorf("flag = %q, %v", v, ok)
	}
	if len(txt) != 3 {
		t.Errorf("len = %d", len(txt))
	}
}

func TestValidateInstanceName(t *testing.T) {
	if err := ValidateInstanceName("Kitchen Server"); err != nil {
		t.Errorf("valid name rejected: %v", err)
	}
	if err := ValidateInstanceName(""); !errors.Is(err, ErrMissingRequired) {
		t.Errorf("empty name: %v", err)
	}
	if err := ValidateInstanceName(strings.Repeat("x", MaxInstanceNameLen+1)); !errors.Is(err, ErrInstanceNameTooLong) {
		t.Errorf("long name: %v", err)
	}
}

func TestServiceURL(t *testing.T) {
	tests := []struct {
		name string
		svc  Service
		want string
	}{
		{
			name: "websocket with path",
			svc:  Service{Host: "orders.local.", Port: 8080, Addresses: []string{"192.168.1.20"}, Scheme: "ws", Path: "/ws"},
			want: "ws://192.168.1.20:8080/ws",
		},
		{
			name: "path without slash",
			svc:  Service{Port: 443, Addresses: []string{"10.0.0.2"}, Scheme: "wss", Path: "rt"},
			want: "wss://10.0.0.2:443/rt",
		},
		{
			name: "tcp ignores path",
			svc:  Service{Port: 7000, Addresses: []string{"10.0.0.3"}, Scheme: "tcp", Path: "/ws"},
			want: "tcp://10.0.0.3:7000",
		},
		{
			name: "host name fallback",
			svc:  Service{Host: "orders.local.", Port: 8080, Scheme: "ws"},
			want: "ws://orders.local:8080",
		},
		{
			name: "ipv6",
			svc:  Service{Port: 8080, Addresses: []string{"fe80::1"}, Scheme: "tcp"},
			want: "tcp://[fe80::1]:8080",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.svc.URL(); got != tt.want {
				t.Errorf("URL() = %q, want %q", got, tt.want)
			}
		})
	}
}
