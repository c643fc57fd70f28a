// Package discovery implements mDNS/DNS-SD discovery of the order server.
//
// The server advertises one _easyorder._tcp service. The instance name
// identifies the restaurant's server; the TXT records carry what a client
// needs to build its URL:
//
//	sch   transport scheme: ws, wss or tcp (required)
//	path  HTTP path for WebSocket endpoints, e.g. /ws
//	rid   restaurant identifier
//	ver   server version
//
// Clients browse for the service, aggregate addresses seen on several
// interfaces into one entry, and call Service.URL to get a dialable URL.
package discovery
