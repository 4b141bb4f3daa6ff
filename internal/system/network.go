package system

import (
	"context"
	"fmt"
	"net"
	"strings"
)

// HostIPv4 returns the host's IPv4 addresses as reported by `hostname -I`.
func HostIPv4(ctx context.Context, r Runner) ([]string, error) {
	stdout, stderr, err := r.Run(ctx, "hostname", "-I")
	if err != nil {
		return nil, fmt.Errorf("hostname -I failed: %v: %s", err, strings.TrimSpace(stderr))
	}
	var ips []string
	for _, field := range strings.Fields(stdout) {
		if ip := net.ParseIP(field); ip != nil && ip.To4() != nil {
			ips = append(ips, field)
		}
	}
	return ips, nil
}

// ListenURLs turns a listen address into the URLs a browser on the LAN can
// open. An address with an explicit host yields just that host.
func ListenURLs(listenAddr string, ips []string) []string {
	host, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return nil
	}
	suffix := ":" + port
	if port == "80" {
		suffix = ""
	}
	if host != "" && host != "0.0.0.0" && host != "::" {
		return []string{"http://" + net.JoinHostPort(host, port) + "/"}
	}
	urls := make([]string, 0, len(ips))
	for _, ip := range ips {
		urls = append(urls, "http://"+ip+suffix+"/")
	}
	return urls
}
