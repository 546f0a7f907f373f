// Package network provides local address discovery and the controller side
// of the host connection.
package network

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

// Status is the diagnostics document served by a host on /status
type Status struct {
	OK          bool   `json:"ok"`
	Port        int    `json:"port"`
	Epoch       uint64 `json:"epoch"`
	Platform    string `json:"platform"`
	Arch        string `json:"arch"`
	Connections int    `json:"connections"`
}

// GetLocalIP returns the primary local IP address
func GetLocalIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String(), nil
}

// GetLocalIPs returns all available local IPv4 addresses
func GetLocalIPs() ([]string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var ips []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue // interface down
		}
		if iface.Flags&net.FlagLoopback != 0 {
			continue // loopback interface
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.IsLoopback() {
				continue
			}
			ip = ip.To4()
			if ip == nil {
				continue // not an ipv4 address
			}
			ips = append(ips, ip.String())
		}
	}
	return ips, nil
}

// AdvertiseAddress returns the address controllers on the LAN should dial.
// It prefers the route to the internet, then the first interface address,
// and falls back to loopback on isolated machines.
func AdvertiseAddress() string {
	if ip, err := GetLocalIP(); err == nil && ip != "" {
		return ip
	}
	if ips, err := GetLocalIPs(); err == nil && len(ips) > 0 {
		return ips[0]
	}
	return "127.0.0.1"
}

// FetchStatus queries the /status endpoint of the host at address:port
func FetchStatus(ctx context.Context, address string, port int) (Status, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	statusURL := "http://" + net.JoinHostPort(address, strconv.Itoa(port)) + "/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return Status{}, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Status{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Status{}, fmt.Errorf("host returned status %d", resp.StatusCode)
	}

	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return Status{}, fmt.Errorf("decode status: %w", err)
	}
	return status, nil
}
