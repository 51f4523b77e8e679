package fakenet

import (
	"net"
	"net/http"
	"strings"

	"github.com/avct/uasurfer"
	"github.com/patrickwarner/adunits/internal/models"
)

// deviceInfo is what the network knows about the requesting device.
type deviceInfo struct {
	Type    string
	OS      string
	Country string
	Bot     bool
}

func deviceType(t uasurfer.DeviceType) string {
	switch t {
	case uasurfer.DeviceComputer:
		return "desktop"
	case uasurfer.DevicePhone:
		return "mobile"
	case uasurfer.DeviceTablet:
		return "tablet"
	default:
		return "other"
	}
}

// resolveDevice reads the device from the OpenRTB request, falling back to
// the HTTP request for the user agent and address.
func (s *Server) resolveDevice(r *http.Request, d models.Device) deviceInfo {
	ua := d.UA
	if ua == "" {
		ua = r.UserAgent()
	}
	u := uasurfer.Parse(ua)
	info := deviceInfo{
		Type: deviceType(u.DeviceType),
		OS:   u.OS.Name.String(),
		Bot:  u.IsBot(),
	}

	ip := net.ParseIP(d.IP)
	if ip == nil {
		ip = clientIP(r)
	}
	info.Country = s.geo.Country(ip)
	return info
}

func clientIP(r *http.Request) net.IP {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if ip := net.ParseIP(strings.TrimSpace(strings.Split(fwd, ",")[0])); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(host)
}
