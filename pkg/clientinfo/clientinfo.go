// Package clientinfo, istekten istemci IP'sini ve user agent'ı çıkarır.
// Audit kayıtları ve oturum listesi bu bilgiyi kullanır.
//
// Forwarding header'ları (X-Forwarded-For, X-Real-IP) sadece RemoteAddr
// TRUSTED_PROXIES içindeyse okunur. Aksi halde istemci header'ı
// kendisi yazabilir ve audit'teki IP sahte olur.
package clientinfo

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/akinalp/authgate/models"
)

// maxUserAgentLength, DB'ye yazılan user agent'ın üst sınırı.
const maxUserAgentLength = 256

type contextKey struct{}

// Resolver, güvenilen proxy listesine göre istemci IP'sini belirler.
// Sıfır değeri hiçbir proxy'ye güvenmez.
type Resolver struct {
	trusted []netip.Prefix
}

// NewResolver, CIDR veya tek IP listesinden Resolver kurar.
// Örnek: "10.0.0.0/8", "127.0.0.1", "::1".
func NewResolver(proxies []string) (*Resolver, error) {
	r := &Resolver{}
	for _, p := range proxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.Contains(p, "/") {
			addr, err := netip.ParseAddr(p)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", p, err)
			}
			r.trusted = append(r.trusted, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(p)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", p, err)
		}
		r.trusted = append(r.trusted, prefix.Masked())
	}
	return r, nil
}

// Middleware, ClientInfo'yu bir kez çözer ve context'e koyar;
// FromRequest sonraki katmanlarda bu değeri okur.
func (res *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := res.Resolve(r)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, info)))
	})
}

// Resolve, isteğin ClientInfo'sunu döner.
func (res *Resolver) Resolve(r *http.Request) models.ClientInfo {
	ua := r.UserAgent()
	if len(ua) > maxUserAgentLength {
		ua = ua[:maxUserAgentLength]
	}
	return models.ClientInfo{IP: res.ExtractIP(r), UserAgent: ua}
}

// ExtractIP, istemci IP'sini döner.
//
// RemoteAddr güvenilen bir proxy değilse doğrudan RemoteAddr kullanılır.
// Güveniliyorsa X-Forwarded-For sağdan sola yürünür ve güvenilmeyen ilk
// adres istemcidir; zincirin tamamı güvenilirse en soldaki alınır.
// X-Forwarded-For yoksa X-Real-IP denenir. Parse edilemeyen değerde
// RemoteAddr'a dönülür.
func (res *Resolver) ExtractIP(r *http.Request) string {
	remote := remoteHost(r.RemoteAddr)
	if !res.isTrusted(remote) {
		return remote
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		client := ""
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if _, err := netip.ParseAddr(hop); err != nil {
				break
			}
			client = hop
			if !res.isTrusted(hop) {
				break
			}
		}
		if client != "" {
			return client
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if _, err := netip.ParseAddr(xri); err == nil {
			return xri
		}
	}
	return remote
}

func (res *Resolver) isTrusted(ip string) bool {
	if res == nil || len(res.trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range res.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// FromRequest, Middleware'in context'e koyduğu ClientInfo'yu döner.
// Middleware yoksa hiçbir proxy'ye güvenmeden çözer.
func FromRequest(r *http.Request) models.ClientInfo {
	if info, ok := r.Context().Value(contextKey{}).(models.ClientInfo); ok {
		return info
	}
	var res Resolver
	return res.Resolve(r)
}
