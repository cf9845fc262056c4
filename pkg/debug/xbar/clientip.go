package xbar

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"go4.org/netipx"
)

// ClientIPResolver 解析客户端 IP。只有当直连地址属于可信代理时才采信 X-Forwarded-For。
type ClientIPResolver struct {
	trusted *netipx.IPSet
}

// NewClientIPResolver 以 CIDR 或单个地址构造可信代理集合。
func NewClientIPResolver(trusted ...string) (*ClientIPResolver, error) {
	var b netipx.IPSetBuilder
	for _, s := range trusted {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if strings.Contains(s, "/") {
			p, err := netip.ParsePrefix(s)
			if err != nil {
				return nil, fmt.Errorf("xbar: trusted proxy %q: %w", s, err)
			}
			b.AddPrefix(p.Masked())
			continue
		}
		a, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("xbar: trusted proxy %q: %w", s, err)
		}
		b.Add(a.Unmap())
	}
	set, err := b.IPSet()
	if err != nil {
		return nil, fmt.Errorf("xbar: trusted proxies: %w", err)
	}
	return &ClientIPResolver{trusted: set}, nil
}

// ClientIP 返回请求的客户端 IP。
// 直连地址可信时，从 X-Forwarded-For 右侧开始跳过可信代理，取第一个不可信地址；
// 全部可信时取最左侧地址。
func (c *ClientIPResolver) ClientIP(r *http.Request) string {
	remote := remoteHost(r.RemoteAddr)
	if c == nil || c.trusted == nil {
		return remote
	}
	addr, err := netip.ParseAddr(remote)
	if err != nil || !c.trusted.Contains(addr.Unmap()) {
		return remote
	}

	var hops []string
	for _, v := range r.Header.Values("X-Forwarded-For") {
		for part := range strings.SplitSeq(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				hops = append(hops, part)
			}
		}
	}
	if len(hops) == 0 {
		if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
			return real
		}
		return remote
	}
	for i := len(hops) - 1; i >= 0; i-- {
		a, err := netip.ParseAddr(hops[i])
		if err != nil || !c.trusted.Contains(a.Unmap()) {
			return hops[i]
		}
	}
	return hops[0]
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
