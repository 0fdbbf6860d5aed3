package emailcheck

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startDNSServer runs a UDP nameserver on loopback answering MX queries
// from zone. Names not in zone get NXDOMAIN; "servfail.test." gets SERVFAIL.
func startDNSServer(t *testing.T, zone map[string][]string) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	handler := dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(req)
		q := req.Question[0]
		switch {
		case q.Name == "servfail.test.":
			m.Rcode = dns.RcodeServerFailure
		default:
			hosts, ok := zone[q.Name]
			if !ok {
				m.Rcode = dns.RcodeNameError
				break
			}
			for i, h := range hosts {
				m.Answer = append(m.Answer, &dns.MX{
					Hdr:        dns.RR_Header{Name: q.Name, Rrtype: dns.TypeMX, Class: dns.ClassINET, Ttl: 60},
					Preference: uint16(10 * (i + 1)),
					Mx:         h,
				})
			}
		}
		_ = w.WriteMsg(m)
	})

	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go func() { _ = srv.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = srv.Shutdown() })

	return pc.LocalAddr().String()
}

func TestDNSResolver_LookupMX(t *testing.T) {
	addr := startDNSServer(t, map[string][]string{
		"newco.com.": {"mx1.newco.com.", "mx2.newco.com."},
		"nomx.com.":  {},
	})
	r := NewDNSResolver(addr, 2*time.Second)
	ctx := context.Background()

	hosts, err := r.LookupMX(ctx, "newco.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"mx1.newco.com", "mx2.newco.com"}, hosts)

	_, err = r.LookupMX(ctx, "nomx.com")
	assert.ErrorIs(t, err, ErrNoRecords)

	_, err = r.LookupMX(ctx, "missing.example")
	assert.ErrorIs(t, err, ErrNoRecords)

	_, err = r.LookupMX(ctx, "servfail.test")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoRecords)
}

func TestDNSResolver_WithValidator(t *testing.T) {
	addr := startDNSServer(t, map[string][]string{"newco.com.": {"mx.newco.com."}})
	v := NewValidator(NewDNSResolver(addr, 2*time.Second))
	ctx := context.Background()

	assert.True(t, v.Validate(ctx, "info@newco.com", true))
	assert.False(t, v.Validate(ctx, "info@missing.example", true))
	assert.False(t, v.CheckDomain(ctx, "ops@servfail.test").OK())
}

func TestDNSResolver_Unreachable(t *testing.T) {
	// Bind and release a port so nothing answers on it.
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := pc.LocalAddr().String()
	require.NoError(t, pc.Close())

	v := NewValidator(NewDNSResolver(addr, 200*time.Millisecond))
	res := v.CheckDomain(context.Background(), "info@newco.com")
	assert.False(t, res.OK())
}

func TestNewDNSResolver_ServerSelection(t *testing.T) {
	assert.Equal(t, "10.0.0.1:53", NewDNSResolver("10.0.0.1", time.Second).Server())
	assert.Equal(t, "10.0.0.1:5353", NewDNSResolver("10.0.0.1:5353", time.Second).Server())

	dir := t.TempDir()
	conf := filepath.Join(dir, "resolv.conf")
	require.NoError(t, os.WriteFile(conf, []byte("nameserver 192.0.2.7\n"), 0o600))
	assert.Equal(t, "192.0.2.7:53", systemNameserver(conf))

	assert.Equal(t, fallbackServer, systemNameserver(filepath.Join(dir, "absent.conf")))
}
