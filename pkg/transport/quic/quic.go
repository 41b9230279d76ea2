// Package quic implements the transport over a single bidirectional QUIC
// stream per session. QUIC streams are ordered and reliable, which is all
// the frame layer asks of a conn.
package quic

import (
    "context"
    "crypto/rand"
    "crypto/rsa"
    "crypto/tls"
    "crypto/x509"
    "errors"
    "fmt"
    "math/big"
    "net"
    "time"

    quicgo "github.com/quic-go/quic-go"

    "flowmux/pkg/transport"
)

const alpn = "flowmux"

type Transport struct {
    tlsConf  *tls.Config
    quicConf *quicgo.Config
}

// New builds a transport with an ephemeral self-signed certificate for the
// server side. Peer verification is left to the deployment (mtls configs
// can be injected via NewWithTLS).
func New() (*Transport, error) {
    cert, err := selfSignedCert()
    if err != nil { return nil, fmt.Errorf("quic: self-signed cert: %w", err) }
    return NewWithTLS(&tls.Config{
        Certificates: []tls.Certificate{cert},
        NextProtos:   []string{alpn},
        MinVersion:   tls.VersionTLS13,
    }), nil
}

func NewWithTLS(tlsConf *tls.Config) *Transport {
    return &Transport{tlsConf: tlsConf, quicConf: &quicgo.Config{}}
}

func (t *Transport) Kind() transport.Kind { return transport.KindQUIC }

func (t *Transport) Listen(ctx context.Context, address string) (transport.Listener, error) {
    l, err := quicgo.ListenAddr(address, t.tlsConf, t.quicConf)
    if err != nil { return nil, err }
    ql := &listener{l: l, newCh: make(chan *conn, 8), closeCh: make(chan struct{})}
    go ql.acceptLoop(ctx)
    go func() { <-ctx.Done(); _ = ql.Close() }()
    return ql, nil
}

func (t *Transport) Dial(ctx context.Context, address string) (transport.Conn, error) {
    tlsClient := &tls.Config{
        InsecureSkipVerify: true, // NOTE: pair with NewWithTLS for verified deployments
        NextProtos:         []string{alpn},
        MinVersion:         tls.VersionTLS13,
    }
    c, err := quicgo.DialAddr(ctx, address, tlsClient, t.quicConf)
    if err != nil { return nil, err }
    st, err := c.OpenStreamSync(ctx)
    if err != nil {
        _ = c.CloseWithError(0, "open stream failed")
        return nil, err
    }
    return &conn{c: c, st: st}, nil
}

type listener struct {
    l       *quicgo.Listener
    newCh   chan *conn
    closeCh chan struct{}
}

func (l *listener) Addr() net.Addr { return l.l.Addr() }

func (l *listener) Accept(ctx context.Context) (transport.Conn, error) {
    select {
    case <-ctx.Done():
        return nil, ctx.Err()
    case <-l.closeCh:
        return nil, errors.New("quic listener closed")
    case c := <-l.newCh:
        return c, nil
    }
}

func (l *listener) Close() error {
    select { case <-l.closeCh: default: close(l.closeCh) }
    return l.l.Close()
}

func (l *listener) acceptLoop(ctx context.Context) {
    for {
        c, err := l.l.Accept(ctx)
        if err != nil { return }
        go func(c quicgo.Connection) {
            // The dialer opens the session stream; wait for it here.
            st, err := c.AcceptStream(ctx)
            if err != nil {
                _ = c.CloseWithError(0, "accept stream failed")
                return
            }
            select {
            case l.newCh <- &conn{c: c, st: st}:
            case <-l.closeCh:
                _ = c.CloseWithError(0, "listener closed")
            }
        }(c)
    }
}

// conn adapts (connection, stream) to the transport.Conn contract.
type conn struct {
    c  quicgo.Connection
    st quicgo.Stream
}

func (q *conn) Read(p []byte) (int, error)  { return q.st.Read(p) }
func (q *conn) Write(p []byte) (int, error) { return q.st.Write(p) }

func (q *conn) Close() error {
    _ = q.st.Close()
    return q.c.CloseWithError(0, "")
}

func (q *conn) LocalAddr() net.Addr  { return q.c.LocalAddr() }
func (q *conn) RemoteAddr() net.Addr { return q.c.RemoteAddr() }

func selfSignedCert() (tls.Certificate, error) {
    priv, err := rsa.GenerateKey(rand.Reader, 2048)
    if err != nil { return tls.Certificate{}, err }
    tmpl := x509.Certificate{
        SerialNumber:          big.NewInt(time.Now().UnixNano()),
        NotBefore:             time.Now().Add(-time.Minute),
        NotAfter:              time.Now().Add(24 * time.Hour),
        KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
        ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
        BasicConstraintsValid: true,
        DNSNames:              []string{"localhost"},
    }
    der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
    if err != nil { return tls.Certificate{}, err }
    return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv}, nil
}
