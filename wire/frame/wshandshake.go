// WebSocket upgrade handshake: a single server-side entry point built
// on net/http, since this renderer has no native-socket performance
// requirement that would justify bypassing it.
package frame

import (
	"bufio"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/purc-tools/purcrdr/errs"
)

const (
	wsGUID                  = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"
	maxHandshakeHeadersSize = 8192
	requiredWSVersion       = "13"
)

// DoServerHandshake reads an HTTP upgrade request from r, validates
// the mandatory headers, and returns the response headers to send
// back (Sec-WebSocket-Accept computed per RFC6455 §1.3), plus the
// buffered reader wrapping r so no bytes already read past the header
// block are lost.
func DoServerHandshake(r io.Reader) (http.Header, *bufio.Reader, error) {
	br := bufio.NewReader(r)
	req, err := http.ReadRequest(br)
	if err != nil {
		return nil, nil, errs.New(errs.CodeProtocol, fmt.Sprintf("handshake request: %v", err))
	}

	total := 0
	for k, vs := range req.Header {
		total += len(k)
		for _, v := range vs {
			total += len(v)
		}
	}
	if total > maxHandshakeHeadersSize {
		return nil, nil, errs.New(errs.CodeTooLarge, "handshake headers too large")
	}

	if !headerContainsToken(req.Header, "Connection", "Upgrade") ||
		!headerContainsToken(req.Header, "Upgrade", "websocket") {
		return nil, nil, errs.New(errs.CodeProtocol, "invalid WebSocket upgrade headers")
	}
	if req.Header.Get("Sec-WebSocket-Version") != requiredWSVersion {
		return nil, nil, errs.New(errs.CodeProtocol, "unsupported WebSocket version")
	}
	key := req.Header.Get("Sec-WebSocket-Key")
	if key == "" {
		return nil, nil, errs.New(errs.CodeProtocol, "missing Sec-WebSocket-Key header")
	}

	hdr := make(http.Header)
	hdr.Set("Upgrade", "websocket")
	hdr.Set("Connection", "Upgrade")
	hdr.Set("Sec-WebSocket-Accept", computeAcceptKey(key))
	return hdr, br, nil
}

// WriteHandshakeResponse writes the 101 Switching Protocols response.
func WriteHandshakeResponse(w io.Writer, hdr http.Header) error {
	if _, err := fmt.Fprint(w, "HTTP/1.1 101 Switching Protocols\r\n"); err != nil {
		return errs.New(errs.CodeIO, err.Error())
	}
	for k, vs := range hdr {
		for _, v := range vs {
			if _, err := fmt.Fprintf(w, "%s: %s\r\n", k, v); err != nil {
				return errs.New(errs.CodeIO, err.Error())
			}
		}
	}
	_, err := fmt.Fprint(w, "\r\n")
	if err != nil {
		return errs.New(errs.CodeIO, err.Error())
	}
	return nil
}

func computeAcceptKey(clientKey string) string {
	h := sha1.New()
	h.Write([]byte(clientKey + wsGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func headerContainsToken(h http.Header, headerName, token string) bool {
	token = strings.ToLower(token)
	for _, v := range h[http.CanonicalHeaderKey(headerName)] {
		for _, p := range strings.Split(v, ",") {
			if strings.ToLower(strings.TrimSpace(p)) == token {
				return true
			}
		}
	}
	return false
}
