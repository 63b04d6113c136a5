package mail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestHTMLPart_MultipartAlternative(t *testing.T) {
	raw := crlf(`From: auto-confirm@amazon.com
To: me@example.com
Subject: Your Amazon.com order
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="frontier"

--frontier
Content-Type: text/plain; charset=utf-8

Your order has shipped.
--frontier
Content-Type: text/html; charset=utf-8

<html><body><table><tr><td>Order Total: $42.10</td></tr></table></body></html>
--frontier--
`)

	html, err := htmlPart(raw)
	require.NoError(t, err)
	assert.Contains(t, html, "Order Total: $42.10")
}

func TestHTMLPart_PlainTextOnly(t *testing.T) {
	raw := crlf(`From: auto-confirm@amazon.com
Subject: plain
MIME-Version: 1.0
Content-Type: text/plain; charset=utf-8

Nothing to see here.
`)

	html, err := htmlPart(raw)
	require.NoError(t, err)
	assert.Empty(t, html)
}

func TestHTMLPart_SinglePartHTML(t *testing.T) {
	raw := crlf(`From: auto-confirm@amazon.com
Subject: html
MIME-Version: 1.0
Content-Type: text/html; charset=utf-8

<html><body>hi</body></html>
`)

	html, err := htmlPart(raw)
	require.NoError(t, err)
	assert.Contains(t, html, "<body>hi</body>")
}
