package mailer

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"
	"time"
)

// Message is an outbound email with HTML and plain-text alternatives.
type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// formatMessage renders msg as an RFC 5322 message. When a PGP public key is
// configured the body is wrapped in a PGP/MIME envelope (RFC 3156).
func (m *Mailer) formatMessage(msg Message) ([]byte, error) {
	body, contentType, err := buildAlternative(msg)
	if err != nil {
		return nil, err
	}

	if m.cfg.PGPPublicKey != "" {
		inner := append([]byte("Content-Type: "+contentType+"\r\n\r\n"), body...)
		body, contentType, err = buildEncrypted(m.cfg.PGPPublicKey, inner)
		if err != nil {
			return nil, err
		}
	}

	from := mail.Address{Name: m.cfg.FromName, Address: m.cfg.FromAddress}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from.String())
	fmt.Fprintf(&buf, "To: %s\r\n", sanitizeHeader(strings.Join(msg.To, ", ")))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", sanitizeHeader(msg.Subject)))
	fmt.Fprintf(&buf, "Date: %s\r\n", m.now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: %s\r\n", contentType)
	buf.WriteString("\r\n")
	buf.Write(body)

	return buf.Bytes(), nil
}

// buildAlternative builds a multipart/alternative body with the text part
// first, so clients that cannot render HTML fall back to it.
func buildAlternative(msg Message) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	parts := []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=UTF-8", msg.Text},
		{"text/html; charset=UTF-8", msg.HTML},
	}

	for _, p := range parts {
		header := textproto.MIMEHeader{}
		header.Set("Content-Type", p.contentType)
		header.Set("Content-Transfer-Encoding", "quoted-printable")

		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		qp := quotedprintable.NewWriter(part)
		if _, err := qp.Write([]byte(p.content)); err != nil {
			return nil, "", err
		}
		if err := qp.Close(); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), fmt.Sprintf("multipart/alternative; boundary=%s", writer.Boundary()), nil
}

// buildEncrypted wraps an already formatted MIME entity in a PGP/MIME
// envelope: a version part followed by the armored ciphertext.
func buildEncrypted(armoredKey string, inner []byte) ([]byte, string, error) {
	encrypted, err := encryptBody(armoredKey, inner)
	if err != nil {
		return nil, "", fmt.Errorf("pgp encryption: %w", err)
	}

	var buf bytes.Buffer
	envelope := multipart.NewWriter(&buf)

	versionHeader := textproto.MIMEHeader{}
	versionHeader.Set("Content-Type", "application/pgp-encrypted")
	versionPart, err := envelope.CreatePart(versionHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := versionPart.Write([]byte("Version: 1\r\n")); err != nil {
		return nil, "", err
	}

	encHeader := textproto.MIMEHeader{}
	encHeader.Set("Content-Type", `application/octet-stream; name="encrypted.asc"`)
	encPart, err := envelope.CreatePart(encHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := encPart.Write(encrypted); err != nil {
		return nil, "", err
	}

	if err := envelope.Close(); err != nil {
		return nil, "", err
	}

	contentType := fmt.Sprintf(`multipart/encrypted; protocol="application/pgp-encrypted"; boundary=%s`, envelope.Boundary())
	return buf.Bytes(), contentType, nil
}

// sanitizeHeader removes line breaks so user input cannot inject headers.
func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
