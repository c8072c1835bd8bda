package core

import (
	"context"
	"net/mail"
	"strings"
)

type (
	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		Preheader   string // inbox preview text
		TextContent string
		HTMLContent string

		// metadata
		TemplateSlug string
	}

	// EmailService is any service that can send emails.
	// Retry policy, if any, belongs to the implementation.
	EmailService interface {
		SendMessage(ctx context.Context, msg EmailMessage) error
	}
)

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool   { return (m.TextContent != "") || (m.HTMLContent != "") }

// ParseAddressList parses a comma separated list of RFC 5322 addresses.
func ParseAddressList(list string) ([]mail.Address, error) {
	list = strings.TrimSpace(list)
	if list == "" {
		return nil, nil
	}
	addrs, err := mail.ParseAddressList(list)
	if err != nil {
		return nil, err
	}
	res := make([]mail.Address, 0, len(addrs))
	for _, a := range addrs {
		res = append(res, *a)
	}
	return res, nil
}

// JoinAddresses formats addrs as a header value.
func JoinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}
