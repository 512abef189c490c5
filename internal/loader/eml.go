package loader

import (
	"bytes"
	"context"
	"io"
	"net/mail"
	"strings"

	"github.com/inkwell-labs/ragkit/internal/normalize"
)

// emlStrategies parse RFC 5322 messages via net/mail. Legacy Outlook .msg
// binaries are not accepted by this package (registry has no ".msg" entry)
// since the pack carries no OLE compound-file parser.
var emlStrategies = []namedStrategy{
	{Name: "eml_headers_and_body", Tier: TierEnhanced, Fn: emlEnhanced},
	{Name: "eml_body_only", Tier: TierBasic, Fn: emlBasic},
	{Name: "eml_raw", Tier: TierFallback, Fn: rawBytesFallback},
}

// emlEnhanced surfaces Subject as a Title, From/To as one NarrativeText
// line, and the body as NarrativeText paragraphs.
func emlEnhanced(_ context.Context, payload Payload) ([]Element, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(payload.Data))
	if err != nil {
		return nil, err
	}

	var elements []Element
	order := 0

	subject := msg.Header.Get("Subject")
	from := msg.Header.Get("From")
	to := msg.Header.Get("To")
	if subject != "" {
		elements = append(elements, Element{Kind: KindTitle, Text: normalize.Normalize(subject), Order: order})
		order++
	}
	if from != "" || to != "" {
		elements = append(elements, Element{Kind: KindNarrativeText, Text: normalize.Normalize("From: " + from + " To: " + to), Order: order})
		order++
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return nil, err
	}
	for _, para := range strings.Split(string(body), "\n\n") {
		txt := normalize.Normalize(para)
		if txt == "" {
			continue
		}
		elements = append(elements, Element{Kind: KindNarrativeText, Text: txt, Order: order})
		order++
	}
	return elements, nil
}

// emlBasic drops headers entirely and returns the body as one blob.
func emlBasic(_ context.Context, payload Payload) ([]Element, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(payload.Data))
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return nil, err
	}
	txt := normalize.Normalize(string(body))
	if txt == "" {
		return nil, nil
	}
	return []Element{{Kind: KindNarrativeText, Text: txt, Order: 0}}, nil
}
