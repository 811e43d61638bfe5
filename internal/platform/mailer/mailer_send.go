package mailer

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

const sendTimeout = 10 * time.Second

// MailerSend implements Provider on top of the MailerSend API. The batch
// path uses the bulk-email endpoint, which accepts the whole batch in one
// call but assigns message IDs asynchronously.
type MailerSend struct {
	client *mailersend.Mailersend
}

func NewMailerSend(apiKey string) *MailerSend {
	return &MailerSend{client: mailersend.NewMailersend(apiKey)}
}

func (m *MailerSend) SendOne(ctx context.Context, msg *Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	res, err := m.client.Email.Send(ctx, m.build(msg))
	if err != nil {
		return "", &ProviderError{Kind: KindTransport, Detail: err.Error()}
	}
	defer res.Body.Close()

	if perr := classify(res.Response); perr != nil {
		return "", perr
	}
	// MailerSend uses X-Message-Id
	return res.Header.Get("X-Message-Id"), nil
}

func (m *MailerSend) SendBatch(ctx context.Context, msgs []*Message) ([]string, error) {
	batch := make([]*mailersend.Message, 0, len(msgs))
	for _, msg := range msgs {
		batch = append(batch, m.build(msg))
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, res, err := m.client.BulkEmail.Send(ctx, batch)
	if err != nil {
		return nil, &ProviderError{Kind: KindTransport, Detail: err.Error()}
	}
	defer res.Body.Close()

	if perr := classify(res.Response); perr != nil {
		return nil, perr
	}
	// The bulk endpoint queues asynchronously and only hands back a bulk ID,
	// so no per-message IDs are available here.
	return nil, nil
}

func (m *MailerSend) build(msg *Message) *mailersend.Message {
	out := m.client.Email.NewMessage()
	out.SetFrom(mailersend.From{Name: msg.FromName, Email: msg.FromEmail})
	out.SetRecipients([]mailersend.Recipient{{Name: msg.ToName, Email: msg.ToEmail}})
	if msg.ReplyTo != "" {
		out.SetReplyTo(mailersend.ReplyTo{Email: msg.ReplyTo})
	}
	out.SetSubject(msg.Subject)
	if strings.TrimSpace(msg.Text) != "" {
		out.SetText(msg.Text)
	}
	if strings.TrimSpace(msg.HTML) != "" {
		out.SetHTML(msg.HTML)
	}
	return out
}

// classify narrows a raw provider response into a ProviderError, or nil for
// success.
func classify(res *http.Response) *ProviderError {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	perr := &ProviderError{
		Kind:   KindRejected,
		Status: res.StatusCode,
		Detail: strings.TrimSpace(string(body)),
	}
	if res.StatusCode == http.StatusTooManyRequests {
		perr.Kind = KindRateLimited
	}
	return perr
}
