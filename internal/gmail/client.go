package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"gigacode/entity"
	"gigacode/lib/sl"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gm "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const user = "me"

type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Client is the mail transport: it searches labeled threads and labels
// them once processed.
type Client struct {
	svc    *gm.Service
	log    *slog.Logger
	mu     sync.Mutex
	labels map[string]string // label name -> id
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gm.GmailModifyScope},
	}
	ts := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	return newClient(ctx, logger, option.WithTokenSource(ts))
}

func newClient(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*Client, error) {
	svc, err := gm.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gmail service: %w", err)
	}
	return &Client{
		svc: svc,
		log: logger.With(sl.Module("gmail")),
	}, nil
}

// observe logs one API call, like the other outbound clients do.
func (c *Client) observe(ctx context.Context, call string, t1 time.Time, err error) {
	log := c.log.With(slog.String("call", call), sl.Elapsed(t1))
	if err != nil {
		log.WarnContext(ctx, "gmail API returned error", sl.Err(err))
		return
	}
	log.DebugContext(ctx, "gmail API request completed")
}

// Search returns every thread matching a Gmail search query, messages included.
func (c *Client) Search(ctx context.Context, query string) ([]*entity.MailThread, error) {
	var ids []string
	t1 := time.Now()
	err := c.svc.Users.Threads.List(user).Q(query).Pages(ctx, func(page *gm.ListThreadsResponse) error {
		for _, t := range page.Threads {
			ids = append(ids, t.Id)
		}
		return nil
	})
	c.observe(ctx, "threads.list", t1, err)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}

	threads := make([]*entity.MailThread, 0, len(ids))
	for _, id := range ids {
		t, err := c.thread(ctx, id)
		if err != nil {
			return nil, err
		}
		threads = append(threads, t)
	}
	return threads, nil
}

func (c *Client) thread(ctx context.Context, id string) (*entity.MailThread, error) {
	t1 := time.Now()
	t, err := c.svc.Users.Threads.Get(user, id).Format("full").Context(ctx).Do()
	c.observe(ctx, "threads.get", t1, err)
	if err != nil {
		return nil, fmt.Errorf("get thread %s: %w", id, err)
	}

	result := &entity.MailThread{Id: t.Id}
	for _, m := range t.Messages {
		msg := &entity.MailMessage{Id: m.Id}
		if m.InternalDate > 0 {
			msg.Date = time.UnixMilli(m.InternalDate)
		}
		msg.Body = findPart(m.Payload, "text/html")
		msg.PlainBody = findPart(m.Payload, "text/plain")
		if msg.Body == "" {
			msg.Body = msg.PlainBody
		}
		if msg.PlainBody == "" {
			msg.PlainBody = msg.Body
		}
		result.Messages = append(result.Messages, msg)
	}
	return result, nil
}

// findPart returns the decoded body of the first part with the mime type,
// searching multipart trees depth first.
func findPart(part *gm.MessagePart, mimeType string) string {
	if part == nil {
		return ""
	}
	if part.MimeType == mimeType && part.Body != nil && part.Body.Data != "" {
		return decodeBody(part.Body.Data)
	}
	for _, child := range part.Parts {
		if s := findPart(child, mimeType); s != "" {
			return s
		}
	}
	return ""
}

// decodeBody accepts base64url with or without padding.
func decodeBody(data string) string {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return ""
	}
	return string(decoded)
}

func (c *Client) labelId(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.labels[name]; ok {
		return id, nil
	}

	t1 := time.Now()
	list, err := c.svc.Users.Labels.List(user).Context(ctx).Do()
	c.observe(ctx, "labels.list", t1, err)
	if err != nil {
		return "", fmt.Errorf("list labels: %w", err)
	}
	c.labels = make(map[string]string, len(list.Labels))
	for _, l := range list.Labels {
		c.labels[l.Name] = l.Id
	}
	id, ok := c.labels[name]
	if !ok {
		return "", fmt.Errorf("label %q not found", name)
	}
	return id, nil
}

// AddLabel attaches a user label, looked up by name, to a thread.
func (c *Client) AddLabel(ctx context.Context, threadId, label string) error {
	id, err := c.labelId(ctx, label)
	if err != nil {
		return err
	}
	t1 := time.Now()
	_, err = c.svc.Users.Threads.Modify(user, threadId, &gm.ModifyThreadRequest{
		AddLabelIds: []string{id},
	}).Context(ctx).Do()
	c.observe(ctx, "threads.modify", t1, err)
	if err != nil {
		return fmt.Errorf("label thread %s: %w", threadId, err)
	}
	return nil
}
