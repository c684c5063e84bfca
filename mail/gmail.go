package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	GmailBaseURL     = "https://gmail.googleapis.com"
	DefaultQuery     = "is:unread has:attachment"
	gmailModifyScope = "https://www.googleapis.com/auth/gmail.modify"
)

// GmailMailbox talks to the Gmail REST API for the authenticated user.
type GmailMailbox struct {
	client *resty.Client
	query  string
}

// NewGmailMailbox builds an authenticated mailbox from an OAuth client
// credentials file and a previously stored token. Refreshed tokens are written
// back to tokenFile.
func NewGmailMailbox(ctx context.Context, credentialsFile, tokenFile, query string) (*GmailMailbox, error) {
	creds, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, errors.Wrap(err, "reading gmail credentials")
	}
	conf, err := google.ConfigFromJSON(creds, gmailModifyScope)
	if err != nil {
		return nil, errors.Wrap(err, "parsing gmail credentials")
	}
	tok, err := loadToken(tokenFile)
	if err != nil {
		return nil, err
	}
	src := &savingTokenSource{base: conf.TokenSource(ctx, tok), path: tokenFile, last: tok.AccessToken}
	return NewGmailMailboxWithClient(oauth2.NewClient(ctx, src), GmailBaseURL, query), nil
}

// NewGmailMailboxWithClient uses hc as is; it must already attach credentials.
func NewGmailMailboxWithClient(hc *http.Client, baseURL, query string) *GmailMailbox {
	if query == "" {
		query = DefaultQuery
	}
	client := resty.NewWithClient(hc).
		SetBaseURL(strings.TrimRight(baseURL, "/")+"/gmail/v1/users/me").
		SetHeader("Accept", "application/json")
	return &GmailMailbox{client: client, query: query}
}

type gmailPart struct {
	Filename string `json:"filename"`
	Body     struct {
		AttachmentID string `json:"attachmentId"`
		Size         int    `json:"size"`
	} `json:"body"`
	Parts []gmailPart `json:"parts"`
}

type gmailMessage struct {
	ID           string    `json:"id"`
	InternalDate string    `json:"internalDate"`
	Payload      gmailPart `json:"payload"`
}

type gmailList struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	NextPageToken string `json:"nextPageToken"`
}

type gmailAttachment struct {
	Data string `json:"data"`
	Size int    `json:"size"`
}

type gmailErrorBody struct {
	Detail struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (g *GmailMailbox) ListUnreadWithAttachments(ctx context.Context) ([]Message, error) {
	var ids []string
	pageToken := ""
	for {
		var page gmailList
		req := g.client.R().
			SetContext(ctx).
			SetQueryParam("q", g.query).
			SetResult(&page).
			SetError(&gmailErrorBody{})
		if pageToken != "" {
			req.SetQueryParam("pageToken", pageToken)
		}
		if err := checkResponse(req.Get("/messages")); err != nil {
			return nil, errors.Wrap(err, "listing messages")
		}
		for _, m := range page.Messages {
			ids = append(ids, m.ID)
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	messages := make([]Message, 0, len(ids))
	for _, id := range ids {
		msg, err := g.message(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(msg.Attachments) > 0 {
			messages = append(messages, msg)
		}
	}
	return messages, nil
}

func (g *GmailMailbox) message(ctx context.Context, id string) (Message, error) {
	var raw gmailMessage
	resp, err := g.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetQueryParam("format", "full").
		SetResult(&raw).
		SetError(&gmailErrorBody{}).
		Get("/messages/{id}")
	if err := checkResponse(resp, err); err != nil {
		return Message{}, errors.Wrapf(err, "getting message %s", id)
	}

	msg := Message{ID: raw.ID}
	if raw.InternalDate != "" {
		ts, err := strconv.ParseInt(raw.InternalDate, 10, 64)
		if err != nil {
			return Message{}, errors.Wrapf(err, "message %s internalDate", id)
		}
		msg.InternalDate = ts
	}
	collectAttachments(raw.Payload, &msg.Attachments)
	return msg, nil
}

// collectAttachments walks nested multipart payloads depth first.
func collectAttachments(part gmailPart, out *[]Attachment) {
	if part.Filename != "" && part.Body.AttachmentID != "" {
		*out = append(*out, Attachment{ID: part.Body.AttachmentID, Filename: part.Filename})
	}
	for _, child := range part.Parts {
		collectAttachments(child, out)
	}
}

func (g *GmailMailbox) FetchAttachment(ctx context.Context, msg Message, att Attachment) ([]byte, error) {
	var body gmailAttachment
	resp, err := g.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"id": msg.ID, "attachmentId": att.ID}).
		SetResult(&body).
		SetError(&gmailErrorBody{}).
		Get("/messages/{id}/attachments/{attachmentId}")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(body.Data, "="))
	if err != nil {
		return nil, errors.Wrap(err, "decoding attachment data")
	}
	return data, nil
}

func (g *GmailMailbox) MarkRead(ctx context.Context, msg Message) error {
	resp, err := g.client.R().
		SetContext(ctx).
		SetPathParam("id", msg.ID).
		SetBody(map[string][]string{"removeLabelIds": {"UNREAD"}}).
		SetError(&gmailErrorBody{}).
		Post("/messages/{id}/modify")
	return checkResponse(resp, err)
}

func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.IsError() {
		return nil
	}
	if body, ok := resp.Error().(*gmailErrorBody); ok && body.Detail.Message != "" {
		return errors.Errorf("gmail API %d: %s", resp.StatusCode(), body.Detail.Message)
	}
	return errors.Errorf("gmail API %d: %s", resp.StatusCode(), resp.String())
}

func loadToken(path string) (*oauth2.Token, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Errorf("gmail token file %s not found; authorize the account first", path)
		}
		return nil, errors.Wrap(err, "reading gmail token")
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(raw, tok); err != nil {
		return nil, errors.Wrap(err, "parsing gmail token")
	}
	return tok, nil
}

// savingTokenSource persists the token whenever the underlying source refreshes it.
type savingTokenSource struct {
	mu   sync.Mutex
	base oauth2.TokenSource
	path string
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if raw, err := json.Marshal(tok); err == nil {
			if err := os.WriteFile(s.path, raw, 0o600); err != nil {
				logMail("could not save refreshed token: %v", err)
			}
		}
	}
	return tok, nil
}
