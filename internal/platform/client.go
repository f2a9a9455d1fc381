// Package platform talks to the video platform's Data API with a
// creator's access token. Responses arrive scoped to the channel the
// token belongs to.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	requestTimeout = 10 * time.Second
	retryBase      = 500 * time.Millisecond
	maxRetries     = 2
)

// Sentinel errors translated from the platform's HTTP statuses.
var (
	ErrUnauthorized  = errors.New("platform token rejected")
	ErrForbidden     = errors.New("platform denied access")
	ErrNotFound      = errors.New("platform resource not found")
	ErrQuotaExceeded = errors.New("platform quota exceeded")
)

type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type VideoStats struct {
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
}

type Video struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	ThumbnailURL string     `json:"thumbnail_url"`
	PublishedAt  time.Time  `json:"published_at"`
	Stats        VideoStats `json:"stats"`
}

type VideoPage struct {
	Videos        []Video `json:"videos"`
	NextPageToken string  `json:"next_page_token,omitempty"`
}

type Comment struct {
	ID          string    `json:"id"`
	VideoID     string    `json:"video_id"`
	ParentID    string    `json:"parent_id,omitempty"`
	Author      string    `json:"author"`
	Text        string    `json:"text"`
	LikeCount   int64     `json:"like_count"`
	PublishedAt time.Time `json:"published_at"`
}

type CommentPage struct {
	Comments      []Comment `json:"comments"`
	NextPageToken string    `json:"next_page_token,omitempty"`
}

// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// TokenInfo resolves the channel identity behind an access token.
func (c *Client) TokenInfo(ctx context.Context, token string) (*Identity, error) {
	var identity Identity
	if err := c.do(ctx, token, "GET", "/me", nil, nil, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// ListMyVideos pages through the channel's uploads. An empty pageToken
// starts from the newest upload; maxResults <= 0 leaves the page size
// to the platform.
func (c *Client) ListMyVideos(ctx context.Context, token, pageToken string, maxResults int) (*VideoPage, error) {
	query := url.Values{}
	if pageToken != "" {
		query.Set("pageToken", pageToken)
	}
	if maxResults > 0 {
		query.Set("maxResults", strconv.Itoa(maxResults))
	}
	var page VideoPage
	if err := c.do(ctx, token, "GET", "/videos", query, nil, &page); err != nil {
		return nil, err
	}
	if page.Videos == nil {
		page.Videos = []Video{}
	}
	return &page, nil
}

func (c *Client) GetVideo(ctx context.Context, token, videoID string) (*Video, error) {
	var video Video
	if err := c.do(ctx, token, "GET", "/videos/"+url.PathEscape(videoID), nil, nil, &video); err != nil {
		return nil, err
	}
	return &video, nil
}

// OwnsVideo reports whether the token's channel owns the video. The
// platform answers 404 for videos hidden from the caller, so that case
// reads as not owned rather than an error.
func (c *Client) OwnsVideo(ctx context.Context, token, videoID string) (bool, error) {
	_, err := c.GetVideo(ctx, token, videoID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden):
		return false, nil
	default:
		return false, err
	}
}

func (c *Client) ListComments(ctx context.Context, token, videoID, pageToken string) (*CommentPage, error) {
	query := url.Values{}
	if pageToken != "" {
		query.Set("pageToken", pageToken)
	}
	var page CommentPage
	path := "/videos/" + url.PathEscape(videoID) + "/comments"
	if err := c.do(ctx, token, "GET", path, query, nil, &page); err != nil {
		return nil, err
	}
	if page.Comments == nil {
		page.Comments = []Comment{}
	}
	return &page, nil
}

// PostComment publishes a comment on the video, or a reply when
// parentID names an existing comment.
func (c *Client) PostComment(ctx context.Context, token, videoID, text, parentID string) (*Comment, error) {
	body := struct {
		Text     string `json:"text"`
		ParentID string `json:"parent_id,omitempty"`
	}{Text: text, ParentID: parentID}

	var comment Comment
	path := "/videos/" + url.PathEscape(videoID) + "/comments"
	if err := c.do(ctx, token, "POST", path, nil, body, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (c *Client) DeleteComment(ctx context.Context, token, commentID string) error {
	return c.do(ctx, token, "DELETE", "/comments/"+url.PathEscape(commentID), nil, nil, nil)
}

// do runs one API call. Quota hits, server errors, and network
// failures retry with fibonacci backoff; auth and not-found answers
// are terminal.
func (c *Client) do(ctx context.Context, token, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	backoff := retry.WithMaxRetries(maxRetries, retry.NewFibonacci(retryBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("platform request: %w", err))
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return ErrUnauthorized
		case resp.StatusCode == http.StatusForbidden:
			return ErrForbidden
		case resp.StatusCode == http.StatusNotFound:
			return ErrNotFound
		case resp.StatusCode == http.StatusTooManyRequests:
			return retry.RetryableError(ErrQuotaExceeded)
		case resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("platform status %d", resp.StatusCode))
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return apiError(resp)
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	})
}

// apiError surfaces the message from the platform's error envelope.
func apiError(resp *http.Response) error {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error.Message != "" {
		return fmt.Errorf("platform: %s", envelope.Error.Message)
	}
	return fmt.Errorf("platform status %d", resp.StatusCode)
}
