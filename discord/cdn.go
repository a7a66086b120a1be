package discord

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrTooLarge is returned when a download exceeds its size limit.
var ErrTooLarge = errors.New("file too large")

// Downloader fetches files from the CDN with bounded retries.
type Downloader struct {
	http    *http.Client
	retries uint64
	initial time.Duration
}

func NewDownloader(c *http.Client) *Downloader {
	if c == nil {
		c = &http.Client{Timeout: 30 * time.Second}
	}
	return &Downloader{http: c, retries: 3, initial: 250 * time.Millisecond}
}

// Download fetches url, giving up on bodies larger than max bytes. A max of 0 means no limit.
// Client errors are not retried.
func (d *Downloader) Download(ctx context.Context, url string, max int64) ([]byte, string, error) {
	var data []byte
	var contentType string

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		res, err := d.http.Do(req)
		if err != nil {
			return err
		}
		defer res.Body.Close()

		switch {
		case res.StatusCode >= 500 || res.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("download %s: status %d", url, res.StatusCode)
		case res.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("download %s: status %d", url, res.StatusCode))
		}
		if max > 0 && res.ContentLength > max {
			return backoff.Permanent(ErrTooLarge)
		}

		body := io.Reader(res.Body)
		if max > 0 {
			body = io.LimitReader(res.Body, max+1)
		}
		b, err := io.ReadAll(body)
		if err != nil {
			return err
		}
		if max > 0 && int64(len(b)) > max {
			return backoff.Permanent(ErrTooLarge)
		}
		data, contentType = b, res.Header.Get("Content-Type")
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.initial
	policy := backoff.WithContext(backoff.WithMaxRetries(b, d.retries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, "", err
	}
	return data, contentType, nil
}

// DataURI encodes an image for use as a webhook or role avatar.
func DataURI(contentType string, data []byte) string {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
