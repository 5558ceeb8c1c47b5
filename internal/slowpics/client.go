package slowpics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"
)

const (
	metadataTimeout = 60 * time.Second
	uploadTimeout   = 180 * time.Second
	maxAttempts     = 3
	backoffStep     = 1500 * time.Millisecond
	userAgent       = "Mozilla/5.0 (compatible; offsetcomp)"
)

// Client talks to the slow.pics service. Cookies are loaded once per
// operation from a cookie-jar file when one is configured.
type Client struct {
	base    string
	http    *http.Client
	cookies []*http.Cookie

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(time.Duration)
}

// NewClient creates a client against base (DefaultBaseURL in
// production). cookiesPath may be empty or point at a missing file, in
// which case requests go out unauthenticated.
func NewClient(base, cookiesPath string) (*Client, error) {
	cookies, err := loadCookieFile(cookiesPath)
	if err != nil {
		return nil, err
	}
	return &Client{
		base:    base,
		http:    &http.Client{},
		cookies: cookies,
		sleep:   time.Sleep,
	}, nil
}

// ReloadCookies replaces the client's cookies from the jar file.
func (c *Client) ReloadCookies(path string) error {
	cookies, err := loadCookieFile(path)
	if err != nil {
		return err
	}
	c.cookies = cookies
	return nil
}

// loadCookieFile reads a JSON object of cookie name -> value pairs.
// A missing file yields no cookies; a malformed one is an error.
func loadCookieFile(path string) ([]*http.Cookie, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cookie file: %w", err)
	}
	var jar map[string]string
	if err := json.Unmarshal(data, &jar); err != nil {
		return nil, fmt.Errorf("parsing cookie file %q: %w", path, err)
	}
	cookies := make([]*http.Cookie, 0, len(jar))
	for name, value := range jar {
		cookies = append(cookies, &http.Cookie{Name: name, Value: value})
	}
	return cookies, nil
}

func (c *Client) applyHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", c.base+"/comparison")
	for _, ck := range c.cookies {
		req.AddCookie(ck)
		if ck.Name == "XSRF-TOKEN" {
			req.Header.Set("X-XSRF-TOKEN", ck.Value)
		}
	}
}

// get performs a GET with the metadata timeout and returns status and
// body. The caller decides which statuses are fatal.
func (c *Client) get(ctx context.Context, url string) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	c.applyHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading response from %s: %w", url, err)
	}
	return resp.StatusCode, body, nil
}

// formField is one multipart form field. Fields are kept in a slice,
// not a map: the remote API requires row/image field order to mirror
// the DTO's array order exactly.
type formField struct {
	key   string
	value string
}

// filePart is a file attachment for a multipart POST.
type filePart struct {
	field    string
	fileName string
	mimeType string
	data     []byte
}

// postMultipart encodes fields (in order) plus optional file parts and
// POSTs them with the upload timeout.
func (c *Client) postMultipart(ctx context.Context, url string, fields []formField, files []filePart) (int, []byte, http.Header, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := w.WriteField(f.key, f.value); err != nil {
			return 0, nil, nil, fmt.Errorf("encoding form field %q: %w", f.key, err)
		}
	}
	for _, fp := range files {
		hdr := make(map[string][]string)
		hdr["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name=%q; filename=%q`, fp.field, fp.fileName)}
		hdr["Content-Type"] = []string{fp.mimeType}
		part, err := w.CreatePart(hdr)
		if err != nil {
			return 0, nil, nil, fmt.Errorf("encoding file part %q: %w", fp.fileName, err)
		}
		if _, err := part.Write(fp.data); err != nil {
			return 0, nil, nil, fmt.Errorf("encoding file part %q: %w", fp.fileName, err)
		}
	}
	if err := w.Close(); err != nil {
		return 0, nil, nil, fmt.Errorf("finalizing multipart form: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return 0, nil, nil, err
	}
	c.applyHeaders(req)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("POST %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("reading response from %s: %w", url, err)
	}
	return resp.StatusCode, body, resp.Header, nil
}

// downloadImage fetches an existing remote image's bytes, retrying
// transient failures with linear backoff. 4xx statuses are not retried.
func (c *Client) downloadImage(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, body, err := c.get(ctx, url)
		switch {
		case err != nil:
			lastErr = err
		case status >= 200 && status < 300:
			return body, nil
		case status >= 400 && status < 500:
			return nil, fmt.Errorf("failed to download existing image %q: HTTP %d", url, status)
		default:
			lastErr = fmt.Errorf("HTTP %d", status)
		}
		if attempt < maxAttempts {
			c.sleep(backoffStep * time.Duration(attempt))
		}
	}
	return nil, fmt.Errorf("failed to download existing image %q: %w", url, lastErr)
}

// uploadImage POSTs image bytes to their assigned UUID slot, retrying
// transient failures. A 400 carrying the IMAGE_IS_COMPLETE marker means
// a previous attempt already landed and counts as success.
func (c *Client) uploadImage(ctx context.Context, collectionUUID, imageUUID, browserID, fileName, mimeType string, data []byte) error {
	fields := []formField{
		{"collectionUuid", collectionUUID},
		{"imageUuid", imageUUID},
		{"browserId", browserID},
	}
	files := []filePart{{field: "file", fileName: fileName, mimeType: mimeType, data: data}}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, _, hdr, err := c.postMultipart(ctx, c.base+"/upload/image/"+imageUUID, fields, files)
		switch {
		case err != nil:
			lastErr = err
		case status == 400 && hdr.Get("X-Error-Message") == "IMAGE_IS_COMPLETE":
			return nil
		case status >= 200 && status < 300:
			return nil
		case status >= 400 && status < 500:
			return fmt.Errorf("failed to upload image %q: HTTP %d", imageUUID, status)
		default:
			lastErr = fmt.Errorf("HTTP %d", status)
		}
		if attempt < maxAttempts {
			c.sleep(backoffStep * time.Duration(attempt))
		}
	}
	return fmt.Errorf("failed to upload image %q: %w", imageUUID, lastErr)
}
