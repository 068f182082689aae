package snapshot

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const ContentTypeJPEG = "image/jpeg"

// ErrUpstream marks a camera answer that is not a JPEG image.
var ErrUpstream = errors.New("snapshot upstream rejected")

// Client fetches still images from the camera's HTTP snapshot endpoint.
type Client struct {
	URL      string
	Username string
	Password string
	HTTP     *http.Client
}

func NewClient(url, username, password string, timeout time.Duration) *Client {
	return &Client{
		URL:      url,
		Username: username,
		Password: password,
		HTTP:     &http.Client{Timeout: timeout},
	}
}

// Fetch returns the camera's image body. The caller closes it. Any answer
// other than a 200 with a JPEG content type is reported as ErrUpstream.
func (c *Client) Fetch(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build snapshot request")
	}
	if c.Username != "" || c.Password != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch snapshot")
	}
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(contentType, ContentTypeJPEG) {
		_ = resp.Body.Close()
		return nil, errors.Wrapf(ErrUpstream, "status %d content-type %q", resp.StatusCode, contentType)
	}
	return resp.Body, nil
}
