package confluence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("Rejects URL Without Scheme", func(t *testing.T) {
		_, err := New("example.atlassian.net", "a@b.com", "tok")
		require.ErrorIs(t, err, ErrInvalidSiteURL)
	})

	t.Run("Rejects Empty URL", func(t *testing.T) {
		_, err := New("", "a@b.com", "tok")
		require.ErrorIs(t, err, ErrInvalidSiteURL)
	})

	t.Run("Trims Trailing Slash", func(t *testing.T) {
		c, err := New("https://example.atlassian.net/", "a@b.com", "tok")
		require.NoError(t, err)
		assert.Equal(t, "https://example.atlassian.net", c.BaseURL())
	})
}

// pagingHandler serves /wiki/rest/api/content with a fixed total number
// of pages, honoring start/limit, and counts the requests it saw.
type pagingHandler struct {
	total    int
	requests int
}

func (h *pagingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.requests++
	start, _ := strconv.Atoi(r.URL.Query().Get("start"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	var results []Page
	for i := start; i < h.total && i < start+limit; i++ {
		results = append(results, Page{ID: strconv.Itoa(i), Title: fmt.Sprintf("Page %d", i)})
	}
	json.NewEncoder(w).Encode(map[string]any{"results": results})
}

func TestListPages(t *testing.T) {
	newClient := func(t *testing.T, url string, batch int) *Client {
		t.Helper()
		c, err := New(url, "a@b.com", "tok", WithBatchSize(batch))
		require.NoError(t, err)
		return c
	}

	t.Run("Terminates On Short Batch", func(t *testing.T) {
		h := &pagingHandler{total: 250}
		ts := httptest.NewServer(h)
		defer ts.Close()

		pages, err := newClient(t, ts.URL, 100).ListPages(context.Background(), "AE")
		require.NoError(t, err)
		assert.Len(t, pages, 250)
		// 100 + 100 + 50: the short third batch ends the walk
		assert.Equal(t, 3, h.requests)
		assert.Equal(t, "0", pages[0].ID)
		assert.Equal(t, "249", pages[249].ID)
	})

	t.Run("Terminates On Empty Batch After Full Batches", func(t *testing.T) {
		h := &pagingHandler{total: 200}
		ts := httptest.NewServer(h)
		defer ts.Close()

		pages, err := newClient(t, ts.URL, 100).ListPages(context.Background(), "AE")
		require.NoError(t, err)
		assert.Len(t, pages, 200)
		// two full batches cannot prove exhaustion; one extra empty batch does
		assert.Equal(t, 3, h.requests)
	})

	t.Run("Empty Space Is Not An Error", func(t *testing.T) {
		h := &pagingHandler{total: 0}
		ts := httptest.NewServer(h)
		defer ts.Close()

		pages, err := newClient(t, ts.URL, 100).ListPages(context.Background(), "EMPTY")
		require.NoError(t, err)
		assert.Empty(t, pages)
		assert.Equal(t, 1, h.requests)
	})

	t.Run("Sends Basic Auth And Query", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "a@b.com", user)
			assert.Equal(t, "tok", pass)
			assert.Equal(t, "/wiki/rest/api/content", r.URL.Path)
			assert.Equal(t, "AE", r.URL.Query().Get("spaceKey"))
			assert.Equal(t, "page", r.URL.Query().Get("type"))
			assert.Equal(t, "current", r.URL.Query().Get("status"))
			fmt.Fprint(w, `{"results":[]}`)
		}))
		defer ts.Close()

		c, err := New(ts.URL, "a@b.com", "tok",
			WithHTTPClient(ts.Client()),
			WithTimeout(5*time.Second),
		)
		require.NoError(t, err)
		_, err = c.ListPages(context.Background(), "AE")
		require.NoError(t, err)
	})

	t.Run("Failure Yields Tagged FetchError", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "no permission", http.StatusForbidden)
		}))
		defer ts.Close()

		_, err := newClient(t, ts.URL, 100).ListPages(context.Background(), "AE")
		var fe *FetchError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, ScopeListPages, fe.Scope)
		assert.Equal(t, "AE", fe.Key)
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusForbidden, se.StatusCode)
	})

	t.Run("Token Never Appears In Error Text", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		}))
		defer ts.Close()

		c, err := New(ts.URL, "a@b.com", "super-secret-token", WithBatchSize(100))
		require.NoError(t, err)
		_, err = c.ListPages(context.Background(), "AE")
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "super-secret-token")
	})
}

func TestGetPageBody(t *testing.T) {
	t.Run("Returns Storage Representation", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/wiki/rest/api/content/123", r.URL.Path)
			assert.Equal(t, "body.storage", r.URL.Query().Get("expand"))
			fmt.Fprint(w, `{"body":{"storage":{"value":"<p>hello</p>"}}}`)
		}))
		defer ts.Close()

		c, err := New(ts.URL, "a@b.com", "tok")
		require.NoError(t, err)
		body, err := c.GetPageBody(context.Background(), "123")
		require.NoError(t, err)
		assert.Equal(t, "<p>hello</p>", body)
	})

	t.Run("Not Found Yields Page-Scoped FetchError", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		defer ts.Close()

		c, err := New(ts.URL, "a@b.com", "tok")
		require.NoError(t, err)
		_, err = c.GetPageBody(context.Background(), "999")
		var fe *FetchError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, ScopePage, fe.Scope)
		assert.Equal(t, "999", fe.Key)
	})
}

func TestListAttachments(t *testing.T) {
	t.Run("No Attachments Is Empty Not Error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/wiki/rest/api/content/123/child/attachment", r.URL.Path)
			fmt.Fprint(w, `{"results":[]}`)
		}))
		defer ts.Close()

		c, err := New(ts.URL, "a@b.com", "tok")
		require.NoError(t, err)
		atts, err := c.ListAttachments(context.Background(), "123")
		require.NoError(t, err)
		assert.Empty(t, atts)
	})

	t.Run("Carries Download Link", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"results":[
				{"id":"att1","title":"diagram.png","_links":{"download":"/download/attachments/123/diagram.png?version=1"}},
				{"id":"att2","title":"notes.pdf","_links":{}}
			]}`)
		}))
		defer ts.Close()

		c, err := New(ts.URL, "a@b.com", "tok")
		require.NoError(t, err)
		atts, err := c.ListAttachments(context.Background(), "123")
		require.NoError(t, err)
		require.Len(t, atts, 2)
		assert.Equal(t, "diagram.png", atts[0].Title)
		assert.Equal(t, "/download/attachments/123/diagram.png?version=1", atts[0].DownloadLink)
		assert.Empty(t, atts[1].DownloadLink)
	})
}

func TestDownloadAttachment(t *testing.T) {
	t.Run("Streams Via Reported Link", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/wiki/download/attachments/123/diagram.png", r.URL.Path)
			assert.Equal(t, "1", r.URL.Query().Get("version"))
			io.WriteString(w, "PNGDATA")
		}))
		defer ts.Close()

		c, err := New(ts.URL, "a@b.com", "tok")
		require.NoError(t, err)
		rc, err := c.DownloadAttachment(context.Background(), "123", Attachment{
			ID:           "att1",
			Title:        "diagram.png",
			DownloadLink: "/download/attachments/123/diagram.png?version=1",
		})
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "PNGDATA", string(data))
	})

	t.Run("Falls Back To Constructed Path", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/wiki/download/attachments/123/notes.pdf", r.URL.Path)
			io.WriteString(w, "PDFDATA")
		}))
		defer ts.Close()

		c, err := New(ts.URL, "a@b.com", "tok")
		require.NoError(t, err)
		rc, err := c.DownloadAttachment(context.Background(), "123", Attachment{ID: "att2", Title: "notes.pdf"})
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "PDFDATA", string(data))
	})

	t.Run("Failure Yields Download-Scoped FetchError", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		defer ts.Close()

		c, err := New(ts.URL, "a@b.com", "tok")
		require.NoError(t, err)
		_, err = c.DownloadAttachment(context.Background(), "123", Attachment{ID: "att3", Title: "gone.txt"})
		var fe *FetchError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, ScopeDownload, fe.Scope)
		assert.Equal(t, "123/gone.txt", fe.Key)
	})
}

func TestSamplePage(t *testing.T) {
	t.Run("Single Request With Limit One", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "1", r.URL.Query().Get("limit"))
			fmt.Fprint(w, `{"results":[{"id":"1","title":"Home"}]}`)
		}))
		defer ts.Close()

		c, err := New(ts.URL, "a@b.com", "tok")
		require.NoError(t, err)
		page, err := c.SamplePage(context.Background(), "AE")
		require.NoError(t, err)
		require.NotNil(t, page)
		assert.Equal(t, "Home", page.Title)
	})

	t.Run("Nil For Empty Space", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"results":[]}`)
		}))
		defer ts.Close()

		c, err := New(ts.URL, "a@b.com", "tok")
		require.NoError(t, err)
		page, err := c.SamplePage(context.Background(), "AE")
		require.NoError(t, err)
		assert.Nil(t, page)
	})
}

func TestListSpaces(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wiki/rest/api/space", r.URL.Path)
		fmt.Fprint(w, `{"results":[{"key":"AE","name":"Engineering","type":"global"}]}`)
	}))
	defer ts.Close()

	c, err := New(ts.URL, "a@b.com", "tok")
	require.NoError(t, err)
	spaces, err := c.ListSpaces(context.Background())
	require.NoError(t, err)
	require.Len(t, spaces, 1)
	assert.Equal(t, "AE", spaces[0].Key)
	assert.Equal(t, "Engineering", spaces[0].Name)
}

func TestRateLimitedClient(t *testing.T) {
	h := &pagingHandler{total: 3}
	ts := httptest.NewServer(h)
	defer ts.Close()

	c, err := New(ts.URL, "a@b.com", "tok", WithRateLimit(100))
	require.NoError(t, err)
	pages, err := c.ListPages(context.Background(), "AE")
	require.NoError(t, err)
	assert.Len(t, pages, 3)
}

func TestFetchErrorUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := &FetchError{Scope: ScopePage, Key: "1", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.True(t, strings.Contains(err.Error(), "page"))
}
