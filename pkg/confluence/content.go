package confluence

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Page is one page summary from a space listing. The body is fetched
// separately, per page, via GetPageBody.
type Page struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Attachment is one attachment reference from a page's attachment
// listing. DownloadLink is the server-reported download path, when the
// response carries one.
type Attachment struct {
	ID           string
	Title        string
	DownloadLink string
}

type pageList struct {
	Results []Page `json:"results"`
}

type attachmentList struct {
	Results []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Links struct {
			Download string `json:"download"`
		} `json:"_links"`
	} `json:"results"`
}

type pageContent struct {
	Body struct {
		Storage struct {
			Value string `json:"value"`
		} `json:"storage"`
	} `json:"body"`
}

// ListPages returns every current page in the space, in server order.
// Pagination terminates on the first empty or short batch; the remote
// does not report a total count up front.
func (c *Client) ListPages(ctx context.Context, spaceKey string) ([]Page, error) {
	var pages []Page
	err := c.paginate(func(start, limit int) (int, error) {
		q := listQuery(start, limit)
		q.Set("spaceKey", spaceKey)
		q.Set("type", "page")
		q.Set("status", "current")

		var batch pageList
		if err := c.getJSON(ctx, "/wiki/rest/api/content", q, &batch); err != nil {
			return 0, err
		}
		pages = append(pages, batch.Results...)
		return len(batch.Results), nil
	})
	if err != nil {
		return nil, &FetchError{Scope: ScopeListPages, Key: spaceKey, Err: err}
	}
	return pages, nil
}

// SamplePage fetches at most one page from the space with a single
// request. Used by the connection check to probe page-level access; nil
// means the space has no visible pages.
func (c *Client) SamplePage(ctx context.Context, spaceKey string) (*Page, error) {
	q := listQuery(0, 1)
	q.Set("spaceKey", spaceKey)
	q.Set("type", "page")
	q.Set("status", "current")

	var batch pageList
	if err := c.getJSON(ctx, "/wiki/rest/api/content", q, &batch); err != nil {
		return nil, &FetchError{Scope: ScopeListPages, Key: spaceKey, Err: err}
	}
	if len(batch.Results) == 0 {
		return nil, nil
	}
	return &batch.Results[0], nil
}

// GetPageBody fetches one page's body in storage representation.
func (c *Client) GetPageBody(ctx context.Context, pageID string) (string, error) {
	q := url.Values{"expand": {"body.storage"}}
	var content pageContent
	if err := c.getJSON(ctx, "/wiki/rest/api/content/"+url.PathEscape(pageID), q, &content); err != nil {
		return "", &FetchError{Scope: ScopePage, Key: pageID, Err: err}
	}
	return content.Body.Storage.Value, nil
}

// ListAttachments returns the page's attachments in server order. A page
// without attachments yields an empty slice, not an error.
func (c *Client) ListAttachments(ctx context.Context, pageID string) ([]Attachment, error) {
	var attachments []Attachment
	err := c.paginate(func(start, limit int) (int, error) {
		var batch attachmentList
		path := "/wiki/rest/api/content/" + url.PathEscape(pageID) + "/child/attachment"
		if err := c.getJSON(ctx, path, listQuery(start, limit), &batch); err != nil {
			return 0, err
		}
		for _, r := range batch.Results {
			attachments = append(attachments, Attachment{
				ID:           r.ID,
				Title:        r.Title,
				DownloadLink: r.Links.Download,
			})
		}
		return len(batch.Results), nil
	})
	if err != nil {
		return nil, &FetchError{Scope: ScopeAttachments, Key: pageID, Err: err}
	}
	return attachments, nil
}

// DownloadAttachment streams one attachment's bytes. The server-reported
// download link is preferred; without one the standard download route is
// constructed from the page ID and filename. The caller must close the
// returned reader and should copy it to its destination incrementally.
func (c *Client) DownloadAttachment(ctx context.Context, pageID string, att Attachment) (io.ReadCloser, error) {
	key := pageID + "/" + att.Title

	link := att.DownloadLink
	if link == "" {
		link = "/wiki/download/attachments/" + url.PathEscape(pageID) + "/" + url.PathEscape(att.Title)
	} else if !strings.HasPrefix(link, "/wiki/") {
		link = "/wiki" + link
	}
	ref, err := url.Parse(link)
	if err != nil {
		return nil, &FetchError{Scope: ScopeDownload, Key: key, Err: fmt.Errorf("bad download link: %w", err)}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{Scope: ScopeDownload, Key: key, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.ResolveReference(ref).String(), nil)
	if err != nil {
		return nil, &FetchError{Scope: ScopeDownload, Key: key, Err: err}
	}
	req.SetBasicAuth(c.email, c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{Scope: ScopeDownload, Key: key, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &FetchError{Scope: ScopeDownload, Key: key, Err: &StatusError{StatusCode: resp.StatusCode}}
	}
	return resp.Body, nil
}
