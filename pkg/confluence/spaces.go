package confluence

import (
	"context"
	"net/url"
)

// Space is one space summary.
type Space struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type spaceList struct {
	Results []Space `json:"results"`
}

// ListSpaces returns every space the account can see. Used by the
// connection check to verify credentials and permissions.
func (c *Client) ListSpaces(ctx context.Context) ([]Space, error) {
	var spaces []Space
	err := c.paginate(func(start, limit int) (int, error) {
		var batch spaceList
		if err := c.getJSON(ctx, "/wiki/rest/api/space", listQuery(start, limit), &batch); err != nil {
			return 0, err
		}
		spaces = append(spaces, batch.Results...)
		return len(batch.Results), nil
	})
	if err != nil {
		return nil, &FetchError{Scope: ScopeListSpaces, Key: "", Err: err}
	}
	return spaces, nil
}

// GetSpace fetches one space by key.
func (c *Client) GetSpace(ctx context.Context, key string) (*Space, error) {
	var space Space
	if err := c.getJSON(ctx, "/wiki/rest/api/space/"+url.PathEscape(key), nil, &space); err != nil {
		return nil, &FetchError{Scope: ScopeListSpaces, Key: key, Err: err}
	}
	return &space, nil
}
