package humastar

import (
	"context"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSignals(t *testing.T) {
	s, err := ParseSignals([]byte(`{"search": "Lyon", "page": 2, "lat": 45.7, "open": true, "filters": ["park", 3, "shop"]}`))
	require.NoError(t, err)
	assert.Equal(t, "Lyon", s.String("search"))
	assert.InDelta(t, 45.7, s.Float("lat"), 1e-9)
	assert.True(t, s.Bool("open"))
	assert.Equal(t, []string{"park", "shop"}, s.Strings("filters"))
	assert.Nil(t, s.Strings("missing"))
	assert.Equal(t, "", s.String("page"))
	assert.Zero(t, s.Float("search"))

	empty, err := ParseSignals(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	in := SignalsInput{RawBody: []byte("{")}
	_, err = in.MustParse()
	var se huma.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 400, se.GetStatus())
}

func TestPageBody_PaginationLinks(t *testing.T) {
	p := PageBody[int]{Total: 12, Offset: 5, Limit: 5}
	assert.Equal(t, []string{
		`</items?offset=0&limit=5>; rel="first"`,
		`</items?offset=0&limit=5>; rel="prev"`,
		`</items?offset=10&limit=5>; rel="next"`,
		`</items?offset=10&limit=5>; rel="last"`,
	}, p.PaginationLinks("/items"))
}

func TestActionsFor(t *testing.T) {
	actions := ActionsFor("abc", []ActionDef{{Rel: "search", Pattern: "/w/%s/search", Method: "POST", Title: "Search"}})
	require.Len(t, actions, 1)
	assert.Equal(t, `</w/abc/search>; rel="search"; method="POST"; title="Search"`, actions[0].LinkHeader())
}

type thing struct {
	ID string `json:"id"`
}

func TestAutoLinks(t *testing.T) {
	_, api := humatest.New(t)
	huma.Get(api, "/health", func(ctx context.Context, _ *struct{}) (*struct{ Body string }, error) {
		return &struct{ Body string }{Body: "ok"}, nil
	}, huma.OperationTags("health"))
	huma.Get(api, "/things", func(ctx context.Context, _ *struct{}) (*struct{ Body []thing }, error) {
		return &struct{ Body []thing }{Body: []thing{}}, nil
	}, huma.OperationTags("things"))
	huma.Get(api, "/things/{id}", func(ctx context.Context, in *struct {
		ID string `path:"id"`
	}) (*struct{ Body thing }, error) {
		return &struct{ Body thing }{Body: thing{ID: in.ID}}, nil
	}, huma.OperationTags("things"))
	huma.Get(api, "/stream", func(ctx context.Context, _ *struct{}) (*struct{ Body string }, error) {
		return &struct{ Body string }{}, nil
	}, huma.OperationTags("widget"))

	links := AutoLinks(api, LinkOptions{Entry: "/health", SkipTags: []string{"widget"}})

	assert.Contains(t, links.For("/health"), `</things>; rel="things"`)
	assert.Contains(t, links.For("/health"), `</openapi.json>; rel="service-desc"`)
	assert.NotContains(t, links.For("/health"), `</stream>; rel="stream"`)
	assert.Contains(t, links.For("/things/{id}"), `</things>; rel="collection"`)
	assert.Contains(t, links.For("/things"), `</things/{id}>; rel="item"`)
	assert.Contains(t, links.For("/things"), `</health>; rel="up"`)
	assert.Empty(t, links.For("/stream"))
}

func TestPage(t *testing.T) {
	all := []int{1, 2, 3, 4, 5, 6, 7}
	p := Page(all, 5, 5)
	assert.Equal(t, []int{6, 7}, p.Data)
	assert.Equal(t, 7, p.Total)

	p = Page(all, 50, 0)
	assert.Empty(t, p.Data)
	assert.Equal(t, 1, p.Limit)
}
