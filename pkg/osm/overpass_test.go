package osm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const overpassXML = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="Overpass API">
  <node id="1" lat="9.9300" lon="76.2600"/>
  <node id="2" lat="9.9300" lon="76.2620"/>
  <node id="3" lat="9.9320" lon="76.2620"/>
  <way id="10">
    <nd ref="1"/>
    <nd ref="2"/>
    <nd ref="3"/>
    <tag k="highway" v="footway"/>
  </way>
</osm>`

func TestQuery(t *testing.T) {
	q := Query(9.9312, 76.2673, 1500)
	assert.Contains(t, q, `way["highway"](around:1500,9.9312000,76.2673000)`)
	assert.Contains(t, q, "(._;>;);out body;")
}

func TestOverpassFetch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotQuery = r.PostForm.Get("data")
		w.Header().Set("Content-Type", "application/osm3s+xml")
		w.Write([]byte(overpassXML))
	}))
	defer srv.Close()

	c := NewOverpassClient(srv.URL, time.Second)
	res, err := c.Fetch(context.Background(), 9.93, 76.26, 500)
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "around:500")
	require.Len(t, res.Edges, 2)
	assert.Equal(t, []float64{9.93}, res.Edges[0].ShapeLats)
	assert.InDelta(t, 9.932, res.NodeLat[3], 1e-9)
}

func TestOverpassFetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr string
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "rate limited", http.StatusTooManyRequests)
			},
			wantErr: "status 429",
		},
		{
			name: "malformed xml",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<osm><node id="))
			},
			wantErr: "decode",
		},
		{
			name: "no ways",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<osm version="0.6"></osm>`))
			},
			wantErr: ErrEmptyResponse.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewOverpassClient(srv.URL, time.Second).Fetch(context.Background(), 9.93, 76.26, 500)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), err.Error())
		})
	}
}

func TestOverpassFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := NewOverpassClient(srv.URL, 50*time.Millisecond).Fetch(context.Background(), 9.93, 76.26, 500)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
