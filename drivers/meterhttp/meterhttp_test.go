package meterhttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarmatrix-go/errcode"
)

func TestFetch(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   float64
		code   errcode.Code
	}{
		{"import", 200, `{"id":0,"power":812.4,"is_valid":true}`, 812.4, errcode.OK},
		{"export", 200, `{"power":-1530}`, -1530, errcode.OK},
		{"zero", 200, `{"power":0}`, 0, errcode.OK},
		{"missing field", 200, `{"energy":1}`, 0, errcode.Parse},
		{"not json", 200, `<html>`, 0, errcode.Parse},
		{"string power", 200, `{"power":"12"}`, 0, errcode.Parse},
		{"unauthorised", 401, `{"power":1}`, 0, errcode.Transport},
		{"server error", 503, ``, 0, errcode.Transport},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				u, p, ok := r.BasicAuth()
				assert.True(t, ok)
				assert.Equal(t, "admin", u)
				assert.Equal(t, "secret", p)
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := New("admin", "secret", time.Second)
			got, err := c.Fetch(context.Background(), srv.URL+"/emeter/0")
			assert.Equal(t, tc.code, errcode.Of(err))
			if tc.code == errcode.OK {
				require.NoError(t, err)
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New("", "", 50*time.Millisecond)
	_, err := c.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, errcode.Transport, errcode.Of(err))
}

func TestFetchBadURL(t *testing.T) {
	_, err := New("", "", 0).Fetch(context.Background(), "://nope")
	assert.Equal(t, errcode.Transport, errcode.Of(err))
}
